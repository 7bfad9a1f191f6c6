package audio

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/faiface/beep"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeWAV(t *testing.T, sampleRate, bitDepth, chans int, data []int) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, sampleRate, bitDepth, chans, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: chans, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return raw
}

func TestDecodeWAVMono16(t *testing.T) {
	raw := writeWAV(t, 16000, 16, 1, []int{0, 1000, -1000, 32767})

	pcm, err := DecodeWAV(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 16000, pcm.SampleRate)
	assert.Equal(t, []int16{0, 1000, -1000, 32767}, pcm.Samples)
}

func TestDecodeWAVStereoDownmix(t *testing.T) {
	raw := writeWAV(t, 48000, 16, 2, []int{100, 300, -200, -400})

	pcm, err := DecodeWAV(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, []int16{200, -300}, pcm.Samples)
}

func TestDecodeWAV24Bit(t *testing.T) {
	raw := writeWAV(t, 16000, 24, 1, []int{256 * 1000})

	pcm, err := DecodeWAV(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, []int16{1000}, pcm.Samples)
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	_, err := DecodeWAV(bytes.NewReader([]byte("definitely not a wav file")))
	assert.Error(t, err)
}

func TestEncodeWAVFromStreamer(t *testing.T) {
	format := beep.Format{SampleRate: 16000, NumChannels: 1, Precision: 2}
	data, err := encodeWAV(beep.Silence(1600), format)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("RIFF")))

	pcm, err := DecodeWAV(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 16000, pcm.SampleRate)
	assert.Len(t, pcm.Samples, 1600)
}

func TestToWAV(t *testing.T) {
	wavClip := Clip{Format: "WAV", Data: []byte("RIFF")}
	out, err := ToWAV(wavClip)
	require.NoError(t, err)
	assert.Equal(t, wavClip.Data, out)

	_, err = ToWAV(Clip{Format: "oggopus", Data: []byte{1}})
	assert.Error(t, err)

	_, err = ToWAV(Clip{Format: "mp3", Data: []byte("not mp3")})
	assert.Error(t, err)
}

type fakeEngine struct {
	clip Clip
	err  error
}

func (f fakeEngine) Synthesize(context.Context, string) (Clip, error) { return f.clip, f.err }

func TestOutput(t *testing.T) {
	logger := zap.NewNop().Sugar()

	t.Run("passthrough", func(t *testing.T) {
		var buf bytes.Buffer
		o := NewOutput(fakeEngine{clip: Clip{Format: "mp3", Data: []byte("ID3")}}, "", logger)
		require.NoError(t, o.Synthesize(context.Background(), "hi", &buf))
		assert.Equal(t, "ID3", buf.String())
	})
	t.Run("conversion failure falls back to source bytes", func(t *testing.T) {
		var buf bytes.Buffer
		o := NewOutput(fakeEngine{clip: Clip{Format: "oggopus", Data: []byte("OggS")}}, "wav", logger)
		require.NoError(t, o.Synthesize(context.Background(), "hi", &buf))
		assert.Equal(t, "OggS", buf.String())
	})
	t.Run("empty", func(t *testing.T) {
		o := NewOutput(fakeEngine{clip: Clip{Format: "wav"}}, "wav", logger)
		assert.Error(t, o.Synthesize(context.Background(), "hi", &bytes.Buffer{}))
	})
	t.Run("engine error", func(t *testing.T) {
		boom := errors.New("boom")
		o := NewOutput(fakeEngine{err: boom}, "wav", logger)
		assert.ErrorIs(t, o.Synthesize(context.Background(), "hi", &bytes.Buffer{}), boom)
	})
}

func TestScratch(t *testing.T) {
	dir := t.TempDir()
	s, err := NewScratch(dir, zap.NewNop().Sugar())
	require.NoError(t, err)

	f1, c1, err := s.Create("input.wav")
	require.NoError(t, err)
	f2, c2, err := s.Create("input.wav")
	require.NoError(t, err)
	assert.NotEqual(t, f1.Name(), f2.Name())
	assert.True(t, strings.HasSuffix(f1.Name(), "_input.wav"))

	c1()
	c2()
	c2()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestScratchSweep(t *testing.T) {
	dir := t.TempDir()
	s, err := NewScratch(dir, zap.NewNop().Sugar())
	require.NoError(t, err)

	stale := filepath.Join(dir, uuid.NewString()+"_output.wav")
	fresh := filepath.Join(dir, uuid.NewString()+"_output.wav")
	// чужие файлы в той же директории уборщик не трогает
	history := filepath.Join(dir, "chat_history.json")
	other := filepath.Join(dir, "stale_output.wav")
	old := time.Now().Add(-2 * time.Hour)
	for _, p := range []string{stale, fresh, history, other} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	}
	for _, p := range []string{stale, history, other} {
		require.NoError(t, os.Chtimes(p, old, old))
	}

	assert.Equal(t, 1, s.Sweep(time.Hour))
	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, history)
	assert.FileExists(t, other)
	assert.Zero(t, s.Sweep(0))
}
