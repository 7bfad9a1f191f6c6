package yandex

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sineWAV(t *testing.T, samples int) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "q.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	data := make([]int, samples)
	for i := range data {
		data[i] = (i % 200) * 100
	}
	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 16000},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return raw
}

type fakeSpeechKit struct {
	mu      sync.Mutex
	query   string
	auth    string
	start   string
	bytesIn int
	replies []string
}

func (s *fakeSpeechKit) handler(t *testing.T) http.HandlerFunc {
	upgrader := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.query = r.URL.RawQuery
		s.auth = r.Header.Get("Authorization")
		s.mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.mu.Lock()
			switch {
			case msgType == websocket.BinaryMessage:
				s.bytesIn += len(data)
			case s.start == "":
				s.start = string(data)
			case strings.Contains(string(data), "eof"):
				for _, reply := range s.replies {
					_ = conn.WriteMessage(websocket.TextMessage, []byte(reply))
				}
			}
			s.mu.Unlock()
		}
	}
}

func newTestClient(t *testing.T, fake *fakeSpeechKit, cfg Config) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	cfg.Endpoint = "ws" + strings.TrimPrefix(srv.URL, "http")
	cfg.APIKey = "secret"
	c, err := New(cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	return c
}

func TestTranscribe(t *testing.T) {
	fake := &fakeSpeechKit{replies: []string{
		`{"partial": "what is"}`,
		`{"result": "What is in front", "final": true}`,
		`{"alternatives": [{"text": "of me?"}], "final": true}`,
	}}
	c := newTestClient(t, fake, Config{EndJSON: `{"eof": true}`, ChunkSamples: 1000})

	text, err := c.Transcribe(context.Background(), bytes.NewReader(sineWAV(t, 3500)))
	require.NoError(t, err)
	assert.Equal(t, "What is in front of me?", text)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, "Api-Key secret", fake.auth)
	assert.Contains(t, fake.query, "sampleRateHertz=16000")
	assert.Contains(t, fake.query, "lang=ru-RU")
	assert.Contains(t, fake.start, `"format":"lpcm"`)
	assert.Equal(t, 3500*2, fake.bytesIn)
}

func TestTranscribePartialFallback(t *testing.T) {
	fake := &fakeSpeechKit{replies: []string{`{"partial": "hello"}`}}

	strict := newTestClient(t, fake, Config{EndJSON: `{"eof": true}`})
	text, err := strict.Transcribe(context.Background(), bytes.NewReader(sineWAV(t, 100)))
	require.NoError(t, err)
	assert.Empty(t, text)

	lenient := newTestClient(t, fake, Config{EndJSON: `{"eof": true}`, AllowPartials: true})
	text, err = lenient.Transcribe(context.Background(), bytes.NewReader(sineWAV(t, 100)))
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestTranscribeRejectsNonWAV(t *testing.T) {
	fake := &fakeSpeechKit{}
	c := newTestClient(t, fake, Config{})

	_, err := c.Transcribe(context.Background(), strings.NewReader("not a wav"))
	require.Error(t, err)
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Empty(t, fake.auth, "до сервера дело не дошло")
}

func TestTranscribeHandshakeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: "ws" + strings.TrimPrefix(srv.URL, "http"), APIKey: "bad"}, zap.NewNop().Sugar())
	require.NoError(t, err)
	_, err = c.Transcribe(context.Background(), bytes.NewReader(sineWAV(t, 100)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(Config{}, zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestParseServerMessage(t *testing.T) {
	cases := []struct {
		in    string
		text  string
		final bool
		ok    bool
	}{
		{`{"result": "a", "final": true}`, "a", true, true},
		{`{"alternatives": [{"text": "b"}]}`, "b", false, true},
		{`{"partial": "c"}`, "c", false, true},
		{`{"text": "d", "is_final": true}`, "d", true, true},
		{`{"status": "ok"}`, "", false, false},
		{`not json`, "", false, false},
	}
	for _, tc := range cases {
		res, ok := parseServerMessage([]byte(tc.in))
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.text, res.Text, tc.in)
		assert.Equal(t, tc.final, res.Final, tc.in)
	}
}
