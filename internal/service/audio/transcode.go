package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
	"go.uber.org/zap"
)

// Clip аудиофрагмент с форматом (mp3|wav|oggopus|...).
type Clip struct {
	Format string
	Data   []byte
}

// Engine синтезатор речи, возвращающий готовый фрагмент.
type Engine interface {
	Synthesize(ctx context.Context, text string) (Clip, error)
}

// ToWAV перекодирует фрагмент в WAV. WAV возвращается как есть.
func ToWAV(c Clip) ([]byte, error) {
	switch strings.ToLower(c.Format) {
	case "wav", "linear16":
		return c.Data, nil
	case "mp3":
		streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(c.Data)))
		if err != nil {
			return nil, fmt.Errorf("decode mp3: %w", err)
		}
		defer streamer.Close()
		return encodeWAV(streamer, format)
	default:
		return nil, fmt.Errorf("unsupported format for wav conversion: %s", c.Format)
	}
}

func encodeWAV(s beep.Streamer, format beep.Format) ([]byte, error) {
	var buf seekBuffer
	if err := wav.Encode(&buf, s, format); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	return buf.data, nil
}

// Output приводит результат движка к целевому формату и пишет его в out.
// Реализует интерфейс синтезатора конвейера.
type Output struct {
	engine Engine
	format string
	logger *zap.SugaredLogger
}

// NewOutput: format "wav": перекодировать в WAV; пусто: отдавать как есть.
func NewOutput(engine Engine, format string, logger *zap.SugaredLogger) *Output {
	return &Output{engine: engine, format: strings.ToLower(strings.TrimSpace(format)), logger: logger}
}

func (o *Output) Synthesize(ctx context.Context, text string, out io.Writer) error {
	clip, err := o.engine.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	if len(clip.Data) == 0 {
		return errors.New("tts returned empty audio")
	}
	data := clip.Data
	if o.format == "wav" {
		converted, cerr := ToWAV(clip)
		if cerr != nil {
			o.logger.Warnw("Не удалось перекодировать аудио, отдаём исходный формат", "format", clip.Format, "error", cerr)
		} else {
			data = converted
		}
	}
	_, err = out.Write(data)
	return err
}

// seekBuffer буфер в памяти с поддержкой Seek, wav.Encode дописывает заголовок в конце.
type seekBuffer struct {
	data []byte
	pos  int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	end := b.pos + len(p)
	if end > len(b.data) {
		b.data = append(b.data, make([]byte, end-len(b.data))...)
	}
	copy(b.data[b.pos:], p)
	b.pos = end
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(b.pos) + offset
	case io.SeekEnd:
		abs = int64(len(b.data)) + offset
	default:
		return 0, errors.New("seekBuffer: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("seekBuffer: negative position")
	}
	b.pos = int(abs)
	return abs, nil
}
