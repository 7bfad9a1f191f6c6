package openai

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"
)

// Client распознавание речи через OpenAI Audio Transcriptions (whisper-1, gpt-4o-transcribe).
type Client struct {
	client   *openai.Client
	model    string
	language string
	logger   *zap.SugaredLogger
}

func New(client *openai.Client, model, language string, logger *zap.SugaredLogger) *Client {
	if model == "" {
		model = openai.AudioModelWhisper1
	}
	return &Client{client: client, model: model, language: language, logger: logger}
}

func (c *Client) Transcribe(ctx context.Context, r io.Reader) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		File:  wavFile{Reader: r},
		Model: openai.AudioModel(c.model),
	}
	if c.language != "" {
		params.Language = openai.String(c.language)
	}

	start := time.Now()
	resp, err := c.client.Audio.Transcriptions.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		c.logger.Errorw("OpenAI STT: ошибка", "duration", dur.String(), "error", err)
		return "", fmt.Errorf("openai stt: %w", err)
	}
	c.logger.Infow("OpenAI STT: распознано", "duration", dur.String(), "model", c.model)
	return resp.Text, nil
}

// wavFile задаёт имя и тип части multipart, иначе SDK отправит anonymous_file.
type wavFile struct{ io.Reader }

func (wavFile) Filename() string    { return "input.wav" }
func (wavFile) ContentType() string { return "audio/wav" }
