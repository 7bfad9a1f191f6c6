package compat

import (
	"context"
	"fmt"
	"io"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Client распознавание речи через OpenAI-совместимый API (например, Groq whisper-large-v3).
type Client struct {
	client   *goopenai.Client
	model    string
	language string
	logger   *zap.SugaredLogger
}

func New(client *goopenai.Client, model, language string, logger *zap.SugaredLogger) *Client {
	if model == "" {
		model = goopenai.Whisper1
	}
	return &Client{client: client, model: model, language: language, logger: logger}
}

func (c *Client) Transcribe(ctx context.Context, r io.Reader) (string, error) {
	req := goopenai.AudioRequest{
		Model:    c.model,
		FilePath: "input.wav",
		Reader:   r,
		Language: c.language,
	}

	start := time.Now()
	resp, err := c.client.CreateTranscription(ctx, req)
	dur := time.Since(start)
	if err != nil {
		c.logger.Errorw("Compat STT: ошибка", "duration", dur.String(), "error", err)
		return "", fmt.Errorf("compat stt: %w", err)
	}
	c.logger.Infow("Compat STT: распознано", "duration", dur.String(), "model", c.model)
	return resp.Text, nil
}
