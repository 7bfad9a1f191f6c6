package openai

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"

	"AEye/internal/config"
	"AEye/internal/service/audio"
)

// Client синтез речи через OpenAI Audio Speech, ответ сразу в WAV.
type Client struct {
	client *openai.Client
	cfg    config.OpenAITTSConfig
	logger *zap.SugaredLogger
}

func New(client *openai.Client, cfg config.OpenAITTSConfig, logger *zap.SugaredLogger) *Client {
	if cfg.Model == "" {
		cfg.Model = openai.SpeechModelGPT4oMiniTTS
	}
	if cfg.Voice == "" {
		cfg.Voice = string(openai.AudioSpeechNewParamsVoiceAlloy)
	}
	return &Client{client: client, cfg: cfg, logger: logger}
}

func (c *Client) Synthesize(ctx context.Context, text string) (audio.Clip, error) {
	params := openai.AudioSpeechNewParams{
		Input:          text,
		Model:          c.cfg.Model,
		Voice:          openai.AudioSpeechNewParamsVoice(c.cfg.Voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatWAV,
	}
	if ins := strings.TrimSpace(c.cfg.Instructions); ins != "" {
		params.Instructions = openai.String(ins)
	}

	started := time.Now()
	resp, err := c.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("openai tts: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("openai tts: read body: %w", err)
	}
	c.logger.Infow("OpenAI TTS synthesize completed", "took", time.Since(started).String(), "model", c.cfg.Model, "bytes", len(data))
	return audio.Clip{Format: "wav", Data: data}, nil
}
