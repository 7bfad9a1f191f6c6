package yandex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"AEye/internal/config"
	"AEye/internal/service/audio"
)

const defaultEndpoint = "https://tts.api.cloud.yandex.net/speech/v1/tts:synthesize"

// Client синтез речи через Yandex SpeechKit (REST v1).
type Client struct {
	http     *http.Client
	cfg      config.YandexTTSConfig
	endpoint string
	logger   *zap.SugaredLogger
}

func New(cfg config.YandexTTSConfig, logger *zap.SugaredLogger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("yandex tts: empty API key (set YC_TTS_API_KEY in .env/ENV or pass via flag)")
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{http: http.DefaultClient, cfg: cfg, endpoint: endpoint, logger: logger}, nil
}

// Synthesize возвращает аудио в формате из конфигурации (mp3|wav|oggopus).
func (c *Client) Synthesize(ctx context.Context, text string) (audio.Clip, error) {
	// Значения по умолчанию задаются исключительно в config.Defaults().
	format := strings.ToLower(c.cfg.Format)

	form := url.Values{}
	form.Set("text", text)
	form.Set("voice", c.cfg.Voice)
	form.Set("format", format)
	form.Set("speed", c.cfg.Speed)
	form.Set("emotion", strings.ToLower(c.cfg.Emotion))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return audio.Clip{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Api-Key "+c.cfg.APIKey)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("yandex tts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if len(b) == 0 {
			b = []byte(resp.Status)
		}
		return audio.Clip{}, fmt.Errorf("yandex tts error: status=%d, body=%s", resp.StatusCode, bytes.TrimSpace(b))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("yandex tts: read body: %w", err)
	}
	c.logger.Infow("Yandex TTS synthesize completed", "took", time.Since(started).String(), "bytes", len(data))
	return audio.Clip{Format: format, Data: data}, nil
}
