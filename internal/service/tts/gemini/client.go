package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"

	"AEye/internal/config"
	"AEye/internal/service/audio"
)

// По умолчанию используем Cloud TTS v1beta1 text:synthesize, совместимый с Generative AI TTS.
const defaultEndpoint = "https://texttospeech.googleapis.com/v1beta1/text:synthesize"

// Client синтез речи через Cloud Text-to-Speech с моделями Gemini.
type Client struct {
	http     *http.Client
	cfg      config.GeminiTTSConfig
	endpoint string
	logger   *zap.SugaredLogger
}

// New создаёт OAuth2 HTTP-клиент только через ADC/metadata. API Key не используется.
func New(ctx context.Context, cfg config.GeminiTTSConfig, logger *zap.SugaredLogger) (*Client, error) {
	hc, err := google.DefaultClient(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return nil, fmt.Errorf("gemini tts: ADC credentials not found, set GOOGLE_APPLICATION_CREDENTIALS: %w", err)
	}
	return NewWithHTTP(cfg, hc, logger), nil
}

// NewWithHTTP использует готовый HTTP-клиент, авторизация остаётся на нём.
func NewWithHTTP(cfg config.GeminiTTSConfig, hc *http.Client, logger *zap.SugaredLogger) *Client {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{http: hc, cfg: cfg, endpoint: endpoint, logger: logger}
}

type requestPayload struct {
	Input struct {
		Prompt string `json:"prompt,omitempty"`
		Text   string `json:"text,omitempty"`
		Ssml   string `json:"ssml,omitempty"`
	} `json:"input"`
	Voice struct {
		ModelName    string `json:"modelName,omitempty"`
		LanguageCode string `json:"languageCode,omitempty"`
		VoiceName    string `json:"name,omitempty"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding  string   `json:"audioEncoding,omitempty"`
		SpeakingRate   float64  `json:"speakingRate,omitempty"`
		Pitch          float64  `json:"pitch,omitempty"`
		VolumeGainDb   float64  `json:"volumeGainDb,omitempty"`
		EffectsProfile []string `json:"effectsProfileId,omitempty"`
	} `json:"audioConfig"`
}

type jsonAudioResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize возвращает MP3.
func (c *Client) Synthesize(ctx context.Context, text string) (audio.Clip, error) {
	// Cloud TTS ожидает text или ssml, пустой ввод приведёт к 400.
	if strings.TrimSpace(text) == "" {
		return audio.Clip{}, errors.New("gemini tts: empty input text")
	}

	var rp requestPayload
	if strings.EqualFold(strings.TrimSpace(c.cfg.InputType), "ssml") {
		rp.Input.Ssml = text
	} else {
		// text, prompt и неизвестные типы отправляем как text, чтобы избежать 400 INVALID_ARGUMENT.
		rp.Input.Text = text
	}
	// Промпт стиля используется только Gemini. Пустым не отправляем.
	if p := strings.TrimSpace(c.cfg.Prompt); p != "" {
		rp.Input.Prompt = p
	}
	rp.Voice.ModelName = strings.TrimSpace(c.cfg.ModelName)
	rp.Voice.LanguageCode = strings.TrimSpace(c.cfg.Language)
	rp.Voice.VoiceName = strings.TrimSpace(c.cfg.VoiceName)
	rp.AudioConfig.AudioEncoding = "MP3"
	rp.AudioConfig.SpeakingRate = c.cfg.SpeakingRate
	rp.AudioConfig.Pitch = c.cfg.Pitch
	rp.AudioConfig.VolumeGainDb = c.cfg.VolumeGainDb
	if ep := strings.TrimSpace(c.cfg.EffectsProfileID); ep != "" {
		rp.AudioConfig.EffectsProfile = []string{ep}
	}

	body, err := json.Marshal(&rp)
	if err != nil {
		return audio.Clip{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return audio.Clip{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("gemini tts: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Infow("Gemini TTS request completed", "status", resp.StatusCode, "took", time.Since(started).String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if len(b) == 0 {
			b = []byte(resp.Status)
		}
		return audio.Clip{}, fmt.Errorf("gemini tts error: status=%d, body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var jr jsonAudioResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 5<<20)).Decode(&jr); err != nil {
		return audio.Clip{}, fmt.Errorf("gemini tts: decode json response: %w", err)
	}
	if strings.TrimSpace(jr.AudioContent) == "" {
		return audio.Clip{}, errors.New("gemini tts: empty audioContent in response")
	}
	data, err := base64.StdEncoding.DecodeString(jr.AudioContent)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("gemini tts: base64 decode: %w", err)
	}
	return audio.Clip{Format: "mp3", Data: data}, nil
}
