package google

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gctts "cloud.google.com/go/texttospeech/apiv1"
	ttspb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"AEye/internal/config"
	"AEye/internal/service/audio"
)

// Client синтез речи через Google Cloud Text-to-Speech.
// Клиент SDK создаётся один раз и закрывается через Close.
type Client struct {
	tts    *gctts.Client
	cfg    config.GoogleTTSConfig
	logger *zap.SugaredLogger
}

// New создаёт gRPC-клиент. Авторизация по ADC (GOOGLE_APPLICATION_CREDENTIALS),
// opts позволяют переопределить endpoint и учётные данные.
func New(ctx context.Context, cfg config.GoogleTTSConfig, logger *zap.SugaredLogger, opts ...option.ClientOption) (*Client, error) {
	ttsClient, err := gctts.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google tts: %w", err)
	}
	return &Client{tts: ttsClient, cfg: cfg, logger: logger}, nil
}

func (c *Client) Close() error { return c.tts.Close() }

// Synthesize возвращает MP3 или WAV (LINEAR16 приходит уже с RIFF-заголовком).
func (c *Client) Synthesize(ctx context.Context, text string) (audio.Clip, error) {
	if strings.TrimSpace(text) == "" {
		return audio.Clip{}, errors.New("google tts: empty input text")
	}

	// Определяем тип входа (text|ssml)
	var input *ttspb.SynthesisInput
	if strings.EqualFold(strings.TrimSpace(c.cfg.InputType), "ssml") {
		input = &ttspb.SynthesisInput{InputSource: &ttspb.SynthesisInput_Ssml{Ssml: text}}
	} else {
		input = &ttspb.SynthesisInput{InputSource: &ttspb.SynthesisInput_Text{Text: text}}
	}

	voice := &ttspb.VoiceSelectionParams{
		LanguageCode: c.cfg.Language,
		Name:         c.cfg.Voice, // поддержка Standard/Wavenet голосов
	}

	encoding, format := encodingOf(c.cfg.AudioEncoding)
	ac := &ttspb.AudioConfig{
		AudioEncoding: encoding,
		SpeakingRate:  c.cfg.SpeakingRate,
		Pitch:         c.cfg.Pitch,
		VolumeGainDb:  c.cfg.VolumeGainDb,
	}
	if ep := strings.TrimSpace(c.cfg.EffectsProfileID); ep != "" {
		ac.EffectsProfileId = []string{ep}
	}

	req := &ttspb.SynthesizeSpeechRequest{Input: input, Voice: voice, AudioConfig: ac}
	started := time.Now()
	resp, err := c.tts.SynthesizeSpeech(ctx, req)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("google tts: %w", err)
	}
	c.logger.Infow("Google TTS synthesize completed", "took", time.Since(started).String(), "format", format)
	return audio.Clip{Format: format, Data: resp.GetAudioContent()}, nil
}

// ListVoices список голосов для языка, пустой язык означает все.
func (c *Client) ListVoices(ctx context.Context, language string) ([]*ttspb.Voice, error) {
	resp, err := c.tts.ListVoices(ctx, &ttspb.ListVoicesRequest{LanguageCode: language})
	if err != nil {
		return nil, fmt.Errorf("google tts: list voices: %w", err)
	}
	return resp.GetVoices(), nil
}

func encodingOf(name string) (ttspb.AudioEncoding, string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "linear16", "wav":
		return ttspb.AudioEncoding_LINEAR16, "wav"
	default:
		return ttspb.AudioEncoding_MP3, "mp3"
	}
}
