package tts

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"AEye/internal/ai"
	"AEye/internal/config"
	"AEye/internal/service/audio"
	"AEye/internal/service/tts/gemini"
	"AEye/internal/service/tts/google"
	openaitts "AEye/internal/service/tts/openai"
	"AEye/internal/service/tts/yandex"
)

// New выбирает движок по TTS_SERVICE. Для "none" возвращает nil: ответ уходит без аудио.
// Движки, держащие соединение (google), реализуют io.Closer.
func New(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (audio.Engine, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.TTSService)) {
	case "google":
		c, err := google.New(ctx, cfg.GoogleTTS, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "gemini":
		c, err := gemini.New(ctx, cfg.GeminiTTS, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "yandex":
		c, err := yandex.New(cfg.YandexTTS, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "openai":
		client := ai.NewOpenAI(ai.Endpoint{APIKey: openAIKey(cfg), Timeout: cfg.Timeouts.Synthesize})
		return openaitts.New(client, cfg.OpenAITTS, logger), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("tts: неизвестный сервис %q", cfg.TTSService)
	}
}

// openAIKey ключ того этапа, который уже ходит в OpenAI. Пусто: SDK возьмёт OPENAI_API_KEY.
func openAIKey(cfg *config.Config) string {
	switch {
	case cfg.Chat.Provider == "openai" && cfg.Chat.APIKey != "":
		return cfg.Chat.APIKey
	case cfg.STT.Provider == "openai":
		return cfg.STT.APIKey
	}
	return ""
}
