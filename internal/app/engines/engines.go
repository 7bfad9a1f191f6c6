// Package engines собирает внешние движки и хранилище истории по конфигурации.
package engines

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"AEye/internal/adapter/conversation"
	"AEye/internal/adapter/message"
	"AEye/internal/ai"
	"AEye/internal/config"
	"AEye/internal/service/assistant"
	"AEye/internal/service/audio"
	"AEye/internal/service/stt/compat"
	sttopenai "AEye/internal/service/stt/openai"
	"AEye/internal/service/stt/stub"
	"AEye/internal/service/stt/yandex"
	"AEye/internal/service/tts"
)

// NewChat чат-модель по CHAT_PROVIDER.
func NewChat(cfg *config.Config, logger *zap.SugaredLogger) (assistant.ChatEngine, error) {
	endpoint := ai.Endpoint{
		APIKey:   cfg.Chat.APIKey,
		BaseURL:  cfg.Chat.BaseURL,
		Referrer: cfg.Chat.Referrer,
		Title:    cfg.Chat.Title,
	}
	switch cfg.Chat.Provider {
	case "openai":
		return message.New(ai.NewOpenAI(endpoint), logger), nil
	case "compat":
		return message.NewCompat(ai.NewCompat(endpoint), logger), nil
	case "stub":
		logger.Warnw("Чат-модель заменена заглушкой")
		return message.NewStub(), nil
	default:
		return nil, fmt.Errorf("unknown chat provider %q", cfg.Chat.Provider)
	}
}

func NewTranscriber(cfg *config.Config, logger *zap.SugaredLogger) (assistant.Transcriber, error) {
	endpoint := ai.Endpoint{APIKey: cfg.STT.APIKey, BaseURL: cfg.STT.BaseURL}
	switch cfg.STT.Provider {
	case "openai":
		return sttopenai.New(ai.NewOpenAI(endpoint), cfg.STT.Model, cfg.STT.Language, logger), nil
	case "compat":
		return compat.New(ai.NewCompat(endpoint), cfg.STT.Model, cfg.STT.Language, logger), nil
	case "yandex":
		y := cfg.STT.Yandex
		c, err := yandex.New(yandex.Config{
			Endpoint:      y.Endpoint,
			APIKey:        y.APIKey,
			Language:      y.Language,
			StartJSON:     y.StartJSON,
			EndJSON:       y.EndJSON,
			AllowPartials: y.AllowPartials,
		}, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "stub":
		logger.Warnw("Распознавание речи заменено заглушкой", "text", cfg.STT.StubText)
		return stub.New(cfg.STT.StubText), nil
	default:
		return nil, fmt.Errorf("unknown stt provider %q", cfg.STT.Provider)
	}
}

// NewRepository открывает хранилище истории. close освобождает ресурсы хранилища.
func NewRepository(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (assistant.HistoryRepository, func(), error) {
	switch cfg.History.Backend {
	case "file":
		s, err := conversation.NewFileStore(cfg.History.Dir, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case "libsql":
		s, err := conversation.OpenSQL(ctx, cfg.History.DBPath, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Warnw("Не удалось закрыть базу истории", "error", err)
			}
		}, nil
	case "memory":
		return conversation.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}
}

// NewSynthesizer синтез речи с приведением к TTS_OUTPUT_FORMAT. При TTS_SERVICE=none возвращает nil.
func NewSynthesizer(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (assistant.Synthesizer, func(), error) {
	engine, err := tts.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if engine == nil {
		return nil, func() {}, nil
	}
	closeFn := func() {}
	if c, ok := engine.(io.Closer); ok {
		closeFn = func() { _ = c.Close() }
	}
	format := cfg.TTSOutputFormat
	if format == "native" {
		format = ""
	}
	return audio.NewOutput(engine, format, logger), closeFn, nil
}
