package tts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"AEye/internal/config"
	openaitts "AEye/internal/service/tts/openai"
	"AEye/internal/service/tts/yandex"
)

func TestNew(t *testing.T) {
	logger := zap.NewNop().Sugar()

	cfg := config.Defaults()
	cfg.TTSService = "none"
	engine, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	assert.Nil(t, engine)

	cfg.TTSService = "Yandex"
	cfg.YandexTTS.APIKey = "k"
	engine, err = New(context.Background(), cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &yandex.Client{}, engine)

	cfg.YandexTTS.APIKey = ""
	engine, err = New(context.Background(), cfg, logger)
	assert.Error(t, err)
	assert.Nil(t, engine)

	cfg.TTSService = "openai"
	engine, err = New(context.Background(), cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &openaitts.Client{}, engine)

	cfg.TTSService = "festival"
	_, err = New(context.Background(), cfg, logger)
	assert.Error(t, err)
}

func TestOpenAIKey(t *testing.T) {
	cfg := config.Defaults()
	cfg.Chat.APIKey = "chat"
	cfg.STT.APIKey = "stt"
	assert.Equal(t, "chat", openAIKey(cfg))

	cfg.Chat.Provider = "compat"
	assert.Equal(t, "stt", openAIKey(cfg))

	cfg.STT.Provider = "yandex"
	assert.Empty(t, openAIKey(cfg))
}
