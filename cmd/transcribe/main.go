package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"AEye/internal/app/engines"
	"AEye/internal/config"
)

// Утилита: распознаёт WAV-файл движком из конфигурации (STT_PROVIDER) и печатает текст.
//
//	go run ./cmd/transcribe -wav examples/audio/test.wav -provider yandex
func main() {
	var (
		wavPath  string
		provider string
		timeout  time.Duration
	)
	flag.StringVar(&wavPath, "wav", "examples/audio/test.wav", "путь к WAV файлу")
	flag.StringVar(&provider, "provider", "", "openai|compat|yandex; пусто: STT_PROVIDER")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "таймаут распознавания")
	flag.Parse()

	if provider != "" {
		_ = os.Setenv("STT_PROVIDER", provider)
	}
	// Синтез здесь не нужен, проверка ключей TTS не должна мешать.
	_ = os.Setenv("TTS_SERVICE", "none")
	cfg, err := config.Load(nil)
	if err != nil {
		fmt.Println("Ошибка конфигурации:", err)
		os.Exit(1)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	defer func() { _ = logger.Sync() }()

	stt, err := engines.NewTranscriber(cfg, sugar)
	if err != nil {
		sugar.Fatalw("Не удалось создать движок STT", "provider", cfg.STT.Provider, "error", err)
	}

	f, err := os.Open(wavPath)
	if err != nil {
		sugar.Fatalw("Не удалось открыть WAV", "path", wavPath, "error", err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeoutCause(context.Background(), timeout, errors.New("stt timeout"))
	defer cancel()

	text, err := stt.Transcribe(ctx, f)
	if err != nil {
		sugar.Fatalw("Распознавание не удалось", "error", err)
	}
	fmt.Println(text)
}
