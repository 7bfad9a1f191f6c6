package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"AEye/internal/config"
	"AEye/internal/service/tts/google"
)

// Небольшая утилита: печатает список голосов Google TTS для языка из конфигурации.
// Путь к ключу сервисного аккаунта берётся из internal/config.
func main() {
	// Флаги командной строки здесь свои, конфигурация только из YAML, .env и окружения.
	// Проверка конфигурации заодно выставляет GOOGLE_APPLICATION_CREDENTIALS.
	_ = os.Setenv("TTS_SERVICE", "google")
	cfg, err := config.Load(nil)
	if err != nil {
		fmt.Println("ошибка конфигурации:", err)
		os.Exit(1)
	}

	var lang string
	flag.StringVar(&lang, "lang", cfg.GoogleTTS.Language, "язык голосов, напр. ru-RU; пусто: все")
	flag.Parse()

	ctx, cancel := context.WithTimeoutCause(context.Background(), 15*time.Second, errors.New("google tts voices request timeout"))
	defer cancel()

	client, err := google.New(ctx, cfg.GoogleTTS, zap.NewNop().Sugar())
	if err != nil {
		fmt.Println("не удалось создать клиента Google TTS:", err)
		os.Exit(1)
	}
	defer client.Close()

	voices, err := client.ListVoices(ctx, lang)
	if err != nil {
		fmt.Println("ошибка при получении голосов:", err)
		os.Exit(1)
	}
	for _, v := range voices {
		fmt.Printf("%-28s %-8s %s\n", v.GetName(), v.GetSsmlGender().String(), strings.Join(v.GetLanguageCodes(), ","))
	}
}
