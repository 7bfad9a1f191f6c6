package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"AEye/internal/config"
	"AEye/internal/service/audio"
	"AEye/internal/service/tts"
	"AEye/internal/service/tts/player"
)

// Утилита для проверки синтеза речи выбранным движком.
// Параметры движков берутся из .env/ENV (YC_TTS_*, GOOGLE_TTS_*, GEMINI_TTS_*, OPENAI_TTS_*).
//
//	go run ./cmd/say -service yandex -text "Впереди дверь, чуть правее."
func main() {
	var (
		text    string
		service string
		out     string
		toWAV   bool
		play    bool
	)
	flag.StringVar(&text, "text", "There is a door two steps ahead, slightly to your right.", "текст для синтеза")
	flag.StringVar(&service, "service", "", "google|gemini|yandex|openai; пусто: TTS_SERVICE")
	flag.StringVar(&out, "out", "", "сохранить аудио в файл")
	flag.BoolVar(&toWAV, "wav", true, "перекодировать ответ в WAV, как это делает сервер")
	flag.BoolVar(&play, "play", true, "воспроизвести результат (wav, mp3)")
	flag.Parse()

	if service != "" {
		_ = os.Setenv("TTS_SERVICE", service)
	}
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

	ctx, cancel := context.WithTimeoutCause(context.Background(), 30*time.Second, errors.New("tts request timeout"))
	defer cancel()

	engine, err := tts.New(ctx, cfg, sugar)
	if err != nil {
		sugar.Fatalw("Не удалось создать движок TTS", "service", cfg.TTSService, "error", err)
	}
	if engine == nil {
		fmt.Println("TTS_SERVICE=none: синтез выключен")
		return
	}
	if c, ok := engine.(io.Closer); ok {
		defer c.Close()
	}

	clip, err := engine.Synthesize(ctx, text)
	if err != nil {
		sugar.Fatalw("Синтез не удался", "error", err)
	}
	if toWAV {
		data, err := audio.ToWAV(clip)
		if err != nil {
			sugar.Warnw("Не удалось перекодировать в WAV, оставляем исходный формат", "format", clip.Format, "error", err)
		} else {
			clip = audio.Clip{Format: "wav", Data: data}
		}
	}
	sugar.Infow("Аудио получено", "format", clip.Format, "bytes", len(clip.Data))

	if out != "" {
		if err := os.WriteFile(out, clip.Data, 0o644); err != nil {
			sugar.Fatalw("Не удалось сохранить файл", "path", out, "error", err)
		}
		fmt.Println("Файл сохранён:", out)
	}
	if play {
		switch strings.ToLower(clip.Format) {
		case "wav", "mp3":
			if err := player.New().Play(clip.Format, io.NopCloser(bytes.NewReader(clip.Data))); err != nil {
				sugar.Fatalw("Не удалось воспроизвести", "error", err)
			}
		default:
			fmt.Printf("Формат %q не поддерживается для прямого воспроизведения, используйте -out\n", clip.Format)
		}
	}
}
