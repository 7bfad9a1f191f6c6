package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"AEye/internal/app/engines"
	"AEye/internal/app/scheduler"
	"AEye/internal/app/server"
	"AEye/internal/config"
	"AEye/internal/service/assistant"
	"AEye/internal/service/audio"
	"AEye/internal/service/image"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg.DebugMode)
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	//сброс буфера логгера
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, sugar); err != nil {
		sugar.Errorw("Сервер остановлен с ошибкой", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, sugar *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Infow("Starting app",
		"DebugMode", cfg.DebugMode,
		"chat", cfg.Chat.Provider,
		"stt", cfg.STT.Provider,
		"tts", cfg.TTSService,
		"history", cfg.History.Backend,
		"scope", cfg.Session.HistoryScope,
	)

	scratch, err := audio.NewScratch(cfg.Scratch.Dir, sugar)
	if err != nil {
		return err
	}

	chat, err := engines.NewChat(cfg, sugar)
	if err != nil {
		return err
	}
	transcriber, err := engines.NewTranscriber(cfg, sugar)
	if err != nil {
		return err
	}
	repo, closeRepo, err := engines.NewRepository(ctx, cfg, sugar)
	if err != nil {
		return err
	}
	defer closeRepo()

	synth, closeSynth, err := engines.NewSynthesizer(ctx, cfg, sugar)
	if err != nil {
		return err
	}
	defer closeSynth()

	sessions := assistant.NewSessionStore(cfg.Session.IdleThreshold)
	pipeline := assistant.NewPipeline(
		assistant.Engines{Transcriber: transcriber, Chat: chat, Synthesizer: synth},
		sessions, repo, scratch,
		assistant.Options{
			Model:             cfg.Chat.Model,
			GlobalKey:         cfg.Session.GlobalKey,
			TranscribeTimeout: cfg.Timeouts.Transcribe,
			ChatTimeout:       cfg.Timeouts.Chat,
			SynthesizeTimeout: cfg.Timeouts.Synthesize,
		},
		sugar,
	)

	janitor, err := scheduler.New(cfg.Scratch.JanitorSchedule, cfg.Scratch.TTL, scratch, sessions, sugar)
	if err != nil {
		return err
	}
	janitor.Start()
	defer janitor.Stop()

	srv := server.New(cfg.Server, cfg.Session, pipeline, image.NewProcessor(cfg.Images, sugar), sugar)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown on Ctrl+C / SIGTERM
	shutdownCtx, cancel := context.WithTimeoutCause(context.Background(), 10*time.Second, errors.New("shutdown timeout"))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("graceful shutdown error", "error", err)
	}
	sugar.Infow("server stopped")
	return nil
}
