package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
)

// Transcriber распознаёт речь.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader) (string, error)
}

// ChatEngine мультимодальная чат-модель. Возвращает текст первого варианта ответа.
type ChatEngine interface {
	Complete(ctx context.Context, messages []Message, model string) (string, error)
}

// Synthesizer синтезирует речь и пишет аудио в out.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, out io.Writer) error
}

// Spool выдаёт временные файлы для аудио. cleanup закрывает и удаляет файл.
type Spool interface {
	Create(name string) (f *os.File, cleanup func(), err error)
}

// Engines внешние движки конвейера. Synthesizer может быть nil, тогда ответ только текстом.
type Engines struct {
	Transcriber Transcriber
	Chat        ChatEngine
	Synthesizer Synthesizer
}

// Options параметры конвейера. Нулевой таймаут этапа означает отсутствие ограничения.
type Options struct {
	Model             string
	GlobalKey         string
	TranscribeTimeout time.Duration
	ChatTimeout       time.Duration
	SynthesizeTimeout time.Duration
	Now               func() time.Time
}

// Result ответ конвейера. Audio == nil, если синтез речи не удался.
type Result struct {
	Text  string
	Audio []byte
}

// Pipeline последовательно выполняет: валидация → пауза → история → расшифровка →
// промпт → чат → сохранение → синтез.
type Pipeline struct {
	engines  Engines
	sessions *SessionStore
	repo     HistoryRepository
	spool    Spool
	opts     Options
	logger   *zap.SugaredLogger
}

func NewPipeline(engines Engines, sessions *SessionStore, repo HistoryRepository, spool Spool, opts Options, logger *zap.SugaredLogger) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.GlobalKey == "" {
		opts.GlobalKey = "chat_history"
	}
	return &Pipeline{engines: engines, sessions: sessions, repo: repo, spool: spool, opts: opts, logger: logger}
}

// Run обрабатывает запрос. Ошибки этапов возвращаются как *StageError,
// ошибки валидации приходят как *MissingFieldError / *InvalidModeError.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	tpl, err := Validate(req)
	if err != nil {
		return Result{}, err
	}

	key := req.SessionKey
	if key == "" {
		key = p.opts.GlobalKey
	}
	sess, err := p.sessions.Acquire(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("acquire session %s: %w", key, err)
	}
	defer sess.Release()

	store := NewConversationStore(p.repo, key)
	reset := sess.ShouldReset(p.opts.Now())
	history, err := store.Load(ctx)
	if err != nil {
		return Result{}, &StageError{Stage: StageStore, Kind: ErrStoreUnavailable, Err: err}
	}
	if reset {
		p.logger.Infow("Начинаем новый диалог", "session", key, "dropped", len(history))
		// Старая история стирается сразу, даже если дальше запрос упадёт.
		if len(history) > 0 {
			if err := store.Save(ctx, History{}); err != nil {
				return Result{}, &StageError{Stage: StageStore, Kind: ErrStoreUnavailable, Err: err}
			}
		}
		history = History{}
	}

	transcript := tpl.DefaultPrompt
	if len(req.Audio) > 0 {
		transcript, err = p.transcribe(ctx, req.Audio)
		if err != nil {
			return Result{}, err
		}
		p.logger.Infow("Расшифровка получена", "mode", tpl.Mode.String(), "text", transcript)
	}

	messages := Build(tpl, req.Images, transcript, history)

	var text string
	err = p.stage(ctx, StageChat, ErrChatEngineFailed, p.opts.ChatTimeout, func(ctx context.Context) error {
		var cerr error
		text, cerr = p.engines.Chat.Complete(ctx, messages, p.opts.Model)
		return cerr
	})
	if err != nil {
		return Result{}, err
	}

	// Отменённый запрос не должен оставлять историю.
	if ctx.Err() != nil {
		return Result{}, context.Cause(ctx)
	}
	if err := store.Save(ctx, history.WithExchange(transcript, text)); err != nil {
		return Result{}, &StageError{Stage: StageStore, Kind: ErrStoreUnavailable, Err: err}
	}
	sess.Release()

	audio, err := p.synthesize(ctx, text)
	if err != nil {
		p.logger.Warnw("Синтез речи не удался, отвечаем текстом", "error", err)
		audio = nil
	}

	return Result{Text: text, Audio: audio}, nil
}

func (p *Pipeline) transcribe(ctx context.Context, audio []byte) (string, error) {
	var transcript string
	err := p.stage(ctx, StageTranscribe, ErrTranscriptionFailed, p.opts.TranscribeTimeout, func(ctx context.Context) error {
		f, cleanup, err := p.spool.Create("input.wav")
		if err != nil {
			return err
		}
		defer cleanup()
		if _, err := f.Write(audio); err != nil {
			return fmt.Errorf("spool input audio: %w", err)
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}
		transcript, err = p.engines.Transcriber.Transcribe(ctx, f)
		return err
	})
	return transcript, err
}

func (p *Pipeline) synthesize(ctx context.Context, text string) ([]byte, error) {
	if p.engines.Synthesizer == nil {
		return nil, nil
	}
	var audio []byte
	err := p.stage(ctx, StageSynthesize, ErrSynthesisFailed, p.opts.SynthesizeTimeout, func(ctx context.Context) error {
		f, cleanup, err := p.spool.Create("output.wav")
		if err != nil {
			return err
		}
		defer cleanup()
		if err := p.engines.Synthesizer.Synthesize(ctx, text, f); err != nil {
			return err
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}
		audio, err = io.ReadAll(f)
		if err != nil {
			return err
		}
		if len(audio) == 0 {
			return errors.New("empty audio output")
		}
		return nil
	})
	return audio, err
}

// stage выполняет один вызов движка с таймаутом этапа и оборачивает ошибку в StageError.
func (p *Pipeline) stage(ctx context.Context, stage Stage, kind error, timeout time.Duration, fn func(ctx context.Context) error) error {
	var (
		sctx   context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		sctx, cancel = context.WithTimeoutCause(ctx, timeout, fmt.Errorf("%s: %w", stage, ErrEngineTimeout))
	} else {
		sctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	start := time.Now()
	err := fn(sctx)
	dur := time.Since(start)
	if err == nil {
		p.logger.Debugw("Этап выполнен", "stage", string(stage), "duration", dur.String())
		return nil
	}
	if ctx.Err() == nil && errors.Is(context.Cause(sctx), ErrEngineTimeout) {
		kind = ErrEngineTimeout
	}
	p.logger.Errorw("Этап завершился ошибкой", "stage", string(stage), "duration", dur.String(), "error", err)
	return &StageError{Stage: stage, Kind: kind, Err: err}
}
