package scheduler

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"AEye/internal/service/assistant"
	"AEye/internal/service/audio"
)

// Scheduler фоновая уборка по cron: временные аудиофайлы старше TTL
// и простаивающие сессии.
type Scheduler struct {
	cron     *cron.Cron
	scratch  *audio.Scratch
	sessions *assistant.SessionStore
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.SugaredLogger

	mu      sync.Mutex
	started bool
}

// New регистрирует задачу по расписанию spec (@every 10m, */5 * * * * и т.п.).
// Пустое расписание отключает уборку: Start и Stop ничего не делают.
func New(spec string, ttl time.Duration, scratch *audio.Scratch, sessions *assistant.SessionStore, logger *zap.SugaredLogger) (*Scheduler, error) {
	cl := cronLogger{logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		scratch:  scratch,
		sessions: sessions,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
	if spec = strings.TrimSpace(spec); spec == "" {
		return s, nil
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce() }); err != nil {
		return nil, fmt.Errorf("scheduler: расписание %q: %w", spec, err)
	}
	return s, nil
}

// Start запускает планировщик в фоне.
func (s *Scheduler) Start() {
	if len(s.cron.Entries()) == 0 {
		s.logger.Infow("Уборщик выключен")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.logger.Infow("Уборщик запущен", "ttl", s.ttl.String(), "next", s.cron.Entries()[0].Next.Format(time.RFC3339))
}

// Stop останавливает планировщик и ждёт завершения текущей уборки.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	<-s.cron.Stop().Done()
	s.started = false
	s.logger.Infow("Уборщик остановлен")
}

// RunOnce выполняет одну уборку. Возвращает число удалённых файлов и сессий.
func (s *Scheduler) RunOnce() (files, sessions int) {
	if s.scratch != nil {
		files = s.scratch.Sweep(s.ttl)
	}
	if s.sessions != nil {
		sessions = s.sessions.Prune(s.now())
	}
	if files > 0 || sessions > 0 {
		s.logger.Infow("Уборка выполнена", "files", files, "sessions", sessions)
	}
	return files, sessions
}

// cronLogger пишет события cron в zap.
type cronLogger struct{ l *zap.SugaredLogger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debugw("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
