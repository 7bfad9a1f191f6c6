package assistant

import (
	"context"
	"sync"
	"time"
)

// DefaultIdleThreshold пауза, после которой диалог начинается заново.
const DefaultIdleThreshold = 100 * time.Second

// Elapsed сообщает, что с последнего обращения прошло больше threshold.
// Нулевой last означает, что обращений ещё не было.
func Elapsed(now, last time.Time, threshold time.Duration) bool {
	if last.IsZero() {
		return true
	}
	return now.Sub(last) > threshold
}

// SessionStore хранит время последнего обращения и блокировку для каждого ключа диалога.
// Запрос держит блокировку своего ключа от проверки паузы до сохранения истории.
type SessionStore struct {
	threshold time.Duration

	mu       sync.Mutex
	sessions map[string]*sessionState
}

type sessionState struct {
	lock chan struct{}
	last time.Time
}

func NewSessionStore(threshold time.Duration) *SessionStore {
	if threshold <= 0 {
		threshold = DefaultIdleThreshold
	}
	return &SessionStore{threshold: threshold, sessions: make(map[string]*sessionState)}
}

func (s *SessionStore) state(key string) *sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[key]
	if !ok {
		st = &sessionState{lock: make(chan struct{}, 1)}
		s.sessions[key] = st
	}
	return st
}

// Acquire захватывает сессию ключа. Ожидание прерывается отменой контекста.
func (s *SessionStore) Acquire(ctx context.Context, key string) (*Session, error) {
	for {
		st := s.state(key)
		select {
		case st.lock <- struct{}{}:
		case <-ctx.Done():
			return nil, context.Cause(ctx)
		}
		// Prune мог удалить состояние, пока мы ждали: тогда берём новое.
		s.mu.Lock()
		current := s.sessions[key] == st
		s.mu.Unlock()
		if current {
			return &Session{store: s, key: key, st: st}, nil
		}
		<-st.lock
	}
}

// Prune удаляет свободные сессии, простаивающие дольше порога. Возвращает число удалённых.
func (s *SessionStore) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, st := range s.sessions {
		select {
		case st.lock <- struct{}{}:
		default:
			continue // занята запросом
		}
		if Elapsed(now, st.last, s.threshold) {
			delete(s.sessions, key)
			removed++
		}
		<-st.lock
	}
	return removed
}

// Len количество отслеживаемых сессий.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Session захваченная сессия. Методы вызываются только между Acquire и Release.
type Session struct {
	store *SessionStore
	key   string
	st    *sessionState
	once  sync.Once
}

func (s *Session) Key() string { return s.key }

// ShouldReset проверяет паузу и всегда записывает now как время последнего обращения.
func (s *Session) ShouldReset(now time.Time) bool {
	reset := Elapsed(now, s.st.last, s.store.threshold)
	s.RecordInteraction(now)
	return reset
}

// RecordInteraction запоминает время обращения.
func (s *Session) RecordInteraction(now time.Time) {
	s.st.last = now
}

// Release освобождает сессию. Повторный вызов безопасен.
func (s *Session) Release() {
	s.once.Do(func() { <-s.st.lock })
}

// HistoryRepository долговременное хранилище истории по ключу.
type HistoryRepository interface {
	Read(ctx context.Context, key string) (History, error)
	Write(ctx context.Context, key string, h History) error
}

// ConversationStore история одного диалога поверх репозитория.
type ConversationStore struct {
	repo HistoryRepository
	key  string
}

func NewConversationStore(repo HistoryRepository, key string) ConversationStore {
	return ConversationStore{repo: repo, key: key}
}

// Load возвращает сохранённую историю или пустую, если её нет.
func (c ConversationStore) Load(ctx context.Context) (History, error) {
	h, err := c.repo.Read(ctx, c.key)
	if err != nil {
		return nil, err
	}
	if h == nil {
		h = History{}
	}
	return h, nil
}

// Save перезаписывает историю целиком.
func (c ConversationStore) Save(ctx context.Context, h History) error {
	return c.repo.Write(ctx, c.key, h)
}
