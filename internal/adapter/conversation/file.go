package conversation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"AEye/internal/service/assistant"
)

// FileStore хранит историю каждого ключа в отдельном JSON-файле <dir>/<key>.json.
// Формат файла: массив {"role", "content"}, как в chat_history.json.
type FileStore struct {
	dir    string
	mu     sync.Mutex
	logger *zap.SugaredLogger
}

func NewFileStore(dir string, logger *zap.SugaredLogger) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, fileName(key)+".json")
}

func (s *FileStore) Read(_ context.Context, key string) (assistant.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var h assistant.History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode history %s: %w", s.path(key), err)
	}
	return h, nil
}

// Write полностью перезаписывает файл. Запись идёт во временный файл и rename,
// чтобы при падении не остался обрезанный JSON.
func (s *FileStore) Write(_ context.Context, key string, h assistant.History) error {
	if h == nil {
		h = assistant.History{}
	}
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(key)
	tmp, err := os.CreateTemp(s.dir, ".history-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp history: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close history: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace history: %w", err)
	}
	s.logger.Debugw("История сохранена", "path", target, "turns", len(h))
	return nil
}

const maxPlainName = 64

// fileName превращает ключ сессии в имя файла без коллизий.
// Ключ из [A-Za-z0-9_-] длиной до maxPlainName используется как есть
// (глобальный ключ остаётся chat_history.json). Остальные получают читаемый
// префикс и sha256 полного ключа через точку; точка в простые имена не попадает,
// поэтому два разных ключа не делят один файл.
func fileName(key string) string {
	if key == "" {
		return "chat_history"
	}
	plain := len(key) <= maxPlainName
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
			plain = false
		}
	}
	if plain {
		return key
	}
	prefix := b.String()
	if len(prefix) > 24 {
		prefix = prefix[:24]
	}
	sum := sha256.Sum256([]byte(key))
	return prefix + "." + hex.EncodeToString(sum[:])
}
