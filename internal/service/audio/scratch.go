package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Scratch временная директория для аудиофайлов конвейера.
// Каждый файл получает уникальное имя, поэтому параллельные запросы не пересекаются.
type Scratch struct {
	dir    string
	logger *zap.SugaredLogger
}

func NewScratch(dir string, logger *zap.SugaredLogger) (*Scratch, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "aeye")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Scratch{dir: dir, logger: logger}, nil
}

func (s *Scratch) Dir() string { return s.dir }

// Create создаёт файл вида <uuid>_<name>. cleanup закрывает и удаляет его, вызывать на любом пути выхода.
func (s *Scratch) Create(name string) (*os.File, func(), error) {
	path := filepath.Join(s.dir, uuid.NewString()+"_"+filepath.Base(name))
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, func() {}, fmt.Errorf("create scratch file: %w", err)
	}
	cleanup := func() {
		_ = f.Close()
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warnw("Не удалось удалить временный файл", "path", path, "error", err)
		}
	}
	return f, cleanup, nil
}

// Sweep удаляет файлы старше ttl (остатки после аварийного завершения). Возвращает число удалённых.
// Трогает только файлы вида <uuid>_<name>, созданные Create: директория может быть общей.
func (s *Scratch) Sweep(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warnw("Не удалось прочитать временную директорию", "dir", s.dir, "error", err)
		}
		return 0
	}
	deadline := time.Now().Add(-ttl)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !isScratchName(e.Name()) {
			continue
		}
		fi, statErr := e.Info()
		if statErr != nil {
			continue
		}
		if fi.ModTime().Before(deadline) {
			full := filepath.Join(s.dir, e.Name())
			if err := os.Remove(full); err != nil {
				s.logger.Warnw("Не удалось удалить старый файл", "path", full, "error", err)
				continue
			}
			removed++
		}
	}
	return removed
}

func isScratchName(name string) bool {
	id, _, ok := strings.Cut(name, "_")
	if !ok {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
