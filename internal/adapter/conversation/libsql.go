package conversation

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "github.com/tursodatabase/go-libsql"
	"go.uber.org/zap"

	"AEye/internal/service/assistant"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLStore история в локальной базе libSQL, одна строка на ключ сессии.
type SQLStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// OpenSQL открывает (или создаёт) базу по пути и применяет миграции.
func OpenSQL(ctx context.Context, path string, logger *zap.SugaredLogger) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("libsql", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	if err := migrate(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLStore{db: db, logger: logger}, nil
}

func migrate(ctx context.Context, db *sql.DB, logger *zap.SugaredLogger) error {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectTurso, db, sub)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		logger.Infow("Миграция применена", "version", r.Source.Version, "duration", r.Duration.String())
	}
	return nil
}

func (s *SQLStore) Read(ctx context.Context, key string) (assistant.History, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT turns FROM conversations WHERE session_key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	var h assistant.History
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return h, nil
}

func (s *SQLStore) Write(ctx context.Context, key string, h assistant.History) error {
	if h == nil {
		h = assistant.History{}
	}
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (session_key, turns, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(session_key) DO UPDATE SET turns = excluded.turns, updated_at = excluded.updated_at`,
		key, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert history: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error { return s.db.Close() }
