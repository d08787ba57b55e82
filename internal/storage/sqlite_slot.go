package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/migration"
	"github.com/julianstephens/weekplan/migrations"
)

// SQLiteSlot stores keys in the kv_slots table of a local SQLite database.
type SQLiteSlot struct {
	path string
	db   *sql.DB
}

func NewSQLiteSlot(path string) *SQLiteSlot {
	return &SQLiteSlot{path: path}
}

func (s *SQLiteSlot) Init() error {
	if s.db != nil {
		return nil
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	s.db = db

	if err := s.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *SQLiteSlot) runMigrations() error {
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return fmt.Errorf("failed to access sqlite migrations: %w", err)
	}

	runner := migration.NewRunner(s.db, subFS, migration.SQLite)
	_, err = runner.Apply(func(msg string) {
		logger.Debug(msg)
	})
	return err
}

// DB exposes the underlying handle for backups.
func (s *SQLiteSlot) DB() *sql.DB {
	return s.db
}

func (s *SQLiteSlot) Location() string {
	return s.path
}

func (s *SQLiteSlot) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

func (s *SQLiteSlot) Get(key string) ([]byte, error) {
	if s.db == nil {
		return nil, fmt.Errorf("storage not initialized")
	}

	var value string
	err := s.db.QueryRow("SELECT value FROM kv_slots WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read slot %q: %w", key, err)
	}
	return []byte(value), nil
}

func (s *SQLiteSlot) Set(key string, value []byte) error {
	if s.db == nil {
		return fmt.Errorf("storage not initialized")
	}

	_, err := s.db.Exec(`
		INSERT INTO kv_slots (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(value), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to write slot %q: %w", key, err)
	}
	return nil
}
