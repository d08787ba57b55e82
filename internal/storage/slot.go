package storage

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by a Slot when the key has never been written, and
// by the SequenceStore when no sequence has the requested ID.
var ErrNotFound = errors.New("not found")

// Slot is a durable key-value cell holding one serialized blob per key.
type Slot interface {
	// Init prepares the backing storage (directories, schema).
	Init() error
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Close() error
	// Location describes where the slot lives, for messages and backups.
	Location() string
}

// IsPostgres reports whether target is a PostgreSQL connection URL.
func IsPostgres(target string) bool {
	return strings.HasPrefix(target, "postgres://") || strings.HasPrefix(target, "postgresql://")
}

// NewSlot picks a backend from the target: a PostgreSQL URL, a ".db" SQLite
// file, or a JSON file for anything else.
func NewSlot(target string) (Slot, error) {
	switch {
	case IsPostgres(target):
		if HasEmbeddedCredentials(target) {
			return nil, ErrEmbeddedCredentials
		}
		return NewPostgresSlot(target), nil
	case strings.EqualFold(filepath.Ext(target), ".db"), strings.EqualFold(filepath.Ext(target), ".sqlite"):
		return NewSQLiteSlot(target), nil
	default:
		return NewFileSlot(target), nil
	}
}
