package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileSlot keeps every key in a single JSON object on disk. Values are
// stored compacted, so Get returns the bytes given to Set whenever they
// carry no insignificant whitespace.
type FileSlot struct {
	path string
}

func NewFileSlot(path string) *FileSlot {
	return &FileSlot{path: path}
}

func (s *FileSlot) Init() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

func (s *FileSlot) Location() string {
	return s.path
}

func (s *FileSlot) Close() error {
	return nil
}

func (s *FileSlot) readAll() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("failed to read storage: %w", err)
	}

	slots := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, fmt.Errorf("failed to parse storage: %w", err)
	}
	return slots, nil
}

func (s *FileSlot) Get(key string) ([]byte, error) {
	slots, err := s.readAll()
	if err != nil {
		return nil, err
	}
	value, ok := slots[key]
	if !ok {
		return nil, ErrNotFound
	}
	// Hand-edited files may be indented.
	var buf bytes.Buffer
	if err := json.Compact(&buf, value); err != nil {
		return nil, fmt.Errorf("failed to parse storage: %w", err)
	}
	return buf.Bytes(), nil
}

// Set rewrites the whole document via a temporary sibling and a rename.
func (s *FileSlot) Set(key string, value []byte) error {
	var compact bytes.Buffer
	if err := json.Compact(&compact, value); err != nil {
		return fmt.Errorf("refusing to store invalid JSON under %q: %w", key, err)
	}

	slots, err := s.readAll()
	if err != nil {
		// Corrupt documents are overwritten.
		slots = map[string]json.RawMessage{}
	}
	slots[key] = json.RawMessage(compact.Bytes())

	data, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("failed to serialize storage: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write storage: %w", err)
	}
	return nil
}
