package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/models"
)

// SequenceStore owns the session's sequence collection and mirrors it to a
// Slot. The in-memory collection is authoritative: persistence failures are
// logged and never surface to callers.
//
// Every mutation builds a new slice, swaps it in, and only then writes the
// whole collection. Two sessions sharing a slot overwrite each other
// (last write wins). Within a process, reads and mutations are serialized
// by mu.
type SequenceStore struct {
	mu       sync.RWMutex
	slot     Slot
	key      string
	archive  string
	items    []models.Sequence
	archived []models.Sequence
}

// NewSequenceStore returns a store bound to the default storage keys.
func NewSequenceStore(slot Slot) *SequenceStore {
	return &SequenceStore{
		slot:    slot,
		key:     constants.SequenceStorageKey,
		archive: constants.ArchiveStorageKey,
	}
}

// Slot returns the backing slot.
func (s *SequenceStore) Slot() Slot {
	return s.slot
}

// Load reads both collections from the slot. A missing or unreadable slot
// yields an empty collection.
func (s *SequenceStore) Load() []models.Sequence {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = s.read(s.key)
	s.archived = s.read(s.archive)
	return slices.Clone(s.items)
}

func (s *SequenceStore) read(key string) []models.Sequence {
	data, err := s.slot.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Warn("Failed to read sequences, starting empty", "key", key, "error", err)
		}
		return []models.Sequence{}
	}

	var seqs []models.Sequence
	if err := json.Unmarshal(data, &seqs); err != nil {
		logger.Warn("Failed to parse stored sequences, starting empty", "key", key, "error", err)
		return []models.Sequence{}
	}
	if seqs == nil {
		seqs = []models.Sequence{}
	}
	return seqs
}

// Save replaces the collection and writes it to the slot.
func (s *SequenceStore) Save(seqs []models.Sequence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.save(seqs)
}

func (s *SequenceStore) save(seqs []models.Sequence) {
	s.items = slices.Clone(seqs)
	s.write(s.key, s.items)
}

func (s *SequenceStore) write(key string, seqs []models.Sequence) {
	if seqs == nil {
		seqs = []models.Sequence{}
	}
	data, err := json.Marshal(seqs)
	if err != nil {
		logger.Error("Failed to serialize sequences", "key", key, "error", err)
		return
	}
	if err := s.slot.Set(key, data); err != nil {
		logger.Error("Failed to save sequences", "key", key, "location", s.slot.Location(), "error", err)
	}
}

// Sequences returns a copy of the active collection.
func (s *SequenceStore) Sequences() []models.Sequence {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Archived returns the sequences removed by rollover.
func (s *SequenceStore) Archived() []models.Sequence {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.archived)
}

func (s *SequenceStore) index(id string) int {
	return slices.IndexFunc(s.items, func(seq models.Sequence) bool { return seq.ID == id })
}

// Get returns the active sequence with the given ID.
func (s *SequenceStore) Get(id string) (models.Sequence, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.index(id)
	if i < 0 {
		return models.Sequence{}, false
	}
	return s.items[i], true
}

// Add appends seq to the collection.
func (s *SequenceStore) Add(seq models.Sequence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index(seq.ID) >= 0 {
		return fmt.Errorf("sequence %s already exists", seq.ID)
	}
	s.save(append(slices.Clone(s.items), seq))
	return nil
}

// Apply replaces the sequence with fn's result and returns it.
func (s *SequenceStore) Apply(id string, fn func(models.Sequence) models.Sequence) (models.Sequence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return models.Sequence{}, fmt.Errorf("sequence %s: %w", id, ErrNotFound)
	}

	updated := fn(s.items[i])
	updated.ID = id

	next := slices.Clone(s.items)
	next[i] = updated
	s.save(next)
	return updated, nil
}

// Replace swaps in seq for the sequence with the same ID.
func (s *SequenceStore) Replace(seq models.Sequence) error {
	_, err := s.Apply(seq.ID, func(models.Sequence) models.Sequence { return seq })
	return err
}

// Delete removes the sequence permanently.
func (s *SequenceStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("sequence %s: %w", id, ErrNotFound)
	}
	s.save(slices.Delete(slices.Clone(s.items), i, i+1))
	return nil
}

// RolloverResult lists what a rollover kept and what it archived.
type RolloverResult struct {
	Kept     []models.Sequence
	Archived []models.Sequence
}

// Rollover carries every sequence into the week starting at weekStart.
// Single-cycle sequences leave the active collection and move to the archive.
func (s *SequenceStore) Rollover(weekStart time.Time) RolloverResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res RolloverResult
	for _, seq := range s.items {
		if next, ok := seq.Rollover(weekStart); ok {
			res.Kept = append(res.Kept, next)
		} else {
			res.Archived = append(res.Archived, seq)
		}
	}

	if res.Kept == nil {
		res.Kept = []models.Sequence{}
	}
	s.save(res.Kept)
	if len(res.Archived) > 0 {
		s.archived = append(slices.Clone(s.archived), res.Archived...)
		s.write(s.archive, s.archived)
		logger.Info("Archived single-cycle sequences", "count", len(res.Archived), "week", weekStart.Format(constants.DateFormat))
	}
	return res
}

// Restore moves an archived sequence back into the active collection.
func (s *SequenceStore) Restore(id string) (models.Sequence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.archived, func(seq models.Sequence) bool { return seq.ID == id })
	if i < 0 {
		return models.Sequence{}, fmt.Errorf("archived sequence %s: %w", id, ErrNotFound)
	}

	seq := s.archived[i]
	s.archived = slices.Delete(slices.Clone(s.archived), i, i+1)
	s.save(append(slices.Clone(s.items), seq))
	s.write(s.archive, s.archived)
	return seq, nil
}
