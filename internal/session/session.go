// Package session records which process currently has a store open so a
// second session can warn before both start overwriting each other.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/logger"
)

var findProcessFunc = ps.FindProcess

// Holder describes the session named in an existing lockfile.
type Holder struct {
	PID   int
	Store string
	Since time.Time
}

// Session is this process's claim on a store.
type Session struct {
	path string
	pid  int
}

// Acquire writes the lockfile in dir. If another live weekplan process holds
// the same store, its details are returned alongside the new session. Both
// sessions can still write; the last save wins.
func Acquire(dir, store string) (*Session, *Holder, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create lockfile directory: %w", err)
	}

	path := filepath.Join(dir, constants.SessionLockfileName)
	pid := os.Getpid()

	var conflict *Holder
	if holder, err := readLockfile(path); err == nil {
		if holder.PID != pid && holder.Store == store && isRunning(holder.PID) {
			conflict = &holder
			logger.Warn("Another session is using this store; changes are last-write-wins",
				"pid", holder.PID, "store", store, "since", holder.Since.Format(time.RFC3339))
		}
	}

	// The store goes last; it may itself contain "|".
	content := fmt.Sprintf("%d|%s|%s", pid, time.Now().UTC().Format(time.RFC3339), store)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return nil, conflict, fmt.Errorf("failed to write lockfile: %w", err)
	}

	return &Session{path: path, pid: pid}, conflict, nil
}

// Release removes the lockfile if this process still owns it.
func (s *Session) Release() error {
	if s == nil {
		return nil
	}
	holder, err := readLockfile(s.path)
	if err != nil || holder.PID != s.pid {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove lockfile: %w", err)
	}
	return nil
}

func readLockfile(path string) (Holder, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Holder{}, err
	}

	parts := strings.SplitN(strings.TrimRight(string(content), "\n"), "|", 3)
	if len(parts) != 3 {
		return Holder{}, errors.New("lockfile is malformed")
	}

	pid, err := strconv.Atoi(parts[0])
	if err != nil || pid <= 0 {
		return Holder{}, errors.New("invalid process ID in lockfile")
	}
	since, err := time.Parse(time.RFC3339, parts[1])
	if err != nil {
		return Holder{}, errors.New("invalid timestamp in lockfile")
	}

	return Holder{PID: pid, Store: parts[2], Since: since}, nil
}

func isRunning(pid int) bool {
	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return false
	}
	return strings.HasPrefix(process.Executable(), constants.AppName)
}
