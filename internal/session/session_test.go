package session

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/weekplan/internal/constants"
)

type mockProcess struct {
	pid        int
	executable string
}

func (m *mockProcess) Pid() int {
	return m.pid
}

func (m *mockProcess) PPid() int {
	return 0
}

func (m *mockProcess) Executable() string {
	return m.executable
}

func writeLock(t *testing.T, dir string, pid int, store string) {
	t.Helper()
	content := fmt.Sprintf("%d|%s|%s", pid, time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC).Format(time.RFC3339), store)
	if err := os.WriteFile(filepath.Join(dir, constants.SessionLockfileName), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestAcquire(t *testing.T) {
	oldFindProcessFunc := findProcessFunc
	defer func() { findProcessFunc = oldFindProcessFunc }()

	const otherPID = 999999
	store := "/home/me/.config/weekplan/sequences.json"

	tests := []struct {
		name         string
		lockPID      int
		lockStore    string
		process      ps.Process
		wantConflict bool
	}{
		{"live session on same store", otherPID, store, &mockProcess{pid: otherPID, executable: "weekplan"}, true},
		{"dead session", otherPID, store, nil, false},
		{"pid reused by another program", otherPID, store, &mockProcess{pid: otherPID, executable: "bash"}, false},
		{"different store", otherPID, "/elsewhere.json", &mockProcess{pid: otherPID, executable: "weekplan"}, false},
		{"no lockfile", 0, "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.lockPID != 0 {
				writeLock(t, dir, tt.lockPID, tt.lockStore)
			}
			findProcessFunc = func(pid int) (ps.Process, error) {
				return tt.process, nil
			}

			sess, holder, err := Acquire(dir, store)
			if err != nil {
				t.Fatalf("Acquire() error: %v", err)
			}
			if (holder != nil) != tt.wantConflict {
				t.Errorf("Acquire() conflict = %+v, want conflict %v", holder, tt.wantConflict)
			}
			if holder != nil && holder.PID != otherPID {
				t.Errorf("Expected holder PID %d, got %d", otherPID, holder.PID)
			}

			owner, err := readLockfile(filepath.Join(dir, constants.SessionLockfileName))
			if err != nil || owner.PID != os.Getpid() || owner.Store != store {
				t.Errorf("Expected lockfile to name this process, got %+v, %v", owner, err)
			}

			if err := sess.Release(); err != nil {
				t.Errorf("Release() error: %v", err)
			}
			if _, err := os.Stat(filepath.Join(dir, constants.SessionLockfileName)); !os.IsNotExist(err) {
				t.Error("Expected lockfile to be removed")
			}
		})
	}
}

func TestRelease_LeavesForeignLock(t *testing.T) {
	dir := t.TempDir()
	sess, _, err := Acquire(dir, "store.json")
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}

	// Another session took over the lockfile.
	writeLock(t, dir, 424242, "store.json")

	if err := sess.Release(); err != nil {
		t.Errorf("Release() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, constants.SessionLockfileName)); err != nil {
		t.Error("Expected foreign lockfile to be left in place")
	}
}

func TestReadLockfile_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lock")

	for _, content := range []string{"", "123", "abc|2024-06-15T09:00:00Z|store", "123|yesterday|store"} {
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := readLockfile(path); err == nil {
			t.Errorf("Expected error for %q", content)
		}
	}
}

func TestLockfileStoreWithSeparator(t *testing.T) {
	oldFindProcessFunc := findProcessFunc
	defer func() { findProcessFunc = oldFindProcessFunc }()
	findProcessFunc = func(pid int) (ps.Process, error) {
		return &mockProcess{pid: pid, executable: "weekplan"}, nil
	}

	tests := []struct {
		name  string
		store string
	}{
		{"pipe in directory", "/home/me/a|b/sequences.json"},
		{"pipe with timestamp-like tail", "/tmp/x|2024-06-15T09:00:00Z|y.json"},
		{"trailing pipe", "/tmp/store.json|"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeLock(t, dir, 424242, tt.store)

			holder, err := readLockfile(filepath.Join(dir, constants.SessionLockfileName))
			if err != nil {
				t.Fatalf("readLockfile() error: %v", err)
			}
			if holder.PID != 424242 || holder.Store != tt.store {
				t.Errorf("readLockfile() = %+v, want pid 424242 store %q", holder, tt.store)
			}

			sess, conflict, err := Acquire(dir, tt.store)
			if err != nil {
				t.Fatalf("Acquire() error: %v", err)
			}
			defer sess.Release()
			if conflict == nil || conflict.Store != tt.store {
				t.Errorf("Acquire() conflict = %+v, want the session on %q", conflict, tt.store)
			}
		})
	}
}
