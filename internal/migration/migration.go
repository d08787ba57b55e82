// Package migration applies the numbered SQL files that define the slot
// schema for SQLite and PostgreSQL stores.
package migration

import (
	"cmp"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Dialect selects the bind-parameter syntax of the target database.
type Dialect int

const (
	// SQLite uses "?" placeholders.
	SQLite Dialect = iota
	// Postgres uses "$1" placeholders.
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// Placeholder returns the bind marker for the n-th (1-based) parameter.
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Migration is one NNN_name.sql file.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Runner records every applied migration as a row in schema_migrations.
type Runner struct {
	db      *sql.DB
	fsys    fs.FS
	dialect Dialect
}

func NewRunner(db *sql.DB, fsys fs.FS, dialect Dialect) *Runner {
	return &Runner{db: db, fsys: fsys, dialect: dialect}
}

const ledgerDDL = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	name       TEXT NOT NULL,
	applied_at TEXT NOT NULL
)`

func (r *Runner) ensureLedger() error {
	if _, err := r.db.Exec(ledgerDDL); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}
	return nil
}

func (r *Runner) recordSQL() string {
	return fmt.Sprintf("INSERT INTO schema_migrations (version, name, applied_at) VALUES (%s, %s, %s)",
		r.dialect.Placeholder(1), r.dialect.Placeholder(2), r.dialect.Placeholder(3))
}

// Version is the highest applied migration, or 0 for a fresh database.
func (r *Runner) Version() (int, error) {
	if err := r.ensureLedger(); err != nil {
		return 0, err
	}
	var v sql.NullInt64
	if err := r.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(v.Int64), nil
}

// MarkApplied records version without running any SQL.
func (r *Runner) MarkApplied(version int, name string) error {
	if err := r.ensureLedger(); err != nil {
		return err
	}
	if _, err := r.db.Exec(r.recordSQL(), version, name, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", version, err)
	}
	return nil
}

func parseName(file string) (int, string, error) {
	num, name, ok := strings.Cut(strings.TrimSuffix(file, ".sql"), "_")
	if !ok || name == "" {
		return 0, "", fmt.Errorf("migration %s: expected NNN_name.sql", file)
	}
	v, err := strconv.Atoi(num)
	if err != nil || v < 1 {
		return 0, "", fmt.Errorf("migration %s: version must be a positive number", file)
	}
	return v, name, nil
}

// Migrations reads the .sql files at the root of the runner's FS in
// version order. Duplicate versions are an error.
func (r *Runner) Migrations() ([]Migration, error) {
	entries, err := fs.ReadDir(r.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	var out []Migration
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		v, name, err := parseName(e.Name())
		if err != nil {
			return nil, err
		}
		body, err := fs.ReadFile(r.fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		out = append(out, Migration{Version: v, Name: name, SQL: string(body)})
	}

	slices.SortFunc(out, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	for i := 1; i < len(out); i++ {
		if out[i].Version == out[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %d", out[i].Version)
		}
	}
	return out, nil
}

func tooNew(current, latest int) error {
	return fmt.Errorf("store schema version %d is newer than this build supports (%d); upgrade weekplan", current, latest)
}

// Apply runs every migration newer than the current version, each in its
// own transaction, and returns how many ran. logf may be nil.
func (r *Runner) Apply(logf func(string)) (int, error) {
	if logf == nil {
		logf = func(string) {}
	}
	current, err := r.Version()
	if err != nil {
		return 0, err
	}
	all, err := r.Migrations()
	if err != nil {
		return 0, err
	}
	if len(all) == 0 {
		return 0, nil
	}
	if latest := all[len(all)-1].Version; current > latest {
		return 0, tooNew(current, latest)
	}

	i, _ := slices.BinarySearchFunc(all, current+1, func(m Migration, v int) int { return cmp.Compare(m.Version, v) })
	pending := all[i:]
	if len(pending) == 0 {
		logf(fmt.Sprintf("%s schema at version %d", r.dialect, current))
		return 0, nil
	}

	logf(fmt.Sprintf("Migrating %s schema from version %d (%d pending)", r.dialect, current, len(pending)))
	for n, m := range pending {
		if err := r.run(m); err != nil {
			return n, err
		}
		logf(fmt.Sprintf("Applied %03d_%s", m.Version, m.Name))
	}
	return len(pending), nil
}

func (r *Runner) run(m Migration) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("migration %d: %w", m.Version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(m.SQL); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
	}
	if _, err := tx.Exec(r.recordSQL(), m.Version, m.Name, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("migration %d: failed to record: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %d: commit: %w", m.Version, err)
	}
	return nil
}
