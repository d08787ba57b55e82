package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/julianstephens/weekplan/internal/auth"
	"github.com/julianstephens/weekplan/internal/backup"
	"github.com/julianstephens/weekplan/internal/calendar"
	"github.com/julianstephens/weekplan/internal/config"
	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/datestatus"
	"github.com/julianstephens/weekplan/internal/keyring"
	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/planner"
	"github.com/julianstephens/weekplan/internal/session"
	"github.com/julianstephens/weekplan/internal/storage"
	"github.com/julianstephens/weekplan/internal/utils"
)

// KeyringTarget as a store target reads the PostgreSQL connection string
// from the OS keyring.
const KeyringTarget = "keyring"

// Context is shared by every command. The store and planner are opened by
// Load so commands that never touch them (init, auth, backup) stay cheap.
type Context struct {
	Config     *config.Config
	ConfigPath string
	// Target is the store path or PostgreSQL URL, after flag overrides.
	Target string
	Auth   auth.Provider
	Clock  datestatus.Clock
	Out    io.Writer
	In     io.Reader
	// Ctx is canceled on interrupt. Nil means context.Background.
	Ctx context.Context

	Slot    storage.Slot
	Store   *storage.SequenceStore
	Planner *planner.Service
	session *session.Session
}

// RunContext returns the context for calendar and network calls.
func (c *Context) RunContext() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

func (c *Context) stdout() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) stdin() io.Reader {
	if c.In == nil {
		return os.Stdin
	}
	return c.In
}

// Printf writes to the command output.
func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.stdout(), format, args...)
}

func (c *Context) Println(args ...any) {
	fmt.Fprintln(c.stdout(), args...)
}

// Table returns a go-pretty writer mirrored to the command output.
func (c *Context) Table() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(c.stdout())
	tw.SetStyle(table.StyleLight)
	return tw
}

// ResolveTarget expands ~ in file paths and swaps KeyringTarget for the
// stored connection string.
func ResolveTarget(target string) (string, error) {
	if target == KeyringTarget {
		connStr, err := keyring.GetConnectionString()
		if err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				return "", errors.New("no connection string found in keyring. Use 'weekplan keyring set' to store one")
			}
			return "", err
		}
		return connStr, nil
	}
	if storage.IsPostgres(target) {
		return target, nil
	}
	return config.ExpandPath(target), nil
}

// OpenSlot resolves the target and prepares its storage without loading.
func (c *Context) OpenSlot() (storage.Slot, error) {
	if c.Slot != nil {
		return c.Slot, nil
	}
	target, err := ResolveTarget(c.Target)
	if err != nil {
		return nil, err
	}
	slot, err := storage.NewSlot(target)
	if err != nil {
		if errors.Is(err, storage.ErrEmbeddedCredentials) {
			return nil, errors.New("PostgreSQL connection strings must not embed a password. " +
				"Store the full string with 'weekplan keyring set' and use --store=keyring, or use .pgpass")
		}
		return nil, err
	}
	if err := slot.Init(); err != nil {
		return nil, err
	}
	c.Slot = slot
	return slot, nil
}

// Load opens the store, registers the session and builds the planner. It is
// safe to call more than once.
func (c *Context) Load() error {
	if c.Planner != nil {
		return nil
	}
	slot, err := c.OpenSlot()
	if err != nil {
		return err
	}

	c.Store = storage.NewSequenceStore(slot)
	c.Store.Load()

	sess, holder, err := session.Acquire(filepath.Dir(config.ExpandPath(c.ConfigPath)), slot.Location())
	if err != nil {
		logger.Warn("Failed to record session", "error", err)
	}
	if holder != nil {
		fmt.Fprintf(os.Stderr, "Warning: another weekplan session (pid %d) has this store open; the last save wins.\n", holder.PID)
	}
	c.session = sess

	loc, err := c.Config.Location()
	if err != nil {
		return err
	}
	classifier := datestatus.New(c.Clock, loc)
	c.Planner = planner.New(c.Store, c.Calendar(loc), classifier, c.Config.WeekStart())
	return nil
}

// Calendar builds the configured event client: a subscribed feed when
// feed_url is set, otherwise the local ICS file.
func (c *Context) Calendar(loc *time.Location) calendar.Client {
	if c.Config.Calendar.FeedURL != "" {
		provider := c.Auth
		if provider == nil {
			provider = auth.Anonymous{}
		}
		feed := calendar.NewFeedClient(c.Config.Calendar.FeedURL, provider, loc)
		feed.SetMaxResults(c.Config.MaxResults)
		return feed
	}
	local := calendar.NewLocalClient(config.ExpandPath(c.Config.Calendar.ICSPath), loc)
	local.SetMaxResults(c.Config.MaxResults)
	return local
}

// Close releases the session and the store.
func (c *Context) Close() error {
	var errs []error
	if err := c.session.Release(); err != nil {
		errs = append(errs, err)
	}
	if c.Slot != nil {
		if err := c.Slot.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BackupManager returns a manager for the store file. PostgreSQL stores are
// not backed up.
func (c *Context) BackupManager() (*backup.Manager, error) {
	target, err := ResolveTarget(c.Target)
	if err != nil {
		return nil, err
	}
	if storage.IsPostgres(target) {
		return nil, backup.ErrUnsupported
	}
	return backup.NewManager(target), nil
}

// PerformAutomaticBackup creates a backup and only logs failures.
func (c *Context) PerformAutomaticBackup() {
	if c.Config != nil && !c.Config.BackupsEnabled() {
		return
	}
	mgr, err := c.BackupManager()
	if err != nil {
		logger.Debug("Automatic backup skipped", "error", err)
		return
	}
	if _, err := mgr.CreateBackup(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// Today is the current instant in the configured timezone.
func (c *Context) Today() time.Time {
	if c.Planner != nil {
		return c.Planner.Today()
	}
	now := time.Now()
	if c.Clock != nil {
		now = c.Clock.Now()
	}
	if loc, err := c.Config.Location(); err == nil {
		now = now.In(loc)
	}
	return now
}

// ParseDate parses YYYY-MM-DD in the configured timezone. An empty string
// means today.
func (c *Context) ParseDate(s string) (time.Time, error) {
	if s == "" {
		return c.Today(), nil
	}
	loc, err := c.Config.Location()
	if err != nil {
		return time.Time{}, err
	}
	d, err := utils.ParseDateInLocation(s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD)", s)
	}
	return d, nil
}

// Confirm asks a yes/no question on the command input. Anything but y/yes
// is a no.
func (c *Context) Confirm(prompt string) (bool, error) {
	c.Printf("%s [y/N]: ", prompt)
	response, err := bufio.NewReader(c.stdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

// ParseWeekdays parses a comma-separated list of weekdays
func ParseWeekdays(s string) ([]time.Weekday, error) {
	parts := strings.Split(s, ",")
	var weekdays []time.Weekday

	dayMap := map[string]time.Weekday{
		"sun":       time.Sunday,
		"sunday":    time.Sunday,
		"mon":       time.Monday,
		"monday":    time.Monday,
		"tue":       time.Tuesday,
		"tuesday":   time.Tuesday,
		"wed":       time.Wednesday,
		"wednesday": time.Wednesday,
		"thu":       time.Thursday,
		"thursday":  time.Thursday,
		"fri":       time.Friday,
		"friday":    time.Friday,
		"sat":       time.Saturday,
		"saturday":  time.Saturday,
	}

	for _, part := range parts {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		if wd, ok := dayMap[part]; ok {
			weekdays = append(weekdays, wd)
		} else {
			// Try parsing as number (0=Sunday, 6=Saturday)
			num, err := strconv.Atoi(part)
			if err == nil && num >= 0 && num <= 6 {
				weekdays = append(weekdays, time.Weekday(num))
			} else {
				return nil, fmt.Errorf("invalid weekday: %s", part)
			}
		}
	}

	return weekdays, nil
}

// ParsePattern accepts "full-week", "weekdays", "weekend" or "custom" in any
// case, with dashes or underscores. An empty string means full week.
func ParsePattern(s string) (models.DayPattern, error) {
	if strings.TrimSpace(s) == "" {
		return models.PatternFullWeek, nil
	}
	p := models.DayPattern(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	if !p.IsValid() {
		return "", fmt.Errorf("invalid day pattern: %s (expected full-week, weekdays, weekend or custom)", s)
	}
	return p, nil
}

// FormatWeekdays renders days as their weekday letters, e.g. "M W F".
func FormatWeekdays(days []time.Weekday) string {
	letters := make([]string, 0, len(days))
	for _, d := range days {
		letters = append(letters, constants.WeekdayLetters[d])
	}
	return strings.Join(letters, " ")
}

// ResolveSequence finds an active sequence by exact ID, then by
// case-insensitive name, then by unique ID prefix.
func (c *Context) ResolveSequence(ref string) (models.Sequence, error) {
	return resolveSequence(c.Planner.Sequences(), ref)
}

// ResolveArchived is ResolveSequence over the archive.
func (c *Context) ResolveArchived(ref string) (models.Sequence, error) {
	return resolveSequence(c.Planner.Archived(), ref)
}

func resolveSequence(seqs []models.Sequence, ref string) (models.Sequence, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return models.Sequence{}, errors.New("sequence ID or name is required")
	}
	for _, seq := range seqs {
		if seq.ID == ref {
			return seq, nil
		}
	}
	for _, seq := range seqs {
		if strings.EqualFold(seq.Name, ref) {
			return seq, nil
		}
	}

	var matches []models.Sequence
	for _, seq := range seqs {
		if strings.HasPrefix(seq.ID, ref) {
			matches = append(matches, seq)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return models.Sequence{}, fmt.Errorf("sequence %q: %w", ref, storage.ErrNotFound)
	default:
		return models.Sequence{}, fmt.Errorf("sequence %q is ambiguous (%d matches)", ref, len(matches))
	}
}
