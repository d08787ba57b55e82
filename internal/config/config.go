// Package config loads and saves the weekplan YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/utils"
)

// CalendarConfig selects the calendar source. FeedURL takes precedence over
// ICSPath when both are set.
type CalendarConfig struct {
	ICSPath string `yaml:"ics_path" json:"ics_path"`
	FeedURL string `yaml:"feed_url,omitempty" json:"feed_url,omitempty"`
}

type Config struct {
	// WeekStartsOn is "sunday" or "monday".
	WeekStartsOn string `yaml:"week_starts_on" json:"week_starts_on"`
	// Timezone is an IANA zone name or "Local".
	Timezone string `yaml:"timezone" json:"timezone"`

	// Store is a JSON or SQLite file path, or a PostgreSQL connection string
	// without a password.
	Store string `yaml:"store" json:"store"`

	CalendarID string         `yaml:"calendar_id" json:"calendar_id"`
	MaxResults int            `yaml:"max_results" json:"max_results"`
	Calendar   CalendarConfig `yaml:"calendar" json:"calendar"`

	Listen       string `yaml:"listen" json:"listen"`
	RolloverCron string `yaml:"rollover_cron" json:"rollover_cron"`
	AutoBackup   *bool  `yaml:"auto_backup,omitempty" json:"auto_backup,omitempty"`
}

// Result is the outcome of Validate. Errors make the config unusable,
// warnings do not.
type Result struct {
	Errors   []string
	Warnings []string
}

func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// Default returns the configuration written on first run.
func Default() *Config {
	backup := true
	return &Config{
		WeekStartsOn: "sunday",
		Timezone:     "Local",
		Store:        constants.DefaultStorePath,
		CalendarID:   constants.DefaultCalendarID,
		MaxResults:   constants.DefaultMaxResults,
		Calendar:     CalendarConfig{ICSPath: constants.DefaultICSPath},
		Listen:       constants.DefaultListenAddr,
		RolloverCron: constants.DefaultRolloverCron,
		AutoBackup:   &backup,
	}
}

// Normalize fills zero values with defaults so partially written files keep working.
func (c *Config) Normalize() {
	d := Default()

	c.WeekStartsOn = strings.ToLower(strings.TrimSpace(c.WeekStartsOn))
	if c.WeekStartsOn == "" {
		c.WeekStartsOn = d.WeekStartsOn
	}
	c.Timezone = strings.TrimSpace(c.Timezone)
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if strings.TrimSpace(c.Store) == "" {
		c.Store = d.Store
	}
	if c.CalendarID == "" {
		c.CalendarID = d.CalendarID
	}
	if c.MaxResults <= 0 {
		c.MaxResults = d.MaxResults
	}
	if c.Calendar.ICSPath == "" {
		c.Calendar.ICSPath = d.Calendar.ICSPath
	}
	c.Calendar.FeedURL = strings.TrimSpace(c.Calendar.FeedURL)
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.RolloverCron == "" {
		c.RolloverCron = d.RolloverCron
	}
	if c.AutoBackup == nil {
		c.AutoBackup = d.AutoBackup
	}
}

// Validate checks every field and collects all problems instead of stopping
// at the first.
func (c *Config) Validate() Result {
	var r Result

	if _, err := utils.ParseWeekStart(c.WeekStartsOn); err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("week_starts_on: %v", err))
	}
	if !utils.ValidateTimezone(c.Timezone) {
		r.Errors = append(r.Errors, fmt.Sprintf("timezone: unknown time zone %q", c.Timezone))
	}
	if c.MaxResults < 1 || c.MaxResults > 2500 {
		r.Errors = append(r.Errors, fmt.Sprintf("max_results: %d is outside 1..2500", c.MaxResults))
	}
	if _, err := cron.ParseStandard(c.RolloverCron); err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("rollover_cron: %v", err))
	}
	if host, _, err := net.SplitHostPort(c.Listen); err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("listen: %v", err))
	} else if host != "127.0.0.1" && host != "localhost" && host != "::1" {
		r.Warnings = append(r.Warnings, fmt.Sprintf("listen: %s is reachable from other hosts and the API has no authentication", c.Listen))
	}

	if feed := c.Calendar.FeedURL; feed != "" {
		u, err := url.Parse(feed)
		switch {
		case err != nil || u.Host == "":
			r.Errors = append(r.Errors, fmt.Sprintf("calendar.feed_url: %q is not a valid URL", feed))
		case u.Scheme != "https" && u.Scheme != "http" && u.Scheme != "webcal":
			r.Errors = append(r.Errors, fmt.Sprintf("calendar.feed_url: unsupported scheme %q", u.Scheme))
		case u.Scheme == "http":
			r.Warnings = append(r.Warnings, "calendar.feed_url: plain http sends the access token unencrypted")
		}
		if strings.Contains(feed, "YOUR_") || strings.Contains(feed, "EXAMPLE") {
			r.Errors = append(r.Errors, "calendar.feed_url: appears to be a placeholder value")
		}
		if c.Calendar.ICSPath != "" && c.Calendar.ICSPath != constants.DefaultICSPath {
			r.Warnings = append(r.Warnings, "calendar: both feed_url and ics_path are set; feed_url is used")
		}
	}

	if c.CalendarID != constants.DefaultCalendarID {
		r.Warnings = append(r.Warnings, fmt.Sprintf("calendar_id: %q is ignored for file and feed calendars", c.CalendarID))
	}

	return r
}

// WeekStart returns the configured first day of the week, Sunday when invalid.
func (c *Config) WeekStart() time.Weekday {
	wd, err := utils.ParseWeekStart(c.WeekStartsOn)
	if err != nil {
		return time.Sunday
	}
	return wd
}

func (c *Config) Location() (*time.Location, error) {
	return utils.LoadLocation(c.Timezone)
}

func (c *Config) BackupsEnabled() bool {
	return c.AutoBackup == nil || *c.AutoBackup
}

// Load reads the config at path. A missing file is created with defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	path = ExpandPath(path)
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+constants.AppName+"-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// ExpandPath replaces a leading "~" with the user's home directory. Connection
// strings and URLs are returned unchanged.
func ExpandPath(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
