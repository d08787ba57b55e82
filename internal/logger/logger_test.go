package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestInit(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "config")

	if err := Init(Config{Debug: false, ConfigDir: configDir}); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	logDir := filepath.Join(configDir, "logs")
	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		t.Errorf("Log directory was not created: %s", logDir)
	}

	if Logger == nil {
		t.Fatal("Logger is nil after initialization")
	}

	Debug("Test debug message")
	Info("Test info message")
	Warn("Test warning message", "key", "value")
	Error("Test error message")
}

func TestInitDebugMode(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "config")

	if err := Init(Config{Debug: true, ConfigDir: configDir}); err != nil {
		t.Fatalf("Failed to initialize logger in debug mode: %v", err)
	}
	if Logger == nil {
		t.Fatal("Logger is nil after initialization")
	}
	Debug("debug message in debug mode")
}

func TestHelpersWithoutInit(t *testing.T) {
	saved := Logger
	Logger = nil
	defer func() { Logger = saved }()

	// Must not panic when the logger has not been initialized.
	Debug("noop")
	Info("noop")
	Warn("noop")
	Error("noop")
}

func TestComponent(t *testing.T) {
	saved := Logger
	defer func() { Logger = saved }()

	Logger = nil
	Component("http").Info("dropped")

	var buf bytes.Buffer
	Logger = log.New(&buf)
	Component("http").Info("hello", "n", 1)

	out := buf.String()
	if !strings.Contains(out, "hello") || !strings.Contains(out, "weekplan/http") {
		t.Errorf("unexpected component output %q", out)
	}
}

func TestPath(t *testing.T) {
	got := Path("/tmp/cfg")
	if got != filepath.Join("/tmp/cfg", "logs", "weekplan.log") {
		t.Errorf("Path() = %q", got)
	}
}
