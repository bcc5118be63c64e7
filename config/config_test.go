package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waysync.toml")

	want := Default()
	want.MaxQueuedCommits = 3
	want.AllowImplicitFallback = false
	want.LogLevel = "debug"
	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *want {
		t.Errorf("round trip: got %+v, want %+v", got, want)
	}
}

func TestLoadFillsMissingFieldsFromDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waysync.toml")
	if err := os.WriteFile(path, []byte("MaxQueuedCommits = 2\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.MaxQueuedCommits != 2 {
		t.Errorf("MaxQueuedCommits = %d, want 2", got.MaxQueuedCommits)
	}
	def := Default()
	if got.AllowImplicitFallback != def.AllowImplicitFallback || got.LogLevel != def.LogLevel {
		t.Errorf("missing fields not defaulted: %+v", got)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waysync.toml")
	if err := os.WriteFile(path, []byte("MaxQueuedCommits = -1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "MaxQueuedCommits") {
		t.Errorf("Load with negative queue bound: err = %v, want MaxQueuedCommits error", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("Load of missing file succeeded")
	}
}

func TestValidateLogLevel(t *testing.T) {
	c := Default()
	for _, lvl := range []string{"debug", "info", "warn", "error", "WARN"} {
		c.LogLevel = lvl
		if err := c.Validate(); err != nil {
			t.Errorf("Validate with LogLevel %q: %v", lvl, err)
		}
	}
	c.LogLevel = "loud"
	if err := c.Validate(); err == nil {
		t.Error("Validate accepted LogLevel \"loud\"")
	}
}

func TestLevel(t *testing.T) {
	c := Default()
	c.LogLevel = "debug"
	if got := c.Level(); got.String() != "DEBUG" {
		t.Errorf("Level() = %v, want DEBUG", got)
	}
}
