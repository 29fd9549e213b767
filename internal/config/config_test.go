package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Backend.BaseURL != "http://127.0.0.1:3000" {
		t.Errorf("expected BaseURL=http://127.0.0.1:3000, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.RetryAttempts != 3 {
		t.Errorf("expected RetryAttempts=3, got %d", cfg.Backend.RetryAttempts)
	}
	if !cfg.Watch.AutoSync {
		t.Error("expected AutoSync enabled by default")
	}
	if got := cfg.Watch.CheckInterval(); got != 5*time.Second {
		t.Errorf("expected CheckInterval=5s, got %s", got)
	}
	if got := cfg.Watch.SubmitCheckDelays(); len(got) != 1 || got[0] != 3*time.Second {
		t.Errorf("expected SubmitCheckDelays=[3s], got %v", got)
	}
}

// A partial config file must override only the keys it names; everything else
// keeps its default value.
func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Setenv("LEETSYNC_BACKEND_URL", "")
	t.Setenv("LEETSYNC_CONTROL_URL", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := "watch:\n  auto_sync: false\n"
	if err := os.WriteFile(path, []byte(partial), 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := DefaultConfig()
	want.Watch.AutoSync = false
	if diff := cmp.Diff(want, loaded); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("LEETSYNC_BACKEND_URL", "")
	t.Setenv("LEETSYNC_CONTROL_URL", "")

	loaded, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), loaded); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("LEETSYNC_BACKEND_URL", "")
	t.Setenv("LEETSYNC_CONTROL_URL", "")

	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Backend.BaseURL = "https://sync.example.com"
	cfg.Watch.CheckIntervalMs = 10000

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Backend.BaseURL != "https://sync.example.com" {
		t.Errorf("expected BaseURL=https://sync.example.com, got %s", loaded.Backend.BaseURL)
	}
	if loaded.Watch.CheckInterval() != 10*time.Second {
		t.Errorf("expected CheckInterval=10s, got %s", loaded.Watch.CheckInterval())
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("LEETSYNC_BACKEND_URL", "https://env.example.com")
	t.Setenv("LEETSYNC_CONTROL_URL", "ws://127.0.0.1:9222/devtools")

	loaded, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Backend.BaseURL != "https://env.example.com" {
		t.Errorf("env override not applied, got %s", loaded.Backend.BaseURL)
	}
	if loaded.Browser.ControlURL != "ws://127.0.0.1:9222/devtools" {
		t.Errorf("env override not applied, got %s", loaded.Browser.ControlURL)
	}
}

func TestBackendConfig_URLs(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.Backend.SubmitURL(); got != "http://127.0.0.1:3000/api/submit" {
		t.Errorf("unexpected SubmitURL: %s", got)
	}
	cfg.Backend.BaseURL = "http://127.0.0.1:3000/"
	if got := cfg.Backend.SubmitURL(); got != "http://127.0.0.1:3000/api/submit" {
		t.Errorf("trailing slash not handled: %s", got)
	}
}
