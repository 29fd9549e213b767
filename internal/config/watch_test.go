package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestWatchFile_ReloadsOnWrite(t *testing.T) {
	t.Setenv("LEETSYNC_BACKEND_URL", "")
	t.Setenv("LEETSYNC_CONTROL_URL", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan *Config, 1)
	done := make(chan error, 1)
	go func() {
		done <- WatchFile(ctx, path, zap.NewNop(), func(cfg *Config) {
			select {
			case updates <- cfg:
			default:
			}
		})
	}()

	// Give the watcher time to attach before the first write.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("watch:\n  auto_sync: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-updates:
		if cfg.Watch.AutoSync {
			t.Error("expected reloaded config with auto_sync=false")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("WatchFile returned error: %v", err)
	}
}
