package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatch_ReloadsOnEnvChange(t *testing.T) {
	t.Setenv("DEFAULT_REQUEST_PRICE", "30")

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("DEFAULT_REQUEST_PRICE=30\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	got := make(chan *Config, 4)
	closeWatch, err := Watch(envPath, func(cfg *Config) {
		got <- cfg
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer closeWatch()

	// Keep rewriting until the watcher picks the change up; fsnotify
	// delivery is asynchronous.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case cfg := <-got:
			if cfg.DefaultRequestPrice != 77 {
				// A reload of the original content can race the rewrite.
				continue
			}
			if Current().DefaultRequestPrice != 77 {
				t.Fatalf("Current().DefaultRequestPrice = %d, want 77", Current().DefaultRequestPrice)
			}
			return
		case <-tick.C:
			if err := os.WriteFile(envPath, []byte("DEFAULT_REQUEST_PRICE=77\n"), 0644); err != nil {
				t.Fatalf("rewrite .env: %v", err)
			}
		case <-deadline:
			t.Fatal("config reload never observed")
		}
	}
}
