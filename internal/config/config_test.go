package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadOrCreateWritesDefaults: a missing file is created with the
// defaults, and loading it back reproduces them.
func TestLoadOrCreateWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)

	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if cfg.Store != StoreSQLite {
		t.Errorf("default store: want %q, got %q", StoreSQLite, cfg.Store)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	again, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again != cfg {
		t.Errorf("reload mismatch: %+v != %+v", again, cfg)
	}
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("store = \"oracle\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOrCreate(path); err == nil {
		t.Fatal("want error for unknown store backend")
	}
}

func TestLoadRejectsTokenAuthOnSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	data := "store = \"sqlite\"\n\n[auth]\nmode = \"token\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOrCreate(path); err == nil {
		t.Fatal("want error for token auth without postgres")
	}
}
