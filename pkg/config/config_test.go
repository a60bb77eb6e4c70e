package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	t.Parallel()
	cfg := Default()
	if cfg.Concurrency <= 0 {
		t.Error("expected positive default concurrency")
	}
	if cfg.RequestTimeout <= 0 {
		t.Error("expected positive default request timeout")
	}
}

func TestLoadFile_MissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CacheSize != Default().CacheSize {
		t.Error("expected defaults when file is missing")
	}
}

func TestLoadFile_OverridesDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte("concurrency: 42\ncache_ttl: 5m\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Concurrency != 42 {
		t.Errorf("Concurrency = %d, want 42", cfg.Concurrency)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %v, want 5m", cfg.CacheTTL)
	}
}

func TestParseFlags_RequiresTarget(t *testing.T) {
	t.Parallel()
	_, err := ParseFlags(Default(), []string{})
	if !errors.Is(err, ErrMissingRequired) {
		t.Fatalf("expected ErrMissingRequired, got %v", err)
	}
}

func TestParseFlags_AcceptsTarget(t *testing.T) {
	t.Parallel()
	cfg, err := ParseFlags(Default(), []string{"-u", "https://example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TargetURL != "https://example.com" {
		t.Errorf("TargetURL = %q", cfg.TargetURL)
	}
}
