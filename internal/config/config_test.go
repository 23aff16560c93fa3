package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/annelo/go-toast-server/internal/config"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must be valid: %v", err)
	}
	if cfg.PickupCooldown() != 500*time.Millisecond {
		t.Fatalf("PickupCooldown = %v, want 500ms", cfg.PickupCooldown())
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	data := []byte("timeToEject: 5.0\nnumberOfToasts: 2\nrenderDistance: 3\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile error: %v", err)
	}
	if cfg.TimeToEject != 5.0 || cfg.NumberOfToasts != 2 || cfg.RenderDistance != 3 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	// Untouched fields keep defaults
	if cfg.ChunkWidth != config.Default().ChunkWidth {
		t.Fatalf("default value lost: chunkWidth = %v", cfg.ChunkWidth)
	}
}

func TestLoadFromFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("timeToEject: -1\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := config.LoadFromFile(path); err == nil {
		t.Fatalf("negative timeToEject must fail validation")
	}

	if _, err := config.LoadFromFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("missing file must return an error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero timeToEject", func(c *config.Config) { c.TimeToEject = 0 }},
		{"negative cooldown", func(c *config.Config) { c.PickupCooldownMs = -1 }},
		{"no toasts", func(c *config.Config) { c.NumberOfToasts = 0 }},
		{"zero chunk width", func(c *config.Config) { c.ChunkWidth = 0 }},
		{"zero render distance", func(c *config.Config) { c.RenderDistance = 0 }},
		{"zero max jumps", func(c *config.Config) { c.MaxJumps = 0 }},
	}
	for _, tc := range cases {
		cfg := config.Default()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}
