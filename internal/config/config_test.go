package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Model != "gemma2:2b" {
		t.Errorf("expected default model, got %s", cfg.Model)
	}
	if cfg.ShortTermCap != 20 {
		t.Errorf("expected default short_term_cap 20, got %d", cfg.ShortTermCap)
	}
	if cfg.LoopInterval.Std() != 5*time.Second {
		t.Errorf("expected default loop_interval 5s, got %v", cfg.LoopInterval.Std())
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"model":"phi3:mini","loop_interval":2,"agent_count":2,"model_pool":["phi3:mini"]}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Model != "phi3:mini" {
		t.Errorf("expected phi3:mini, got %s", cfg.Model)
	}
	if cfg.LoopInterval.Std() != 2*time.Second {
		t.Errorf("expected 2s loop interval, got %v", cfg.LoopInterval.Std())
	}
	// Untouched keys keep their defaults.
	if cfg.MaxExchanges != 20 {
		t.Errorf("expected default max_exchanges, got %d", cfg.MaxExchanges)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"modle":"typo"}`), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unrecognized key")
	}
}

func TestLoadRejectsBadDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"storage_driver":"etcd"}`), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown storage driver")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("REVERIE_MODEL", "qwen2.5:1.5b")
	t.Setenv("REVERIE_AGENT_COUNT", "5")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Model != "qwen2.5:1.5b" {
		t.Errorf("expected env model, got %s", cfg.Model)
	}
	if cfg.AgentCount != 5 {
		t.Errorf("expected agent_count 5, got %d", cfg.AgentCount)
	}
}
