package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.MaxChainDepth != 5 {
		t.Fatalf("MaxChainDepth = %d, want 5", cfg.MaxChainDepth)
	}
	if cfg.ChainDelay.Std() != 200*time.Millisecond {
		t.Fatalf("ChainDelay = %s, want 200ms", cfg.ChainDelay)
	}
	if cfg.MaxContextWords != 32000 {
		t.Fatalf("MaxContextWords = %d", cfg.MaxContextWords)
	}
	if cfg.Temperature != 0.7 || cfg.FastTemperature != 0.3 {
		t.Fatal("temperature tiers wrong")
	}
	if cfg.Model == "" || cfg.FastModel == "" {
		t.Fatal("model tiers must default to non-empty identifiers")
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	body := "model: custom-model\nmax_chain_depth: 2\nchain_delay: 50ms\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "custom-model" {
		t.Fatalf("Model = %q", cfg.Model)
	}
	if cfg.MaxChainDepth != 2 {
		t.Fatalf("MaxChainDepth = %d", cfg.MaxChainDepth)
	}
	if cfg.ChainDelay.Std() != 50*time.Millisecond {
		t.Fatalf("ChainDelay = %s", cfg.ChainDelay)
	}
	// Untouched keys keep defaults.
	if cfg.MaxRetries != Default().MaxRetries {
		t.Fatal("unrelated defaults must survive YAML load")
	}
}

func TestLoad_EnvWinsOverYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	if err := os.WriteFile(path, []byte("model: from-yaml\n"), 0o644); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	t.Setenv("GAMECODE_MODEL", "from-env")
	t.Setenv("GAMECODE_CHAIN_DELAY_MS", "0")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "from-env" {
		t.Fatalf("Model = %q, want env override", cfg.Model)
	}
	if cfg.ChainDelay.Std() != 0 {
		t.Fatalf("ChainDelay = %s, want 0", cfg.ChainDelay)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("explicitly named missing config must error")
	}
}
