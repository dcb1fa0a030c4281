package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Chunking.TargetSize != 512 {
		t.Errorf("default target size should be 512, got %d", cfg.Chunking.TargetSize)
	}
	if cfg.Chunking.Overlap != 128 {
		t.Errorf("default overlap should be 128, got %d", cfg.Chunking.Overlap)
	}
	if cfg.Reduce.ClusterDim != 15 {
		t.Errorf("default cluster dim should be 15, got %d", cfg.Reduce.ClusterDim)
	}
	if cfg.Cluster.MinSamples != cfg.Cluster.MinClusterSize {
		t.Errorf("min samples should default to min cluster size")
	}
	if cfg.Ask.ContextBudget != 4000 {
		t.Errorf("default context budget should be 4000, got %d", cfg.Ask.ContextBudget)
	}
}

func TestApplyDefaultsKeepsExplicit(t *testing.T) {
	cfg := &Config{}
	cfg.Cluster.MinClusterSize = 10
	ApplyDefaults(cfg)
	if cfg.Cluster.MinClusterSize != 10 {
		t.Errorf("explicit min cluster size should be kept, got %d", cfg.Cluster.MinClusterSize)
	}
	if cfg.Cluster.MinSamples != 10 {
		t.Errorf("min samples should follow explicit min cluster size, got %d", cfg.Cluster.MinSamples)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("debug: true\nchunking:\n  target_size: 256\nstorage:\n  database_path: ./data/sets.db\n")
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !cfg.Debug {
		t.Error("debug should be true")
	}
	if cfg.Chunking.TargetSize != 256 {
		t.Errorf("target size should be 256, got %d", cfg.Chunking.TargetSize)
	}
	if cfg.Chunking.Overlap != 128 {
		t.Errorf("defaults should still apply, got overlap %d", cfg.Chunking.Overlap)
	}
	want := filepath.Join(dir, "data/sets.db")
	if cfg.Storage.DatabasePath != want {
		t.Errorf("database path should expand relative to config dir: got %s want %s", cfg.Storage.DatabasePath, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("missing file should return error")
	}
}
