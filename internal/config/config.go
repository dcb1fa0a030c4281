// Package config provides configuration loading and structs for the Chizu engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Reduce    ReduceConfig    `yaml:"reduce"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Ask       AskConfig       `yaml:"ask"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the blob store location for dataset export/import.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ChunkingConfig holds passage splitting settings (in characters).
type ChunkingConfig struct {
	TargetSize int `yaml:"target_size"`
	Overlap    int `yaml:"overlap"`
	MinSize    int `yaml:"min_size"`
	BatchSize  int `yaml:"batch_size"`
}

// EmbeddingConfig holds embedding wrapper settings.
type EmbeddingConfig struct {
	Dimensions int `yaml:"dimensions"`
	// MaxTokens is the whitespace-token budget applied to summary-tier texts
	// before encoding.
	MaxTokens int `yaml:"max_tokens"`
	CacheSize int `yaml:"cache_size"`
	BatchSize int `yaml:"batch_size"`
}

// ReduceConfig holds dimensionality reduction settings.
type ReduceConfig struct {
	ClusterDim int     `yaml:"cluster_dim"`
	Neighbors  int     `yaml:"neighbors"`
	Iterations int     `yaml:"iterations"`
	MinDist2D  float64 `yaml:"min_dist_2d"`
	// ExactThreshold is the point count above which the approximate neighbor
	// graph replaces exact all-pairs search.
	ExactThreshold int `yaml:"exact_threshold"`
}

// ClusterConfig holds density clustering settings.
type ClusterConfig struct {
	MinClusterSize int `yaml:"min_cluster_size"`
	MinSamples     int `yaml:"min_samples"`
}

// AskConfig holds question-answering settings.
type AskConfig struct {
	NumResults     int     `yaml:"num_results"`
	TopKCandidates int     `yaml:"top_k_candidates"`
	ContextBudget  int     `yaml:"context_budget"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative
// to configDir; other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
