// Package config provides configuration loading and structs for the efsearch server.
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
	Corpus    CorpusConfig    `yaml:"corpus"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// CorpusConfig holds the record-file source settings.
type CorpusConfig struct {
	// DataDir is the directory holding the *.json record files.
	DataDir string `yaml:"data_dir"`
	// Watch enables automatic wholesale reloads when files under DataDir change.
	Watch bool `yaml:"watch"`
}

// EmbeddingConfig holds embedding provider settings. Credentials come from
// the environment (AWS credential chain or OPENAI_API_KEY), never from this file.
type EmbeddingConfig struct {
	// Provider selects the backend: "bedrock", "openai", or "mock".
	Provider string `yaml:"provider"`
	// Model is the provider-specific model identifier.
	Model string `yaml:"model"`
	// Region is the AWS region for the bedrock provider.
	Region string `yaml:"region"`
	// BaseURL overrides the API endpoint for the openai provider.
	BaseURL string `yaml:"base_url"`
	// RequestsPerSecond caps outbound provider calls; 0 means unlimited.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// MockDimensions is the vector dimension of the mock provider.
	MockDimensions int `yaml:"mock_dimensions"`
}

// SearchConfig holds query defaults and bounds.
type SearchConfig struct {
	DefaultTopK int `yaml:"default_top_k"`
	MaxTopK     int `yaml:"max_top_k"`
}

// QdrantConfig holds the managed vector-database settings used by the
// collection administration commands.
type QdrantConfig struct {
	Addr       string `yaml:"addr"`
	Collection string `yaml:"collection"`
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults. Returns an error if the file cannot be read or parsed.
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
	cfg.Corpus.DataDir = expandPath(cfg.Corpus.DataDir, filepath.Dir(path))
	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home directory.
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
