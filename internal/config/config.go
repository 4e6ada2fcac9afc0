// Package config loads and persists partforge configuration.
// Configuration lives at <data-dir>/config.yaml; environment variables
// override file values so CI and scripts can run without a config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultQuotaBytes mirrors the ~5MB ceiling of browser local storage, the
// medium the drafting engine was designed to degrade against.
const DefaultQuotaBytes = 5 * 1024 * 1024

// Config holds all partforge configuration.
type Config struct {
	// Assistant configuration
	Assistant AssistantConfig `yaml:"assistant"`

	// Storage configuration
	Storage StorageConfig `yaml:"storage"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// AssistantConfig configures the generative assistant client.
type AssistantConfig struct {
	Provider   string `yaml:"provider"` // gemini
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	ImageModel string `yaml:"image_model"`
	BaseURL    string `yaml:"base_url"`
	Timeout    string `yaml:"timeout"`
}

// StorageConfig configures the persistence layer.
type StorageConfig struct {
	// Root directory for documents, mirror DB, and logs
	DataDir string `yaml:"data_dir"`

	// Hard capacity ceiling per document write, in bytes
	QuotaBytes int `yaml:"quota_bytes"`

	// SQLite transcript mirror (empty = <data_dir>/mirror.db)
	MirrorPath string `yaml:"mirror_path"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// Default returns the default configuration rooted at dataDir.
func Default(dataDir string) *Config {
	return &Config{
		Assistant: AssistantConfig{
			Provider:   "gemini",
			Model:      "gemini-2.5-flash",
			ImageModel: "gemini-2.5-flash-image",
			BaseURL:    "https://generativelanguage.googleapis.com/v1beta",
			Timeout:    "120s",
		},
		Storage: StorageConfig{
			DataDir:    dataDir,
			QuotaBytes: DefaultQuotaBytes,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultDataDir resolves the default data directory (~/.partforge).
func DefaultDataDir() string {
	if dir := os.Getenv("PARTFORGE_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".partforge"
	}
	return filepath.Join(home, ".partforge")
}

// Load reads <dataDir>/config.yaml, falling back to defaults if absent,
// then applies environment overrides.
func Load(dataDir string) (*Config, error) {
	cfg := Default(dataDir)

	path := filepath.Join(dataDir, "config.yaml")
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = dataDir
	}
	if cfg.Storage.QuotaBytes <= 0 {
		cfg.Storage.QuotaBytes = DefaultQuotaBytes
	}
	if cfg.Storage.MirrorPath == "" {
		cfg.Storage.MirrorPath = filepath.Join(cfg.Storage.DataDir, "mirror.db")
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration back to <dataDir>/config.yaml.
func (c *Config) Save() error {
	if c.Storage.DataDir == "" {
		return fmt.Errorf("data directory not set")
	}
	if err := os.MkdirAll(c.Storage.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(c.Storage.DataDir, "config.yaml"), data, 0644)
}

// applyEnvOverrides lets environment variables win over file values.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Assistant.APIKey = key
		if c.Assistant.Provider == "" {
			c.Assistant.Provider = "gemini"
		}
	}
	if model := os.Getenv("PARTFORGE_MODEL"); model != "" {
		c.Assistant.Model = model
	}
	if quota := os.Getenv("PARTFORGE_QUOTA_BYTES"); quota != "" {
		if n, err := strconv.Atoi(quota); err == nil && n > 0 {
			c.Storage.QuotaBytes = n
		}
	}
	if os.Getenv("PARTFORGE_DEBUG") == "1" {
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
	}
}

// AssistantTimeout parses the assistant timeout, defaulting to two minutes.
func (c *Config) AssistantTimeout() time.Duration {
	d, err := time.ParseDuration(c.Assistant.Timeout)
	if err != nil || d <= 0 {
		return 120 * time.Second
	}
	return d
}
