// Package config loads and validates nxindex configuration from a
// project-local .nxindex.yaml, a user-global config, and environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete nxindex configuration.
type Config struct {
	Version      int                  `yaml:"version" json:"version"`
	Repositories []RepositoryConfig   `yaml:"repositories" json:"repositories"`
	Index        IndexConfig          `yaml:"index" json:"index"`
	Performance  PerformanceConfig    `yaml:"performance" json:"performance"`
	Server       ServerConfig         `yaml:"server" json:"server"`
}

// RepositoryConfig identifies one local Maven repository to index.
type RepositoryConfig struct {
	ID       string `yaml:"id" json:"id"`
	Path     string `yaml:"path" json:"path"`
	IndexDir string `yaml:"index_dir" json:"index_dir"`
}

// IndexConfig configures the indexing context and packer.
type IndexConfig struct {
	// MaxIndexChunks bounds the incremental chunk chain (§4.G).
	MaxIndexChunks int `yaml:"max_index_chunks" json:"max_index_chunks"`

	// CreateChecksumFiles emits .sha1/.md5 siblings for published files.
	CreateChecksumFiles bool `yaml:"create_checksum_files" json:"create_checksum_files"`

	// CreateIncrementalChunks enables the incremental chain (§4.G); when
	// false, pack always emits a full snapshot only.
	CreateIncrementalChunks bool `yaml:"create_incremental_chunks" json:"create_incremental_chunks"`

	// ReclaimIndex allows opening a directory whose descriptor is absent
	// or mismatched (§4.C).
	ReclaimIndex bool `yaml:"reclaim_index" json:"reclaim_index"`
}

// PerformanceConfig configures scan/index concurrency and limits.
type PerformanceConfig struct {
	Workers     int   `yaml:"workers" json:"workers"`
	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"`
}

// ServerConfig is reserved for a future daemon mode; present for parity
// with the ambient stack, unused by the CLI paths this module implements.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	Port      int    `yaml:"port" json:"port"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Index: IndexConfig{
			MaxIndexChunks:          20,
			CreateChecksumFiles:     true,
			CreateIncrementalChunks: true,
			ReclaimIndex:            false,
		},
		Performance: PerformanceConfig{
			Workers:     runtime.NumCPU(),
			MaxFileSize: 512 * 1024 * 1024,
		},
		Server: ServerConfig{
			Transport: "stdio",
			Port:      8080,
			LogLevel:  "info",
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration
// file, following the XDG Base Directory specification.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "nxindex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "nxindex", "config.yaml")
	}
	return filepath.Join(home, ".config", "nxindex", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// loadUserConfig loads the user/global configuration file if present.
func loadUserConfig() (*Config, error) {
	path := GetUserConfigPath()
	if !fileExists(path) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load loads configuration for the repository rooted at dir, applying
// (in order of increasing precedence): hardcoded defaults, the user/
// global config, the project config (.nxindex.yaml), then environment
// variable overrides (NXINDEX_*).
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".nxindex.yaml")
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".nxindex.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}

	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	parsed := *c
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero fields of other onto c. The Index booleans
// are always copied from other, so an explicit false overrides true;
// callers pass a Config that starts from c or from NewConfig().
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if len(other.Repositories) > 0 {
		c.Repositories = other.Repositories
	}
	if other.Index.MaxIndexChunks != 0 {
		c.Index.MaxIndexChunks = other.Index.MaxIndexChunks
	}
	c.Index.CreateChecksumFiles = other.Index.CreateChecksumFiles
	c.Index.CreateIncrementalChunks = other.Index.CreateIncrementalChunks
	c.Index.ReclaimIndex = other.Index.ReclaimIndex
	if other.Performance.Workers != 0 {
		c.Performance.Workers = other.Performance.Workers
	}
	if other.Performance.MaxFileSize != 0 {
		c.Performance.MaxFileSize = other.Performance.MaxFileSize
	}
	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NXINDEX_MAX_INDEX_CHUNKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Index.MaxIndexChunks = n
		}
	}
	if v := os.Getenv("NXINDEX_RECLAIM_INDEX"); v != "" {
		c.Index.ReclaimIndex = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("NXINDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Performance.Workers = n
		}
	}
	if v := os.Getenv("NXINDEX_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("NXINDEX_TMPDIR"); v != "" {
		_ = os.Setenv("TMPDIR", v)
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Index.MaxIndexChunks < 0 {
		return fmt.Errorf("index.max_index_chunks must be non-negative, got %d", c.Index.MaxIndexChunks)
	}
	if c.Performance.Workers < 0 {
		return fmt.Errorf("performance.workers must be non-negative, got %d", c.Performance.Workers)
	}

	validTransports := map[string]bool{"stdio": true, "http": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio' or 'http', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	seen := make(map[string]bool, len(c.Repositories))
	for _, r := range c.Repositories {
		if r.ID == "" {
			return fmt.Errorf("repository entry missing id")
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate repository id %q", r.ID)
		}
		seen[r.ID] = true
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadUserConfig loads the user configuration file, if any.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}
