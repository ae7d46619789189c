// Package config manages exprdb configuration: where the database lives,
// how datasets are laid out on disk, and how loads and logs behave.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kilupskalvis/exprdb/internal/mtx"
	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultFile is the config file looked up in the working directory
	DefaultFile      = "exprdb.toml"
	DefaultDBPath    = "resources/exprdb.db"
	DefaultBatchSize = 1024

	EnvDBPath    = "EXPRDB_DB_PATH"
	EnvLogLevel  = "EXPRDB_LOG_LEVEL"
	EnvLogFormat = "EXPRDB_LOG_FORMAT"
	EnvConfig    = "EXPRDB_CONFIG"
)

// Config represents the exprdb configuration
type Config struct {
	DBPath          string `toml:"db_path"`
	BatchSize       int    `toml:"batch_size"`
	GuardDuplicates bool   `toml:"guard_duplicates"`
	Orientation     string `toml:"orientation"`    // genes-by-cells or cells-by-genes
	ClusterFile     string `toml:"cluster_file"`   // name inside each dataset directory
	ClusterFormat   string `toml:"cluster_format"` // cell-first or cell-last
	MetricsFile     string `toml:"metrics_file,omitempty"`
	LogLevel        string `toml:"log_level"`
	LogFormat       string `toml:"log_format"`
	path            string // file this config was loaded from
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		DBPath:        DefaultDBPath,
		BatchSize:     DefaultBatchSize,
		Orientation:   mtx.GenesByCells.String(),
		ClusterFile:   mtx.DefaultClusterFile,
		ClusterFormat: mtx.CellFirst.String(),
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// Load reads the config at path. An empty path means $EXPRDB_CONFIG, then
// DefaultFile. A missing file yields the defaults. Environment variables
// override file values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		path = DefaultFile
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	cfg.path = path

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.LogFormat = v
	}
}

// Validate checks enumerated fields and fills empty ones with defaults
func (c *Config) Validate() error {
	def := Default()
	if c.DBPath == "" {
		c.DBPath = def.DBPath
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.ClusterFile == "" {
		c.ClusterFile = def.ClusterFile
	}
	if _, err := mtx.ParseOrientation(c.Orientation); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := mtx.ParseClusterFormat(c.ClusterFormat); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid config: unknown log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid config: unknown log format %q", c.LogFormat)
	}
	return nil
}

// Save writes the configuration to the file it was loaded from, or DefaultFile
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		path = DefaultFile
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Path returns the config file path
func (c *Config) Path() string {
	return c.path
}

// SetPath changes where Save writes
func (c *Config) SetPath(path string) {
	c.path = path
}

// Layout returns the dataset layout for the configured orientation
func (c *Config) Layout() mtx.Layout {
	layout := mtx.DefaultLayout()
	layout.Orientation, _ = mtx.ParseOrientation(c.Orientation)
	return layout
}

// Clusters returns the cluster file name and column order
func (c *Config) Clusters() (string, mtx.ClusterFormat) {
	format, _ := mtx.ParseClusterFormat(c.ClusterFormat)
	return c.ClusterFile, format
}
