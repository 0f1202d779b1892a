// Package xconfig provides unified configuration loading for xforge.
// It supports loading from a YAML file and environment variable overrides.
package xconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config contains all of xforge's configuration settings.
type Config struct {
	// Logging configures operational and decision-trace logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Store configures the query-result memoization cache.
	Store StoreConfig `json:"store" yaml:"store"`

	// MCP configures the MCP server's per-tool rate limiting.
	MCP MCPConfig `json:"mcp" yaml:"mcp"`

	// RootDir is the directory script-relative paths (path-set field
	// values, the cache database) are resolved against. Defaults to the
	// current working directory.
	RootDir string `json:"root_dir,omitempty" yaml:"root_dir,omitempty"`
}

// LoggingConfig configures xforge's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" and above also enable decision tracing to .xforge/trace.jsonl.
	Level string `json:"level" yaml:"level"`
}

// StoreConfig configures the sqlite memoization cache.
type StoreConfig struct {
	// Path is the cache database location, relative to RootDir unless absolute.
	Path string `json:"path" yaml:"path"`

	// Disabled turns off memoization entirely; every query falls through
	// to a full evaluation.
	Disabled bool `json:"disabled" yaml:"disabled"`
}

// MCPConfig configures the rate limits guarding the MCP tool surface.
type MCPConfig struct {
	// QueryRatePerMinute overrides the default rate for xforge_query.
	// Zero means "use the built-in default."
	QueryRatePerMinute float64 `json:"query_rate_per_minute,omitempty" yaml:"query_rate_per_minute,omitempty"`

	// ExplainRatePerMinute overrides the default rate for xforge_explain.
	ExplainRatePerMinute float64 `json:"explain_rate_per_minute,omitempty" yaml:"explain_rate_per_minute,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Store: StoreConfig{
			Path:     filepath.Join(".xforge", "cache.db"),
			Disabled: false,
		},
		MCP: MCPConfig{},
	}
}

// Load loads configuration from the default location (<cwd>/.xforge.yaml)
// and applies environment variable overrides.
// Order: defaults -> .xforge.yaml -> environment variables.
func Load() (*Config, error) {
	cfg := Default()

	wd, err := os.Getwd()
	if err == nil {
		path := filepath.Join(wd, ".xforge.yaml")
		if _, statErr := os.Stat(path); statErr == nil {
			fileCfg, loadErr := LoadFromFile(path)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			cfg = fileCfg
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Store.Path = expandEnvVars(cfg.Store.Path)
	cfg.RootDir = expandEnvVars(cfg.RootDir)

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	if c.MCP.QueryRatePerMinute < 0 {
		return fmt.Errorf("query_rate_per_minute must be non-negative, got %f", c.MCP.QueryRatePerMinute)
	}
	if c.MCP.ExplainRatePerMinute < 0 {
		return fmt.Errorf("explain_rate_per_minute must be non-negative, got %f", c.MCP.ExplainRatePerMinute)
	}

	return nil
}

// CachePath returns the resolved, absolute path to the cache database.
func (c *Config) CachePath() string {
	if filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	root := c.RootDir
	if root == "" {
		root, _ = os.Getwd()
	}
	return filepath.Join(root, c.Store.Path)
}

// applyEnvOverrides applies XFORGE_* environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("XFORGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("XFORGE_ROOT_DIR"); v != "" {
		cfg.RootDir = v
	}

	if v := os.Getenv("XFORGE_CACHE_PATH"); v != "" {
		cfg.Store.Path = v
	}

	if v := os.Getenv("XFORGE_CACHE_DISABLED"); v != "" {
		cfg.Store.Disabled = v == "true" || v == "1"
	}

	if v := os.Getenv("XFORGE_MCP_QUERY_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MCP.QueryRatePerMinute = f
		}
	}

	if v := os.Getenv("XFORGE_MCP_EXPLAIN_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MCP.ExplainRatePerMinute = f
		}
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
