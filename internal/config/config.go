// Package config loads indexer settings from defaults, an optional
// per-repository TOML file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/DeusData/codebase-index/internal/discover"
)

// FileName is the per-repository config file looked up in the root.
const FileName = ".codebase-index.toml"

// Environment variables, applied after the config file.
const (
	EnvCacheDir    = "CODEBASE_INDEX_CACHE_DIR"
	EnvConcurrency = "CODEBASE_INDEX_CONCURRENCY"
	EnvLogLevel    = "CODEBASE_INDEX_LOG_LEVEL"
	EnvImpactDepth = "CODEBASE_INDEX_IMPACT_DEPTH"
	EnvMaxFileSize = "CODEBASE_INDEX_MAX_FILE_SIZE"
)

// Config holds every tunable of the indexer.
type Config struct {
	Concurrency int      `toml:"concurrency"`
	CacheDir    string   `toml:"cache_dir"`
	MaxFileSize int64    `toml:"max_file_size"`
	Ignore      []string `toml:"ignore"`
	IgnoreFile  string   `toml:"ignore_file"`
	LogLevel    string   `toml:"log_level"`
	ImpactDepth int      `toml:"impact_depth"`
}

// Default returns the built-in settings.
func Default() *Config {
	cache := filepath.Join(os.TempDir(), "codebase-index")
	if home, err := os.UserHomeDir(); err == nil {
		cache = filepath.Join(home, ".cache", "codebase-index")
	}
	return &Config{
		Concurrency: runtime.NumCPU(),
		CacheDir:    cache,
		MaxFileSize: 1 << 20,
		LogLevel:    "info",
		ImpactDepth: 3,
	}
}

// Load builds the config for a repository root. root may be empty, in which
// case only defaults and the environment apply.
func Load(root string) (*Config, error) {
	cfg := Default()
	if root != "" {
		if err := loadDotEnv(filepath.Join(root, ".env")); err != nil {
			return nil, err
		}
		if err := LoadTOML(cfg, filepath.Join(root, FileName)); err != nil {
			return nil, err
		}
		if cfg.IgnoreFile != "" && !filepath.IsAbs(cfg.IgnoreFile) {
			cfg.IgnoreFile = filepath.Join(root, cfg.IgnoreFile)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv reads a .env file without overriding variables already set.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// LoadTOML decodes path over cfg. A missing file is not an error.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		slog.Warn("config.unknown_keys", "path", path, "keys", fmt.Sprint(undecoded))
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(EnvCacheDir)); v != "" {
		cfg.CacheDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = v
	}
	for name, dst := range map[string]*int{EnvConcurrency: &cfg.Concurrency, EnvImpactDepth: &cfg.ImpactDepth} {
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxFileSize)); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxFileSize, err)
		}
		cfg.MaxFileSize = n
	}
	return nil
}

func (c *Config) validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Concurrency <= 0 {
		c.Concurrency = runtime.NumCPU()
	}
	if c.ImpactDepth <= 0 {
		c.ImpactDepth = 3
	}
	if c.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size must not be negative: %d", c.MaxFileSize)
	}
	return nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}

// Level returns the configured slog level, defaulting to info.
func (c *Config) Level() slog.Level {
	l, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// DiscoverOptions returns the scanner options implied by the config.
func (c *Config) DiscoverOptions() *discover.Options {
	return &discover.Options{
		IgnoreFile:  c.IgnoreFile,
		Ignore:      c.Ignore,
		MaxFileSize: c.MaxFileSize,
	}
}
