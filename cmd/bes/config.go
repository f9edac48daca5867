package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the bes configuration file (~/.config/bes/config.yaml).
// BES_* environment variables override file values; explicit flags override both.
type Config struct {
	TextureDirs []string      `yaml:"texture_dirs" env:"BES_TEXTURE_DIRS" envSeparator:":"`
	Workers     int           `yaml:"workers" env:"BES_WORKERS"`
	MaxFileSize string        `yaml:"max_file_size" env:"BES_MAX_FILE_SIZE"`
	MaxDepth    int           `yaml:"max_depth" env:"BES_MAX_DEPTH"`
	Timeout     time.Duration `yaml:"timeout" env:"BES_TIMEOUT"`

	LogLevel  string `yaml:"log_level" env:"BES_LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"BES_LOG_FORMAT"`

	ServerAddress string `yaml:"server_address" env:"BES_SERVER_ADDRESS"`
	Catalog       string `yaml:"catalog" env:"BES_CATALOG"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "bes", "config.yaml")
}

// LoadConfig reads path (or the default location when empty) and applies
// environment overrides. A missing default file is not an error; a missing
// explicit file is.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
	}
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("config: %w", err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// parseSize accepts "64MiB", "10 MB" or plain byte counts. Empty means no limit.
func parseSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n > 1<<62 {
		return 0, fmt.Errorf("size %q is too large", s)
	}
	return int64(n), nil
}
