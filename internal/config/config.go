package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const Version = "0.1.0"

// Config holds everything the wise CLI needs at runtime. Values come from
// the TOML config file, then environment variables on top.
type Config struct {
	ProjectID     string `toml:"project_id"`
	Location      string `toml:"location"`
	DBPath        string `toml:"db_path"`
	ClientSecrets string `toml:"client_secrets"`
	ArtifactsDir  string `toml:"artifacts_dir"`
	SampleRows    int    `toml:"sample_rows"`
	LogLevel      string `toml:"log_level"`

	// Resolved at runtime (not in TOML).
	BaseDir string `toml:"-"`
}

// Load reads a TOML config file, applies defaults and env overrides, and
// validates the result. Relative paths are resolved against the config
// file's directory.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.BaseDir = filepath.Dir(path)
	applyDefaults(cfg)
	applyEnv(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	resolvePaths(cfg)
	return cfg, nil
}

// Default returns a config built entirely from defaults and environment
// variables, for running without any config file on disk.
func Default() *Config {
	cfg := &Config{BaseDir: "."}
	applyDefaults(cfg)
	applyEnv(cfg)
	resolvePaths(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Location == "" {
		cfg.Location = "US"
	}
	if cfg.DBPath == "" {
		if d, err := DataDir(); err == nil {
			cfg.DBPath = filepath.Join(d, "wise.db")
		} else {
			cfg.DBPath = "wise.db"
		}
	}
	if cfg.ArtifactsDir == "" {
		if d, err := DataDir(); err == nil {
			cfg.ArtifactsDir = filepath.Join(d, "artifacts")
		} else {
			cfg.ArtifactsDir = "artifacts"
		}
	}
	if cfg.SampleRows == 0 {
		cfg.SampleRows = 3
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// applyEnv merges environment variables over file values. Env always wins.
func applyEnv(cfg *Config) {
	if v := os.Getenv("WISE_PROJECT_ID"); v != "" {
		cfg.ProjectID = v
	}
	if v := os.Getenv("WISE_LOCATION"); v != "" {
		cfg.Location = v
	}
	if v := os.Getenv("WISE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("WISE_GOOGLE_CLIENT_SECRETS"); v != "" {
		cfg.ClientSecrets = v
	}
	if v := os.Getenv("WISE_ARTIFACTS_DIR"); v != "" {
		cfg.ArtifactsDir = v
	}
}

func validate(cfg *Config) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log_level: %q", cfg.LogLevel)
	}
	if cfg.SampleRows < 0 {
		return fmt.Errorf("sample_rows must not be negative, got %d", cfg.SampleRows)
	}
	return nil
}

func resolvePaths(cfg *Config) {
	cfg.DBPath = absPath(cfg.BaseDir, cfg.DBPath)
	cfg.ArtifactsDir = absPath(cfg.BaseDir, cfg.ArtifactsDir)
	if cfg.ClientSecrets != "" {
		cfg.ClientSecrets = absPath(cfg.BaseDir, cfg.ClientSecrets)
	}
}

func absPath(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// RequireProject fails when no project is configured. Commands that talk to
// the warehouse call this up front so the error names the fix.
func (cfg *Config) RequireProject() error {
	if cfg.ProjectID == "" {
		return fmt.Errorf("no project configured: set project_id in config or WISE_PROJECT_ID")
	}
	return nil
}

func (cfg *Config) SlogLevel() slog.Level {
	switch cfg.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
