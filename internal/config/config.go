// Package config loads runtime configuration from a YAML file with
// environment-variable overrides (.env supported via godotenv).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level advisory.yaml configuration.
type Config struct {
	DataDir string        `yaml:"data_dir"`
	DBPath  string        `yaml:"db_path"`
	Log     LogConfig     `yaml:"log"`
	Journal JournalConfig `yaml:"journal"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// JournalConfig controls posting behavior.
type JournalConfig struct {
	// AutoProvisionAccounts lets a posting create accounts for unknown
	// numbers instead of rejecting the entry. Off by default; every
	// provisioned account is audited.
	AutoProvisionAccounts bool `yaml:"auto_provision_accounts"`
}

// Default returns a Config with sensible defaults rooted at dataDir.
func Default(dataDir string) *Config {
	return &Config{
		DataDir: dataDir,
		DBPath:  filepath.Join(dataDir, "ledger.db"),
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Load reads an advisory.yaml file, then applies environment overrides.
// A missing file yields defaults rooted next to the config path.
func Load(path string) (*Config, error) {
	// .env is optional; ignore absence.
	_ = godotenv.Load()

	cfg := Default(filepath.Dir(path))
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ADVISORY_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("ADVISORY_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("ADVISORY_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ADVISORY_LOG_PRETTY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Log.Pretty = b
		}
	}
	if v := os.Getenv("ADVISORY_AUTO_PROVISION_ACCOUNTS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Journal.AutoProvisionAccounts = b
		}
	}
}
