package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Log level: debug, info, warn, error
	LogLevel string `yaml:"log_level,omitempty"`

	// Chunk size for checksum and write loops, in MiB
	ChunkSizeMiB int `yaml:"chunk_size_mib,omitempty"`

	// Inventory JSON store location
	InventoryPath string `yaml:"inventory_path,omitempty"`

	// Flash history database location
	JournalPath string `yaml:"journal_path,omitempty"`

	// Timeout for platform volume-utility subprocess calls, in seconds
	CommandTimeoutSecs int `yaml:"command_timeout_secs,omitempty"`

	// Simulate writes against an in-memory device instead of raw hardware
	Simulate bool `yaml:"simulate,omitempty"`
}

// defaultConfig provides baseline settings
var defaultConfig = Config{
	LogLevel:           "info",
	ChunkSizeMiB:       1,
	CommandTimeoutSecs: 30,
}

func Load(path string) (*Config, error) {
	if path == "" {
		// Try default locations
		candidates := []string{
			"/etc/diskflash/config.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/diskflash/config.yaml"),
			"config.yaml",
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	var cfg Config
	if path == "" {
		// No config file found - use defaults
		cfg = defaultConfig
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			cfg = defaultConfig
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, err
			}
		}
	}

	// Apply defaults for missing values
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultConfig.LogLevel
	}
	if cfg.ChunkSizeMiB <= 0 {
		cfg.ChunkSizeMiB = defaultConfig.ChunkSizeMiB
	}
	if cfg.CommandTimeoutSecs <= 0 {
		cfg.CommandTimeoutSecs = defaultConfig.CommandTimeoutSecs
	}
	if cfg.InventoryPath == "" {
		cfg.InventoryPath = defaultStatePath("inventory.json")
	}
	if cfg.JournalPath == "" {
		cfg.JournalPath = defaultStatePath("journal.db")
	}

	return &cfg, nil
}

// ChunkSize returns the configured chunk size in bytes.
func (c *Config) ChunkSize() int64 {
	return int64(c.ChunkSizeMiB) * 1024 * 1024
}

// CommandTimeout returns the configured subprocess timeout.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutSecs) * time.Second
}

func defaultStatePath(name string) string {
	p, err := xdg.StateFile(filepath.Join("diskflash", name))
	if err != nil {
		return filepath.Join(os.Getenv("HOME"), ".diskflash", name)
	}
	return p
}
