package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all modfort configuration.
type Config struct {
	Paths    PathsConfig    `mapstructure:"paths"`
	Store    StoreConfig    `mapstructure:"store"`
	Host     HostConfig     `mapstructure:"host"`
	Resolver ResolverConfig `mapstructure:"resolver"`
}

// PathsConfig holds the filesystem layout.
type PathsConfig struct {
	// GameDir is the game installation root. May be empty when ModsDir
	// and StateDir are set explicitly.
	GameDir string `mapstructure:"game_dir"`

	// ModsDir is where mods are installed. Defaults to <game_dir>/mods.
	ModsDir string `mapstructure:"mods_dir"`

	// StateDir holds the record store and load-order artifact.
	// Defaults to <mods_dir>/.modfort.
	StateDir string `mapstructure:"state_dir"`

	// WorkDir is the scratch root for install transactions. Empty means
	// the OS temp directory.
	WorkDir string `mapstructure:"work_dir"`
}

// StoreConfig selects the record-store backend.
type StoreConfig struct {
	// Backend is "file" (one JSON document per mod) or "sqlite".
	Backend string `mapstructure:"backend"`
}

// HostConfig describes the host game process and framework.
type HostConfig struct {
	// ProcessName is matched against running processes before any
	// mutation. Empty disables the probe.
	ProcessName string `mapstructure:"process_name"`

	// LoaderPath and VersionPath locate the mod-loader framework for the
	// min-framework-version gate. Empty means no framework checks.
	LoaderPath  string `mapstructure:"loader_path"`
	VersionPath string `mapstructure:"version_path"`
}

// ResolverConfig tunes dependency resolution.
type ResolverConfig struct {
	// DuplicatePriority orders the duplicate-record tiebreak rules.
	// Valid names: enabled, metadata, version, installed.
	DuplicatePriority []string `mapstructure:"duplicate_priority"`
}

// ModsDir returns the effective mods directory.
func (c *Config) ModsDir() string {
	if c.Paths.ModsDir != "" {
		return c.Paths.ModsDir
	}
	if c.Paths.GameDir != "" {
		return filepath.Join(c.Paths.GameDir, "mods")
	}
	return "mods"
}

// StateDir returns the effective state directory.
func (c *Config) StateDir() string {
	if c.Paths.StateDir != "" {
		return c.Paths.StateDir
	}
	return filepath.Join(c.ModsDir(), ".modfort")
}

// LoadOrderPath returns where the load-order artifact is written.
func (c *Config) LoadOrderPath() string {
	return filepath.Join(c.StateDir(), "loadorder.txt")
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment. A missing
// config file falls back to defaults; a malformed one is an error.
// Environment variables use the MODFORT_ prefix with underscores, e.g.
// MODFORT_PATHS_MODS_DIR.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("paths.game_dir", "")
	v.SetDefault("paths.mods_dir", "")
	v.SetDefault("paths.state_dir", "")
	v.SetDefault("paths.work_dir", "")
	v.SetDefault("store.backend", "file")
	v.SetDefault("host.process_name", "")
	v.SetDefault("host.loader_path", "")
	v.SetDefault("host.version_path", "")
	v.SetDefault("resolver.duplicate_priority", []string{"enabled", "metadata", "version", "installed"})

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "modfort"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("MODFORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigParseError); ok {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		if configPath != "" {
			if _, statErr := os.Stat(configPath); statErr != nil {
				return nil, fmt.Errorf("config file %s: %w", configPath, statErr)
			}
		}
		// File not found is fine, defaults apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	switch cfg.Store.Backend {
	case "file", "sqlite":
	default:
		return nil, fmt.Errorf("unknown store backend %q (want file or sqlite)", cfg.Store.Backend)
	}
	return &cfg, nil
}
