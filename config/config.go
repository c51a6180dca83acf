// Package config provides YAML-based configuration loading for the bridge.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/unftlabs/go-nftbridge/chain"
)

// Config is the root application configuration.
type Config struct {
	// ChainTag names this ledger in outbound transfer messages.
	ChainTag string `mapstructure:"chain_tag"`

	// GatewayAuthority is the hex-encoded 32-byte identity pinned as the
	// only caller allowed on the inbound gateway entry points.
	GatewayAuthority string `mapstructure:"gateway_authority"`

	// RevertGasLimit is carried in the revert envelope of outbound sends.
	// Zero means the bridge default.
	RevertGasLimit uint64 `mapstructure:"revert_gas_limit"`

	// StorePath is the sqlite file backing the token registry.
	// ":memory:" keeps state in process.
	StorePath string `mapstructure:"store_path"`

	// JournalPath is the sqlite file backing the event journal.
	JournalPath string `mapstructure:"journal_path"`

	// FeedAddr is the listen address of the websocket event feed.
	FeedAddr string `mapstructure:"feed_addr"`

	// Log holds logging configuration.
	Log LogConfig `mapstructure:"log"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`

	// Rotation controls file rotation when writing to files
	Rotation RotationConfig `mapstructure:"rotation"`
	// Development toggles development-friendly logging options
	Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		ChainTag:    "solana",
		StorePath:   "data/registry.db",
		JournalPath: "data/journal.db",
		FeedAddr:    ":8480",
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stdout"},
			Rotation: RotationConfig{
				Enable:     false,
				Filename:   "logs/nftbridge.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
	}
}

// Load reads configuration from the provided path (if non-empty), otherwise
// it searches common locations and supports environment overrides. Environment
// variables use the prefix NFTBRIDGE and `.`/`-` are replaced with `_`.
// Example: NFTBRIDGE_LOG_LEVEL=debug
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("NFTBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults for viper so env-only configs work
	v.SetDefault("chain_tag", cfg.ChainTag)
	v.SetDefault("gateway_authority", cfg.GatewayAuthority)
	v.SetDefault("revert_gas_limit", cfg.RevertGasLimit)
	v.SetDefault("store_path", cfg.StorePath)
	v.SetDefault("journal_path", cfg.JournalPath)
	v.SetDefault("feed_addr", cfg.FeedAddr)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)

	if path == "" {
		if envPath := os.Getenv("NFTBRIDGE_CONFIG"); envPath != "" {
			path = envPath
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("nftbridge")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".nftbridge"))
		}
	}

	// Read config file if present; if not found, continue with defaults/env
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch lvl {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}

	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stdout"}
	}
	if strings.TrimSpace(c.ChainTag) == "" {
		return errors.New("chain_tag must not be empty")
	}
	if c.GatewayAuthority != "" {
		if _, err := chain.ParseIdentity(c.GatewayAuthority); err != nil {
			return fmt.Errorf("invalid gateway_authority: %w", err)
		}
	}
	return nil
}

// Authority parses the pinned gateway identity. A zero identity is returned
// when none is configured; the bridge then rejects all gateway callbacks.
func (c *Config) Authority() (chain.Identity, error) {
	if strings.TrimSpace(c.GatewayAuthority) == "" {
		return chain.Identity{}, nil
	}
	return chain.ParseIdentity(c.GatewayAuthority)
}
