// Package config loads and validates the gatekeeper's YAML configuration.
package config

import (
	"fmt"
	"net"
	"os"

	"github.com/goccy/go-yaml"
)

// Config is the top-level configuration for a gatekeeper process.
type Config struct {
	ListenAddress  string        `yaml:"listen_address"`
	MaxConnections int           `yaml:"max_connections"`
	AcceptWorkers  int           `yaml:"accept_workers"`
	Limits         LimitsConfig  `yaml:"limits"`
	BanList        BanListConfig `yaml:"ban_list"`
	MetricsAddress string        `yaml:"metrics_address"`
	LogLevel       string        `yaml:"log_level"`
}

// LimitsConfig holds the admission-control thresholds.
type LimitsConfig struct {
	SoftFlagThreshold   int `yaml:"soft_flag_threshold"`
	SessionSweepTrigger int `yaml:"session_sweep_trigger"`
	EvictCountThreshold int `yaml:"evict_count_threshold"`
}

// BanListConfig controls the optional post-eviction address ban.
type BanListConfig struct {
	Enabled      bool   `yaml:"enabled"`
	TTLSeconds   int64  `yaml:"ttl_secs"`
	Backend      string `yaml:"backend"` // "memory" or "redis"
	RedisAddress string `yaml:"redis_address"`
}

// Default returns the configuration used when a field is absent from the
// file: listen on :8484, production thresholds, ban list disabled, metrics
// off, info logging.
//
// Returns:
//   - The default Config
func Default() Config {
	return Config{
		ListenAddress:  ":8484",
		MaxConnections: 1024,
		AcceptWorkers:  8,
		Limits: LimitsConfig{
			SoftFlagThreshold:   30,
			SessionSweepTrigger: 5000,
			EvictCountThreshold: 10,
		},
		BanList: BanListConfig{
			Enabled:    false,
			TTLSeconds: 300,
			Backend:    "memory",
		},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path and unmarshals it over the defaults, so
// omitted fields keep their default values.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - The loaded Config, or an error if reading or parsing failed
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks a Config for values the process cannot start with.
//
// Parameters:
//   - cfg: The configuration to check
//
// Returns:
//   - An error naming the first invalid field, or nil
func Validate(cfg Config) error {
	if cfg.ListenAddress == "" {
		return fmt.Errorf("listen_address must be set")
	}
	if _, err := net.ResolveTCPAddr("tcp", cfg.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen_address: %w", err)
	}

	if cfg.MaxConnections <= 0 {
		return fmt.Errorf("max_connections must be > 0")
	}
	if cfg.AcceptWorkers <= 0 {
		return fmt.Errorf("accept_workers must be > 0")
	}

	if cfg.Limits.SoftFlagThreshold <= 0 {
		return fmt.Errorf("limits.soft_flag_threshold must be > 0")
	}
	if cfg.Limits.SessionSweepTrigger <= 0 {
		return fmt.Errorf("limits.session_sweep_trigger must be > 0")
	}
	if cfg.Limits.EvictCountThreshold <= 0 {
		return fmt.Errorf("limits.evict_count_threshold must be > 0")
	}

	if cfg.BanList.Enabled {
		if cfg.BanList.TTLSeconds <= 0 {
			return fmt.Errorf("ban_list.ttl_secs must be > 0 when the ban list is enabled")
		}
		switch cfg.BanList.Backend {
		case "memory":
		case "redis":
			if cfg.BanList.RedisAddress == "" {
				return fmt.Errorf("ban_list.redis_address must be set for the redis backend")
			}
		default:
			return fmt.Errorf("ban_list.backend must be \"memory\" or \"redis\"")
		}
	}

	if cfg.MetricsAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", cfg.MetricsAddress); err != nil {
			return fmt.Errorf("invalid metrics_address: %w", err)
		}
	}

	return nil
}
