package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all credence configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
}

type ServerConfig struct {
	Bind string `mapstructure:"bind"`
	Port int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ScoringConfig exposes the engine's constant tables so deployments can run
// alternate parameter sets. Zero values fall back to engine defaults.
type ScoringConfig struct {
	ModalityStrengths            map[string]float64 `mapstructure:"modality_strengths"`
	CrossModalityBonus           float64            `mapstructure:"cross_modality_bonus"`
	PartialCreditBonus           float64            `mapstructure:"partial_credit_bonus"`
	BaseHalfLifeDays             float64            `mapstructure:"base_half_life_days"`
	CrossModalityMultiplier      float64            `mapstructure:"cross_modality_multiplier"`
	StructuralBonus              float64            `mapstructure:"structural_bonus"`
	PropagationAttenuation       float64            `mapstructure:"propagation_attenuation"`
	FailurePropagationMultiplier float64            `mapstructure:"failure_propagation_multiplier"`
	PropagationThreshold         float64            `mapstructure:"propagation_threshold"`
	StalenessWindowDays          float64            `mapstructure:"staleness_window_days"`
}

// Default returns a Config with sensible defaults. Scoring constants are
// left zero so the engine's own defaults apply.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 38200,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
	}
}

// Load reads configuration from the given file, or from
// ~/.credence/config.yaml when path is empty, with CREDENCE_* environment
// overrides. A missing config file is not an error; defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetDefault("server.bind", cfg.Server.Bind)
	v.SetDefault("server.port", cfg.Server.Port)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, fmt.Errorf("get home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".credence"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("CREDENCE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
