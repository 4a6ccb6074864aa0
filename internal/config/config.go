// Package config loads chunksplit settings from defaults, an optional
// config file and CHUNKSPLIT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. CHUNKSPLIT_MODE.
const EnvPrefix = "CHUNKSPLIT"

// Config holds all settings.
type Config struct {
	// Mode is the build mode classifications run under.
	Mode string `mapstructure:"mode"`
	// Rules is the path of the override rules file.
	Rules   string        `mapstructure:"rules"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Plan    PlanConfig    `mapstructure:"plan"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CacheConfig holds classification cache settings.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// PlanConfig holds chunk planning limits.
type PlanConfig struct {
	// SizeLimitKB is the chunk size above which a warning is raised.
	SizeLimitKB int64 `mapstructure:"size_limit_kb"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Mode:  "production",
		Rules: "chunksplit.rules.yaml",
		Cache: CacheConfig{
			Enabled: false,
			Dir:     ".chunksplit",
		},
		Plan: PlanConfig{
			SizeLimitKB: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults.
// An explicit configPath must exist; otherwise chunksplit.yaml is looked up
// in the working directory and ignored when absent.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("chunksplit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("mode", d.Mode)
	v.SetDefault("rules", d.Rules)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.dir", d.Cache.Dir)

	v.SetDefault("plan.size_limit_kb", d.Plan.SizeLimitKB)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.path", d.Logging.Path)
}

// SizeLimit returns the chunk size warning threshold in bytes.
func (c *PlanConfig) SizeLimit() int64 {
	return c.SizeLimitKB * 1024
}
