// Package config loads and validates user and storage configuration.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/reelbook/reelbook/internal/card"
)

type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Practice  PracticeConfig  `mapstructure:"practice"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type DatabaseConfig struct {
	Local  LocalDatabaseConfig  `mapstructure:"local"`
	Remote RemoteDatabaseConfig `mapstructure:"remote"`
}

// LocalDatabaseConfig points at the embedded store on this device.
type LocalDatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// RemoteDatabaseConfig describes the shared cloud store. It is only needed
// by the sync commands; practice works fully offline without it.
type RemoteDatabaseConfig struct {
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	Database        string            `mapstructure:"database"`
	Username        string            `mapstructure:"username"`
	Password        string            `mapstructure:"password"`
	TLS             bool              `mapstructure:"tls"`
	Params          map[string]string `mapstructure:"params"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int               `mapstructure:"conn_max_lifetime_seconds"`
}

// PracticeConfig holds the user's scheduling preferences.
type PracticeConfig struct {
	DesiredRetention      float64         `mapstructure:"desired_retention" validate:"gt=0,lt=1"`
	MaximumIntervalDays   int             `mapstructure:"maximum_interval_days" validate:"gte=1"`
	Weights               []float64       `mapstructure:"weights"`
	LearningSteps         []time.Duration `mapstructure:"learning_steps"`
	RelearningSteps       []time.Duration `mapstructure:"relearning_steps"`
	EnableFuzz            bool            `mapstructure:"enable_fuzz"`
	LookbackDays          int             `mapstructure:"lookback_days" validate:"gte=0"`
	TimezoneOffsetMinutes int             `mapstructure:"timezone_offset_minutes"`
}

// SchedulerConfig configures the optional external scheduler override.
type SchedulerConfig struct {
	OverrideURL string `mapstructure:"override_url"`
	TimeoutMS   int    `mapstructure:"timeout_ms" validate:"gte=0"`
}

// Params converts the practice preferences into memory-model parameters.
// An empty weight list selects the default weight vector; any other length
// than 21 is a configuration error.
func (c PracticeConfig) Params() (card.Params, error) {
	p := card.DefaultParams()
	p.DesiredRetention = c.DesiredRetention
	p.MaximumInterval = c.MaximumIntervalDays
	p.EnableFuzz = c.EnableFuzz
	if len(c.LearningSteps) > 0 {
		p.LearningSteps = c.LearningSteps
	}
	if len(c.RelearningSteps) > 0 {
		p.RelearningSteps = c.RelearningSteps
	}
	if len(c.Weights) > 0 {
		if len(c.Weights) != len(p.Weights) {
			return card.Params{}, fmt.Errorf("%w: expected %d weights, got %d", ErrConfiguration, len(p.Weights), len(c.Weights))
		}
		copy(p.Weights[:], c.Weights)
	}
	if err := p.Validate(); err != nil {
		return card.Params{}, fmt.Errorf("%w: p.Validate() > %w", ErrConfiguration, err)
	}
	return p, nil
}

func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/reelbook")
	}

	v.SetDefault("database.local.path", filepath.Join("data", "reelbook.db"))
	v.SetDefault("database.remote.port", 3306)
	v.SetDefault("practice.desired_retention", 0.9)
	v.SetDefault("practice.maximum_interval_days", 36500)
	v.SetDefault("practice.lookback_days", 7)
	v.SetDefault("scheduler.timeout_ms", 2000)

	// Credentials come from the environment only, never the config file.
	if err := v.BindEnv("database.remote.username", "REELBOOK_DB_USERNAME"); err != nil {
		return nil, fmt.Errorf("failed to bind REELBOOK_DB_USERNAME environment variable: %w", err)
	}
	if err := v.BindEnv("database.remote.password", "REELBOOK_DB_PASSWORD"); err != nil {
		return nil, fmt.Errorf("failed to bind REELBOOK_DB_PASSWORD environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cfg.Validate() > %w", err)
	}

	return &cfg, nil
}
