// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Portal  PortalConfig  `yaml:"portal" mapstructure:"portal"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	History HistoryConfig `yaml:"history" mapstructure:"history"`
	Update  UpdateConfig  `yaml:"update" mapstructure:"update"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// PortalConfig configures access to the Chicago Data Portal.
type PortalConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// AppToken lifts the portal's anonymous throttling. Empty works, slowly.
	AppToken    string  `yaml:"app_token" mapstructure:"app_token"`
	PageSize    int     `yaml:"page_size" mapstructure:"page_size"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// Timeout returns the HTTP timeout as a duration.
func (p PortalConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSecs) * time.Second
}

// OutputConfig configures where summary files are written.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// HistoryConfig configures the run-history database.
type HistoryConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// UpdateConfig configures the update pipeline.
type UpdateConfig struct {
	// LookbackDays bounds SODA queries for datasets with a date field.
	LookbackDays int `yaml:"lookback_days" mapstructure:"lookback_days"`
	Concurrency  int `yaml:"concurrency" mapstructure:"concurrency"`
}

// Lookback returns the lookback window as a duration.
func (u UpdateConfig) Lookback() time.Duration {
	return time.Duration(u.LookbackDays) * 24 * time.Hour
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BLOCKMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("portal.base_url", "https://data.cityofchicago.org")
	v.SetDefault("portal.app_token", "")
	v.SetDefault("portal.page_size", 50000)
	v.SetDefault("portal.timeout_secs", 120)
	v.SetDefault("portal.max_retries", 3)
	v.SetDefault("portal.rate_per_sec", 5)
	v.SetDefault("output.dir", "public")
	v.SetDefault("history.path", "blockmap.db")
	v.SetDefault("update.lookback_days", 365)
	v.SetDefault("update.concurrency", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
