// Package config loads application configuration from config.yaml and
// ATLAS_-prefixed environment variables, and owns the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
	Data   DataConfig   `yaml:"data" mapstructure:"data"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Cache  CacheConfig  `yaml:"cache" mapstructure:"cache"`
}

// ServerConfig configures the dashboard API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DataConfig names the source manifest and scratch space.
type DataConfig struct {
	Manifest string `yaml:"manifest" mapstructure:"manifest"`
	WorkDir  string `yaml:"work_dir" mapstructure:"work_dir"`
}

// FetchConfig configures source downloads.
type FetchConfig struct {
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst   int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// CacheConfig configures the snapshot cache.
type CacheConfig struct {
	TTLSecs   int `yaml:"ttl_secs" mapstructure:"ttl_secs"`
	SweepSecs int `yaml:"sweep_secs" mapstructure:"sweep_secs"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("data.manifest", "sources.yaml")
	v.SetDefault("data.work_dir", "/tmp/msa-atlas")
	v.SetDefault("fetch.user_agent", "msa-atlas/1.0")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.rate_limit", 20)
	v.SetDefault("fetch.rate_burst", 20)
	v.SetDefault("cache.ttl_secs", 300)
	v.SetDefault("cache.sweep_secs", 600)

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

// Validate checks the fields the given mode depends on. Modes: "serve"
// for the API server, "query" for one-shot CLI reads, "import" for the
// layer importer.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
		if c.Data.Manifest == "" {
			problems = append(problems, "data.manifest is required")
		}
	case "query":
		if c.Data.Manifest == "" {
			problems = append(problems, "data.manifest is required")
		}
	case "import":
		// Sources arrive as flags; only the shared fetch checks apply.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Fetch.TimeoutSecs < 1 || c.Fetch.TimeoutSecs > 300 {
		problems = append(problems, "fetch.timeout_secs must be between 1 and 300")
	}
	if c.Fetch.MaxRetries < 0 || c.Fetch.MaxRetries > 10 {
		problems = append(problems, "fetch.max_retries must be between 0 and 10")
	}
	if c.Fetch.RateLimit <= 0 {
		problems = append(problems, "fetch.rate_limit must be > 0")
	}
	if c.Cache.TTLSecs < 0 {
		problems = append(problems, "cache.ttl_secs must be >= 0")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
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
