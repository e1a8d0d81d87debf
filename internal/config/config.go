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
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Database  DatabaseConfig  `yaml:"database" mapstructure:"database"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	Model          string  `yaml:"model" mapstructure:"model"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	MaxAttempts    int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BackoffMs      int     `yaml:"backoff_ms" mapstructure:"backoff_ms"`
}

// DatabaseConfig configures the read-only analytics pool that generated
// queries execute against.
type DatabaseConfig struct {
	URL      string `yaml:"url" mapstructure:"url"`
	MaxConns int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// StoreConfig configures the query-audit backend. Driver is one of
// "postgres", "sqlite" or "none".
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SqlitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// PipelineConfig tunes the trust pipeline.
type PipelineConfig struct {
	TrustedTimeout   time.Duration `yaml:"trusted_timeout" mapstructure:"trusted_timeout"`
	SingleTimeout    time.Duration `yaml:"single_timeout" mapstructure:"single_timeout"`
	ConsensusTimeout time.Duration `yaml:"consensus_timeout" mapstructure:"consensus_timeout"`

	ConsensusGenerations int     `yaml:"consensus_generations" mapstructure:"consensus_generations"`
	ConsensusEpsilon     float64 `yaml:"consensus_epsilon" mapstructure:"consensus_epsilon"`
	MediumAtTwoThirds    bool    `yaml:"medium_at_two_thirds" mapstructure:"medium_at_two_thirds"`

	CrossCheckTolerance    float64 `yaml:"crosscheck_tolerance" mapstructure:"crosscheck_tolerance"`
	PlausibilityMultiplier float64 `yaml:"plausibility_multiplier" mapstructure:"plausibility_multiplier"`
}

// ServerConfig configures the HTTP query server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks that the configuration can support the given mode.
// Modes: "ask" and "serve" need the full pipeline; "validate" runs the
// statement validator standalone and needs nothing external.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "validate":
		return nil
	case "ask", "serve":
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
		if c.Database.URL == "" {
			problems = append(problems, "database.url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if mode == "serve" && c.Server.Port <= 0 {
		problems = append(problems, "server.port must be > 0")
	}

	switch c.Store.Driver {
	case "none", "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" && c.Database.URL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, "store.driver must be postgres, sqlite or none")
	}

	if c.Pipeline.ConsensusGenerations < 1 || c.Pipeline.ConsensusGenerations > 9 {
		problems = append(problems, "pipeline.consensus_generations must be between 1 and 9")
	}
	if c.Pipeline.ConsensusEpsilon < 0 {
		problems = append(problems, "pipeline.consensus_epsilon must be >= 0")
	}
	if c.Pipeline.CrossCheckTolerance < 0 || c.Pipeline.CrossCheckTolerance > 1 {
		problems = append(problems, "pipeline.crosscheck_tolerance must be between 0 and 1")
	}
	if c.Pipeline.PlausibilityMultiplier <= 0 {
		problems = append(problems, "pipeline.plausibility_multiplier must be > 0")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INSIGHTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secrets and connection strings default to empty so that
	// AutomaticEnv can see the keys; env values only surface for keys
	// viper already knows about.
	v.SetDefault("anthropic.key", "")
	v.SetDefault("database.url", "")
	v.SetDefault("store.database_url", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.requests_per_sec", 5.0)
	v.SetDefault("anthropic.max_attempts", 3)
	v.SetDefault("anthropic.backoff_ms", 500)
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.sqlite_path", "insights.db")
	v.SetDefault("pipeline.trusted_timeout", "2s")
	v.SetDefault("pipeline.single_timeout", "5s")
	v.SetDefault("pipeline.consensus_timeout", "10s")
	v.SetDefault("pipeline.consensus_generations", 3)
	v.SetDefault("pipeline.consensus_epsilon", 0.01)
	v.SetDefault("pipeline.medium_at_two_thirds", false)
	v.SetDefault("pipeline.crosscheck_tolerance", 0.01)
	v.SetDefault("pipeline.plausibility_multiplier", 10.0)
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
