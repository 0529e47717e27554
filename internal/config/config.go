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
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Scorer     ScorerConfig     `yaml:"scorer" mapstructure:"scorer"`
	Validate   ValidateConfig   `yaml:"validate" mapstructure:"validate"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the listing API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AnthropicConfig holds Anthropic API settings for the LLM-backed
// validators and the qualitative scorer.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PerplexityConfig holds Perplexity API settings for cross-platform search.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// ScorerConfig holds the trust engine's weights and thresholds.
//
// Weights are applied directly to 0-100 component scores and are not
// normalized by the sum of active weights, so totals leave the 0-100
// scale whenever more than one component is present. This matches the
// deployed behavior and downstream consumers rely on it; see DESIGN.md
// before changing it.
type ScorerConfig struct {
	ImageWeight    float64 `yaml:"image_weight" mapstructure:"image_weight"`
	AgentWeight    float64 `yaml:"agent_weight" mapstructure:"agent_weight"`
	PlatformWeight float64 `yaml:"platform_weight" mapstructure:"platform_weight"`
	ReviewWeight   float64 `yaml:"review_weight" mapstructure:"review_weight"`

	AutoApproveThreshold float64 `yaml:"auto_approve_threshold" mapstructure:"auto_approve_threshold"`
	ManualCheckThreshold float64 `yaml:"manual_check_threshold" mapstructure:"manual_check_threshold"`

	HistoryWindow int `yaml:"history_window" mapstructure:"history_window"`
}

// ValidateConfig tunes the upstream validators.
type ValidateConfig struct {
	ImageTimeoutSecs  int     `yaml:"image_timeout_secs" mapstructure:"image_timeout_secs"`
	DuplicateDistance int     `yaml:"duplicate_distance" mapstructure:"duplicate_distance"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROPGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "propguard.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("scorer.image_weight", 35)
	v.SetDefault("scorer.agent_weight", 35)
	v.SetDefault("scorer.platform_weight", 30)
	v.SetDefault("scorer.review_weight", 0)
	v.SetDefault("scorer.auto_approve_threshold", 80)
	v.SetDefault("scorer.manual_check_threshold", 40)
	v.SetDefault("scorer.history_window", 100)
	v.SetDefault("validate.image_timeout_secs", 15)
	v.SetDefault("validate.duplicate_distance", 8)
	v.SetDefault("validate.requests_per_second", 2)

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
