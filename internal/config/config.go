package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Search  SearchConfig  `mapstructure:"search"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// SearchConfig represents the web search provider configuration
type SearchConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Count   int    `mapstructure:"count"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

// LLMConfig represents the language model service configuration
type LLMConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
	Version   string `mapstructure:"version"` // anthropic-version header
	Timeout   int    `mapstructure:"timeout"` // seconds, 0 = no client-side timeout
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig controls the optional Prometheus endpoint
type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the endpoint
}

func Load(cfgFile string) (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	setDefaults(v)

	// Replace . with _ for nested config keys
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("DEEPDIVE")
	v.AutomaticEnv()

	// Provider credentials keep their conventional names
	if err := v.BindEnv("search.api_key", "DEEPDIVE_SEARCH_API_KEY", "BRAVE_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind search credentials: %w", err)
	}
	if err := v.BindEnv("llm.api_key", "DEEPDIVE_LLM_API_KEY", "ANTHROPIC_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind llm credentials: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is ok when none was requested, use defaults
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Search defaults
	v.SetDefault("search.base_url", "https://api.search.brave.com/res/v1/web/search")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.count", 8)
	v.SetDefault("search.timeout", 15)

	// LLM defaults
	v.SetDefault("llm.base_url", "https://api.anthropic.com")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.version", "2023-06-01")
	v.SetDefault("llm.timeout", 0)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("metrics.addr", "")
}
