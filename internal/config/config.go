package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Feeds      FeedsConfig      `mapstructure:"feeds"`
	API        APIConfig        `mapstructure:"api"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"` // development, staging, production
	LogLevel    string `mapstructure:"log_level"`
}

// DatabaseConfig contains PostgreSQL/TimescaleDB settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	PoolSize int    `mapstructure:"pool_size"`
}

// RedisConfig contains Redis settings
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// EmbeddingsConfig contains embedding backend settings
type EmbeddingsConfig struct {
	OllamaURL   string `mapstructure:"ollama_url"`   // "http://localhost:11434"
	OllamaModel string `mapstructure:"ollama_model"` // "nomic-embed-text"
	HFEndpoint  string `mapstructure:"hf_endpoint"`
	HFModel     string `mapstructure:"hf_model"`
	HFAPIKey    string `mapstructure:"hf_api_key"`
	Dimensions  int    `mapstructure:"dimensions"` // must match the vector column width
	TimeoutMS   int    `mapstructure:"timeout_ms"`
}

// ProvidersConfig holds the LLM provider descriptors in fallback priority order:
// hosted free tier, hosted paid, local daemon.
type ProvidersConfig struct {
	HuggingFace HuggingFaceConfig `mapstructure:"huggingface"`
	OpenAI      OpenAIConfig      `mapstructure:"openai"`
	Ollama      OllamaConfig      `mapstructure:"ollama"`
	MaxRetries  int               `mapstructure:"max_retries"` // transport retries per provider
}

// HuggingFaceConfig configures the hosted inference provider
type HuggingFaceConfig struct {
	Endpoint  string `mapstructure:"endpoint"` // "https://api-inference.huggingface.co/models"
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
}

// OpenAIConfig configures the hosted chat-completions provider
type OpenAIConfig struct {
	Endpoint  string `mapstructure:"endpoint"` // "https://api.openai.com/v1/chat/completions"
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
}

// OllamaConfig configures the local generation daemon
type OllamaConfig struct {
	URL       string `mapstructure:"url"` // "http://localhost:11434"
	Model     string `mapstructure:"model"`
	TimeoutMS int    `mapstructure:"timeout_ms"` // local inference is slow, allow more
}

// AnalysisConfig contains analysis pipeline settings
type AnalysisConfig struct {
	DefaultDaysBefore int     `mapstructure:"default_days_before"`
	NewsLimit         int     `mapstructure:"news_limit"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	Temperature       float64 `mapstructure:"temperature"`
	PromptOverrides   string  `mapstructure:"prompt_overrides"` // optional YAML file
}

// FeedsConfig contains news/market ingest settings
type FeedsConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	RSSSources      []string `mapstructure:"rss_sources"`
	BinanceSymbols  []string `mapstructure:"binance_symbols"`
	PollIntervalSec int      `mapstructure:"poll_interval_sec"`
}

// APIConfig contains REST API settings
type APIConfig struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	RateLimitPerMin   int    `mapstructure:"rate_limit_per_min"`
	RateLimitDisabled bool   `mapstructure:"rate_limit_disabled"`
}

// MonitoringConfig contains monitoring settings
type MonitoringConfig struct {
	PrometheusPort int  `mapstructure:"prometheus_port"`
	EnableMetrics  bool `mapstructure:"enable_metrics"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("QUANTFORGE")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "QuantForge")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "quantforge")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.pool_size", 10)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Embedding defaults
	v.SetDefault("embeddings.ollama_url", "http://localhost:11434")
	v.SetDefault("embeddings.ollama_model", "nomic-embed-text")
	v.SetDefault("embeddings.hf_endpoint", "https://api-inference.huggingface.co/models")
	v.SetDefault("embeddings.hf_model", "sentence-transformers/all-MiniLM-L6-v2")
	v.SetDefault("embeddings.dimensions", 384)
	v.SetDefault("embeddings.timeout_ms", 10000)

	// Provider defaults
	v.SetDefault("providers.huggingface.endpoint", "https://api-inference.huggingface.co/models")
	v.SetDefault("providers.huggingface.model", "mistralai/Mistral-7B-Instruct-v0.2")
	v.SetDefault("providers.huggingface.timeout_ms", 30000)
	v.SetDefault("providers.openai.endpoint", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("providers.openai.model", "gpt-4o-mini")
	v.SetDefault("providers.openai.timeout_ms", 30000)
	v.SetDefault("providers.ollama.url", "http://localhost:11434")
	v.SetDefault("providers.ollama.model", "llama3.1:8b")
	v.SetDefault("providers.ollama.timeout_ms", 60000)
	v.SetDefault("providers.max_retries", 1)

	// Analysis defaults
	v.SetDefault("analysis.default_days_before", 7)
	v.SetDefault("analysis.news_limit", 20)
	v.SetDefault("analysis.max_tokens", 500)
	v.SetDefault("analysis.temperature", 0.3)

	// Feed defaults
	v.SetDefault("feeds.enabled", false)
	v.SetDefault("feeds.poll_interval_sec", 300)
	v.SetDefault("feeds.binance_symbols", []string{"BTCUSDT", "ETHUSDT"})

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8081)
	v.SetDefault("api.rate_limit_per_min", 60)

	// Monitoring defaults
	v.SetDefault("monitoring.prometheus_port", 9100)
	v.SetDefault("monitoring.enable_metrics", true)
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid API port: %d", c.API.Port)
	}
	if c.Analysis.Temperature < 0 || c.Analysis.Temperature > 2 {
		return fmt.Errorf("analysis temperature must be in [0, 2], got %f", c.Analysis.Temperature)
	}
	if c.Analysis.MaxTokens <= 0 {
		return fmt.Errorf("analysis max_tokens must be positive, got %d", c.Analysis.MaxTokens)
	}
	if c.Providers.MaxRetries < 0 {
		return fmt.Errorf("providers max_retries must be non-negative, got %d", c.Providers.MaxRetries)
	}
	switch c.App.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("invalid environment: %s", c.App.Environment)
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAPIAddr returns the API server address
func (c *APIConfig) GetAPIAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetTimeout returns the provider timeout as time.Duration
func (c *HuggingFaceConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// GetTimeout returns the provider timeout as time.Duration
func (c *OpenAIConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// GetTimeout returns the provider timeout as time.Duration
func (c *OllamaConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// GetTimeout returns the embedding timeout as time.Duration
func (c *EmbeddingsConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// PollInterval returns the feed poll interval as time.Duration
func (c *FeedsConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}
