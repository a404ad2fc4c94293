package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/Rrens/chatwidget/internal/domain"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Widget      WidgetConfig      `mapstructure:"widget"`
	Script      ScriptConfig      `mapstructure:"script"`
	Sessions    SessionsConfig    `mapstructure:"sessions"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	MiddlewareTimeout time.Duration `mapstructure:"middleware_timeout"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig is the PostgreSQL connection used by the "postgres" history backend
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
	// AutoMigrate applies pending migrations when the server starts
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User), url.QueryEscape(c.Password), c.Host, c.Port, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LLMConfig struct {
	DefaultProvider string          `mapstructure:"default_provider"`
	Gemini          GeminiConfig    `mapstructure:"gemini"`
	OpenAI          OpenAIConfig    `mapstructure:"openai"`
	Anthropic       AnthropicConfig `mapstructure:"anthropic"`
	Ollama          OllamaConfig    `mapstructure:"ollama"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OllamaConfig struct {
	Host         string `mapstructure:"host"`
	DefaultModel string `mapstructure:"default_model"`
}

// PersistenceConfig selects the chat history backend: "api", "postgres", "redis" or "memory".
// An empty Backend picks "api" when BaseURL is set and "memory" otherwise.
type PersistenceConfig struct {
	Backend string        `mapstructure:"backend"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// TTL expires Redis history keys, zero keeps them forever
	TTL time.Duration `mapstructure:"ttl"`
}

// ResolvedBackend applies the empty-backend rule
func (c PersistenceConfig) ResolvedBackend() string {
	if c.Backend != "" {
		return c.Backend
	}
	if c.BaseURL != "" {
		return "api"
	}
	return "memory"
}

type WidgetConfig struct {
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
	ContextWindow  int           `mapstructure:"context_window"`
	MinReplyLength int           `mapstructure:"min_reply_length"`
	PersistTimeout time.Duration `mapstructure:"persist_timeout"`
}

// ScriptConfig overrides the bot's canned texts. Empty fields keep the built-in script.
type ScriptConfig struct {
	Welcome             string              `mapstructure:"welcome"`
	IdleReminder        string              `mapstructure:"idle_reminder"`
	ErrorReply          string              `mapstructure:"error_reply"`
	FallbackReply       string              `mapstructure:"fallback_reply"`
	LowConfidenceMarker string              `mapstructure:"low_confidence_marker"`
	EndConfirmation     string              `mapstructure:"end_confirmation"`
	UserLabel           string              `mapstructure:"user_label"`
	BotLabel            string              `mapstructure:"bot_label"`
	DefaultResponse     string              `mapstructure:"default_response"`
	QuickReplies        []domain.QuickReply `mapstructure:"quick_replies"`
	Examples            []ExampleConfig     `mapstructure:"examples"`
}

type ExampleConfig struct {
	Queries  []string `mapstructure:"queries"`
	Response string   `mapstructure:"response"`
}

type SessionsConfig struct {
	// EvictAfter closes hosted widgets with no websocket clients and no activity for this long
	EvictAfter time.Duration `mapstructure:"evict_after"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set config file path
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.middleware_timeout", "60s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "chatwidget")
	v.SetDefault("database.database", "chatwidget")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.auto_migrate", false)

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// LLM
	v.SetDefault("llm.default_provider", "gemini")
	v.SetDefault("llm.gemini.model", "gemini-2.0-flash")

	// Persistence
	v.SetDefault("persistence.timeout", "10s")
	v.SetDefault("persistence.ttl", "168h")

	// Widget
	v.SetDefault("widget.idle_timeout", "5m")
	v.SetDefault("widget.max_retries", 2)
	v.SetDefault("widget.retry_backoff", "1s")
	v.SetDefault("widget.context_window", 6)
	v.SetDefault("widget.min_reply_length", 10)
	v.SetDefault("widget.persist_timeout", "10s")

	// Sessions
	v.SetDefault("sessions.evict_after", "30m")

	// Rate limit
	v.SetDefault("rate_limit.requests_per_minute", 30)
	v.SetDefault("rate_limit.burst", 5)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

func bindEnvVars(v *viper.Viper) {
	// Database
	v.BindEnv("database.password", "POSTGRES_PASSWORD")

	// Redis
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Persistence API
	v.BindEnv("persistence.backend", "PERSISTENCE_BACKEND")
	v.BindEnv("persistence.base_url", "PERSISTENCE_BASE_URL")

	// LLM API Keys
	v.BindEnv("llm.default_provider", "LLM_PROVIDER")
	v.BindEnv("llm.gemini.api_key", "GEMINI_API_KEY")
	v.BindEnv("llm.openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("llm.openai.base_url", "OPENAI_BASE_URL")
	v.BindEnv("llm.anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("llm.ollama.host", "OLLAMA_HOST")
}
