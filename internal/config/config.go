package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Provider ProviderConfig `mapstructure:"provider" validate:"required"`
	Task     TaskConfig     `mapstructure:"task" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	RequestTimeoutSeconds  int    `mapstructure:"request_timeout_seconds" validate:"gte=1"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
	// RateLimitPerMinute caps authenticated requests per user; 0 disables limiting.
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute" validate:"gte=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime_minutes" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
	BCryptCost           int    `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
}

// Provider modes.
const (
	ProviderModeLive     = "live"
	ProviderModeSimulate = "simulate"
)

// ProviderConfig configures the external video generation provider.
type ProviderConfig struct {
	Mode                  string  `mapstructure:"mode" validate:"required,oneof=live simulate"`
	APIKey                string  `mapstructure:"api_key"`
	BaseURL               string  `mapstructure:"base_url" validate:"required,url"`
	Model                 string  `mapstructure:"model" validate:"required"`
	RequestTimeoutSeconds int     `mapstructure:"request_timeout_seconds" validate:"gte=1"`
	SubmitMaxRetries      int     `mapstructure:"submit_max_retries" validate:"gte=0,lte=10"`
	RateLimitPerSecond    float64 `mapstructure:"rate_limit_per_second" validate:"gt=0"`
	Watermark             bool    `mapstructure:"watermark"`
	PromptExtend          bool    `mapstructure:"prompt_extend"`
	NegativePrompt        string  `mapstructure:"negative_prompt" validate:"lte=500"`
}

// TaskConfig configures the background task runner and the orchestration loop.
type TaskConfig struct {
	WorkerCount         int `mapstructure:"worker_count" validate:"gte=1"`
	QueueSize           int `mapstructure:"queue_size" validate:"gte=1"`
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" validate:"gte=1"`
	MaxWaitSeconds      int `mapstructure:"max_wait_seconds" validate:"gte=1"`

	// ArchiveTimeoutSeconds bounds copying a finished video to object storage.
	ArchiveTimeoutSeconds int `mapstructure:"archive_timeout_seconds" validate:"gte=1"`
}

// LLMConfig contains script generation settings. An empty key disables the feature.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	ModelName    string `mapstructure:"model_name"`
}

// StorageConfig configures archiving of finished videos to S3. Disabled when Bucket is empty.
type StorageConfig struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// RedisConfig configures the shared rate limiter backend. Disabled when Addr is empty.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// PollInterval returns the orchestration poll interval.
func (c TaskConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// MaxWait returns the maximum time a task may spend polling the provider.
func (c TaskConfig) MaxWait() time.Duration {
	return time.Duration(c.MaxWaitSeconds) * time.Second
}

// ArchiveTimeout returns the deadline for archiving one finished video.
func (c TaskConfig) ArchiveTimeout() time.Duration {
	return time.Duration(c.ArchiveTimeoutSeconds) * time.Second
}

// RequestTimeout returns the per-call provider timeout.
func (c ProviderConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// TokenLifetime returns the access token lifetime.
func (c AuthConfig) TokenLifetime() time.Duration {
	return time.Duration(c.TokenLifetimeMinutes) * time.Minute
}
