package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm"       validate:"required"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" validate:"required"`
	Breaker   BreakerConfig   `mapstructure:"breaker"   validate:"required"`
	Cache     CacheConfig     `mapstructure:"cache"     validate:"required"`
	Retry     RetryConfig     `mapstructure:"retry"     validate:"required"`
	Worker    WorkerConfig    `mapstructure:"worker"    validate:"required"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// LogFormat selects the slog handler: "json" for production, "text"
	// for colorized development output.
	LogFormat string `mapstructure:"log_format" validate:"required,oneof=json text"`

	// ShutdownTimeout bounds graceful shutdown, including draining
	// in-flight batches.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	// Path is the SQLite database file. ":memory:" is accepted for tests.
	Path string `mapstructure:"path" validate:"required"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	// Provider selects the backend: "openrouter" or "gemini".
	Provider string `mapstructure:"provider" validate:"required,oneof=openrouter gemini"`

	OpenRouterAPIKey string `mapstructure:"openrouter_api_key" validate:"required_if=Provider openrouter"`
	GeminiAPIKey     string `mapstructure:"gemini_api_key" validate:"required_if=Provider gemini"`

	// BaseURL overrides the provider endpoint, mainly for tests.
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`

	ModelName   string  `mapstructure:"model_name" validate:"required"`
	Temperature float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `mapstructure:"max_tokens" validate:"required,gt=0"`

	// RequestTimeout bounds each HTTP round trip to the provider.
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"required"`
}

// RateLimitConfig bounds the outbound request rate to the LLM provider.
type RateLimitConfig struct {
	// RequestsPerSecond is the steady-state token refill rate.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"required,gt=0"`

	// Burst is the bucket capacity, the number of requests that may be
	// issued back to back from a full bucket.
	Burst int `mapstructure:"burst" validate:"required,gt=0"`
}

// BreakerConfig controls the circuit breaker around provider calls.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// circuit.
	FailureThreshold int `mapstructure:"failure_threshold" validate:"required,gt=0"`

	// ResetTimeout is how long the circuit stays open before permitting
	// a half-open trial request.
	ResetTimeout time.Duration `mapstructure:"reset_timeout" validate:"required"`
}

// CacheConfig sizes the in-memory response cache.
type CacheConfig struct {
	// CapacityBytes caps the total payload size held in the cache.
	CapacityBytes int64 `mapstructure:"capacity_bytes" validate:"required,gt=0"`

	// MaxEntries caps the entry count independently of byte size.
	MaxEntries int `mapstructure:"max_entries" validate:"required,gt=0"`

	// TTL is the per-entry expiry. Zero disables expiry.
	TTL time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// RetryConfig bounds retries of transient provider failures.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts per call, first try
	// included.
	MaxAttempts int `mapstructure:"max_attempts" validate:"required,gt=0"`

	// BaseDelay seeds the exponential backoff schedule.
	BaseDelay time.Duration `mapstructure:"base_delay" validate:"required"`

	// MaxDelay caps a single backoff interval.
	MaxDelay time.Duration `mapstructure:"max_delay" validate:"required"`
}

// WorkerConfig sizes the batch worker pool.
type WorkerConfig struct {
	// Count is the number of concurrent item workers per batch.
	Count int `mapstructure:"count" validate:"required,gt=0"`

	// ItemTimeout bounds the two-stage generation of a single item.
	ItemTimeout time.Duration `mapstructure:"item_timeout" validate:"required"`

	// DrainTimeout bounds how long shutdown waits for in-flight items.
	DrainTimeout time.Duration `mapstructure:"drain_timeout" validate:"required"`
}
