package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envPrefix namespaces the environment variables read by Load, e.g.
// HANCARD_SERVER_PORT maps to server.port.
const envPrefix = "HANCARD"

// ErrValidation wraps field-level validation failures so callers can
// distinguish bad configuration from I/O problems.
var ErrValidation = errors.New("invalid configuration")

// Load reads configuration from environment variables and, when configPath
// is non-empty, a YAML file. Environment variables take precedence over
// file values. The result is validated once at load time; components may
// assume a returned Config is well formed.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers the defaults every deployment can start from; only
// the provider API key has no usable default.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.path", "hancard.db")

	v.SetDefault("llm.provider", "openrouter")
	// Empty defaults so AutomaticEnv surfaces these keys to Unmarshal.
	v.SetDefault("llm.openrouter_api_key", "")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model_name", "anthropic/claude-sonnet-4")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.request_timeout", 30*time.Second)

	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.reset_timeout", 60*time.Second)

	v.SetDefault("cache.capacity_bytes", int64(64<<20))
	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("cache.ttl", 30*24*time.Hour)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", time.Second)
	v.SetDefault("retry.max_delay", 10*time.Second)

	v.SetDefault("worker.count", 5)
	v.SetDefault("worker.item_timeout", 2*time.Minute)
	v.SetDefault("worker.drain_timeout", 30*time.Second)
}

// validate runs struct-tag validation and renders failures as one
// ErrValidation with a field list, so a misconfigured deployment reports
// every problem at once instead of one per restart.
func validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(details, "; "))
}
