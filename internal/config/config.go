package config

import (
	"os"
	"strconv"
	"time"

	"goprior/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Sampler  SamplerConfig `validate:"required"`
	Fit      FitConfig
	ESS      ESSConfig
}

// DatabaseConfig holds prior-store connection settings. The URL is optional:
// without it the application runs with the in-memory store only.
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// SamplerConfig holds the external MCMC engine settings
type SamplerConfig struct {
	URL        string `validate:"required"`
	Timeout    time.Duration
	Chains     int
	Iterations int
	Warmup     int
}

// FitConfig holds mixture-fitting defaults
type FitConfig struct {
	BaseSeed      int64
	MaxIterations int
	Tolerance     float64
	MaxComponents int
}

// ESSConfig holds effective-sample-size defaults
type ESSConfig struct {
	Method string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL:     os.Getenv("DATABASE_URL"),
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
		},
		Sampler: SamplerConfig{
			URL:        os.Getenv("SAMPLER_URL"),
			Timeout:    getEnvDurationOrDefault("SAMPLER_TIMEOUT_MS", 300_000) * time.Millisecond,
			Chains:     getEnvIntOrDefault("SAMPLER_CHAINS", 4),
			Iterations: getEnvIntOrDefault("SAMPLER_ITERATIONS", 2000),
			Warmup:     getEnvIntOrDefault("SAMPLER_WARMUP", 1000),
		},
		Fit: FitConfig{
			BaseSeed:      getEnvInt64OrDefault("FIT_BASE_SEED", 1),
			MaxIterations: getEnvIntOrDefault("FIT_MAX_ITERATIONS", 500),
			Tolerance:     getEnvFloatOrDefault("FIT_TOLERANCE", 1e-6),
			MaxComponents: getEnvIntOrDefault("FIT_MAX_COMPONENTS", 4),
		},
		ESS: ESSConfig{
			Method: getEnvOrDefault("ESS_METHOD", "elir"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Sampler.URL == "" {
		return errors.ConfigInvalid("SAMPLER_URL is required")
	}
	if config.Sampler.Chains <= 0 {
		return errors.ConfigInvalid("SAMPLER_CHAINS must be positive")
	}
	if config.Sampler.Warmup >= config.Sampler.Iterations {
		return errors.ConfigInvalid("SAMPLER_WARMUP must be below SAMPLER_ITERATIONS")
	}
	if config.Fit.MaxIterations <= 0 {
		return errors.ConfigInvalid("FIT_MAX_ITERATIONS must be positive")
	}
	if config.Fit.Tolerance <= 0 {
		return errors.ConfigInvalid("FIT_TOLERANCE must be positive")
	}
	if config.Fit.MaxComponents < 1 {
		return errors.ConfigInvalid("FIT_MAX_COMPONENTS must be at least 1")
	}
	switch config.ESS.Method {
	case "moment", "morita", "elir":
	default:
		return errors.ConfigInvalid("ESS_METHOD must be moment, morita or elir")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultMs int) time.Duration {
	return time.Duration(getEnvIntOrDefault(key, defaultMs))
}
