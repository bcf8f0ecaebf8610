package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// configWithIntervalDefault is used for proper default handling of
// batchInterval, where 0 is a valid explicit value
type configWithIntervalDefault struct {
	Config
	BatchIntervalPtr *int `json:"batchInterval"`
}

// Parse parses a configuration document, applies defaults and validates it
func Parse(data []byte) (*Config, error) {
	var rawCfg configWithIntervalDefault
	if err := json.Unmarshal(data, &rawCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := &rawCfg.Config
	if rawCfg.BatchIntervalPtr != nil {
		cfg.BatchInterval = *rawCfg.BatchIntervalPtr
	} else {
		cfg.BatchInterval = DefaultBatchInterval
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with every field at its default
func Default() *Config {
	cfg := &Config{BatchInterval: DefaultBatchInterval}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Transport == "" {
		cfg.Transport = DefaultTransport
	}
	if cfg.RemovedLogSize == 0 {
		cfg.RemovedLogSize = DefaultRemovedLogSize
	}
	if cfg.ParserCacheSize == 0 {
		cfg.ParserCacheSize = DefaultParserCacheSize
	}

	if cb := cfg.CircuitBreaker; cb != nil {
		if cb.FailureThreshold == 0 {
			cb.FailureThreshold = DefaultFailureThreshold
		}
		if cb.RecoveryTimeout == 0 {
			cb.RecoveryTimeout = DefaultRecoveryTimeout
		}
		if cb.HalfOpenMaxRequests == 0 {
			cb.HalfOpenMaxRequests = DefaultHalfOpenMaxRequests
		}
	}
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	if cfg.BatchInterval < 0 {
		return fmt.Errorf("batchInterval must be non-negative")
	}

	if cfg.RequestTimeout < 0 {
		return fmt.Errorf("requestTimeout must be non-negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("logLevel must be one of: debug, info, warn, error")
	}

	switch cfg.Transport {
	case TransportHTTP:
	case TransportWS:
		if cfg.WSURL == "" && !isAbsolute(cfg.BaseURL) {
			return fmt.Errorf("transport 'ws' needs wsUrl or an absolute baseUrl")
		}
	default:
		return fmt.Errorf("transport must be one of: http, ws")
	}

	if cfg.Transport == TransportHTTP && !isAbsolute(cfg.BaseURL) {
		return fmt.Errorf("baseUrl must be an absolute http(s) url, got '%s'", cfg.BaseURL)
	}

	if cfg.RemovedLogSize < 0 {
		return fmt.Errorf("removedLogSize must be non-negative")
	}

	if cfg.ParserCacheSize < 0 {
		return fmt.Errorf("parserCacheSize must be non-negative")
	}

	if cb := cfg.CircuitBreaker; cb != nil && cb.Enabled {
		if cb.FailureThreshold < 1 {
			return fmt.Errorf("circuitBreaker.failureThreshold must be positive")
		}
		if cb.RecoveryTimeout < 0 {
			return fmt.Errorf("circuitBreaker.recoveryTimeout must be non-negative")
		}
		if cb.HalfOpenMaxRequests < 1 {
			return fmt.Errorf("circuitBreaker.halfOpenMaxRequests must be positive")
		}
	}

	if cfg.URI != nil {
		if err := cfg.URI.Validate(); err != nil {
			return fmt.Errorf("uri: %w", err)
		}
	}

	return nil
}

func isAbsolute(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}
