package config

import (
	"time"

	"djedigo/pkg/uri"
)

// TransportKind selects how nodes are fetched
type TransportKind string

const (
	TransportHTTP TransportKind = "http"
	TransportWS   TransportKind = "ws"
)

// Config represents the main configuration structure
type Config struct {
	BaseURL         string                `json:"baseUrl"`
	BatchInterval   int                   `json:"batchInterval"`  // ms, 0 flushes on the next timer tick
	Language        string                `json:"language"`
	LogLevel        string                `json:"logLevel"`
	RequestTimeout  int                   `json:"requestTimeout"` // ms
	Transport       TransportKind         `json:"transport"`
	WSURL           string                `json:"wsUrl"` // overrides the endpoint derived from baseUrl
	RemovedLogSize  int                   `json:"removedLogSize"`
	ParserCacheSize int                   `json:"parserCacheSize"`
	CircuitBreaker  *CircuitBreakerConfig `json:"circuitBreaker,omitempty"`
	URI             *uri.Config           `json:"uri,omitempty"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled             bool `json:"enabled"`
	FailureThreshold    int  `json:"failureThreshold"`
	RecoveryTimeout     int  `json:"recoveryTimeout"` // ms
	HalfOpenMaxRequests int  `json:"halfOpenMaxRequests"`
}

// Default values
const (
	DefaultBaseURL             = "http://localhost:8000/djedi/api"
	DefaultBatchInterval       = 10 // ms
	DefaultLanguage            = "en-us"
	DefaultLogLevel            = "info"
	DefaultRequestTimeout      = 5000 // ms
	DefaultTransport           = TransportHTTP
	DefaultRemovedLogSize      = 1000
	DefaultParserCacheSize     = 4096
	DefaultFailureThreshold    = 5
	DefaultRecoveryTimeout     = 30000 // ms
	DefaultHalfOpenMaxRequests = 1
)

// GetBatchIntervalDuration returns batch interval as time.Duration
func (c *Config) GetBatchIntervalDuration() time.Duration {
	return time.Duration(c.BatchInterval) * time.Millisecond
}

// GetRequestTimeoutDuration returns request timeout as time.Duration
func (c *Config) GetRequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Millisecond
}

// IsCircuitBreakerEnabled returns true if circuit breaker is configured and enabled
func (c *Config) IsCircuitBreakerEnabled() bool {
	return c.CircuitBreaker != nil && c.CircuitBreaker.Enabled
}

// GetURIConfig returns the identifier configuration, falling back to the
// djedi defaults
func (c *Config) GetURIConfig() uri.Config {
	if c.URI == nil {
		return uri.DefaultConfig()
	}
	return c.URI.Clone()
}

// GetRecoveryTimeoutDuration returns recovery timeout as time.Duration
func (c *CircuitBreakerConfig) GetRecoveryTimeoutDuration() time.Duration {
	return time.Duration(c.RecoveryTimeout) * time.Millisecond
}
