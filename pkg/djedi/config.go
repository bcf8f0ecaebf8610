package djedi

import (
	"github.com/rs/zerolog"

	"djedigo/internal/config"
	"djedigo/internal/transport"
)

// NewFromConfig creates a Client from a loaded configuration file
func NewFromConfig(cfg *config.Config, logger zerolog.Logger) (*Client, error) {
	return New(
		WithOptions(Options{
			BaseURL:       cfg.BaseURL,
			BatchInterval: cfg.BatchInterval,
			Language:      cfg.Language,
			URI:           cfg.GetURIConfig(),
		}),
		WithTransport(newTransport(cfg, logger)),
		WithLogger(logger),
		WithRemovedLogSize(cfg.RemovedLogSize),
		WithParserMemoSize(cfg.ParserCacheSize),
	)
}

func newTransport(cfg *config.Config, logger zerolog.Logger) transport.Transport {
	var tr transport.Transport
	switch cfg.Transport {
	case config.TransportWS:
		tr = transport.NewWSTransport(transport.WSConfig{
			URL:            cfg.WSURL,
			RequestTimeout: cfg.GetRequestTimeoutDuration(),
			Logger:         logger,
		})
	default:
		tr = transport.NewHTTPTransport(transport.HTTPConfig{
			RequestTimeout: cfg.GetRequestTimeoutDuration(),
			Logger:         logger,
		})
	}

	if !cfg.IsCircuitBreakerEnabled() {
		return tr
	}

	cb := cfg.CircuitBreaker
	return transport.NewGuard(tr, transport.CircuitBreakerConfig{
		Enabled:             true,
		FailureThreshold:    cb.FailureThreshold,
		RecoveryTimeout:     cb.GetRecoveryTimeoutDuration(),
		HalfOpenMaxRequests: cb.HalfOpenMaxRequests,
	}, logger)
}
