package transport

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type cbState int

const (
	cbClosed cbState = iota
	cbOpen
	cbHalfOpen
)

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled             bool
	FailureThreshold    int
	RecoveryTimeout     time.Duration
	HalfOpenMaxRequests int
}

// CircuitBreaker stops fetches after consecutive failures so callers get
// their defaults without waiting on a backend that is down
type CircuitBreaker struct {
	cfg             CircuitBreakerConfig
	state           cbState
	failures        int
	halfOpenSuccess int
	lastFailureAt   time.Time
	now             func() time.Time
	mu              sync.Mutex
}

// NewCircuitBreaker creates a new CircuitBreaker
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 2
	}
	return &CircuitBreaker{
		cfg:   cfg,
		state: cbClosed,
		now:   time.Now,
	}
}

// AllowRequest returns true if a request should be allowed
func (cb *CircuitBreaker) AllowRequest() bool {
	if !cb.cfg.Enabled {
		return true
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case cbHalfOpen:
		return cb.halfOpenSuccess < cb.cfg.HalfOpenMaxRequests
	case cbOpen:
		if cb.now().Sub(cb.lastFailureAt) >= cb.cfg.RecoveryTimeout {
			cb.state = cbHalfOpen
			cb.halfOpenSuccess = 0
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess records a successful request
func (cb *CircuitBreaker) RecordSuccess() {
	if !cb.cfg.Enabled {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case cbHalfOpen:
		cb.halfOpenSuccess++
		if cb.halfOpenSuccess >= cb.cfg.HalfOpenMaxRequests {
			cb.state = cbClosed
			cb.failures = 0
		}
	case cbClosed:
		cb.failures = 0
	}
}

// RecordFailure records a failed request
func (cb *CircuitBreaker) RecordFailure() {
	if !cb.cfg.Enabled {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureAt = cb.now()

	switch cb.state {
	case cbClosed:
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.state = cbOpen
		}
	case cbHalfOpen:
		cb.state = cbOpen
		cb.halfOpenSuccess = 0
	}
}

// IsOpen reports whether requests are currently rejected
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state == cbOpen
}

// Guard wraps a Transport with a circuit breaker
type Guard struct {
	next    Transport
	breaker *CircuitBreaker
	logger  zerolog.Logger
}

// NewGuard creates a Guard around next
func NewGuard(next Transport, cfg CircuitBreakerConfig, logger zerolog.Logger) *Guard {
	return &Guard{
		next:    next,
		breaker: NewCircuitBreaker(cfg),
		logger:  logger.With().Str("transport", "guard").Logger(),
	}
}

// Breaker returns the underlying circuit breaker
func (g *Guard) Breaker() *CircuitBreaker {
	return g.breaker
}

// Fetch forwards to the wrapped transport unless the breaker is open
func (g *Guard) Fetch(ctx context.Context, req *Request) (Nodes, error) {
	if !g.breaker.AllowRequest() {
		return nil, newError(KindNetwork, 0, ErrCircuitOpen)
	}

	nodes, err := g.next.Fetch(ctx, req)
	if err != nil {
		wasOpen := g.breaker.IsOpen()
		g.breaker.RecordFailure()
		if !wasOpen && g.breaker.IsOpen() {
			g.logger.Warn().Err(err).Msg("circuit breaker opened")
		}
		return nil, err
	}

	g.breaker.RecordSuccess()
	return nodes, nil
}

// Close closes the wrapped transport
func (g *Guard) Close() {
	g.next.Close()
}
