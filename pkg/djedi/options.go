package djedi

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"djedigo/internal/transport"
	"djedigo/pkg/uri"
)

// Options are the runtime settings of a Client. They can be replaced at any
// time with SetOptions; requests made afterwards use the new values.
type Options struct {
	BaseURL       string     `json:"baseUrl"`
	BatchInterval int        `json:"batchInterval"` // ms
	Language      string     `json:"language"`
	URI           uri.Config `json:"uri"`
}

// Default option values
const (
	DefaultBaseURL       = "/djedi/api"
	DefaultBatchInterval = 10 // ms
	DefaultLanguage      = "en-us"
)

// DefaultRequestTimeout is used by the HTTP transport New builds when none
// is supplied
const DefaultRequestTimeout = 5 * time.Second

// DefaultOptions returns the stock djedi options
func DefaultOptions() Options {
	return Options{
		BaseURL:       DefaultBaseURL,
		BatchInterval: DefaultBatchInterval,
		Language:      DefaultLanguage,
		URI:           uri.DefaultConfig(),
	}
}

// Validate checks the options for errors
func (o Options) Validate() error {
	if o.BaseURL == "" {
		return errors.New("baseUrl is required")
	}
	if o.BatchInterval < 0 {
		return fmt.Errorf("batchInterval must be non-negative, got %d", o.BatchInterval)
	}
	if o.Language == "" {
		return errors.New("language is required")
	}
	if err := o.URI.Validate(); err != nil {
		return fmt.Errorf("uri: %w", err)
	}
	return nil
}

func (o Options) clone() Options {
	o.URI = o.URI.Clone()
	return o
}

func (o Options) batchInterval() time.Duration {
	return time.Duration(o.BatchInterval) * time.Millisecond
}

// settings collects what New is configured with
type settings struct {
	options        Options
	transport      transport.Transport
	logger         zerolog.Logger
	removedLogSize int
	parserMemoSize int
}

// Option configures a Client
type Option func(*settings)

// WithOptions sets the initial options
func WithOptions(o Options) Option {
	return func(s *settings) {
		s.options = o.clone()
	}
}

// WithTransport sets the transport nodes are fetched with. The client
// closes it on Close.
func WithTransport(t transport.Transport) Option {
	return func(s *settings) {
		s.transport = t
	}
}

// WithLogger sets the logger, zerolog.Nop() by default
func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithRemovedLogSize bounds how many removal reports are kept
func WithRemovedLogSize(size int) Option {
	return func(s *settings) {
		s.removedLogSize = size
	}
}

// WithParserMemoSize sets how many expanded identifiers are memoized
func WithParserMemoSize(size int) Option {
	return func(s *settings) {
		s.parserMemoSize = size
	}
}
