package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NodesPath is appended to the base URL for node fetches
const NodesPath = "/nodes/"

// maxErrorBody limits how much of a failed response ends up in the error
const maxErrorBody = 512

// HTTPConfig for creating a new HTTPTransport
type HTTPConfig struct {
	RequestTimeout time.Duration
	Client         *http.Client // optional, overrides RequestTimeout
	Logger         zerolog.Logger
}

// HTTPTransport fetches nodes with one POST per round-trip
type HTTPTransport struct {
	httpClient *http.Client
	stats      Stats
	logger     zerolog.Logger
}

// NewHTTPTransport creates a new HTTPTransport
func NewHTTPTransport(cfg HTTPConfig) *HTTPTransport {
	httpClient := cfg.Client
	if httpClient == nil {
		transport := &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		}
		httpClient = &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		}
	}

	return &HTTPTransport{
		httpClient: httpClient,
		logger:     cfg.Logger.With().Str("transport", "http").Logger(),
	}
}

// Stats returns the request counters
func (t *HTTPTransport) Stats() *Stats {
	return &t.stats
}

// Fetch posts the requested nodes and their defaults to {baseURL}/nodes/
func (t *HTTPTransport) Fetch(ctx context.Context, req *Request) (Nodes, error) {
	nodes, err := t.fetch(ctx, req)
	t.stats.record(err)
	return nodes, err
}

func (t *HTTPTransport) fetch(ctx context.Context, req *Request) (Nodes, error) {
	body, err := encodeNodes(req.Entries)
	if err != nil {
		return nil, newError(KindPayload, 0, err)
	}

	endpoint := strings.TrimSuffix(req.BaseURL, "/") + NodesPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, newError(KindNetwork, 0, fmt.Errorf("failed to create HTTP request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	t.logger.Debug().
		Str("url", endpoint).
		Str("target", req.Target.String()).
		Int("nodes", len(req.Entries)).
		Msg("fetching nodes")

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, newError(KindNetwork, 0, fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newError(KindStatus, resp.StatusCode, fmt.Errorf("HTTP error: %s", strings.TrimSpace(string(snippet))))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(KindNetwork, 0, fmt.Errorf("failed to read response: %w", err))
	}

	nodes, err := decodeNodes(data)
	if err != nil {
		return nil, newError(KindPayload, 0, err)
	}
	return nodes, nil
}

// Close releases idle connections
func (t *HTTPTransport) Close() {
	t.httpClient.CloseIdleConnections()
}
