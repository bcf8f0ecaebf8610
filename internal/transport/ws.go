package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"djedigo/internal/jsonrpc"
)

// WSPath is appended to the base URL when the websocket endpoint is derived
const WSPath = "/ws/"

const writeWait = 10 * time.Second

// WSConfig for creating a new WSTransport
type WSConfig struct {
	URL              string // fixed endpoint; derived from the request base URL when empty
	RequestTimeout   time.Duration
	HandshakeTimeout time.Duration
	Logger           zerolog.Logger
}

type pendingCall struct {
	conn *websocket.Conn
	ch   chan *jsonrpc.Response
}

// WSTransport multiplexes node fetches as JSON-RPC calls over a single
// websocket connection. The connection is dialed on first use and redialed
// when the endpoint changes or the connection drops.
type WSTransport struct {
	cfg    WSConfig
	dialer websocket.Dialer
	stats  Stats
	logger zerolog.Logger

	conn    *websocket.Conn
	connURL string
	closed  bool
	connMu  sync.Mutex
	writeMu sync.Mutex

	pending   map[int64]pendingCall
	pendingMu sync.Mutex
	reqID     atomic.Int64

	wg sync.WaitGroup
}

// NewWSTransport creates a new WSTransport
func NewWSTransport(cfg WSConfig) *WSTransport {
	handshake := cfg.HandshakeTimeout
	if handshake == 0 {
		handshake = 10 * time.Second
	}
	return &WSTransport{
		cfg:     cfg,
		dialer:  websocket.Dialer{HandshakeTimeout: handshake},
		logger:  cfg.Logger.With().Str("transport", "ws").Logger(),
		pending: make(map[int64]pendingCall),
	}
}

// Stats returns the request counters
func (t *WSTransport) Stats() *Stats {
	return &t.stats
}

// Fetch sends a nodes.load call and waits for its response
func (t *WSTransport) Fetch(ctx context.Context, req *Request) (Nodes, error) {
	nodes, err := t.fetch(ctx, req)
	t.stats.record(err)
	return nodes, err
}

func (t *WSTransport) fetch(ctx context.Context, req *Request) (Nodes, error) {
	endpoint := t.cfg.URL
	if endpoint == "" {
		derived, err := wsEndpoint(req.BaseURL)
		if err != nil {
			return nil, newError(KindNetwork, 0, err)
		}
		endpoint = derived
	}

	body, err := encodeNodes(req.Entries)
	if err != nil {
		return nil, newError(KindPayload, 0, err)
	}

	reqID := t.reqID.Add(1)
	rpcReq, err := jsonrpc.NewRequest(jsonrpc.MethodLoadNodes, jsonrpc.LoadParams{
		Target: req.Target.String(),
		Nodes:  body,
	}, reqID)
	if err != nil {
		return nil, newError(KindPayload, 0, err)
	}
	reqBytes, err := rpcReq.Bytes()
	if err != nil {
		return nil, newError(KindPayload, 0, fmt.Errorf("failed to marshal request: %w", err))
	}

	if t.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.RequestTimeout)
		defer cancel()
	}

	conn, err := t.connect(ctx, endpoint)
	if err != nil {
		return nil, newError(KindNetwork, 0, err)
	}

	respChan := make(chan *jsonrpc.Response, 1)
	t.pendingMu.Lock()
	t.pending[reqID] = pendingCall{conn: conn, ch: respChan}
	t.pendingMu.Unlock()

	t.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	writeErr := conn.WriteMessage(websocket.TextMessage, reqBytes)
	t.writeMu.Unlock()
	if writeErr != nil {
		t.forget(reqID)
		return nil, newError(KindNetwork, 0, fmt.Errorf("failed to send request: %w", writeErr))
	}

	t.logger.Debug().
		Int64("id", reqID).
		Str("target", req.Target.String()).
		Int("nodes", len(req.Entries)).
		Msg("fetching nodes")

	select {
	case resp, ok := <-respChan:
		if !ok || resp == nil {
			return nil, newError(KindNetwork, 0, errors.New("connection closed"))
		}
		if resp.HasError() {
			return nil, newError(KindStatus, resp.Error.Code, resp.Error)
		}
		if resp.ResultIsNull() {
			return nil, newError(KindPayload, 0, errors.New("empty result"))
		}
		nodes, err := decodeNodes(resp.Result)
		if err != nil {
			return nil, newError(KindPayload, 0, err)
		}
		return nodes, nil
	case <-ctx.Done():
		t.forget(reqID)
		return nil, newError(KindNetwork, 0, ctx.Err())
	}
}

// connect returns the connection for endpoint, dialing when needed
func (t *WSTransport) connect(ctx context.Context, endpoint string) (*websocket.Conn, error) {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.closed {
		return nil, ErrClosed
	}
	if t.conn != nil && t.connURL == endpoint {
		return t.conn, nil
	}
	if t.conn != nil {
		// endpoint changed; the old read loop fails its pending calls
		t.conn.Close()
		t.conn = nil
	}

	t.logger.Info().Str("url", endpoint).Msg("WebSocket connecting")
	conn, _, err := t.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect WebSocket: %w", err)
	}

	t.conn = conn
	t.connURL = endpoint
	t.wg.Add(1)
	go t.readLoop(conn)

	t.logger.Info().Str("url", endpoint).Msg("WebSocket connected")
	return conn, nil
}

// readLoop routes responses to their pending calls until conn fails
func (t *WSTransport) readLoop(conn *websocket.Conn) {
	defer t.wg.Done()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.drop(conn, err)
			return
		}

		resp, err := jsonrpc.ParseResponse(data)
		if err != nil {
			t.logger.Debug().Err(err).Msg("ignoring unparsable message")
			continue
		}

		t.pendingMu.Lock()
		call, ok := t.pending[resp.ID]
		if ok {
			delete(t.pending, resp.ID)
		}
		t.pendingMu.Unlock()

		if ok {
			call.ch <- resp
		}
	}
}

// drop forgets conn and fails every call still waiting on it
func (t *WSTransport) drop(conn *websocket.Conn, cause error) {
	t.connMu.Lock()
	if t.conn == conn {
		t.conn = nil
	}
	closed := t.closed
	t.connMu.Unlock()
	conn.Close()

	if !closed {
		t.logger.Warn().Err(cause).Msg("WebSocket disconnected")
	}

	t.pendingMu.Lock()
	for id, call := range t.pending {
		if call.conn == conn {
			close(call.ch)
			delete(t.pending, id)
		}
	}
	t.pendingMu.Unlock()
}

func (t *WSTransport) forget(reqID int64) {
	t.pendingMu.Lock()
	delete(t.pending, reqID)
	t.pendingMu.Unlock()
}

// Close closes the connection; later fetches fail with ErrClosed
func (t *WSTransport) Close() {
	t.connMu.Lock()
	t.closed = true
	conn := t.conn
	t.conn = nil
	t.connMu.Unlock()

	if conn != nil {
		t.logger.Info().Msg("WebSocket closing")
		conn.Close()
	}
	t.wg.Wait()
}

// wsEndpoint derives the websocket URL from an HTTP base URL
func wsEndpoint(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("cannot derive websocket URL from %q", baseURL)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + WSPath
	return u.String(), nil
}
