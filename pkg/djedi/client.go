package djedi

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"djedigo/internal/batcher"
	"djedigo/internal/cache"
	"djedigo/internal/transport"
	"djedigo/pkg/uri"
)

// Client resolves content nodes from its store or the CMS
type Client struct {
	options  Options
	parser   *uri.Parser
	memoSize int
	optMu    sync.RWMutex

	store      *cache.MemoryStore
	removed    *cache.RemovedLog
	aggregator *batcher.Aggregator
	transport  transport.Transport
	logger     zerolog.Logger

	closed bool
	mu     sync.Mutex
	wg     sync.WaitGroup // single fetches started by Get

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Client. Without WithTransport nodes are fetched over
// HTTP from Options.BaseURL.
func New(opts ...Option) (*Client, error) {
	s := &settings{
		options:        DefaultOptions(),
		logger:         zerolog.Nop(),
		removedLogSize: cache.DefaultRemovedLogSize,
		parserMemoSize: uri.DefaultMemoSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	removed, err := cache.NewRemovedLog(s.removedLogSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create removed node log: %w", err)
	}

	tr := s.transport
	if tr == nil {
		tr = transport.NewHTTPTransport(transport.HTTPConfig{
			RequestTimeout: DefaultRequestTimeout,
			Logger:         s.logger,
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		options:   s.options,
		parser:    uri.NewParser(s.options.URI, s.options.Language, s.parserMemoSize),
		memoSize:  s.parserMemoSize,
		store:     cache.NewMemoryStore(),
		removed:   removed,
		transport: tr,
		logger:    s.logger.With().Str("component", "client").Logger(),
		ctx:       ctx,
		cancel:    cancel,
	}
	c.aggregator = batcher.NewAggregator(
		c.store,
		batcher.ExecutorFunc(c.executeBatch),
		s.options.batchInterval(),
		s.logger,
	)

	return c, nil
}

// snapshot returns the options and parser requests are currently made with
func (c *Client) snapshot() (Options, *uri.Parser) {
	c.optMu.RLock()
	defer c.optMu.RUnlock()
	return c.options, c.parser
}

// Get resolves one node with a dedicated request.
//
// A node already in the store is passed to cb before Get returns.
// Otherwise the node is fetched on its own goroutine and cb runs there.
func (c *Client) Get(req Request, cb Callback) {
	opts, p := c.snapshot()
	id := p.Expand(req.URI)

	if value, ok := c.store.Get(id); ok {
		cb(Node{URI: p.Full(id), Value: &value})
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.deliver(cb, Node{URI: p.Full(id), Value: req.Value})
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		c.fetchSingle(opts, p, id, req.Value, cb)
	}()
}

// GetBatched resolves one node, coalescing the request with every other
// miss of the same language made within the batch window.
//
// A node already in the store is passed to cb before GetBatched returns.
// Otherwise cb runs on the goroutine that flushes the batch.
func (c *Client) GetBatched(req Request, cb Callback) {
	_, p := c.snapshot()
	id := p.Expand(req.URI)

	c.aggregator.Add(id, req.Value, func(id uri.Identifier, value *string) {
		cb(Node{URI: p.Full(id), Value: value})
	})
}

func (c *Client) fetchSingle(opts Options, p *uri.Parser, id uri.Identifier, def *string, cb Callback) {
	compact := p.Format(id)
	nodes, err := c.transport.Fetch(c.ctx, &transport.Request{
		BaseURL: opts.BaseURL,
		Target:  transport.TargetSingle,
		Entries: []transport.Entry{{URI: compact, Default: def}},
	})

	value := def
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("kind", transport.KindOf(err).String()).
			Str("uri", compact).
			Msg("failed to load node, using default")
	} else {
		found := resolve(p, map[string]uri.Identifier{compact: id}, nodes)
		if len(found) > 0 {
			c.store.SetMany(found)
		}
		if v, ok := found[id]; ok {
			value = &v
		}
	}

	c.deliver(cb, Node{URI: p.Full(id), Value: value})
}

// executeBatch loads one flushed batch with the options current at flush time
func (c *Client) executeBatch(ctx context.Context, group string, entries []batcher.Entry) (map[uri.Identifier]string, error) {
	opts, p := c.snapshot()

	sent := make(map[string]uri.Identifier, len(entries))
	req := &transport.Request{
		BaseURL: opts.BaseURL,
		Target:  transport.TargetBatch,
		Entries: make([]transport.Entry, 0, len(entries)),
	}
	for _, e := range entries {
		compact := p.Format(e.ID)
		sent[compact] = e.ID
		req.Entries = append(req.Entries, transport.Entry{URI: compact, Default: e.Default})
	}

	nodes, err := c.transport.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to load %d nodes (%s): %w", len(entries), transport.KindOf(err), err)
	}

	found := resolve(p, sent, nodes)
	c.logger.Debug().
		Str("group", group).
		Int("requested", len(entries)).
		Int("found", len(found)).
		Msg("nodes loaded")
	return found, nil
}

// resolve maps echoed keys back to identifiers. Keys the request was made
// with map to the identifier they were formatted from; anything else the
// server returned is expanded. Absent nodes are dropped.
func resolve(p *uri.Parser, sent map[string]uri.Identifier, nodes transport.Nodes) map[uri.Identifier]string {
	out := make(map[uri.Identifier]string, len(nodes))
	for key, value := range nodes {
		if value == nil {
			continue
		}
		id, ok := sent[key]
		if !ok {
			id = p.Expand(key)
		}
		out[id] = *value
	}
	return out
}

// deliver runs cb so that a panicking caller does not take the fetch
// goroutine down with it
func (c *Client) deliver(cb Callback, node Node) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().
				Interface("panic", r).
				Str("uri", node.URI).
				Msg("node callback panicked")
		}
	}()
	cb(node)
}

// AddNodes seeds the store. Keys are compact identifiers expanded with the
// current options.
func (c *Client) AddNodes(nodes map[string]string) {
	_, p := c.snapshot()

	expanded := make(map[uri.Identifier]string, len(nodes))
	for compact, value := range nodes {
		expanded[p.Expand(compact)] = value
	}
	c.store.SetMany(expanded)
}

// ReportRemovedNode records that a node is no longer rendered and drops it
// from the store. Unknown identifiers are accepted.
func (c *Client) ReportRemovedNode(compact string) {
	_, p := c.snapshot()
	id := p.Expand(compact)

	c.removed.Add(id)
	c.store.Delete(id)

	c.logger.Debug().Str("uri", p.Full(id)).Msg("node reported removed")
}

// RemovedNodes returns the reported nodes, oldest report first
func (c *Client) RemovedNodes() []string {
	_, p := c.snapshot()

	ids := c.removed.List()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = p.Full(id)
	}
	return out
}

// Options returns a copy of the current options
func (c *Client) Options() Options {
	opts, _ := c.snapshot()
	return opts.clone()
}

// SetOptions replaces the options. Requests already waiting in a batch are
// sent with the options current when the batch flushes.
func (c *Client) SetOptions(o Options) error {
	if err := o.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	o = o.clone()
	p := uri.NewParser(o.URI, o.Language, c.memoSize)

	c.optMu.Lock()
	c.options = o
	c.parser = p
	c.optMu.Unlock()

	c.aggregator.SetInterval(o.batchInterval())
	c.logger.Debug().
		Str("baseUrl", o.BaseURL).
		Int("batchInterval", o.BatchInterval).
		Str("language", o.Language).
		Msg("options updated")
	return nil
}

// ResetOptions restores the default options
func (c *Client) ResetOptions() {
	// the defaults always validate
	_ = c.SetOptions(DefaultOptions())
}

// ResetNodes empties the store and the removed node log
func (c *Client) ResetNodes() {
	c.store.Reset()
	c.removed.Reset()
}

// Len returns the number of nodes in the store
func (c *Client) Len() int {
	return c.store.Len()
}

// Close flushes pending batches, waits for fetches in flight and closes the
// transport. Requests made after Close get their default.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.aggregator.Close(ctx)

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("close: %w", ctx.Err())
	}

	c.cancel()
	c.transport.Close()
	c.logger.Info().Msg("client closed")
	return err
}
