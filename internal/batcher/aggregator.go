package batcher

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"djedigo/internal/cache"
	"djedigo/pkg/uri"
)

// Executor loads one batch of nodes. The returned map holds the nodes the
// backend knows; identifiers it has no content for are simply absent.
type Executor interface {
	ExecuteBatch(ctx context.Context, group string, entries []Entry) (map[uri.Identifier]string, error)
}

// ExecutorFunc adapts a function to the Executor interface
type ExecutorFunc func(ctx context.Context, group string, entries []Entry) (map[uri.Identifier]string, error)

// ExecuteBatch calls f
func (f ExecutorFunc) ExecuteBatch(ctx context.Context, group string, entries []Entry) (map[uri.Identifier]string, error) {
	return f(ctx, group, entries)
}

// Aggregator collects store misses into per-group buckets and flushes each
// bucket as a single batch when its window closes
type Aggregator struct {
	store    cache.Store
	executor Executor
	interval time.Duration
	buckets  map[string]*bucket // grouping key -> accumulating bucket
	inFlight map[string]int     // grouping key -> batches being fetched
	closed   bool
	after    afterFunc
	logger   zerolog.Logger
	mu       sync.Mutex
	wg       sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewAggregator creates a new batch aggregator
func NewAggregator(store cache.Store, executor Executor, interval time.Duration, logger zerolog.Logger) *Aggregator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Aggregator{
		store:    store,
		executor: executor,
		interval: interval,
		buckets:  make(map[string]*bucket),
		inFlight: make(map[string]int),
		after:    realAfterFunc,
		logger:   logger.With().Str("component", "batcher").Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetInterval changes the window length for buckets opened afterwards
func (a *Aggregator) SetInterval(interval time.Duration) {
	a.mu.Lock()
	a.interval = interval
	a.mu.Unlock()
}

// Interval returns the current window length
func (a *Aggregator) Interval() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interval
}

// Add requests the node id.
//
// When the store has the node, cb runs before Add returns. Otherwise the
// request joins the bucket for the identifier's grouping key and cb runs on
// the flush goroutine once the batch is resolved. cb is called exactly once.
func (a *Aggregator) Add(id uri.Identifier, def *string, cb Callback) {
	if value, ok := a.store.Get(id); ok {
		cb(id, &value)
		return
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		cb(id, def)
		return
	}

	group := id.GroupingKey()
	b := a.buckets[group]
	if b == nil {
		b = newBucket(group)
		a.buckets[group] = b
	}
	b.items = append(b.items, &item{
		id:       id,
		def:      def,
		cb:       cb,
		enqueued: time.Now(),
	})

	// Fixed window: only the first request of a bucket arms the timer
	if b.timer == nil {
		b.timer = a.after(a.interval, func() {
			a.flush(a.ctx, b)
		})
	}
	a.mu.Unlock()
}

// flush sends the bucket's requests and answers every caller
func (a *Aggregator) flush(ctx context.Context, b *bucket) {
	a.mu.Lock()
	if a.buckets[b.group] != b {
		// already taken by FlushAll
		a.mu.Unlock()
		return
	}
	delete(a.buckets, b.group)
	if b.timer != nil {
		b.timer.Stop()
	}
	items := b.items
	a.inFlight[b.group]++
	a.wg.Add(1)
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.inFlight[b.group]--
		if a.inFlight[b.group] <= 0 {
			delete(a.inFlight, b.group)
		}
		a.mu.Unlock()
		a.wg.Done()
	}()

	if len(items) == 0 {
		return
	}

	entries := b.entries()
	a.logger.Debug().
		Str("group", b.group).
		Int("requests", len(items)).
		Int("nodes", len(entries)).
		Dur("window", time.Since(b.opened)).
		Msg("executing batch")

	var (
		nodes map[uri.Identifier]string
		err   error
	)
	if a.executor == nil {
		a.logger.Error().Str("group", b.group).Msg("batch executor not set")
	} else {
		nodes, err = a.executor.ExecuteBatch(ctx, b.group, entries)
		if err != nil {
			a.logger.Warn().
				Err(err).
				Str("group", b.group).
				Int("nodes", len(entries)).
				Msg("batch failed, answering with defaults")
		}
	}

	values := a.settle(items, nodes, err)
	for i, it := range items {
		a.invoke(it, values[i])
	}

	a.logger.Debug().
		Str("group", b.group).
		Int("requests", len(items)).
		Int("found", len(nodes)).
		Msg("batch completed")
}

// settle turns a batch outcome into one value per item and stores every
// node the response carried. Failures and missing nodes yield the item's
// default and are not stored.
func (a *Aggregator) settle(items []*item, nodes map[uri.Identifier]string, err error) []*string {
	values := make([]*string, len(items))
	for i, it := range items {
		values[i] = it.def
		if err != nil {
			continue
		}
		if value, ok := nodes[it.id]; ok {
			values[i] = &value
		}
	}

	if err == nil && len(nodes) > 0 {
		a.store.SetMany(nodes)
	}
	return values
}

// invoke runs a callback so that a panicking caller cannot keep the rest of
// the batch from being answered
func (a *Aggregator) invoke(it *item, value *string) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().
				Interface("panic", r).
				Str("path", it.id.Path).
				Msg("node callback panicked")
		}
	}()
	it.cb(it.id, value)
}

// Pending returns the number of requests waiting for their window to close
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for _, b := range a.buckets {
		n += len(b.items)
	}
	return n
}

// InFlight returns the number of batches being fetched
func (a *Aggregator) InFlight() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for _, count := range a.inFlight {
		n += count
	}
	return n
}

// FlushAll flushes all accumulating buckets without waiting for their
// windows to close
func (a *Aggregator) FlushAll(ctx context.Context) {
	a.mu.Lock()
	toFlush := make([]*bucket, 0, len(a.buckets))
	for _, b := range a.buckets {
		toFlush = append(toFlush, b)
	}
	a.mu.Unlock()

	for _, b := range toFlush {
		a.flush(ctx, b)
	}
}

// Close flushes pending buckets, waits for batches in flight and rejects
// further batching: later misses are answered with their default.
func (a *Aggregator) Close(ctx context.Context) {
	a.mu.Lock()
	a.closed = true
	for _, b := range a.buckets {
		if b.timer != nil {
			b.timer.Stop()
		}
	}
	a.mu.Unlock()

	a.FlushAll(ctx)

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn().Msg("batches still in flight at close")
	}

	a.cancel()
	a.logger.Info().Msg("batch aggregator closed")
}
