package batcher

import (
	"time"

	"djedigo/pkg/uri"
)

// Callback receives the outcome of a lookup: the node value, or the default
// the caller supplied when the node could not be loaded
type Callback func(id uri.Identifier, value *string)

// Entry is one distinct identifier of a flushed batch with the default of
// the first request that asked for it
type Entry struct {
	ID      uri.Identifier
	Default *string
}

// item is a pending request
type item struct {
	id       uri.Identifier
	def      *string
	cb       Callback
	enqueued time.Time
}

// stopper is the part of *time.Timer the aggregator needs
type stopper interface {
	Stop() bool
}

// afterFunc schedules f after d on another goroutine
type afterFunc func(d time.Duration, f func()) stopper

func realAfterFunc(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}

// bucket accumulates the requests of one grouping key during one window
type bucket struct {
	group  string
	items  []*item
	timer  stopper
	opened time.Time
}

func newBucket(group string) *bucket {
	return &bucket{
		group:  group,
		items:  make([]*item, 0, 4),
		opened: time.Now(),
	}
}

// entries returns one entry per distinct identifier, in first-request order
func (b *bucket) entries() []Entry {
	seen := make(map[uri.Identifier]struct{}, len(b.items))
	out := make([]Entry, 0, len(b.items))
	for _, it := range b.items {
		if _, ok := seen[it.id]; ok {
			continue
		}
		seen[it.id] = struct{}{}
		out = append(out, Entry{ID: it.id, Default: it.def})
	}
	return out
}
