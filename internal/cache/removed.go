package cache

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"djedigo/pkg/uri"
)

// DefaultRemovedLogSize is the number of removal reports kept by default
const DefaultRemovedLogSize = 1000

// RemovedLog records identifiers reported as removed so they can later be
// reconciled with the backend. It is bounded: once full, the oldest report
// is forgotten. Unknown identifiers are accepted.
type RemovedLog struct {
	cache *lru.Cache[uri.Identifier, time.Time]
}

// NewRemovedLog creates a removal log holding up to size identifiers
func NewRemovedLog(size int) (*RemovedLog, error) {
	cache, err := lru.New[uri.Identifier, time.Time](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &RemovedLog{cache: cache}, nil
}

// Add records a removal. Reporting the same identifier again refreshes it.
func (r *RemovedLog) Add(id uri.Identifier) {
	r.cache.Add(id, time.Now())
}

// Contains reports whether id has been reported as removed
func (r *RemovedLog) Contains(id uri.Identifier) bool {
	return r.cache.Contains(id)
}

// ReportedAt returns the time id was last reported
func (r *RemovedLog) ReportedAt(id uri.Identifier) (time.Time, bool) {
	return r.cache.Peek(id)
}

// List returns the recorded identifiers, oldest first
func (r *RemovedLog) List() []uri.Identifier {
	return r.cache.Keys()
}

// Len returns the number of recorded identifiers
func (r *RemovedLog) Len() int {
	return r.cache.Len()
}

// Reset forgets all reports
func (r *RemovedLog) Reset() {
	r.cache.Purge()
}
