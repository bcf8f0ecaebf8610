package transport

import (
	"context"
	"sync/atomic"
)

// Target tells the server whether a fetch serves a batch or a single get
type Target int

const (
	TargetBatch Target = iota
	TargetSingle
)

// String returns the wire name of the target
func (t Target) String() string {
	if t == TargetSingle {
		return "single"
	}
	return "batch"
}

// Entry is one requested node: its compact identifier and the caller's
// default, nil when the caller has none
type Entry struct {
	URI     string
	Default *string
}

// Request describes one network round-trip
type Request struct {
	BaseURL string
	Target  Target
	Entries []Entry
}

// Nodes maps compact identifiers, as echoed by the server, to node values.
// A nil value means the server has no content for that node.
type Nodes map[string]*string

// Transport performs node fetches against the CMS backend.
// Fetch returns either the parsed nodes or an *Error describing why the
// round-trip failed; it never retries.
type Transport interface {
	Fetch(ctx context.Context, req *Request) (Nodes, error)
	Close()
}

// Stats counts round-trips made by a transport
type Stats struct {
	requests atomic.Uint64
	failures atomic.Uint64
}

// Requests returns the number of fetches attempted
func (s *Stats) Requests() uint64 {
	return s.requests.Load()
}

// Failures returns the number of fetches that returned an error
func (s *Stats) Failures() uint64 {
	return s.failures.Load()
}

func (s *Stats) record(err error) {
	s.requests.Add(1)
	if err != nil {
		s.failures.Add(1)
	}
}
