package cache

import "djedigo/pkg/uri"

// Store defines the interface for the node store.
// Entries are keyed by expanded identifier, never by compact string, and
// live until they are overwritten, deleted or the store is reset.
type Store interface {
	// Get retrieves a node value by identifier
	// Returns the value and true if found, "" and false otherwise
	Get(id uri.Identifier) (string, bool)

	// Set stores a node value, replacing any previous value
	Set(id uri.Identifier, value string)

	// SetMany stores all nodes in one step
	SetMany(nodes map[uri.Identifier]string)

	// Has reports whether a node is stored
	Has(id uri.Identifier) bool

	// Delete removes a node and reports whether it was present
	Delete(id uri.Identifier) bool

	// Len returns the number of stored nodes
	Len() int

	// Reset removes all nodes
	Reset()
}
