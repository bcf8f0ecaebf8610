package djedi

// Node is a resolved content node
type Node struct {
	URI   string  `json:"uri"`   // fully expanded identifier, e.g. i18n://en-us@page/title.txt
	Value *string `json:"value"` // nil when the node is absent and the caller gave no default
}

// Request asks for one node
type Request struct {
	URI   string  `json:"uri"`   // compact identifier
	Value *string `json:"value"` // default used when the node cannot be loaded
}

// Callback receives the node a request resolved to
type Callback func(Node)

// String returns a pointer to s, for request defaults
func String(s string) *string {
	return &s
}
