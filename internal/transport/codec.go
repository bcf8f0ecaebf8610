package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// encodeNodes writes entries as a JSON object of compact identifier to
// default, keeping the entry order
func encodeNodes(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal uri: %w", err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		if e.Default == nil {
			buf.WriteString("null")
			continue
		}
		value, err := json.Marshal(*e.Default)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal default: %w", err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeNodes parses a node mapping; values must be strings or null
func decodeNodes(data []byte) (Nodes, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, errors.New("payload is not a JSON object")
	}

	var nodes Nodes
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("failed to parse nodes: %w", err)
	}
	return nodes, nil
}
