package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is a server-assigned identifier. The server may send it as a JSON
// number or a JSON string; the raw text is kept and sent back in the same
// shape, so the client never has to understand it.
type ID string

func (id ID) String() string { return string(id) }

// IsZero reports whether no identifier has been assigned.
func (id ID) IsZero() bool { return id == "" }

func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if isNumber(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("id: %w", err)
		}
		*id = ID(s)
		return nil
	case isNumber(string(b)):
		*id = ID(b)
		return nil
	}
	return fmt.Errorf("id: unsupported value %s", b)
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '-' && i == 0 && len(s) > 1 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
