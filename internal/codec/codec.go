// Package codec provides the single binary wire codec used for every
// document value and blob payload in the room engine.
package codec

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Marshal encodes v into the wire format used for document entries.
func Marshal(v any) ([]byte, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal: %w", err)
	}
	return b, nil
}

// Unmarshal decodes b into v. Callers must treat any returned error as a
// StateParse failure (spec.md §7): never fatal, always recoverable by
// skipping the offending entry.
func Unmarshal(b []byte, v any) error {
	if err := msgpack.Unmarshal(b, v); err != nil {
		return fmt.Errorf("codec: unmarshal: %w", err)
	}
	return nil
}
