package collection

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/orchestra/internal/ir"
)

// MarshalJSON renders the collection as a JSON object whose keys follow
// insertion order.
func (c *Collection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	i := 0
	for id, e := range c.All() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("collection: entity %q: %w", id, err)
		}
		buf.Write(val)
		i++
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Snapshot returns the entities as an IRArray in insertion order.
func (c *Collection) Snapshot() ir.IRArray {
	out := make(ir.IRArray, 0, c.Len())
	for _, e := range c.All() {
		out = append(out, e)
	}
	return out
}

// Digest returns the content digest of the ordered entity list.
// Equal collections share a digest.
func (c *Collection) Digest() (string, error) {
	canonical, err := ir.MarshalCanonical(c.Snapshot())
	if err != nil {
		return "", fmt.Errorf("collection digest: %w", err)
	}
	return ir.HashWithDomain(ir.DomainCollection, canonical), nil
}
