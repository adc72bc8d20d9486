// Package codec implements the wire format shared by the HTTP API and the
// realtime channel: JSON with snake_case field names, a fixed UTC timestamp
// layout, and string tokens for non-finite floats.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Encode marshals v into the wire format.
func Encode(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	// json.Encoder appends a trailing newline.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode unmarshals wire-format data into v. v must be a non-nil pointer.
func Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}
