package dbtypes

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONDocument stores an opaque JSON value in a jsonb column. An empty
// document is written as NULL.
type JSONDocument json.RawMessage

func (d *JSONDocument) Scan(src any) error {
	if src == nil {
		*d = nil
		return nil
	}

	switch v := src.(type) {
	case string:
		return d.assign([]byte(v))
	case []byte:
		return d.assign(v)
	default:
		return fmt.Errorf("JSONDocument: unsupported Scan type %T", src)
	}
}

func (d JSONDocument) Value() (driver.Value, error) {
	if d.IsEmpty() {
		return nil, nil
	}
	if !json.Valid(d) {
		return nil, fmt.Errorf("JSONDocument: invalid json")
	}
	return string(d), nil
}

// IsEmpty reports whether the document carries no value.
func (d JSONDocument) IsEmpty() bool {
	trimmed := bytes.TrimSpace(d)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// MarshalJSON emits the document verbatim, or null when empty.
func (d JSONDocument) MarshalJSON() ([]byte, error) {
	if d.IsEmpty() {
		return []byte("null"), nil
	}
	return d, nil
}

// UnmarshalJSON keeps a copy of the raw bytes.
func (d *JSONDocument) UnmarshalJSON(data []byte) error {
	if d == nil {
		return fmt.Errorf("JSONDocument: UnmarshalJSON on nil pointer")
	}
	*d = append((*d)[0:0], data...)
	return nil
}

func (d *JSONDocument) assign(b []byte) error {
	if len(bytes.TrimSpace(b)) == 0 {
		*d = nil
		return nil
	}
	if !json.Valid(b) {
		return fmt.Errorf("JSONDocument: invalid json in column")
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	*d = JSONDocument(cp)
	return nil
}
