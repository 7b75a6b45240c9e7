// Package export writes collected photo records to their output formats.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/electronjoe/photocoords/internal/photo"
)

// MarshalJSON renders records as a 4-space indented JSON array.
// Non-ASCII and HTML characters are written verbatim.
func MarshalJSON(records []photo.Record) ([]byte, error) {
	if records == nil {
		records = []photo.Record{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("marshal records: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteJSON writes records to path.
func WriteJSON(path string, records []photo.Record) error {
	data, err := MarshalJSON(records)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// ReadJSON loads records previously written by WriteJSON.
func ReadJSON(path string) ([]photo.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var records []photo.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return records, nil
}
