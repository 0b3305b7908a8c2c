package journal

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/golang/snappy"
)

// Export writes the full journal as a snappy-compressed JSON array.
// Intended for handoff to external persistence; the journal itself stays
// in memory.
func (j *Journal) Export(w io.Writer) error {
	entries := j.Entries(nil)

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal journal: %w", err)
	}

	compressed := snappy.Encode(nil, data)
	if _, err := w.Write(compressed); err != nil {
		return fmt.Errorf("failed to write journal export: %w", err)
	}

	return nil
}

// Import decodes a snappy-compressed export into a slice of entries.
// Used by external consumers to verify round trips; never mutates the
// journal.
func Import(r io.Reader) ([]Entry, error) {
	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal export: %w", err)
	}

	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress journal export: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal journal export: %w", err)
	}

	return entries, nil
}
