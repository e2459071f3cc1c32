package speech

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Cache contents are volatile by default; persistence happens only when
// the external layer asks for it, through these two calls.

// SaveSnapshot writes the cache's live entries to path as a
// zstd-compressed gob stream. The write is atomic: a temp file is renamed
// into place.
func SaveSnapshot(path string, c *Cache) error {
	entries := c.entries()

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(entries); err != nil {
		return fmt.Errorf("unable to encode cache snapshot: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("unable to create zstd encoder: %w", err)
	}
	compressed := encoder.EncodeAll(raw.Bytes(), nil)
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("unable to close zstd encoder: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("unable to create snapshot directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, compressed, 0o644); err != nil {
		return fmt.Errorf("unable to write cache snapshot: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath) //nolint:errcheck
		return fmt.Errorf("unable to finalize cache snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a snapshot written by SaveSnapshot into the cache.
// Entries past their TTL are dropped on the first lookup, as usual. A
// missing snapshot file is not an error.
func LoadSnapshot(path string, c *Cache) error {
	compressed, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("unable to read cache snapshot: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return fmt.Errorf("unable to create zstd decoder: %w", err)
	}
	defer decoder.Close()

	raw, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return fmt.Errorf("corrupt cache snapshot: %w", err)
	}

	var entries []*Entry
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&entries); err != nil {
		return fmt.Errorf("corrupt cache snapshot: %w", err)
	}

	// Oldest first so LRU order ends up matching the saved order.
	for i := len(entries) - 1; i >= 0; i-- {
		if err := c.Put(entries[i]); err != nil && err != ErrItemTooLarge {
			return err
		}
	}
	return nil
}
