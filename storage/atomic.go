package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// tempPattern names in-flight snapshots next to the store file.
const tempPattern = ".ytinsight-*.tmp"

// writeJSONAtomic encodes v as indented JSON into a temp file in the target
// directory, fsyncs it and renames it over path. Readers see either the old
// snapshot or the new one. The temp file is created 0600 and the rename
// keeps that mode.
func writeJSONAtomic(path string, v any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), tempPattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	committed = true
	return nil
}
