package retrieval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Save writes the index as JSON next to path and renames it into place, so
// readers never see a partial artifact.
func Save(path string, idx *Index) error {
	raw, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	// Each writer gets its own temp file; the server and a CLI rebuild may
	// save at the same time.
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(raw); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write index: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write index: %w", err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

// LoadIndex reads an artifact written by Save and checks its shape.
func LoadIndex(path string) (*Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var idx Index
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, fmt.Errorf("decode index %s: %w", path, err)
	}
	if len(idx.Chunks) != len(idx.Vectors) {
		return nil, fmt.Errorf("invalid index %s: %d chunks but %d vectors", path, len(idx.Chunks), len(idx.Vectors))
	}
	backend, err := BackendFor(idx.Backend, idx.Model.Dims)
	if err != nil {
		return nil, fmt.Errorf("invalid index %s: %w", path, err)
	}
	idx.backend = backend
	return &idx, nil
}
