package geocache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/couchcryptid/trip-planner-service/internal/domain"
)

// FileStore keeps the cache as one flat JSON object:
//
//	{"The Louvre": {"lat": 48.8606, "lng": 2.3376}, "Nowhere Cafe": null}
//
// The file is rewritten in full on every save.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the file. A missing file is an empty cache, not an error.
func (s *FileStore) Load(_ context.Context) (map[string]domain.Resolution, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]domain.Resolution{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache file: %w", err)
	}

	entries := make(map[string]domain.Resolution)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode cache file %s: %w", s.path, err)
	}
	return entries, nil
}

// Save writes entries to a temporary file and renames it over the target so
// readers never observe a partial file.
func (s *FileStore) Save(_ context.Context, entries map[string]domain.Resolution) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // already failing
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}
