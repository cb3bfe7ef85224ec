// Package file stores tick artifacts on the local filesystem, one directory
// per instrument.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"marketwatcher/internal/memorystore"
	"marketwatcher/pkg/storage"
)

type Store struct {
	root string
	sync func(*os.File) error
}

func NewStore(root string) *Store {
	return &Store{root: root, sync: (*os.File).Sync}
}

// Root returns the base directory.
func (s *Store) Root() string {
	return s.root
}

// Prepare creates <root>/<instrument> if it does not exist.
func (s *Store) Prepare(_ context.Context, instrumentID string) error {
	dir := filepath.Join(s.root, instrumentID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

// Write creates <root>/<key> exclusively. If the name is taken a numeric
// suffix is added rather than overwriting.
func (s *Store) Write(ctx context.Context, instrumentID, key string, ticks []memorystore.Tick) error {
	if len(ticks) == 0 {
		return storage.ErrEmptyBatch
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f, path, err := s.create(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil {
		return err
	}

	if err := storage.EncodeTicks(f, instrumentID, ticks); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := s.sync(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func (s *Store) create(path string) (*os.File, string, error) {
	base := strings.TrimSuffix(path, storage.ArtifactExt)
	candidate := path
	for i := 1; ; i++ {
		f, err := os.OpenFile(candidate, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
		if err == nil {
			return f, candidate, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("create %s: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s-%d%s", base, i, storage.ArtifactExt)
	}
}
