package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/hazz-dev/webcheck/internal/registry"
)

// FileStore keeps the snapshot as a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a store for the JSON document at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context) (registry.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return registry.Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return registry.Snapshot{}, fmt.Errorf("reading snapshot %q: %w", s.path, err)
	}
	snap, err := Decode(data)
	if err != nil {
		return registry.Snapshot{}, fmt.Errorf("parsing snapshot %q: %w", s.path, err)
	}
	return snap, nil
}

// Save writes the snapshot to a temporary file and renames it into place,
// so readers never see a partial document.
func (s *FileStore) Save(_ context.Context, snap registry.Snapshot) (err error) {
	data, err := Encode(snap)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp snapshot in %q: %w", dir, err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, ignoreNotExist(os.Remove(tmp.Name())))
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return multierr.Append(fmt.Errorf("writing snapshot: %w", err), tmp.Close())
	}
	if err := tmp.Sync(); err != nil {
		return multierr.Append(fmt.Errorf("syncing snapshot: %w", err), tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing snapshot %q: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

func ignoreNotExist(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
