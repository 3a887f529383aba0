package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DiskStore writes blobs into a local directory. It backs development
// setups that run without an object store.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	name, err := objectName(contentType)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write blob %s: %w", name, err)
	}
	return name, nil
}

func (s *DiskStore) Delete(ctx context.Context, name string) error {
	if !validName(name) {
		return ErrInvalidName
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove blob %s: %w", name, err)
	}
	return nil
}
