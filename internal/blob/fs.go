package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FSStore stores attachment blobs on the local filesystem. Intended for
// development and single-instance deployments.
type FSStore struct {
	dir string
}

// NewFSStore creates a filesystem-backed blob store rooted at dir,
// creating the directory if needed.
func NewFSStore(dir string) (*FSStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("fs blob store requires a directory")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}

	return &FSStore{dir: dir}, nil
}

// Put writes content to a file under the store's root. The key may
// contain slashes; intermediate directories are created.
func (s *FSStore) Put(_ context.Context, key, _ string, content []byte) (string, error) {
	path := filepath.Join(s.dir, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create blob subdirectory: %w", err)
	}

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob %s: %w", key, err)
	}

	return "file://" + path, nil
}

func (s *FSStore) Name() string {
	return "fs"
}
