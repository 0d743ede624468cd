// Package storage holds the binary object boundary used for APR images.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ObjectStore is the external blob collaborator: put bytes under a key,
// get back a public URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// FileStore keeps objects on the local filesystem and serves them from
// a static route. Key segments are flattened onto directories.
type FileStore struct {
	root    string
	baseURL string
}

func NewFileStore(root, baseURL string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FileStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *FileStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	clean := filepath.Clean("/" + key) // strip any traversal
	path := filepath.Join(s.root, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	return s.baseURL + "/uploads" + filepath.ToSlash(clean), nil
}

// Root is the directory the router mounts as the /uploads static route.
func (s *FileStore) Root() string { return s.root }
