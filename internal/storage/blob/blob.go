package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store keeps attachment blobs on local disk under a single root. Memory
// deletion releases the referenced blob through Remove.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &Store{root: root}, nil
}

// URLFor returns the reference stored on a memory for a blob name.
func (s *Store) URLFor(name string) string {
	return "blob://" + name
}

// Remove deletes the blob referenced by url. A reference that does not use the
// blob scheme belongs to an external host and is left alone. Removing a blob
// that is already gone is not an error.
func (s *Store) Remove(ctx context.Context, url string) error {
	name, ok := strings.CutPrefix(url, "blob://")
	if !ok {
		return nil
	}

	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove blob: %w", err)
	}
	return nil
}

// resolve maps a blob name to a path, rejecting anything that would escape the
// root.
func (s *Store) resolve(name string) (string, error) {
	path := filepath.Join(s.root, name)
	if !strings.HasPrefix(path, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return "", fmt.Errorf("blob name %q escapes the store root", name)
	}
	return path, nil
}
