package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Local stores objects as files under a root directory, one file per key.
type Local struct {
	root string
}

var _ Store = (*Local)(nil)

func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Local{root: root}, nil
}

func (l *Local) Put(ctx context.Context, name string, r io.Reader) (string, int64, error) {
	key := uuid.NewString() + filepath.Ext(name)

	f, err := os.Create(filepath.Join(l.root, key))
	if err != nil {
		return "", 0, fmt.Errorf("create object: %w", err)
	}

	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(filepath.Join(l.root, key))
		return "", 0, fmt.Errorf("write object: %w", err)
	}

	return key, size, nil
}

func (l *Local) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(l.root, filepath.Base(key)))
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", key, err)
	}
	return f, nil
}

func (l *Local) Delete(ctx context.Context, key string) error {
	err := os.Remove(filepath.Join(l.root, filepath.Base(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}
