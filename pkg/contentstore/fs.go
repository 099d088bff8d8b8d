package contentstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// FSBackend stores blobs as plain files under a base directory. It is
// the development and test alternative to the MinIO backend.
type FSBackend struct {
	basePath string
}

func NewFSBackend(basePath string) (*FSBackend, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, err
	}
	return &FSBackend{basePath: basePath}, nil
}

func (b *FSBackend) path(blobID string) string {
	return filepath.Join(b.basePath, filepath.Base(blobID))
}

func (b *FSBackend) Put(ctx context.Context, blobID string, r io.Reader, _ Metadata) (int64, error) {
	path := b.path(blobID)
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(path)
		return 0, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return 0, err
	}
	return n, nil
}

func (b *FSBackend) Open(ctx context.Context, blobID string) (io.ReadCloser, error) {
	f, err := os.Open(b.path(blobID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (b *FSBackend) Remove(ctx context.Context, blobID string) error {
	if err := os.Remove(b.path(blobID)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
