package contentstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Metadata is opaque key/value information attached to a stored blob.
type Metadata map[string]string

// Object describes a fully written blob.
type Object struct {
	BlobID string
	Name   string
	Length int64
}

// ErrNotFound is returned when a blob id does not exist in the store.
var ErrNotFound = errors.New("contentstore: blob not found")

// StorageError wraps a backend failure with the operation that caused it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("contentstore: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// Backend is the raw object layer underneath the store. Put reads the
// whole stream and reports the byte count; Open must return ErrNotFound
// for unknown blob ids.
type Backend interface {
	Put(ctx context.Context, blobID string, r io.Reader, meta Metadata) (int64, error)
	Open(ctx context.Context, blobID string) (io.ReadCloser, error)
	Remove(ctx context.Context, blobID string) error
}

// Store is append-only streaming storage for large binary objects,
// addressable by an opaque blob id. Blobs are immutable once their
// upload settles.
type Store struct {
	backend Backend
}

func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Upload is one in-flight write into the store. The producer pipes bytes
// into Writer and closes it; Wait settles with the finished Object or
// the first failure. Abort races safely against natural completion:
// whichever settles first wins and the loser is a no-op.
type Upload struct {
	store  *Store
	blobID string
	name   string

	pr     *io.PipeReader
	pw     *io.PipeWriter
	cancel context.CancelFunc

	done chan struct{}

	mu      sync.Mutex
	settled bool
	obj     Object
	err     error
}

// BeginUpload opens a write channel into the store. The upload keeps
// running even if ctx is cancelled later; termination goes through
// Abort or a writer close.
func (s *Store) BeginUpload(ctx context.Context, name string, meta Metadata) *Upload {
	blobID := uuid.NewString() + strings.ToLower(filepath.Ext(name))
	putCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	pr, pw := io.Pipe()

	up := &Upload{
		store:  s,
		blobID: blobID,
		name:   name,
		pr:     pr,
		pw:     pw,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer cancel()
		n, err := s.backend.Put(putCtx, blobID, pr, meta)
		if err != nil {
			pr.CloseWithError(err)
			up.fail(storageErr("put "+blobID, err))
			return
		}
		up.complete(Object{BlobID: blobID, Name: name, Length: n})
	}()

	return up
}

func (u *Upload) BlobID() string {
	return u.blobID
}

// Writer is the sink the producer pipes bytes into. Closing it cleanly
// completes the upload.
func (u *Upload) Writer() io.WriteCloser {
	return u.pw
}

// Wait blocks until the upload settles or ctx expires.
func (u *Upload) Wait(ctx context.Context) (Object, error) {
	select {
	case <-u.done:
		u.mu.Lock()
		defer u.mu.Unlock()
		return u.obj, u.err
	case <-ctx.Done():
		return Object{}, ctx.Err()
	}
}

// Abort halts the write and best-effort deletes the partial blob. A
// second abort, or an abort after natural completion, is a no-op.
func (u *Upload) Abort(reason error) {
	if reason == nil {
		reason = errors.New("contentstore: upload aborted")
	}
	u.mu.Lock()
	if u.settled {
		u.mu.Unlock()
		return
	}
	u.err = reason
	u.settled = true
	close(u.done)
	u.mu.Unlock()

	u.pr.CloseWithError(reason)
	u.cancel()
	_ = u.store.backend.Remove(context.Background(), u.blobID)
}

func (u *Upload) complete(obj Object) {
	u.mu.Lock()
	if u.settled {
		u.mu.Unlock()
		// Abort won the race; the blob that slipped through must not survive.
		_ = u.store.backend.Remove(context.Background(), u.blobID)
		return
	}
	u.obj = obj
	u.settled = true
	close(u.done)
	u.mu.Unlock()
}

func (u *Upload) fail(err error) {
	u.mu.Lock()
	if u.settled {
		u.mu.Unlock()
		return
	}
	u.err = err
	u.settled = true
	close(u.done)
	u.mu.Unlock()

	_ = u.store.backend.Remove(context.Background(), u.blobID)
}

// Delete removes a blob. Missing ids are not an error.
func (s *Store) Delete(ctx context.Context, blobID string) error {
	if blobID == "" {
		return nil
	}
	if err := s.backend.Remove(ctx, blobID); err != nil && !errors.Is(err, ErrNotFound) {
		return storageErr("remove "+blobID, err)
	}
	return nil
}

// OpenRead opens a stored blob for streaming reads.
func (s *Store) OpenRead(ctx context.Context, blobID string) (io.ReadCloser, error) {
	r, err := s.backend.Open(ctx, blobID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("open "+blobID, err)
	}
	return r, nil
}

// MaterializeToFile copies the full blob into a freshly created local
// file and returns its path. When targetDir is empty a private temp
// directory is created for it.
func (s *Store) MaterializeToFile(ctx context.Context, blobID, targetDir string) (string, error) {
	r, err := s.OpenRead(ctx, blobID)
	if err != nil {
		return "", err
	}
	defer r.Close()

	if targetDir == "" {
		targetDir, err = os.MkdirTemp("", "shorts-*")
		if err != nil {
			return "", storageErr("materialize "+blobID, err)
		}
	} else if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", storageErr("materialize "+blobID, err)
	}

	path := filepath.Join(targetDir, filepath.Base(blobID))
	f, err := os.Create(path)
	if err != nil {
		return "", storageErr("materialize "+blobID, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", storageErr("materialize "+blobID, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", storageErr("materialize "+blobID, err)
	}
	return path, nil
}
