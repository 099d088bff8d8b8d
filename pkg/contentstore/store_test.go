package contentstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFSStore(t *testing.T) *Store {
	t.Helper()
	backend, err := NewFSBackend(t.TempDir())
	require.NoError(t, err)
	return New(backend)
}

func seedBlob(t *testing.T, store *Store, name, content string) Object {
	t.Helper()
	up := store.BeginUpload(context.Background(), name, nil)
	_, err := io.WriteString(up.Writer(), content)
	require.NoError(t, err)
	require.NoError(t, up.Writer().Close())
	obj, err := up.Wait(context.Background())
	require.NoError(t, err)
	return obj
}

func TestUploadCompletes(t *testing.T) {
	store := newFSStore(t)

	obj := seedBlob(t, store, "video.mp4", "some video bytes")

	assert.Equal(t, int64(len("some video bytes")), obj.Length)
	assert.Equal(t, "video.mp4", obj.Name)
	assert.Equal(t, ".mp4", filepath.Ext(obj.BlobID))

	r, err := store.OpenRead(context.Background(), obj.BlobID)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "some video bytes", string(got))
}

func TestUploadAbortRemovesPartialBlob(t *testing.T) {
	store := newFSStore(t)

	up := store.BeginUpload(context.Background(), "video.mp4", nil)
	_, err := io.WriteString(up.Writer(), "partial")
	require.NoError(t, err)

	reason := errors.New("caller gave up")
	up.Abort(reason)

	_, err = up.Wait(context.Background())
	assert.ErrorIs(t, err, reason)

	_, err = store.OpenRead(context.Background(), up.BlobID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAbortAfterCompletionIsNoop(t *testing.T) {
	store := newFSStore(t)

	obj := seedBlob(t, store, "video.mp4", "done")
	up := store.BeginUpload(context.Background(), "other.mp4", nil)
	require.NoError(t, up.Writer().Close())
	_, err := up.Wait(context.Background())
	require.NoError(t, err)

	up.Abort(errors.New("too late"))

	got, err := up.Wait(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, up.BlobID(), got.BlobID)

	// the earlier blob is untouched
	r, err := store.OpenRead(context.Background(), obj.BlobID)
	require.NoError(t, err)
	r.Close()
}

func TestUploadDoubleAbortIsNoop(t *testing.T) {
	store := newFSStore(t)

	up := store.BeginUpload(context.Background(), "video.mp4", nil)
	first := errors.New("first")
	up.Abort(first)
	up.Abort(errors.New("second"))

	_, err := up.Wait(context.Background())
	assert.ErrorIs(t, err, first)
}

type failBackend struct {
	err error
}

func (b *failBackend) Put(ctx context.Context, blobID string, r io.Reader, _ Metadata) (int64, error) {
	io.Copy(io.Discard, io.LimitReader(r, 4))
	return 0, b.err
}

func (b *failBackend) Open(ctx context.Context, blobID string) (io.ReadCloser, error) {
	return nil, ErrNotFound
}

func (b *failBackend) Remove(ctx context.Context, blobID string) error {
	return nil
}

func TestUploadBackendFailureIsStorageError(t *testing.T) {
	store := New(&failBackend{err: errors.New("disk on fire")})

	up := store.BeginUpload(context.Background(), "video.mp4", nil)
	io.WriteString(up.Writer(), "0123456789")
	up.Writer().Close()

	_, err := up.Wait(context.Background())
	require.Error(t, err)
	var serr *StorageError
	assert.ErrorAs(t, err, &serr)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newFSStore(t)

	obj := seedBlob(t, store, "video.mp4", "x")
	assert.NoError(t, store.Delete(context.Background(), obj.BlobID))
	assert.NoError(t, store.Delete(context.Background(), obj.BlobID))
	assert.NoError(t, store.Delete(context.Background(), "never-existed"))
	assert.NoError(t, store.Delete(context.Background(), ""))
}

func TestOpenReadUnknownBlob(t *testing.T) {
	store := newFSStore(t)

	_, err := store.OpenRead(context.Background(), "nope.mp4")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMaterializeToFile(t *testing.T) {
	store := newFSStore(t)
	obj := seedBlob(t, store, "video.mp4", "full contents here")

	dir := t.TempDir()
	path, err := store.MaterializeToFile(context.Background(), obj.BlobID, dir)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "full contents here", string(got))
}

func TestMaterializeToFileCreatesTempDir(t *testing.T) {
	store := newFSStore(t)
	obj := seedBlob(t, store, "video.mp4", "abc")

	path, err := store.MaterializeToFile(context.Background(), obj.BlobID, "")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(filepath.Dir(path)) })

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestMaterializeUnknownBlob(t *testing.T) {
	store := newFSStore(t)

	_, err := store.MaterializeToFile(context.Background(), "missing.mp4", t.TempDir())
	assert.ErrorIs(t, err, ErrNotFound)
}
