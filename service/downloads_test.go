package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shorts-worker/constant"
	"shorts-worker/entities"
	"shorts-worker/pkg/contentstore"
)

// stubDownloader settles immediately unless block is set, in which case
// it waits for the channel to close or the ctx to cancel.
type stubDownloader struct {
	obj   contentstore.Object
	err   error
	block chan struct{}

	mu    sync.Mutex
	calls int
}

func (s *stubDownloader) Download(ctx context.Context, videoRef string) (contentstore.Object, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return contentstore.Object{}, ErrAborted
		}
	}
	return s.obj, s.err
}

func TestDownloadsStartReturnsDownloading(t *testing.T) {
	d := NewDownloads(context.Background(), newTestStore(t), &stubDownloader{})

	rec, err := d.Start("abc123", "sess1")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "abc123", rec.VideoRef)
	assert.Equal(t, "sess1", rec.SessionID)
	assert.Equal(t, constant.DownloadStatusDownloading, rec.Status)

	got, ok := d.Get(rec.ID)
	assert.True(t, ok)
	assert.Equal(t, rec.ID, got.ID)
	d.Join()
}

func TestDownloadsStartRequiresVideoRef(t *testing.T) {
	d := NewDownloads(context.Background(), newTestStore(t), &stubDownloader{})

	_, err := d.Start("", "sess1")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDownloadsAwaitCompleted(t *testing.T) {
	stub := &stubDownloader{obj: contentstore.Object{BlobID: "blob1.mp4", Name: "abc123.mp4", Length: 7}}
	d := NewDownloads(context.Background(), newTestStore(t), stub)

	rec, err := d.Start("abc123", "sess1")
	require.NoError(t, err)

	got, err := d.Await(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, constant.DownloadStatusCompleted, got.Status)
	assert.Equal(t, "blob1.mp4", got.BlobID)
	assert.Equal(t, "abc123.mp4", got.Filename)
	assert.Equal(t, int64(7), got.Length)
	assert.False(t, got.CompletedAt.IsZero())
}

func TestDownloadsAwaitFailure(t *testing.T) {
	stub := &stubDownloader{err: errors.New("video unavailable")}
	d := NewDownloads(context.Background(), newTestStore(t), stub)

	rec, err := d.Start("abc123", "sess1")
	require.NoError(t, err)

	got, err := d.Await(context.Background(), rec.ID)
	assert.EqualError(t, err, "video unavailable")
	assert.Equal(t, constant.DownloadStatusFailed, got.Status)
	assert.Equal(t, "video unavailable", got.Error)
}

func TestDownloadsAwaitUnknownID(t *testing.T) {
	d := NewDownloads(context.Background(), newTestStore(t), &stubDownloader{})

	_, err := d.Await(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDownloadsCancelInFlight(t *testing.T) {
	stub := &stubDownloader{block: make(chan struct{})}
	d := NewDownloads(context.Background(), newTestStore(t), stub)

	rec, err := d.Start("abc123", "sess1")
	require.NoError(t, err)

	assert.True(t, d.Cancel(context.Background(), rec.ID, false))

	got, ok := d.Get(rec.ID)
	require.True(t, ok)
	assert.Equal(t, constant.DownloadStatusCancelled, got.Status)

	_, err = d.Await(context.Background(), rec.ID)
	assert.ErrorIs(t, err, ErrAborted)
	d.Join()
}

func TestDownloadsCancelUnknownID(t *testing.T) {
	d := NewDownloads(context.Background(), newTestStore(t), &stubDownloader{})
	assert.False(t, d.Cancel(context.Background(), "nope", false))
}

func TestDownloadsCancelCompletedKeepsStatus(t *testing.T) {
	store := newTestStore(t)
	obj := seedStoreBlob(t, store, "abc123.mp4", "bytes")
	stub := &stubDownloader{obj: obj}
	d := NewDownloads(context.Background(), store, stub)

	rec, err := d.Start("abc123", "sess1")
	require.NoError(t, err)
	_, err = d.Await(context.Background(), rec.ID)
	require.NoError(t, err)

	// terminal record without deleteBlob: nothing changes
	assert.True(t, d.Cancel(context.Background(), rec.ID, false))
	got, _ := d.Get(rec.ID)
	assert.Equal(t, constant.DownloadStatusCompleted, got.Status)
	assert.Equal(t, obj.BlobID, got.BlobID)

	// deleteBlob clears the blob fields but keeps the completed status
	assert.True(t, d.Cancel(context.Background(), rec.ID, true))
	got, _ = d.Get(rec.ID)
	assert.Equal(t, constant.DownloadStatusCompleted, got.Status)
	assert.Empty(t, got.BlobID)
	assert.Empty(t, got.Filename)
	assert.Zero(t, got.Length)

	_, err = store.OpenRead(context.Background(), obj.BlobID)
	assert.ErrorIs(t, err, contentstore.ErrNotFound)
	d.Join()
}

func TestDownloadsSubscribeSeesSettle(t *testing.T) {
	stub := &stubDownloader{
		obj:   contentstore.Object{BlobID: "blob1.mp4", Name: "abc123.mp4", Length: 3},
		block: make(chan struct{}),
	}
	d := NewDownloads(context.Background(), newTestStore(t), stub)

	rec, err := d.Start("abc123", "sess1")
	require.NoError(t, err)

	var mu sync.Mutex
	var seen []constant.DownloadStatus
	unsubscribe, ok := d.Subscribe(rec.ID, func(snap entities.DownloadRecord) {
		mu.Lock()
		seen = append(seen, snap.Status)
		mu.Unlock()
	})
	require.True(t, ok)
	defer unsubscribe()

	close(stub.block)
	_, err = d.Await(context.Background(), rec.ID)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.Equal(t, constant.DownloadStatusCompleted, seen[len(seen)-1])
}

func TestDownloadsSubscribeUnknownID(t *testing.T) {
	d := NewDownloads(context.Background(), newTestStore(t), &stubDownloader{})
	_, ok := d.Subscribe("nope", func(entities.DownloadRecord) {})
	assert.False(t, ok)
}

func TestDownloadsListenerPanicDoesNotStallSettle(t *testing.T) {
	stub := &stubDownloader{block: make(chan struct{})}
	d := NewDownloads(context.Background(), newTestStore(t), stub)

	rec, err := d.Start("abc123", "sess1")
	require.NoError(t, err)
	_, ok := d.Subscribe(rec.ID, func(entities.DownloadRecord) { panic("listener bug") })
	require.True(t, ok)

	close(stub.block)
	done := make(chan struct{})
	go func() {
		d.Await(context.Background(), rec.ID)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("settle stalled behind a panicking listener")
	}
}
