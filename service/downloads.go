package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"shorts-worker/constant"
	"shorts-worker/entities"
	"shorts-worker/pkg/contentstore"
)

// DownloadListener receives a snapshot after every state change of one
// download. Listeners run synchronously after the mutation is applied;
// panics are swallowed so a listener can never stall a transition.
type DownloadListener func(entities.DownloadRecord)

type downloadState struct {
	record    entities.DownloadRecord
	cancel    context.CancelFunc
	done      chan struct{}
	err       error
	listeners map[int]DownloadListener
	nextSub   int
}

// Downloads is the registry and lifecycle authority for download
// attempts. Each record is driven by exactly one background goroutine;
// callers only ever see value snapshots.
type Downloads struct {
	ctx        context.Context
	store      *contentstore.Store
	downloader Downloader

	mu      sync.RWMutex
	records map[string]*downloadState
	wg      sync.WaitGroup
}

// NewDownloads builds the registry. ctx is the process-lifetime context
// downloads detach onto; cancelling it aborts everything in flight.
func NewDownloads(ctx context.Context, store *contentstore.Store, downloader Downloader) *Downloads {
	return &Downloads{
		ctx:        ctx,
		store:      store,
		downloader: downloader,
		records:    make(map[string]*downloadState),
	}
}

// Start registers a new download and launches it in the background. The
// returned snapshot does not block on completion.
func (d *Downloads) Start(videoRef, sessionID string) (entities.DownloadRecord, error) {
	if videoRef == "" {
		return entities.DownloadRecord{}, fmt.Errorf("video ref is required: %w", ErrInvalidInput)
	}

	runCtx, cancel := context.WithCancel(d.ctx)
	now := time.Now()
	st := &downloadState{
		record: entities.DownloadRecord{
			ID:        uuid.NewString(),
			VideoRef:  videoRef,
			SessionID: sessionID,
			Status:    constant.DownloadStatusPending,
			StartedAt: now,
			UpdatedAt: now,
		},
		cancel:    cancel,
		done:      make(chan struct{}),
		listeners: make(map[int]DownloadListener),
	}

	d.mu.Lock()
	d.records[st.record.ID] = st
	st.record.Status = constant.DownloadStatusDownloading
	snap := st.record
	d.mu.Unlock()
	d.notify(st, snap)

	d.wg.Add(1)
	go d.run(runCtx, st)

	return snap, nil
}

func (d *Downloads) run(ctx context.Context, st *downloadState) {
	defer d.wg.Done()

	obj, err := d.downloader.Download(ctx, st.record.VideoRef)

	d.mu.Lock()
	rec := &st.record
	rec.CompletedAt = time.Now()
	switch {
	case err == nil:
		rec.Status = constant.DownloadStatusCompleted
		rec.BlobID = obj.BlobID
		rec.Filename = obj.Name
		rec.Length = obj.Length
	case errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled):
		rec.Status = constant.DownloadStatusCancelled
		rec.Error = ErrAborted.Error()
		st.err = ErrAborted
	default:
		rec.Status = constant.DownloadStatusFailed
		rec.Error = err.Error()
		st.err = err
	}
	rec.UpdatedAt = rec.CompletedAt
	snap := *rec
	close(st.done)
	d.mu.Unlock()
	d.notify(st, snap)

	switch snap.Status {
	case constant.DownloadStatusCompleted:
		zerolog.Ctx(d.ctx).Info().Str("download_id", snap.ID).Str("blob_id", snap.BlobID).Msg("download completed")
	case constant.DownloadStatusCancelled:
		zerolog.Ctx(d.ctx).Info().Str("download_id", snap.ID).Msg("download cancelled")
	default:
		zerolog.Ctx(d.ctx).Error().Str("download_id", snap.ID).Str("error", snap.Error).Msg("download failed")
	}
}

// Get returns a snapshot of the record, if known.
func (d *Downloads) Get(id string) (entities.DownloadRecord, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	st, ok := d.records[id]
	if !ok {
		return entities.DownloadRecord{}, false
	}
	return st.record, true
}

// Await blocks until the download settles, then resolves exactly as the
// underlying downloader did: nil on success, ErrAborted on cancellation,
// the underlying failure otherwise.
func (d *Downloads) Await(ctx context.Context, id string) (entities.DownloadRecord, error) {
	d.mu.RLock()
	st, ok := d.records[id]
	d.mu.RUnlock()
	if !ok {
		return entities.DownloadRecord{}, fmt.Errorf("download %s: %w", id, ErrNotFound)
	}

	select {
	case <-st.done:
	case <-ctx.Done():
		return entities.DownloadRecord{}, ctx.Err()
	}

	d.mu.RLock()
	snap, err := st.record, st.err
	d.mu.RUnlock()
	return snap, err
}

// Cancel signals a non-terminal download and waits for it to settle.
// For an already-terminal record it is a no-op unless deleteBlob is set,
// which deletes the stored blob and clears the record's blob fields
// while keeping its status. Returns false only for unknown ids.
func (d *Downloads) Cancel(ctx context.Context, id string, deleteBlob bool) bool {
	d.mu.RLock()
	st, ok := d.records[id]
	var terminal bool
	if ok {
		terminal = st.record.Status.Terminal()
	}
	d.mu.RUnlock()
	if !ok {
		return false
	}

	if !terminal {
		st.cancel()
		select {
		case <-st.done:
		case <-ctx.Done():
			return true
		}
	}

	if deleteBlob {
		d.mu.RLock()
		blobID := st.record.BlobID
		d.mu.RUnlock()
		if blobID != "" {
			if err := d.store.Delete(ctx, blobID); err != nil {
				zerolog.Ctx(d.ctx).Warn().Err(err).Str("download_id", id).Msg("failed to delete blob")
			}
			d.mu.Lock()
			st.record.BlobID = ""
			st.record.Filename = ""
			st.record.Length = 0
			st.record.UpdatedAt = time.Now()
			snap := st.record
			d.mu.Unlock()
			d.notify(st, snap)
		}
	}
	return true
}

// Subscribe delivers every subsequent state transition of the download
// to listener until the returned unsubscribe func is called.
func (d *Downloads) Subscribe(id string, listener DownloadListener) (func(), bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.records[id]
	if !ok {
		return nil, false
	}
	sub := st.nextSub
	st.nextSub++
	st.listeners[sub] = listener
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(st.listeners, sub)
	}, true
}

// Join blocks until every in-flight download goroutine has finished.
func (d *Downloads) Join() {
	d.wg.Wait()
}

func (d *Downloads) notify(st *downloadState, snap entities.DownloadRecord) {
	d.mu.RLock()
	listeners := make([]DownloadListener, 0, len(st.listeners))
	for _, l := range st.listeners {
		listeners = append(listeners, l)
	}
	d.mu.RUnlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					zerolog.Ctx(d.ctx).Warn().Interface("panic", r).Msg("download listener panicked")
				}
			}()
			l(snap)
		}()
	}
}
