package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"shorts-worker/constant"
	"shorts-worker/entities"
	"shorts-worker/pkg/contentstore"
	"shorts-worker/repository"
)

var baseClipTags = []string{"shorts", "clip"}

// JobListener receives a snapshot after every state change of one job.
type JobListener func(entities.ShortJobRecord)

type jobState struct {
	record    entities.ShortJobRecord
	listeners map[int]JobListener
	nextSub   int
}

// Shorts orchestrates the full shorts-creation pipeline per job: await
// the referenced download, materialize the blob, trim the clip window,
// upload the result and persist refreshed credentials. Each job runs as
// one background goroutine; callers only ever see value snapshots.
type Shorts struct {
	ctx       context.Context
	downloads *Downloads
	store     *contentstore.Store
	trimmer   Trimmer
	uploader  Uploader
	sessions  repository.SessionRepository

	mu   sync.RWMutex
	jobs map[string]*jobState
	wg   sync.WaitGroup
}

func NewShorts(
	ctx context.Context,
	downloads *Downloads,
	store *contentstore.Store,
	trimmer Trimmer,
	uploader Uploader,
	sessions repository.SessionRepository,
) *Shorts {
	return &Shorts{
		ctx:       ctx,
		downloads: downloads,
		store:     store,
		trimmer:   trimmer,
		uploader:  uploader,
		sessions:  sessions,
		jobs:      make(map[string]*jobState),
	}
}

// Start registers a job referencing an earlier download and schedules
// its pipeline in the background. Returns the initial snapshot without
// blocking on any pipeline step.
func (s *Shorts) Start(downloadID, sessionID string, clip entities.ClipSpec) (entities.ShortJobRecord, error) {
	if downloadID == "" {
		return entities.ShortJobRecord{}, fmt.Errorf("download id is required: %w", ErrInvalidInput)
	}
	if clip.StartTime < 0 || clip.EndTime <= clip.StartTime {
		return entities.ShortJobRecord{}, &InvalidWindowError{Index: 0, Start: clip.StartTime, End: clip.EndTime}
	}

	now := time.Now()
	st := &jobState{
		record: entities.ShortJobRecord{
			ID:         uuid.NewString(),
			DownloadID: downloadID,
			SessionID:  sessionID,
			Clip:       clip,
			Status:     constant.JobStatusQueued,
			Message:    "queued",
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		listeners: make(map[int]JobListener),
	}
	if dl, ok := s.downloads.Get(downloadID); ok {
		st.record.VideoRef = dl.VideoRef
	}

	s.mu.Lock()
	s.jobs[st.record.ID] = st
	snap := st.record
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(st)

	return snap, nil
}

func (s *Shorts) run(st *jobState) {
	defer s.wg.Done()
	ctx := s.ctx
	jobID := st.record.ID

	var workDir string
	defer func() {
		// The work dir holds both the materialized source and the
		// trimmed clip; it is removed exactly once, on every terminal
		// branch. Failures are logged, not surfaced.
		if workDir != "" {
			if err := os.RemoveAll(workDir); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("job_id", jobID).Msg("failed to remove work dir")
			}
		}
	}()

	s.transition(st, func(r *entities.ShortJobRecord) {
		r.Status = constant.JobStatusProcessing
		r.Step = constant.JobStepWaitingForDownload
		r.Message = "waiting for source download"
	})

	dl, err := s.downloads.Await(ctx, st.record.DownloadID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.settleError(st, fmt.Errorf("download %s could not be found: %w", st.record.DownloadID, ErrNotFound))
			return
		}
		if errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled) {
			s.settleCancelled(st, "source download was cancelled")
			return
		}
		s.settleError(st, err)
		return
	}

	workDir, err = os.MkdirTemp("", "shorts-job-")
	if err != nil {
		s.settleError(st, fmt.Errorf("create work dir: %w", err))
		return
	}

	if ok := s.transition(st, func(r *entities.ShortJobRecord) {
		r.VideoRef = dl.VideoRef
		r.Step = constant.JobStepTrimming
		r.Message = "trimming clip"
	}); !ok {
		return
	}

	input, err := s.store.MaterializeToFile(ctx, dl.BlobID, workDir)
	if err != nil {
		s.settleError(st, err)
		return
	}

	clip := st.record.Clip
	outs, err := s.trimmer.Trim(ctx, input, []Window{{Start: clip.StartTime, End: clip.EndTime}}, TrimOptions{OutputDir: workDir})
	if err != nil {
		s.settleError(st, err)
		return
	}
	clipPath := outs[0]

	// A job cancelled while trimming never starts an upload; the
	// transition below refuses on a terminal record.
	if ok := s.transition(st, func(r *entities.ShortJobRecord) {
		r.Step = constant.JobStepUploading
		r.LocalPath = clipPath
		r.Message = "uploading clip"
	}); !ok {
		zerolog.Ctx(ctx).Info().Str("job_id", jobID).Msg("job cancelled before upload, discarding clip")
		return
	}

	session, err := s.sessions.FindSessionById(ctx, st.record.SessionID)
	if err != nil {
		s.settleError(st, fmt.Errorf("load session %s: %w", st.record.SessionID, err))
		return
	}

	res, err := s.uploader.Upload(ctx, UploadInput{
		FilePath:    clipPath,
		Title:       clip.Title,
		Description: composeDescription(clip, dl.VideoRef),
		Tags:        composeTags(clip),
		Visibility:  defaultVisibility,
	}, session.Tokens())
	if err != nil {
		s.settleError(st, err)
		return
	}

	// The remote video exists now; a token-persistence failure must not
	// fail the job and strand it.
	if err := s.sessions.UpdateTokens(ctx, st.record.SessionID, res.Credentials); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("job_id", jobID).Msg("failed to persist refreshed tokens")
	}

	if ok := s.transition(st, func(r *entities.ShortJobRecord) {
		r.Status = constant.JobStatusCompleted
		r.Step = ""
		r.RemoteID = res.RemoteID
		r.Message = "short published"
	}); !ok {
		zerolog.Ctx(ctx).Info().Str("job_id", jobID).Str("remote_id", res.RemoteID).Msg("job cancelled after upload, result discarded")
		return
	}

	zerolog.Ctx(ctx).Info().Str("job_id", jobID).Str("remote_id", res.RemoteID).Msg("job completed")
}

// Get returns a snapshot of the job, if known.
func (s *Shorts) Get(id string) (entities.ShortJobRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.jobs[id]
	if !ok {
		return entities.ShortJobRecord{}, false
	}
	return st.record, true
}

// Cancel requests cancellation of the job's download (keeping its blob)
// and force-transitions the job to cancelled regardless of its current
// step. A trim or upload already running continues; its result is
// discarded. Returns false only for unknown ids.
func (s *Shorts) Cancel(ctx context.Context, jobID string) bool {
	s.mu.RLock()
	st, ok := s.jobs[jobID]
	var downloadID string
	if ok {
		downloadID = st.record.DownloadID
	}
	s.mu.RUnlock()
	if !ok {
		return false
	}

	s.downloads.Cancel(ctx, downloadID, false)
	if s.transition(st, func(r *entities.ShortJobRecord) {
		r.Status = constant.JobStatusCancelled
		r.Step = ""
		r.Message = "cancelled by request"
	}) {
		zerolog.Ctx(s.ctx).Info().Str("job_id", jobID).Msg("job cancelled")
	}
	return true
}

// Subscribe delivers every subsequent state transition of the job to
// listener until the returned unsubscribe func is called.
func (s *Shorts) Subscribe(id string, listener JobListener) (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	sub := st.nextSub
	st.nextSub++
	st.listeners[sub] = listener
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(st.listeners, sub)
	}, true
}

// Join blocks until every in-flight job goroutine has finished.
func (s *Shorts) Join() {
	s.wg.Wait()
}

// transition applies fn to the record and notifies subscribers after the
// mutation is visible. Terminal records are frozen; returns false when
// the transition was refused.
func (s *Shorts) transition(st *jobState, fn func(*entities.ShortJobRecord)) bool {
	s.mu.Lock()
	if st.record.Status.Terminal() {
		s.mu.Unlock()
		return false
	}
	fn(&st.record)
	st.record.UpdatedAt = time.Now()
	snap := st.record
	listeners := make([]JobListener, 0, len(st.listeners))
	for _, l := range st.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					zerolog.Ctx(s.ctx).Warn().Interface("panic", r).Msg("job listener panicked")
				}
			}()
			l(snap)
		}()
	}
	return true
}

func (s *Shorts) settleCancelled(st *jobState, message string) {
	if s.transition(st, func(r *entities.ShortJobRecord) {
		r.Status = constant.JobStatusCancelled
		r.Step = ""
		r.Message = message
		r.Error = ErrAborted.Error()
	}) {
		zerolog.Ctx(s.ctx).Info().Str("job_id", st.record.ID).Str("reason", message).Msg("job cancelled")
	}
}

func (s *Shorts) settleError(st *jobState, err error) {
	if errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled) {
		s.settleCancelled(st, "job cancelled")
		return
	}
	if s.transition(st, func(r *entities.ShortJobRecord) {
		r.Status = constant.JobStatusFailed
		r.Step = ""
		r.Message = err.Error()
		r.Error = err.Error()
	}) {
		zerolog.Ctx(s.ctx).Error().Err(err).Str("job_id", st.record.ID).Msg("job failed")
	}
}

func composeDescription(clip entities.ClipSpec, videoRef string) string {
	var b strings.Builder
	if reason := strings.TrimSpace(clip.Reason); reason != "" {
		b.WriteString(reason)
		b.WriteString("\n\n")
	}
	b.WriteString("Source: ")
	b.WriteString(watchURL(videoRef))
	return b.String()
}

func composeTags(clip entities.ClipSpec) []string {
	tags := append([]string{}, baseClipTags...)
	if hook := strings.TrimSpace(clip.Hook); hook != "" {
		tags = append(tags, hook)
	}
	return tags
}
