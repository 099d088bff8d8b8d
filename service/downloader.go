package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"shorts-worker/pkg/contentstore"
)

// Downloader fetches a source video's bytes end-to-end into the content
// store. The call settles only after both the fetch process exited
// cleanly and the store upload completed.
type Downloader interface {
	Download(ctx context.Context, videoRef string) (contentstore.Object, error)
}

// FetchDownloader shells out to yt-dlp and pipes its stdout straight
// into a content store upload, never buffering the file in memory.
// Cancelling ctx kills the process, aborts the upload and settles the
// call with ErrAborted; a stream error arriving after cancellation does
// not overwrite that outcome.
type FetchDownloader struct {
	Store  *contentstore.Store
	Binary string
	Args   []string
}

func NewFetchDownloader(store *contentstore.Store, binary string) *FetchDownloader {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &FetchDownloader{
		Store:  store,
		Binary: binary,
		Args:   []string{"-f", "b", "-o", "-", "--no-warnings", "--no-playlist", "--quiet"},
	}
}

func (d *FetchDownloader) Download(ctx context.Context, videoRef string) (contentstore.Object, error) {
	args := append(append([]string{}, d.Args...), watchURL(videoRef))
	cmd := exec.CommandContext(ctx, d.Binary, args...)

	// The fetch tool spawns helper processes that inherit the stdout
	// pipe; killing only the direct child would leave the pipe open and
	// the copy below blocked until the helpers exit. Run the tool in its
	// own process group and tear the whole group down.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error { return killGroup(cmd) }
	cmd.WaitDelay = 5 * time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return contentstore.Object{}, &ProcessError{Tool: d.Binary, Err: err}
	}

	up := d.Store.BeginUpload(ctx, videoRef+".mp4", contentstore.Metadata{
		"content-type": "video/mp4",
		"video-ref":    videoRef,
	})

	if err := cmd.Start(); err != nil {
		perr := &ProcessError{Tool: d.Binary, Err: err}
		up.Abort(perr)
		return contentstore.Object{}, perr
	}

	zerolog.Ctx(ctx).Info().
		Str("video_ref", videoRef).
		Str("blob_id", up.BlobID()).
		Msg("download started")

	_, copyErr := io.Copy(up.Writer(), stdout)
	if copyErr != nil {
		// The sink failed; the process would block writing to a dead pipe.
		_ = killGroup(cmd)
	}
	waitErr := cmd.Wait()

	// Abort wins ties: once cancellation fired, process and stream
	// errors are consequences, not causes.
	if ctx.Err() != nil {
		up.Abort(ErrAborted)
		return contentstore.Object{}, ErrAborted
	}
	if copyErr != nil {
		// A sink failure killed the process above, so its exit status is
		// a consequence too. The upload may already be settled with the
		// real storage failure; prefer that over the raw pipe error.
		up.Abort(copyErr)
		if _, uerr := up.Wait(context.WithoutCancel(ctx)); uerr != nil && !errors.Is(copyErr, uerr) {
			return contentstore.Object{}, uerr
		}
		return contentstore.Object{}, fmt.Errorf("stream download to store: %w", copyErr)
	}
	if waitErr != nil {
		perr := &ProcessError{Tool: d.Binary, Stderr: stderrTail(stderr.Bytes()), Err: waitErr}
		up.Abort(perr)
		return contentstore.Object{}, perr
	}

	if err := up.Writer().Close(); err != nil {
		up.Abort(err)
		return contentstore.Object{}, fmt.Errorf("close upload sink: %w", err)
	}
	obj, err := up.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// The upload may have settled complete in the same instant;
			// abort is a no-op then, so delete the blob explicitly.
			up.Abort(ErrAborted)
			_ = d.Store.Delete(context.WithoutCancel(ctx), up.BlobID())
			return contentstore.Object{}, ErrAborted
		}
		return contentstore.Object{}, err
	}
	if ctx.Err() != nil {
		_ = d.Store.Delete(context.WithoutCancel(ctx), obj.BlobID)
		return contentstore.Object{}, ErrAborted
	}

	zerolog.Ctx(ctx).Info().
		Str("video_ref", videoRef).
		Str("blob_id", obj.BlobID).
		Int64("length", obj.Length).
		Msg("download stored")

	return obj, nil
}

// killGroup delivers SIGKILL to the command's process group. The child
// is the group leader (Setpgid), so helpers it spawned die with it.
func killGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}

func watchURL(videoRef string) string {
	if strings.Contains(videoRef, "://") {
		return videoRef
	}
	return "https://www.youtube.com/watch?v=" + videoRef
}
