package service

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Window is one [start,end] cut in seconds from the start of the input.
type Window struct {
	Start float64
	End   float64
}

type TrimOptions struct {
	OutputDir string
	Overwrite bool
}

// Trimmer produces one local output file per requested window.
type Trimmer interface {
	Trim(ctx context.Context, inputPath string, windows []Window, opts TrimOptions) ([]string, error)
}

// FFmpegTrimmer cuts sub-clips with ffmpeg in stream-copy mode, one
// invocation per window. A failing window fails the whole call with the
// window index attached; outputs of earlier windows are left in place
// for the caller to dispose of.
type FFmpegTrimmer struct {
	Binary string
}

func NewFFmpegTrimmer(binary string) *FFmpegTrimmer {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegTrimmer{Binary: binary}
}

func (t *FFmpegTrimmer) Trim(ctx context.Context, inputPath string, windows []Window, opts TrimOptions) ([]string, error) {
	if len(windows) == 0 {
		return nil, fmt.Errorf("no trim windows given: %w", ErrInvalidInput)
	}
	for i, w := range windows {
		if w.Start < 0 || w.End <= w.Start {
			return nil, &InvalidWindowError{Index: i, Start: w.Start, End: w.End}
		}
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputs := make([]string, 0, len(windows))
	for i, w := range windows {
		out := clipOutputPath(opts.OutputDir, base, i)
		args := []string{"-hide_banner", "-loglevel", "error"}
		if opts.Overwrite {
			args = append(args, "-y")
		} else {
			args = append(args, "-n")
		}
		args = append(args,
			"-ss", formatTimestamp(w.Start),
			"-i", inputPath,
			"-t", formatTimestamp(w.End-w.Start),
			"-c", "copy",
			"-avoid_negative_ts", "make_zero",
			out,
		)

		cmd := exec.CommandContext(ctx, t.Binary, args...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		zerolog.Ctx(ctx).Debug().
			Str("input", inputPath).
			Str("output", out).
			Str("start", formatTimestamp(w.Start)).
			Str("duration", formatTimestamp(w.End-w.Start)).
			Msg("cutting clip")

		if err := cmd.Run(); err != nil {
			perr := &ProcessError{Tool: t.Binary, Stderr: stderrTail(stderr.Bytes()), Err: err}
			return outputs, fmt.Errorf("window %d: %w", i, perr)
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

// clipOutputPath builds a unique output name so repeated trims of the
// same input never collide.
func clipOutputPath(dir, base string, idx int) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return filepath.Join(dir, fmt.Sprintf("%s_clip%d_%s.mp4", base, idx+1, suffix))
}

// formatTimestamp renders seconds as HH:MM:SS with millisecond
// precision. Trailing zero fraction digits are stripped; whole seconds
// carry no fractional suffix.
func formatTimestamp(seconds float64) string {
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3_600_000
	m := ms % 3_600_000 / 60_000
	s := ms % 60_000 / 1_000
	frac := ms % 1_000
	if frac == 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d:%02d.%s", h, m, s, strings.TrimRight(fmt.Sprintf("%03d", frac), "0"))
}
