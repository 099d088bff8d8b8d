package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFFmpeg writes an executable that creates its last argument, which
// is where the real binary would put the output file.
func fakeFFmpeg(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\nfor last; do :; done\n: > \"$last\"\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func failingFFmpeg(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\necho 'moov atom not found' >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00"},
		{10, "00:00:10"},
		{59.5, "00:00:59.5"},
		{61.25, "00:01:01.25"},
		{3600, "01:00:00"},
		{3725.001, "01:02:05.001"},
		{12.340, "00:00:12.34"},
		{1.9994, "00:00:01.999"},
		{1.9996, "00:00:02"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, formatTimestamp(c.seconds), "seconds=%v", c.seconds)
	}
}

func TestTrimRejectsInvalidWindows(t *testing.T) {
	trimmer := NewFFmpegTrimmer(fakeFFmpeg(t))
	outDir := t.TempDir()

	for _, w := range []Window{{Start: -1, End: 5}, {Start: 5, End: 5}, {Start: 6, End: 2}} {
		outs, err := trimmer.Trim(context.Background(), "in.mp4", []Window{w}, TrimOptions{OutputDir: outDir})
		assert.Empty(t, outs)
		assert.ErrorIs(t, err, ErrInvalidInput)

		var werr *InvalidWindowError
		require.ErrorAs(t, err, &werr)
		assert.Equal(t, 0, werr.Index)
	}

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "invalid input must produce no files")
}

func TestTrimRejectsBadWindowAmongGoodOnes(t *testing.T) {
	trimmer := NewFFmpegTrimmer(fakeFFmpeg(t))
	windows := []Window{{Start: 0, End: 10}, {Start: 30, End: 20}}

	outs, err := trimmer.Trim(context.Background(), "in.mp4", windows, TrimOptions{OutputDir: t.TempDir()})
	assert.Empty(t, outs)

	var werr *InvalidWindowError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, 1, werr.Index)
}

func TestTrimProducesOneFilePerWindow(t *testing.T) {
	trimmer := NewFFmpegTrimmer(fakeFFmpeg(t))
	outDir := t.TempDir()
	input := filepath.Join(t.TempDir(), "source.mp4")
	require.NoError(t, os.WriteFile(input, []byte("x"), 0o644))

	outs, err := trimmer.Trim(context.Background(), input, []Window{{Start: 0, End: 10}, {Start: 20, End: 30}}, TrimOptions{OutputDir: outDir})
	require.NoError(t, err)
	require.Len(t, outs, 2)

	assert.NotEqual(t, outs[0], outs[1])
	for _, out := range outs {
		assert.Equal(t, outDir, filepath.Dir(out))
		assert.FileExists(t, out)
	}
}

func TestTrimNamesNeverCollideAcrossRuns(t *testing.T) {
	trimmer := NewFFmpegTrimmer(fakeFFmpeg(t))
	outDir := t.TempDir()
	windows := []Window{{Start: 5, End: 50}}

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		outs, err := trimmer.Trim(context.Background(), "video.mp4", windows, TrimOptions{OutputDir: outDir})
		require.NoError(t, err)
		require.Len(t, outs, 1)
		assert.False(t, seen[outs[0]], "output %s produced twice", outs[0])
		seen[outs[0]] = true
	}
}

func TestTrimFailureCarriesWindowIndexAndStderr(t *testing.T) {
	trimmer := NewFFmpegTrimmer(failingFFmpeg(t))

	outs, err := trimmer.Trim(context.Background(), "in.mp4", []Window{{Start: 0, End: 1}}, TrimOptions{OutputDir: t.TempDir()})
	assert.Empty(t, outs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "window 0")

	var perr *ProcessError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Stderr, "moov atom not found")
}

func TestTrimRejectsEmptyWindowList(t *testing.T) {
	trimmer := NewFFmpegTrimmer(fakeFFmpeg(t))

	_, err := trimmer.Trim(context.Background(), "in.mp4", nil, TrimOptions{OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
