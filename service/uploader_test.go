package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeTitle(t *testing.T) {
	assert.Equal(t, "Untitled Short", sanitizeTitle(""))
	assert.Equal(t, "Untitled Short", sanitizeTitle("   \n  "))
	assert.Equal(t, "My Clip", sanitizeTitle("  My Clip  "))

	long := strings.Repeat("x", 150)
	assert.Len(t, sanitizeTitle(long), maxTitleLen)
}

func TestSanitizeTitleTruncatesRunesNotBytes(t *testing.T) {
	long := strings.Repeat("é", 120)
	got := sanitizeTitle(long)
	assert.Equal(t, strings.Repeat("é", maxTitleLen), got)
}

func TestSanitizeDescription(t *testing.T) {
	assert.Equal(t, "", sanitizeDescription("  "))
	long := strings.Repeat("d", maxDescriptionLen+100)
	assert.Len(t, sanitizeDescription(long), maxDescriptionLen)
}

func TestSanitizeTags(t *testing.T) {
	got := sanitizeTags([]string{" shorts ", "", "   ", "clip", strings.Repeat("t", 40)})
	assert.Equal(t, []string{"shorts", "clip", strings.Repeat("t", maxTagLen)}, got)

	many := make([]string, 25)
	for i := range many {
		many[i] = "tag"
	}
	assert.Len(t, sanitizeTags(many), maxTags)
}

func TestSanitizeVisibility(t *testing.T) {
	assert.Equal(t, "public", sanitizeVisibility("Public"))
	assert.Equal(t, "unlisted", sanitizeVisibility(" unlisted "))
	assert.Equal(t, "private", sanitizeVisibility("friends-only"))
	assert.Equal(t, "private", sanitizeVisibility(""))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "video/mp4", contentTypeFor("/tmp/clip.mp4"))
	assert.Equal(t, "video/mp4", contentTypeFor("/tmp/clip.M4V"))
	assert.Equal(t, "video/quicktime", contentTypeFor("clip.mov"))
	assert.Equal(t, "video/webm", contentTypeFor("clip.webm"))
	assert.Equal(t, "video/x-matroska", contentTypeFor("clip.mkv"))
	assert.Equal(t, "video/*", contentTypeFor("clip.avi"))
	assert.Equal(t, "video/*", contentTypeFor("clip"))
}
