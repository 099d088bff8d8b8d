package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"shorts-worker/entities"
)

const (
	maxTitleLen       = 100
	maxDescriptionLen = 5000
	maxTagLen         = 30
	maxTags           = 15
	defaultTitle      = "Untitled Short"
	defaultVisibility = "private"
	defaultCategoryID = "22" // People & Blogs
)

var allowedVisibilities = map[string]bool{
	"private":  true,
	"unlisted": true,
	"public":   true,
}

type UploadInput struct {
	FilePath    string
	Title       string
	Description string
	Tags        []string
	Visibility  string
	CategoryID  string
}

type UploadResult struct {
	RemoteID    string
	Credentials entities.TokenSet
}

// Uploader pushes one finished local file to the destination platform.
type Uploader interface {
	Upload(ctx context.Context, in UploadInput, creds entities.TokenSet) (UploadResult, error)
}

// YouTubeUploader publishes clips through the YouTube Data API v3. The
// file is streamed rather than read into memory, and the latest token
// snapshot from the oauth2 source is returned so the caller can persist
// refreshed credentials.
type YouTubeUploader struct {
	OAuth *oauth2.Config
}

func NewYouTubeUploader(oauth *oauth2.Config) *YouTubeUploader {
	return &YouTubeUploader{OAuth: oauth}
}

func (u *YouTubeUploader) Upload(ctx context.Context, in UploadInput, creds entities.TokenSet) (UploadResult, error) {
	f, err := os.Open(in.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return UploadResult{}, fmt.Errorf("clip file %s: %w", in.FilePath, ErrNotFound)
		}
		return UploadResult{}, fmt.Errorf("open clip file: %w", err)
	}
	defer f.Close()

	ts := u.OAuth.TokenSource(ctx, &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    creds.TokenType,
		Expiry:       creds.Expiry,
	})
	svc, err := youtube.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return UploadResult{}, fmt.Errorf("youtube service: %w", err)
	}

	categoryID := in.CategoryID
	if categoryID == "" {
		categoryID = defaultCategoryID
	}
	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       sanitizeTitle(in.Title),
			Description: sanitizeDescription(in.Description),
			Tags:        sanitizeTags(in.Tags),
			CategoryId:  categoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: sanitizeVisibility(in.Visibility),
		},
	}

	zerolog.Ctx(ctx).Info().
		Str("file", in.FilePath).
		Str("title", video.Snippet.Title).
		Str("visibility", video.Status.PrivacyStatus).
		Msg("uploading clip")

	res, err := svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(f, googleapi.ContentType(contentTypeFor(in.FilePath))).
		Context(ctx).
		Do()
	if err != nil {
		return UploadResult{}, fmt.Errorf("youtube insert: %w", err)
	}
	if res == nil || res.Id == "" {
		return UploadResult{}, ErrRemoteRejected
	}

	out := UploadResult{RemoteID: res.Id, Credentials: creds}
	if tok, err := ts.Token(); err == nil {
		out.Credentials = entities.TokenSet{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			Scope:        creds.Scope,
			TokenType:    tok.Type(),
			Expiry:       tok.Expiry,
		}
		// A refresh response may omit the refresh token; keep the old one.
		if out.Credentials.RefreshToken == "" {
			out.Credentials.RefreshToken = creds.RefreshToken
		}
	}
	return out, nil
}

func sanitizeTitle(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultTitle
	}
	return truncate(s, maxTitleLen)
}

func sanitizeDescription(s string) string {
	return truncate(strings.TrimSpace(s), maxDescriptionLen)
}

func sanitizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, truncate(t, maxTagLen))
		if len(out) == maxTags {
			break
		}
	}
	return out
}

func sanitizeVisibility(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if allowedVisibilities[v] {
		return v
	}
	return defaultVisibility
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	default:
		return "video/*"
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
