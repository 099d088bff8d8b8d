package entities

import (
	"time"

	"shorts-worker/constant"
)

// DownloadRecord is a point-in-time snapshot of one download attempt.
// The coordinator owns the live record; everything handed to callers and
// subscribers is a copy of this value.
type DownloadRecord struct {
	ID          string                  `json:"id"`
	VideoRef    string                  `json:"video_ref"`
	SessionID   string                  `json:"session_id"`
	Status      constant.DownloadStatus `json:"status"`
	BlobID      string                  `json:"blob_id,omitempty"`
	Filename    string                  `json:"filename,omitempty"`
	Length      int64                   `json:"length"`
	Error       string                  `json:"error,omitempty"`
	StartedAt   time.Time               `json:"started_at"`
	CompletedAt time.Time               `json:"completed_at,omitempty"`
	UpdatedAt   time.Time               `json:"updated_at"`
}
