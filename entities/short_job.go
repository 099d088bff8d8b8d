package entities

import (
	"time"

	"shorts-worker/constant"
)

// ShortJobRecord is a snapshot of one shorts-creation job. The job
// coordinator owns the live record and its local work directory; the
// directory is removed exactly once when the job settles.
type ShortJobRecord struct {
	ID         string             `json:"id"`
	DownloadID string             `json:"download_id"`
	SessionID  string             `json:"session_id"`
	VideoRef   string             `json:"video_ref,omitempty"`
	Clip       ClipSpec           `json:"clip"`
	Status     constant.JobStatus `json:"status"`
	Step       constant.JobStep   `json:"step,omitempty"`
	Message    string             `json:"message,omitempty"`
	LocalPath  string             `json:"local_path,omitempty"`
	RemoteID   string             `json:"remote_id,omitempty"`
	Error      string             `json:"error,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}
