package dto

import (
	"shorts-worker/entities"
)

// ShortsRequestMessage is the queue message that starts a download plus
// a shorts job in one step.
type ShortsRequestMessage struct {
	VideoID   string            `json:"videoId"`
	SessionID string            `json:"sessionId"`
	Clip      entities.ClipSpec `json:"clip"`
}

type StartDownloadRequest struct {
	VideoID   string `json:"videoId" binding:"required"`
	SessionID string `json:"sessionId" binding:"required"`
}

type StartJobRequest struct {
	DownloadID string            `json:"downloadId" binding:"required"`
	SessionID  string            `json:"sessionId" binding:"required"`
	Clip       entities.ClipSpec `json:"clip"`
}

type JobMetadata struct {
	VideoRef  string  `json:"videoRef"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Title     string  `json:"title"`
	Hook      string  `json:"hook,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

// JobPublication is the external read model of a job. Internal states
// fold down to queued|processing|completed|failed and the share URL is
// present only once a remote id exists.
type JobPublication struct {
	JobID    string      `json:"jobId"`
	Status   string      `json:"status"`
	ShareURL string      `json:"shareUrl,omitempty"`
	Message  string      `json:"message"`
	Metadata JobMetadata `json:"metadata"`
}

func NewJobPublication(rec entities.ShortJobRecord) JobPublication {
	pub := JobPublication{
		JobID:   rec.ID,
		Status:  rec.Status.Public(),
		Message: rec.Message,
		Metadata: JobMetadata{
			VideoRef:  rec.VideoRef,
			StartTime: rec.Clip.StartTime,
			EndTime:   rec.Clip.EndTime,
			Title:     rec.Clip.Title,
			Hook:      rec.Clip.Hook,
			Reason:    rec.Clip.Reason,
		},
	}
	if rec.RemoteID != "" {
		pub.ShareURL = "https://www.youtube.com/shorts/" + rec.RemoteID
	}
	return pub
}
