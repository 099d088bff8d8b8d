package constant

type DownloadStatus string

const (
	DownloadStatusPending     DownloadStatus = "PENDING"
	DownloadStatusDownloading DownloadStatus = "DOWNLOADING"
	DownloadStatusCompleted   DownloadStatus = "COMPLETED"
	DownloadStatusCancelled   DownloadStatus = "CANCELLED"
	DownloadStatusFailed      DownloadStatus = "FAILED"
)

func (s DownloadStatus) Terminal() bool {
	return s == DownloadStatusCompleted || s == DownloadStatusCancelled || s == DownloadStatusFailed
}

func (s DownloadStatus) String() string {
	return string(s)
}

type JobStatus string

const (
	JobStatusQueued     JobStatus = "QUEUED"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
	JobStatusCancelled  JobStatus = "CANCELLED"
)

func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

func (s JobStatus) String() string {
	return string(s)
}

// Public maps an internal job status onto the read model exposed to API
// consumers. Cancelled jobs are reported as failed at this boundary.
func (s JobStatus) Public() string {
	switch s {
	case JobStatusQueued:
		return "queued"
	case JobStatusProcessing:
		return "processing"
	case JobStatusCompleted:
		return "completed"
	default:
		return "failed"
	}
}

// JobStep is an observability sub-label carried while a job is PROCESSING.
type JobStep string

const (
	JobStepWaitingForDownload JobStep = "waiting_for_download"
	JobStepTrimming           JobStep = "trimming"
	JobStepUploading          JobStep = "uploading"
)

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}
