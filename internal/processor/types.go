package processor

// UploadResponse mirrors the payload returned by POST /upload.
type UploadResponse struct {
	Status      string `json:"status"`
	DownloadURL string `json:"download_url"`
}

// JobID returns the remote job id embedded in the download reference.
func (r UploadResponse) JobID() string {
	return JobIDFromDownloadURL(r.DownloadURL)
}

// StatusResponse mirrors GET /status/{id}.
type StatusResponse struct {
	Status   string           `json:"status"`
	Progress *ProgressPayload `json:"progress"`
}

// ProgressPayload carries the optional processing counters. Any field may be
// missing from the response.
type ProgressPayload struct {
	LinesProcessed *int     `json:"lines_processed"`
	Departments    *int     `json:"departments"`
	TimeElapsed    *float64 `json:"time_elapsed"`
}

// Artifact describes a downloaded result.
type Artifact struct {
	Filename    string // from Content-Disposition, may be empty
	ContentType string
	Bytes       int64
}
