// Package job defines the upload job record tracked by ferry and the mapping
// between processing-service tokens and display labels.
package job

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Job is one submitted file and everything ferry has learned about it.
type Job struct {
	ID          uuid.UUID
	FileName    string
	LocalPath   string
	RemoteJobID string
	Status      Status
	Token       string
	DownloadURL string
	Progress    *Progress

	SubmittedAt time.Time
	UpdatedAt   time.Time
	CheckedAt   time.Time
	Checks      int

	// Confirmed flips once the upload response has been recorded.
	Confirmed    bool
	DownloadedTo string
}

// New creates a pending job for a local file.
func New(path string, now time.Time) Job {
	return Job{
		ID:          uuid.New(),
		FileName:    filepath.Base(path),
		LocalPath:   path,
		Status:      StatusPending,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
}

// Label is the status text shown to the user. Unrecognised tokens are shown
// exactly as the server sent them.
func (j Job) Label() string {
	if j.Status == StatusUnknown {
		if j.Token == "" {
			return StatusUnknown.String()
		}
		return j.Token
	}
	return j.Status.String()
}

// ApplyToken records a server token and the status it maps to.
func (j *Job) ApplyToken(token string) {
	j.Token = token
	j.Status = ParseToken(token)
}

// HasDownload reports whether the download reference is usable.
func (j Job) HasDownload() bool {
	return j.Status == StatusCompleted && j.DownloadURL != ""
}

// DownloadLink returns the download URL once the job is Completed, else "".
// Before that the URL only identifies the job for status checks.
func (j Job) DownloadLink() string {
	if !j.HasDownload() {
		return ""
	}
	return j.DownloadURL
}

// Clone returns a deep copy.
func (j Job) Clone() Job {
	if j.Progress != nil {
		p := j.Progress.Clone()
		j.Progress = &p
	}
	return j
}

// Progress holds optional processing counters reported by the status endpoint.
type Progress struct {
	LinesProcessed *int
	Departments    *int
	ElapsedSeconds *float64
}

// Merge overwrites fields that are present in next and keeps the rest.
func (p *Progress) Merge(next Progress) {
	if next.LinesProcessed != nil {
		v := *next.LinesProcessed
		p.LinesProcessed = &v
	}
	if next.Departments != nil {
		v := *next.Departments
		p.Departments = &v
	}
	if next.ElapsedSeconds != nil {
		v := *next.ElapsedSeconds
		p.ElapsedSeconds = &v
	}
}

// Clone returns a copy that shares no pointers with p.
func (p Progress) Clone() Progress {
	var out Progress
	out.Merge(p)
	return out
}

// Empty reports whether no counter has been reported.
func (p *Progress) Empty() bool {
	return p == nil || (p.LinesProcessed == nil && p.Departments == nil && p.ElapsedSeconds == nil)
}

// LinesText renders the lines counter, blank when absent.
func (p *Progress) LinesText() string {
	if p == nil || p.LinesProcessed == nil {
		return ""
	}
	return strconv.Itoa(*p.LinesProcessed)
}

// DepartmentsText renders the departments counter, blank when absent.
func (p *Progress) DepartmentsText() string {
	if p == nil || p.Departments == nil {
		return ""
	}
	return strconv.Itoa(*p.Departments)
}

// ElapsedText renders elapsed seconds with two decimals, blank when absent.
func (p *Progress) ElapsedText() string {
	if p == nil || p.ElapsedSeconds == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *p.ElapsedSeconds)
}
