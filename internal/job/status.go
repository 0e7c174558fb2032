package job

import "strings"

// Status is the client-side state of an upload job.
type Status int

const (
	// StatusUnknown is used when the server reports a token ferry does not
	// recognise. The raw token is kept on the job and shown verbatim.
	StatusUnknown Status = iota
	StatusPending
	StatusProcessing
	StatusCompleted
	StatusFailed
	StatusRetrying
)

// Server tokens reported by the processing service.
const (
	TokenPending = "PENDING"
	TokenStarted = "STARTED"
	TokenSuccess = "SUCCESS"
	TokenFailure = "FAILURE"
	TokenRetry   = "RETRY"
)

var tokenStatus = map[string]Status{
	TokenPending: StatusPending,
	TokenStarted: StatusProcessing,
	TokenSuccess: StatusCompleted,
	TokenFailure: StatusFailed,
	TokenRetry:   StatusRetrying,
}

// ParseToken maps a server token onto a Status. Tokens are matched exactly;
// anything else yields StatusUnknown.
func ParseToken(token string) Status {
	if s, ok := tokenStatus[token]; ok {
		return s
	}
	return StatusUnknown
}

// String returns the user-facing label. StatusUnknown has no label of its own;
// use Job.Label to get the verbatim token.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusProcessing:
		return "Processing"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusRetrying:
		return "Retrying"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the poller should stop checking a job.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Key returns a lowercase identifier used for theme colours and counters.
func (s Status) Key() string {
	return strings.ToLower(s.String())
}

// Statuses lists every status in display order.
func Statuses() []Status {
	return []Status{StatusPending, StatusProcessing, StatusRetrying, StatusCompleted, StatusFailed, StatusUnknown}
}
