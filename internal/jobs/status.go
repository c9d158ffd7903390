package jobs

// Status represents the lifecycle state of an extraction job. These
// values must match the text values stored in the database
// (ai_jobs.status).
//
// Centralizing these here avoids scattering string literals like
// "pending" or "completed" across packages.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether a job in this status will never
// transition again (except via retry, which creates a new job).
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// ValidInputType reports whether t is an accepted job input type.
func ValidInputType(t string) bool {
	switch t {
	case "text", "html", "url":
		return true
	}
	return false
}
