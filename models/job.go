package models

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobExhausted JobStatus = "exhausted"
)

// ScrapeJob is one (query, platform) fetch. The dispatcher owns it for its
// whole lifetime; Succeeded and Exhausted are terminal.
type ScrapeJob struct {
	Platform     string    `json:"platform"`
	Query        string    `json:"query"`
	MaxResults   int       `json:"max_results"`
	AttemptCount int       `json:"attempt_count"`
	Status       JobStatus `json:"status"`
	LastError    string    `json:"last_error,omitempty"`
}

// JobFailure is the data value a failed job collapses into. Failures are
// reported alongside results, never raised to the caller.
type JobFailure struct {
	Platform string `json:"platform"`
	Query    string `json:"query"`
	Reason   string `json:"reason"`
	Attempts int    `json:"attempts"`
}
