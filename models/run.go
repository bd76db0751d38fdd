package models

import (
	"encoding/json"
	"time"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ScrapeRun is the bookkeeping row for one batch execution.
type ScrapeRun struct {
	ID         int64           `json:"id" db:"id"`
	BatchID    string          `json:"batch_id" db:"batch_id"`
	StartedAt  time.Time       `json:"started_at" db:"started_at"`
	FinishedAt *time.Time      `json:"finished_at" db:"finished_at"`
	Status     RunStatus       `json:"status" db:"status"`
	Stats      json.RawMessage `json:"stats" db:"stats"`
}
