package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusPartial   RunStatus = "partial"
)

// ValuationRun records one batch revaluation execution.
type ValuationRun struct {
	ID                int64      `json:"id" db:"id"`
	StartedAt         time.Time  `json:"started_at" db:"started_at"`
	FinishedAt        *time.Time `json:"finished_at" db:"finished_at"`
	Status            RunStatus  `json:"status" db:"status"`
	ListingsProcessed int        `json:"listings_processed" db:"listings_processed"`
	BandsWritten      int        `json:"bands_written" db:"bands_written"`
	CacheHits         int        `json:"cache_hits" db:"cache_hits"`
	ErrorsCount       int        `json:"errors_count" db:"errors_count"`
	ErrorMessage      string     `json:"error_message" db:"error_message"`
}
