package models

import "time"

// Task lifecycle.
const (
	StatusQueued = "queued"
	StatusDone   = "done"
)

// Outcomes of a finished balance update.
const (
	OutcomeApplied      = "applied"        // balance increased by the temperature
	OutcomeRejected     = "rejected"       // balance - temperature would be negative
	OutcomeUserNotFound = "user_not_found" // no row for the user id
	OutcomeFailed       = "failed"         // storage error, cancellation or panic
)

// Where a temperature value came from.
const (
	SourceLive     = "live"
	SourceCache    = "cache"
	SourceFallback = "fallback"
)

// UpdateRequest asks for one weather-driven balance adjustment.
type UpdateRequest struct {
	UserID int64  `json:"user_id"`
	City   string `json:"city"`
}

// TemperatureReading is the value used by an update and its origin.
type TemperatureReading struct {
	Value  float64 `json:"value"`
	Source string  `json:"source"` // live | cache | fallback
}

// UpdateResult describes a queued or finished balance update.
type UpdateResult struct {
	TaskID            string    `json:"task_id"`
	UserID            int64     `json:"user_id"`
	City              string    `json:"city"`
	Status            string    `json:"status"`            // queued | done
	Outcome           string    `json:"outcome,omitempty"` // applied | rejected | user_not_found | failed
	Temperature       float64   `json:"temperature,omitempty"`
	TemperatureSource string    `json:"temperature_source,omitempty"`
	Delta             int64     `json:"delta,omitempty"`
	BalanceBefore     int64     `json:"balance_before,omitempty"`
	Error             string    `json:"error,omitempty"`
	QueuedAt          time.Time `json:"queued_at"`
	FinishedAt        time.Time `json:"finished_at,omitempty"`
}
