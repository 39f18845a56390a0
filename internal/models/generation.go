package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// GenerationStatus tracks the lifecycle of a solver run.
type GenerationStatus string

const (
	GenerationStatusRunning   GenerationStatus = "RUNNING"
	GenerationStatusCompleted GenerationStatus = "COMPLETED"
	GenerationStatusFailed    GenerationStatus = "FAILED"
	GenerationStatusCancelled GenerationStatus = "CANCELLED"
)

// Generation is an append-only audit record of a timetable generation run.
type Generation struct {
	ID                string           `db:"id" json:"id"`
	TermID            string           `db:"term_id" json:"term_id"`
	Algorithm         string           `db:"algorithm" json:"algorithm"`
	Params            types.JSONText   `db:"params" json:"params"`
	StartedBy         string           `db:"started_by" json:"started_by"`
	StartedAt         time.Time        `db:"started_at" json:"started_at"`
	CompletedAt       *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
	Status            GenerationStatus `db:"status" json:"status"`
	OptimizationScore *float64         `db:"optimization_score" json:"optimization_score,omitempty"`
	ConflictCount     int              `db:"conflict_count" json:"conflict_count"`
	UnassignedCount   int              `db:"unassigned_count" json:"unassigned_count"`
	ErrorMessage      *string          `db:"error_message" json:"error_message,omitempty"`
}

// GenerationUpdate carries the mutable completion fields.
type GenerationUpdate struct {
	Status            GenerationStatus
	CompletedAt       *time.Time
	OptimizationScore *float64
	ConflictCount     *int
	UnassignedCount   *int
	ErrorMessage      *string
}
