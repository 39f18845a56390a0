package dto

import (
	"time"

	"github.com/noah-isme/sma-timetable-engine/internal/scheduler"
)

// SolverOptions overrides individual solver parameters for one run. Zero
// fields keep the configured defaults.
type SolverOptions struct {
	PopulationSize       int     `json:"population_size" validate:"omitempty,min=2,max=500"`
	Generations          int     `json:"generations" validate:"omitempty,min=1,max=2000"`
	MutationRate         float64 `json:"mutation_rate" validate:"omitempty,gt=0,lte=1"`
	CrossoverRate        float64 `json:"crossover_rate" validate:"omitempty,gt=0,lte=1"`
	TournamentSize       int     `json:"tournament_size" validate:"omitempty,min=2,max=20"`
	EliteSize            int     `json:"elite_size" validate:"omitempty,min=1,max=50"`
	ConvergenceThreshold float64 `json:"convergence_threshold" validate:"omitempty,gt=0,lt=1"`
	MaxExecutionSeconds  int     `json:"max_execution_seconds" validate:"omitempty,min=1,max=7200"`
}

// GenerateTimetableRequest starts a generation run for a term. GradeIDs, when
// set, restricts the run to classes of those grades.
type GenerateTimetableRequest struct {
	TermID    string         `json:"term_id" validate:"required"`
	Algorithm string         `json:"algorithm" validate:"omitempty,oneof=greedy genetic"`
	Seed      *int64         `json:"seed"`
	GradeIDs  []int          `json:"grade_ids" validate:"omitempty,dive,min=1"`
	Async     bool           `json:"async"`
	Options   *SolverOptions `json:"options"`
}

// TimetableEntryDTO is one scheduled lesson in API responses.
type TimetableEntryDTO struct {
	ClassID     string `json:"class_id"`
	ClassName   string `json:"class_name,omitempty"`
	SubjectID   string `json:"subject_id"`
	SubjectName string `json:"subject_name,omitempty"`
	TeacherID   string `json:"teacher_id"`
	TeacherName string `json:"teacher_name,omitempty"`
	RoomID      string `json:"room_id,omitempty"`
	RoomName    string `json:"room_name,omitempty"`
	Day         int    `json:"day"`
	Slot        int    `json:"slot"`
}

// SchedulingResult is the outcome of one solver run. The proposal it
// references stays commitable until ExpiresAt.
type SchedulingResult struct {
	Success           bool                         `json:"success"`
	ProposalID        string                       `json:"proposal_id,omitempty"`
	GenerationID      string                       `json:"generation_id"`
	TermID            string                       `json:"term_id"`
	Algorithm         string                       `json:"algorithm"`
	OptimizationScore float64                      `json:"optimization_score"`
	AssignedSlots     int                          `json:"assigned_slots"`
	UnassignedSlots   int                          `json:"unassigned_slots"`
	Conflicts         []scheduler.Violation        `json:"conflicts"`
	Resolutions       []scheduler.ResolutionAction `json:"resolutions,omitempty"`
	Stats             *scheduler.RunStats          `json:"stats,omitempty"`
	Entries           []TimetableEntryDTO          `json:"entries,omitempty"`
	ExpiresAt         time.Time                    `json:"expires_at,omitempty"`
}

// AsyncAccepted acknowledges a queued generation run.
type AsyncAccepted struct {
	GenerationID string `json:"generation_id"`
	TermID       string `json:"term_id"`
	Status       string `json:"status"`
}

// CommitTimetableRequest applies a previously generated proposal. Residual
// hard conflicts do not block the commit unless RequireFeasible is set.
type CommitTimetableRequest struct {
	ProposalID      string `json:"proposal_id" validate:"required"`
	RequireFeasible bool   `json:"require_feasible"`
}

// CommitReport summarises an applied proposal.
type CommitReport struct {
	TermID           string                `json:"term_id"`
	GenerationID     string                `json:"generation_id"`
	EntriesWritten   int                   `json:"entries_written"`
	DeactivatedCount int                   `json:"deactivated_count"`
	Conflicts        []scheduler.Violation `json:"conflicts,omitempty"`
	CommittedAt      time.Time             `json:"committed_at"`
}
