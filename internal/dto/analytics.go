package dto

import (
	"github.com/noah-isme/sma-timetable-engine/internal/models"
	"github.com/noah-isme/sma-timetable-engine/internal/scheduler"
)

// TermAnalysis is the full quality report for a term's active timetable.
type TermAnalysis struct {
	Score           models.TermScore         `json:"score"`
	Workloads       []models.TeacherWorkload `json:"workloads"`
	Rooms           []models.RoomUtilization `json:"rooms"`
	Conflicts       []scheduler.Violation    `json:"conflicts"`
	Recommendations []models.Recommendation  `json:"recommendations"`
}

// ListGenerationsQuery paginates the generation audit trail.
type ListGenerationsQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GenerationList is a page of generation audit records.
type GenerationList struct {
	Items      []models.Generation `json:"items"`
	Pagination models.Pagination   `json:"pagination"`
}
