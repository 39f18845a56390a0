package models

import "time"

// TimeSlot is a term-scoped teaching window. Slots within a day are disjoint
// and ordered by SlotIndex; break slots are never scheduling targets.
type TimeSlot struct {
	ID              string    `db:"id" json:"id"`
	TermID          string    `db:"term_id" json:"term_id"`
	DayOfWeek       int       `db:"day_of_week" json:"day_of_week"`
	SlotIndex       int       `db:"slot_index" json:"slot_index"`
	StartTime       string    `db:"start_time" json:"start_time"`
	EndTime         string    `db:"end_time" json:"end_time"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	IsBreak         bool      `db:"is_break" json:"is_break"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
