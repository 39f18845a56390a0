package models

import "time"

// TimetableEntry is a placed (class, subject, teacher, room?, day, slot)
// tuple. Entries are replaced, never mutated, across generation runs: the
// active set of a term is swapped atomically at commit time.
type TimetableEntry struct {
	ID           string    `db:"id" json:"id"`
	TermID       string    `db:"term_id" json:"term_id"`
	ClassID      string    `db:"class_id" json:"class_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	RoomID       *string   `db:"room_id" json:"room_id,omitempty"`
	DayOfWeek    int       `db:"day_of_week" json:"day_of_week"`
	SlotIndex    int       `db:"slot_index" json:"slot_index"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	GenerationID *string   `db:"generation_id" json:"generation_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
