package models

import "time"

// SubjectAssignment links a teacher to a class/subject/term tuple. Only the
// primary assignment feeds demand building; co-teachers are informational.
type SubjectAssignment struct {
	ID        string    `db:"id" json:"id"`
	TermID    string    `db:"term_id" json:"term_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	IsPrimary bool      `db:"is_primary" json:"is_primary"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CurriculumRequirement maps (subject, grade) to its weekly period count.
type CurriculumRequirement struct {
	ID             string    `db:"id" json:"id"`
	SubjectID      string    `db:"subject_id" json:"subject_id"`
	Grade          int       `db:"grade" json:"grade"`
	PeriodsPerWeek int       `db:"periods_per_week" json:"periods_per_week"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
