package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

// AssignmentRepository reads teacher-subject-class assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// ListActiveByTerm returns the active assignments of a term ordered by id so
// demand building sees a stable input order.
func (r *AssignmentRepository) ListActiveByTerm(ctx context.Context, termID string) ([]models.SubjectAssignment, error) {
	const query = `SELECT id, term_id, subject_id, class_id, teacher_id, is_primary, is_active, created_at
FROM subject_assignments WHERE term_id = $1 AND is_active = TRUE ORDER BY id`
	var assignments []models.SubjectAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, termID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}
