package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

// SubjectRepository reads academic subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns all subjects ordered by priority descending then code.
func (r *SubjectRepository) List(ctx context.Context) ([]models.Subject, error) {
	const query = `SELECT id, code, name, department, credit_hours, is_elective, requires_lab, prefers_consecutive, priority, grades, created_at, updated_at
FROM subjects ORDER BY priority DESC, code`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}
