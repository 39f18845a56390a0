package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

// ConstraintRepository reads scheduling constraints.
type ConstraintRepository struct {
	db *sqlx.DB
}

// NewConstraintRepository constructs repository.
func NewConstraintRepository(db *sqlx.DB) *ConstraintRepository {
	return &ConstraintRepository{db: db}
}

// ListByTerm returns the constraints of a term ordered by id.
func (r *ConstraintRepository) ListByTerm(ctx context.Context, termID string) ([]models.Constraint, error) {
	const query = `SELECT id, term_id, type, hard, weight, payload, created_at
FROM constraints WHERE term_id = $1 ORDER BY id`
	var constraints []models.Constraint
	if err := r.db.SelectContext(ctx, &constraints, query, termID); err != nil {
		return nil, fmt.Errorf("list constraints: %w", err)
	}
	return constraints, nil
}
