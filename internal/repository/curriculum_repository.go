package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

// CurriculumRepository reads weekly period requirements per (subject, grade).
type CurriculumRepository struct {
	db *sqlx.DB
}

// NewCurriculumRepository constructs repository.
func NewCurriculumRepository(db *sqlx.DB) *CurriculumRepository {
	return &CurriculumRepository{db: db}
}

// List returns all curriculum requirements.
func (r *CurriculumRepository) List(ctx context.Context) ([]models.CurriculumRequirement, error) {
	const query = `SELECT id, subject_id, grade, periods_per_week, created_at
FROM curriculum_requirements ORDER BY subject_id, grade`
	var reqs []models.CurriculumRequirement
	if err := r.db.SelectContext(ctx, &reqs, query); err != nil {
		return nil, fmt.Errorf("list curriculum requirements: %w", err)
	}
	return reqs, nil
}

// CurriculumTable is an in-memory (subject, grade) -> periods lookup built
// from a loaded requirement set. It satisfies the demand builder's lookup
// interface.
type CurriculumTable struct {
	periods map[curriculumKey]int
}

type curriculumKey struct {
	SubjectID string
	Grade     int
}

// NewCurriculumTable indexes requirements for constant-time lookups.
func NewCurriculumTable(reqs []models.CurriculumRequirement) *CurriculumTable {
	t := &CurriculumTable{periods: make(map[curriculumKey]int, len(reqs))}
	for _, req := range reqs {
		t.periods[curriculumKey{SubjectID: req.SubjectID, Grade: req.Grade}] = req.PeriodsPerWeek
	}
	return t
}

// PeriodsPerWeek returns the weekly period count for the pair, if defined.
func (t *CurriculumTable) PeriodsPerWeek(subjectID string, grade int) (int, bool) {
	n, ok := t.periods[curriculumKey{SubjectID: subjectID, Grade: grade}]
	return n, ok
}
