package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

// GenerationRepository keeps the append-only audit trail of solver runs.
type GenerationRepository struct {
	db *sqlx.DB
}

// NewGenerationRepository constructs repository.
func NewGenerationRepository(db *sqlx.DB) *GenerationRepository {
	return &GenerationRepository{db: db}
}

func (r *GenerationRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a new generation record, defaulting status to RUNNING.
func (r *GenerationRepository) Create(ctx context.Context, exec sqlx.ExtContext, gen *models.Generation) error {
	if gen == nil {
		return fmt.Errorf("generation payload is nil")
	}
	if gen.TermID == "" {
		return fmt.Errorf("term_id is required")
	}
	if gen.ID == "" {
		gen.ID = uuid.NewString()
	}
	if gen.Status == "" {
		gen.Status = models.GenerationStatusRunning
	}
	if len(gen.Params) == 0 {
		gen.Params = types.JSONText(`{}`)
	}
	if gen.StartedAt.IsZero() {
		gen.StartedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO generations (id, term_id, algorithm, params, started_by, started_at, completed_at, status, optimization_score, conflict_count, unassigned_count, error_message)
VALUES (:id, :term_id, :algorithm, :params, :started_by, :started_at, :completed_at, :status, :optimization_score, :conflict_count, :unassigned_count, :error_message)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, gen); err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	return nil
}

// Update records the terminal state of a run.
func (r *GenerationRepository) Update(ctx context.Context, exec sqlx.ExtContext, id string, update models.GenerationUpdate) error {
	const query = `
UPDATE generations SET
	status = $1,
	completed_at = $2,
	optimization_score = COALESCE($3, optimization_score),
	conflict_count = COALESCE($4, conflict_count),
	unassigned_count = COALESCE($5, unassigned_count),
	error_message = COALESCE($6, error_message)
WHERE id = $7`
	result, err := r.exec(exec).ExecContext(ctx, query,
		update.Status, update.CompletedAt, update.OptimizationScore,
		update.ConflictCount, update.UnassignedCount, update.ErrorMessage, id)
	if err != nil {
		return fmt.Errorf("update generation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("generation rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const generationColumns = `id, term_id, algorithm, params, started_by, started_at, completed_at, status, optimization_score, conflict_count, unassigned_count, error_message`

// FindByID loads one generation record.
func (r *GenerationRepository) FindByID(ctx context.Context, id string) (*models.Generation, error) {
	query := `SELECT ` + generationColumns + ` FROM generations WHERE id = $1`
	var gen models.Generation
	if err := r.db.GetContext(ctx, &gen, query, id); err != nil {
		return nil, err
	}
	return &gen, nil
}

// ListByTerm pages the audit trail of a term, newest first.
func (r *GenerationRepository) ListByTerm(ctx context.Context, termID string, limit, offset int) ([]models.Generation, error) {
	query := `SELECT ` + generationColumns + ` FROM generations
WHERE term_id = $1 ORDER BY started_at DESC LIMIT $2 OFFSET $3`
	var gens []models.Generation
	if err := r.db.SelectContext(ctx, &gens, query, termID, limit, offset); err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	return gens, nil
}

// CountByTerm returns the total number of runs recorded for a term.
func (r *GenerationRepository) CountByTerm(ctx context.Context, termID string) (int, error) {
	const query = `SELECT COUNT(*) FROM generations WHERE term_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, termID); err != nil {
		return 0, fmt.Errorf("count generations: %w", err)
	}
	return count, nil
}
