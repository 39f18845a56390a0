package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

// TimetableRepository persists timetable entries. The active set of a term is
// swapped, never edited in place: commits deactivate the previous entries and
// insert the new ones inside one transaction.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const entryColumns = `id, term_id, class_id, subject_id, teacher_id, room_id, day_of_week, slot_index, is_active, generation_id, created_at`

// ListActiveByTerm returns the live timetable of a term ordered by
// (class, day, slot).
func (r *TimetableRepository) ListActiveByTerm(ctx context.Context, termID string) ([]models.TimetableEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM timetable_entries
WHERE term_id = $1 AND is_active = TRUE ORDER BY class_id, day_of_week, slot_index`
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, termID); err != nil {
		return nil, fmt.Errorf("list active timetable entries: %w", err)
	}
	return entries, nil
}

// DeactivateByTerm retires the current active set of a term.
func (r *TimetableRepository) DeactivateByTerm(ctx context.Context, exec sqlx.ExtContext, termID string) (int64, error) {
	target := r.exec(exec)
	const query = `UPDATE timetable_entries SET is_active = FALSE WHERE term_id = $1 AND is_active = TRUE`
	result, err := target.ExecContext(ctx, query, termID)
	if err != nil {
		return 0, fmt.Errorf("deactivate timetable entries: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deactivate timetable entries rows affected: %w", err)
	}
	return affected, nil
}

// InsertEntries writes new active entries. IDs and timestamps are filled when
// missing.
func (r *TimetableRepository) InsertEntries(ctx context.Context, exec sqlx.ExtContext, entries []models.TimetableEntry) error {
	if len(entries) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.NewString()
		}
		if entries[i].CreatedAt.IsZero() {
			entries[i].CreatedAt = now
		}
		entries[i].IsActive = true
	}

	const query = `
INSERT INTO timetable_entries (id, term_id, class_id, subject_id, teacher_id, room_id, day_of_week, slot_index, is_active, generation_id, created_at)
VALUES (:id, :term_id, :class_id, :subject_id, :teacher_id, :room_id, :day_of_week, :slot_index, :is_active, :generation_id, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, entries); err != nil {
		return fmt.Errorf("insert timetable entries: %w", err)
	}
	return nil
}

// CountActiveByTerm counts live entries; used to verify a commit before the
// transaction closes.
func (r *TimetableRepository) CountActiveByTerm(ctx context.Context, exec sqlx.ExtContext, termID string) (int, error) {
	target := r.exec(exec)
	const query = `SELECT COUNT(*) FROM timetable_entries WHERE term_id = $1 AND is_active = TRUE`
	var count int
	if err := sqlx.GetContext(ctx, target, &count, query, termID); err != nil {
		return 0, fmt.Errorf("count active timetable entries: %w", err)
	}
	return count, nil
}
