package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

// TimeSlotRepository reads the slot grid of a term.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository constructs repository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

// ListByTerm returns every slot of the term ordered by (day, index),
// including breaks.
func (r *TimeSlotRepository) ListByTerm(ctx context.Context, termID string) ([]models.TimeSlot, error) {
	const query = `SELECT id, term_id, day_of_week, slot_index, start_time, end_time, duration_minutes, is_break, created_at
FROM time_slots WHERE term_id = $1 ORDER BY day_of_week, slot_index`
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, termID); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}
