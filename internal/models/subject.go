package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Subject represents an academic subject. Grades holds the applicable grade
// set as a JSON int array. Priority orders demands: higher schedules first.
type Subject struct {
	ID                 string         `db:"id" json:"id"`
	Code               string         `db:"code" json:"code"`
	Name               string         `db:"name" json:"name"`
	Department         string         `db:"department" json:"department"`
	CreditHours        int            `db:"credit_hours" json:"credit_hours"`
	IsElective         bool           `db:"is_elective" json:"is_elective"`
	RequiresLab        bool           `db:"requires_lab" json:"requires_lab"`
	PrefersConsecutive bool           `db:"prefers_consecutive" json:"prefers_consecutive"`
	Priority           int            `db:"priority" json:"priority"`
	Grades             types.JSONText `db:"grades" json:"grades"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}
