package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Teacher represents an instructor record. Competencies is a JSON array of
// subject ids, PreferredRooms a JSON array of room ids and Unavailable a JSON
// array of SlotRef.
type Teacher struct {
	ID             string         `db:"id" json:"id"`
	FullName       string         `db:"full_name" json:"full_name"`
	Email          string         `db:"email" json:"email"`
	Active         bool           `db:"active" json:"active"`
	Competencies   types.JSONText `db:"competencies" json:"competencies"`
	MaxPerDay      int            `db:"max_per_day" json:"max_per_day"`
	MaxConsecutive int            `db:"max_consecutive" json:"max_consecutive"`
	PreferredRooms types.JSONText `db:"preferred_rooms" json:"preferred_rooms"`
	Unavailable    types.JSONText `db:"unavailable" json:"unavailable"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}
