package models

import "time"

// Class represents a student group scheduled as a unit.
type Class struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Grade        int       `db:"grade" json:"grade"`
	ExpectedSize int       `db:"expected_size" json:"expected_size"`
	HomeRoomID   *string   `db:"home_room_id" json:"home_room_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
