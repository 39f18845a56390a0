package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// RoomType categorises physical spaces available for scheduling.
type RoomType string

const (
	RoomTypeClassroom   RoomType = "CLASSROOM"
	RoomTypeLaboratory  RoomType = "LABORATORY"
	RoomTypeComputerLab RoomType = "COMPUTER_LAB"
	RoomTypeLibrary     RoomType = "LIBRARY"
	RoomTypeGymnasium   RoomType = "GYMNASIUM"
	RoomTypeAuditorium  RoomType = "AUDITORIUM"
	RoomTypeMusic       RoomType = "MUSIC"
	RoomTypeArt         RoomType = "ART"
)

// IsLabCapable reports whether the room type satisfies lab subjects.
func (t RoomType) IsLabCapable() bool {
	return t == RoomTypeLaboratory || t == RoomTypeComputerLab
}

// SlotRef identifies a (day, slot) cell inside availability masks.
type SlotRef struct {
	Day  int `json:"day"`
	Slot int `json:"slot"`
}

// Room represents a schedulable space. Equipment is a JSON string array and
// Unavailable a JSON array of SlotRef.
type Room struct {
	ID          string         `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Type        RoomType       `db:"type" json:"type"`
	Capacity    int            `db:"capacity" json:"capacity"`
	Equipment   types.JSONText `db:"equipment" json:"equipment"`
	Unavailable types.JSONText `db:"unavailable" json:"unavailable"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}
