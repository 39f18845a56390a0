package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ConstraintType enumerates the supported scheduling rules.
type ConstraintType string

const (
	ConstraintTeacherUnavailable  ConstraintType = "TEACHER_UNAVAILABLE"
	ConstraintRoomUnavailable     ConstraintType = "ROOM_UNAVAILABLE"
	ConstraintClassBlocked        ConstraintType = "CLASS_BLOCKED"
	ConstraintSubjectRoomType     ConstraintType = "SUBJECT_REQUIRES_ROOM_TYPE"
	ConstraintNoConsecutive       ConstraintType = "NO_CONSECUTIVE_FOR_SUBJECT"
	ConstraintMaxPeriodsPerDay    ConstraintType = "MAX_PERIODS_PER_DAY_FOR_TEACHER"
	ConstraintMaxConsecutive      ConstraintType = "MAX_CONSECUTIVE_FOR_TEACHER"
	ConstraintForbidAdjacentSame  ConstraintType = "FORBID_ADJACENT_SAME_SUBJECT"
	ConstraintPin                 ConstraintType = "PIN"
)

// Constraint is a typed scheduling rule. Hard violations disqualify a
// schedule; soft violations add Weight to the penalty sum. Payload shape
// depends on Type (see the scheduler package decoders).
type Constraint struct {
	ID        string         `db:"id" json:"id"`
	TermID    string         `db:"term_id" json:"term_id"`
	Type      ConstraintType `db:"type" json:"type"`
	Hard      bool           `db:"hard" json:"hard"`
	Weight    float64        `db:"weight" json:"weight"`
	Payload   types.JSONText `db:"payload" json:"payload"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// Typed constraint payloads.

// SlotPayload targets a (day, slot) cell for an entity.
type SlotPayload struct {
	TeacherID string `json:"teacher_id,omitempty"`
	RoomID    string `json:"room_id,omitempty"`
	ClassID   string `json:"class_id,omitempty"`
	Day       int    `json:"day"`
	Slot      int    `json:"slot"`
}

// SubjectRoomTypePayload forces a subject into a room type.
type SubjectRoomTypePayload struct {
	SubjectID string   `json:"subject_id"`
	RoomType  RoomType `json:"room_type"`
}

// SubjectPayload targets a subject-scoped rule.
type SubjectPayload struct {
	SubjectID string `json:"subject_id"`
}

// TeacherLimitPayload overrides a teacher period limit.
type TeacherLimitPayload struct {
	TeacherID string `json:"teacher_id"`
	Limit     int    `json:"limit"`
}

// PinPayload fixes a class/subject occurrence to a specific cell.
type PinPayload struct {
	ClassID   string  `json:"class_id"`
	SubjectID string  `json:"subject_id"`
	Day       int     `json:"day"`
	Slot      int     `json:"slot"`
	RoomID    *string `json:"room_id,omitempty"`
}
