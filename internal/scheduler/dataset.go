package scheduler

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

// SlotKey identifies a teachable (day, slot) cell.
type SlotKey struct {
	Day  int
	Slot int
}

// subjectRule captures the hardness and weight of a subject-scoped rule.
type subjectRule struct {
	Hard   bool
	Weight float64
}

// TeacherInfo is the solver-side view of a teacher. The load limits carry
// their own hardness: limits from the teacher row default to a hard daily cap
// and a soft consecutive cap, while limits set by a constraint take the
// constraint's hard flag.
type TeacherInfo struct {
	ID                 string
	Name               string
	Competent          map[string]bool
	MaxPerDay          int
	MaxPerDayHard      bool
	MaxConsecutive     int
	MaxConsecutiveHard bool
	PreferredRooms     map[string]bool
	Unavailable        map[SlotKey]bool
}

// RoomInfo is the solver-side view of a room.
type RoomInfo struct {
	ID          string
	Name        string
	Type        models.RoomType
	Capacity    int
	Unavailable map[SlotKey]bool
}

// ClassInfo is the solver-side view of a student group.
type ClassInfo struct {
	ID         string
	Name       string
	Grade      int
	Size       int
	HomeRoomID string
	Blocked    map[SlotKey]bool
}

// SubjectInfo is the solver-side view of a subject, enriched with the
// subject-scoped constraints that apply to it.
type SubjectInfo struct {
	ID                 string
	Code               string
	Name               string
	Priority           int
	RequiresLab        bool
	PrefersConsecutive bool
	Grades             map[int]bool

	RequiredRoomType models.RoomType
	RoomTypeRule     *subjectRule
	NoConsecutive    *subjectRule
	ForbidAdjacent   *subjectRule
}

// Pin fixes one occurrence of (class, subject) to a specific cell.
type Pin struct {
	ClassID   string
	SubjectID string
	Day       int
	Slot      int
	RoomID    string
}

// Dataset is an id-keyed arena over the entities of one term. Relationships
// are traversed through lookups only; the solvers never mutate it.
type Dataset struct {
	TermID string

	// Slots lists teachable cells sorted by (day, slot). Break slots are
	// excluded at construction time.
	Slots      []SlotKey
	SlotsByDay map[int][]int

	Teachers map[string]*TeacherInfo
	Rooms    map[string]*RoomInfo
	Classes  map[string]*ClassInfo
	Subjects map[string]*SubjectInfo

	// RoomOrder holds room ids sorted ascending for deterministic iteration.
	RoomOrder []string

	Pins []Pin
}

// DatasetInput bundles the raw records a dataset is built from.
type DatasetInput struct {
	Term        models.Term
	Slots       []models.TimeSlot
	Rooms       []models.Room
	Classes     []models.Class
	Subjects    []models.Subject
	Teachers    []models.Teacher
	Constraints []models.Constraint
}

// NewDataset parses raw records into the solver arena, folding constraints
// into availability masks and subject rules.
func NewDataset(in DatasetInput) (*Dataset, error) {
	ds := &Dataset{
		TermID:     in.Term.ID,
		SlotsByDay: make(map[int][]int),
		Teachers:   make(map[string]*TeacherInfo, len(in.Teachers)),
		Rooms:      make(map[string]*RoomInfo, len(in.Rooms)),
		Classes:    make(map[string]*ClassInfo, len(in.Classes)),
		Subjects:   make(map[string]*SubjectInfo, len(in.Subjects)),
	}

	for _, slot := range in.Slots {
		if slot.IsBreak {
			continue
		}
		key := SlotKey{Day: slot.DayOfWeek, Slot: slot.SlotIndex}
		ds.Slots = append(ds.Slots, key)
		ds.SlotsByDay[key.Day] = append(ds.SlotsByDay[key.Day], key.Slot)
	}
	sort.Slice(ds.Slots, func(i, j int) bool {
		if ds.Slots[i].Day == ds.Slots[j].Day {
			return ds.Slots[i].Slot < ds.Slots[j].Slot
		}
		return ds.Slots[i].Day < ds.Slots[j].Day
	})
	for day := range ds.SlotsByDay {
		sort.Ints(ds.SlotsByDay[day])
	}

	for _, room := range in.Rooms {
		info := &RoomInfo{
			ID:          room.ID,
			Name:        room.Name,
			Type:        room.Type,
			Capacity:    room.Capacity,
			Unavailable: make(map[SlotKey]bool),
		}
		if err := decodeSlotRefs(room.Unavailable, info.Unavailable); err != nil {
			return nil, fmt.Errorf("room %s availability: %w", room.ID, err)
		}
		ds.Rooms[room.ID] = info
		ds.RoomOrder = append(ds.RoomOrder, room.ID)
	}
	sort.Strings(ds.RoomOrder)

	for _, class := range in.Classes {
		info := &ClassInfo{
			ID:      class.ID,
			Name:    class.Name,
			Grade:   class.Grade,
			Size:    class.ExpectedSize,
			Blocked: make(map[SlotKey]bool),
		}
		if class.HomeRoomID != nil {
			info.HomeRoomID = *class.HomeRoomID
		}
		ds.Classes[class.ID] = info
	}

	for _, subject := range in.Subjects {
		info := &SubjectInfo{
			ID:                 subject.ID,
			Code:               subject.Code,
			Name:               subject.Name,
			Priority:           subject.Priority,
			RequiresLab:        subject.RequiresLab,
			PrefersConsecutive: subject.PrefersConsecutive,
			Grades:             make(map[int]bool),
		}
		if len(subject.Grades) > 0 {
			var grades []int
			if err := json.Unmarshal(subject.Grades, &grades); err != nil {
				return nil, fmt.Errorf("subject %s grades: %w", subject.ID, err)
			}
			for _, g := range grades {
				info.Grades[g] = true
			}
		}
		ds.Subjects[subject.ID] = info
	}

	for _, teacher := range in.Teachers {
		info := &TeacherInfo{
			ID:             teacher.ID,
			Name:           teacher.FullName,
			Competent:      make(map[string]bool),
			MaxPerDay:      teacher.MaxPerDay,
			MaxPerDayHard:  true,
			MaxConsecutive: teacher.MaxConsecutive,
			PreferredRooms: make(map[string]bool),
			Unavailable:    make(map[SlotKey]bool),
		}
		if err := decodeStringSet(teacher.Competencies, info.Competent); err != nil {
			return nil, fmt.Errorf("teacher %s competencies: %w", teacher.ID, err)
		}
		if err := decodeStringSet(teacher.PreferredRooms, info.PreferredRooms); err != nil {
			return nil, fmt.Errorf("teacher %s preferred rooms: %w", teacher.ID, err)
		}
		if err := decodeSlotRefs(teacher.Unavailable, info.Unavailable); err != nil {
			return nil, fmt.Errorf("teacher %s availability: %w", teacher.ID, err)
		}
		ds.Teachers[teacher.ID] = info
	}

	for _, constraint := range in.Constraints {
		if err := ds.applyConstraint(constraint); err != nil {
			return nil, err
		}
	}

	return ds, nil
}

func (ds *Dataset) applyConstraint(c models.Constraint) error {
	switch c.Type {
	case models.ConstraintTeacherUnavailable, models.ConstraintRoomUnavailable, models.ConstraintClassBlocked:
		var payload models.SlotPayload
		if err := json.Unmarshal(c.Payload, &payload); err != nil {
			return fmt.Errorf("constraint %s payload: %w", c.ID, err)
		}
		key := SlotKey{Day: payload.Day, Slot: payload.Slot}
		switch c.Type {
		case models.ConstraintTeacherUnavailable:
			if t := ds.Teachers[payload.TeacherID]; t != nil {
				t.Unavailable[key] = true
			}
		case models.ConstraintRoomUnavailable:
			if r := ds.Rooms[payload.RoomID]; r != nil {
				r.Unavailable[key] = true
			}
		case models.ConstraintClassBlocked:
			if cl := ds.Classes[payload.ClassID]; cl != nil {
				cl.Blocked[key] = true
			}
		}
	case models.ConstraintSubjectRoomType:
		var payload models.SubjectRoomTypePayload
		if err := json.Unmarshal(c.Payload, &payload); err != nil {
			return fmt.Errorf("constraint %s payload: %w", c.ID, err)
		}
		if s := ds.Subjects[payload.SubjectID]; s != nil {
			s.RequiredRoomType = payload.RoomType
			s.RoomTypeRule = &subjectRule{Hard: c.Hard, Weight: c.Weight}
		}
	case models.ConstraintNoConsecutive:
		var payload models.SubjectPayload
		if err := json.Unmarshal(c.Payload, &payload); err != nil {
			return fmt.Errorf("constraint %s payload: %w", c.ID, err)
		}
		if s := ds.Subjects[payload.SubjectID]; s != nil {
			s.NoConsecutive = &subjectRule{Hard: c.Hard, Weight: c.Weight}
		}
	case models.ConstraintForbidAdjacentSame:
		var payload models.SubjectPayload
		if err := json.Unmarshal(c.Payload, &payload); err != nil {
			return fmt.Errorf("constraint %s payload: %w", c.ID, err)
		}
		if s := ds.Subjects[payload.SubjectID]; s != nil {
			s.ForbidAdjacent = &subjectRule{Hard: c.Hard, Weight: c.Weight}
		}
	case models.ConstraintMaxPeriodsPerDay, models.ConstraintMaxConsecutive:
		var payload models.TeacherLimitPayload
		if err := json.Unmarshal(c.Payload, &payload); err != nil {
			return fmt.Errorf("constraint %s payload: %w", c.ID, err)
		}
		if t := ds.Teachers[payload.TeacherID]; t != nil {
			if c.Type == models.ConstraintMaxPeriodsPerDay {
				t.MaxPerDay = payload.Limit
				t.MaxPerDayHard = c.Hard
			} else {
				t.MaxConsecutive = payload.Limit
				t.MaxConsecutiveHard = c.Hard
			}
		}
	case models.ConstraintPin:
		var payload models.PinPayload
		if err := json.Unmarshal(c.Payload, &payload); err != nil {
			return fmt.Errorf("constraint %s payload: %w", c.ID, err)
		}
		pin := Pin{
			ClassID:   payload.ClassID,
			SubjectID: payload.SubjectID,
			Day:       payload.Day,
			Slot:      payload.Slot,
		}
		if payload.RoomID != nil {
			pin.RoomID = *payload.RoomID
		}
		ds.Pins = append(ds.Pins, pin)
	default:
		return fmt.Errorf("constraint %s: unknown type %q", c.ID, c.Type)
	}
	return nil
}

// HasSlot reports whether the cell exists in the term grid.
func (ds *Dataset) HasSlot(key SlotKey) bool {
	slots, ok := ds.SlotsByDay[key.Day]
	if !ok {
		return false
	}
	for _, slot := range slots {
		if slot == key.Slot {
			return true
		}
	}
	return false
}

// SubjectRoomOK reports whether the room satisfies the subject's room
// requirements (lab flag and any required room type).
func (ds *Dataset) SubjectRoomOK(subject *SubjectInfo, room *RoomInfo) bool {
	if subject == nil || room == nil {
		return false
	}
	if subject.RequiresLab && !room.Type.IsLabCapable() {
		return false
	}
	if subject.RequiredRoomType != "" && subject.RoomTypeRule != nil && subject.RoomTypeRule.Hard {
		if room.Type != subject.RequiredRoomType {
			return false
		}
	}
	return true
}

func decodeStringSet(raw []byte, dest map[string]bool) error {
	if len(raw) == 0 {
		return nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return err
	}
	for _, v := range values {
		dest[v] = true
	}
	return nil
}

func decodeSlotRefs(raw []byte, dest map[SlotKey]bool) error {
	if len(raw) == 0 {
		return nil
	}
	var refs []models.SlotRef
	if err := json.Unmarshal(raw, &refs); err != nil {
		return err
	}
	for _, ref := range refs {
		dest[SlotKey{Day: ref.Day, Slot: ref.Slot}] = true
	}
	return nil
}
