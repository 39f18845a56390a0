package scheduler

import "sort"

// Placement is one scheduled period of a demand. RoomID may be empty when no
// feasible room was found; such entries still hold the class/teacher cell.
type Placement struct {
	Day    int
	Slot   int
	RoomID string
}

// Entry is a flattened placement joined with its demand, ready to persist.
type Entry struct {
	ClassID   string
	SubjectID string
	TeacherID string
	RoomID    string
	Day       int
	Slot      int
}

// Schedule is a candidate timetable: Placements[i] holds the cells chosen for
// Demands[i]. The demand slice is shared between candidates and never
// mutated; only placements are copied on Clone.
type Schedule struct {
	Demands    []Demand
	Placements [][]Placement
}

// NewSchedule returns an empty schedule over the demand set.
func NewSchedule(demands []Demand) *Schedule {
	return &Schedule{
		Demands:    demands,
		Placements: make([][]Placement, len(demands)),
	}
}

// Clone deep-copies the placements. Demands stay shared.
func (s *Schedule) Clone() *Schedule {
	placements := make([][]Placement, len(s.Placements))
	for i, ps := range s.Placements {
		placements[i] = append([]Placement(nil), ps...)
	}
	return &Schedule{Demands: s.Demands, Placements: placements}
}

// UnplacedCount returns the number of demanded periods without a placement.
func (s *Schedule) UnplacedCount() int {
	unplaced := 0
	for i, d := range s.Demands {
		if missing := d.Periods - len(s.Placements[i]); missing > 0 {
			unplaced += missing
		}
	}
	return unplaced
}

// PlacedCount returns the number of placed periods.
func (s *Schedule) PlacedCount() int {
	placed := 0
	for _, ps := range s.Placements {
		placed += len(ps)
	}
	return placed
}

// Normalize sorts each demand's placements by (day, slot) so equal schedules
// compare and persist identically regardless of construction order.
func (s *Schedule) Normalize() {
	for _, ps := range s.Placements {
		sort.Slice(ps, func(i, j int) bool {
			if ps[i].Day == ps[j].Day {
				return ps[i].Slot < ps[j].Slot
			}
			return ps[i].Day < ps[j].Day
		})
	}
}

// Entries flattens the schedule into persistable rows, sorted by
// (class, day, slot).
func (s *Schedule) Entries() []Entry {
	entries := make([]Entry, 0, s.PlacedCount())
	for i, d := range s.Demands {
		for _, p := range s.Placements[i] {
			entries = append(entries, Entry{
				ClassID:   d.ClassID,
				SubjectID: d.SubjectID,
				TeacherID: d.TeacherID,
				RoomID:    p.RoomID,
				Day:       p.Day,
				Slot:      p.Slot,
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.ClassID != b.ClassID {
			return a.ClassID < b.ClassID
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.Slot < b.Slot
	})
	return entries
}

// board tracks live occupancy while a schedule is built or mutated. It is the
// incremental counterpart of the evaluator's full scan: placements admitted
// through canPlace never violate the uniqueness or availability rules.
type board struct {
	ds          *Dataset
	teacherBusy map[string]map[SlotKey]bool
	classBusy   map[string]map[SlotKey]bool
	roomBusy    map[string]map[SlotKey]bool
	teacherDay  map[string]map[int]int
}

func newBoard(ds *Dataset) *board {
	return &board{
		ds:          ds,
		teacherBusy: make(map[string]map[SlotKey]bool),
		classBusy:   make(map[string]map[SlotKey]bool),
		roomBusy:    make(map[string]map[SlotKey]bool),
		teacherDay:  make(map[string]map[int]int),
	}
}

// newBoardFrom seeds a board with every placement of an existing schedule.
func newBoardFrom(ds *Dataset, s *Schedule) *board {
	b := newBoard(ds)
	for i, d := range s.Demands {
		for _, p := range s.Placements[i] {
			b.place(d, p)
		}
	}
	return b
}

// canPlace checks the hard placement rules for one cell: existing slot,
// teacher/class/room free and available, room fit when a room is given.
func (b *board) canPlace(d Demand, p Placement) bool {
	key := SlotKey{Day: p.Day, Slot: p.Slot}
	if !b.ds.HasSlot(key) {
		return false
	}
	teacher := b.ds.Teachers[d.TeacherID]
	class := b.ds.Classes[d.ClassID]
	if teacher == nil || class == nil {
		return false
	}
	if teacher.Unavailable[key] || b.teacherBusy[d.TeacherID][key] {
		return false
	}
	if class.Blocked[key] || b.classBusy[d.ClassID][key] {
		return false
	}
	// A soft daily cap only penalizes; it must not make cells infeasible.
	if teacher.MaxPerDay > 0 && teacher.MaxPerDayHard && b.teacherDay[d.TeacherID][p.Day] >= teacher.MaxPerDay {
		return false
	}
	if p.RoomID != "" {
		room := b.ds.Rooms[p.RoomID]
		if room == nil {
			return false
		}
		if room.Unavailable[key] || b.roomBusy[p.RoomID][key] {
			return false
		}
		if room.Capacity > 0 && class.Size > room.Capacity {
			return false
		}
		if !b.ds.SubjectRoomOK(b.ds.Subjects[d.SubjectID], room) {
			return false
		}
	}
	return true
}

func (b *board) place(d Demand, p Placement) {
	key := SlotKey{Day: p.Day, Slot: p.Slot}
	markBusy(b.teacherBusy, d.TeacherID, key)
	markBusy(b.classBusy, d.ClassID, key)
	if p.RoomID != "" {
		markBusy(b.roomBusy, p.RoomID, key)
	}
	if b.teacherDay[d.TeacherID] == nil {
		b.teacherDay[d.TeacherID] = make(map[int]int)
	}
	b.teacherDay[d.TeacherID][p.Day]++
}

func (b *board) unplace(d Demand, p Placement) {
	key := SlotKey{Day: p.Day, Slot: p.Slot}
	delete(b.teacherBusy[d.TeacherID], key)
	delete(b.classBusy[d.ClassID], key)
	if p.RoomID != "" {
		delete(b.roomBusy[p.RoomID], key)
	}
	if days := b.teacherDay[d.TeacherID]; days != nil {
		days[p.Day]--
	}
}

func (b *board) roomFree(roomID string, key SlotKey) bool {
	room := b.ds.Rooms[roomID]
	if room == nil || room.Unavailable[key] {
		return false
	}
	return !b.roomBusy[roomID][key]
}

func markBusy(m map[string]map[SlotKey]bool, id string, key SlotKey) {
	if m[id] == nil {
		m[id] = make(map[SlotKey]bool)
	}
	m[id][key] = true
}
