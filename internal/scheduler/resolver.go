package scheduler

// Resolution strategies, in the order the resolver attempts them.
const (
	StrategyAlternativeRoom = "ALTERNATIVE_ROOM"
	StrategyAlternativeTime = "ALTERNATIVE_TIME"
	StrategyDisplace        = "DISPLACE_LOWER_PRIORITY"
)

// ResolutionAction records one repair the resolver applied.
type ResolutionAction struct {
	Strategy  string `json:"strategy"`
	ClassID   string `json:"class_id"`
	SubjectID string `json:"subject_id"`
	TeacherID string `json:"teacher_id"`
	Day       int    `json:"day"`
	Slot      int    `json:"slot"`
	RoomID    string `json:"room_id,omitempty"`
	// Displaced identifies the demand that lost its cell, when the
	// displacement strategy was used.
	DisplacedClassID   string `json:"displaced_class_id,omitempty"`
	DisplacedSubjectID string `json:"displaced_subject_id,omitempty"`
}

// Resolver repairs residual defects in a solved schedule: placements without
// a room and demands left unplaced. It tries an alternative room first, an
// alternative time next, and as a last resort displaces a strictly
// lower-priority lesson. Pinned cells are never moved.
type Resolver struct {
	ds     *Dataset
	cfg    Config
	greedy *GreedySolver
}

// NewResolver builds a resolver over the dataset.
func NewResolver(ds *Dataset, cfg Config) *Resolver {
	cfg = cfg.Normalized()
	return &Resolver{ds: ds, cfg: cfg, greedy: NewGreedySolver(ds, cfg)}
}

const resolverPasses = 3

// Resolve returns a repaired clone of the schedule and the actions taken.
// The input is never mutated.
func (r *Resolver) Resolve(s *Schedule) (*Schedule, []ResolutionAction) {
	out := s.Clone()
	var actions []ResolutionAction

	pinned := r.pinnedCells(out)

	attempted := make(map[clashKey]bool)
	for pass := 0; pass < resolverPasses; pass++ {
		changed := false

		if acts := r.repairClashes(out, pinned, attempted); len(acts) > 0 {
			actions = append(actions, acts...)
			changed = true
		}
		b := newBoardFrom(r.ds, out)

		if acts := r.fillRooms(out, b, pinned); len(acts) > 0 {
			actions = append(actions, acts...)
			changed = true
		}
		if acts := r.placeMissing(out, b); len(acts) > 0 {
			actions = append(actions, acts...)
			changed = true
		}
		if !changed {
			break
		}
	}

	out.Normalize()
	return out, actions
}

// occRef addresses one placement of one demand inside a schedule.
type occRef struct {
	demand    int
	placement int
}

// clashKey marks a (demand, cell) pair the resolver already tried to move, so
// an unmovable lesson does not loop the repair forever.
type clashKey struct {
	demand int
	key    SlotKey
}

// repairClashes moves one side of every double-booked teacher, class or room
// cell until none remain movable. The victim is the lowest-priority
// participant that is neither pinned nor already attempted; room clashes drop
// the room first and look for a free one before touching the cell itself.
func (r *Resolver) repairClashes(s *Schedule, pinned map[string]map[SlotKey]bool, attempted map[clashKey]bool) []ResolutionAction {
	var actions []ResolutionAction
	for {
		ref, key, roomOnly, ok := r.findClash(s, pinned, attempted)
		if !ok {
			break
		}
		attempted[clashKey{demand: ref.demand, key: key}] = true
		d := s.Demands[ref.demand]
		p := s.Placements[ref.demand][ref.placement]

		if roomOnly {
			s.Placements[ref.demand][ref.placement].RoomID = ""
			b := newBoardFrom(r.ds, s)
			act := ResolutionAction{
				Strategy: StrategyAlternativeRoom,
				ClassID:  d.ClassID, SubjectID: d.SubjectID, TeacherID: d.TeacherID,
				Day: p.Day, Slot: p.Slot,
			}
			if roomID, found := r.greedy.bestRoom(b, d, key); found {
				s.Placements[ref.demand][ref.placement].RoomID = roomID
				act.RoomID = roomID
			}
			actions = append(actions, act)
			continue
		}

		rest := removeAt(s.Placements[ref.demand], ref.placement)
		s.Placements[ref.demand] = rest
		b := newBoardFrom(r.ds, s)
		if alt, found := r.greedy.bestPlacement(b, d, rest, nil); found {
			s.Placements[ref.demand] = append(s.Placements[ref.demand], alt)
			actions = append(actions, ResolutionAction{
				Strategy: StrategyAlternativeTime,
				ClassID:  d.ClassID, SubjectID: d.SubjectID, TeacherID: d.TeacherID,
				Day: alt.Day, Slot: alt.Slot, RoomID: alt.RoomID,
			})
		} else {
			// Nowhere free to move it; restore and leave the clash for the
			// evaluation report.
			s.Placements[ref.demand] = append(s.Placements[ref.demand], p)
		}
	}
	return actions
}

// findClash returns a movable participant of the first double-booked cell, in
// teacher, class, room order. roomOnly reports that only the room is
// contended, so the lesson may keep its cell.
func (r *Resolver) findClash(s *Schedule, pinned map[string]map[SlotKey]bool, attempted map[clashKey]bool) (occRef, SlotKey, bool, bool) {
	teacherAt := make(map[string]map[SlotKey][]occRef)
	classAt := make(map[string]map[SlotKey][]occRef)
	roomAt := make(map[string]map[SlotKey][]occRef)

	for i, d := range s.Demands {
		for j, p := range s.Placements[i] {
			key := SlotKey{Day: p.Day, Slot: p.Slot}
			ref := occRef{demand: i, placement: j}
			addOcc(teacherAt, d.TeacherID, key, ref)
			addOcc(classAt, d.ClassID, key, ref)
			if p.RoomID != "" {
				addOcc(roomAt, p.RoomID, key, ref)
			}
		}
	}

	for _, at := range []map[string]map[SlotKey][]occRef{teacherAt, classAt} {
		if ref, key, ok := r.pickVictim(s, at, pinned, attempted); ok {
			return ref, key, false, true
		}
	}
	if ref, key, ok := r.pickVictim(s, roomAt, pinned, attempted); ok {
		return ref, key, true, true
	}
	return occRef{}, SlotKey{}, false, false
}

// pickVictim scans the occupancy in sorted order and returns the
// lowest-priority movable participant of the first contended cell.
func (r *Resolver) pickVictim(s *Schedule, at map[string]map[SlotKey][]occRef, pinned map[string]map[SlotKey]bool, attempted map[clashKey]bool) (occRef, SlotKey, bool) {
	for _, id := range sortedStringKeys(at) {
		for _, key := range r.ds.Slots {
			refs := at[id][key]
			if len(refs) < 2 {
				continue
			}
			victim, found := occRef{}, false
			for _, ref := range refs {
				d := s.Demands[ref.demand]
				if pinned[d.ClassID+"|"+d.SubjectID][key] {
					continue
				}
				if attempted[clashKey{demand: ref.demand, key: key}] {
					continue
				}
				if !found || d.Priority < s.Demands[victim.demand].Priority {
					victim, found = ref, true
				}
			}
			if found {
				return victim, key, true
			}
		}
	}
	return occRef{}, SlotKey{}, false
}

func addOcc(m map[string]map[SlotKey][]occRef, id string, key SlotKey, ref occRef) {
	if m[id] == nil {
		m[id] = make(map[SlotKey][]occRef)
	}
	m[id][key] = append(m[id][key], ref)
}

// fillRooms assigns a room to roomless placements, moving the lesson to a
// different cell when no room is free at its current one.
func (r *Resolver) fillRooms(s *Schedule, b *board, pinned map[string]map[SlotKey]bool) []ResolutionAction {
	var actions []ResolutionAction
	for i, d := range s.Demands {
		for j := range s.Placements[i] {
			p := s.Placements[i][j]
			if p.RoomID != "" {
				continue
			}
			key := SlotKey{Day: p.Day, Slot: p.Slot}
			if roomID, ok := r.greedy.bestRoom(b, d, key); ok {
				s.Placements[i][j].RoomID = roomID
				markBusy(b.roomBusy, roomID, key)
				actions = append(actions, ResolutionAction{
					Strategy: StrategyAlternativeRoom,
					ClassID:  d.ClassID, SubjectID: d.SubjectID, TeacherID: d.TeacherID,
					Day: p.Day, Slot: p.Slot, RoomID: roomID,
				})
				continue
			}
			if pinned[d.ClassID+"|"+d.SubjectID][key] {
				continue
			}
			// No room free here: try the lesson in a different cell.
			b.unplace(d, p)
			rest := removeAt(s.Placements[i], j)
			if alt, ok := r.greedy.bestPlacement(b, d, rest, nil); ok && alt.RoomID != "" {
				s.Placements[i][j] = alt
				b.place(d, alt)
				actions = append(actions, ResolutionAction{
					Strategy: StrategyAlternativeTime,
					ClassID:  d.ClassID, SubjectID: d.SubjectID, TeacherID: d.TeacherID,
					Day: alt.Day, Slot: alt.Slot, RoomID: alt.RoomID,
				})
			} else {
				b.place(d, p)
			}
		}
	}
	return actions
}

// placeMissing fills unplaced periods, displacing a lower-priority lesson
// when nothing free remains.
func (r *Resolver) placeMissing(s *Schedule, b *board) []ResolutionAction {
	var actions []ResolutionAction
	for i, d := range s.Demands {
		for len(s.Placements[i]) < d.Periods {
			if p, ok := r.greedy.bestPlacement(b, d, s.Placements[i], nil); ok {
				s.Placements[i] = append(s.Placements[i], p)
				b.place(d, p)
				actions = append(actions, ResolutionAction{
					Strategy: StrategyAlternativeTime,
					ClassID:  d.ClassID, SubjectID: d.SubjectID, TeacherID: d.TeacherID,
					Day: p.Day, Slot: p.Slot, RoomID: p.RoomID,
				})
				continue
			}
			act, ok := r.displace(s, b, i)
			if !ok {
				break
			}
			actions = append(actions, act)
		}
	}
	return actions
}

// displace frees a cell held by a strictly lower-priority demand and gives it
// to demand i. The displaced lesson is re-placed when possible; otherwise it
// becomes unplaced and a later pass or caller surfaces it.
func (r *Resolver) displace(s *Schedule, b *board, i int) (ResolutionAction, bool) {
	d := s.Demands[i]
	for _, key := range r.ds.Slots {
		for j, other := range s.Demands {
			if j == i || other.Priority >= d.Priority {
				continue
			}
			// Only displacements that actually unblock demand i matter:
			// the victim must share the teacher or the class with it.
			if other.TeacherID != d.TeacherID && other.ClassID != d.ClassID {
				continue
			}
			for k, p := range s.Placements[j] {
				if p.Day != key.Day || p.Slot != key.Slot {
					continue
				}
				b.unplace(other, p)
				target := Placement{Day: key.Day, Slot: key.Slot}
				if roomID, ok := r.greedy.bestRoom(b, d, key); ok {
					target.RoomID = roomID
				}
				if !b.canPlace(d, target) {
					b.place(other, p)
					continue
				}
				s.Placements[j] = removeAt(s.Placements[j], k)
				s.Placements[i] = append(s.Placements[i], target)
				b.place(d, target)

				// Give the displaced lesson a new home if one exists.
				if alt, ok := r.greedy.bestPlacement(b, other, s.Placements[j], nil); ok {
					s.Placements[j] = append(s.Placements[j], alt)
					b.place(other, alt)
				}
				return ResolutionAction{
					Strategy: StrategyDisplace,
					ClassID:  d.ClassID, SubjectID: d.SubjectID, TeacherID: d.TeacherID,
					Day: target.Day, Slot: target.Slot, RoomID: target.RoomID,
					DisplacedClassID: other.ClassID, DisplacedSubjectID: other.SubjectID,
				}, true
			}
		}
	}
	return ResolutionAction{}, false
}

func (r *Resolver) pinnedCells(s *Schedule) map[string]map[SlotKey]bool {
	pinned := make(map[string]map[SlotKey]bool)
	for _, pin := range r.ds.Pins {
		key := pin.ClassID + "|" + pin.SubjectID
		if pinned[key] == nil {
			pinned[key] = make(map[SlotKey]bool)
		}
		pinned[key][SlotKey{Day: pin.Day, Slot: pin.Slot}] = true
	}
	return pinned
}

func removeAt(ps []Placement, i int) []Placement {
	out := append([]Placement(nil), ps[:i]...)
	return append(out, ps[i+1:]...)
}
