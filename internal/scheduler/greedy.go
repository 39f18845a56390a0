package scheduler

import "math/rand"

// GreedySolver builds a schedule constructively: demands are taken
// hardest-first and each period lands on the highest scoring feasible cell.
// With a nil rng the result is fully deterministic; with an rng a small score
// jitter produces distinct but still feasibility-respecting variants, which
// the genetic solver uses to seed its population.
type GreedySolver struct {
	ds  *Dataset
	cfg Config
}

// NewGreedySolver returns a solver over the dataset.
func NewGreedySolver(ds *Dataset, cfg Config) *GreedySolver {
	return &GreedySolver{ds: ds, cfg: cfg.Normalized()}
}

// Solve produces one candidate schedule for the demand set. Demands that
// cannot be placed anywhere stay unplaced rather than overwrite others.
func (g *GreedySolver) Solve(demands []Demand, rng *rand.Rand) *Schedule {
	s := NewSchedule(demands)
	b := newBoard(g.ds)

	g.applyPins(s, b)

	for i := range s.Demands {
		d := s.Demands[i]
		for len(s.Placements[i]) < d.Periods {
			p, ok := g.bestPlacement(b, d, s.Placements[i], rng)
			if !ok {
				break
			}
			s.Placements[i] = append(s.Placements[i], p)
			b.place(d, p)
		}
	}

	s.Normalize()
	return s
}

// applyPins reserves pinned cells before free placement starts. A pin whose
// demand does not exist is skipped; the evaluator has no knowledge of pins so
// a dataset-invalid pin surfaces as a hard violation instead of silently
// moving.
func (g *GreedySolver) applyPins(s *Schedule, b *board) {
	index := make(map[string]int, len(s.Demands))
	for i, d := range s.Demands {
		index[d.ClassID+"|"+d.SubjectID] = i
	}
	for _, pin := range g.ds.Pins {
		i, ok := index[pin.ClassID+"|"+pin.SubjectID]
		if !ok {
			continue
		}
		d := s.Demands[i]
		if len(s.Placements[i]) >= d.Periods {
			continue
		}
		p := Placement{Day: pin.Day, Slot: pin.Slot, RoomID: pin.RoomID}
		if p.RoomID == "" {
			key := SlotKey{Day: pin.Day, Slot: pin.Slot}
			if roomID, found := g.bestRoom(b, d, key); found {
				p.RoomID = roomID
			}
		}
		s.Placements[i] = append(s.Placements[i], p)
		b.place(d, p)
	}
}

// bestPlacement scans every cell of the grid and keeps the feasible one with
// the highest score. First-best wins ties, so the slot order fixes the
// deterministic outcome.
func (g *GreedySolver) bestPlacement(b *board, d Demand, existing []Placement, rng *rand.Rand) (Placement, bool) {
	subject := g.ds.Subjects[d.SubjectID]
	best := Placement{}
	bestScore := 0.0
	found := false

	for _, key := range g.ds.Slots {
		if !b.canPlace(d, Placement{Day: key.Day, Slot: key.Slot}) {
			continue
		}
		if g.breaksHardAdjacency(subject, existing, key) {
			continue
		}

		score := g.cellScore(b, d, subject, existing, key)
		roomID, hasRoom := g.bestRoom(b, d, key)
		if hasRoom {
			score += g.roomScore(d, roomID)
		} else {
			// A roomless placement is a last resort for the resolver to fix.
			score -= 8
		}
		if rng != nil {
			score += rng.Float64() * 0.25
		}

		if !found || score > bestScore {
			found = true
			bestScore = score
			best = Placement{Day: key.Day, Slot: key.Slot, RoomID: roomID}
		}
	}
	return best, found
}

// breaksHardAdjacency rejects cells that would violate a hard subject
// adjacency rule outright.
func (g *GreedySolver) breaksHardAdjacency(subject *SubjectInfo, existing []Placement, key SlotKey) bool {
	if subject == nil {
		return false
	}
	if subject.NoConsecutive != nil && subject.NoConsecutive.Hard {
		for _, p := range existing {
			if p.Day == key.Day && g.slotAdjacent(key.Day, p.Slot, key.Slot) {
				return true
			}
		}
	}
	if subject.ForbidAdjacent != nil && subject.ForbidAdjacent.Hard {
		for _, p := range existing {
			if p.Day == key.Day-1 || p.Day == key.Day+1 {
				return true
			}
		}
	}
	return false
}

func (g *GreedySolver) cellScore(b *board, d Demand, subject *SubjectInfo, existing []Placement, key SlotKey) float64 {
	w := g.cfg.Weights
	score := 0.0

	sameDay := 0
	adjacentToExisting := false
	for _, p := range existing {
		if p.Day == key.Day {
			sameDay++
			if g.slotAdjacent(key.Day, p.Slot, key.Slot) {
				adjacentToExisting = true
			}
		}
	}
	if sameDay > 0 {
		if subject != nil && subject.PrefersConsecutive && adjacentToExisting {
			score += 3 * w.ConstraintSatisfaction
		} else {
			// Spread repeated periods of a subject across the week.
			score -= 5 * float64(sameDay)
		}
	}
	if subject != nil && subject.NoConsecutive != nil && !subject.NoConsecutive.Hard && adjacentToExisting {
		score -= ruleWeight(subject.NoConsecutive) * w.ConstraintSatisfaction
	}
	if subject != nil && subject.ForbidAdjacent != nil && !subject.ForbidAdjacent.Hard {
		for _, p := range existing {
			if p.Day == key.Day-1 || p.Day == key.Day+1 {
				score -= ruleWeight(subject.ForbidAdjacent) * w.ConstraintSatisfaction
				break
			}
		}
	}

	// Keep teacher days compact: reward cells adjacent to the teacher's
	// existing lessons, charge cells that open a gap.
	teacherBusy := b.teacherBusy[d.TeacherID]
	if len(teacherBusy) > 0 {
		busyToday := false
		adjacentToTeacher := false
		for cell := range teacherBusy {
			if cell.Day != key.Day {
				continue
			}
			busyToday = true
			if g.slotAdjacent(key.Day, cell.Slot, key.Slot) {
				adjacentToTeacher = true
			}
		}
		if adjacentToTeacher {
			score += w.TimePreference
		} else if busyToday {
			score -= 0.5
		}
	}

	// Light pressure towards balanced daily teacher loads.
	score -= 0.3 * float64(b.teacherDay[d.TeacherID][key.Day])

	// Mild early-slot preference keeps afternoons free when nothing else
	// differentiates candidates.
	score -= 0.05 * float64(key.Slot)

	return score
}

// bestRoom picks the highest scoring free room for the cell, or reports none.
func (g *GreedySolver) bestRoom(b *board, d Demand, key SlotKey) (string, bool) {
	class := g.ds.Classes[d.ClassID]
	subject := g.ds.Subjects[d.SubjectID]
	bestID := ""
	bestScore := 0.0
	found := false

	for _, roomID := range g.ds.RoomOrder {
		room := g.ds.Rooms[roomID]
		if !b.roomFree(roomID, key) {
			continue
		}
		if !g.ds.SubjectRoomOK(subject, room) {
			continue
		}
		if room.Capacity > 0 && class != nil && class.Size > room.Capacity {
			continue
		}
		score := g.roomScore(d, roomID)
		if !found || score > bestScore {
			found = true
			bestScore = score
			bestID = roomID
		}
	}
	return bestID, found
}

func (g *GreedySolver) roomScore(d Demand, roomID string) float64 {
	w := g.cfg.Weights
	room := g.ds.Rooms[roomID]
	class := g.ds.Classes[d.ClassID]
	teacher := g.ds.Teachers[d.TeacherID]
	score := 0.0

	if teacher != nil && teacher.PreferredRooms[roomID] {
		score += 2 * w.TeacherPreference
	}
	if class != nil && class.HomeRoomID == roomID {
		score += 1.5 * w.RoomSuitability
	}
	if room != nil && room.Capacity > 0 && class != nil && class.Size > 0 {
		// Tight fits beat oversized rooms.
		fit := float64(class.Size) / float64(room.Capacity)
		if fit > 1 {
			fit = 0
		}
		score += w.RoomSuitability * fit
	}
	return score
}

func (g *GreedySolver) slotAdjacent(day, a, b int) bool {
	grid := g.ds.SlotsByDay[day]
	for i := 1; i < len(grid); i++ {
		if (grid[i-1] == a && grid[i] == b) || (grid[i-1] == b && grid[i] == a) {
			return true
		}
	}
	return false
}
