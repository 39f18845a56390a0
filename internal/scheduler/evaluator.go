package scheduler

import (
	"fmt"
	"math"
	"sort"
)

// ViolationKind tags a broken rule.
type ViolationKind string

const (
	ViolationTeacherClash       ViolationKind = "TEACHER_CLASH"
	ViolationClassClash         ViolationKind = "CLASS_CLASH"
	ViolationRoomClash          ViolationKind = "ROOM_CLASH"
	ViolationTeacherUnavailable ViolationKind = "TEACHER_UNAVAILABLE"
	ViolationRoomUnavailable    ViolationKind = "ROOM_UNAVAILABLE"
	ViolationClassBlocked       ViolationKind = "CLASS_BLOCKED"
	ViolationRoomType           ViolationKind = "ROOM_TYPE_MISMATCH"
	ViolationCapacity           ViolationKind = "CAPACITY_EXCEEDED"
	ViolationOverScheduled      ViolationKind = "OVER_SCHEDULED"
	ViolationDailyLimit         ViolationKind = "TEACHER_DAILY_LIMIT"
	ViolationConsecutiveSubject ViolationKind = "CONSECUTIVE_SUBJECT"
	ViolationAdjacentDaySubject ViolationKind = "ADJACENT_DAY_SUBJECT"
	ViolationConsecutiveLoad    ViolationKind = "TEACHER_CONSECUTIVE_LOAD"
)

// Violation is one broken rule pinned to the entities and cell involved.
type Violation struct {
	Kind      ViolationKind `json:"kind"`
	Message   string        `json:"message"`
	ClassID   string        `json:"class_id,omitempty"`
	SubjectID string        `json:"subject_id,omitempty"`
	TeacherID string        `json:"teacher_id,omitempty"`
	RoomID    string        `json:"room_id,omitempty"`
	Day       int           `json:"day"`
	Slot      int           `json:"slot"`
}

// Evaluation is the full quality report of one candidate schedule.
//
// Fitness is the solver's minimization target. Score is the 0-100 headline
// figure exposed to clients: it reacts to hard violations, unplaced periods
// and weighted soft-constraint breaks, while shape penalties (gaps, missed
// double periods) and the subscores only steer the solvers.
type Evaluation struct {
	Hard []Violation
	Soft []Violation

	SoftPenalty  float64
	ShapePenalty float64

	BalanceScore     float64
	PreferenceScore  float64
	UtilizationScore float64

	Unplaced int
	Fitness  float64
	Score    float64
}

// Feasible reports whether the schedule breaks no hard rule and covers every
// demanded period.
func (e Evaluation) Feasible() bool {
	return len(e.Hard) == 0 && e.Unplaced == 0
}

const (
	softConsecutiveDefault  = 3.0
	teacherConsecutiveCost  = 5.0
	teacherDailyCost        = 6.0
	gapCost                 = 2.0
	missedDoublePeriodCost  = 1.0
	hardViolationScoreCost  = 20.0
	unplacedPeriodScoreCost = 10.0
)

// Evaluator scores schedules against one dataset.
type Evaluator struct {
	ds  *Dataset
	cfg Config
}

// NewEvaluator builds an evaluator; zero config fields fall back to defaults.
func NewEvaluator(ds *Dataset, cfg Config) *Evaluator {
	return &Evaluator{ds: ds, cfg: cfg.Normalized()}
}

// Evaluate runs a full scan of the schedule. It never mutates its input.
func (e *Evaluator) Evaluate(s *Schedule) Evaluation {
	var ev Evaluation

	teacherAt := make(map[string]map[SlotKey]int)
	classAt := make(map[string]map[SlotKey]int)
	roomAt := make(map[string]map[SlotKey]int)
	teacherDay := make(map[string]map[int]int)
	// classSubjectSlots[classID][subjectID] lists occupied cells per pair.
	classSubjectSlots := make(map[string]map[string][]SlotKey)

	preferredHits, preferredTotal := 0, 0

	for i, d := range s.Demands {
		placements := s.Placements[i]
		if missing := d.Periods - len(placements); missing > 0 {
			ev.Unplaced += missing
		} else if missing < 0 {
			ev.Hard = append(ev.Hard, Violation{
				Kind:      ViolationOverScheduled,
				Message:   fmt.Sprintf("%d periods scheduled, %d demanded", len(placements), d.Periods),
				ClassID:   d.ClassID,
				SubjectID: d.SubjectID,
				TeacherID: d.TeacherID,
			})
		}

		teacher := e.ds.Teachers[d.TeacherID]
		class := e.ds.Classes[d.ClassID]
		subject := e.ds.Subjects[d.SubjectID]

		for _, p := range placements {
			key := SlotKey{Day: p.Day, Slot: p.Slot}
			bump(teacherAt, d.TeacherID, key)
			bump(classAt, d.ClassID, key)
			if p.RoomID != "" {
				bump(roomAt, p.RoomID, key)
			}
			if teacherDay[d.TeacherID] == nil {
				teacherDay[d.TeacherID] = make(map[int]int)
			}
			teacherDay[d.TeacherID][p.Day]++
			if classSubjectSlots[d.ClassID] == nil {
				classSubjectSlots[d.ClassID] = make(map[string][]SlotKey)
			}
			classSubjectSlots[d.ClassID][d.SubjectID] = append(classSubjectSlots[d.ClassID][d.SubjectID], key)

			if teacher != nil && teacher.Unavailable[key] {
				ev.Hard = append(ev.Hard, Violation{
					Kind: ViolationTeacherUnavailable, Message: "teacher is unavailable in this slot",
					TeacherID: d.TeacherID, ClassID: d.ClassID, SubjectID: d.SubjectID, Day: p.Day, Slot: p.Slot,
				})
			}
			if class != nil && class.Blocked[key] {
				ev.Hard = append(ev.Hard, Violation{
					Kind: ViolationClassBlocked, Message: "class is blocked in this slot",
					ClassID: d.ClassID, SubjectID: d.SubjectID, Day: p.Day, Slot: p.Slot,
				})
			}
			if p.RoomID != "" {
				room := e.ds.Rooms[p.RoomID]
				switch {
				case room == nil:
					ev.Hard = append(ev.Hard, Violation{
						Kind: ViolationRoomUnavailable, Message: "room does not exist",
						RoomID: p.RoomID, ClassID: d.ClassID, Day: p.Day, Slot: p.Slot,
					})
				case room.Unavailable[key]:
					ev.Hard = append(ev.Hard, Violation{
						Kind: ViolationRoomUnavailable, Message: "room is unavailable in this slot",
						RoomID: p.RoomID, ClassID: d.ClassID, Day: p.Day, Slot: p.Slot,
					})
				default:
					if !e.ds.SubjectRoomOK(subject, room) {
						ev.Hard = append(ev.Hard, Violation{
							Kind: ViolationRoomType, Message: "room type does not satisfy the subject",
							RoomID: p.RoomID, ClassID: d.ClassID, SubjectID: d.SubjectID, Day: p.Day, Slot: p.Slot,
						})
					}
					if room.Capacity > 0 && class != nil && class.Size > room.Capacity {
						ev.Hard = append(ev.Hard, Violation{
							Kind:    ViolationCapacity,
							Message: fmt.Sprintf("class size %d exceeds room capacity %d", class.Size, room.Capacity),
							RoomID:  p.RoomID, ClassID: d.ClassID, Day: p.Day, Slot: p.Slot,
						})
					}
				}
				if teacher != nil && len(teacher.PreferredRooms) > 0 {
					preferredTotal++
					if teacher.PreferredRooms[p.RoomID] {
						preferredHits++
					}
				}
			}
		}
	}

	e.collectClashes(&ev, teacherAt, ViolationTeacherClash, "teacher scheduled twice in one slot")
	e.collectClashes(&ev, classAt, ViolationClassClash, "class scheduled twice in one slot")
	e.collectClashes(&ev, roomAt, ViolationRoomClash, "room booked twice in one slot")

	e.checkTeacherLoads(&ev, teacherAt, teacherDay)
	e.checkSubjectRules(&ev, classSubjectSlots)
	e.checkGaps(&ev, teacherAt, classAt)

	ev.BalanceScore = e.balanceScore(teacherDay)
	ev.PreferenceScore = preferenceScore(preferredHits, preferredTotal)
	ev.UtilizationScore = e.utilizationScore(roomAt)

	ev.Fitness = e.cfg.HardPenalty*float64(len(ev.Hard)+ev.Unplaced) +
		ev.SoftPenalty + ev.ShapePenalty -
		(ev.BalanceScore + ev.PreferenceScore + ev.UtilizationScore)

	ev.Score = math.Max(0, math.Min(100,
		100-hardViolationScoreCost*float64(len(ev.Hard))-
			unplacedPeriodScoreCost*float64(ev.Unplaced)-
			ev.SoftPenalty))

	return ev
}

func (e *Evaluator) collectClashes(ev *Evaluation, occ map[string]map[SlotKey]int, kind ViolationKind, msg string) {
	ids := make([]string, 0, len(occ))
	for id := range occ {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		keys := sortedKeys(occ[id])
		for _, key := range keys {
			if extra := occ[id][key] - 1; extra > 0 {
				for i := 0; i < extra; i++ {
					v := Violation{Kind: kind, Message: msg, Day: key.Day, Slot: key.Slot}
					switch kind {
					case ViolationTeacherClash:
						v.TeacherID = id
					case ViolationClassClash:
						v.ClassID = id
					case ViolationRoomClash:
						v.RoomID = id
					}
					ev.Hard = append(ev.Hard, v)
				}
			}
		}
	}
}

func (e *Evaluator) checkTeacherLoads(ev *Evaluation, teacherAt map[string]map[SlotKey]int, teacherDay map[string]map[int]int) {
	for _, id := range sortedStringKeys(teacherDay) {
		teacher := e.ds.Teachers[id]
		if teacher == nil {
			continue
		}
		if teacher.MaxPerDay > 0 {
			for _, day := range sortedIntKeys(teacherDay[id]) {
				excess := teacherDay[id][day] - teacher.MaxPerDay
				if excess <= 0 {
					continue
				}
				v := Violation{
					Kind:    ViolationDailyLimit,
					Message: fmt.Sprintf("teacher exceeds %d periods per day", teacher.MaxPerDay),
					TeacherID: id, Day: day,
				}
				if teacher.MaxPerDayHard {
					for i := 0; i < excess; i++ {
						ev.Hard = append(ev.Hard, v)
					}
				} else {
					ev.Soft = append(ev.Soft, v)
					ev.SoftPenalty += teacherDailyCost * float64(excess)
				}
			}
		}
		if teacher.MaxConsecutive > 0 {
			for _, day := range sortedIntKeys(teacherDay[id]) {
				run := e.longestRun(teacherAt[id], day)
				if run <= teacher.MaxConsecutive {
					continue
				}
				v := Violation{
					Kind:    ViolationConsecutiveLoad,
					Message: fmt.Sprintf("run of %d consecutive periods exceeds limit %d", run, teacher.MaxConsecutive),
					TeacherID: id, Day: day,
				}
				if teacher.MaxConsecutiveHard {
					ev.Hard = append(ev.Hard, v)
				} else {
					ev.Soft = append(ev.Soft, v)
					ev.SoftPenalty += teacherConsecutiveCost * float64(run-teacher.MaxConsecutive)
				}
			}
		}
	}
}

// checkSubjectRules applies the per-subject adjacency rules and the
// double-period preference.
func (e *Evaluator) checkSubjectRules(ev *Evaluation, classSubjectSlots map[string]map[string][]SlotKey) {
	for _, classID := range sortedStringKeys(classSubjectSlots) {
		for _, subjectID := range sortedStringKeys(classSubjectSlots[classID]) {
			subject := e.ds.Subjects[subjectID]
			if subject == nil {
				continue
			}
			cells := classSubjectSlots[classID][subjectID]
			sort.Slice(cells, func(i, j int) bool {
				if cells[i].Day == cells[j].Day {
					return cells[i].Slot < cells[j].Slot
				}
				return cells[i].Day < cells[j].Day
			})

			if subject.NoConsecutive != nil {
				for i := 1; i < len(cells); i++ {
					if cells[i].Day == cells[i-1].Day && e.adjacent(cells[i-1], cells[i]) {
						v := Violation{
							Kind: ViolationConsecutiveSubject, Message: "subject scheduled in consecutive periods",
							ClassID: classID, SubjectID: subjectID, Day: cells[i].Day, Slot: cells[i].Slot,
						}
						if subject.NoConsecutive.Hard {
							ev.Hard = append(ev.Hard, v)
						} else {
							ev.Soft = append(ev.Soft, v)
							ev.SoftPenalty += ruleWeight(subject.NoConsecutive)
						}
					}
				}
			}

			if subject.ForbidAdjacent != nil {
				days := make(map[int]bool)
				for _, c := range cells {
					days[c.Day] = true
				}
				for _, day := range sortedIntKeys(days) {
					if days[day] && days[day+1] {
						v := Violation{
							Kind: ViolationAdjacentDaySubject, Message: "subject scheduled on adjacent days",
							ClassID: classID, SubjectID: subjectID, Day: day + 1,
						}
						if subject.ForbidAdjacent.Hard {
							ev.Hard = append(ev.Hard, v)
						} else {
							ev.Soft = append(ev.Soft, v)
							ev.SoftPenalty += ruleWeight(subject.ForbidAdjacent)
						}
					}
				}
			}

			if subject.PrefersConsecutive && len(cells) >= 2 {
				hasDouble := false
				for i := 1; i < len(cells); i++ {
					if cells[i].Day == cells[i-1].Day && e.adjacent(cells[i-1], cells[i]) {
						hasDouble = true
						break
					}
				}
				if !hasDouble {
					ev.ShapePenalty += missedDoublePeriodCost
				}
			}
		}
	}
}

// checkGaps charges idle periods sitting between lessons of the same day, for
// both teachers and classes.
func (e *Evaluator) checkGaps(ev *Evaluation, teacherAt, classAt map[string]map[SlotKey]int) {
	for _, occ := range []map[string]map[SlotKey]int{teacherAt, classAt} {
		for _, id := range sortedStringKeys(occ) {
			byDay := make(map[int][]int)
			for key := range occ[id] {
				byDay[key.Day] = append(byDay[key.Day], key.Slot)
			}
			for _, day := range sortedIntKeys(byDay) {
				grid := e.ds.SlotsByDay[day]
				used := make(map[int]bool, len(byDay[day]))
				for _, slot := range byDay[day] {
					used[slot] = true
				}
				first, last := -1, -1
				for i, slot := range grid {
					if used[slot] {
						if first == -1 {
							first = i
						}
						last = i
					}
				}
				for i := first + 1; i < last; i++ {
					if !used[grid[i]] {
						ev.ShapePenalty += gapCost
					}
				}
			}
		}
	}
}

// longestRun returns the longest streak of consecutive occupied grid slots on
// one day.
func (e *Evaluator) longestRun(occ map[SlotKey]int, day int) int {
	grid := e.ds.SlotsByDay[day]
	longest, run := 0, 0
	for _, slot := range grid {
		if occ[SlotKey{Day: day, Slot: slot}] > 0 {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return longest
}

// adjacent reports whether two same-day cells sit next to each other in the
// day's grid (breaks interrupt adjacency).
func (e *Evaluator) adjacent(a, b SlotKey) bool {
	grid := e.ds.SlotsByDay[a.Day]
	for i := 1; i < len(grid); i++ {
		if grid[i-1] == a.Slot && grid[i] == b.Slot {
			return true
		}
		if grid[i-1] == b.Slot && grid[i] == a.Slot {
			return true
		}
	}
	return false
}

// balanceScore rewards even daily loads across teachers: 10 for perfectly
// even, falling with the standard deviation.
func (e *Evaluator) balanceScore(teacherDay map[string]map[int]int) float64 {
	var loads []float64
	for _, id := range sortedStringKeys(teacherDay) {
		for _, day := range sortedIntKeys(teacherDay[id]) {
			loads = append(loads, float64(teacherDay[id][day]))
		}
	}
	if len(loads) == 0 {
		return 10
	}
	mean := 0.0
	for _, l := range loads {
		mean += l
	}
	mean /= float64(len(loads))
	variance := 0.0
	for _, l := range loads {
		variance += (l - mean) * (l - mean)
	}
	variance /= float64(len(loads))
	return 10 / (1 + math.Sqrt(variance))
}

func preferenceScore(hits, total int) float64 {
	if total == 0 {
		return 10
	}
	return 10 * float64(hits) / float64(total)
}

// utilizationScore rewards rooms used near the optimal band point.
func (e *Evaluator) utilizationScore(roomAt map[string]map[SlotKey]int) float64 {
	if len(e.ds.RoomOrder) == 0 || len(e.ds.Slots) == 0 {
		return 10
	}
	total := 0.0
	for _, roomID := range e.ds.RoomOrder {
		usage := float64(len(roomAt[roomID])) / float64(len(e.ds.Slots))
		closeness := 1 - math.Abs(usage-e.cfg.Utilization.Optimal)
		if closeness < 0 {
			closeness = 0
		}
		total += closeness
	}
	return 10 * total / float64(len(e.ds.RoomOrder))
}

func ruleWeight(r *subjectRule) float64 {
	if r.Weight > 0 {
		return r.Weight
	}
	return softConsecutiveDefault
}

func bump(m map[string]map[SlotKey]int, id string, key SlotKey) {
	if m[id] == nil {
		m[id] = make(map[SlotKey]int)
	}
	m[id][key]++
}

func sortedKeys(m map[SlotKey]int) []SlotKey {
	keys := make([]SlotKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Day == keys[j].Day {
			return keys[i].Slot < keys[j].Slot
		}
		return keys[i].Day < keys[j].Day
	})
	return keys
}

func sortedStringKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedIntKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
