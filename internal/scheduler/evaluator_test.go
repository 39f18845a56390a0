package scheduler

import (
	"testing"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

func placed(s *Schedule, i int, ps ...Placement) {
	s.Placements[i] = append(s.Placements[i], ps...)
}

func TestEvaluateCleanScheduleScoresFull(t *testing.T) {
	ds := testDataset(t)
	s := NewSchedule(testDemands())
	placed(s, 0, Placement{Day: 1, Slot: 1, RoomID: "room-a"}, Placement{Day: 2, Slot: 1, RoomID: "room-a"})
	placed(s, 1, Placement{Day: 1, Slot: 2, RoomID: "room-lab"}, Placement{Day: 2, Slot: 2, RoomID: "room-lab"})
	placed(s, 2, Placement{Day: 1, Slot: 3, RoomID: "room-b"}, Placement{Day: 2, Slot: 3, RoomID: "room-b"})

	ev := NewEvaluator(ds, Config{}).Evaluate(s)

	assert.Empty(t, ev.Hard)
	assert.Empty(t, ev.Soft)
	assert.Zero(t, ev.Unplaced)
	assert.True(t, ev.Feasible())
	assert.Equal(t, 100.0, ev.Score)
	// teacher-1 teaches slots 1 and 3 with slot 2 idle on both days.
	assert.Greater(t, ev.ShapePenalty, 0.0)
}

func TestEvaluateTeacherClash(t *testing.T) {
	ds := testDataset(t)
	demands := []Demand{
		{ClassID: "class-1", SubjectID: "math", TeacherID: "teacher-1", Periods: 1, Priority: 9},
		{ClassID: "class-2", SubjectID: "eng", TeacherID: "teacher-1", Periods: 1, Priority: 5},
	}
	s := NewSchedule(demands)
	placed(s, 0, Placement{Day: 1, Slot: 1, RoomID: "room-a"})
	placed(s, 1, Placement{Day: 1, Slot: 1, RoomID: "room-b"})

	ev := NewEvaluator(ds, Config{}).Evaluate(s)

	require.Len(t, ev.Hard, 1)
	assert.Equal(t, ViolationTeacherClash, ev.Hard[0].Kind)
	assert.Equal(t, "teacher-1", ev.Hard[0].TeacherID)
	assert.Equal(t, 80.0, ev.Score)
	assert.False(t, ev.Feasible())
}

func TestEvaluateUnplacedPeriods(t *testing.T) {
	ds := testDataset(t)
	demands := []Demand{{ClassID: "class-1", SubjectID: "math", TeacherID: "teacher-1", Periods: 2}}
	s := NewSchedule(demands)
	placed(s, 0, Placement{Day: 1, Slot: 1, RoomID: "room-a"})

	ev := NewEvaluator(ds, Config{}).Evaluate(s)

	assert.Equal(t, 1, ev.Unplaced)
	assert.Equal(t, 90.0, ev.Score)
	assert.False(t, ev.Feasible())
}

func TestEvaluateOverScheduled(t *testing.T) {
	ds := testDataset(t)
	demands := []Demand{{ClassID: "class-1", SubjectID: "math", TeacherID: "teacher-1", Periods: 1}}
	s := NewSchedule(demands)
	placed(s, 0, Placement{Day: 1, Slot: 1, RoomID: "room-a"}, Placement{Day: 2, Slot: 1, RoomID: "room-a"})

	ev := NewEvaluator(ds, Config{}).Evaluate(s)

	require.NotEmpty(t, ev.Hard)
	assert.Equal(t, ViolationOverScheduled, ev.Hard[0].Kind)
}

func TestEvaluateRoomViolations(t *testing.T) {
	in := testInput()
	in.Rooms[1].Capacity = 10 // room-b now too small for class-2
	ds, err := NewDataset(in)
	require.NoError(t, err)

	demands := []Demand{
		{ClassID: "class-1", SubjectID: "phy", TeacherID: "teacher-2", Periods: 1, RequiresLab: true},
		{ClassID: "class-2", SubjectID: "eng", TeacherID: "teacher-1", Periods: 1},
	}
	s := NewSchedule(demands)
	placed(s, 0, Placement{Day: 1, Slot: 1, RoomID: "room-a"}) // lab subject in a classroom
	placed(s, 1, Placement{Day: 1, Slot: 2, RoomID: "room-b"}) // 30 students, capacity 10

	ev := NewEvaluator(ds, Config{}).Evaluate(s)

	kinds := make(map[ViolationKind]int)
	for _, v := range ev.Hard {
		kinds[v.Kind]++
	}
	assert.Equal(t, 1, kinds[ViolationRoomType])
	assert.Equal(t, 1, kinds[ViolationCapacity])
}

func TestEvaluateTeacherUnavailable(t *testing.T) {
	in := testInput()
	in.Constraints = []models.Constraint{
		{ID: "c1", Type: models.ConstraintTeacherUnavailable, Payload: types.JSONText(`{"teacher_id":"teacher-1","day":1,"slot":1}`)},
	}
	ds, err := NewDataset(in)
	require.NoError(t, err)

	demands := []Demand{{ClassID: "class-1", SubjectID: "math", TeacherID: "teacher-1", Periods: 1}}
	s := NewSchedule(demands)
	placed(s, 0, Placement{Day: 1, Slot: 1, RoomID: "room-a"})

	ev := NewEvaluator(ds, Config{}).Evaluate(s)

	require.Len(t, ev.Hard, 1)
	assert.Equal(t, ViolationTeacherUnavailable, ev.Hard[0].Kind)
}

func TestEvaluateDailyLimit(t *testing.T) {
	in := testInput()
	in.Constraints = []models.Constraint{
		{ID: "c1", Type: models.ConstraintMaxPeriodsPerDay, Hard: true, Payload: types.JSONText(`{"teacher_id":"teacher-1","limit":2}`)},
	}
	ds, err := NewDataset(in)
	require.NoError(t, err)

	demands := []Demand{{ClassID: "class-1", SubjectID: "math", TeacherID: "teacher-1", Periods: 3}}
	s := NewSchedule(demands)
	placed(s, 0,
		Placement{Day: 1, Slot: 1, RoomID: "room-a"},
		Placement{Day: 1, Slot: 2, RoomID: "room-a"},
		Placement{Day: 1, Slot: 3, RoomID: "room-a"},
	)

	ev := NewEvaluator(ds, Config{}).Evaluate(s)

	require.Len(t, ev.Hard, 1)
	assert.Equal(t, ViolationDailyLimit, ev.Hard[0].Kind)
}

func TestEvaluateDailyLimitSoftConstraint(t *testing.T) {
	// The same cap as above, but the constraint row is not marked hard: the
	// overrun costs penalty instead of disqualifying the schedule.
	in := testInput()
	in.Constraints = []models.Constraint{
		{ID: "c1", Type: models.ConstraintMaxPeriodsPerDay, Payload: types.JSONText(`{"teacher_id":"teacher-1","limit":2}`)},
	}
	ds, err := NewDataset(in)
	require.NoError(t, err)

	demands := []Demand{{ClassID: "class-1", SubjectID: "math", TeacherID: "teacher-1", Periods: 3}}
	s := NewSchedule(demands)
	placed(s, 0,
		Placement{Day: 1, Slot: 1, RoomID: "room-a"},
		Placement{Day: 1, Slot: 2, RoomID: "room-a"},
		Placement{Day: 1, Slot: 3, RoomID: "room-a"},
	)

	ev := NewEvaluator(ds, Config{}).Evaluate(s)

	assert.Empty(t, ev.Hard)
	require.Len(t, ev.Soft, 1)
	assert.Equal(t, ViolationDailyLimit, ev.Soft[0].Kind)
	assert.Equal(t, teacherDailyCost, ev.SoftPenalty)
	assert.True(t, ev.Feasible())
}

func TestEvaluateSoftConsecutiveSubject(t *testing.T) {
	in := testInput()
	in.Constraints = []models.Constraint{
		{ID: "c1", Type: models.ConstraintNoConsecutive, Weight: 4, Payload: types.JSONText(`{"subject_id":"math"}`)},
	}
	ds, err := NewDataset(in)
	require.NoError(t, err)

	demands := []Demand{{ClassID: "class-1", SubjectID: "math", TeacherID: "teacher-1", Periods: 2}}
	s := NewSchedule(demands)
	placed(s, 0, Placement{Day: 1, Slot: 1, RoomID: "room-a"}, Placement{Day: 1, Slot: 2, RoomID: "room-a"})

	ev := NewEvaluator(ds, Config{}).Evaluate(s)

	assert.Empty(t, ev.Hard)
	require.Len(t, ev.Soft, 1)
	assert.Equal(t, ViolationConsecutiveSubject, ev.Soft[0].Kind)
	assert.Equal(t, 4.0, ev.SoftPenalty)
	assert.Equal(t, 96.0, ev.Score)
}

func TestEvaluateHardAdjacentDays(t *testing.T) {
	in := testInput()
	in.Constraints = []models.Constraint{
		{ID: "c1", Type: models.ConstraintForbidAdjacentSame, Hard: true, Payload: types.JSONText(`{"subject_id":"math"}`)},
	}
	ds, err := NewDataset(in)
	require.NoError(t, err)

	demands := []Demand{{ClassID: "class-1", SubjectID: "math", TeacherID: "teacher-1", Periods: 2}}
	s := NewSchedule(demands)
	placed(s, 0, Placement{Day: 1, Slot: 1, RoomID: "room-a"}, Placement{Day: 2, Slot: 1, RoomID: "room-a"})

	ev := NewEvaluator(ds, Config{}).Evaluate(s)

	require.Len(t, ev.Hard, 1)
	assert.Equal(t, ViolationAdjacentDaySubject, ev.Hard[0].Kind)
}

func TestEvaluateTeacherConsecutiveRun(t *testing.T) {
	in := testInput()
	in.Constraints = []models.Constraint{
		{ID: "c1", Type: models.ConstraintMaxConsecutive, Payload: types.JSONText(`{"teacher_id":"teacher-1","limit":2}`)},
	}
	ds, err := NewDataset(in)
	require.NoError(t, err)

	demands := []Demand{{ClassID: "class-1", SubjectID: "math", TeacherID: "teacher-1", Periods: 3}}
	s := NewSchedule(demands)
	placed(s, 0,
		Placement{Day: 1, Slot: 1, RoomID: "room-a"},
		Placement{Day: 1, Slot: 2, RoomID: "room-a"},
		Placement{Day: 1, Slot: 3, RoomID: "room-a"},
	)

	ev := NewEvaluator(ds, Config{}).Evaluate(s)

	assert.Empty(t, ev.Hard)
	require.Len(t, ev.Soft, 1)
	assert.Equal(t, ViolationConsecutiveLoad, ev.Soft[0].Kind)
	assert.Equal(t, 5.0, ev.SoftPenalty)
}

func TestEvaluateTeacherConsecutiveHardConstraint(t *testing.T) {
	in := testInput()
	in.Constraints = []models.Constraint{
		{ID: "c1", Type: models.ConstraintMaxConsecutive, Hard: true, Payload: types.JSONText(`{"teacher_id":"teacher-1","limit":2}`)},
	}
	ds, err := NewDataset(in)
	require.NoError(t, err)

	demands := []Demand{{ClassID: "class-1", SubjectID: "math", TeacherID: "teacher-1", Periods: 3}}
	s := NewSchedule(demands)
	placed(s, 0,
		Placement{Day: 1, Slot: 1, RoomID: "room-a"},
		Placement{Day: 1, Slot: 2, RoomID: "room-a"},
		Placement{Day: 1, Slot: 3, RoomID: "room-a"},
	)

	ev := NewEvaluator(ds, Config{}).Evaluate(s)

	require.Len(t, ev.Hard, 1)
	assert.Equal(t, ViolationConsecutiveLoad, ev.Hard[0].Kind)
	assert.False(t, ev.Feasible())
}

func TestEvaluateEmptyDemandsIsPerfect(t *testing.T) {
	ds := testDataset(t)
	ev := NewEvaluator(ds, Config{}).Evaluate(NewSchedule(nil))

	assert.True(t, ev.Feasible())
	assert.Equal(t, 100.0, ev.Score)
}
