package scheduler

import (
	"testing"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

func TestNewDatasetBuildsGrid(t *testing.T) {
	ds := testDataset(t)

	assert.Equal(t, "term-1", ds.TermID)
	assert.Len(t, ds.Slots, 8, "break slots are excluded")
	assert.Equal(t, []int{1, 2, 3, 4}, ds.SlotsByDay[1])
	assert.Equal(t, []int{1, 2, 3, 4}, ds.SlotsByDay[2])
	assert.Equal(t, []string{"room-a", "room-b", "room-lab"}, ds.RoomOrder)

	assert.True(t, ds.HasSlot(SlotKey{Day: 1, Slot: 4}))
	assert.False(t, ds.HasSlot(SlotKey{Day: 1, Slot: 9}), "break slot is not teachable")
	assert.False(t, ds.HasSlot(SlotKey{Day: 3, Slot: 1}))
}

func TestNewDatasetParsesTeacherMasks(t *testing.T) {
	in := testInput()
	in.Teachers[0].Unavailable = types.JSONText(`[{"day":1,"slot":1},{"day":2,"slot":4}]`)
	in.Teachers[0].PreferredRooms = types.JSONText(`["room-a"]`)

	ds, err := NewDataset(in)
	require.NoError(t, err)

	teacher := ds.Teachers["teacher-1"]
	require.NotNil(t, teacher)
	assert.True(t, teacher.Competent["math"])
	assert.True(t, teacher.Competent["eng"])
	assert.False(t, teacher.Competent["phy"])
	assert.True(t, teacher.Unavailable[SlotKey{Day: 1, Slot: 1}])
	assert.True(t, teacher.Unavailable[SlotKey{Day: 2, Slot: 4}])
	assert.True(t, teacher.PreferredRooms["room-a"])
}

func TestNewDatasetAppliesConstraints(t *testing.T) {
	in := testInput()
	in.Constraints = []models.Constraint{
		{ID: "c1", Type: models.ConstraintTeacherUnavailable, Payload: types.JSONText(`{"teacher_id":"teacher-2","day":1,"slot":2}`)},
		{ID: "c2", Type: models.ConstraintSubjectRoomType, Hard: true, Payload: types.JSONText(`{"subject_id":"phy","room_type":"LABORATORY"}`)},
		{ID: "c3", Type: models.ConstraintNoConsecutive, Weight: 4, Payload: types.JSONText(`{"subject_id":"math"}`)},
		{ID: "c4", Type: models.ConstraintMaxPeriodsPerDay, Payload: types.JSONText(`{"teacher_id":"teacher-1","limit":3}`)},
		{ID: "c5", Type: models.ConstraintPin, Payload: types.JSONText(`{"class_id":"class-1","subject_id":"math","day":1,"slot":1}`)},
		{ID: "c6", Type: models.ConstraintMaxConsecutive, Hard: true, Payload: types.JSONText(`{"teacher_id":"teacher-2","limit":2}`)},
	}

	ds, err := NewDataset(in)
	require.NoError(t, err)

	assert.True(t, ds.Teachers["teacher-2"].Unavailable[SlotKey{Day: 1, Slot: 2}])
	assert.Equal(t, 3, ds.Teachers["teacher-1"].MaxPerDay)
	assert.False(t, ds.Teachers["teacher-1"].MaxPerDayHard, "limit constraints carry their own hard flag")
	assert.Equal(t, 2, ds.Teachers["teacher-2"].MaxConsecutive)
	assert.True(t, ds.Teachers["teacher-2"].MaxConsecutiveHard)

	phy := ds.Subjects["phy"]
	require.NotNil(t, phy.RoomTypeRule)
	assert.True(t, phy.RoomTypeRule.Hard)
	assert.Equal(t, models.RoomTypeLaboratory, phy.RequiredRoomType)

	math := ds.Subjects["math"]
	require.NotNil(t, math.NoConsecutive)
	assert.False(t, math.NoConsecutive.Hard)
	assert.Equal(t, 4.0, math.NoConsecutive.Weight)

	require.Len(t, ds.Pins, 1)
	assert.Equal(t, Pin{ClassID: "class-1", SubjectID: "math", Day: 1, Slot: 1}, ds.Pins[0])
}

func TestNewDatasetRejectsUnknownConstraintType(t *testing.T) {
	in := testInput()
	in.Constraints = []models.Constraint{
		{ID: "c1", Type: "FULL_MOON_ONLY", Payload: types.JSONText(`{}`)},
	}

	_, err := NewDataset(in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")
}

func TestNewDatasetRejectsMalformedMasks(t *testing.T) {
	in := testInput()
	in.Teachers[0].Competencies = types.JSONText(`{"oops":`)

	_, err := NewDataset(in)
	require.Error(t, err)
}

func TestSubjectRoomOK(t *testing.T) {
	in := testInput()
	in.Constraints = []models.Constraint{
		{ID: "c1", Type: models.ConstraintSubjectRoomType, Hard: true, Payload: types.JSONText(`{"subject_id":"eng","room_type":"CLASSROOM"}`)},
	}
	ds, err := NewDataset(in)
	require.NoError(t, err)

	assert.False(t, ds.SubjectRoomOK(ds.Subjects["phy"], ds.Rooms["room-a"]), "lab subject in a classroom")
	assert.True(t, ds.SubjectRoomOK(ds.Subjects["phy"], ds.Rooms["room-lab"]))
	assert.False(t, ds.SubjectRoomOK(ds.Subjects["eng"], ds.Rooms["room-lab"]), "hard room type rule")
	assert.True(t, ds.SubjectRoomOK(ds.Subjects["eng"], ds.Rooms["room-b"]))
	assert.True(t, ds.SubjectRoomOK(ds.Subjects["math"], ds.Rooms["room-lab"]), "unconstrained subject fits anywhere")
}
