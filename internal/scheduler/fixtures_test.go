package scheduler

import (
	"testing"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

// testInput builds a small but fully populated term: two days of four
// teachable slots each (plus one break), three rooms, two classes, three
// subjects and two teachers.
func testInput() DatasetInput {
	slots := []models.TimeSlot{}
	for day := 1; day <= 2; day++ {
		for idx := 1; idx <= 4; idx++ {
			slots = append(slots, models.TimeSlot{
				ID: "slot", TermID: "term-1", DayOfWeek: day, SlotIndex: idx,
			})
		}
	}
	slots = append(slots, models.TimeSlot{
		ID: "break", TermID: "term-1", DayOfWeek: 1, SlotIndex: 9, IsBreak: true,
	})

	return DatasetInput{
		Term:  models.Term{ID: "term-1", Name: "2026/2027 Ganjil"},
		Slots: slots,
		Rooms: []models.Room{
			{ID: "room-a", Name: "10A", Type: models.RoomTypeClassroom, Capacity: 30},
			{ID: "room-b", Name: "10B", Type: models.RoomTypeClassroom, Capacity: 32},
			{ID: "room-lab", Name: "Lab IPA", Type: models.RoomTypeLaboratory, Capacity: 32},
		},
		Classes: []models.Class{
			{ID: "class-1", Name: "X-A", Grade: 10, ExpectedSize: 28, HomeRoomID: strRef("room-a")},
			{ID: "class-2", Name: "X-B", Grade: 10, ExpectedSize: 30},
		},
		Subjects: []models.Subject{
			{ID: "math", Code: "MTK", Name: "Matematika", Priority: 9, Grades: types.JSONText(`[10]`)},
			{ID: "phy", Code: "FIS", Name: "Fisika", Priority: 8, RequiresLab: true},
			{ID: "eng", Code: "ENG", Name: "Bahasa Inggris", Priority: 5},
		},
		Teachers: []models.Teacher{
			{ID: "teacher-1", FullName: "Dewi", Active: true, Competencies: types.JSONText(`["math","eng"]`)},
			{ID: "teacher-2", FullName: "Budi", Active: true, Competencies: types.JSONText(`["phy"]`)},
		},
	}
}

func testDataset(t *testing.T) *Dataset {
	t.Helper()
	ds, err := NewDataset(testInput())
	require.NoError(t, err)
	return ds
}

func testDemands() []Demand {
	return []Demand{
		{ClassID: "class-1", SubjectID: "math", TeacherID: "teacher-1", Periods: 2, Priority: 9, Grade: 10},
		{ClassID: "class-1", SubjectID: "phy", TeacherID: "teacher-2", Periods: 2, Priority: 8, RequiresLab: true, Grade: 10},
		{ClassID: "class-2", SubjectID: "eng", TeacherID: "teacher-1", Periods: 2, Priority: 5, Grade: 10},
	}
}

// stubCurriculum maps subject ids to weekly periods regardless of grade.
type stubCurriculum map[string]int

func (s stubCurriculum) PeriodsPerWeek(subjectID string, grade int) (int, bool) {
	n, ok := s[subjectID]
	return n, ok
}

func strRef(s string) *string {
	return &s
}
