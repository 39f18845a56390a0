package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

func TestBuildDemandsExpandsAssignments(t *testing.T) {
	ds := testDataset(t)
	assignments := []models.SubjectAssignment{
		{ClassID: "class-2", SubjectID: "eng", TeacherID: "teacher-1", IsPrimary: true, IsActive: true},
		{ClassID: "class-1", SubjectID: "math", TeacherID: "teacher-1", IsPrimary: true, IsActive: true},
		{ClassID: "class-1", SubjectID: "phy", TeacherID: "teacher-2", IsPrimary: true, IsActive: true},
		// Non-primary and inactive rows are skipped without validation.
		{ClassID: "class-1", SubjectID: "math", TeacherID: "teacher-2", IsPrimary: false, IsActive: true},
		{ClassID: "class-2", SubjectID: "math", TeacherID: "teacher-1", IsPrimary: true, IsActive: false},
	}

	demands, err := BuildDemands(ds, assignments, stubCurriculum{"math": 4, "phy": 3})
	require.NoError(t, err)
	require.Len(t, demands, 3)

	// Sorted hardest-first: priority desc.
	assert.Equal(t, "math", demands[0].SubjectID)
	assert.Equal(t, "phy", demands[1].SubjectID)
	assert.Equal(t, "eng", demands[2].SubjectID)

	assert.Equal(t, 4, demands[0].Periods)
	assert.Equal(t, 3, demands[1].Periods)
	assert.Equal(t, defaultPeriodsPerWeek, demands[2].Periods, "missing curriculum entry falls back to the default")
	assert.True(t, demands[1].RequiresLab)
	assert.Equal(t, 11, TotalPeriods(demands))
}

func TestBuildDemandsUnknownTeacher(t *testing.T) {
	ds := testDataset(t)
	_, err := BuildDemands(ds, []models.SubjectAssignment{
		{ClassID: "class-1", SubjectID: "math", TeacherID: "teacher-9", IsPrimary: true, IsActive: true},
	}, stubCurriculum{})

	var cerr *CurriculumError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "teacher-9", cerr.TeacherID)
	assert.Contains(t, cerr.Reason, "unknown teacher")
}

func TestBuildDemandsIncompetentTeacher(t *testing.T) {
	ds := testDataset(t)
	_, err := BuildDemands(ds, []models.SubjectAssignment{
		{ClassID: "class-1", SubjectID: "phy", TeacherID: "teacher-1", IsPrimary: true, IsActive: true},
	}, stubCurriculum{})

	var cerr *CurriculumError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Reason, "not competent")
}

func TestBuildDemandsGradeMismatch(t *testing.T) {
	in := testInput()
	in.Classes = append(in.Classes, models.Class{ID: "class-11", Name: "XI-A", Grade: 11, ExpectedSize: 26})
	ds, err := NewDataset(in)
	require.NoError(t, err)

	// math is restricted to grade 10.
	_, err = BuildDemands(ds, []models.SubjectAssignment{
		{ClassID: "class-11", SubjectID: "math", TeacherID: "teacher-1", IsPrimary: true, IsActive: true},
	}, stubCurriculum{})

	var cerr *CurriculumError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Reason, "grade 11")
}

func TestBuildDemandsDuplicatePrimary(t *testing.T) {
	ds := testDataset(t)
	_, err := BuildDemands(ds, []models.SubjectAssignment{
		{ClassID: "class-2", SubjectID: "eng", TeacherID: "teacher-1", IsPrimary: true, IsActive: true},
		{ClassID: "class-2", SubjectID: "eng", TeacherID: "teacher-1", IsPrimary: true, IsActive: true},
	}, stubCurriculum{})

	var cerr *CurriculumError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Reason, "duplicate primary")
}

func TestBuildDemandsSkipsZeroPeriodSubjects(t *testing.T) {
	ds := testDataset(t)
	demands, err := BuildDemands(ds, []models.SubjectAssignment{
		{ClassID: "class-2", SubjectID: "eng", TeacherID: "teacher-1", IsPrimary: true, IsActive: true},
	}, stubCurriculum{"eng": 0})
	require.NoError(t, err)
	assert.Empty(t, demands)
}
