package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

func geneticTestConfig() Config {
	return Config{
		PopulationSize:   8,
		Generations:      15,
		MutationRate:     0.2,
		CrossoverRate:    0.8,
		TournamentSize:   3,
		EliteSize:        2,
		MaxExecutionTime: time.Minute,
	}
}

// stepClock advances a fixed amount per Now call.
type stepClock struct {
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

func TestGeneticSolveProducesFeasibleSchedule(t *testing.T) {
	ds := testDataset(t)
	solver := NewGeneticSolver(ds, geneticTestConfig(), nil, rand.New(rand.NewSource(1)), nil)

	s, ev, stats, err := solver.Solve(context.Background(), testDemands())
	require.NoError(t, err)

	assert.Empty(t, ev.Hard)
	assert.Zero(t, ev.Unplaced)
	assert.Equal(t, TotalPeriods(testDemands()), s.PlacedCount())
	assert.GreaterOrEqual(t, stats.Generations, 0)
	assert.False(t, stats.TimedOut)
}

func TestGeneticSolveSameSeedSameResult(t *testing.T) {
	ds := testDataset(t)

	run := func() ([]Entry, RunStats) {
		solver := NewGeneticSolver(ds, geneticTestConfig(), nil, rand.New(rand.NewSource(42)), nil)
		s, _, stats, err := solver.Solve(context.Background(), testDemands())
		require.NoError(t, err)
		return s.Entries(), stats
	}

	entriesA, statsA := run()
	entriesB, statsB := run()

	assert.Equal(t, entriesA, entriesB)
	assert.Equal(t, statsA.Generations, statsB.Generations)
	assert.Equal(t, statsA.BestFitness, statsB.BestFitness)
}

func TestMutateVisitsEveryDemandAndKeepsFeasibility(t *testing.T) {
	ds := testDataset(t)
	cfg := geneticTestConfig()
	cfg.MutationRate = 1.0
	solver := NewGeneticSolver(ds, cfg, nil, rand.New(rand.NewSource(7)), nil)

	s := solver.greedy.Solve(testDemands(), nil)
	before := s.PlacedCount()

	// At full rate every demand is a mutation candidate; relocations must
	// stay within hard-feasible cells and never lose a period.
	solver.mutate(s)
	s.Normalize()

	assert.Equal(t, before, s.PlacedCount())
	ev := NewEvaluator(ds, Config{}).Evaluate(s)
	assert.Empty(t, ev.Hard)
	assert.Zero(t, ev.Unplaced)
}

// multiClassInput is a larger term with no soft rules: three days of five
// slots, four classes, three single-subject teachers and five rooms. The
// published score of any full placement depends only on hard violations.
func multiClassInput() DatasetInput {
	slots := []models.TimeSlot{}
	for day := 1; day <= 3; day++ {
		for idx := 1; idx <= 5; idx++ {
			slots = append(slots, models.TimeSlot{
				ID: "slot", TermID: "term-1", DayOfWeek: day, SlotIndex: idx,
			})
		}
	}
	rooms := []models.Room{
		{ID: "room-1", Name: "R1", Type: models.RoomTypeClassroom, Capacity: 36},
		{ID: "room-2", Name: "R2", Type: models.RoomTypeClassroom, Capacity: 36},
		{ID: "room-3", Name: "R3", Type: models.RoomTypeClassroom, Capacity: 36},
		{ID: "room-4", Name: "R4", Type: models.RoomTypeClassroom, Capacity: 36},
		{ID: "room-lab", Name: "Lab", Type: models.RoomTypeLaboratory, Capacity: 36},
	}
	classes := []models.Class{
		{ID: "c1", Name: "X-A", Grade: 10, ExpectedSize: 30},
		{ID: "c2", Name: "X-B", Grade: 10, ExpectedSize: 30},
		{ID: "c3", Name: "X-C", Grade: 10, ExpectedSize: 30},
		{ID: "c4", Name: "X-D", Grade: 10, ExpectedSize: 30},
	}
	return DatasetInput{
		Term:    models.Term{ID: "term-1"},
		Slots:   slots,
		Rooms:   rooms,
		Classes: classes,
		Subjects: []models.Subject{
			{ID: "math", Code: "MTK", Name: "Matematika", Priority: 9},
			{ID: "phy", Code: "FIS", Name: "Fisika", Priority: 8, RequiresLab: true},
			{ID: "eng", Code: "ENG", Name: "Bahasa Inggris", Priority: 5},
		},
		Teachers: []models.Teacher{
			{ID: "t-math", FullName: "Sari", Active: true, Competencies: types.JSONText(`["math"]`)},
			{ID: "t-phy", FullName: "Budi", Active: true, Competencies: types.JSONText(`["phy"]`)},
			{ID: "t-eng", FullName: "Dewi", Active: true, Competencies: types.JSONText(`["eng"]`)},
		},
	}
}

// multiClassDemands lists the term's demands already in solver order:
// priority descending, then class.
func multiClassDemands() []Demand {
	classIDs := []string{"c1", "c2", "c3", "c4"}
	var demands []Demand
	for _, classID := range classIDs {
		demands = append(demands, Demand{ClassID: classID, SubjectID: "math", TeacherID: "t-math", Periods: 2, Priority: 9, Grade: 10})
	}
	for _, classID := range classIDs {
		demands = append(demands, Demand{ClassID: classID, SubjectID: "phy", TeacherID: "t-phy", Periods: 2, Priority: 8, RequiresLab: true, Grade: 10})
	}
	for _, classID := range classIDs {
		demands = append(demands, Demand{ClassID: classID, SubjectID: "eng", TeacherID: "t-eng", Periods: 2, Priority: 5, Grade: 10})
	}
	return demands
}

func TestGeneticSolveNeverWorseThanGreedySeed(t *testing.T) {
	ds, err := NewDataset(multiClassInput())
	require.NoError(t, err)
	cfg := geneticTestConfig()
	demands := multiClassDemands()

	greedySchedule := NewGreedySolver(ds, cfg).Solve(demands, nil)
	greedyEval := NewEvaluator(ds, cfg).Evaluate(greedySchedule)

	solver := NewGeneticSolver(ds, cfg, nil, rand.New(rand.NewSource(3)), nil)
	_, gaEval, stats, err := solver.Solve(context.Background(), demands)
	require.NoError(t, err)

	assert.True(t, greedyEval.Feasible())
	assert.True(t, gaEval.Feasible())
	assert.GreaterOrEqual(t, gaEval.Score, greedyEval.Score)
	// The deterministic greedy schedule seeds the population, so elitism
	// guarantees the evolved best is at least as fit.
	assert.LessOrEqual(t, stats.BestFitness, greedyEval.Fitness)
}

func TestSolversSurviveFullyBlockedGrid(t *testing.T) {
	in := testInput()
	for _, teacherID := range []string{"teacher-1", "teacher-2"} {
		for day := 1; day <= 2; day++ {
			for idx := 1; idx <= 4; idx++ {
				in.Constraints = append(in.Constraints, models.Constraint{
					ID:   fmt.Sprintf("c-%s-%d-%d", teacherID, day, idx),
					Type: models.ConstraintTeacherUnavailable,
					Hard: true,
					Payload: types.JSONText(fmt.Sprintf(
						`{"teacher_id":%q,"day":%d,"slot":%d}`, teacherID, day, idx)),
				})
			}
		}
	}
	ds, err := NewDataset(in)
	require.NoError(t, err)
	demands := testDemands()

	greedy := NewGreedySolver(ds, Config{}).Solve(demands, nil)
	assert.Zero(t, greedy.PlacedCount())

	solver := NewGeneticSolver(ds, geneticTestConfig(), nil, rand.New(rand.NewSource(1)), nil)
	s, ev, _, err := solver.Solve(context.Background(), demands)
	require.NoError(t, err)

	assert.Zero(t, s.PlacedCount())
	assert.False(t, ev.Feasible())
	assert.Equal(t, TotalPeriods(demands), ev.Unplaced, "every demanded period stays unassigned")
}

func TestGeneticSolveCancellationReturnsBestSoFar(t *testing.T) {
	ds := testDataset(t)
	solver := NewGeneticSolver(ds, geneticTestConfig(), nil, rand.New(rand.NewSource(1)), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, _, _, err := solver.Solve(ctx, testDemands())
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, s, "cancellation still yields the best candidate found")
}

func TestGeneticSolveTimesOut(t *testing.T) {
	ds := testDataset(t)
	cfg := geneticTestConfig()
	cfg.MaxExecutionTime = time.Second

	// Each Now call advances one second, so the deadline passes before the
	// first generation.
	clock := &stepClock{now: time.Unix(0, 0), step: time.Second}
	solver := NewGeneticSolver(ds, cfg, clock, rand.New(rand.NewSource(1)), nil)

	// Nine periods for one class cannot fit an eight-cell week, so the run
	// cannot finish early on a perfect schedule.
	demands := []Demand{{ClassID: "class-1", SubjectID: "math", TeacherID: "teacher-1", Periods: 9, Priority: 9}}
	_, _, stats, err := solver.Solve(context.Background(), demands)
	require.NoError(t, err)
	assert.True(t, stats.TimedOut)
	assert.Zero(t, stats.Generations)
}
