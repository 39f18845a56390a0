package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
	"github.com/noah-isme/sma-timetable-engine/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-engine/pkg/errors"
)

func TestAnalyticsServiceAnalyzeCleanTimetable(t *testing.T) {
	fx := newAnalyticsFixture(t, analyticsFixtureConfig{entries: cleanTimetableEntries()})

	analysis, err := fx.service.Analyze(context.Background(), "term-1")
	require.NoError(t, err)

	assert.Equal(t, 100.0, analysis.Score.Score)
	assert.Equal(t, models.ScoreGrade("A"), analysis.Score.Grade)
	assert.Zero(t, analysis.Score.HardViolations)
	assert.Zero(t, analysis.Score.SoftPenalty)
	assert.False(t, analysis.Score.ComputedAt.IsZero())

	require.Len(t, analysis.Workloads, 2)
	first := analysis.Workloads[0]
	assert.Equal(t, "teacher-1", first.TeacherID)
	assert.Equal(t, "Dewi", first.TeacherName)
	assert.Equal(t, 4, first.TotalPeriods)
	assert.Equal(t, map[int]int{1: 2, 2: 2}, first.PerDay)
	assert.Equal(t, 1, first.MaxConsecutive)
	assert.True(t, first.Underutilized)
	assert.False(t, first.Overloaded)

	require.Len(t, analysis.Rooms, 3)
	assert.Equal(t, []string{"room-a", "room-b", "room-lab"}, []string{
		analysis.Rooms[0].RoomID, analysis.Rooms[1].RoomID, analysis.Rooms[2].RoomID,
	})
	for _, room := range analysis.Rooms {
		assert.Equal(t, 2, room.UsedSlots)
		assert.Equal(t, 8, room.TotalSlots)
		assert.InDelta(t, 0.25, room.UsageRate, 1e-9)
		assert.True(t, room.BelowTarget)
		assert.False(t, room.AboveTarget)
	}

	for _, rec := range analysis.Recommendations {
		assert.NotEqual(t, "REGENERATE", rec.Code)
		assert.NotEqual(t, "ROOM_SHORTAGE", rec.Code)
	}

	assert.Contains(t, fx.cache.setKeys, "analytics:term-1:term_analysis")
}

func TestAnalyticsServiceAnalyzeServesFromCache(t *testing.T) {
	fx := newAnalyticsFixture(t, analyticsFixtureConfig{entries: cleanTimetableEntries()})

	first, err := fx.service.Analyze(context.Background(), "term-1")
	require.NoError(t, err)
	second, err := fx.service.Analyze(context.Background(), "term-1")
	require.NoError(t, err)

	assert.Equal(t, 1, fx.timetable.calls, "second call must be answered from cache")
	assert.Equal(t, first.Score.Score, second.Score.Score)
	assert.Equal(t, first.Workloads, second.Workloads)
}

func TestAnalyticsServiceAnalyzeFlagsHardConflicts(t *testing.T) {
	// Teacher-1 teaches two classes in the same cell.
	entries := []models.TimetableEntry{
		{TermID: "term-1", ClassID: "class-1", SubjectID: "math", TeacherID: "teacher-1", RoomID: roomRef("room-a"), DayOfWeek: 1, SlotIndex: 1, IsActive: true},
		{TermID: "term-1", ClassID: "class-2", SubjectID: "eng", TeacherID: "teacher-1", RoomID: roomRef("room-b"), DayOfWeek: 1, SlotIndex: 1, IsActive: true},
	}
	fx := newAnalyticsFixture(t, analyticsFixtureConfig{entries: entries})

	analysis, err := fx.service.Analyze(context.Background(), "term-1")
	require.NoError(t, err)

	assert.Equal(t, 1, analysis.Score.HardViolations)
	assert.Equal(t, models.ScoreGrade("B"), analysis.Score.Grade)

	var codes []string
	for _, rec := range analysis.Recommendations {
		codes = append(codes, rec.Code)
	}
	assert.Contains(t, codes, "REGENERATE")

	var kinds []scheduler.ViolationKind
	for _, v := range analysis.Conflicts {
		kinds = append(kinds, v.Kind)
	}
	assert.Contains(t, kinds, scheduler.ViolationTeacherClash)
}

func TestAnalyticsServiceAnalyzeHonorsConfiguredBands(t *testing.T) {
	entries := []models.TimetableEntry{
		{TermID: "term-1", ClassID: "class-1", SubjectID: "math", TeacherID: "teacher-1", RoomID: roomRef("room-a"), DayOfWeek: 1, SlotIndex: 1, IsActive: true},
		{TermID: "term-1", ClassID: "class-2", SubjectID: "eng", TeacherID: "teacher-1", RoomID: roomRef("room-b"), DayOfWeek: 1, SlotIndex: 1, IsActive: true},
	}
	fx := newAnalyticsFixture(t, analyticsFixtureConfig{
		entries:   entries,
		analytics: AnalyticsConfig{GradeA: 75, GradeB: 50, GradeC: 30, GradeD: 10},
	})

	analysis, err := fx.service.Analyze(context.Background(), "term-1")
	require.NoError(t, err)

	// One hard clash scores 80, which clears the lowered A band.
	assert.Equal(t, 80.0, analysis.Score.Score)
	assert.Equal(t, models.ScoreGrade("A"), analysis.Score.Grade)
}

func TestAnalyticsServiceWorkloadsHonorUtilizationThreshold(t *testing.T) {
	fx := newAnalyticsFixture(t, analyticsFixtureConfig{
		entries:   cleanTimetableEntries(),
		analytics: AnalyticsConfig{UnderutilizedThreshold: 2},
	})

	analysis, err := fx.service.Analyze(context.Background(), "term-1")
	require.NoError(t, err)

	require.NotEmpty(t, analysis.Workloads)
	for _, w := range analysis.Workloads {
		assert.False(t, w.Underutilized, "every teacher carries at least 2 periods")
	}
}

func TestAnalyticsServiceAnalyzeTermNotFound(t *testing.T) {
	fx := newAnalyticsFixture(t, analyticsFixtureConfig{missingTerm: true})

	_, err := fx.service.Analyze(context.Background(), "0e1e9f70-0000-0000-0000-000000000000")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAnalyticsServiceAnalyzeNoActiveTimetable(t *testing.T) {
	fx := newAnalyticsFixture(t, analyticsFixtureConfig{})

	_, err := fx.service.Analyze(context.Background(), "term-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAnalyticsServiceAnalyzeRequiresTermID(t *testing.T) {
	fx := newAnalyticsFixture(t, analyticsFixtureConfig{})

	_, err := fx.service.Analyze(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAnalyticsServiceActiveTimetableCaches(t *testing.T) {
	fx := newAnalyticsFixture(t, analyticsFixtureConfig{entries: cleanTimetableEntries()})

	first, err := fx.service.ActiveTimetable(context.Background(), "term-1")
	require.NoError(t, err)
	require.Len(t, first, 6)

	second, err := fx.service.ActiveTimetable(context.Background(), "term-1")
	require.NoError(t, err)

	assert.Equal(t, 1, fx.timetable.calls)
	assert.Equal(t, first, second)
	assert.Contains(t, fx.cache.setKeys, "timetable:term-1:active")
}

func TestAnalyticsServiceSystemMetricsWithoutCollector(t *testing.T) {
	fx := newAnalyticsFixture(t, analyticsFixtureConfig{})

	m := fx.service.SystemMetrics()
	assert.False(t, m.GeneratedAt.IsZero())
	assert.Zero(t, m.GenerationsTotal)
}

// --- Fixtures ---

type analyticsFixtureConfig struct {
	missingTerm bool
	entries     []models.TimetableEntry
	analytics   AnalyticsConfig
}

type analyticsFixture struct {
	service   *AnalyticsService
	timetable *timetableReaderStub
	cache     *fakeCache
}

func newAnalyticsFixture(t *testing.T, cfg analyticsFixtureConfig) *analyticsFixture {
	t.Helper()

	timetable := &timetableReaderStub{entries: cfg.entries}
	cache := newFakeCache()

	analyticsCfg := cfg.analytics
	if analyticsCfg.CacheTTL == 0 {
		analyticsCfg.CacheTTL = time.Minute
	}

	svc := NewAnalyticsService(AnalyticsDeps{
		Terms:       termRepoStub{missing: cfg.missingTerm},
		Slots:       &slotRepoStub{},
		Rooms:       roomRepoStub{},
		Classes:     classRepoStub{},
		Subjects:    subjectRepoStub{},
		Teachers:    teacherRepoStub{},
		Constraints: constraintRepoStub{},
		Timetable:   timetable,
		Cache:       cache,
	}, scheduler.DefaultConfig(), analyticsCfg)

	return &analyticsFixture{service: svc, timetable: timetable, cache: cache}
}

// cleanTimetableEntries is a committed conflict-free week for the stub data:
// six lessons, no teacher or room overlaps, labs in the lab.
func cleanTimetableEntries() []models.TimetableEntry {
	build := func(classID, subjectID, teacherID, roomID string, day, slot int) models.TimetableEntry {
		return models.TimetableEntry{
			TermID:    "term-1",
			ClassID:   classID,
			SubjectID: subjectID,
			TeacherID: teacherID,
			RoomID:    roomRef(roomID),
			DayOfWeek: day,
			SlotIndex: slot,
			IsActive:  true,
		}
	}
	return []models.TimetableEntry{
		build("class-1", "math", "teacher-1", "room-a", 1, 1),
		build("class-1", "math", "teacher-1", "room-a", 2, 1),
		build("class-1", "phy", "teacher-2", "room-lab", 1, 2),
		build("class-1", "phy", "teacher-2", "room-lab", 2, 2),
		build("class-2", "eng", "teacher-1", "room-b", 1, 3),
		build("class-2", "eng", "teacher-1", "room-b", 2, 3),
	}
}

func roomRef(id string) *string {
	return &id
}

type timetableReaderStub struct {
	entries []models.TimetableEntry
	calls   int
}

func (s *timetableReaderStub) ListActiveByTerm(ctx context.Context, termID string) ([]models.TimetableEntry, error) {
	s.calls++
	return s.entries, nil
}

// fakeCache round-trips values through JSON like the redis-backed cache does.
type fakeCache struct {
	values  map[string][]byte
	setKeys []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = raw
	c.setKeys = append(c.setKeys, key)
	return nil
}
