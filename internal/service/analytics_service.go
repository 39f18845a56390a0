package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-engine/internal/dto"
	"github.com/noah-isme/sma-timetable-engine/internal/models"
	"github.com/noah-isme/sma-timetable-engine/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-engine/pkg/errors"
)

type timetableReader interface {
	ListActiveByTerm(ctx context.Context, termID string) ([]models.TimetableEntry, error)
}

type analyticsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type cacheObserver interface {
	RecordCacheOperation(hit bool, duration time.Duration)
}

type metricsSnapshotter interface {
	Snapshot() models.AnalyticsSystemMetrics
}

// AnalyticsService scores committed timetables and derives workload, room
// utilization and improvement recommendations. Results are cached per term
// and invalidated when a new timetable is committed.
type AnalyticsService struct {
	terms       generationTermReader
	slots       slotLister
	rooms       roomLister
	classes     classLister
	subjects    subjectLister
	teachers    teacherLister
	constraints constraintLister
	timetable   timetableReader
	cache       analyticsCache
	metrics     interface {
		cacheObserver
		metricsSnapshotter
	}
	logger *zap.Logger

	solverCfg scheduler.Config
	cfg       AnalyticsConfig
}

// AnalyticsConfig tunes scoring presentation and caching. Zero fields take
// the defaults: A/B/C/D bands at 90/80/70/60 and an underutilization
// threshold of 8 periods per week.
type AnalyticsConfig struct {
	CacheTTL               time.Duration
	GradeA                 float64
	GradeB                 float64
	GradeC                 float64
	GradeD                 float64
	UnderutilizedThreshold int
}

// AnalyticsDeps bundles the wiring of an AnalyticsService.
type AnalyticsDeps struct {
	Terms       generationTermReader
	Slots       slotLister
	Rooms       roomLister
	Classes     classLister
	Subjects    subjectLister
	Teachers    teacherLister
	Constraints constraintLister
	Timetable   timetableReader
	Cache       analyticsCache
	Metrics     *MetricsService
	Logger      *zap.Logger
}

// NewAnalyticsService wires the analyzer.
func NewAnalyticsService(deps AnalyticsDeps, solverCfg scheduler.Config, cfg AnalyticsConfig) *AnalyticsService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.GradeA <= 0 {
		cfg.GradeA = 90
	}
	if cfg.GradeB <= 0 {
		cfg.GradeB = 80
	}
	if cfg.GradeC <= 0 {
		cfg.GradeC = 70
	}
	if cfg.GradeD <= 0 {
		cfg.GradeD = 60
	}
	if cfg.UnderutilizedThreshold <= 0 {
		cfg.UnderutilizedThreshold = 8
	}
	return &AnalyticsService{
		terms:       deps.Terms,
		slots:       deps.Slots,
		rooms:       deps.Rooms,
		classes:     deps.Classes,
		subjects:    deps.Subjects,
		teachers:    deps.Teachers,
		constraints: deps.Constraints,
		timetable:   deps.Timetable,
		cache:       deps.Cache,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		solverCfg:   solverCfg.Normalized(),
		cfg:         cfg,
	}
}

// Analyze scores the active timetable of a term.
func (s *AnalyticsService) Analyze(ctx context.Context, termID string) (*dto.TermAnalysis, error) {
	if termID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term id is required")
	}

	cacheKey := fmt.Sprintf("analytics:%s:term_analysis", termID)
	if s.cache != nil {
		started := time.Now()
		var cached dto.TermAnalysis
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.recordCache(true, time.Since(started))
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("analytics cache read failed", zap.String("term_id", termID), zap.Error(err))
		}
		s.recordCache(false, time.Since(started))
	}

	if _, err := s.terms.FindByID(ctx, termID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	entries, err := s.timetable.ListActiveByTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if len(entries) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no active timetable for this term")
	}

	ds, err := s.loadDataset(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduling data")
	}

	schedule := scheduleFromEntries(entries)
	eval := scheduler.NewEvaluator(ds, s.solverCfg).Evaluate(schedule)

	analysis := &dto.TermAnalysis{
		Score: models.TermScore{
			TermID:           termID,
			Score:            eval.Score,
			Grade:            s.gradeFor(eval.Score),
			HardViolations:   len(eval.Hard),
			SoftPenalty:      eval.SoftPenalty,
			BalanceScore:     eval.BalanceScore,
			PreferenceScore:  eval.PreferenceScore,
			UtilizationScore: eval.UtilizationScore,
			ComputedAt:       time.Now().UTC(),
		},
		Workloads: s.workloads(ds, entries),
		Rooms:     s.roomUtilization(ds, entries),
		Conflicts: append(append([]scheduler.Violation(nil), eval.Hard...), eval.Soft...),
	}
	analysis.Recommendations = s.recommendations(ds, entries, analysis)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, analysis, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("analytics cache write failed", zap.String("term_id", termID), zap.Error(err))
		}
	}
	return analysis, nil
}

// ActiveTimetable returns the live entries of a term, cached per term and
// invalidated on commit.
func (s *AnalyticsService) ActiveTimetable(ctx context.Context, termID string) ([]models.TimetableEntry, error) {
	if termID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term id is required")
	}

	cacheKey := fmt.Sprintf("timetable:%s:active", termID)
	if s.cache != nil {
		started := time.Now()
		var cached []models.TimetableEntry
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.recordCache(true, time.Since(started))
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("timetable cache read failed", zap.String("term_id", termID), zap.Error(err))
		}
		s.recordCache(false, time.Since(started))
	}

	entries, err := s.timetable.ListActiveByTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, entries, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("timetable cache write failed", zap.String("term_id", termID), zap.Error(err))
		}
	}
	return entries, nil
}

// SystemMetrics exposes runtime instrumentation for operations dashboards.
func (s *AnalyticsService) SystemMetrics() models.AnalyticsSystemMetrics {
	if s.metrics == nil {
		return models.AnalyticsSystemMetrics{GeneratedAt: time.Now().UTC()}
	}
	return s.metrics.Snapshot()
}

func (s *AnalyticsService) loadDataset(ctx context.Context, termID string) (*scheduler.Dataset, error) {
	term, err := s.terms.FindByID(ctx, termID)
	if err != nil {
		return nil, err
	}
	slots, err := s.slots.ListByTerm(ctx, termID)
	if err != nil {
		return nil, err
	}
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, err
	}
	classes, err := s.classes.List(ctx)
	if err != nil {
		return nil, err
	}
	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return nil, err
	}
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	constraints, err := s.constraints.ListByTerm(ctx, termID)
	if err != nil {
		return nil, err
	}
	return scheduler.NewDataset(scheduler.DatasetInput{
		Term:        *term,
		Slots:       slots,
		Rooms:       rooms,
		Classes:     classes,
		Subjects:    subjects,
		Teachers:    teachers,
		Constraints: constraints,
	})
}

func (s *AnalyticsService) workloads(ds *scheduler.Dataset, entries []models.TimetableEntry) []models.TeacherWorkload {
	perTeacher := make(map[string][]models.TimetableEntry)
	for _, e := range entries {
		perTeacher[e.TeacherID] = append(perTeacher[e.TeacherID], e)
	}

	ids := make([]string, 0, len(perTeacher))
	for id := range perTeacher {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	workloads := make([]models.TeacherWorkload, 0, len(ids))
	for _, id := range ids {
		teacherEntries := perTeacher[id]
		perDay := make(map[int]int)
		slotsByDay := make(map[int][]int)
		for _, e := range teacherEntries {
			perDay[e.DayOfWeek]++
			slotsByDay[e.DayOfWeek] = append(slotsByDay[e.DayOfWeek], e.SlotIndex)
		}

		w := models.TeacherWorkload{
			TeacherID:      id,
			TotalPeriods:   len(teacherEntries),
			PerDay:         perDay,
			MaxConsecutive: maxConsecutiveRun(ds, slotsByDay),
			Underutilized:  len(teacherEntries) < s.cfg.UnderutilizedThreshold,
		}
		if info := ds.Teachers[id]; info != nil {
			w.TeacherName = info.Name
			if info.MaxPerDay > 0 {
				for _, n := range perDay {
					if n > info.MaxPerDay {
						w.Overloaded = true
						break
					}
				}
			}
		}
		workloads = append(workloads, w)
	}
	return workloads
}

func (s *AnalyticsService) roomUtilization(ds *scheduler.Dataset, entries []models.TimetableEntry) []models.RoomUtilization {
	used := make(map[string]map[scheduler.SlotKey]bool)
	for _, e := range entries {
		if e.RoomID == nil {
			continue
		}
		if used[*e.RoomID] == nil {
			used[*e.RoomID] = make(map[scheduler.SlotKey]bool)
		}
		used[*e.RoomID][scheduler.SlotKey{Day: e.DayOfWeek, Slot: e.SlotIndex}] = true
	}

	band := s.solverCfg.Utilization
	total := len(ds.Slots)
	out := make([]models.RoomUtilization, 0, len(ds.RoomOrder))
	for _, roomID := range ds.RoomOrder {
		info := ds.Rooms[roomID]
		usage := 0.0
		if total > 0 {
			usage = float64(len(used[roomID])) / float64(total)
		}
		out = append(out, models.RoomUtilization{
			RoomID:      roomID,
			RoomName:    info.Name,
			UsedSlots:   len(used[roomID]),
			TotalSlots:  total,
			UsageRate:   usage,
			BelowTarget: usage < band.Min,
			AboveTarget: usage > band.Max,
		})
	}
	return out
}

func (s *AnalyticsService) recommendations(ds *scheduler.Dataset, entries []models.TimetableEntry, analysis *dto.TermAnalysis) []models.Recommendation {
	var recs []models.Recommendation

	roomless := 0
	for _, e := range entries {
		if e.RoomID == nil {
			roomless++
		}
	}
	if roomless > 0 {
		recs = append(recs, models.Recommendation{
			Code:    "ROOM_SHORTAGE",
			Message: fmt.Sprintf("%d lessons have no room assigned; consider adding rooms or relaxing room-type constraints", roomless),
		})
	}
	for _, w := range analysis.Workloads {
		if w.Overloaded {
			recs = append(recs, models.Recommendation{
				Code:    "REBALANCE_TEACHER",
				Message: fmt.Sprintf("teacher %s exceeds the daily period limit; redistribute assignments", w.TeacherName),
				Teacher: w.TeacherID,
			})
		}
	}
	for _, r := range analysis.Rooms {
		if r.AboveTarget {
			recs = append(recs, models.Recommendation{
				Code:    "ROOM_OVERBOOKED",
				Message: fmt.Sprintf("room %s is booked above the target utilization band", r.RoomName),
				Room:    r.RoomID,
			})
		}
	}
	if analysis.Score.HardViolations > 0 {
		recs = append(recs, models.Recommendation{
			Code:    "REGENERATE",
			Message: "the active timetable has hard conflicts; run a new generation",
		})
	} else if analysis.Score.SoftPenalty > 0 {
		recs = append(recs, models.Recommendation{
			Code:    "REVIEW_CONSTRAINTS",
			Message: "soft constraints are violated; review constraint weights or re-run with more generations",
		})
	}
	return recs
}

func (s *AnalyticsService) recordCache(hit bool, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit, elapsed)
	}
}

// scheduleFromEntries reconstructs a solver schedule from persisted rows so
// the evaluator can rescore a committed timetable.
func scheduleFromEntries(entries []models.TimetableEntry) *scheduler.Schedule {
	type demandKey struct {
		ClassID   string
		SubjectID string
		TeacherID string
	}
	index := make(map[demandKey]int)
	var demands []scheduler.Demand
	var placements [][]scheduler.Placement

	for _, e := range entries {
		key := demandKey{ClassID: e.ClassID, SubjectID: e.SubjectID, TeacherID: e.TeacherID}
		i, ok := index[key]
		if !ok {
			i = len(demands)
			index[key] = i
			demands = append(demands, scheduler.Demand{
				ClassID:   e.ClassID,
				SubjectID: e.SubjectID,
				TeacherID: e.TeacherID,
			})
			placements = append(placements, nil)
		}
		p := scheduler.Placement{Day: e.DayOfWeek, Slot: e.SlotIndex}
		if e.RoomID != nil {
			p.RoomID = *e.RoomID
		}
		placements[i] = append(placements[i], p)
	}
	for i := range demands {
		demands[i].Periods = len(placements[i])
	}

	s := &scheduler.Schedule{Demands: demands, Placements: placements}
	s.Normalize()
	return s
}

// maxConsecutiveRun finds the longest streak of adjacent grid slots across
// all days.
func maxConsecutiveRun(ds *scheduler.Dataset, slotsByDay map[int][]int) int {
	longest := 0
	for day, slots := range slotsByDay {
		used := make(map[int]bool, len(slots))
		for _, slot := range slots {
			used[slot] = true
		}
		run := 0
		for _, slot := range ds.SlotsByDay[day] {
			if used[slot] {
				run++
				if run > longest {
					longest = run
				}
			} else {
				run = 0
			}
		}
	}
	return longest
}

func (s *AnalyticsService) gradeFor(score float64) models.ScoreGrade {
	switch {
	case score >= s.cfg.GradeA:
		return "A"
	case score >= s.cfg.GradeB:
		return "B"
	case score >= s.cfg.GradeC:
		return "C"
	case score >= s.cfg.GradeD:
		return "D"
	default:
		return "F"
	}
}
