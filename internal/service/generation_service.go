package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/noah-isme/sma-timetable-engine/internal/dto"
	"github.com/noah-isme/sma-timetable-engine/internal/models"
	"github.com/noah-isme/sma-timetable-engine/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-engine/pkg/errors"
	"github.com/noah-isme/sma-timetable-engine/pkg/jobs"
)

const (
	AlgorithmGreedy  = "greedy"
	AlgorithmGenetic = "genetic"

	// JobTypeGenerate tags async generation jobs on the queue.
	JobTypeGenerate = "timetable.generate"
)

type generationTermReader interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

type slotLister interface {
	ListByTerm(ctx context.Context, termID string) ([]models.TimeSlot, error)
}

type roomLister interface {
	List(ctx context.Context) ([]models.Room, error)
}

type classLister interface {
	List(ctx context.Context) ([]models.Class, error)
}

type subjectLister interface {
	List(ctx context.Context) ([]models.Subject, error)
}

type teacherLister interface {
	ListActive(ctx context.Context) ([]models.Teacher, error)
}

type assignmentLister interface {
	ListActiveByTerm(ctx context.Context, termID string) ([]models.SubjectAssignment, error)
}

type constraintLister interface {
	ListByTerm(ctx context.Context, termID string) ([]models.Constraint, error)
}

type curriculumLister interface {
	List(ctx context.Context) ([]models.CurriculumRequirement, error)
}

type timetableWriter interface {
	DeactivateByTerm(ctx context.Context, exec sqlx.ExtContext, termID string) (int64, error)
	InsertEntries(ctx context.Context, exec sqlx.ExtContext, entries []models.TimetableEntry) error
	CountActiveByTerm(ctx context.Context, exec sqlx.ExtContext, termID string) (int, error)
}

type generationRecorder interface {
	Create(ctx context.Context, exec sqlx.ExtContext, gen *models.Generation) error
	Update(ctx context.Context, exec sqlx.ExtContext, id string, update models.GenerationUpdate) error
	ListByTerm(ctx context.Context, termID string, limit, offset int) ([]models.Generation, error)
	CountByTerm(ctx context.Context, termID string) (int, error)
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type generationObserver interface {
	ObserveGeneration(algorithm string, status models.GenerationStatus, elapsed time.Duration)
}

type asyncEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// GenerationService orchestrates timetable generation: it snapshots the term,
// runs a solver, repairs the result, keeps the proposal commitable for a TTL
// and swaps the active timetable atomically on commit.
type GenerationService struct {
	terms       generationTermReader
	slots       slotLister
	rooms       roomLister
	classes     classLister
	subjects    subjectLister
	teachers    teacherLister
	assignments assignmentLister
	constraints constraintLister
	curriculum  curriculumLister
	timetable   timetableWriter
	generations generationRecorder
	cache       cacheInvalidator
	tx          txProvider
	metrics     generationObserver
	queue       asyncEnqueuer

	validator *validator.Validate
	logger    *zap.Logger
	clock     scheduler.Clock

	starter   string
	solverCfg scheduler.Config
	sem       *semaphore.Weighted
	store     *proposalStore
}

// GenerationServiceConfig governs orchestration behaviour.
type GenerationServiceConfig struct {
	ProposalTTL    time.Duration
	MaxConcurrent  int
	Solver         scheduler.Config
	DefaultStarter string
}

// GenerationDeps bundles the wiring of a GenerationService.
type GenerationDeps struct {
	Terms       generationTermReader
	Slots       slotLister
	Rooms       roomLister
	Classes     classLister
	Subjects    subjectLister
	Teachers    teacherLister
	Assignments assignmentLister
	Constraints constraintLister
	Curriculum  curriculumLister
	Timetable   timetableWriter
	Generations generationRecorder
	Cache       cacheInvalidator
	Tx          txProvider
	Metrics     generationObserver
	Queue       asyncEnqueuer
	Validator   *validator.Validate
	Logger      *zap.Logger
	Clock       scheduler.Clock
}

// NewGenerationService wires the orchestrator.
func NewGenerationService(deps GenerationDeps, cfg GenerationServiceConfig) *GenerationService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = scheduler.SystemClock()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}
	if cfg.DefaultStarter == "" {
		cfg.DefaultStarter = "system"
	}
	return &GenerationService{
		terms:       deps.Terms,
		slots:       deps.Slots,
		rooms:       deps.Rooms,
		classes:     deps.Classes,
		subjects:    deps.Subjects,
		teachers:    deps.Teachers,
		assignments: deps.Assignments,
		constraints: deps.Constraints,
		curriculum:  deps.Curriculum,
		timetable:   deps.Timetable,
		generations: deps.Generations,
		cache:       deps.Cache,
		tx:          deps.Tx,
		metrics:     deps.Metrics,
		queue:       deps.Queue,
		validator:   deps.Validator,
		logger:      deps.Logger,
		clock:       deps.Clock,
		starter:     cfg.DefaultStarter,
		solverCfg:   cfg.Solver.Normalized(),
		sem:         semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		store:       newProposalStore(cfg.ProposalTTL),
	}
}

// Generate runs one solver pass synchronously and stores a commitable
// proposal. Concurrency is capped: when all slots are busy the request is
// rejected rather than queued.
func (s *GenerationService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.SchedulingResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	if _, err := s.terms.FindByID(ctx, req.TermID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	if !s.sem.TryAcquire(1) {
		return nil, appErrors.Clone(appErrors.ErrGenerationLimit, "maximum concurrent generations reached, retry later")
	}
	defer s.sem.Release(1)

	gen, err := s.createGenerationRecord(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, gen, req)
}

// EnqueueGenerate records a RUNNING generation and queues the solver run for
// a background worker. The caller polls the audit trail for completion.
func (s *GenerationService) EnqueueGenerate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.AsyncAccepted, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "async generation queue unavailable")
	}
	if _, err := s.terms.FindByID(ctx, req.TermID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	gen, err := s.createGenerationRecord(ctx, req)
	if err != nil {
		return nil, err
	}
	job := jobs.Job{
		ID:      gen.ID,
		Type:    JobTypeGenerate,
		Payload: asyncGenerationJob{Generation: *gen, Request: req},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.failGeneration(gen.ID, fmt.Sprintf("enqueue failed: %v", err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue generation")
	}
	return &dto.AsyncAccepted{
		GenerationID: gen.ID,
		TermID:       req.TermID,
		Status:       string(models.GenerationStatusRunning),
	}, nil
}

type asyncGenerationJob struct {
	Generation models.Generation
	Request    dto.GenerateTimetableRequest
}

// HandleJob is the queue handler for async generation runs.
func (s *GenerationService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(asyncGenerationJob)
	if !ok {
		return fmt.Errorf("unexpected payload type for job %s", job.ID)
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.failGeneration(payload.Generation.ID, "generation cancelled before start")
		return err
	}
	defer s.sem.Release(1)

	gen := payload.Generation
	if _, err := s.run(ctx, &gen, payload.Request); err != nil {
		s.logger.Warn("async generation failed",
			zap.String("generation_id", gen.ID),
			zap.Error(err),
		)
	}
	// Terminal state is already recorded; the queue must not retry.
	return nil
}

// run executes the solver pipeline and records the terminal generation state.
func (s *GenerationService) run(ctx context.Context, gen *models.Generation, req dto.GenerateTimetableRequest) (result *dto.SchedulingResult, err error) {
	started := s.clock.Now()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("generation panicked",
				zap.String("generation_id", gen.ID),
				zap.Any("panic", r),
			)
			s.failGeneration(gen.ID, fmt.Sprintf("solver panic: %v", r))
			s.observe(gen.Algorithm, models.GenerationStatusFailed, s.clock.Now().Sub(started))
			err = appErrors.Clone(appErrors.ErrInternal, "generation failed unexpectedly")
			result = nil
		}
	}()

	ds, demands, buildErr := s.loadProblem(ctx, req.TermID, req.GradeIDs)
	if buildErr != nil {
		var currErr *scheduler.CurriculumError
		if errors.As(buildErr, &currErr) {
			s.failGeneration(gen.ID, currErr.Error())
			s.observe(gen.Algorithm, models.GenerationStatusFailed, s.clock.Now().Sub(started))
			return nil, appErrors.Wrap(currErr, appErrors.ErrCurriculum.Code, appErrors.ErrCurriculum.Status, currErr.Error())
		}
		s.failGeneration(gen.ID, buildErr.Error())
		s.observe(gen.Algorithm, models.GenerationStatusFailed, s.clock.Now().Sub(started))
		return nil, appErrors.Wrap(buildErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduling data")
	}

	cfg := s.solverCfg
	applyOptions(&cfg, req.Options)
	seed := started.UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}
	rng := rand.New(rand.NewSource(seed))

	var (
		schedule *scheduler.Schedule
		stats    scheduler.RunStats
		runErr   error
	)
	switch gen.Algorithm {
	case AlgorithmGreedy:
		schedule = scheduler.NewGreedySolver(ds, cfg).Solve(demands, nil)
	default:
		solver := scheduler.NewGeneticSolver(ds, cfg, s.clock, rng, s.logger)
		schedule, _, stats, runErr = solver.Solve(ctx, demands)
	}
	if runErr != nil {
		// Context cancellation is the only error path out of the solver.
		s.markGeneration(gen.ID, models.GenerationStatusCancelled, nil, nil, nil, strPtr(runErr.Error()))
		s.observe(gen.Algorithm, models.GenerationStatusCancelled, s.clock.Now().Sub(started))
		return nil, appErrors.Wrap(runErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "generation cancelled")
	}

	resolved, actions := scheduler.NewResolver(ds, cfg).Resolve(schedule)
	eval := scheduler.NewEvaluator(ds, cfg).Evaluate(resolved)

	proposal := timetableProposal{
		ProposalID:   uuid.NewString(),
		GenerationID: gen.ID,
		TermID:       req.TermID,
		Entries:      resolved.Entries(),
		Score:        eval.Score,
		Conflicts:    append([]scheduler.Violation(nil), eval.Hard...),
		Unplaced:     eval.Unplaced,
		CreatedAt:    s.clock.Now(),
	}
	s.store.Save(proposal)

	conflictCount := len(eval.Hard)
	unassigned := eval.Unplaced
	s.markGeneration(gen.ID, models.GenerationStatusCompleted, &eval.Score, &conflictCount, &unassigned, nil)
	s.observe(gen.Algorithm, models.GenerationStatusCompleted, s.clock.Now().Sub(started))

	statsCopy := stats
	result = &dto.SchedulingResult{
		Success:           eval.Feasible(),
		ProposalID:        proposal.ProposalID,
		GenerationID:      gen.ID,
		TermID:            req.TermID,
		Algorithm:         gen.Algorithm,
		OptimizationScore: eval.Score,
		AssignedSlots:     resolved.PlacedCount(),
		UnassignedSlots:   eval.Unplaced,
		Conflicts:         append(append([]scheduler.Violation(nil), eval.Hard...), eval.Soft...),
		Resolutions:       actions,
		Entries:           s.entriesDTO(ds, resolved.Entries()),
		ExpiresAt:         proposal.CreatedAt.Add(s.store.ttl),
	}
	if gen.Algorithm != AlgorithmGreedy {
		result.Stats = &statsCopy
	}
	return result, nil
}

// Commit atomically replaces the active timetable of the proposal's term.
// The swap and the integrity check run inside one transaction: either the
// full new timetable becomes active or nothing changes. Residual hard
// conflicts ride along in the report; they only block the commit when the
// caller asks for a feasible timetable. A failed commit is recorded on the
// generation outside the rolled-back transaction.
func (s *GenerationService) Commit(ctx context.Context, req dto.CommitTimetableRequest) (*dto.CommitReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid commit payload")
	}
	proposal, ok := s.store.Get(req.ProposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	if req.RequireFeasible && len(proposal.Conflicts) > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "proposal contains unresolved hard conflicts")
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			s.failGeneration(proposal.GenerationID, err.Error())
		}
	}()

	var deactivated int64
	if deactivated, err = s.timetable.DeactivateByTerm(ctx, tx, proposal.TermID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to retire active timetable")
		return nil, err
	}

	rows := make([]models.TimetableEntry, 0, len(proposal.Entries))
	for _, e := range proposal.Entries {
		row := models.TimetableEntry{
			TermID:       proposal.TermID,
			ClassID:      e.ClassID,
			SubjectID:    e.SubjectID,
			TeacherID:    e.TeacherID,
			DayOfWeek:    e.Day,
			SlotIndex:    e.Slot,
			GenerationID: strPtr(proposal.GenerationID),
		}
		if e.RoomID != "" {
			row.RoomID = strPtr(e.RoomID)
		}
		rows = append(rows, row)
	}
	if err = s.timetable.InsertEntries(ctx, tx, rows); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write timetable entries")
		return nil, err
	}

	active, countErr := s.timetable.CountActiveByTerm(ctx, tx, proposal.TermID)
	if countErr != nil {
		err = appErrors.Wrap(countErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify committed timetable")
		return nil, err
	}
	if active != len(rows) {
		err = appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("integrity check failed: %d active entries, expected %d", active, len(rows)))
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable transaction")
		return nil, err
	}

	s.store.Delete(req.ProposalID)
	s.invalidateTermCaches(ctx, proposal.TermID)

	return &dto.CommitReport{
		TermID:           proposal.TermID,
		GenerationID:     proposal.GenerationID,
		EntriesWritten:   len(rows),
		DeactivatedCount: int(deactivated),
		Conflicts:        proposal.Conflicts,
		CommittedAt:      s.clock.Now(),
	}, nil
}

// ListGenerations pages the audit trail of a term, newest run first.
func (s *GenerationService) ListGenerations(ctx context.Context, termID string, query dto.ListGenerationsQuery) (*dto.GenerationList, error) {
	if termID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term id is required")
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	total, err := s.generations.CountByTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count generations")
	}
	items, err := s.generations.ListByTerm(ctx, termID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list generations")
	}
	return &dto.GenerationList{
		Items: items,
		Pagination: models.Pagination{
			Page:       page,
			PageSize:   pageSize,
			TotalCount: total,
		},
	}, nil
}

// loadProblem snapshots the term and builds the solver inputs. A non-empty
// grades set restricts the run to assignments of classes in those grades.
func (s *GenerationService) loadProblem(ctx context.Context, termID string, grades []int) (*scheduler.Dataset, []scheduler.Demand, error) {
	term, err := s.terms.FindByID(ctx, termID)
	if err != nil {
		return nil, nil, fmt.Errorf("load term: %w", err)
	}
	slots, err := s.slots.ListByTerm(ctx, termID)
	if err != nil {
		return nil, nil, err
	}
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	classes, err := s.classes.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, nil, err
	}
	constraints, err := s.constraints.ListByTerm(ctx, termID)
	if err != nil {
		return nil, nil, err
	}
	assignments, err := s.assignments.ListActiveByTerm(ctx, termID)
	if err != nil {
		return nil, nil, err
	}
	assignments = filterAssignmentsByGrade(assignments, classes, grades)
	curriculum, err := s.curriculum.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	ds, err := scheduler.NewDataset(scheduler.DatasetInput{
		Term:        *term,
		Slots:       slots,
		Rooms:       rooms,
		Classes:     classes,
		Subjects:    subjects,
		Teachers:    teachers,
		Constraints: constraints,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build dataset: %w", err)
	}

	demands, err := scheduler.BuildDemands(ds, assignments, newCurriculumAdapter(curriculum))
	if err != nil {
		return nil, nil, err
	}
	return ds, demands, nil
}

// filterAssignmentsByGrade keeps assignments whose class grade is in the set.
// An empty set keeps everything; assignments of unknown classes are kept and
// surface through the demand builder instead of being silently dropped.
func filterAssignmentsByGrade(assignments []models.SubjectAssignment, classes []models.Class, grades []int) []models.SubjectAssignment {
	if len(grades) == 0 {
		return assignments
	}
	wanted := make(map[int]bool, len(grades))
	for _, g := range grades {
		wanted[g] = true
	}
	gradeOf := make(map[string]int, len(classes))
	for _, c := range classes {
		gradeOf[c.ID] = c.Grade
	}
	out := make([]models.SubjectAssignment, 0, len(assignments))
	for _, a := range assignments {
		if grade, ok := gradeOf[a.ClassID]; ok && !wanted[grade] {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (s *GenerationService) createGenerationRecord(ctx context.Context, req dto.GenerateTimetableRequest) (*models.Generation, error) {
	algorithm := req.Algorithm
	if algorithm == "" {
		algorithm = AlgorithmGenetic
	}
	params, err := json.Marshal(map[string]any{
		"algorithm": algorithm,
		"seed":      req.Seed,
		"options":   req.Options,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode generation params")
	}

	gen := &models.Generation{
		TermID:    req.TermID,
		Algorithm: algorithm,
		Params:    types.JSONText(params),
		StartedBy: s.starter,
		StartedAt: s.clock.Now().UTC(),
		Status:    models.GenerationStatusRunning,
	}
	if err := s.generations.Create(ctx, nil, gen); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record generation")
	}
	return gen, nil
}

// failGeneration marks a run FAILED on a background context so the update
// survives request cancellation.
func (s *GenerationService) failGeneration(id, message string) {
	s.markGeneration(id, models.GenerationStatusFailed, nil, nil, nil, strPtr(message))
}

func (s *GenerationService) markGeneration(id string, status models.GenerationStatus, score *float64, conflicts, unassigned *int, message *string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := s.clock.Now().UTC()
	update := models.GenerationUpdate{
		Status:            status,
		CompletedAt:       &now,
		OptimizationScore: score,
		ConflictCount:     conflicts,
		UnassignedCount:   unassigned,
		ErrorMessage:      message,
	}
	if err := s.generations.Update(ctx, nil, id, update); err != nil {
		s.logger.Error("failed to update generation record",
			zap.String("generation_id", id),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

func (s *GenerationService) observe(algorithm string, status models.GenerationStatus, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveGeneration(algorithm, status, elapsed)
	}
}

func (s *GenerationService) invalidateTermCaches(ctx context.Context, termID string) {
	if s.cache == nil {
		return
	}
	for _, pattern := range []string{
		fmt.Sprintf("timetable:%s:*", termID),
		fmt.Sprintf("analytics:%s:*", termID),
	} {
		if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
			s.logger.Warn("cache invalidation failed",
				zap.String("pattern", pattern),
				zap.Error(err),
			)
		}
	}
}

func (s *GenerationService) entriesDTO(ds *scheduler.Dataset, entries []scheduler.Entry) []dto.TimetableEntryDTO {
	out := make([]dto.TimetableEntryDTO, 0, len(entries))
	for _, e := range entries {
		item := dto.TimetableEntryDTO{
			ClassID:   e.ClassID,
			SubjectID: e.SubjectID,
			TeacherID: e.TeacherID,
			RoomID:    e.RoomID,
			Day:       e.Day,
			Slot:      e.Slot,
		}
		if c := ds.Classes[e.ClassID]; c != nil {
			item.ClassName = c.Name
		}
		if sub := ds.Subjects[e.SubjectID]; sub != nil {
			item.SubjectName = sub.Name
		}
		if t := ds.Teachers[e.TeacherID]; t != nil {
			item.TeacherName = t.Name
		}
		if r := ds.Rooms[e.RoomID]; r != nil {
			item.RoomName = r.Name
		}
		out = append(out, item)
	}
	return out
}

func applyOptions(cfg *scheduler.Config, opts *dto.SolverOptions) {
	if opts == nil {
		return
	}
	if opts.PopulationSize > 0 {
		cfg.PopulationSize = opts.PopulationSize
	}
	if opts.Generations > 0 {
		cfg.Generations = opts.Generations
	}
	if opts.MutationRate > 0 {
		cfg.MutationRate = opts.MutationRate
	}
	if opts.CrossoverRate > 0 {
		cfg.CrossoverRate = opts.CrossoverRate
	}
	if opts.TournamentSize > 0 {
		cfg.TournamentSize = opts.TournamentSize
	}
	if opts.EliteSize > 0 {
		cfg.EliteSize = opts.EliteSize
	}
	if opts.ConvergenceThreshold > 0 {
		cfg.ConvergenceThreshold = opts.ConvergenceThreshold
	}
	if opts.MaxExecutionSeconds > 0 {
		cfg.MaxExecutionTime = time.Duration(opts.MaxExecutionSeconds) * time.Second
	}
}

// curriculumAdapter indexes curriculum rows for the demand builder.
type curriculumAdapter struct {
	periods map[string]int
}

func newCurriculumAdapter(reqs []models.CurriculumRequirement) *curriculumAdapter {
	a := &curriculumAdapter{periods: make(map[string]int, len(reqs))}
	for _, req := range reqs {
		a.periods[fmt.Sprintf("%s|%d", req.SubjectID, req.Grade)] = req.PeriodsPerWeek
	}
	return a
}

func (a *curriculumAdapter) PeriodsPerWeek(subjectID string, grade int) (int, bool) {
	n, ok := a.periods[fmt.Sprintf("%s|%d", subjectID, grade)]
	return n, ok
}

// timetableProposal is a solved schedule waiting for commit. Conflicts holds
// the residual hard violations; they travel into the commit report but do not
// block persistence.
type timetableProposal struct {
	ProposalID   string
	GenerationID string
	TermID       string
	Entries      []scheduler.Entry
	Score        float64
	Conflicts    []scheduler.Violation
	Unplaced     int
	CreatedAt    time.Time
}

// proposalStore keeps proposals in memory with a TTL. Expired entries are
// dropped lazily on access.
type proposalStore struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]timetableProposal
}

func newProposalStore(ttl time.Duration) *proposalStore {
	return &proposalStore{ttl: ttl, items: make(map[string]timetableProposal)}
}

func (p *proposalStore) Save(proposal timetableProposal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items[proposal.ProposalID] = proposal
}

func (p *proposalStore) Get(id string) (timetableProposal, bool) {
	p.mu.RLock()
	proposal, ok := p.items[id]
	p.mu.RUnlock()
	if !ok {
		return timetableProposal{}, false
	}
	if time.Since(proposal.CreatedAt) > p.ttl {
		p.Delete(id)
		return timetableProposal{}, false
	}
	return proposal, true
}

func (p *proposalStore) Delete(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.items, id)
}

func strPtr(s string) *string { return &s }
