package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sma-timetable-engine/api/swagger"
	"github.com/noah-isme/sma-timetable-engine/internal/handler"
	"github.com/noah-isme/sma-timetable-engine/internal/middleware"
	"github.com/noah-isme/sma-timetable-engine/internal/repository"
	"github.com/noah-isme/sma-timetable-engine/internal/scheduler"
	"github.com/noah-isme/sma-timetable-engine/internal/service"
	"github.com/noah-isme/sma-timetable-engine/pkg/cache"
	"github.com/noah-isme/sma-timetable-engine/pkg/config"
	"github.com/noah-isme/sma-timetable-engine/pkg/database"
	"github.com/noah-isme/sma-timetable-engine/pkg/jobs"
	"github.com/noah-isme/sma-timetable-engine/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-engine/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-engine/pkg/middleware/requestid"
)

// @title SMA Timetable Engine
// @version 0.1.0
// @description Timetable generation, analysis and export API
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The cache layer degrades to pass-through on a nil client.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	termRepo := repository.NewTermRepository(db)
	slotRepo := repository.NewTimeSlotRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	constraintRepo := repository.NewConstraintRepository(db)
	curriculumRepo := repository.NewCurriculumRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	generationRepo := repository.NewGenerationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	solverCfg := solverConfig(cfg.Scheduler)

	var generationSvc *service.GenerationService
	queue := jobs.NewQueue("generation", func(ctx context.Context, job jobs.Job) error {
		return generationSvc.HandleJob(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Scheduler.AsyncWorkers,
		BufferSize: cfg.Scheduler.AsyncBufferSize,
		Logger:     logr,
	})

	generationSvc = service.NewGenerationService(service.GenerationDeps{
		Terms:       termRepo,
		Slots:       slotRepo,
		Rooms:       roomRepo,
		Classes:     classRepo,
		Subjects:    subjectRepo,
		Teachers:    teacherRepo,
		Assignments: assignmentRepo,
		Constraints: constraintRepo,
		Curriculum:  curriculumRepo,
		Timetable:   timetableRepo,
		Generations: generationRepo,
		Cache:       cacheRepo,
		Tx:          db,
		Metrics:     metricsSvc,
		Queue:       queue,
		Logger:      logr,
	}, service.GenerationServiceConfig{
		MaxConcurrent:  cfg.Scheduler.MaxConcurrentGenerations,
		Solver:         solverCfg,
		DefaultStarter: "api-gateway",
	})

	analyticsSvc := service.NewAnalyticsService(service.AnalyticsDeps{
		Terms:       termRepo,
		Slots:       slotRepo,
		Rooms:       roomRepo,
		Classes:     classRepo,
		Subjects:    subjectRepo,
		Teachers:    teacherRepo,
		Constraints: constraintRepo,
		Timetable:   timetableRepo,
		Cache:       cacheRepo,
		Metrics:     metricsSvc,
		Logger:      logr,
	}, solverCfg, service.AnalyticsConfig{
		CacheTTL:               cfg.Analytics.CacheTTL,
		GradeA:                 cfg.Analytics.GradeA,
		GradeB:                 cfg.Analytics.GradeB,
		GradeC:                 cfg.Analytics.GradeC,
		GradeD:                 cfg.Analytics.GradeD,
		UnderutilizedThreshold: cfg.Analytics.UnderutilizedThreshold,
	})

	exportSvc := service.NewExportService(termRepo, timetableRepo, classRepo, subjectRepo, teacherRepo, roomRepo, logr)

	timetableHandler := handler.NewTimetableHandler(generationSvc)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc)
	exportHandler := handler.NewExportHandler(exportSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/timetable/generate", timetableHandler.Generate)
		api.POST("/timetable/commit", timetableHandler.Commit)
		api.GET("/terms/:termId/generations", timetableHandler.Generations)
		api.GET("/terms/:termId/analysis", analyticsHandler.Analysis)
		api.GET("/terms/:termId/timetable", analyticsHandler.Timetable)
		api.GET("/analytics/system", analyticsHandler.SystemMetrics)
		if cfg.Export.Enabled {
			api.GET("/terms/:termId/timetable/export", exportHandler.Export)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown", "error", err)
	}
	queue.Stop()
}

func solverConfig(sc config.SchedulerConfig) scheduler.Config {
	cfg := scheduler.DefaultConfig()
	cfg.PopulationSize = sc.PopulationSize
	cfg.Generations = sc.Generations
	cfg.MutationRate = sc.MutationRate
	cfg.CrossoverRate = sc.CrossoverRate
	cfg.TournamentSize = sc.TournamentSize
	cfg.EliteSize = sc.EliteSize
	cfg.ConvergenceThreshold = sc.ConvergenceThreshold
	cfg.MaxExecutionTime = sc.MaxExecutionTime
	return cfg.Normalized()
}
