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
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-engine/api/swagger"
	"github.com/noah-isme/sma-timetable-engine/internal/handler"
	"github.com/noah-isme/sma-timetable-engine/internal/models"
	"github.com/noah-isme/sma-timetable-engine/internal/repository"
	"github.com/noah-isme/sma-timetable-engine/internal/scheduler"
	"github.com/noah-isme/sma-timetable-engine/internal/service"
	"github.com/noah-isme/sma-timetable-engine/pkg/cache"
	"github.com/noah-isme/sma-timetable-engine/pkg/config"
	"github.com/noah-isme/sma-timetable-engine/pkg/database"
	"github.com/noah-isme/sma-timetable-engine/pkg/logger"
	"github.com/noah-isme/sma-timetable-engine/pkg/notify"
)

// @title SMA Timetable Engine
// @version 1.0.0
// @description Generates conflict-free term timetables and ranks alternatives for conflicting entries.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			return err
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, using in-process job state and locks", "addr", cache.Addr(cfg.Redis), "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	publisher, err := notify.Dial(cfg.Notifier)
	if err != nil {
		logr.Sugar().Warnw("amqp notifier disabled", "error", err)
		publisher = nil
	}
	if publisher != nil {
		defer publisher.Close()
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	observers := service.OptimizerObservers{service.NewLogOptimizerObserver(logr), metrics}
	if publisher != nil {
		observers = append(observers, service.NewPublishOptimizerObserver(publisher, logr))
	}

	timetableRepo := repository.NewTimetableRepository(db)
	conflictRepo := repository.NewConflictRepository(db)
	metricRepo := repository.NewGenerationMetricRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)

	days := models.ParseWeekdays(cfg.Generation.Days)
	remote := service.NewRemoteOptimizer(cfg.Optimizer, observers, metrics, logr)
	solver := scheduler.NewSolver(scheduler.ParametersFromConfig(cfg.Solver))
	generator := service.NewTimetableGeneratorService(
		timetableRepo,
		conflictRepo,
		metricRepo,
		catalogRepo,
		remote,
		solver,
		db,
		metrics,
		validate,
		logr,
		service.TimetableGeneratorConfig{Days: days},
	)

	var primaryLock *repository.TermLockRepository
	if redisClient != nil {
		primaryLock = repository.NewTermLockRepository(redisClient, cfg.Generation.LockTTL)
	}
	worker := service.NewGenerationWorker(
		generator,
		repository.NewJobStatusRepository(redisClient, cfg.Generation.StatusTTL),
		newTermLocker(primaryLock, logr),
		metrics,
		validate,
		logr,
		cfg.Generation,
	)
	worker.Start(ctx)
	defer worker.Stop()

	conflicts := service.NewConflictService(timetableRepo, conflictRepo, catalogRepo, validate, logr, service.ConflictServiceConfig{
		Weights: scheduler.ScoringWeightsFromConfig(cfg.Resolver),
		Days:    days,
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := newRouter(cfg, logr, routerDeps{
		timetables: handler.NewTimetableHandler(worker, conflicts, logr),
		conflicts:  handler.NewConflictHandler(conflicts),
		metrics:    handler.NewMetricsHandler(metrics, readinessChecks(db, redisClient)),
		metricsSvc: metrics,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newTermLocker(primary *repository.TermLockRepository, logr *zap.Logger) *service.FallbackTermLocker {
	if primary == nil {
		return service.NewFallbackTermLocker(nil, logr)
	}
	return service.NewFallbackTermLocker(primary, logr)
}

func readinessChecks(db *sqlx.DB, client *redis.Client) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}
	if client != nil {
		checks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	}
	return checks
}
