package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-engine/internal/dto"
	"github.com/noah-isme/sma-timetable-engine/internal/models"
	"github.com/noah-isme/sma-timetable-engine/internal/repository"
	"github.com/noah-isme/sma-timetable-engine/pkg/config"
	appErrors "github.com/noah-isme/sma-timetable-engine/pkg/errors"
	"github.com/noah-isme/sma-timetable-engine/pkg/jobs"
	"github.com/noah-isme/sma-timetable-engine/pkg/middleware/requestid"
)

const generationJobType = "timetable.generate"

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerationResult, error)
}

type jobStatusStore interface {
	Save(ctx context.Context, jobID string, value interface{}) error
	Load(ctx context.Context, jobID string, dest interface{}) error
}

// permanentCodes are generation failures that a retry cannot fix.
var permanentCodes = []string{
	appErrors.ErrValidation.Code,
	appErrors.ErrEmptyResult.Code,
	appErrors.ErrUnsatisfiable.Code,
	appErrors.ErrNothingSaved.Code,
}

// GenerationWorker runs generation requests in the background, one term at a time.
type GenerationWorker struct {
	generator timetableGenerator
	statuses  jobStatusStore
	locker    termLocker
	queue     *jobs.Queue
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewGenerationWorker wires the worker and its queue.
func NewGenerationWorker(
	generator timetableGenerator,
	statuses jobStatusStore,
	locker termLocker,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg config.GenerationConfig,
) *GenerationWorker {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewLocalTermLocker()
	}
	if statuses == nil {
		statuses = repository.NewJobStatusRepository(nil, cfg.StatusTTL)
	}
	w := &GenerationWorker{
		generator: generator,
		statuses:  statuses,
		locker:    locker,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
	w.queue = jobs.NewQueue("timetable-generation", w.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		GiveUp:     w.giveUp,
	})
	return w
}

// Start launches the queue workers.
func (w *GenerationWorker) Start(ctx context.Context) {
	w.queue.Start(ctx)
}

// Stop drains the workers.
func (w *GenerationWorker) Stop() {
	w.queue.Stop()
}

// Submit validates and enqueues a request, returning its job id.
func (w *GenerationWorker) Submit(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerationAccepted, error) {
	req.Normalize()
	if err := w.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}
	if req.JobID == "" {
		req.JobID = uuid.NewString()
	}

	status := dto.GenerationJobStatus{
		JobID:        req.JobID,
		Status:       models.GenerationStatusQueued,
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
	}
	if err := w.saveStatus(ctx, status); err != nil {
		return nil, err
	}

	job := jobs.Job{
		ID:        req.JobID,
		Type:      generationJobType,
		Key:       req.TermKey(),
		RequestID: requestid.FromContext(ctx),
		Payload:   req,
	}
	if err := w.queue.Enqueue(ctx, job); err != nil {
		status.Status = models.GenerationStatusFailed
		status.Error = err.Error()
		_ = w.saveStatus(context.WithoutCancel(ctx), status)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue generation job")
	}
	return &dto.GenerationAccepted{JobID: req.JobID, Status: models.GenerationStatusQueued}, nil
}

// RunSync generates in the caller's goroutine under the same term lock as queued jobs.
func (w *GenerationWorker) RunSync(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerationResult, error) {
	req.Normalize()
	release, err := w.locker.Acquire(ctx, req.TermKey())
	if err != nil {
		return nil, lockError(err)
	}
	defer w.release(ctx, req.TermKey(), release)
	return w.generator.Generate(ctx, req)
}

// Status returns the last recorded state of a job.
func (w *GenerationWorker) Status(ctx context.Context, jobID string) (*dto.GenerationJobStatus, error) {
	var status dto.GenerationJobStatus
	if err := w.statuses.Load(ctx, jobID, &status); err != nil {
		if appErrors.HasCode(err, appErrors.ErrNotFound.Code) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load generation job")
	}
	return &status, nil
}

func (w *GenerationWorker) handle(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(dto.GenerateTimetableRequest)
	if !ok {
		return jobs.Permanent(appErrors.Clone(appErrors.ErrInternal, "unexpected generation job payload"))
	}
	if job.RequestID != "" {
		ctx = requestid.WithValue(ctx, job.RequestID)
	}
	w.logger.Info("generation job started",
		zap.String("job_id", job.ID),
		zap.String("term", job.Key),
		zap.Int("attempt", job.Attempt+1),
		zap.String("request_id", job.RequestID),
	)
	status := dto.GenerationJobStatus{
		JobID:        req.JobID,
		Status:       models.GenerationStatusProcessing,
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
		Attempt:      job.Attempt + 1,
	}
	_ = w.saveStatus(ctx, status)

	release, err := w.locker.Acquire(ctx, job.Key)
	if err != nil {
		if ctx.Err() != nil {
			return w.fail(ctx, status, err)
		}
		status.Status = models.GenerationStatusQueued
		status.Error = err.Error()
		_ = w.saveStatus(ctx, status)
		return lockError(err)
	}
	result, err := w.generator.Generate(ctx, req)
	w.release(ctx, job.Key, release)

	status.Result = result
	if err != nil {
		// A stopped queue drops retries, so the run ends here.
		if appErrors.HasCode(err, permanentCodes...) || ctx.Err() != nil {
			return w.fail(ctx, status, err)
		}
		status.Error = err.Error()
		status.Status = models.GenerationStatusQueued
		_ = w.saveStatus(ctx, status)
		return err
	}

	status.Status = models.GenerationStatusFinished
	_ = w.saveStatus(ctx, status)
	return nil
}

func (w *GenerationWorker) fail(ctx context.Context, status dto.GenerationJobStatus, err error) error {
	status.Status = models.GenerationStatusFailed
	status.Error = err.Error()
	_ = w.saveStatus(context.WithoutCancel(ctx), status)
	return jobs.Permanent(err)
}

func (w *GenerationWorker) giveUp(job jobs.Job, err error) {
	if jobs.IsPermanent(err) {
		return
	}
	req, _ := job.Payload.(dto.GenerateTimetableRequest)
	ctx := context.Background()
	status := dto.GenerationJobStatus{
		JobID:        job.ID,
		Status:       models.GenerationStatusFailed,
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
		Attempt:      job.Attempt,
		Error:        err.Error(),
	}
	var previous dto.GenerationJobStatus
	if loadErr := w.statuses.Load(ctx, job.ID, &previous); loadErr == nil {
		status.Result = previous.Result
	}
	_ = w.saveStatus(ctx, status)
}

func (w *GenerationWorker) saveStatus(ctx context.Context, status dto.GenerationJobStatus) error {
	status.UpdatedAt = w.now().UTC()
	w.metrics.ObserveJob(status.Status)
	if err := w.statuses.Save(ctx, status.JobID, status); err != nil {
		w.logger.Warn("failed to save generation job status", zap.String("job_id", status.JobID), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save generation job status")
	}
	return nil
}

func (w *GenerationWorker) release(ctx context.Context, termKey string, release func(context.Context) error) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		w.logger.Warn("failed to release term lock", zap.String("term", termKey), zap.Error(err))
	}
}

func lockError(err error) error {
	if appErrors.HasCode(err, appErrors.ErrTermLocked.Code) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire term lock")
}
