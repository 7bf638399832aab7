package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

// OptimizerObserver is told whenever the remote optimiser could not be used.
// Implementations must not block the generation run for long.
type OptimizerObserver interface {
	OptimizerFailed(ctx context.Context, failure models.OptimizerFailure)
}

// OptimizerObservers fans a failure out to several observers.
type OptimizerObservers []OptimizerObserver

// OptimizerFailed implements OptimizerObserver.
func (o OptimizerObservers) OptimizerFailed(ctx context.Context, failure models.OptimizerFailure) {
	for _, observer := range o {
		if observer != nil {
			observer.OptimizerFailed(ctx, failure)
		}
	}
}

// LogOptimizerObserver writes failures to the structured log.
type LogOptimizerObserver struct {
	logger *zap.Logger
}

// NewLogOptimizerObserver constructs the observer.
func NewLogOptimizerObserver(logger *zap.Logger) *LogOptimizerObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogOptimizerObserver{logger: logger}
}

// OptimizerFailed implements OptimizerObserver.
func (o *LogOptimizerObserver) OptimizerFailed(_ context.Context, failure models.OptimizerFailure) {
	o.logger.Sugar().Warnw("remote optimizer unavailable, falling back",
		"job_id", failure.JobID,
		"academic_year", failure.AcademicYear,
		"semester", failure.Semester,
		"reason", failure.Reason,
		"status_code", failure.StatusCode,
		"error", failure.Message,
	)
}

type eventPublisher interface {
	Publish(ctx context.Context, payload interface{}) error
}

// PublishOptimizerObserver forwards failures to a message broker.
type PublishOptimizerObserver struct {
	publisher eventPublisher
	logger    *zap.Logger
}

// NewPublishOptimizerObserver constructs the observer.
func NewPublishOptimizerObserver(publisher eventPublisher, logger *zap.Logger) *PublishOptimizerObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublishOptimizerObserver{publisher: publisher, logger: logger}
}

// OptimizerFailed implements OptimizerObserver. Publish errors are logged and dropped.
func (o *PublishOptimizerObserver) OptimizerFailed(ctx context.Context, failure models.OptimizerFailure) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, failure); err != nil {
		o.logger.Warn("publish optimizer failure event", zap.String("job_id", failure.JobID), zap.Error(err))
	}
}
