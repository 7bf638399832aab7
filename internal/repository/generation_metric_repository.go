package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

// GenerationMetricRepository records one row per generation run.
type GenerationMetricRepository struct {
	db *sqlx.DB
}

// NewGenerationMetricRepository constructs the repository.
func NewGenerationMetricRepository(db *sqlx.DB) *GenerationMetricRepository {
	return &GenerationMetricRepository{db: db}
}

func (r *GenerationMetricRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Upsert stores the metric; a retried job overwrites its previous row.
func (r *GenerationMetricRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, metric *models.GenerationMetric) error {
	if metric == nil {
		return fmt.Errorf("generation metric payload is nil")
	}
	if metric.JobID == "" {
		return fmt.Errorf("generation metric job_id is required")
	}
	if metric.CreatedAt.IsZero() {
		metric.CreatedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO generation_metrics (job_id, method, duration_seconds, success, entries_generated, conflicts_count, error_message, academic_year, semester, created_at)
VALUES (:job_id, :method, :duration_seconds, :success, :entries_generated, :conflicts_count, :error_message, :academic_year, :semester, :created_at)
ON CONFLICT (job_id) DO UPDATE
SET method = EXCLUDED.method,
    duration_seconds = EXCLUDED.duration_seconds,
    success = EXCLUDED.success,
    entries_generated = EXCLUDED.entries_generated,
    conflicts_count = EXCLUDED.conflicts_count,
    error_message = EXCLUDED.error_message,
    created_at = EXCLUDED.created_at`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, metric); err != nil {
		return fmt.Errorf("upsert generation metric: %w", err)
	}
	return nil
}
