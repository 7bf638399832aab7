package models

import "time"

// GenerationMethod records which engine produced a schedule.
type GenerationMethod string

const (
	GenerationMethodAI      GenerationMethod = "ai"
	GenerationMethodGenetic GenerationMethod = "genetic"
)

// GenerationMetric is one persisted row per generation run.
type GenerationMetric struct {
	JobID            string           `db:"job_id" json:"job_id"`
	Method           GenerationMethod `db:"method" json:"method"`
	DurationSeconds  float64          `db:"duration_seconds" json:"duration_seconds"`
	Success          bool             `db:"success" json:"success"`
	EntriesGenerated int              `db:"entries_generated" json:"entries_generated"`
	ConflictsCount   int              `db:"conflicts_count" json:"conflicts_count"`
	ErrorMessage     *string          `db:"error_message" json:"error_message,omitempty"`
	AcademicYear     string           `db:"academic_year" json:"academic_year"`
	Semester         int              `db:"semester" json:"semester"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}

// GenerationStatus captures background run lifecycle states.
type GenerationStatus string

const (
	GenerationStatusQueued     GenerationStatus = "QUEUED"
	GenerationStatusProcessing GenerationStatus = "PROCESSING"
	GenerationStatusFinished   GenerationStatus = "FINISHED"
	GenerationStatusFailed     GenerationStatus = "FAILED"
)

// OptimizerFailureReason enumerates why the remote optimiser was abandoned.
type OptimizerFailureReason string

const (
	OptimizerFailureTransport OptimizerFailureReason = "transport"
	OptimizerFailureTimeout   OptimizerFailureReason = "timeout"
	OptimizerFailureStatus    OptimizerFailureReason = "status"
	OptimizerFailureMalformed OptimizerFailureReason = "malformed"
	OptimizerFailureEmpty     OptimizerFailureReason = "empty"
)

// OptimizerFailure is emitted whenever the remote optimiser could not be used.
type OptimizerFailure struct {
	JobID        string                 `json:"job_id,omitempty"`
	AcademicYear string                 `json:"academic_year,omitempty"`
	Semester     int                    `json:"semester,omitempty"`
	Endpoint     string                 `json:"endpoint"`
	Reason       OptimizerFailureReason `json:"reason"`
	StatusCode   int                    `json:"status_code,omitempty"`
	Message      string                 `json:"message"`
	OccurredAt   time.Time              `json:"occurred_at"`
}
