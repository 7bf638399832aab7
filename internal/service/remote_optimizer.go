package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-engine/internal/dto"
	"github.com/noah-isme/sma-timetable-engine/internal/models"
	"github.com/noah-isme/sma-timetable-engine/pkg/config"
)

const (
	defaultOptimizerTimeout = 30 * time.Second
	maxOptimizerResponse    = 8 << 20
)

// RemoteOptimizer calls the external optimisation service. It never returns an error:
// every failure is reported to the observer and surfaces as an empty schedule.
type RemoteOptimizer struct {
	url      string
	client   *http.Client
	observer OptimizerObserver
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewRemoteOptimizer constructs the client. An empty URL disables remote calls.
func NewRemoteOptimizer(cfg config.OptimizerConfig, observer OptimizerObserver, metrics *MetricsService, logger *zap.Logger) *RemoteOptimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultOptimizerTimeout
	}
	return &RemoteOptimizer{
		url:      strings.TrimSpace(cfg.URL),
		client:   &http.Client{Timeout: timeout},
		observer: observer,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Enabled reports whether an endpoint is configured.
func (o *RemoteOptimizer) Enabled() bool {
	return o != nil && o.url != ""
}

// Optimize posts the instance and returns the decoded placements, or nil on any failure.
func (o *RemoteOptimizer) Optimize(ctx context.Context, req dto.RemoteOptimizeRequest) []models.TimetableEntry {
	if !o.Enabled() {
		return nil
	}

	body, err := json.Marshal(req)
	if err != nil {
		o.fail(ctx, req, models.OptimizerFailureMalformed, 0, fmt.Errorf("encode request: %w", err))
		return nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		o.fail(ctx, req, models.OptimizerFailureTransport, 0, err)
		return nil
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := o.now()
	resp, err := o.client.Do(httpReq)
	if err != nil {
		reason := models.OptimizerFailureTransport
		if isTimeout(err) {
			reason = models.OptimizerFailureTimeout
		}
		o.fail(ctx, req, reason, 0, err)
		return nil
	}
	defer resp.Body.Close()
	o.metrics.ObserveHTTPRequest(http.MethodPost, "remote_optimizer", resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		o.fail(ctx, req, models.OptimizerFailureStatus, resp.StatusCode, fmt.Errorf("optimizer responded with status %d", resp.StatusCode))
		return nil
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxOptimizerResponse))
	if err != nil {
		reason := models.OptimizerFailureTransport
		if isTimeout(err) {
			reason = models.OptimizerFailureTimeout
		}
		o.fail(ctx, req, reason, resp.StatusCode, err)
		return nil
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		o.fail(ctx, req, models.OptimizerFailureMalformed, resp.StatusCode, errors.New("empty response body"))
		return nil
	}

	var remote []dto.RemoteEntry
	if err := json.Unmarshal(payload, &remote); err != nil {
		o.fail(ctx, req, models.OptimizerFailureMalformed, resp.StatusCode, fmt.Errorf("decode response: %w", err))
		return nil
	}
	if len(remote) == 0 {
		o.fail(ctx, req, models.OptimizerFailureEmpty, resp.StatusCode, errors.New("optimizer returned no entries"))
		return nil
	}

	entries := make([]models.TimetableEntry, 0, len(remote))
	complete := 0
	for _, item := range remote {
		entry := item.ToModel(req.AcademicYear, req.Semester)
		if len(entry.MissingFields()) == 0 {
			complete++
		}
		entries = append(entries, entry)
	}
	// Mixed bodies are kept; persistence skips the incomplete entries.
	if complete == 0 {
		o.fail(ctx, req, models.OptimizerFailureMalformed, resp.StatusCode, fmt.Errorf("none of %d entries carries course_id, room_id, lecturer_id, day and time_slot_id", len(remote)))
		return nil
	}
	o.logger.Info("remote optimizer produced schedule",
		zap.String("job_id", req.JobID),
		zap.Int("entries", len(entries)),
	)
	return entries
}

func (o *RemoteOptimizer) fail(ctx context.Context, req dto.RemoteOptimizeRequest, reason models.OptimizerFailureReason, status int, err error) {
	if o.observer == nil {
		return
	}
	failure := models.OptimizerFailure{
		JobID:        req.JobID,
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
		Endpoint:     o.url,
		Reason:       reason,
		StatusCode:   status,
		OccurredAt:   o.now().UTC(),
	}
	if err != nil {
		failure.Message = err.Error()
	}
	// Observers outlive the request context.
	o.observer.OptimizerFailed(context.WithoutCancel(ctx), failure)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
