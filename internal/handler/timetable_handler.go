package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-engine/internal/dto"
	"github.com/noah-isme/sma-timetable-engine/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-engine/pkg/errors"
	"github.com/noah-isme/sma-timetable-engine/pkg/middleware/requestid"
	"github.com/noah-isme/sma-timetable-engine/pkg/response"
)

const maxCoursesPerRun = 5000

type generationRunner interface {
	Submit(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerationAccepted, error)
	RunSync(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerationResult, error)
	Status(ctx context.Context, jobID string) (*dto.GenerationJobStatus, error)
}

type timetableLister interface {
	ListEntries(ctx context.Context, query dto.TermQuery) ([]models.TimetableEntry, error)
}

// TimetableHandler exposes generation endpoints.
type TimetableHandler struct {
	runner  generationRunner
	entries timetableLister
	logger  *zap.Logger
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(runner generationRunner, entries timetableLister, logger *zap.Logger) *TimetableHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableHandler{runner: runner, entries: entries, logger: logger}
}

// Generate godoc
// @Summary Generate and commit a term timetable
// @Description Queues a generation run and returns its job id. Pass mode=sync to wait for the result.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation payload"
// @Param mode query string false "sync to run inline"
// @Success 202 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	if len(req.Courses) > maxCoursesPerRun {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "courses exceeds supported limit"))
		return
	}

	if c.Query("mode") == "sync" {
		result, err := h.runner.RunSync(c.Request.Context(), req)
		if err != nil {
			h.logger.Info("sync generation failed", zap.String("request_id", requestid.Value(c)), zap.Error(err))
			response.ErrorWithData(c, err, result)
			return
		}
		response.JSON(c, http.StatusOK, result)
		return
	}

	accepted, err := h.runner.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("generation queued",
		zap.String("request_id", requestid.Value(c)),
		zap.String("job_id", accepted.JobID),
		zap.String("term", req.TermKey()),
	)
	response.Accepted(c, accepted)
}

// Job godoc
// @Summary Get generation job status
// @Tags Timetable
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/jobs/{id} [get]
func (h *TimetableHandler) Job(c *gin.Context) {
	status, err := h.runner.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status)
}

// List godoc
// @Summary List committed timetable entries of a term
// @Tags Timetable
// @Produce json
// @Param academic_year query string true "Academic year"
// @Param semester query int true "Semester"
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	query, ok := bindTermQuery(c)
	if !ok {
		return
	}
	entries, err := h.entries.ListEntries(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, map[string]interface{}{"count": len(entries)})
}

func bindTermQuery(c *gin.Context) (dto.TermQuery, bool) {
	var query dto.TermQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid term query"))
		return query, false
	}
	return query, true
}
