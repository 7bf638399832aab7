package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-engine/internal/dto"
	"github.com/noah-isme/sma-timetable-engine/internal/models"
	"github.com/noah-isme/sma-timetable-engine/pkg/response"
)

type conflictResolver interface {
	List(ctx context.Context, query dto.TermQuery) ([]models.Conflict, error)
	Detect(ctx context.Context, query dto.TermQuery) (*dto.ConflictReport, error)
	Suggest(ctx context.Context, entryID string) (*dto.SuggestionsResponse, error)
}

// ConflictHandler exposes conflict inspection and resolution endpoints.
type ConflictHandler struct {
	service conflictResolver
}

// NewConflictHandler constructs the handler.
func NewConflictHandler(svc conflictResolver) *ConflictHandler {
	return &ConflictHandler{service: svc}
}

// List godoc
// @Summary List conflicts recorded for a term
// @Tags Conflicts
// @Produce json
// @Param academic_year query string true "Academic year"
// @Param semester query int true "Semester"
// @Success 200 {object} response.Envelope
// @Router /conflicts [get]
func (h *ConflictHandler) List(c *gin.Context) {
	query, ok := bindTermQuery(c)
	if !ok {
		return
	}
	conflicts, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflicts, map[string]interface{}{"count": len(conflicts)})
}

// Detect godoc
// @Summary Re-run conflict detection over a committed term
// @Tags Conflicts
// @Produce json
// @Param academic_year query string true "Academic year"
// @Param semester query int true "Semester"
// @Success 200 {object} response.Envelope
// @Router /conflicts/detect [post]
func (h *ConflictHandler) Detect(c *gin.Context) {
	query, ok := bindTermQuery(c)
	if !ok {
		return
	}
	report, err := h.service.Detect(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// Suggestions godoc
// @Summary Rank alternative placements for a timetable entry
// @Tags Conflicts
// @Produce json
// @Param id path string true "Timetable entry ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/entries/{id}/suggestions [get]
func (h *ConflictHandler) Suggestions(c *gin.Context) {
	resp, err := h.service.Suggest(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}
