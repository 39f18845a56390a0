package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-engine/internal/dto"
	"github.com/noah-isme/sma-timetable-engine/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-engine/pkg/errors"
	"github.com/noah-isme/sma-timetable-engine/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.SchedulingResult, error)
	EnqueueGenerate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.AsyncAccepted, error)
	Commit(ctx context.Context, req dto.CommitTimetableRequest) (*dto.CommitReport, error)
	ListGenerations(ctx context.Context, termID string, query dto.ListGenerationsQuery) (*dto.GenerationList, error)
}

// TimetableHandler exposes generation and commit endpoints.
type TimetableHandler struct {
	service timetableGenerator
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.GenerationService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Generate godoc
// @Summary Generate a timetable proposal for a term
// @Description Runs the solver and stores a commitable proposal. With async=true the run is queued and the generation id returned immediately.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generate timetable payload"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}

	if req.Async {
		accepted, err := h.service.EnqueueGenerate(c.Request.Context(), req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusAccepted, accepted, nil)
		return
	}

	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Commit godoc
// @Summary Commit a generated proposal as the active timetable
// @Description Atomically replaces the active timetable of the proposal's term.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.CommitTimetableRequest true "Commit payload"
// @Success 201 {object} response.Envelope
// @Router /timetable/commit [post]
func (h *TimetableHandler) Commit(c *gin.Context) {
	var req dto.CommitTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid commit payload"))
		return
	}
	report, err := h.service.Commit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, report)
}

// Generations godoc
// @Summary List generation runs of a term
// @Tags Timetable
// @Produce json
// @Param termId path string true "Term ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /terms/{termId}/generations [get]
func (h *TimetableHandler) Generations(c *gin.Context) {
	var query dto.ListGenerationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid pagination query"))
		return
	}
	list, err := h.service.ListGenerations(c.Request.Context(), c.Param("termId"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list.Items, &list.Pagination)
}
