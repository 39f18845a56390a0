package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-engine/internal/dto"
	"github.com/noah-isme/sma-timetable-engine/internal/models"
	"github.com/noah-isme/sma-timetable-engine/internal/service"
	"github.com/noah-isme/sma-timetable-engine/pkg/response"
)

type termAnalyzer interface {
	Analyze(ctx context.Context, termID string) (*dto.TermAnalysis, error)
	ActiveTimetable(ctx context.Context, termID string) ([]models.TimetableEntry, error)
	SystemMetrics() models.AnalyticsSystemMetrics
}

// AnalyticsHandler exposes timetable quality and system metrics endpoints.
type AnalyticsHandler struct {
	service termAnalyzer
}

// NewAnalyticsHandler constructs the handler.
func NewAnalyticsHandler(svc *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: svc}
}

// Analysis godoc
// @Summary Analyze the active timetable of a term
// @Description Returns the composite quality score, teacher workloads, room utilization, conflicts and recommendations.
// @Tags Analytics
// @Produce json
// @Param termId path string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /terms/{termId}/analysis [get]
func (h *AnalyticsHandler) Analysis(c *gin.Context) {
	analysis, err := h.service.Analyze(c.Request.Context(), c.Param("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, analysis, nil)
}

// Timetable godoc
// @Summary Get the active timetable of a term
// @Tags Analytics
// @Produce json
// @Param termId path string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /terms/{termId}/timetable [get]
func (h *AnalyticsHandler) Timetable(c *gin.Context) {
	entries, err := h.service.ActiveTimetable(c.Request.Context(), c.Param("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// SystemMetrics godoc
// @Summary Runtime metrics snapshot
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/system [get]
func (h *AnalyticsHandler) SystemMetrics(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.SystemMetrics(), nil)
}
