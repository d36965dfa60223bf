package handler

import (
	"net/http"

	"github.com/straye-as/pipeline-api/internal/service"
	"go.uber.org/zap"
)

// DashboardHandler serves the analytics views. All of them read one cached
// dashboard per visibility scope.
type DashboardHandler struct {
	analytics *service.AnalyticsService
	logger    *zap.Logger
}

func NewDashboardHandler(analytics *service.AnalyticsService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.analytics.Dashboard(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to build dashboard")
		return
	}
	respondJSON(w, http.StatusOK, dashboard)
}

func (h *DashboardHandler) Funnel(w http.ResponseWriter, r *http.Request) {
	rows, err := h.analytics.Funnel(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to build funnel")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *DashboardHandler) RevenueTrend(w http.ResponseWriter, r *http.Request) {
	rows, err := h.analytics.RevenueTrend(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to build revenue trend")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *DashboardHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := h.analytics.Leaderboard(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to build leaderboard")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *DashboardHandler) SourceConversion(w http.ResponseWriter, r *http.Request) {
	rows, err := h.analytics.SourceConversion(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to build source conversion")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}
