package handler

import (
	"net/http"
	"strconv"

	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/service"
	"go.uber.org/zap"
)

type ActivityHandler struct {
	activityService *service.ActivityService
	logger          *zap.Logger
}

func NewActivityHandler(activityService *service.ActivityService, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{
		activityService: activityService,
		logger:          logger,
	}
}

// List returns a lead's activity history, newest first. limit=0 returns all.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	leadID, ok := leadIDParam(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondWithError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	activities, err := h.activityService.ListByLead(r.Context(), leadID, limit)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list activities")
		return
	}

	respondJSON(w, http.StatusOK, activities)
}

// Log records an activity and responds with it and the rescored lead
func (h *ActivityHandler) Log(w http.ResponseWriter, r *http.Request) {
	leadID, ok := leadIDParam(w, r)
	if !ok {
		return
	}

	var req domain.CreateActivityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.activityService.Log(r.Context(), leadID, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to log activity")
		return
	}

	respondJSON(w, http.StatusCreated, result)
}
