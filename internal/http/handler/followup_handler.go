package handler

import (
	"net/http"

	"github.com/straye-as/pipeline-api/internal/service"
	"go.uber.org/zap"
)

type FollowUpHandler struct {
	drafts *service.EmailDraftService
	logger *zap.Logger
}

func NewFollowUpHandler(drafts *service.EmailDraftService, logger *zap.Logger) *FollowUpHandler {
	return &FollowUpHandler{
		drafts: drafts,
		logger: logger,
	}
}

// Draft returns a follow-up email for the lead without sending it
func (h *FollowUpHandler) Draft(w http.ResponseWriter, r *http.Request) {
	id, ok := leadIDParam(w, r)
	if !ok {
		return
	}

	draft, err := h.drafts.DraftForLead(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to draft follow-up")
		return
	}
	respondJSON(w, http.StatusOK, draft)
}

// Send drafts a follow-up and mails it to the lead
func (h *FollowUpHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := leadIDParam(w, r)
	if !ok {
		return
	}

	draft, err := h.drafts.SendFollowUp(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to send follow-up")
		return
	}
	respondJSON(w, http.StatusOK, draft)
}
