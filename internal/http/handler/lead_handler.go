package handler

import (
	"net/http"
	"strconv"

	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/repository"
	"github.com/straye-as/pipeline-api/internal/service"
	"go.uber.org/zap"
)

type LeadHandler struct {
	leadService *service.LeadService
	logger      *zap.Logger
}

func NewLeadHandler(leadService *service.LeadService, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{
		leadService: leadService,
		logger:      logger,
	}
}

// List returns a page of leads visible to the caller.
//
//	GET /leads?page=1&pageSize=20&stage=Proposal&source=Referral&status=Open
//	    &owner=a@example.com&search=acme&sortBy=leadScore&sortOrder=desc
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}

	filters := repository.LeadFilters{
		Owner:  q.Get("owner"),
		Stage:  domain.LeadStage(q.Get("stage")),
		Source: domain.LeadSource(q.Get("source")),
		Status: domain.LeadStatus(q.Get("status")),
		Search: q.Get("search"),
	}

	sort := repository.DefaultSortConfig()
	if sortBy := q.Get("sortBy"); sortBy != "" {
		sort.Field = sortBy
	}
	if order := q.Get("sortOrder"); order != "" {
		sort.Order = repository.ParseSortOrder(order)
	}

	result, err := h.leadService.List(r.Context(), page, pageSize, filters, sort)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list leads")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLeadRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	lead, err := h.leadService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create lead")
		return
	}

	w.Header().Set("Location", "/api/v1/leads/"+lead.ID.String())
	respondJSON(w, http.StatusCreated, lead)
}

func (h *LeadHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := leadIDParam(w, r)
	if !ok {
		return
	}

	lead, err := h.leadService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get lead")
		return
	}

	respondJSON(w, http.StatusOK, lead)
}

// Update replaces the editable fields. Stage changes go through UpdateStage.
func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := leadIDParam(w, r)
	if !ok {
		return
	}

	var req domain.UpdateLeadRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	lead, err := h.leadService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update lead")
		return
	}

	respondJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := leadIDParam(w, r)
	if !ok {
		return
	}

	if err := h.leadService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete lead")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *LeadHandler) UpdateStage(w http.ResponseWriter, r *http.Request) {
	id, ok := leadIDParam(w, r)
	if !ok {
		return
	}

	var req domain.UpdateLeadStageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	lead, err := h.leadService.ChangeStage(r.Context(), id, req.Stage)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to change lead stage")
		return
	}

	respondJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) Rescore(w http.ResponseWriter, r *http.Request) {
	id, ok := leadIDParam(w, r)
	if !ok {
		return
	}

	lead, err := h.leadService.Rescore(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to rescore lead")
		return
	}

	respondJSON(w, http.StatusOK, lead)
}

// Score returns the per-factor breakdown behind the stored lead score
func (h *LeadHandler) Score(w http.ResponseWriter, r *http.Request) {
	id, ok := leadIDParam(w, r)
	if !ok {
		return
	}

	breakdown, err := h.leadService.ScoreBreakdown(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to compute score breakdown")
		return
	}

	respondJSON(w, http.StatusOK, breakdown)
}
