package handler_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadHandler_Create(t *testing.T) {
	h := setupHandlers(t)

	t.Run("scores and stores the lead", func(t *testing.T) {
		req := newRequest(http.MethodPost, "/leads", jsonBody(t, map[string]interface{}{
			"name":        "Asha Rao",
			"companyName": "Rao Textiles",
			"source":      "Referral",
			"budgetRange": ">10L",
			"dealValue":   200000,
		}), salesUser(asha), "")

		rr := serve(h.leads.Create, req)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var lead domain.LeadDTO
		decode(t, rr, &lead)
		assert.Equal(t, asha, lead.LeadOwner)
		assert.Equal(t, 50, lead.LeadScore)
		assert.Equal(t, domain.LeadStageNew, lead.Stage)
		assert.Equal(t, "/api/v1/leads/"+lead.ID.String(), rr.Header().Get("Location"))
	})

	t.Run("validation error names the field", func(t *testing.T) {
		req := newRequest(http.MethodPost, "/leads", jsonBody(t, map[string]interface{}{
			"name":   "No Source",
			"source": "Billboard",
		}), salesUser(asha), "")

		rr := serve(h.leads.Create, req)
		require.Equal(t, http.StatusBadRequest, rr.Code)

		var apiErr domain.APIError
		decode(t, rr, &apiErr)
		assert.Equal(t, domain.ErrorTypeValidation, apiErr.Type)
		assert.Contains(t, apiErr.Errors, "source")
	})

	t.Run("malformed body", func(t *testing.T) {
		req := newRequest(http.MethodPost, "/leads", strings.NewReader("{"), salesUser(asha), "")
		assert.Equal(t, http.StatusBadRequest, serve(h.leads.Create, req).Code)
	})

	t.Run("sales cannot assign another owner", func(t *testing.T) {
		req := newRequest(http.MethodPost, "/leads", jsonBody(t, map[string]interface{}{
			"name":      "Someone Else's",
			"source":    "Website",
			"leadOwner": ravi,
		}), salesUser(asha), "")
		assert.Equal(t, http.StatusForbidden, serve(h.leads.Create, req).Code)
	})
}

func TestLeadHandler_GetAndList(t *testing.T) {
	h := setupHandlers(t)
	mine := testutil.CreateTestLead(t, h.db, asha, func(l *domain.Lead) { l.Name = "Mine" })
	testutil.CreateTestLead(t, h.db, asha, func(l *domain.Lead) {
		l.Name = "Mine Too"
		l.Stage = domain.LeadStageProposal
	})
	theirs := testutil.CreateTestLead(t, h.db, ravi)

	t.Run("get own lead", func(t *testing.T) {
		rr := serve(h.leads.GetByID, newRequest(http.MethodGet, "/leads/x", nil, salesUser(asha), mine.ID.String()))
		require.Equal(t, http.StatusOK, rr.Code)

		var lead domain.LeadDTO
		decode(t, rr, &lead)
		assert.Equal(t, "Mine", lead.Name)
	})

	t.Run("other territory is not found", func(t *testing.T) {
		rr := serve(h.leads.GetByID, newRequest(http.MethodGet, "/leads/x", nil, salesUser(asha), theirs.ID.String()))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		rr := serve(h.leads.GetByID, newRequest(http.MethodGet, "/leads/x", nil, salesUser(asha), "not-a-uuid"))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("list is scoped and filtered", func(t *testing.T) {
		rr := serve(h.leads.List, newRequest(http.MethodGet, "/leads", nil, salesUser(asha), ""))
		require.Equal(t, http.StatusOK, rr.Code)

		var page domain.PaginatedResponse
		decode(t, rr, &page)
		assert.Equal(t, int64(2), page.Total)
		assert.Equal(t, 20, page.PageSize)

		rr = serve(h.leads.List, newRequest(http.MethodGet, "/leads?stage=Proposal&pageSize=1", nil, adminUser(), ""))
		require.Equal(t, http.StatusOK, rr.Code)
		decode(t, rr, &page)
		assert.Equal(t, int64(1), page.Total)
		assert.Equal(t, 1, page.TotalPages)
	})
}

func TestLeadHandler_StageAndScore(t *testing.T) {
	h := setupHandlers(t)
	lead := testutil.CreateTestLead(t, h.db, asha, func(l *domain.Lead) { l.DealValue = 1000 })

	t.Run("won closes the lead", func(t *testing.T) {
		req := newRequest(http.MethodPut, "/leads/x/stage", jsonBody(t, map[string]string{"stage": "Won"}), salesUser(asha), lead.ID.String())
		rr := serve(h.leads.UpdateStage, req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var updated domain.LeadDTO
		decode(t, rr, &updated)
		assert.Equal(t, domain.LeadStatusWon, updated.Status)
		assert.Equal(t, 100, updated.Probability)
		assert.Equal(t, 1000.0, updated.ExpectedValue)
	})

	t.Run("unknown stage", func(t *testing.T) {
		req := newRequest(http.MethodPut, "/leads/x/stage", jsonBody(t, map[string]string{"stage": "Negotiation"}), salesUser(asha), lead.ID.String())
		assert.Equal(t, http.StatusBadRequest, serve(h.leads.UpdateStage, req).Code)
	})

	t.Run("score breakdown", func(t *testing.T) {
		rr := serve(h.leads.Score, newRequest(http.MethodGet, "/leads/x/score", nil, salesUser(asha), lead.ID.String()))
		require.Equal(t, http.StatusOK, rr.Code)

		var card domain.ScoreBreakdownDTO
		decode(t, rr, &card)
		assert.Equal(t, 20, card.Total)
	})

	t.Run("rescore", func(t *testing.T) {
		rr := serve(h.leads.Rescore, newRequest(http.MethodPost, "/leads/x/rescore", nil, salesUser(asha), lead.ID.String()))
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestLeadHandler_Delete(t *testing.T) {
	h := setupHandlers(t)
	lead := testutil.CreateTestLead(t, h.db, asha)

	rr := serve(h.leads.Delete, newRequest(http.MethodDelete, "/leads/x", nil, salesUser(asha), lead.ID.String()))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(h.leads.Delete, newRequest(http.MethodDelete, "/leads/x", nil, adminUser(), lead.ID.String()))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = serve(h.leads.Delete, newRequest(http.MethodDelete, "/leads/x", nil, adminUser(), uuid.NewString()))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
