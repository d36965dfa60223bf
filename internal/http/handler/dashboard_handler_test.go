package handler_test

import (
	"net/http"
	"testing"

	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/pipeline"
	"github.com/straye-as/pipeline-api/internal/service"
	"github.com/straye-as/pipeline-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardHandler(t *testing.T) {
	h := setupHandlers(t)
	testutil.CreateTestLead(t, h.db, asha, func(l *domain.Lead) {
		l.Source = domain.LeadSourceReferral
		l.Stage = domain.LeadStageWon
		l.Status = domain.LeadStatusWon
		l.DealValue = 500
		l.ExpectedValue = 500
	})
	testutil.CreateTestLead(t, h.db, ravi)

	t.Run("full dashboard", func(t *testing.T) {
		rr := serve(h.dashboard.Dashboard, newRequest(http.MethodGet, "/dashboard", nil, adminUser(), ""))
		require.Equal(t, http.StatusOK, rr.Code)

		var dashboard service.DashboardDTO
		decode(t, rr, &dashboard)
		assert.Equal(t, 2, dashboard.TotalLeads)
		assert.Len(t, dashboard.Funnel, 5)
		assert.Len(t, dashboard.Leaderboard, 2)
	})

	t.Run("funnel view is scoped", func(t *testing.T) {
		rr := serve(h.dashboard.Funnel, newRequest(http.MethodGet, "/dashboard/funnel", nil, salesUser(ravi), ""))
		require.Equal(t, http.StatusOK, rr.Code)

		var funnel []pipeline.FunnelRow
		decode(t, rr, &funnel)
		require.Len(t, funnel, 5)
		assert.Equal(t, 1, funnel[0].Count)
		assert.Equal(t, 0, funnel[4].Count)
	})

	t.Run("other views", func(t *testing.T) {
		for _, view := range []http.HandlerFunc{h.dashboard.RevenueTrend, h.dashboard.Leaderboard, h.dashboard.SourceConversion} {
			rr := serve(view, newRequest(http.MethodGet, "/dashboard/view", nil, adminUser(), ""))
			assert.Equal(t, http.StatusOK, rr.Code)
		}
	})

	t.Run("no user", func(t *testing.T) {
		rr := serve(h.dashboard.Dashboard, newRequest(http.MethodGet, "/dashboard", nil, nil, ""))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
