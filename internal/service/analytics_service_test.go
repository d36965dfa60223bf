package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/pipeline"
	"github.com/straye-as/pipeline-api/internal/service"
	"github.com/straye-as/pipeline-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPipeline(t *testing.T, f *fixture) {
	t.Helper()

	march := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	april := time.Date(2024, 4, 20, 10, 0, 0, 0, time.UTC)

	testutil.CreateTestUser(t, f.db, asha, domain.UserRoleSales)

	testutil.CreateTestLead(t, f.db, asha, func(l *domain.Lead) {
		l.CreatedAt = march
		l.Source = domain.LeadSourceReferral
		l.Stage = domain.LeadStageWon
		l.Status = domain.LeadStatusWon
		l.Probability = 100
		l.DealValue = 1000
		l.ExpectedValue = 1000
	})
	testutil.CreateTestLead(t, f.db, asha, func(l *domain.Lead) {
		l.CreatedAt = march
		l.Source = domain.LeadSourceReferral
		l.Stage = domain.LeadStageProposal
		l.Probability = 70
		l.DealValue = 500
		l.ExpectedValue = 350
	})
	testutil.CreateTestLead(t, f.db, ravi, func(l *domain.Lead) {
		l.CreatedAt = april
		l.Source = domain.LeadSourceWebsite
		l.Stage = domain.LeadStageLost
		l.Status = domain.LeadStatusLost
		l.DealValue = 800
	})
}

func TestAnalyticsService_Dashboard(t *testing.T) {
	f := newFixture(t)
	seedPipeline(t, f)

	t.Run("admin sees every territory", func(t *testing.T) {
		dashboard, err := f.analytics.Dashboard(adminCtx())
		require.NoError(t, err)

		assert.Equal(t, 3, dashboard.TotalLeads)
		assert.Equal(t, []pipeline.FunnelRow{
			{Stage: domain.LeadStageNew, Count: 0},
			{Stage: domain.LeadStageContacted, Count: 0},
			{Stage: domain.LeadStageQualified, Count: 0},
			{Stage: domain.LeadStageProposal, Count: 1},
			{Stage: domain.LeadStageWon, Count: 1},
		}, dashboard.Funnel)
		assert.Equal(t, []pipeline.RevenueRow{
			{Period: "2024-03", ExpectedTotal: 1350, ClosedTotal: 1000},
			{Period: "2024-04", ExpectedTotal: 0, ClosedTotal: 0},
		}, dashboard.RevenueTrend)

		require.Len(t, dashboard.Leaderboard, 2)
		assert.Equal(t, asha, dashboard.Leaderboard[0].Owner)
		assert.Equal(t, "User "+asha, dashboard.Leaderboard[0].OwnerName)
		assert.Equal(t, 1350.0, dashboard.Leaderboard[0].PipelineValue)
		assert.Equal(t, ravi, dashboard.Leaderboard[1].OwnerName, "owners without a user row keep their key")

		assert.Equal(t, []pipeline.ConversionRow{
			{Source: domain.LeadSourceReferral, WinRatePercent: 50, TotalCount: 2},
			{Source: domain.LeadSourceWebsite, WinRatePercent: 0, TotalCount: 1},
		}, dashboard.SourceConversion)
		assert.NotEmpty(t, dashboard.GeneratedAt)
	})

	t.Run("sales user sees own territory", func(t *testing.T) {
		dashboard, err := f.analytics.Dashboard(salesCtx(ravi))
		require.NoError(t, err)

		assert.Equal(t, 1, dashboard.TotalLeads)
		require.Len(t, dashboard.Leaderboard, 1)
		assert.Equal(t, ravi, dashboard.Leaderboard[0].Owner)
		require.Len(t, dashboard.SourceConversion, 1)
		assert.Equal(t, domain.LeadSourceWebsite, dashboard.SourceConversion[0].Source)
	})

	t.Run("individual views", func(t *testing.T) {
		funnel, err := f.analytics.Funnel(adminCtx())
		require.NoError(t, err)
		assert.Len(t, funnel, 5)

		trend, err := f.analytics.RevenueTrend(adminCtx())
		require.NoError(t, err)
		assert.Len(t, trend, 2)

		leaderboard, err := f.analytics.Leaderboard(adminCtx())
		require.NoError(t, err)
		assert.Len(t, leaderboard, 2)

		conversion, err := f.analytics.SourceConversion(adminCtx())
		require.NoError(t, err)
		assert.Len(t, conversion, 2)
	})

	t.Run("requires a user", func(t *testing.T) {
		_, err := f.analytics.Dashboard(context.Background())
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})
}

func TestAnalyticsService_Cache(t *testing.T) {
	redisCache, mr := newRedisCache(t)
	f := newFixtureWithCache(t, redisCache)
	seedPipeline(t, f)

	first, err := f.analytics.Dashboard(adminCtx())
	require.NoError(t, err)
	assert.Equal(t, 3, first.TotalLeads)
	assert.True(t, mr.Exists("pipeline:dashboard:all"))

	// written behind the service's back, so the cached view is served
	testutil.CreateTestLead(t, f.db, asha)
	cached, err := f.analytics.Dashboard(adminCtx())
	require.NoError(t, err)
	assert.Equal(t, 3, cached.TotalLeads)

	_, err = f.analytics.Dashboard(salesCtx(asha))
	require.NoError(t, err)
	assert.True(t, mr.Exists("pipeline:dashboard:owner:"+asha))

	// a write through the service drops every scope
	_, err = f.leads.Create(salesCtx(asha), &domain.CreateLeadRequest{Name: "Fresh", Source: domain.LeadSourceEvent})
	require.NoError(t, err)
	assert.False(t, mr.Exists("pipeline:dashboard:all"))
	assert.False(t, mr.Exists("pipeline:dashboard:owner:"+asha))

	fresh, err := f.analytics.Dashboard(adminCtx())
	require.NoError(t, err)
	assert.Equal(t, 5, fresh.TotalLeads)
}
