package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/straye-as/pipeline-api/internal/auth"
	"github.com/straye-as/pipeline-api/internal/cache"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/mapper"
	"github.com/straye-as/pipeline-api/internal/pipeline"
	"github.com/straye-as/pipeline-api/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const dashboardKeyPrefix = "pipeline:dashboard:"

// DashboardDTO bundles the four pipeline views for the caller's scope
type DashboardDTO struct {
	Funnel           []pipeline.FunnelRow      `json:"funnel"`
	RevenueTrend     []pipeline.RevenueRow     `json:"revenueTrend"`
	Leaderboard      []pipeline.LeaderboardRow `json:"leaderboard"`
	SourceConversion []pipeline.ConversionRow  `json:"sourceConversion"`
	TotalLeads       int                       `json:"totalLeads"`
	GeneratedAt      string                    `json:"generatedAt"`
}

type AnalyticsService struct {
	leadRepo *repository.LeadRepository
	userRepo *repository.UserRepository
	cache    cache.Cache
	logger   *zap.Logger
	now      func() time.Time
}

func NewAnalyticsService(
	leadRepo *repository.LeadRepository,
	userRepo *repository.UserRepository,
	cache cache.Cache,
	logger *zap.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		leadRepo: leadRepo,
		userRepo: userRepo,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

// Dashboard computes every pipeline view over the leads visible to the caller.
// Results are cached per visibility scope until the next lead or user write.
// The cache write is not versioned: a write that invalidates between the read
// and SetJSON leaves a stale view for at most the cache TTL.
func (s *AnalyticsService) Dashboard(ctx context.Context) (*DashboardDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	key := dashboardKeyPrefix + userCtx.ScopeKey()

	var cached DashboardDTO
	err := s.cache.GetJSON(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
	}

	var (
		leads []domain.Lead
		users []domain.User
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		leads, err = s.leadRepo.ListAll(gctx)
		if err != nil {
			return fmt.Errorf("failed to load leads: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		users, err = s.userRepo.List(gctx)
		if err != nil {
			return fmt.Errorf("failed to load users: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dashboard := &DashboardDTO{
		Funnel:           pipeline.Funnel(leads),
		RevenueTrend:     pipeline.RevenueTrend(leads),
		Leaderboard:      pipeline.WithDisplayNames(pipeline.Leaderboard(leads), users),
		SourceConversion: pipeline.SourceConversion(leads),
		TotalLeads:       len(leads),
		GeneratedAt:      s.now().UTC().Format(mapper.TimestampLayout),
	}

	if err := s.cache.SetJSON(ctx, key, dashboard); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
	return dashboard, nil
}

func (s *AnalyticsService) Funnel(ctx context.Context) ([]pipeline.FunnelRow, error) {
	dashboard, err := s.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	return dashboard.Funnel, nil
}

func (s *AnalyticsService) RevenueTrend(ctx context.Context) ([]pipeline.RevenueRow, error) {
	dashboard, err := s.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	return dashboard.RevenueTrend, nil
}

func (s *AnalyticsService) Leaderboard(ctx context.Context) ([]pipeline.LeaderboardRow, error) {
	dashboard, err := s.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	return dashboard.Leaderboard, nil
}

func (s *AnalyticsService) SourceConversion(ctx context.Context) ([]pipeline.ConversionRow, error) {
	dashboard, err := s.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	return dashboard.SourceConversion, nil
}

// invalidateDashboards drops every cached dashboard. A lead write can move
// rows in both the owner's scope and the admin scope, so all scopes go.
func invalidateDashboards(ctx context.Context, c cache.Cache, logger *zap.Logger) {
	if err := c.DeletePattern(ctx, dashboardKeyPrefix+"*"); err != nil {
		logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}
