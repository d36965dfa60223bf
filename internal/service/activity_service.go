package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/auth"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/mapper"
	"github.com/straye-as/pipeline-api/internal/metrics"
	"github.com/straye-as/pipeline-api/internal/repository"
	"go.uber.org/zap"
)

// ActivityService logs interactions against leads. Activities are append-only.
type ActivityService struct {
	activityRepo *repository.ActivityRepository
	leadRepo     *repository.LeadRepository
	leadService  *LeadService
	logger       *zap.Logger
	now          func() time.Time
}

// NewActivityService creates a new ActivityService instance
func NewActivityService(
	activityRepo *repository.ActivityRepository,
	leadRepo *repository.LeadRepository,
	leadService *LeadService,
	logger *zap.Logger,
) *ActivityService {
	return &ActivityService{
		activityRepo: activityRepo,
		leadRepo:     leadRepo,
		leadService:  leadService,
		logger:       logger,
		now:          time.Now,
	}
}

// Log records an activity against a visible lead and rescores the lead.
// DateTime defaults to now when the request leaves it out.
func (s *ActivityService) Log(ctx context.Context, leadID uuid.UUID, req *domain.CreateActivityRequest) (*domain.ActivityLoggedDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	lead, err := getVisibleLead(ctx, s.leadRepo, leadID)
	if err != nil {
		return nil, err
	}

	at := s.now()
	if req.DateTime != nil {
		at = *req.DateTime
	}

	activity := &domain.Activity{
		LeadID:    lead.ID,
		Type:      req.Type,
		Outcome:   req.Outcome,
		DateTime:  at.UTC(),
		Notes:     req.Notes,
		CreatedBy: userCtx.Email,
	}

	if err := s.activityRepo.Create(ctx, activity); err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}
	metrics.RecordActivityLogged(string(activity.Outcome))

	changed, err := s.leadService.rescore(ctx, lead)
	if err != nil {
		return nil, err
	}
	if changed {
		invalidateDashboards(ctx, s.leadService.cache, s.logger)
	}

	s.logger.Debug("activity logged",
		zap.String("lead_id", lead.ID.String()),
		zap.String("outcome", string(activity.Outcome)),
		zap.Int("lead_score", lead.LeadScore))

	return &domain.ActivityLoggedDTO{
		Activity: mapper.ToActivityDTO(activity),
		Lead:     mapper.ToLeadDTO(lead),
	}, nil
}

// ListByLead returns a visible lead's activities, newest first
func (s *ActivityService) ListByLead(ctx context.Context, leadID uuid.UUID, limit int) ([]domain.ActivityDTO, error) {
	if _, err := getVisibleLead(ctx, s.leadRepo, leadID); err != nil {
		return nil, err
	}

	activities, err := s.activityRepo.ListByLead(ctx, leadID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	dtos := make([]domain.ActivityDTO, len(activities))
	for i := range activities {
		dtos[i] = mapper.ToActivityDTO(&activities[i])
	}
	return dtos, nil
}
