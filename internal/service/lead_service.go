package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/auth"
	"github.com/straye-as/pipeline-api/internal/cache"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/mapper"
	"github.com/straye-as/pipeline-api/internal/metrics"
	"github.com/straye-as/pipeline-api/internal/pipeline"
	"github.com/straye-as/pipeline-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LeadService struct {
	leadRepo     *repository.LeadRepository
	activityRepo *repository.ActivityRepository
	cache        cache.Cache
	logger       *zap.Logger
}

func NewLeadService(
	leadRepo *repository.LeadRepository,
	activityRepo *repository.ActivityRepository,
	cache cache.Cache,
	logger *zap.Logger,
) *LeadService {
	return &LeadService{
		leadRepo:     leadRepo,
		activityRepo: activityRepo,
		cache:        cache,
		logger:       logger,
	}
}

// Create stores a new lead owned by the caller, or by LeadOwner when an admin
// assigns it. Probability is seeded from the initial stage and the lead is
// scored before it is saved.
func (s *LeadService) Create(ctx context.Context, req *domain.CreateLeadRequest) (*domain.LeadDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	owner, err := resolveOwner(userCtx, req.LeadOwner)
	if err != nil {
		return nil, err
	}

	stage := req.Stage
	if stage == "" {
		stage = domain.LeadStageNew
	}

	lead := domain.Lead{
		Name:        strings.TrimSpace(req.Name),
		CompanyName: req.CompanyName,
		Email:       req.Email,
		Phone:       req.Phone,
		Industry:    req.Industry,
		LeadOwner:   owner,
		Source:      req.Source,
		BudgetRange: req.BudgetRange,
		DealValue:   req.DealValue,
		Notes:       req.Notes,
	}
	if req.Probability != nil {
		lead.Probability = *req.Probability
	}

	lead = pipeline.TransitionStage(lead, stage)
	lead.LeadScore = pipeline.Score(lead, nil)

	if err := s.leadRepo.Create(ctx, &lead); err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}

	metrics.RecordLeadCreated("api")
	invalidateDashboards(ctx, s.cache, s.logger)

	s.logger.Info("lead created",
		zap.String("lead_id", lead.ID.String()),
		zap.String("owner", lead.LeadOwner),
		zap.String("stage", string(lead.Stage)))

	dto := mapper.ToLeadDTO(&lead)
	return &dto, nil
}

func (s *LeadService) GetByID(ctx context.Context, id uuid.UUID) (*domain.LeadDTO, error) {
	lead, err := getVisibleLead(ctx, s.leadRepo, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToLeadDTO(lead)
	return &dto, nil
}

// Update applies field edits to a lead. Expected value is recomputed from the
// resulting deal value and probability, and the score is refreshed when the
// source or budget changed. Stage changes go through ChangeStage.
func (s *LeadService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateLeadRequest) (*domain.LeadDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	lead, err := getVisibleLead(ctx, s.leadRepo, id)
	if err != nil {
		return nil, err
	}

	next := *lead
	next.Name = strings.TrimSpace(req.Name)
	next.CompanyName = req.CompanyName
	next.Email = req.Email
	next.Phone = req.Phone
	next.Industry = req.Industry
	next.Source = req.Source
	next.BudgetRange = req.BudgetRange
	next.DealValue = req.DealValue
	next.Notes = req.Notes

	if req.LeadOwner != "" && req.LeadOwner != lead.LeadOwner {
		if !userCtx.IsAdmin() {
			return nil, fmt.Errorf("%w: only admins can reassign leads", ErrForbidden)
		}
		next.LeadOwner = req.LeadOwner
	}

	if req.Probability != nil {
		next.Probability = *req.Probability
	}
	next.ExpectedValue = pipeline.ExpectedValue(next.DealValue, next.Probability)

	if req.OnHold != nil {
		if err := applyOnHold(&next, *req.OnHold); err != nil {
			return nil, err
		}
	}

	if next.Source != lead.Source || next.BudgetRange != lead.BudgetRange {
		activities, err := s.activityRepo.ListByLead(ctx, id, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to load activities: %w", err)
		}
		next.LeadScore = pipeline.Score(next, activities)
	}

	if err := s.leadRepo.Update(ctx, &next); err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}

	invalidateDashboards(ctx, s.cache, s.logger)

	dto := mapper.ToLeadDTO(&next)
	return &dto, nil
}

// Delete removes a lead and its activity history. Admin only.
func (s *LeadService) Delete(ctx context.Context, id uuid.UUID) error {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}
	if !userCtx.IsAdmin() {
		return fmt.Errorf("%w: only admins can delete leads", ErrForbidden)
	}

	if err := s.leadRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLeadNotFound
		}
		return fmt.Errorf("failed to delete lead: %w", err)
	}

	invalidateDashboards(ctx, s.cache, s.logger)

	s.logger.Info("lead deleted",
		zap.String("lead_id", id.String()),
		zap.String("deleted_by", userCtx.Email))
	return nil
}

// List returns a page of the leads visible to the caller
func (s *LeadService) List(ctx context.Context, page, pageSize int, filters repository.LeadFilters, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > repository.MaxPageSize {
		pageSize = repository.MaxPageSize
	}
	if page < 1 {
		page = 1
	}

	leads, total, err := s.leadRepo.List(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}

	return &domain.PaginatedResponse{
		Data:       mapper.ToLeadDTOs(leads),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// ChangeStage moves a lead to stage, deriving status, probability and
// expected value from it.
func (s *LeadService) ChangeStage(ctx context.Context, id uuid.UUID, stage domain.LeadStage) (*domain.LeadDTO, error) {
	if !stage.IsValid() {
		return nil, fmt.Errorf("%w: unknown stage %q", ErrInvalidInput, stage)
	}

	lead, err := getVisibleLead(ctx, s.leadRepo, id)
	if err != nil {
		return nil, err
	}

	next := pipeline.TransitionStage(*lead, stage)
	if err := s.leadRepo.Update(ctx, &next); err != nil {
		return nil, fmt.Errorf("failed to update lead stage: %w", err)
	}

	if lead.Stage != next.Stage {
		metrics.RecordStageTransition(string(next.Stage))
		s.logger.Info("lead stage changed",
			zap.String("lead_id", id.String()),
			zap.String("from", string(lead.Stage)),
			zap.String("to", string(next.Stage)))
	}
	invalidateDashboards(ctx, s.cache, s.logger)

	dto := mapper.ToLeadDTO(&next)
	return &dto, nil
}

// Rescore recomputes the lead's score from its stored activities
func (s *LeadService) Rescore(ctx context.Context, id uuid.UUID) (*domain.LeadDTO, error) {
	lead, err := getVisibleLead(ctx, s.leadRepo, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.rescore(ctx, lead); err != nil {
		return nil, err
	}

	dto := mapper.ToLeadDTO(lead)
	return &dto, nil
}

// ScoreBreakdown explains the lead's current score
func (s *LeadService) ScoreBreakdown(ctx context.Context, id uuid.UUID) (*domain.ScoreBreakdownDTO, error) {
	lead, err := getVisibleLead(ctx, s.leadRepo, id)
	if err != nil {
		return nil, err
	}

	activities, err := s.activityRepo.ListByLead(ctx, id, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load activities: %w", err)
	}

	card := pipeline.ScoreBreakdown(*lead, activities)
	dto := mapper.ToScoreBreakdownDTO(lead, card, len(activities))
	return &dto, nil
}

// RescoreAll recomputes every visible lead's score and stores the ones that
// changed. Returns the number of leads updated.
func (s *LeadService) RescoreAll(ctx context.Context) (int, error) {
	leads, err := s.leadRepo.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load leads: %w", err)
	}
	if len(leads) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, len(leads))
	for i := range leads {
		ids[i] = leads[i].ID
	}

	activities, err := s.activityRepo.ListByLeads(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to load activities: %w", err)
	}

	updated := 0
	for i := range leads {
		if err := ctx.Err(); err != nil {
			return updated, err
		}

		score := pipeline.Score(leads[i], activities[leads[i].ID])
		if score == leads[i].LeadScore {
			continue
		}
		if err := s.leadRepo.UpdateScore(ctx, leads[i].ID, score); err != nil {
			return updated, fmt.Errorf("failed to update score for lead %s: %w", leads[i].ID, err)
		}
		updated++
	}

	metrics.RecordLeadsRescored(updated)
	if updated > 0 {
		invalidateDashboards(ctx, s.cache, s.logger)
	}
	return updated, nil
}

// rescore refreshes lead.LeadScore in place and persists it when it changed
func (s *LeadService) rescore(ctx context.Context, lead *domain.Lead) (bool, error) {
	activities, err := s.activityRepo.ListByLead(ctx, lead.ID, 0)
	if err != nil {
		return false, fmt.Errorf("failed to load activities: %w", err)
	}

	score := pipeline.Score(*lead, activities)
	if score == lead.LeadScore {
		return false, nil
	}

	if err := s.leadRepo.UpdateScore(ctx, lead.ID, score); err != nil {
		return false, fmt.Errorf("failed to update lead score: %w", err)
	}
	lead.LeadScore = score
	return true, nil
}

// getVisibleLead loads a lead within the caller's scope. Leads outside the
// scope are reported as not found.
func getVisibleLead(ctx context.Context, repo *repository.LeadRepository, id uuid.UUID) (*domain.Lead, error) {
	lead, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

// resolveOwner picks the owner for a new lead. Sales users can only create
// leads in their own territory.
func resolveOwner(userCtx *auth.UserContext, requested string) (string, error) {
	owner := strings.TrimSpace(requested)
	if owner == "" {
		return userCtx.Email, nil
	}
	if !userCtx.CanAccessLead(owner) {
		return "", fmt.Errorf("%w: cannot assign leads to %s", ErrForbidden, owner)
	}
	return owner, nil
}

func applyOnHold(lead *domain.Lead, onHold bool) error {
	switch lead.Status {
	case domain.LeadStatusWon, domain.LeadStatusLost:
		if onHold {
			return fmt.Errorf("%w: closed leads cannot be put on hold", ErrInvalidInput)
		}
	case domain.LeadStatusOnHold:
		if !onHold {
			lead.Status = domain.LeadStatusOpen
		}
	default:
		if onHold {
			lead.Status = domain.LeadStatusOnHold
		}
	}
	return nil
}
