package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/domain"
	"gorm.io/gorm"
)

// ActivityRepository stores the interaction history of leads.
// Activities are append only; there is no update or delete.
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

// ListByLead returns a lead's activities newest first. limit <= 0 returns all.
func (r *ActivityRepository) ListByLead(ctx context.Context, leadID uuid.UUID, limit int) ([]domain.Activity, error) {
	var activities []domain.Activity
	query := r.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("date_time DESC").
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&activities).Error
	return activities, err
}

// ListByLeads returns the activities of several leads keyed by lead, each newest first
func (r *ActivityRepository) ListByLeads(ctx context.Context, leadIDs []uuid.UUID) (map[uuid.UUID][]domain.Activity, error) {
	result := make(map[uuid.UUID][]domain.Activity, len(leadIDs))
	if len(leadIDs) == 0 {
		return result, nil
	}

	var activities []domain.Activity
	err := r.db.WithContext(ctx).
		Where("lead_id IN ?", leadIDs).
		Order("date_time DESC").
		Order("created_at DESC").
		Find(&activities).Error
	if err != nil {
		return nil, err
	}

	for _, a := range activities {
		result[a.LeadID] = append(result[a.LeadID], a)
	}
	return result, nil
}

func (r *ActivityRepository) CountByLead(ctx context.Context, leadID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Activity{}).Where("lead_id = ?", leadID).Count(&count).Error
	return int(count), err
}
