package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/domain"
	"gorm.io/gorm"
)

// leadSortFields whitelists sortable API fields
var leadSortFields = map[string]string{
	"createdAt":     "created_at",
	"updatedAt":     "updated_at",
	"name":          "name",
	"leadScore":     "lead_score",
	"dealValue":     "deal_value",
	"expectedValue": "expected_value",
	"probability":   "probability",
	"stage":         "stage",
}

// LeadFilters narrows a lead listing. Empty fields are ignored.
type LeadFilters struct {
	Owner  string
	Stage  domain.LeadStage
	Source domain.LeadSource
	Status domain.LeadStatus
	Search string
}

type LeadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

func (r *LeadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	return r.db.WithContext(ctx).Create(lead).Error
}

// CreateBatch inserts leads in a single transaction
func (r *LeadRepository) CreateBatch(ctx context.Context, leads []domain.Lead) error {
	if len(leads) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(leads, 100).Error
}

// GetByID returns a lead visible to the caller
func (r *LeadRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	var lead domain.Lead
	query := r.db.WithContext(ctx).Where("id = ?", id)
	query = ApplyOwnerScope(ctx, query)
	if err := query.First(&lead).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *LeadRepository) Update(ctx context.Context, lead *domain.Lead) error {
	return r.db.WithContext(ctx).Save(lead).Error
}

// UpdateScore stores a recomputed score without touching other fields
func (r *LeadRepository) UpdateScore(ctx context.Context, id uuid.UUID, score int) error {
	return r.db.WithContext(ctx).Model(&domain.Lead{}).Where("id = ?", id).Update("lead_score", score).Error
}

// Delete removes a lead and its activities
func (r *LeadRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.Activity{}, "lead_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.Lead{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// List returns a page of visible leads and the total matching count
func (r *LeadRepository) List(ctx context.Context, page, pageSize int, filters LeadFilters, sort SortConfig) ([]domain.Lead, int64, error) {
	var leads []domain.Lead
	var total int64

	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page < 1 {
		page = 1
	}

	query := r.db.WithContext(ctx).Model(&domain.Lead{})
	query = ApplyOwnerScope(ctx, query)
	query = applyLeadFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order(BuildOrderClause(sort, leadSortFields, "updated_at")).
		Order("id").
		Offset(offset).
		Limit(pageSize).
		Find(&leads).Error

	return leads, total, err
}

// ListAll returns every lead visible to the caller, oldest first
func (r *LeadRepository) ListAll(ctx context.Context) ([]domain.Lead, error) {
	var leads []domain.Lead
	query := r.db.WithContext(ctx).Model(&domain.Lead{})
	query = ApplyOwnerScope(ctx, query)
	err := query.Order("created_at ASC").Order("id").Find(&leads).Error
	return leads, err
}

func applyLeadFilters(query *gorm.DB, filters LeadFilters) *gorm.DB {
	if filters.Owner != "" {
		query = query.Where("lead_owner = ?", filters.Owner)
	}
	if filters.Stage != "" {
		query = query.Where("stage = ?", filters.Stage)
	}
	if filters.Source != "" {
		query = query.Where("source = ?", filters.Source)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.Search != "" {
		pattern := "%" + strings.ToLower(filters.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(company_name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern, pattern)
	}
	return query
}
