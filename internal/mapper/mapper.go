package mapper

import (
	"fmt"
	"time"

	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/pipeline"
)

// TimestampLayout is the ISO 8601 layout used in API responses
const TimestampLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ToLeadDTO converts Lead to LeadDTO
func ToLeadDTO(lead *domain.Lead) domain.LeadDTO {
	return domain.LeadDTO{
		ID:            lead.ID,
		Name:          lead.Name,
		CompanyName:   lead.CompanyName,
		Email:         lead.Email,
		Phone:         lead.Phone,
		Industry:      lead.Industry,
		LeadOwner:     lead.LeadOwner,
		Source:        lead.Source,
		BudgetRange:   lead.BudgetRange,
		Stage:         lead.Stage,
		Status:        lead.Status,
		LeadScore:     lead.LeadScore,
		Probability:   lead.Probability,
		DealValue:     lead.DealValue,
		ExpectedValue: lead.ExpectedValue,
		Notes:         lead.Notes,
		CreatedAt:     formatTime(lead.CreatedAt),
		UpdatedAt:     formatTime(lead.UpdatedAt),
	}
}

// ToLeadDTOs converts a slice of leads
func ToLeadDTOs(leads []domain.Lead) []domain.LeadDTO {
	dtos := make([]domain.LeadDTO, len(leads))
	for i := range leads {
		dtos[i] = ToLeadDTO(&leads[i])
	}
	return dtos
}

// ToActivityDTO converts Activity to ActivityDTO
func ToActivityDTO(activity *domain.Activity) domain.ActivityDTO {
	return domain.ActivityDTO{
		ID:        activity.ID,
		LeadID:    activity.LeadID,
		Type:      activity.Type,
		Outcome:   activity.Outcome,
		DateTime:  formatTime(activity.DateTime),
		Notes:     activity.Notes,
		CreatedBy: activity.CreatedBy,
		CreatedAt: formatTime(activity.CreatedAt),
	}
}

// ToUserDTO converts User to UserDTO
func ToUserDTO(user *domain.User) domain.UserDTO {
	return domain.UserDTO{
		ID:       user.ID,
		Email:    user.Email,
		Name:     user.DisplayName(),
		Role:     user.Role,
		IsActive: user.IsActive,
	}
}

// ToScoreBreakdownDTO converts a score card for a lead
func ToScoreBreakdownDTO(lead *domain.Lead, card pipeline.ScoreCard, activityCount int) domain.ScoreBreakdownDTO {
	return domain.ScoreBreakdownDTO{
		LeadID:        lead.ID,
		Source:        card.Source,
		Budget:        card.Budget,
		Engagement:    card.Engagement,
		Volume:        card.Volume,
		Total:         card.Total,
		ActivityCount: activityCount,
	}
}

// FormatError wraps an error with entity and operation context
func FormatError(entity, operation string, err error) error {
	return fmt.Errorf("%s %s failed: %w", entity, operation, err)
}
