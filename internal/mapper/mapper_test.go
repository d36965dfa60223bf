package mapper_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/mapper"
	"github.com/straye-as/pipeline-api/internal/pipeline"
	"github.com/stretchr/testify/assert"
)

func TestToLeadDTO(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	lead := &domain.Lead{
		BaseModel:     domain.BaseModel{ID: uuid.New(), CreatedAt: created, UpdatedAt: created},
		Name:          "Meera Iyer",
		LeadOwner:     "asha@example.com",
		Source:        domain.LeadSourceReferral,
		Stage:         domain.LeadStageProposal,
		Status:        domain.LeadStatusOpen,
		Probability:   70,
		DealValue:     1000,
		ExpectedValue: 700,
	}

	dto := mapper.ToLeadDTO(lead)

	assert.Equal(t, lead.ID, dto.ID)
	assert.Equal(t, "Meera Iyer", dto.Name)
	assert.Equal(t, 700.0, dto.ExpectedValue)
	assert.Equal(t, "2024-03-01T05:00:00Z", dto.CreatedAt)
	assert.Len(t, mapper.ToLeadDTOs([]domain.Lead{*lead, *lead}), 2)
}

func TestToUserDTO_FallsBackToEmail(t *testing.T) {
	dto := mapper.ToUserDTO(&domain.User{Email: "x@example.com", Role: domain.UserRoleSales})
	assert.Equal(t, "x@example.com", dto.Name)
}

func TestToScoreBreakdownDTO(t *testing.T) {
	lead := &domain.Lead{BaseModel: domain.BaseModel{ID: uuid.New()}}
	card := pipeline.ScoreCard{Source: 20, Budget: 30, Engagement: 20, Volume: 10, Total: 80}

	dto := mapper.ToScoreBreakdownDTO(lead, card, 4)

	assert.Equal(t, lead.ID, dto.LeadID)
	assert.Equal(t, 80, dto.Total)
	assert.Equal(t, 4, dto.ActivityCount)
}

func TestFormatError(t *testing.T) {
	base := errors.New("boom")
	err := mapper.FormatError("lead", "create", base)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "lead create failed: boom", err.Error())
}
