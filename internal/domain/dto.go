package domain

import (
	"time"

	"github.com/google/uuid"
)

// DTOs for API responses

type LeadDTO struct {
	ID            uuid.UUID   `json:"id"`
	Name          string      `json:"name"`
	CompanyName   string      `json:"companyName,omitempty"`
	Email         string      `json:"email,omitempty"`
	Phone         string      `json:"phone,omitempty"`
	Industry      string      `json:"industry,omitempty"`
	LeadOwner     string      `json:"leadOwner"`
	Source        LeadSource  `json:"source"`
	BudgetRange   BudgetRange `json:"budgetRange,omitempty"`
	Stage         LeadStage   `json:"stage"`
	Status        LeadStatus  `json:"status"`
	LeadScore     int         `json:"leadScore"`
	Probability   int         `json:"probability"`
	DealValue     float64     `json:"dealValue"`
	ExpectedValue float64     `json:"expectedValue"`
	Notes         string      `json:"notes,omitempty"`
	CreatedAt     string      `json:"createdAt"` // ISO 8601
	UpdatedAt     string      `json:"updatedAt"` // ISO 8601
}

type ActivityDTO struct {
	ID        uuid.UUID       `json:"id"`
	LeadID    uuid.UUID       `json:"leadId"`
	Type      ActivityType    `json:"type"`
	Outcome   ActivityOutcome `json:"outcome"`
	DateTime  string          `json:"dateTime"` // ISO 8601
	Notes     string          `json:"notes,omitempty"`
	CreatedBy string          `json:"createdBy"`
	CreatedAt string          `json:"createdAt"`
}

type UserDTO struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Role     UserRole  `json:"role"`
	IsActive bool      `json:"isActive"`
}

// ScoreBreakdownDTO explains how a lead's score was composed
type ScoreBreakdownDTO struct {
	LeadID        uuid.UUID `json:"leadId"`
	Source        int       `json:"source"`
	Budget        int       `json:"budget"`
	Engagement    int       `json:"engagement"`
	Volume        int       `json:"volume"`
	Total         int       `json:"total"`
	ActivityCount int       `json:"activityCount"`
}

// EmailDraftDTO is a follow-up email proposal for a lead
type EmailDraftDTO struct {
	LeadID    uuid.UUID `json:"leadId"`
	To        string    `json:"to,omitempty"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Generated bool      `json:"generated"` // false when the template fallback was used
}

// ImportRowError describes a spreadsheet row that could not be imported
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResultDTO summarises a spreadsheet import
type ImportResultDTO struct {
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Errors   []ImportRowError `json:"errors,omitempty"`
}

// ReportDTO points at a generated report file
type ReportDTO struct {
	StoragePath string `json:"storagePath"`
	Size        int64  `json:"size"`
	GeneratedAt string `json:"generatedAt"`
}

// Pagination
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// Request DTOs

type CreateLeadRequest struct {
	Name        string      `json:"name" validate:"required,max=200"`
	CompanyName string      `json:"companyName,omitempty" validate:"max=200"`
	Email       string      `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone       string      `json:"phone,omitempty" validate:"max=50"`
	Industry    string      `json:"industry,omitempty" validate:"max=100"`
	LeadOwner   string      `json:"leadOwner,omitempty" validate:"omitempty,max=255"`
	Source      LeadSource  `json:"source" validate:"required,oneof=Website Referral LinkedIn Event ColdCall"`
	BudgetRange BudgetRange `json:"budgetRange,omitempty" validate:"omitempty,oneof=<1L 1-5L 5-10L >10L"`
	Stage       LeadStage   `json:"stage,omitempty" validate:"omitempty,oneof=New Contacted Qualified Proposal Won Lost"`
	Probability *int        `json:"probability,omitempty" validate:"omitempty,min=0,max=100"`
	DealValue   float64     `json:"dealValue,omitempty" validate:"gte=0"`
	Notes       string      `json:"notes,omitempty"`
}

type UpdateLeadRequest struct {
	Name        string      `json:"name" validate:"required,max=200"`
	CompanyName string      `json:"companyName,omitempty" validate:"max=200"`
	Email       string      `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone       string      `json:"phone,omitempty" validate:"max=50"`
	Industry    string      `json:"industry,omitempty" validate:"max=100"`
	LeadOwner   string      `json:"leadOwner,omitempty" validate:"omitempty,max=255"`
	Source      LeadSource  `json:"source" validate:"required,oneof=Website Referral LinkedIn Event ColdCall"`
	BudgetRange BudgetRange `json:"budgetRange,omitempty" validate:"omitempty,oneof=<1L 1-5L 5-10L >10L"`
	Probability *int        `json:"probability,omitempty" validate:"omitempty,min=0,max=100"`
	DealValue   float64     `json:"dealValue" validate:"gte=0"`
	OnHold      *bool       `json:"onHold,omitempty"`
	Notes       string      `json:"notes,omitempty"`
}

type UpdateLeadStageRequest struct {
	Stage LeadStage `json:"stage" validate:"required,oneof=New Contacted Qualified Proposal Won Lost"`
}

type CreateActivityRequest struct {
	Type     ActivityType    `json:"type" validate:"required,oneof=Call Email Meeting WhatsApp Demo"`
	Outcome  ActivityOutcome `json:"outcome" validate:"required,oneof=Interested FollowUpRequired NoResponse NotInterested"`
	DateTime *time.Time      `json:"dateTime,omitempty"`
	Notes    string          `json:"notes,omitempty"`
}

// ActivityLoggedDTO is returned after logging an activity; Lead carries the rescored lead
type ActivityLoggedDTO struct {
	Activity ActivityDTO `json:"activity"`
	Lead     LeadDTO     `json:"lead"`
}

// TokenDTO is a signed bearer token for a user
type TokenDTO struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

type UpsertUserRequest struct {
	Email    string   `json:"email" validate:"required,email,max=255"`
	Name     string   `json:"name" validate:"max=200"`
	Role     UserRole `json:"role" validate:"required,oneof=Admin Sales"`
	IsActive *bool    `json:"isActive,omitempty"`
}

type IssueTokenRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	TTLHours int    `json:"ttlHours,omitempty" validate:"omitempty,min=1,max=720"`
}
