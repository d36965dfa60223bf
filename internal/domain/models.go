package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns a new ID when the caller did not set one
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// LeadSource represents the channel a lead came in through
type LeadSource string

const (
	LeadSourceWebsite  LeadSource = "Website"
	LeadSourceReferral LeadSource = "Referral"
	LeadSourceLinkedIn LeadSource = "LinkedIn"
	LeadSourceEvent    LeadSource = "Event"
	LeadSourceColdCall LeadSource = "ColdCall"
)

// BudgetRange represents the budget tier a lead has indicated (L = lakh)
type BudgetRange string

const (
	BudgetUnder1L BudgetRange = "<1L"
	Budget1To5L   BudgetRange = "1-5L"
	Budget5To10L  BudgetRange = "5-10L"
	BudgetOver10L BudgetRange = ">10L"
)

// LeadStage represents the pipeline phase of a lead
type LeadStage string

const (
	LeadStageNew       LeadStage = "New"
	LeadStageContacted LeadStage = "Contacted"
	LeadStageQualified LeadStage = "Qualified"
	LeadStageProposal  LeadStage = "Proposal"
	LeadStageWon       LeadStage = "Won"
	LeadStageLost      LeadStage = "Lost"
)

// FunnelStages lists the forward-moving stages in funnel order. Lost is not a funnel stage.
var FunnelStages = []LeadStage{
	LeadStageNew,
	LeadStageContacted,
	LeadStageQualified,
	LeadStageProposal,
	LeadStageWon,
}

// IsValid checks if the LeadStage is a valid enum value
func (s LeadStage) IsValid() bool {
	switch s {
	case LeadStageNew, LeadStageContacted, LeadStageQualified, LeadStageProposal, LeadStageWon, LeadStageLost:
		return true
	}
	return false
}

// LeadStatus represents the derived open/closed state of a lead
type LeadStatus string

const (
	LeadStatusOpen   LeadStatus = "Open"
	LeadStatusWon    LeadStatus = "Won"
	LeadStatusLost   LeadStatus = "Lost"
	LeadStatusOnHold LeadStatus = "OnHold"
)

// Lead represents a sales opportunity in the pipeline.
// Leads are treated as values: updates build a new Lead from the old one.
type Lead struct {
	BaseModel
	Name          string      `gorm:"type:varchar(200);not null;index"`
	CompanyName   string      `gorm:"type:varchar(200);column:company_name"`
	Email         string      `gorm:"type:varchar(255)"`
	Phone         string      `gorm:"type:varchar(50)"`
	Industry      string      `gorm:"type:varchar(100)"`
	LeadOwner     string      `gorm:"type:varchar(255);not null;index;column:lead_owner"`
	Source        LeadSource  `gorm:"type:varchar(50);not null;index"`
	BudgetRange   BudgetRange `gorm:"type:varchar(20);column:budget_range"`
	Stage         LeadStage   `gorm:"type:varchar(50);not null;index"`
	Status        LeadStatus  `gorm:"type:varchar(50);not null;index"`
	LeadScore     int         `gorm:"type:int;not null;default:0;column:lead_score"`
	Probability   int         `gorm:"type:int;not null;default:0"`
	DealValue     float64     `gorm:"type:decimal(15,2);not null;default:0;column:deal_value"`
	ExpectedValue float64     `gorm:"type:decimal(15,2);not null;default:0;column:expected_value"`
	Notes         string      `gorm:"type:text"`
}

// ActivityType represents the kind of interaction logged against a lead
type ActivityType string

const (
	ActivityTypeCall     ActivityType = "Call"
	ActivityTypeEmail    ActivityType = "Email"
	ActivityTypeMeeting  ActivityType = "Meeting"
	ActivityTypeWhatsApp ActivityType = "WhatsApp"
	ActivityTypeDemo     ActivityType = "Demo"
)

// ActivityOutcome represents the result of an interaction
type ActivityOutcome string

const (
	ActivityOutcomeInterested       ActivityOutcome = "Interested"
	ActivityOutcomeFollowUpRequired ActivityOutcome = "FollowUpRequired"
	ActivityOutcomeNoResponse       ActivityOutcome = "NoResponse"
	ActivityOutcomeNotInterested    ActivityOutcome = "NotInterested"
)

// Activity is a logged interaction against exactly one lead. Activities are immutable once created.
type Activity struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	LeadID    uuid.UUID       `gorm:"type:uuid;not null;index;column:lead_id"`
	Type      ActivityType    `gorm:"type:varchar(50);not null"`
	Outcome   ActivityOutcome `gorm:"type:varchar(50);not null"`
	DateTime  time.Time       `gorm:"not null;index;column:date_time"`
	Notes     string          `gorm:"type:text"`
	CreatedBy string          `gorm:"type:varchar(255);not null;column:created_by"`
	CreatedAt time.Time       `gorm:"not null"`
}

// BeforeCreate assigns a new ID when the caller did not set one
func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// UserRole represents what a user is allowed to see
type UserRole string

const (
	UserRoleAdmin UserRole = "Admin"
	UserRoleSales UserRole = "Sales"
)

// User is a territory holder. Email is the key stored in Lead.LeadOwner and Activity.CreatedBy.
type User struct {
	BaseModel
	Email    string   `gorm:"type:varchar(255);not null;uniqueIndex"`
	Name     string   `gorm:"type:varchar(200);not null"`
	Role     UserRole `gorm:"type:varchar(20);not null;default:'Sales'"`
	IsActive bool     `gorm:"not null;column:is_active"`
}

// DisplayName returns the user's name, or the email when no name is set
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
