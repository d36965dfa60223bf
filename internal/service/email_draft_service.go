package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/ai"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/mail"
	"github.com/straye-as/pipeline-api/internal/metrics"
	"github.com/straye-as/pipeline-api/internal/repository"
	"go.uber.org/zap"
)

const draftSystemPrompt = `You write short, friendly B2B sales follow-up emails.
Reply with a JSON object of the form {"subject": "...", "body": "..."} and nothing else.
The body is plain text, at most 150 words, and ends with a clear next step.`

// EmailDraft is a proposed follow-up email
type EmailDraft struct {
	Subject   string
	Body      string
	Generated bool
}

// EmailDraftService proposes and sends follow-up emails for leads.
// Drafting never fails: when the model is unavailable or answers badly the
// draft is built from a template.
type EmailDraftService struct {
	leadRepo     *repository.LeadRepository
	activityRepo *repository.ActivityRepository
	completer    ai.Completer
	sender       mail.Sender
	logger       *zap.Logger
}

// NewEmailDraftService creates the service. completer may be nil.
func NewEmailDraftService(
	leadRepo *repository.LeadRepository,
	activityRepo *repository.ActivityRepository,
	completer ai.Completer,
	sender mail.Sender,
	logger *zap.Logger,
) *EmailDraftService {
	return &EmailDraftService{
		leadRepo:     leadRepo,
		activityRepo: activityRepo,
		completer:    completer,
		sender:       sender,
		logger:       logger,
	}
}

// Draft proposes a follow-up for lead. lastActivity is the most recent
// interaction, or nil when there is none.
func (s *EmailDraftService) Draft(ctx context.Context, lead *domain.Lead, lastActivity *domain.Activity) EmailDraft {
	if s.completer == nil {
		return fallbackDraft(lead)
	}

	answer, err := s.completer.Complete(ctx, draftSystemPrompt, draftPrompt(lead, lastActivity))
	if err != nil {
		s.logger.Warn("email drafting failed, using template",
			zap.String("lead_id", lead.ID.String()),
			zap.Error(err))
		return fallbackDraft(lead)
	}

	draft, err := parseDraft(answer)
	if err != nil {
		s.logger.Warn("unusable email draft, using template",
			zap.String("lead_id", lead.ID.String()),
			zap.Error(err))
		return fallbackDraft(lead)
	}
	return draft
}

// DraftForLead drafts a follow-up for a visible lead using its latest activity
func (s *EmailDraftService) DraftForLead(ctx context.Context, leadID uuid.UUID) (*domain.EmailDraftDTO, error) {
	lead, err := getVisibleLead(ctx, s.leadRepo, leadID)
	if err != nil {
		return nil, err
	}

	activities, err := s.activityRepo.ListByLead(ctx, leadID, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest activity: %w", err)
	}
	var last *domain.Activity
	if len(activities) > 0 {
		last = &activities[0]
	}

	draft := s.Draft(ctx, lead, last)
	metrics.RecordEmailDraft(draft.Generated)

	return &domain.EmailDraftDTO{
		LeadID:    lead.ID,
		To:        lead.Email,
		Subject:   draft.Subject,
		Body:      draft.Body,
		Generated: draft.Generated,
	}, nil
}

// SendFollowUp drafts a follow-up and mails it to the lead
func (s *EmailDraftService) SendFollowUp(ctx context.Context, leadID uuid.UUID) (*domain.EmailDraftDTO, error) {
	dto, err := s.DraftForLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if dto.To == "" {
		return nil, fmt.Errorf("%w: lead has no email address", ErrInvalidInput)
	}

	if err := s.sender.Send(ctx, dto.To, dto.Subject, dto.Body); err != nil {
		if errors.Is(err, mail.ErrDisabled) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("failed to send follow-up: %w", err)
	}
	return dto, nil
}

func draftPrompt(lead *domain.Lead, last *domain.Activity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Contact name: %s\n", lead.Name)
	if lead.CompanyName != "" {
		fmt.Fprintf(&b, "Company: %s\n", lead.CompanyName)
	}
	if lead.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n", lead.Industry)
	}
	if lead.BudgetRange != "" {
		fmt.Fprintf(&b, "Budget range: %s (L = lakh INR)\n", lead.BudgetRange)
	}
	fmt.Fprintf(&b, "Pipeline stage: %s\n", lead.Stage)
	if last != nil {
		fmt.Fprintf(&b, "Last interaction: %s on %s, outcome %s\n",
			last.Type, last.DateTime.UTC().Format("2 January 2006"), last.Outcome)
		if last.Notes != "" {
			fmt.Fprintf(&b, "Notes from last interaction: %s\n", last.Notes)
		}
	} else {
		b.WriteString("No interaction has been logged yet.\n")
	}
	b.WriteString("Write the follow-up email.")
	return b.String()
}

func parseDraft(answer string) (EmailDraft, error) {
	answer = strings.TrimSpace(answer)
	answer = strings.TrimPrefix(answer, "```json")
	answer = strings.TrimPrefix(answer, "```")
	answer = strings.TrimSuffix(answer, "```")

	var payload struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(answer)), &payload); err != nil {
		return EmailDraft{}, fmt.Errorf("draft is not valid JSON: %w", err)
	}

	subject := strings.TrimSpace(payload.Subject)
	body := strings.TrimSpace(payload.Body)
	if subject == "" || body == "" {
		return EmailDraft{}, errors.New("draft is missing a subject or body")
	}
	return EmailDraft{Subject: subject, Body: body, Generated: true}, nil
}

// fallbackDraft builds a deterministic follow-up from the lead's own fields
func fallbackDraft(lead *domain.Lead) EmailDraft {
	company := lead.CompanyName
	if company == "" {
		company = lead.Name
	}

	greeting := "Hi there,"
	if lead.Name != "" {
		greeting = fmt.Sprintf("Hi %s,", lead.Name)
	}

	about := company
	if lead.Industry != "" {
		about = fmt.Sprintf("%s in the %s space", company, lead.Industry)
	}

	budgetLine := "We would be glad to put together a proposal tailored to your needs."
	if lead.BudgetRange != "" {
		budgetLine = fmt.Sprintf("Based on the %s budget range you shared, we can put together a proposal that fits.", lead.BudgetRange)
	}

	body := strings.Join([]string{
		greeting,
		"",
		fmt.Sprintf("Thank you for your time so far. I wanted to follow up on how we can support %s.", about),
		"",
		budgetLine,
		"",
		"Would you be available for a short call this week to discuss next steps?",
		"",
		"Best regards",
	}, "\n")

	return EmailDraft{
		Subject:   fmt.Sprintf("Following up: next steps for %s", company),
		Body:      body,
		Generated: false,
	}
}
