// Package pipeline holds the pure sales-pipeline rules: lead scoring, stage
// transitions and the reporting aggregations. Nothing in this package performs
// I/O or reads the clock, so every function is safe for concurrent use.
package pipeline

import (
	"sort"

	"github.com/straye-as/pipeline-api/internal/domain"
)

// MaxScore is the upper bound of a lead score
const MaxScore = 100

// Score points per rule
const (
	pointsReferral = 20
	pointsWebsite  = 10
	pointsColdCall = 5

	pointsBudgetOver10L = 30
	pointsBudget5To10L  = 20
	pointsBudget1To5L   = 10

	pointsInterested       = 20
	pointsFollowUpRequired = 10

	pointsVolumeBonus = 10
	// volumeBonusAfter is the activity count that must be exceeded for the bonus
	volumeBonusAfter = 3
)

// ScoreCard is a lead score split into its contributions
type ScoreCard struct {
	Source     int `json:"source"`
	Budget     int `json:"budget"`
	Engagement int `json:"engagement"`
	Volume     int `json:"volume"`
	Total      int `json:"total"`
}

// Score computes a lead score in [0, MaxScore].
// activities must belong to the lead and be ordered newest first; only the
// first one counts as the most recent interaction.
func Score(lead domain.Lead, activities []domain.Activity) int {
	return ScoreBreakdown(lead, activities).Total
}

// ScoreBreakdown computes the score and reports each contribution
func ScoreBreakdown(lead domain.Lead, activities []domain.Activity) ScoreCard {
	card := ScoreCard{
		Source: sourcePoints(lead.Source),
		Budget: budgetPoints(lead.BudgetRange),
	}
	if len(activities) > 0 {
		card.Engagement = engagementPoints(activities[0].Outcome)
	}
	if len(activities) > volumeBonusAfter {
		card.Volume = pointsVolumeBonus
	}

	card.Total = min(card.Source+card.Budget+card.Engagement+card.Volume, MaxScore)
	return card
}

// Unrecognised enum values score zero so that drift in upstream data never
// blocks scoring.

func sourcePoints(source domain.LeadSource) int {
	switch source {
	case domain.LeadSourceReferral:
		return pointsReferral
	case domain.LeadSourceWebsite:
		return pointsWebsite
	case domain.LeadSourceColdCall:
		return pointsColdCall
	default:
		return 0
	}
}

func budgetPoints(budget domain.BudgetRange) int {
	switch budget {
	case domain.BudgetOver10L:
		return pointsBudgetOver10L
	case domain.Budget5To10L:
		return pointsBudget5To10L
	case domain.Budget1To5L:
		return pointsBudget1To5L
	default:
		return 0
	}
}

func engagementPoints(outcome domain.ActivityOutcome) int {
	switch outcome {
	case domain.ActivityOutcomeInterested:
		return pointsInterested
	case domain.ActivityOutcomeFollowUpRequired:
		return pointsFollowUpRequired
	default:
		return 0
	}
}

// SortActivitiesNewestFirst returns a copy of activities ordered by DateTime
// descending. Activities with equal timestamps keep their input order.
func SortActivitiesNewestFirst(activities []domain.Activity) []domain.Activity {
	sorted := make([]domain.Activity, len(activities))
	copy(sorted, activities)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DateTime.After(sorted[j].DateTime)
	})
	return sorted
}
