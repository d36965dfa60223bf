package pipeline

import (
	"math"

	"github.com/straye-as/pipeline-api/internal/domain"
)

// Probabilities set when a lead enters a stage
const (
	probabilityWon       = 100
	probabilityLost      = 0
	probabilityProposal  = 70
	probabilityQualified = 40
)

// TransitionStage returns a copy of lead moved to stage. Status and
// probability are derived from the target stage and the expected value is
// recomputed from the resulting probability. Any stage may move to any other.
func TransitionStage(lead domain.Lead, stage domain.LeadStage) domain.Lead {
	next := lead
	next.Stage = stage

	switch stage {
	case domain.LeadStageWon:
		next.Probability = probabilityWon
		next.Status = domain.LeadStatusWon
	case domain.LeadStageLost:
		next.Probability = probabilityLost
		next.Status = domain.LeadStatusLost
	case domain.LeadStageProposal:
		next.Probability = probabilityProposal
		next.Status = domain.LeadStatusOpen
	case domain.LeadStageQualified:
		next.Probability = probabilityQualified
		next.Status = domain.LeadStatusOpen
	default:
		// New and Contacted keep the current probability
		next.Status = domain.LeadStatusOpen
	}

	next.ExpectedValue = ExpectedValue(next.DealValue, next.Probability)
	return next
}

// ExpectedValue returns dealValue * probability / 100 rounded to cents
func ExpectedValue(dealValue float64, probability int) float64 {
	// dealValue * probability is already expressed in hundredths
	return math.Round(dealValue*float64(probability)) / 100
}

// roundCents rounds a currency amount to two decimals
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
