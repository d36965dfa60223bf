package pipeline

import (
	"sort"

	"github.com/straye-as/pipeline-api/internal/domain"
)

// PeriodLayout formats a lead's creation time into its revenue period key
const PeriodLayout = "2006-01"

// FunnelRow is the number of leads currently in a funnel stage
type FunnelRow struct {
	Stage domain.LeadStage `json:"stage"`
	Count int              `json:"count"`
}

// RevenueRow is the expected and closed revenue for one calendar month
type RevenueRow struct {
	Period        string  `json:"period"`
	ExpectedTotal float64 `json:"expectedTotal"`
	ClosedTotal   float64 `json:"closedTotal"`
}

// LeaderboardRow is the pipeline rollup for one lead owner
type LeaderboardRow struct {
	Owner         string  `json:"owner"`
	OwnerName     string  `json:"ownerName,omitempty"`
	LeadCount     int     `json:"leadCount"`
	PipelineValue float64 `json:"pipelineValue"`
	WonCount      int     `json:"wonCount"`
}

// ConversionRow is the win rate for one lead source
type ConversionRow struct {
	Source         domain.LeadSource `json:"source"`
	WinRatePercent float64           `json:"winRatePercent"`
	TotalCount     int               `json:"totalCount"`
}

// Funnel counts leads per forward stage. The result always has one row per
// entry in domain.FunnelStages, in that order; Lost leads are not counted.
func Funnel(leads []domain.Lead) []FunnelRow {
	counts := make(map[domain.LeadStage]int, len(domain.FunnelStages))
	for _, lead := range leads {
		counts[lead.Stage]++
	}

	rows := make([]FunnelRow, len(domain.FunnelStages))
	for i, stage := range domain.FunnelStages {
		rows[i] = FunnelRow{Stage: stage, Count: counts[stage]}
	}
	return rows
}

// RevenueTrend groups leads by the month they were created in. ExpectedTotal
// sums expected value over every lead of the month, ClosedTotal sums deal value
// over the won ones. Rows are sorted by period ascending.
//
// Won leads are bucketed by creation month since leads carry no close date.
func RevenueTrend(leads []domain.Lead) []RevenueRow {
	index := make(map[string]int)
	rows := make([]RevenueRow, 0)

	for _, lead := range leads {
		period := lead.CreatedAt.UTC().Format(PeriodLayout)
		i, ok := index[period]
		if !ok {
			i = len(rows)
			index[period] = i
			rows = append(rows, RevenueRow{Period: period})
		}

		rows[i].ExpectedTotal += lead.ExpectedValue
		if lead.Status == domain.LeadStatusWon {
			rows[i].ClosedTotal += lead.DealValue
		}
	}

	for i := range rows {
		rows[i].ExpectedTotal = roundCents(rows[i].ExpectedTotal)
		rows[i].ClosedTotal = roundCents(rows[i].ClosedTotal)
	}

	// Keys are year first and zero padded, so string order is calendar order
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Period < rows[j].Period
	})
	return rows
}

// Leaderboard rolls leads up per owner. PipelineValue is the expected value of
// every owned lead, open or closed. Rows are sorted by PipelineValue
// descending; owners with equal value keep the order they were first seen in.
func Leaderboard(leads []domain.Lead) []LeaderboardRow {
	index := make(map[string]int)
	rows := make([]LeaderboardRow, 0)

	for _, lead := range leads {
		i, ok := index[lead.LeadOwner]
		if !ok {
			i = len(rows)
			index[lead.LeadOwner] = i
			rows = append(rows, LeaderboardRow{Owner: lead.LeadOwner})
		}

		rows[i].LeadCount++
		rows[i].PipelineValue += lead.ExpectedValue
		if lead.Status == domain.LeadStatusWon {
			rows[i].WonCount++
		}
	}

	for i := range rows {
		rows[i].PipelineValue = roundCents(rows[i].PipelineValue)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].PipelineValue > rows[j].PipelineValue
	})
	return rows
}

// WithDisplayNames returns a copy of rows with OwnerName filled from users.
// Owners without a matching user are labelled with their owner key.
func WithDisplayNames(rows []LeaderboardRow, users []domain.User) []LeaderboardRow {
	names := make(map[string]string, len(users))
	for i := range users {
		names[users[i].Email] = users[i].DisplayName()
	}

	named := make([]LeaderboardRow, len(rows))
	for i, row := range rows {
		row.OwnerName = row.Owner
		if name, ok := names[row.Owner]; ok {
			row.OwnerName = name
		}
		named[i] = row
	}
	return named
}

// SourceConversion computes the win rate per lead source, in the order the
// sources first appear. Only sources present in leads produce a row.
func SourceConversion(leads []domain.Lead) []ConversionRow {
	type tally struct {
		total int
		won   int
	}

	index := make(map[domain.LeadSource]int)
	sources := make([]domain.LeadSource, 0)
	tallies := make([]tally, 0)

	for _, lead := range leads {
		i, ok := index[lead.Source]
		if !ok {
			i = len(sources)
			index[lead.Source] = i
			sources = append(sources, lead.Source)
			tallies = append(tallies, tally{})
		}

		tallies[i].total++
		if lead.Status == domain.LeadStatusWon {
			tallies[i].won++
		}
	}

	rows := make([]ConversionRow, len(sources))
	for i, source := range sources {
		rows[i] = ConversionRow{
			Source:         source,
			WinRatePercent: winRatePercent(tallies[i].won, tallies[i].total),
			TotalCount:     tallies[i].total,
		}
	}
	return rows
}

// winRatePercent returns won/total as a percentage rounded half away from zero
// to one decimal. The rounding is done on integer tenths so the result is exact.
func winRatePercent(won, total int) float64 {
	if total <= 0 {
		return 0
	}
	tenths := (won*2000 + total) / (2 * total)
	return float64(tenths) / 10
}
