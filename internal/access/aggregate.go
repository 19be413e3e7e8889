package access

import (
	"math"

	"pollgate/internal/domain"
)

// Aggregate tallies disclosed results from the raw selection sets. The
// percentage denominator is the total number of selections, not the
// number of voters, so multi-select percentages do not sum to 100. That
// scoring choice is deliberate and must stay.
func Aggregate(options []string, selections [][]int) ([]domain.OptionResult, int, int) {
	counts := make([]int, len(options))
	totalSelections := 0

	for _, set := range selections {
		for _, idx := range set {
			if idx < 0 || idx >= len(counts) {
				// stored selections are validated at the boundary; skip
				// anything out of range rather than panic on bad rows
				continue
			}
			counts[idx]++
			totalSelections++
		}
	}

	results := make([]domain.OptionResult, len(options))
	for i, option := range options {
		pct := 0
		if totalSelections > 0 {
			pct = int(math.Round(float64(counts[i]) / float64(totalSelections) * 100))
		}
		results[i] = domain.OptionResult{
			Option:     option,
			Votes:      counts[i],
			Percentage: pct,
		}
	}

	return results, len(selections), totalSelections
}
