package feed

import (
	"marketshm/internal/indicator"
	"marketshm/internal/model/enum"
)

// indicatorStats returns every stat, zero where the window is still too
// short, so stale values from a previous run never linger.
func indicatorStats(closes []float64) map[enum.Stat]float64 {
	stats := indicator.Compute(closes)
	for _, stat := range enum.Stats() {
		if _, ok := stats[stat]; !ok {
			stats[stat] = 0
		}
	}
	return stats
}
