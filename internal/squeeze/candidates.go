package squeeze

import (
	"sort"

	"alpha-squeeze/internal/domain"
)

// TopCandidates keeps signals scoring at least minScore, highest first, capped at limit.
// Degraded signals are never candidates. A limit <= 0 returns every match.
func TopCandidates(signals []domain.SqueezeSignal, minScore, limit int) []domain.SqueezeSignal {
	out := make([]domain.SqueezeSignal, 0, len(signals))
	for _, s := range signals {
		if s.Trend == domain.TrendDegraded || s.Score < minScore {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Ticker < out[j].Ticker
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
