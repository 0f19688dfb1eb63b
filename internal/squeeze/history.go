package squeeze

import (
	"math"
	"sort"

	"alpha-squeeze/internal/domain"
)

// MomentumWindow is the number of prior sessions used for average volume and the breakout high.
const MomentumWindow = 20

// PercentileRanks returns each value's rank among values as the share of the other values
// strictly below it, in [0,1]. A lone value ranks 0.5. NaN values rank 0.5.
func PercentileRanks(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	if len(values) == 1 {
		out[0] = 0.5
		return out
	}

	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	sort.Float64s(sorted)
	denom := float64(len(sorted) - 1)

	for i, v := range values {
		if math.IsNaN(v) || denom <= 0 {
			out[i] = 0.5
			continue
		}
		below := sort.SearchFloat64s(sorted, v)
		out[i] = float64(below) / denom
	}
	return out
}

// MomentumInputFromHistory derives the momentum context for today from prior sessions.
// history must be ordered newest first and contain only sessions before today.
func MomentumInputFromHistory(today domain.InstrumentDailyMetric, history domain.MetricHistory) MomentumInput {
	in := MomentumInput{
		Close:  today.Close,
		Volume: float64(today.Volume),
	}
	if len(history) == 0 {
		return in
	}
	in.PrevClose = history[0].Close

	window := history
	if len(window) > MomentumWindow {
		window = window[:MomentumWindow]
	}
	var totalVolume float64
	for _, row := range window {
		totalVolume += float64(row.Volume)
		if row.High > in.High20D {
			in.High20D = row.High
		}
	}
	in.AvgVolume20D = totalVolume / float64(len(window))
	return in
}
