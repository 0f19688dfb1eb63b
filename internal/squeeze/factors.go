package squeeze

import "math"

// NeutralScore is returned by the volatility and momentum factors when inputs are insufficient.
const NeutralScore = 50.0

const divergenceGain = 166.7

// BorrowScore scores the day's lending-balance change against the cross-section.
// percentile is the change's rank among all tracked instruments for the date, in [0,1].
// Net new shorting maps to [0,40] and covering maps to [50,100]; the more unusual the
// move relative to peers, the further it sits from the neutral band.
func BorrowScore(change, percentile float64) float64 {
	if math.IsNaN(change) || math.IsInf(change, 0) {
		return 0
	}
	p := clamp(percentile, 0, 1)
	if change >= 0 {
		return clamp(40*(1-p), 0, 40)
	}
	return clamp(50+50*(1-p), 50, 100)
}

// VolatilityScore scores implied vs historical volatility divergence.
// IV below HV biases the score upward.
func VolatilityScore(iv, hv float64) float64 {
	if !(iv > 0) || !(hv > 0) || math.IsInf(iv, 0) || math.IsInf(hv, 0) {
		return NeutralScore
	}
	divergence := (hv - iv) / hv
	return clamp(50+divergence*divergenceGain, 0, 100)
}

// CrowdingScore maps the margin-to-short ratio (%) onto piecewise-linear tiers.
func CrowdingScore(ratio float64) float64 {
	if math.IsNaN(ratio) || ratio <= 0 {
		return 0
	}
	var score float64
	switch {
	case ratio >= 30:
		score = 100
	case ratio >= 20:
		score = 85 + (ratio-20)*1.5
	case ratio >= 10:
		score = 60 + (ratio-10)*2.5
	case ratio >= 5:
		score = 35 + (ratio-5)*5
	default:
		score = ratio * 7
	}
	return clamp(score, 0, 100)
}

// MomentumInput carries the price/volume context for one instrument-day.
// High20D is optional; zero disables the breakout bonus.
type MomentumInput struct {
	Close        float64
	PrevClose    float64
	Volume       float64
	AvgVolume20D float64
	High20D      float64
}

func MomentumScore(in MomentumInput) float64 {
	if !(in.PrevClose > 0) || !(in.AvgVolume20D > 0) {
		return NeutralScore
	}
	pctChange := (in.Close - in.PrevClose) / in.PrevClose
	priceScore := 50 + clamp(pctChange*500, -25, 25)

	bonus := 0.0
	if in.High20D > 0 && in.Close > in.High20D {
		bonus = 10
	}
	return clamp(priceScore*volumeMultiplier(in.Volume/in.AvgVolume20D)+bonus, 0, 100)
}

func volumeMultiplier(ratio float64) float64 {
	switch {
	case ratio >= 3.0:
		return 1.3
	case ratio >= 2.0:
		return 1.2
	case ratio >= 1.5:
		return 1.1
	case ratio >= 1.0:
		return 1.0
	default:
		return 0.9
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
