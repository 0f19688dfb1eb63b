package trigger

import "math"

// RedemptionInput feeds the redemption-pressure score for one bond-day.
type RedemptionInput struct {
	PremiumRate    float64
	HasPremium     bool
	RemainingRatio float64
	DaysAbove      int
	DaysRequired   int
}

// PremiumRate is the bond price over its conversion parity, minus one, in percent.
// Parity is the value of converting 100 face: 100 * close / conversion price.
func PremiumRate(bondPrice, close, conversion float64) float64 {
	parity := PriceRatio(close, conversion)
	if !(parity > 0) || !(bondPrice > 0) {
		return 0
	}
	return (bondPrice/parity - 1) * 100
}

// RedemptionScore rates forced-conversion pressure on a 0-100 scale: premium up to 40
// points, share of the issue still outstanding up to 30 and progress toward the trigger
// up to 30. A bond that has already met the trigger scores 100.
func RedemptionScore(in RedemptionInput) float64 {
	required := in.DaysRequired
	if required <= 0 {
		required = 30
	}
	if in.DaysAbove >= required {
		return 100
	}
	return math.Min(100, premiumPoints(in)+remainingPoints(in.RemainingRatio)+daysPoints(in.DaysAbove, required))
}

// premiumPoints rewards discounts and thin premiums; conversion is attractive below parity.
func premiumPoints(in RedemptionInput) float64 {
	if !in.HasPremium || math.IsNaN(in.PremiumRate) {
		return 0
	}
	p := in.PremiumRate
	switch {
	case p < 0:
		return math.Min(40, -p*2)
	case p < 10:
		return 30 - p*2
	default:
		return math.Max(0, 20-p)
	}
}

func remainingPoints(ratio float64) float64 {
	switch {
	case ratio > 0.7:
		return 30
	case ratio > 0.5:
		return 25
	case ratio > 0.3:
		return 15
	default:
		return 5
	}
}

// daysPoints uses the 5/10/15/25-of-30 day steps, scaled to the bond's required days.
func daysPoints(days, required int) float64 {
	scaled := float64(days) * 30 / float64(required)
	switch {
	case scaled >= 25:
		return 30
	case scaled >= 15:
		return 25
	case scaled >= 10:
		return 15
	case scaled >= 5:
		return 8
	default:
		return 0
	}
}
