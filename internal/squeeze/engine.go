package squeeze

import (
	"fmt"
	"math"
	"strings"

	"alpha-squeeze/internal/domain"
)

// QualifierThreshold is the sub-score at which volatility or crowding earns a rationale qualifier.
const QualifierThreshold = 70.0

// EvaluationInput is everything the engine needs for one instrument-day.
type EvaluationInput struct {
	Metric           domain.InstrumentDailyMetric
	BorrowPercentile float64
	Momentum         MomentumInput
}

type factor struct {
	label        string
	score        float64
	contribution float64
}

// Evaluate combines the four factor scores into a squeeze signal. The weight config is
// assumed valid (see ValidateWeights); Evaluate never fails on numeric input.
func Evaluate(in EvaluationInput, w domain.WeightConfig) domain.SqueezeSignal {
	scores := domain.FactorScores{
		Borrow:   round2(BorrowScore(in.Metric.BorrowBalanceChange, in.BorrowPercentile)),
		Gamma:    round2(VolatilityScore(in.Metric.ImpliedVolatility, in.Metric.HistoricalVolatility20D)),
		Margin:   round2(CrowdingScore(in.Metric.MarginRatio)),
		Momentum: round2(MomentumScore(in.Momentum)),
	}

	score := Composite(scores, w)
	trend := Classify(score, w)

	return domain.SqueezeSignal{
		Ticker:        in.Metric.Ticker,
		TradeDate:     domain.TruncateDate(in.Metric.TradeDate),
		Factors:       scores,
		Score:         score,
		Trend:         trend,
		Rationale:     Rationale(scores, w, trend),
		ConfigVersion: w.Version,
	}
}

// Composite is round(sum of weight * sub-score), clamped to [0,100].
func Composite(s domain.FactorScores, w domain.WeightConfig) int {
	total := w.BorrowWeight*s.Borrow +
		w.GammaWeight*s.Gamma +
		w.MarginWeight*s.Margin +
		w.MomentumWeight*s.Momentum
	return int(clamp(math.Round(total), 0, 100))
}

func Classify(score int, w domain.WeightConfig) domain.Trend {
	s := float64(score)
	switch {
	case s >= w.BullishCutoff:
		return domain.TrendBullish
	case s <= w.BearishCutoff:
		return domain.TrendBearish
	default:
		return domain.TrendNeutral
	}
}

// Rationale names the factor contributing the most weighted points and appends
// qualifiers for strong volatility divergence and short crowding.
func Rationale(s domain.FactorScores, w domain.WeightConfig, trend domain.Trend) string {
	top := topFactor(s, w)

	var parts []string
	switch trend {
	case domain.TrendBullish:
		parts = append(parts, fmt.Sprintf("high squeeze potential led by %s (%.1f pts)", top.label, top.contribution))
	case domain.TrendBearish:
		parts = append(parts, fmt.Sprintf("low squeeze potential, %s contributes most (%.1f pts); stand aside", top.label, top.contribution))
	default:
		parts = append(parts, fmt.Sprintf("neutral signal, %s leads (%.1f pts); wait for confirmation", top.label, top.contribution))
	}
	if s.Gamma >= QualifierThreshold {
		parts = append(parts, "IV below HV, watch for a gamma squeeze")
	}
	if s.Margin >= QualifierThreshold {
		parts = append(parts, "crowded short book")
	}
	return strings.Join(parts, "; ")
}

// topFactor breaks ties in the fixed order borrow, gamma, margin, momentum.
func topFactor(s domain.FactorScores, w domain.WeightConfig) factor {
	factors := []factor{
		{label: "short covering", score: s.Borrow, contribution: w.BorrowWeight * s.Borrow},
		{label: "gamma compression", score: s.Gamma, contribution: w.GammaWeight * s.Gamma},
		{label: "short crowding", score: s.Margin, contribution: w.MarginWeight * s.Margin},
		{label: "price-volume momentum", score: s.Momentum, contribution: w.MomentumWeight * s.Momentum},
	}
	best := factors[0]
	for _, f := range factors[1:] {
		if f.contribution > best.contribution {
			best = f
		}
	}
	return best
}
