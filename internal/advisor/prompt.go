package advisor

import (
	"fmt"
	"strings"
	"time"

	"alpha-squeeze/internal/domain"
)

const analystBrief = `You are a market structure analyst writing a short pre-open brief for a Taiwan equities desk.
You interpret squeeze scores and convertible bond redemption trackers; you do not generate new signals.

Rules:
- Only use the data below. Never fabricate tickers, scores or prices.
- Lead with the highest scoring squeeze candidates and the factor driving each.
- Call out every convertible bond at WARNING or CRITICAL and how many trigger days remain.
- Keep it under 200 words, plain text, no disclaimers.
- If a section has no data, say so in one line.`

func BuildSystemPrompt(date time.Time, marketContext string) string {
	var sb strings.Builder
	sb.WriteString(analystBrief)
	sb.WriteString("\n\n--- DATA FOR ")
	sb.WriteString(date.Format(domain.DateLayout))
	sb.WriteString(" ---\n")
	sb.WriteString(marketContext)
	return sb.String()
}

func FormatMarketContext(candidates []domain.SqueezeSignal, warnings []domain.TriggerTrackingRecord, summary domain.WarningSummary) string {
	var sb strings.Builder

	if len(candidates) > 0 {
		sb.WriteString("\nSqueeze Candidates:\n")
		for _, c := range candidates {
			sb.WriteString(fmt.Sprintf("  %s score=%d %s borrow=%.1f gamma=%.1f margin=%.1f momentum=%.1f\n",
				c.Ticker, c.Score, c.Trend,
				c.Factors.Borrow, c.Factors.Gamma, c.Factors.Margin, c.Factors.Momentum))
		}
	}

	if len(warnings) > 0 {
		sb.WriteString("\nCB Redemption Warnings:\n")
		for _, r := range warnings {
			sb.WriteString(fmt.Sprintf("  %s (%s) %s days=%d remaining=%d ratio=%.1f%% pressure=%.0f\n",
				r.BondTicker, r.UnderlyingTicker, r.WarningLevel,
				r.ConsecutiveDaysAbove, r.DaysRemaining, r.PriceRatio, r.RedemptionScore))
		}
	}

	if summary.TotalCount > 0 {
		sb.WriteString(fmt.Sprintf("\nTracked bonds: %d (critical %d, warning %d, caution %d, safe %d)\n",
			summary.TotalCount, summary.CriticalCount, summary.WarningCount, summary.CautionCount, summary.SafeCount))
	}

	if sb.Len() == 0 {
		return "No market data currently available."
	}
	return sb.String()
}

// HeuristicBrief phrases the same data without a language model.
func HeuristicBrief(date time.Time, candidates []domain.SqueezeSignal, warnings []domain.TriggerTrackingRecord, summary domain.WarningSummary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Brief for %s.", date.Format(domain.DateLayout)))

	if len(candidates) == 0 {
		sb.WriteString(" No squeeze candidates met the threshold.")
	} else {
		sb.WriteString(fmt.Sprintf(" %d squeeze candidate(s):", len(candidates)))
		for i, c := range candidates {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(fmt.Sprintf(" %s (%d)", c.Ticker, c.Score))
		}
		sb.WriteString(".")
	}

	if len(warnings) == 0 {
		sb.WriteString(" No convertible bonds near redemption.")
	} else {
		for _, r := range warnings {
			if !r.WarningLevel.AtLeast(domain.WarningWarning) {
				continue
			}
			sb.WriteString(fmt.Sprintf(" %s is %s with %d trigger day(s) left.", r.BondTicker, r.WarningLevel, r.DaysRemaining))
		}
	}

	if summary.TotalCount > 0 {
		sb.WriteString(fmt.Sprintf(" Tracking %d bonds, %d critical.", summary.TotalCount, summary.CriticalCount))
	}
	return sb.String()
}
