package trigger

import (
	"sort"
	"time"

	"alpha-squeeze/internal/domain"
)

// FilterAtLeast keeps records at or above minLevel, longest streak first, capped at limit.
// A limit <= 0 returns every match.
func FilterAtLeast(records []domain.TriggerTrackingRecord, minLevel domain.WarningLevel, limit int) []domain.TriggerTrackingRecord {
	out := make([]domain.TriggerTrackingRecord, 0, len(records))
	for _, r := range records {
		if r.WarningLevel.AtLeast(minLevel) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ConsecutiveDaysAbove != out[j].ConsecutiveDaysAbove {
			return out[i].ConsecutiveDaysAbove > out[j].ConsecutiveDaysAbove
		}
		return out[i].BondTicker < out[j].BondTicker
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func Summarize(records []domain.TriggerTrackingRecord, tradeDate time.Time) domain.WarningSummary {
	s := domain.WarningSummary{
		TradeDate:  domain.TruncateDate(tradeDate),
		TotalCount: len(records),
	}
	for _, r := range records {
		switch r.WarningLevel {
		case domain.WarningCritical:
			s.CriticalCount++
		case domain.WarningWarning:
			s.WarningCount++
		case domain.WarningCaution:
			s.CautionCount++
		default:
			s.SafeCount++
		}
	}
	return s
}
