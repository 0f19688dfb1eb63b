package trigger

import (
	"fmt"
	"math"
	"time"

	"alpha-squeeze/internal/domain"
)

const (
	DefaultCautionFraction = 0.33
	DefaultWarningFraction = 0.66

	// ratioEpsilon absorbs float noise so a close exactly at the trigger price counts as above.
	ratioEpsilon = 1e-9
)

// Tracker advances a bond's consecutive-days-above-trigger counter by one trading day.
// It holds no state between calls; the previous day's counter is passed in explicitly.
type Tracker struct {
	ResetOnBelow    bool
	CautionFraction float64
	WarningFraction float64
}

func NewTracker() Tracker {
	return Tracker{
		ResetOnBelow:    true,
		CautionFraction: DefaultCautionFraction,
		WarningFraction: DefaultWarningFraction,
	}
}

// TriggerInput is one bond's observation for a trading day.
type TriggerInput struct {
	Bond            domain.ConvertibleBond
	TradeDate       time.Time
	UnderlyingClose float64
}

// PriorState is the bond's most recent persisted record before the trading day.
// The zero value means no history.
type PriorState struct {
	ConsecutiveDaysAbove int
	OutstandingBalance   float64
	Found                bool
}

// PriorFromRecord extracts the carried-over state from a persisted record.
func PriorFromRecord(r domain.TriggerTrackingRecord) PriorState {
	return PriorState{
		ConsecutiveDaysAbove: r.ConsecutiveDaysAbove,
		OutstandingBalance:   r.OutstandingBalance,
		Found:                true,
	}
}

// Transition produces today's tracking record from today's close and the prior state.
// It is a pure function of its inputs.
func (t Tracker) Transition(in TriggerInput, prior PriorState) domain.TriggerTrackingRecord {
	bond := in.Bond
	triggerPct := bond.TriggerPercent
	if !(triggerPct > 0) {
		triggerPct = domain.DefaultTriggerPercent
	}
	required := bond.TriggerDaysRequired
	if required <= 0 {
		required = domain.DefaultTriggerDaysRequired
	}

	ratio := PriceRatio(in.UnderlyingClose, bond.ConversionPrice)
	above := bond.ConversionPrice > 0 && ratio >= triggerPct-ratioEpsilon

	days := max(prior.ConsecutiveDaysAbove, 0)
	switch {
	case above:
		days++
	case t.ResetOnBelow:
		days = 0
	}

	progress := math.Min(100, float64(days)/float64(required)*100)
	remaining := max(required-days, 0)
	level := t.Level(days, required)

	balanceChange := 0.0
	if prior.Found && prior.OutstandingBalance > 0 {
		balanceChange = (bond.OutstandingBalance - prior.OutstandingBalance) / prior.OutstandingBalance * 100
	}

	rec := domain.TriggerTrackingRecord{
		BondTicker:           bond.BondTicker,
		UnderlyingTicker:     bond.UnderlyingTicker,
		TradeDate:            domain.TruncateDate(in.TradeDate),
		UnderlyingClose:      in.UnderlyingClose,
		ConversionPrice:      bond.ConversionPrice,
		PriceRatio:           round2(ratio),
		IsAboveTrigger:       above,
		ConsecutiveDaysAbove: days,
		DaysRemaining:        remaining,
		TriggerProgress:      round2(progress),
		OutstandingBalance:   bond.OutstandingBalance,
		BalanceChangePercent: round2(balanceChange),
		WarningLevel:         level,
	}
	rec.RedemptionScore = RedemptionScore(RedemptionInput{
		PremiumRate:    PremiumRate(bond.BondPrice, in.UnderlyingClose, bond.ConversionPrice),
		HasPremium:     bond.BondPrice > 0 && bond.ConversionPrice > 0 && in.UnderlyingClose > 0,
		RemainingRatio: remainingRatio(bond),
		DaysAbove:      days,
		DaysRequired:   required,
	})
	rec.Comment = comment(rec, triggerPct)
	return rec
}

// Level maps a consecutive-days count onto a warning tier. Fractional boundaries round up
// to whole days, so with 30 required days Caution starts at 10 and Warning at 20.
func (t Tracker) Level(days, required int) domain.WarningLevel {
	if required <= 0 {
		required = domain.DefaultTriggerDaysRequired
	}
	caution, warning := t.CautionFraction, t.WarningFraction
	if !(caution > 0) {
		caution = DefaultCautionFraction
	}
	if !(warning > 0) {
		warning = DefaultWarningFraction
	}
	switch {
	case days >= required:
		return domain.WarningCritical
	case days >= boundary(warning, required):
		return domain.WarningWarning
	case days >= boundary(caution, required):
		return domain.WarningCaution
	default:
		return domain.WarningSafe
	}
}

// PriceRatio is close / conversion price in percent, 0 when the conversion price is not positive.
func PriceRatio(close, conversion float64) float64 {
	if !(conversion > 0) || math.IsNaN(close) {
		return 0
	}
	return close / conversion * 100
}

func boundary(fraction float64, required int) int {
	return int(math.Ceil(fraction*float64(required) - ratioEpsilon))
}

func remainingRatio(b domain.ConvertibleBond) float64 {
	if !(b.TotalIssued > 0) {
		return 0
	}
	return b.OutstandingBalance / b.TotalIssued
}

func comment(r domain.TriggerTrackingRecord, triggerPct float64) string {
	switch r.WarningLevel {
	case domain.WarningCritical:
		return fmt.Sprintf("redemption threshold reached: %d consecutive days at or above %.0f%% of conversion price, %.2f outstanding faces conversion pressure",
			r.ConsecutiveDaysAbove, triggerPct, r.OutstandingBalance)
	case domain.WarningWarning:
		return fmt.Sprintf("high alert: %d consecutive days, %d more trigger redemption, %.2f outstanding",
			r.ConsecutiveDaysAbove, r.DaysRemaining, r.OutstandingBalance)
	case domain.WarningCaution:
		return fmt.Sprintf("watch: %d consecutive days above trigger, price/conversion = %.1f%%",
			r.ConsecutiveDaysAbove, r.PriceRatio)
	default:
		return fmt.Sprintf("safe: price/conversion = %.1f%%, no near-term redemption risk", r.PriceRatio)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
