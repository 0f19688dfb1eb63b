package trigger

import (
	"testing"
	"time"

	"alpha-squeeze/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC)

func tsmcBond() domain.ConvertibleBond {
	return domain.ConvertibleBond{
		BondTicker:          "23301",
		UnderlyingTicker:    "2330",
		ConversionPrice:     850,
		TriggerPercent:      130,
		TriggerDaysRequired: 30,
		OutstandingBalance:  35,
		TotalIssued:         50,
	}
}

func TestTransitionInclusiveTrigger(t *testing.T) {
	rec := NewTracker().Transition(TriggerInput{Bond: tsmcBond(), TradeDate: day, UnderlyingClose: 1105}, PriorState{})

	assert.Equal(t, 130.0, rec.PriceRatio)
	assert.True(t, rec.IsAboveTrigger)
	assert.Equal(t, 1, rec.ConsecutiveDaysAbove)
	assert.Equal(t, 29, rec.DaysRemaining)
	assert.Equal(t, domain.WarningSafe, rec.WarningLevel)
	assert.Equal(t, "2330", rec.UnderlyingTicker)
	assert.Equal(t, day, rec.TradeDate)
}

func TestTransitionJustBelowTrigger(t *testing.T) {
	for _, prior := range []int{12, 29} {
		rec := NewTracker().Transition(TriggerInput{Bond: tsmcBond(), TradeDate: day, UnderlyingClose: 1104.9}, PriorState{ConsecutiveDaysAbove: prior, Found: true})

		assert.False(t, rec.IsAboveTrigger, "prior %d", prior)
		assert.Equal(t, 0, rec.ConsecutiveDaysAbove, "prior %d", prior)
		assert.Equal(t, 30, rec.DaysRemaining, "prior %d", prior)
		assert.Equal(t, 0.0, rec.TriggerProgress, "prior %d", prior)
		assert.Equal(t, domain.WarningSafe, rec.WarningLevel, "prior %d", prior)
	}
}

func TestTransitionReachesCritical(t *testing.T) {
	rec := NewTracker().Transition(TriggerInput{Bond: tsmcBond(), TradeDate: day, UnderlyingClose: 1200}, PriorState{ConsecutiveDaysAbove: 29, Found: true})

	assert.Equal(t, 30, rec.ConsecutiveDaysAbove)
	assert.Equal(t, 0, rec.DaysRemaining)
	assert.Equal(t, 100.0, rec.TriggerProgress)
	assert.Equal(t, domain.WarningCritical, rec.WarningLevel)
	assert.Equal(t, 100.0, rec.RedemptionScore)
	assert.Contains(t, rec.Comment, "redemption threshold reached")
}

func TestTransitionKeepsCounterWithoutReset(t *testing.T) {
	tr := NewTracker()
	tr.ResetOnBelow = false
	rec := tr.Transition(TriggerInput{Bond: tsmcBond(), TradeDate: day, UnderlyingClose: 900}, PriorState{ConsecutiveDaysAbove: 21, Found: true})

	assert.False(t, rec.IsAboveTrigger)
	assert.Equal(t, 21, rec.ConsecutiveDaysAbove)
	assert.Equal(t, domain.WarningWarning, rec.WarningLevel)
}

func TestTransitionProgressCapped(t *testing.T) {
	rec := NewTracker().Transition(TriggerInput{Bond: tsmcBond(), TradeDate: day, UnderlyingClose: 1300}, PriorState{ConsecutiveDaysAbove: 44, Found: true})

	assert.Equal(t, 45, rec.ConsecutiveDaysAbove)
	assert.Equal(t, 100.0, rec.TriggerProgress)
	assert.Equal(t, 0, rec.DaysRemaining)
}

func TestTransitionDefaultsForMissingTerms(t *testing.T) {
	bond := tsmcBond()
	bond.TriggerPercent = 0
	bond.TriggerDaysRequired = 0

	rec := NewTracker().Transition(TriggerInput{Bond: bond, TradeDate: day, UnderlyingClose: 1105}, PriorState{ConsecutiveDaysAbove: 9, Found: true})

	assert.True(t, rec.IsAboveTrigger)
	assert.Equal(t, 10, rec.ConsecutiveDaysAbove)
	assert.Equal(t, 20, rec.DaysRemaining)
	assert.Equal(t, domain.WarningCaution, rec.WarningLevel)
}

func TestTransitionZeroConversionPrice(t *testing.T) {
	bond := tsmcBond()
	bond.ConversionPrice = 0

	rec := NewTracker().Transition(TriggerInput{Bond: bond, TradeDate: day, UnderlyingClose: 1105}, PriorState{ConsecutiveDaysAbove: 5, Found: true})

	assert.Equal(t, 0.0, rec.PriceRatio)
	assert.False(t, rec.IsAboveTrigger)
	assert.Equal(t, 0, rec.ConsecutiveDaysAbove)
}

func TestTransitionBalanceChange(t *testing.T) {
	in := TriggerInput{Bond: tsmcBond(), TradeDate: day, UnderlyingClose: 1000}

	withPrior := NewTracker().Transition(in, PriorState{OutstandingBalance: 40, Found: true})
	assert.Equal(t, -12.5, withPrior.BalanceChangePercent)

	noPrior := NewTracker().Transition(in, PriorState{})
	assert.Equal(t, 0.0, noPrior.BalanceChangePercent)
}

func TestTransitionIsIdempotent(t *testing.T) {
	in := TriggerInput{Bond: tsmcBond(), TradeDate: day, UnderlyingClose: 1150}
	prior := PriorState{ConsecutiveDaysAbove: 17, OutstandingBalance: 36, Found: true}
	tr := NewTracker()

	assert.Equal(t, tr.Transition(in, prior), tr.Transition(in, prior))
}

func TestLevelBoundaries(t *testing.T) {
	tr := NewTracker()
	cases := []struct {
		days int
		want domain.WarningLevel
	}{
		{0, domain.WarningSafe},
		{9, domain.WarningSafe},
		{10, domain.WarningCaution},
		{19, domain.WarningCaution},
		{20, domain.WarningWarning},
		{29, domain.WarningWarning},
		{30, domain.WarningCritical},
		{31, domain.WarningCritical},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, tr.Level(c.days, 30), "days=%d", c.days)
	}

	// ceil(0.33*10)=4, ceil(0.66*10)=7
	assert.Equal(t, domain.WarningSafe, tr.Level(3, 10))
	assert.Equal(t, domain.WarningCaution, tr.Level(4, 10))
	assert.Equal(t, domain.WarningWarning, tr.Level(7, 10))
}

func TestSequenceAcrossDays(t *testing.T) {
	tr := NewTracker()
	closes := []float64{1110, 1120, 1000, 1106, 1107, 1108}
	wantDays := []int{1, 2, 0, 1, 2, 3}

	prior := PriorState{}
	for i, c := range closes {
		rec := tr.Transition(TriggerInput{Bond: tsmcBond(), TradeDate: day.AddDate(0, 0, i), UnderlyingClose: c}, prior)
		require.Equal(t, wantDays[i], rec.ConsecutiveDaysAbove, "day %d", i)
		prior = PriorFromRecord(rec)
	}
}
