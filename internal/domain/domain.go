package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of a trading date.
const DateLayout = "2006-01-02"

// Trend is the three-way classification of a composite squeeze score.
// Degraded marks fallback output produced without the scoring core.
type Trend int

const (
	TrendDegraded Trend = iota
	TrendBearish
	TrendNeutral
	TrendBullish
)

var trendNames = map[Trend]string{
	TrendDegraded: "DEGRADED",
	TrendBearish:  "BEARISH",
	TrendNeutral:  "NEUTRAL",
	TrendBullish:  "BULLISH",
}

func (t Trend) String() string {
	if name, ok := trendNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Trend(%d)", int(t))
}

func (t Trend) IsValid() bool {
	return t >= TrendDegraded && t <= TrendBullish
}

func (t Trend) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid trend %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *Trend) UnmarshalText(b []byte) error {
	parsed, err := ParseTrend(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func ParseTrend(s string) (Trend, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for t, name := range trendNames {
		if name == s {
			return t, nil
		}
	}
	return TrendDegraded, fmt.Errorf("unknown trend %q", s)
}

// WarningLevel tiers the forced-redemption risk of a convertible bond.
// Levels are ordered: a higher value is a more severe level.
type WarningLevel int

const (
	WarningSafe WarningLevel = iota
	WarningCaution
	WarningWarning
	WarningCritical
)

var warningNames = map[WarningLevel]string{
	WarningSafe:     "SAFE",
	WarningCaution:  "CAUTION",
	WarningWarning:  "WARNING",
	WarningCritical: "CRITICAL",
}

func (l WarningLevel) String() string {
	if name, ok := warningNames[l]; ok {
		return name
	}
	return fmt.Sprintf("WarningLevel(%d)", int(l))
}

func (l WarningLevel) IsValid() bool {
	return l >= WarningSafe && l <= WarningCritical
}

// AtLeast reports whether l is as severe as min or more.
func (l WarningLevel) AtLeast(min WarningLevel) bool {
	return l >= min
}

func (l WarningLevel) MarshalText() ([]byte, error) {
	if !l.IsValid() {
		return nil, fmt.Errorf("invalid warning level %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *WarningLevel) UnmarshalText(b []byte) error {
	parsed, err := ParseWarningLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func ParseWarningLevel(s string) (WarningLevel, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for l, name := range warningNames {
		if name == s {
			return l, nil
		}
	}
	return WarningSafe, fmt.Errorf("unknown warning level %q", s)
}

// WarningLevels lists every level from least to most severe.
var WarningLevels = []WarningLevel{WarningSafe, WarningCaution, WarningWarning, WarningCritical}

// WeightConfig is an immutable, versioned set of factor weights and trend cutoffs.
// The four weights must sum to 1.0 and BearishCutoff must be below BullishCutoff.
type WeightConfig struct {
	BorrowWeight   float64 `json:"borrowWeight" yaml:"borrowWeight" validate:"gte=0,lte=1"`
	GammaWeight    float64 `json:"gammaWeight" yaml:"gammaWeight" validate:"gte=0,lte=1"`
	MarginWeight   float64 `json:"marginWeight" yaml:"marginWeight" validate:"gte=0,lte=1"`
	MomentumWeight float64 `json:"momentumWeight" yaml:"momentumWeight" validate:"gte=0,lte=1"`
	BullishCutoff  float64 `json:"bullishCutoff" yaml:"bullishCutoff" validate:"gte=0,lte=100"`
	BearishCutoff  float64 `json:"bearishCutoff" yaml:"bearishCutoff" validate:"gte=0,lte=100"`

	Version   int       `json:"version" yaml:"-"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"-"`
}

func DefaultWeightConfig() WeightConfig {
	return WeightConfig{
		BorrowWeight:   0.35,
		GammaWeight:    0.25,
		MarginWeight:   0.20,
		MomentumWeight: 0.20,
		BullishCutoff:  70,
		BearishCutoff:  40,
	}
}

// SameSettings compares the weights and cutoffs, ignoring version metadata.
func (w WeightConfig) SameSettings(o WeightConfig) bool {
	return w.BorrowWeight == o.BorrowWeight &&
		w.GammaWeight == o.GammaWeight &&
		w.MarginWeight == o.MarginWeight &&
		w.MomentumWeight == o.MomentumWeight &&
		w.BullishCutoff == o.BullishCutoff &&
		w.BearishCutoff == o.BearishCutoff
}

func (w WeightConfig) WeightSum() float64 {
	return w.BorrowWeight + w.GammaWeight + w.MarginWeight + w.MomentumWeight
}

// FactorScores holds the four 0-100 sub-scores of a squeeze signal.
type FactorScores struct {
	Borrow   float64 `json:"borrowScore"`
	Gamma    float64 `json:"gammaScore"`
	Margin   float64 `json:"marginScore"`
	Momentum float64 `json:"momentumScore"`
}

type SqueezeSignal struct {
	Ticker        string       `json:"ticker"`
	TradeDate     time.Time    `json:"tradeDate"`
	Factors       FactorScores `json:"factors"`
	Score         int          `json:"score"`
	Trend         Trend        `json:"trend"`
	Rationale     string       `json:"rationale"`
	ConfigVersion int          `json:"configVersion"`
}

type CandidateFilter struct {
	TradeDate time.Time
	MinScore  int
	Limit     int
}

type EvaluationRunResult struct {
	RunID           string    `json:"runId"`
	TradeDate       time.Time `json:"tradeDate"`
	ConfigVersion   int       `json:"configVersion"`
	SignalsWritten  int       `json:"signalsWritten"`
	TrackingWritten int       `json:"trackingWritten"`
	Skipped         []string  `json:"skipped,omitempty"`
	Errors          []string  `json:"errors,omitempty"`
}

// ParseDate parses a trading date in DateLayout and normalises it to UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid trade date %q: %w", s, err)
	}
	return d.UTC(), nil
}

func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
