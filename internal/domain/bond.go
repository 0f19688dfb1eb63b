package domain

import "time"

const (
	DefaultTriggerPercent      = 130.0
	DefaultTriggerDaysRequired = 30
)

// ConvertibleBond is long-lived issuance reference data for one convertible bond.
type ConvertibleBond struct {
	BondTicker          string    `json:"bondTicker"`
	UnderlyingTicker    string    `json:"underlyingTicker"`
	Name                string    `json:"name,omitempty"`
	ConversionPrice     float64   `json:"conversionPrice"`
	TriggerPercent      float64   `json:"triggerPercent"`
	TriggerDaysRequired int       `json:"triggerDaysRequired"`
	OutstandingBalance  float64   `json:"outstandingBalance"`
	TotalIssued         float64   `json:"totalIssued"`
	MaturityDate        time.Time `json:"maturityDate"`
	BondPrice           float64   `json:"bondPrice,omitempty"`
}

// TriggerTrackingRecord is one bond's redemption-trigger state for one trading day.
// ConsecutiveDaysAbove carries over from the previous trading day's record.
type TriggerTrackingRecord struct {
	BondTicker           string       `json:"bondTicker"`
	UnderlyingTicker     string       `json:"underlyingTicker"`
	TradeDate            time.Time    `json:"tradeDate"`
	UnderlyingClose      float64      `json:"underlyingClose"`
	ConversionPrice      float64      `json:"conversionPrice"`
	PriceRatio           float64      `json:"priceRatio"`
	IsAboveTrigger       bool         `json:"isAboveTrigger"`
	ConsecutiveDaysAbove int          `json:"consecutiveDaysAbove"`
	DaysRemaining        int          `json:"daysRemaining"`
	TriggerProgress      float64      `json:"triggerProgress"`
	OutstandingBalance   float64      `json:"outstandingBalance"`
	BalanceChangePercent float64      `json:"balanceChangePercent"`
	WarningLevel         WarningLevel `json:"warningLevel"`
	RedemptionScore      float64      `json:"redemptionScore"`
	Comment              string       `json:"comment"`
}

// WarningSummary counts tracking records per warning level for one date.
type WarningSummary struct {
	TradeDate     time.Time `json:"tradeDate"`
	TotalCount    int       `json:"totalCount"`
	CriticalCount int       `json:"criticalCount"`
	WarningCount  int       `json:"warningCount"`
	CautionCount  int       `json:"cautionCount"`
	SafeCount     int       `json:"safeCount"`
}
