package domain

import "time"

// InstrumentDailyMetric is one instrument's market and lending indicators for a trading day.
// Rows are immutable; re-ingestion replaces the row for the same (ticker, date).
type InstrumentDailyMetric struct {
	Ticker                  string    `json:"ticker"`
	TradeDate               time.Time `json:"tradeDate"`
	Open                    float64   `json:"open"`
	High                    float64   `json:"high"`
	Low                     float64   `json:"low"`
	Close                   float64   `json:"close"`
	Volume                  int64     `json:"volume"`
	BorrowBalanceChange     float64   `json:"borrowBalanceChange"`
	MarginRatio             float64   `json:"marginRatio"`
	HistoricalVolatility20D float64   `json:"historicalVolatility20d"`
	ImpliedVolatility       float64   `json:"impliedVolatility,omitempty"`
}

// MetricHistory is an instrument's prior sessions, newest first.
type MetricHistory []InstrumentDailyMetric
