package models

import "time"

// Balance is one account's per-currency cash/market-value/equity snapshot.
// The SOD (start-of-day) fields are captured once per new trading day and
// serve as the baseline for daily P&L.
type Balance struct {
	AccountNumber  string    `json:"account_number"`
	Currency       string    `json:"currency"`
	Cash           float64   `json:"cash"`
	MarketValue    float64   `json:"market_value"`
	TotalEquity    float64   `json:"total_equity"`
	SODCash        float64   `json:"sod_cash"`
	SODMarketValue float64   `json:"sod_market_value"`
	SODTotalEquity float64   `json:"sod_total_equity"`
	SODDate        string    `json:"sod_date"` // calendar date "YYYY-MM-DD" in market time
	LastSyncedAt   time.Time `json:"last_synced_at"`
}
