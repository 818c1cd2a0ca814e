package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DividendData is the per-position view of a symbol's dividend policy plus the
// yields computed against this position's own cost basis and price.
type DividendData struct {
	MonthlyPerShare  decimal.Decimal   `json:"monthly_per_share"`
	AnnualPerShare   decimal.Decimal   `json:"annual_per_share"`
	Frequency        DividendFrequency `json:"frequency"`
	YieldOnCost      decimal.Decimal   `json:"yield_on_cost"`
	CurrentYield     decimal.Decimal   `json:"current_yield"`
	IsManualOverride bool              `json:"is_manual_override"`
}

// Position belongs to exactly one Account and one symbol, identified by
// (account_number, symbol). Stale marks a position upstream no longer reports
// while the local open quantity is still non-zero; it is kept for manual
// review instead of being deleted.
type Position struct {
	AccountNumber      string       `json:"account_number"`
	Symbol             string       `json:"symbol"`
	SymbolID           int64        `json:"symbol_id"`
	OpenQuantity       float64      `json:"open_quantity"`
	AverageEntryPrice  float64      `json:"average_entry_price"`
	CurrentPrice       float64      `json:"current_price"`
	CurrentMarketValue float64      `json:"current_market_value"`
	TotalCost          float64      `json:"total_cost"`
	OpenPnL            float64      `json:"open_pnl"`
	DayPnL             float64      `json:"day_pnl"`
	PrevDayClose       float64      `json:"prev_day_close"`
	Stale              bool         `json:"stale"`
	Dividend           DividendData `json:"dividend"`
	LastSyncedAt       time.Time    `json:"last_synced_at"`
}

// SymbolRef identifies one distinct traded symbol across a person's positions.
type SymbolRef struct {
	Symbol   string `json:"symbol"`
	SymbolID int64  `json:"symbol_id"`
}
