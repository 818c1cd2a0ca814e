package models

import (
	"fmt"
	"strings"
	"time"
)

// Activity is an immutable transaction record fetched from upstream.
type Activity struct {
	ID             string    `json:"id"`
	AccountNumber  string    `json:"account_number"`
	TradeDate      time.Time `json:"trade_date"`
	SettlementDate time.Time `json:"settlement_date"`
	Type           string    `json:"type"`
	Action         string    `json:"action"`
	Symbol         string    `json:"symbol"`
	SymbolID       int64     `json:"symbol_id"`
	Description    string    `json:"description"`
	Quantity       float64   `json:"quantity"`
	Price          float64   `json:"price"`
	GrossAmount    float64   `json:"gross_amount"`
	Commission     float64   `json:"commission"`
	NetAmount      float64   `json:"net_amount"`
	Currency       string    `json:"currency"`
	CreatedAt      time.Time `json:"created_at"`
}

// ActivityID derives the deterministic composite identifier for an upstream
// transaction. Re-fetching the same transaction always yields the same key, so
// inserts are idempotent. The amount is rounded to cents before keying to
// absorb float noise in upstream payloads.
func ActivityID(accountNumber string, tradeDate time.Time, activityType, symbol string, netAmount float64) string {
	return fmt.Sprintf("%s|%s|%s|%s|%.2f",
		accountNumber,
		tradeDate.Format("2006-01-02"),
		strings.ToUpper(strings.TrimSpace(activityType)),
		strings.ToUpper(strings.TrimSpace(symbol)),
		netAmount,
	)
}

// IsDividend reports whether the activity is a dividend payment.
func (a Activity) IsDividend() bool {
	return strings.EqualFold(a.Type, "Dividends") ||
		strings.EqualFold(a.Type, "Dividend") ||
		strings.EqualFold(a.Action, "DIV")
}
