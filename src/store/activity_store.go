package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/models"
)

// ActivityStore persists immutable transaction records keyed by the
// deterministic activity ID.
type ActivityStore struct {
	db *sql.DB
}

func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// Insert stores one activity, ignoring duplicates of the idempotent key.
// Returns whether a new row was actually written.
func (s *ActivityStore) Insert(a *models.Activity) (bool, error) {
	res, err := s.db.Exec(`
		INSERT OR IGNORE INTO activities (id, account_number, trade_date, settlement_date, type, action,
			symbol, symbol_id, description, quantity, price, gross_amount, commission, net_amount, currency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.AccountNumber,
		a.TradeDate.UTC().Format(time.RFC3339), a.SettlementDate.UTC().Format(time.RFC3339),
		a.Type, a.Action, a.Symbol, a.SymbolID, a.Description,
		a.Quantity, a.Price, a.GrossAmount, a.Commission, a.NetAmount, a.Currency,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("inserting activity %s: %w", a.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DividendsBySymbol returns the symbol's dividend activities across all
// accounts, oldest first.
func (s *ActivityStore) DividendsBySymbol(symbol string) ([]models.Activity, error) {
	rows, err := s.db.Query(`
		SELECT id, account_number, trade_date, settlement_date, type, action, symbol, symbol_id,
			description, quantity, price, gross_amount, commission, net_amount, currency
		FROM activities
		WHERE symbol = ? AND (type = 'Dividends' OR type = 'Dividend' OR action = 'DIV')
		ORDER BY trade_date ASC`, symbol)
	if err != nil {
		return nil, fmt.Errorf("listing dividends for %s: %w", symbol, err)
	}
	defer rows.Close()

	var activities []models.Activity
	for rows.Next() {
		var a models.Activity
		var tradeDate, settlementDate string
		if err := rows.Scan(&a.ID, &a.AccountNumber, &tradeDate, &settlementDate, &a.Type, &a.Action,
			&a.Symbol, &a.SymbolID, &a.Description, &a.Quantity, &a.Price,
			&a.GrossAmount, &a.Commission, &a.NetAmount, &a.Currency); err != nil {
			return nil, err
		}
		a.TradeDate, _ = time.Parse(time.RFC3339, tradeDate)
		a.SettlementDate, _ = time.Parse(time.RFC3339, settlementDate)
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// SymbolsWithDividends returns the distinct symbols with at least one recorded
// dividend activity in the person's accounts.
func (s *ActivityStore) SymbolsWithDividends(person string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT act.symbol
		FROM activities act
		JOIN accounts a ON a.number = act.account_number
		WHERE a.person_name = ? AND act.symbol != ''
			AND (act.type = 'Dividends' OR act.type = 'Dividend' OR act.action = 'DIV')
		ORDER BY act.symbol`, person)
	if err != nil {
		return nil, fmt.Errorf("listing dividend symbols for %q: %w", person, err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}
