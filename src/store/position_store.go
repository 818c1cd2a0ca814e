package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/models"
)

// PositionStore persists positions keyed by (account_number, symbol).
type PositionStore struct {
	db *sql.DB
}

func NewPositionStore(db *sql.DB) *PositionStore {
	return &PositionStore{db: db}
}

// Upsert writes the position's current upstream field values. Dividend data
// and the backfilled previous close are owned by other writers and left
// untouched on conflict; a resurfacing symbol also clears the stale flag.
func (s *PositionStore) Upsert(p *models.Position) error {
	_, err := s.db.Exec(`
		INSERT INTO positions (account_number, symbol, symbol_id, open_quantity, average_entry_price,
			current_price, current_market_value, total_cost, open_pnl, day_pnl, stale, last_synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT(account_number, symbol) DO UPDATE SET
			symbol_id = excluded.symbol_id,
			open_quantity = excluded.open_quantity,
			average_entry_price = excluded.average_entry_price,
			current_price = excluded.current_price,
			current_market_value = excluded.current_market_value,
			total_cost = excluded.total_cost,
			open_pnl = excluded.open_pnl,
			day_pnl = excluded.day_pnl,
			stale = 0,
			last_synced_at = excluded.last_synced_at`,
		p.AccountNumber, p.Symbol, p.SymbolID, p.OpenQuantity, p.AverageEntryPrice,
		p.CurrentPrice, p.CurrentMarketValue, p.TotalCost, p.OpenPnL, p.DayPnL,
		p.LastSyncedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting position %s/%s: %w", p.AccountNumber, p.Symbol, err)
	}
	return nil
}

// Delete removes one position row.
func (s *PositionStore) Delete(accountNumber, symbol string) error {
	_, err := s.db.Exec(`DELETE FROM positions WHERE account_number = ? AND symbol = ?`, accountNumber, symbol)
	if err != nil {
		return fmt.Errorf("deleting position %s/%s: %w", accountNumber, symbol, err)
	}
	return nil
}

// MarkStale flags a position upstream no longer reports but whose local open
// quantity is non-zero, for manual review.
func (s *PositionStore) MarkStale(accountNumber, symbol string) error {
	_, err := s.db.Exec(`UPDATE positions SET stale = 1 WHERE account_number = ? AND symbol = ?`, accountNumber, symbol)
	if err != nil {
		return fmt.Errorf("flagging position %s/%s stale: %w", accountNumber, symbol, err)
	}
	return nil
}

const positionColumns = `account_number, symbol, symbol_id, open_quantity, average_entry_price,
	current_price, current_market_value, total_cost, open_pnl, day_pnl, prev_day_close, stale,
	div_monthly_per_share, div_annual_per_share, div_frequency, div_yield_on_cost, div_current_yield,
	div_is_manual_override, last_synced_at`

// ListByAccount returns every position in one account.
func (s *PositionStore) ListByAccount(accountNumber string) ([]models.Position, error) {
	rows, err := s.db.Query(`SELECT `+positionColumns+` FROM positions WHERE account_number = ? ORDER BY symbol`, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("listing positions for account %s: %w", accountNumber, err)
	}
	return scanPositions(rows)
}

// ListBySymbol returns every position quoting the symbol, across all accounts.
func (s *PositionStore) ListBySymbol(symbol string) ([]models.Position, error) {
	rows, err := s.db.Query(`SELECT `+positionColumns+` FROM positions WHERE symbol = ?`, symbol)
	if err != nil {
		return nil, fmt.Errorf("listing positions for symbol %s: %w", symbol, err)
	}
	return scanPositions(rows)
}

func scanPositions(rows *sql.Rows) ([]models.Position, error) {
	defer rows.Close()
	var positions []models.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *p)
	}
	return positions, rows.Err()
}

func scanPosition(row rowScanner) (*models.Position, error) {
	var p models.Position
	var monthly, annual, freq, yoc, cy, lastSynced string
	if err := row.Scan(&p.AccountNumber, &p.Symbol, &p.SymbolID, &p.OpenQuantity, &p.AverageEntryPrice,
		&p.CurrentPrice, &p.CurrentMarketValue, &p.TotalCost, &p.OpenPnL, &p.DayPnL, &p.PrevDayClose, &p.Stale,
		&monthly, &annual, &freq, &yoc, &cy, &p.Dividend.IsManualOverride, &lastSynced); err != nil {
		return nil, err
	}
	var err error
	if p.Dividend.MonthlyPerShare, err = decimal.NewFromString(monthly); err != nil {
		return nil, fmt.Errorf("position %s/%s: parsing div_monthly_per_share %q: %w", p.AccountNumber, p.Symbol, monthly, err)
	}
	if p.Dividend.AnnualPerShare, err = decimal.NewFromString(annual); err != nil {
		return nil, fmt.Errorf("position %s/%s: parsing div_annual_per_share %q: %w", p.AccountNumber, p.Symbol, annual, err)
	}
	p.Dividend.Frequency = models.DividendFrequency(freq)
	if p.Dividend.YieldOnCost, err = decimal.NewFromString(yoc); err != nil {
		return nil, fmt.Errorf("position %s/%s: parsing div_yield_on_cost %q: %w", p.AccountNumber, p.Symbol, yoc, err)
	}
	if p.Dividend.CurrentYield, err = decimal.NewFromString(cy); err != nil {
		return nil, fmt.Errorf("position %s/%s: parsing div_current_yield %q: %w", p.AccountNumber, p.Symbol, cy, err)
	}
	if p.LastSyncedAt, err = time.Parse(time.RFC3339, lastSynced); err != nil {
		return nil, fmt.Errorf("position %s/%s: parsing last_synced_at %q: %w", p.AccountNumber, p.Symbol, lastSynced, err)
	}
	return &p, nil
}

// SymbolRefs returns the distinct symbols held across a person's positions.
func (s *PositionStore) SymbolRefs(person string) ([]models.SymbolRef, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT p.symbol, p.symbol_id
		FROM positions p
		JOIN accounts a ON a.number = p.account_number
		WHERE a.person_name = ?
		ORDER BY p.symbol`, person)
	if err != nil {
		return nil, fmt.Errorf("listing symbols for %q: %w", person, err)
	}
	defer rows.Close()

	var refs []models.SymbolRef
	for rows.Next() {
		var r models.SymbolRef
		if err := rows.Scan(&r.Symbol, &r.SymbolID); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// UpdatePrevClose sets the backfilled previous close for every position
// quoting the symbol.
func (s *PositionStore) UpdatePrevClose(symbol string, close float64) error {
	_, err := s.db.Exec(`UPDATE positions SET prev_day_close = ? WHERE symbol = ?`, close, symbol)
	if err != nil {
		return fmt.Errorf("updating prev close for %s: %w", symbol, err)
	}
	return nil
}

// UpdateDividend writes one position's dividend data.
func (s *PositionStore) UpdateDividend(accountNumber, symbol string, dd models.DividendData) error {
	_, err := s.db.Exec(`
		UPDATE positions SET
			div_monthly_per_share = ?, div_annual_per_share = ?, div_frequency = ?,
			div_yield_on_cost = ?, div_current_yield = ?, div_is_manual_override = ?
		WHERE account_number = ? AND symbol = ?`,
		dd.MonthlyPerShare.String(), dd.AnnualPerShare.String(), string(dd.Frequency),
		dd.YieldOnCost.String(), dd.CurrentYield.String(), dd.IsManualOverride,
		accountNumber, symbol,
	)
	if err != nil {
		return fmt.Errorf("updating dividend data for %s/%s: %w", accountNumber, symbol, err)
	}
	return nil
}
