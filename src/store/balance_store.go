package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/models"
)

// BalanceStore persists balances keyed by (account_number, currency).
type BalanceStore struct {
	db *sql.DB
}

func NewBalanceStore(db *sql.DB) *BalanceStore {
	return &BalanceStore{db: db}
}

// Get returns one balance row, or nil when none exists yet.
func (s *BalanceStore) Get(accountNumber, currency string) (*models.Balance, error) {
	row := s.db.QueryRow(`
		SELECT account_number, currency, cash, market_value, total_equity,
			sod_cash, sod_market_value, sod_total_equity, sod_date, last_synced_at
		FROM balances WHERE account_number = ? AND currency = ?`, accountNumber, currency)

	var b models.Balance
	var lastSynced string
	err := row.Scan(&b.AccountNumber, &b.Currency, &b.Cash, &b.MarketValue, &b.TotalEquity,
		&b.SODCash, &b.SODMarketValue, &b.SODTotalEquity, &b.SODDate, &lastSynced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading balance %s/%s: %w", accountNumber, currency, err)
	}
	b.LastSyncedAt, _ = time.Parse(time.RFC3339, lastSynced)
	return &b, nil
}

// Upsert writes the full balance row, including the start-of-day snapshot
// fields the syncer decided on.
func (s *BalanceStore) Upsert(b *models.Balance) error {
	_, err := s.db.Exec(`
		INSERT INTO balances (account_number, currency, cash, market_value, total_equity,
			sod_cash, sod_market_value, sod_total_equity, sod_date, last_synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_number, currency) DO UPDATE SET
			cash = excluded.cash,
			market_value = excluded.market_value,
			total_equity = excluded.total_equity,
			sod_cash = excluded.sod_cash,
			sod_market_value = excluded.sod_market_value,
			sod_total_equity = excluded.sod_total_equity,
			sod_date = excluded.sod_date,
			last_synced_at = excluded.last_synced_at`,
		b.AccountNumber, b.Currency, b.Cash, b.MarketValue, b.TotalEquity,
		b.SODCash, b.SODMarketValue, b.SODTotalEquity, b.SODDate,
		b.LastSyncedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting balance %s/%s: %w", b.AccountNumber, b.Currency, err)
	}
	return nil
}
