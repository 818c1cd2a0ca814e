package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/models"
)

// AccountStore persists accounts keyed by the upstream account number.
type AccountStore struct {
	db *sql.DB
}

func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

// Upsert writes the account's current upstream field values, refreshing the
// last-synced timestamp. Summary fields are only touched by UpdateSummary.
func (s *AccountStore) Upsert(a *models.Account) error {
	_, err := s.db.Exec(`
		INSERT INTO accounts (number, person_name, type, raw_type, status, is_primary, last_synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(number) DO UPDATE SET
			person_name = excluded.person_name,
			type = excluded.type,
			raw_type = excluded.raw_type,
			status = excluded.status,
			is_primary = excluded.is_primary,
			last_synced_at = excluded.last_synced_at`,
		a.Number, a.PersonName, string(a.Type), a.RawType, a.Status, a.IsPrimary,
		a.LastSyncedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting account %s: %w", a.Number, err)
	}
	return nil
}

// UpdateSummary refreshes the denormalized financial summary for an account.
func (s *AccountStore) UpdateSummary(number string, summary models.AccountSummary) error {
	_, err := s.db.Exec(`
		UPDATE accounts SET
			total_equity_cad = ?, total_equity_usd = ?,
			cash_cad = ?, cash_usd = ?,
			market_value_cad = ?, market_value_usd = ?
		WHERE number = ?`,
		summary.TotalEquityCAD, summary.TotalEquityUSD,
		summary.CashCAD, summary.CashUSD,
		summary.MarketValueCAD, summary.MarketValueUSD,
		number,
	)
	if err != nil {
		return fmt.Errorf("updating summary for account %s: %w", number, err)
	}
	return nil
}

// ListByPerson returns the person's accounts.
func (s *AccountStore) ListByPerson(person string) ([]models.Account, error) {
	rows, err := s.db.Query(`
		SELECT number, person_name, type, raw_type, status, is_primary,
			total_equity_cad, total_equity_usd, cash_cad, cash_usd,
			market_value_cad, market_value_usd, last_synced_at
		FROM accounts WHERE person_name = ? ORDER BY number`, person)
	if err != nil {
		return nil, fmt.Errorf("listing accounts for %q: %w", person, err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		var accType, lastSynced string
		if err := rows.Scan(&a.Number, &a.PersonName, &accType, &a.RawType, &a.Status, &a.IsPrimary,
			&a.Summary.TotalEquityCAD, &a.Summary.TotalEquityUSD,
			&a.Summary.CashCAD, &a.Summary.CashUSD,
			&a.Summary.MarketValueCAD, &a.Summary.MarketValueUSD,
			&lastSynced); err != nil {
			return nil, err
		}
		a.Type = models.AccountType(accType)
		a.LastSyncedAt, _ = time.Parse(time.RFC3339, lastSynced)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
