package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// DividendPolicyStore persists the symbol-scoped dividend policies.
type DividendPolicyStore struct {
	db *sql.DB
}

func NewDividendPolicyStore(db *sql.DB) *DividendPolicyStore {
	return &DividendPolicyStore{db: db}
}

// Get returns the policy for one symbol, or ErrNotFound.
func (s *DividendPolicyStore) Get(symbol string) (*models.DividendPolicy, error) {
	row := s.db.QueryRow(`
		SELECT symbol, frequency, monthly_per_share, annual_per_share, is_manual_override, source, updated_at
		FROM dividend_policies WHERE symbol = ?`, symbol)
	p, err := scanPolicy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// List returns every policy.
func (s *DividendPolicyStore) List() ([]models.DividendPolicy, error) {
	rows, err := s.db.Query(`
		SELECT symbol, frequency, monthly_per_share, annual_per_share, is_manual_override, source, updated_at
		FROM dividend_policies ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("listing dividend policies: %w", err)
	}
	defer rows.Close()

	var policies []models.DividendPolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, *p)
	}
	return policies, rows.Err()
}

// Upsert writes the policy row as given. Callers on the automated path must
// check the stored override flag first; the manual-override invariant is
// enforced by the reconciler, and additionally here with a conditional update
// so an automated write can never clobber a manual row.
func (s *DividendPolicyStore) Upsert(p *models.DividendPolicy) error {
	updatedAt := time.Now().UTC().Format(time.RFC3339)
	if p.Source != models.PolicySourceManual {
		// Automated writers only land when no manual override is present.
		_, err := s.db.Exec(`
			INSERT INTO dividend_policies (symbol, frequency, monthly_per_share, annual_per_share, is_manual_override, source, updated_at)
			VALUES (?, ?, ?, ?, 0, ?, ?)
			ON CONFLICT(symbol) DO UPDATE SET
				frequency = excluded.frequency,
				monthly_per_share = excluded.monthly_per_share,
				annual_per_share = excluded.annual_per_share,
				source = excluded.source,
				updated_at = excluded.updated_at
			WHERE dividend_policies.is_manual_override = 0`,
			p.Symbol, string(p.Frequency), p.MonthlyPerShare.String(), p.AnnualPerShare.String(),
			string(p.Source), updatedAt,
		)
		if err != nil {
			return fmt.Errorf("upserting dividend policy %s: %w", p.Symbol, err)
		}
		return nil
	}

	_, err := s.db.Exec(`
		INSERT INTO dividend_policies (symbol, frequency, monthly_per_share, annual_per_share, is_manual_override, source, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			frequency = excluded.frequency,
			monthly_per_share = excluded.monthly_per_share,
			annual_per_share = excluded.annual_per_share,
			is_manual_override = excluded.is_manual_override,
			source = excluded.source,
			updated_at = excluded.updated_at`,
		p.Symbol, string(p.Frequency), p.MonthlyPerShare.String(), p.AnnualPerShare.String(),
		p.IsManualOverride, string(p.Source), updatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting dividend policy %s: %w", p.Symbol, err)
	}
	return nil
}

// ClearOverride clears the manual-override flag, re-opening the symbol to the
// automated reconciler. Stored values are kept until the next reconcile.
func (s *DividendPolicyStore) ClearOverride(symbol string) error {
	res, err := s.db.Exec(`
		UPDATE dividend_policies SET is_manual_override = 0, source = ?, updated_at = ?
		WHERE symbol = ?`,
		string(models.PolicySourceAuto), time.Now().UTC().Format(time.RFC3339), symbol,
	)
	if err != nil {
		return fmt.Errorf("clearing override for %s: %w", symbol, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPolicy(row rowScanner) (*models.DividendPolicy, error) {
	var p models.DividendPolicy
	var freq, monthly, annual, source, updatedAt string
	if err := row.Scan(&p.Symbol, &freq, &monthly, &annual, &p.IsManualOverride, &source, &updatedAt); err != nil {
		return nil, err
	}
	p.Frequency = models.DividendFrequency(freq)
	var err error
	if p.MonthlyPerShare, err = decimal.NewFromString(monthly); err != nil {
		return nil, fmt.Errorf("policy %s: parsing monthly_per_share %q: %w", p.Symbol, monthly, err)
	}
	if p.AnnualPerShare, err = decimal.NewFromString(annual); err != nil {
		return nil, fmt.Errorf("policy %s: parsing annual_per_share %q: %w", p.Symbol, annual, err)
	}
	p.Source = models.PolicySource(source)
	if p.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("policy %s: parsing updated_at %q: %w", p.Symbol, updatedAt, err)
	}
	return &p, nil
}
