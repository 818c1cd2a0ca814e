package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// TokenStore persists the rotated per-person brokerage refresh tokens.
type TokenStore struct {
	db *sql.DB
}

func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

// RefreshToken returns the stored refresh token for the person. For first-run
// bootstrap, a missing row falls back to the person-scoped
// QUESTRADE_REFRESH_TOKEN_<NAME> environment variable, then to the shared
// QUESTRADE_REFRESH_TOKEN for single-person setups; the rotated replacement is
// persisted on the first successful exchange.
func (s *TokenStore) RefreshToken(person string) (string, error) {
	var token string
	err := s.db.QueryRow(`SELECT refresh_token FROM broker_tokens WHERE person_name = ?`, person).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		if seed := bootstrapToken(person); seed != "" {
			return seed, nil
		}
		return "", fmt.Errorf("no refresh token stored for person %q", person)
	}
	if err != nil {
		return "", fmt.Errorf("loading refresh token for %q: %w", person, err)
	}
	return token, nil
}

// bootstrapToken resolves the seed refresh token for a person who has no
// stored row yet. The person-scoped variable wins so multi-person setups do
// not bootstrap everyone from the same single-use token.
func bootstrapToken(person string) string {
	if seed := os.Getenv("QUESTRADE_REFRESH_TOKEN_" + envKeySuffix(person)); seed != "" {
		return seed
	}
	return os.Getenv("QUESTRADE_REFRESH_TOKEN")
}

// envKeySuffix maps a person name onto the restricted environment variable
// alphabet: uppercased, with every non-alphanumeric run collapsed to one
// underscore.
func envKeySuffix(person string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToUpper(person) {
		switch {
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	return b.String()
}

// SaveRefreshToken upserts the person's refresh token.
func (s *TokenStore) SaveRefreshToken(person, token string) error {
	_, err := s.db.Exec(`
		INSERT INTO broker_tokens (person_name, refresh_token, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(person_name) DO UPDATE SET refresh_token = excluded.refresh_token, updated_at = excluded.updated_at`,
		person, token, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving refresh token for %q: %w", person, err)
	}
	return nil
}
