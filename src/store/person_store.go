package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/models"
)

// PersonStore persists tracked brokerage identities.
type PersonStore struct {
	db *sql.DB
}

func NewPersonStore(db *sql.DB) *PersonStore {
	return &PersonStore{db: db}
}

// Ensure inserts the person if missing, leaving an existing row untouched.
func (s *PersonStore) Ensure(name string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO persons (name, display_name, active, created_at) VALUES (?, ?, 1, ?)`,
		name, name, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("ensuring person %q: %w", name, err)
	}
	return nil
}

// Get returns one person by name, or sql.ErrNoRows.
func (s *PersonStore) Get(name string) (*models.Person, error) {
	row := s.db.QueryRow(`SELECT name, display_name, active, created_at FROM persons WHERE name = ?`, name)
	return scanPerson(row)
}

// ListActive returns every person with the active flag set.
func (s *PersonStore) ListActive() ([]models.Person, error) {
	rows, err := s.db.Query(`SELECT name, display_name, active, created_at FROM persons WHERE active = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing active persons: %w", err)
	}
	defer rows.Close()

	var persons []models.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		persons = append(persons, *p)
	}
	return persons, rows.Err()
}

// List returns every person.
func (s *PersonStore) List() ([]models.Person, error) {
	rows, err := s.db.Query(`SELECT name, display_name, active, created_at FROM persons ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing persons: %w", err)
	}
	defer rows.Close()

	var persons []models.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		persons = append(persons, *p)
	}
	return persons, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (*models.Person, error) {
	var p models.Person
	var createdAt string
	if err := row.Scan(&p.Name, &p.DisplayName, &p.Active, &createdAt); err != nil {
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}
