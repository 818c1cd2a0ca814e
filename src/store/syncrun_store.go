package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/models"
)

// SyncRunStore persists the sync audit trail.
type SyncRunStore struct {
	db *sql.DB
}

func NewSyncRunStore(db *sql.DB) *SyncRunStore {
	return &SyncRunStore{db: db}
}

// Insert writes a freshly created run.
func (s *SyncRunStore) Insert(r *models.SyncRun) error {
	counts, errsJSON, err := marshalRun(r)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO sync_runs (id, person_name, scope, triggered_by, status, started_at, completed_at,
			duration_ms, api_calls, counts_json, errors_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.PersonName, string(r.Scope), r.TriggeredBy, string(r.Status),
		timePtrString(r.StartedAt), timePtrString(r.CompletedAt),
		r.DurationMs, r.APICalls, counts, errsJSON,
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting sync run %s: %w", r.ID, err)
	}
	return nil
}

// Update rewrites the mutable columns of a run as it progresses.
func (s *SyncRunStore) Update(r *models.SyncRun) error {
	counts, errsJSON, err := marshalRun(r)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		UPDATE sync_runs SET status = ?, started_at = ?, completed_at = ?, duration_ms = ?,
			api_calls = ?, counts_json = ?, errors_json = ?
		WHERE id = ?`,
		string(r.Status), timePtrString(r.StartedAt), timePtrString(r.CompletedAt),
		r.DurationMs, r.APICalls, counts, errsJSON, r.ID,
	)
	if err != nil {
		return fmt.Errorf("updating sync run %s: %w", r.ID, err)
	}
	return nil
}

// Get returns one run by ID, or ErrNotFound.
func (s *SyncRunStore) Get(id string) (*models.SyncRun, error) {
	row := s.db.QueryRow(`
		SELECT id, person_name, scope, triggered_by, status, started_at, completed_at,
			duration_ms, api_calls, counts_json, errors_json, created_at
		FROM sync_runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// List returns recent runs, newest first, optionally filtered by person and
// creation date range.
func (s *SyncRunStore) List(person string, from, to time.Time, limit int) ([]models.SyncRun, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := `
		SELECT id, person_name, scope, triggered_by, status, started_at, completed_at,
			duration_ms, api_calls, counts_json, errors_json, created_at
		FROM sync_runs WHERE created_at >= ? AND created_at <= ?`
	args := []any{from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339)}
	if person != "" {
		query += ` AND person_name = ?`
		args = append(args, person)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sync runs: %w", err)
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// Stats aggregates run outcomes over a creation date range.
func (s *SyncRunStore) Stats(from, to time.Time) (*models.SyncStats, error) {
	row := s.db.QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'partial' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(CASE WHEN completed_at IS NOT NULL THEN duration_ms END), 0),
			COALESCE(SUM(api_calls), 0)
		FROM sync_runs WHERE created_at >= ? AND created_at <= ?`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))

	var st models.SyncStats
	if err := row.Scan(&st.Total, &st.Completed, &st.Partial, &st.Failed, &st.AvgDurationMs, &st.TotalAPICalls); err != nil {
		return nil, fmt.Errorf("aggregating sync stats: %w", err)
	}
	if st.Total > 0 {
		st.SuccessRate = float64(st.Completed) / float64(st.Total) * 100
	}
	return &st, nil
}

func marshalRun(r *models.SyncRun) (countsJSON, errsJSON string, err error) {
	counts, err := json.Marshal(r.Counts)
	if err != nil {
		return "", "", fmt.Errorf("marshaling counts for run %s: %w", r.ID, err)
	}
	errs, err := json.Marshal(r.Errors)
	if err != nil {
		return "", "", fmt.Errorf("marshaling errors for run %s: %w", r.ID, err)
	}
	return string(counts), string(errs), nil
}

func scanRun(row rowScanner) (*models.SyncRun, error) {
	var r models.SyncRun
	var scope, status, countsJSON, errsJSON, createdAt string
	var startedAt, completedAt sql.NullString
	if err := row.Scan(&r.ID, &r.PersonName, &scope, &r.TriggeredBy, &status,
		&startedAt, &completedAt, &r.DurationMs, &r.APICalls, &countsJSON, &errsJSON, &createdAt); err != nil {
		return nil, err
	}
	r.Scope = models.SyncScope(scope)
	r.Status = models.SyncStatus(status)
	r.StartedAt = parseTimePtr(startedAt)
	r.CompletedAt = parseTimePtr(completedAt)
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if err := json.Unmarshal([]byte(countsJSON), &r.Counts); err != nil {
		return nil, fmt.Errorf("unmarshaling counts for run %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(errsJSON), &r.Errors); err != nil {
		return nil, fmt.Errorf("unmarshaling errors for run %s: %w", r.ID, err)
	}
	return &r, nil
}

func timePtrString(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}
