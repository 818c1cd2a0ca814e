package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SyncScope selects which resource types a sync covers.
type SyncScope string

const (
	ScopeFull       SyncScope = "full"
	ScopeAccounts   SyncScope = "accounts"
	ScopePositions  SyncScope = "positions"
	ScopeBalances   SyncScope = "balances"
	ScopeActivities SyncScope = "activities"
)

// ParseScope validates a caller-supplied scope string.
func ParseScope(s string) (SyncScope, error) {
	switch SyncScope(s) {
	case ScopeFull, ScopeAccounts, ScopePositions, ScopeBalances, ScopeActivities:
		return SyncScope(s), nil
	case "":
		return ScopeFull, nil
	}
	return "", fmt.Errorf("invalid sync scope %q", s)
}

// SyncStatus is the state of a SyncRun. Terminal states are final.
type SyncStatus string

const (
	SyncStatusPending   SyncStatus = "pending"
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusPartial   SyncStatus = "partial"
	SyncStatusFailed    SyncStatus = "failed"
)

// ErrorCategory classifies a sync error.
type ErrorCategory string

const (
	ErrCategoryAuth        ErrorCategory = "auth"
	ErrCategoryRateLimited ErrorCategory = "rate_limited"
	ErrCategoryNetwork     ErrorCategory = "network"
	ErrCategoryValidation  ErrorCategory = "validation"
	ErrCategoryConflict    ErrorCategory = "conflict"
	ErrCategoryPersistence ErrorCategory = "persistence"
)

// SyncError is one structured, append-only error record on a SyncRun.
type SyncError struct {
	Timestamp time.Time     `json:"timestamp"`
	Category  ErrorCategory `json:"category"`
	Message   string        `json:"message"`
	Detail    string        `json:"detail,omitempty"`
}

// SyncCounts accumulates per-resource progress for one run.
type SyncCounts struct {
	Accounts          int `json:"accounts"`
	Balances          int `json:"balances"`
	Positions         int `json:"positions"`
	PositionsDeleted  int `json:"positions_deleted"`
	PositionsFlagged  int `json:"positions_flagged"`
	ActivitiesNew     int `json:"activities_new"`
	SymbolsReconciled int `json:"symbols_reconciled"`
	CandlesBackfilled int `json:"candles_backfilled"`
	CandlesSkipped    int `json:"candles_skipped"`
}

var errTerminalRun = errors.New("sync run already in a terminal state")

// SyncRun is one audited sync attempt.
// State machine: pending -> running -> {completed, partial, failed}.
type SyncRun struct {
	ID          string      `json:"id"`
	PersonName  string      `json:"person_name"`
	Scope       SyncScope   `json:"scope"`
	TriggeredBy string      `json:"triggered_by"`
	Status      SyncStatus  `json:"status"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	DurationMs  int64       `json:"duration_ms"`
	APICalls    int64       `json:"api_calls"`
	Counts      SyncCounts  `json:"counts"`
	Errors      []SyncError `json:"errors"`
	CreatedAt   time.Time   `json:"created_at"`
}

// NewSyncRun creates a run in the pending state.
func NewSyncRun(personName string, scope SyncScope, triggeredBy string) *SyncRun {
	return &SyncRun{
		ID:          uuid.New().String(),
		PersonName:  personName,
		Scope:       scope,
		TriggeredBy: triggeredBy,
		Status:      SyncStatusPending,
		Errors:      []SyncError{},
		CreatedAt:   time.Now().UTC(),
	}
}

// IsTerminal reports whether the run has reached a final state.
func (r *SyncRun) IsTerminal() bool {
	switch r.Status {
	case SyncStatusCompleted, SyncStatusPartial, SyncStatusFailed:
		return true
	}
	return false
}

// ErrorCount is derived from the error list, never settable.
func (r *SyncRun) ErrorCount() int {
	return len(r.Errors)
}

// AddError appends a structured error record to the run.
func (r *SyncRun) AddError(category ErrorCategory, message, detail string) {
	r.Errors = append(r.Errors, SyncError{
		Timestamp: time.Now().UTC(),
		Category:  category,
		Message:   message,
		Detail:    detail,
	})
}

// MarkRunning transitions pending -> running and stamps the start time.
func (r *SyncRun) MarkRunning() error {
	if r.Status != SyncStatusPending {
		return fmt.Errorf("cannot mark running from %q", r.Status)
	}
	now := time.Now().UTC()
	r.Status = SyncStatusRunning
	r.StartedAt = &now
	return nil
}

// MarkCompleted transitions running -> completed when no errors accumulated,
// otherwise running -> partial. Stamps the completion time and duration.
func (r *SyncRun) MarkCompleted(counts SyncCounts) error {
	if r.IsTerminal() {
		return errTerminalRun
	}
	if r.Status != SyncStatusRunning {
		return fmt.Errorf("cannot mark completed from %q", r.Status)
	}
	r.Counts = counts
	if r.ErrorCount() == 0 {
		r.Status = SyncStatusCompleted
	} else {
		r.Status = SyncStatusPartial
	}
	r.stampCompleted()
	return nil
}

// MarkFailed transitions any non-terminal state to failed and appends the error.
func (r *SyncRun) MarkFailed(category ErrorCategory, message, detail string) error {
	if r.IsTerminal() {
		return errTerminalRun
	}
	r.AddError(category, message, detail)
	r.Status = SyncStatusFailed
	r.stampCompleted()
	return nil
}

func (r *SyncRun) stampCompleted() {
	now := time.Now().UTC()
	r.CompletedAt = &now
	if r.StartedAt != nil {
		r.DurationMs = now.Sub(*r.StartedAt).Milliseconds()
	}
}

// SyncStats aggregates SyncRun outcomes over a date range.
type SyncStats struct {
	Total         int     `json:"total"`
	Completed     int     `json:"completed"`
	Partial       int     `json:"partial"`
	Failed        int     `json:"failed"`
	SuccessRate   float64 `json:"success_rate"` // completed / total, in percent
	AvgDurationMs float64 `json:"avg_duration_ms"`
	TotalAPICalls int64   `json:"total_api_calls"`
}
