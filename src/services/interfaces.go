package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/models"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/questrade"
)

// BrokerageClient is the rate-limited, auth-aware brokerage API surface the
// sync engine consumes. calls, when non-nil, is incremented once per request
// actually dispatched upstream.
type BrokerageClient interface {
	Accounts(ctx context.Context, person string, calls *atomic.Int64) ([]questrade.AccountPayload, error)
	Balances(ctx context.Context, person, accountNumber string, calls *atomic.Int64) ([]questrade.BalancePayload, error)
	Positions(ctx context.Context, person, accountNumber string, calls *atomic.Int64) ([]questrade.PositionPayload, error)
	Activities(ctx context.Context, person, accountNumber string, start, end time.Time, calls *atomic.Int64) ([]questrade.ActivityPayload, error)
	Candles(ctx context.Context, person string, symbolID int64, start, end time.Time, calls *atomic.Int64) ([]questrade.CandlePayload, error)
}

// Clock supplies the current market time. Implemented by the scheduler's
// MarketClock; injected so trading-day and window logic never reads the host
// clock directly.
type Clock interface {
	Now() time.Time
}

// PersonStore reads tracked persons.
type PersonStore interface {
	Get(name string) (*models.Person, error)
	ListActive() ([]models.Person, error)
}

// AccountStore persists synced accounts.
type AccountStore interface {
	Upsert(a *models.Account) error
	UpdateSummary(number string, summary models.AccountSummary) error
	ListByPerson(person string) ([]models.Account, error)
}

// PositionStore persists synced positions.
type PositionStore interface {
	Upsert(p *models.Position) error
	Delete(accountNumber, symbol string) error
	MarkStale(accountNumber, symbol string) error
	ListByAccount(accountNumber string) ([]models.Position, error)
	SymbolRefs(person string) ([]models.SymbolRef, error)
	UpdatePrevClose(symbol string, close float64) error
}

// BalanceStore persists synced balances.
type BalanceStore interface {
	Get(accountNumber, currency string) (*models.Balance, error)
	Upsert(b *models.Balance) error
}

// ActivityStore persists synced activities.
type ActivityStore interface {
	Insert(a *models.Activity) (bool, error)
}

// SyncRunStore persists the sync audit trail.
type SyncRunStore interface {
	Insert(r *models.SyncRun) error
	Update(r *models.SyncRun) error
	Get(id string) (*models.SyncRun, error)
	List(person string, from, to time.Time, limit int) ([]models.SyncRun, error)
	Stats(from, to time.Time) (*models.SyncStats, error)
}

// DividendReconciler reconciles dividend policies after a person's sync.
// Implemented by processors.DividendProcessor.
type DividendReconciler interface {
	ReconcilePerson(person string, run *models.SyncRun)
}

// CandleBackfiller populates previous-close prices after a person's sync.
type CandleBackfiller interface {
	Backfill(ctx context.Context, person string, run *models.SyncRun, calls *atomic.Int64)
}
