package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/logger"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/models"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/questrade"
)

// ErrSyncInProgress is returned when a sync for the person is already in
// flight. Distinct from every other sync error; callers map it to a conflict.
var ErrSyncInProgress = errors.New("sync already in progress for this person")

// ErrPersonNotFound is returned when the named person is not tracked.
var ErrPersonNotFound = errors.New("person not found")

// syncRegistry is the in-process single-flight registry keyed by person name.
// Check-and-insert and remove are atomic under the mutex. A distributed
// deployment would promote this to a lease in the shared store.
type syncRegistry struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newSyncRegistry() *syncRegistry {
	return &syncRegistry{active: make(map[string]struct{})}
}

func (r *syncRegistry) tryAcquire(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.active[name]; busy {
		return false
	}
	r.active[name] = struct{}{}
	return true
}

func (r *syncRegistry) release(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, name)
}

// SyncService orchestrates per-person synchronization: accounts first, then
// balances, positions and activities per account, then dividend
// reconciliation and candle backfill, folding every step's outcome into one
// SyncRun audit record.
type SyncService struct {
	client     BrokerageClient
	persons    PersonStore
	accounts   AccountStore
	positions  PositionStore
	balances   BalanceStore
	activities ActivityStore
	runs       SyncRunStore
	dividends  DividendReconciler
	candles    CandleBackfiller
	clock      Clock

	lookbackDays       int
	maxConcurrentSyncs int
	registry           *syncRegistry
}

// NewSyncService wires the orchestrator.
func NewSyncService(
	client BrokerageClient,
	persons PersonStore,
	accounts AccountStore,
	positions PositionStore,
	balances BalanceStore,
	activities ActivityStore,
	runs SyncRunStore,
	dividends DividendReconciler,
	candles CandleBackfiller,
	clock Clock,
	lookbackDays, maxConcurrentSyncs int,
) *SyncService {
	if lookbackDays < 1 {
		lookbackDays = 30
	}
	if maxConcurrentSyncs < 1 {
		maxConcurrentSyncs = 1
	}
	return &SyncService{
		client:             client,
		persons:            persons,
		accounts:           accounts,
		positions:          positions,
		balances:           balances,
		activities:         activities,
		runs:               runs,
		dividends:          dividends,
		candles:            candles,
		clock:              clock,
		lookbackDays:       lookbackDays,
		maxConcurrentSyncs: maxConcurrentSyncs,
		registry:           newSyncRegistry(),
	}
}

// SyncPerson runs one sync for the named person. At most one sync per person
// is ever in flight; a concurrent call fails fast with ErrSyncInProgress
// rather than queuing.
func (s *SyncService) SyncPerson(ctx context.Context, name string, scope models.SyncScope, triggeredBy string) (*models.SyncRun, error) {
	person, err := s.persons.Get(name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrPersonNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("loading person %q: %w", name, err)
	}

	if !s.registry.tryAcquire(person.Name) {
		return nil, fmt.Errorf("%w: %q", ErrSyncInProgress, person.Name)
	}
	defer s.registry.release(person.Name)

	run := models.NewSyncRun(person.Name, scope, triggeredBy)
	if err := s.runs.Insert(run); err != nil {
		return nil, fmt.Errorf("recording sync run: %w", err)
	}
	if err := run.MarkRunning(); err != nil {
		return nil, err
	}
	if err := s.runs.Update(run); err != nil {
		logger.L.Error("Failed to persist running sync run", "runID", run.ID, "error", err)
	}

	var calls atomic.Int64
	s.execute(ctx, person.Name, scope, run, &calls)

	run.APICalls = calls.Load()
	if !run.IsTerminal() {
		if err := run.MarkCompleted(run.Counts); err != nil {
			logger.L.Error("Failed to complete sync run", "runID", run.ID, "error", err)
		}
	}
	if err := s.runs.Update(run); err != nil {
		logger.L.Error("Failed to persist terminal sync run", "runID", run.ID, "error", err)
	}

	logger.L.Info("Sync finished",
		"person", person.Name, "scope", string(scope), "status", string(run.Status),
		"durationMs", run.DurationMs, "apiCalls", run.APICalls, "errors", run.ErrorCount())
	return run, nil
}

// execute performs the scoped work, folding failures into the run. A failure
// of the account sync itself short-circuits the person (nothing downstream
// can be trusted); any single account's resource failure is recorded and the
// remaining resources and sibling accounts still proceed.
func (s *SyncService) execute(ctx context.Context, person string, scope models.SyncScope, run *models.SyncRun, calls *atomic.Int64) {
	var accounts []models.Account
	var err error

	if scope == models.ScopeFull || scope == models.ScopeAccounts {
		accounts, err = s.syncAccounts(ctx, person, run, calls)
		if err != nil {
			run.MarkFailed(categorize(err), "account sync failed", err.Error())
			return
		}
		if scope == models.ScopeAccounts {
			return
		}
	} else {
		accounts, err = s.accounts.ListByPerson(person)
		if err != nil {
			run.MarkFailed(models.ErrCategoryPersistence, "loading local accounts", err.Error())
			return
		}
	}

	for _, account := range accounts {
		if scope == models.ScopeFull || scope == models.ScopeBalances {
			if err := s.syncBalances(ctx, person, account, run, calls); err != nil {
				run.AddError(categorize(err), fmt.Sprintf("balance sync failed for account %s", account.Number), err.Error())
			}
		}
		if scope == models.ScopeFull || scope == models.ScopePositions {
			if err := s.syncPositions(ctx, person, account, run, calls); err != nil {
				run.AddError(categorize(err), fmt.Sprintf("position sync failed for account %s", account.Number), err.Error())
			}
		}
		if scope == models.ScopeFull || scope == models.ScopeActivities {
			if err := s.syncActivities(ctx, person, account, run, calls); err != nil {
				run.AddError(categorize(err), fmt.Sprintf("activity sync failed for account %s", account.Number), err.Error())
			}
		}
	}

	if scope == models.ScopeFull {
		s.dividends.ReconcilePerson(person, run)
		s.candles.Backfill(ctx, person, run, calls)
	}
}

// SyncAll fans a full sync out over every active person with bounded
// concurrency. Busy persons are skipped, not errors: the in-flight sync
// already covers them.
func (s *SyncService) SyncAll(ctx context.Context, triggeredBy string) []*models.SyncRun {
	persons, err := s.persons.ListActive()
	if err != nil {
		logger.L.Error("SyncAll: listing active persons failed", "error", err)
		return nil
	}

	var (
		mu   sync.Mutex
		runs []*models.SyncRun
		wg   sync.WaitGroup
		sem  = make(chan struct{}, s.maxConcurrentSyncs)
	)
	for _, person := range persons {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			run, err := s.SyncPerson(ctx, name, models.ScopeFull, triggeredBy)
			if err != nil {
				if errors.Is(err, ErrSyncInProgress) {
					logger.L.Info("SyncAll: person busy, skipping", "person", name)
				} else {
					logger.L.Error("SyncAll: person sync failed", "person", name, "error", err)
				}
				return
			}
			mu.Lock()
			runs = append(runs, run)
			mu.Unlock()
		}(person.Name)
	}
	wg.Wait()
	return runs
}

// categorize maps an error to a sync error category.
func categorize(err error) models.ErrorCategory {
	var apiErr *questrade.APIError
	switch {
	case errors.Is(err, questrade.ErrAuthFailed):
		return models.ErrCategoryAuth
	case errors.As(err, &apiErr):
		if apiErr.IsRateLimited() {
			return models.ErrCategoryRateLimited
		}
		return models.ErrCategoryNetwork
	default:
		return models.ErrCategoryNetwork
	}
}
