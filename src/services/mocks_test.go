package services

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/logger"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/models"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/questrade"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

// MockBrokerageClient is a mock implementation of BrokerageClient for testing
type MockBrokerageClient struct {
	mock.Mock
}

func (m *MockBrokerageClient) Accounts(ctx context.Context, person string, calls *atomic.Int64) ([]questrade.AccountPayload, error) {
	args := m.Called(ctx, person, calls)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]questrade.AccountPayload), args.Error(1)
}

func (m *MockBrokerageClient) Balances(ctx context.Context, person, accountNumber string, calls *atomic.Int64) ([]questrade.BalancePayload, error) {
	args := m.Called(ctx, person, accountNumber, calls)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]questrade.BalancePayload), args.Error(1)
}

func (m *MockBrokerageClient) Positions(ctx context.Context, person, accountNumber string, calls *atomic.Int64) ([]questrade.PositionPayload, error) {
	args := m.Called(ctx, person, accountNumber, calls)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]questrade.PositionPayload), args.Error(1)
}

func (m *MockBrokerageClient) Activities(ctx context.Context, person, accountNumber string, start, end time.Time, calls *atomic.Int64) ([]questrade.ActivityPayload, error) {
	args := m.Called(ctx, person, accountNumber, start, end, calls)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]questrade.ActivityPayload), args.Error(1)
}

func (m *MockBrokerageClient) Candles(ctx context.Context, person string, symbolID int64, start, end time.Time, calls *atomic.Int64) ([]questrade.CandlePayload, error) {
	args := m.Called(ctx, person, symbolID, start, end, calls)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]questrade.CandlePayload), args.Error(1)
}

// MockPersonStore is a mock implementation of PersonStore for testing
type MockPersonStore struct {
	mock.Mock
}

func (m *MockPersonStore) Get(name string) (*models.Person, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Person), args.Error(1)
}

func (m *MockPersonStore) ListActive() ([]models.Person, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Person), args.Error(1)
}

// MockAccountStore is a mock implementation of AccountStore for testing
type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) Upsert(a *models.Account) error {
	args := m.Called(a)
	return args.Error(0)
}

func (m *MockAccountStore) UpdateSummary(number string, summary models.AccountSummary) error {
	args := m.Called(number, summary)
	return args.Error(0)
}

func (m *MockAccountStore) ListByPerson(person string) ([]models.Account, error) {
	args := m.Called(person)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Account), args.Error(1)
}

// MockPositionStore is a mock implementation of PositionStore for testing
type MockPositionStore struct {
	mock.Mock
}

func (m *MockPositionStore) Upsert(p *models.Position) error {
	args := m.Called(p)
	return args.Error(0)
}

func (m *MockPositionStore) Delete(accountNumber, symbol string) error {
	args := m.Called(accountNumber, symbol)
	return args.Error(0)
}

func (m *MockPositionStore) MarkStale(accountNumber, symbol string) error {
	args := m.Called(accountNumber, symbol)
	return args.Error(0)
}

func (m *MockPositionStore) ListByAccount(accountNumber string) ([]models.Position, error) {
	args := m.Called(accountNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Position), args.Error(1)
}

func (m *MockPositionStore) SymbolRefs(person string) ([]models.SymbolRef, error) {
	args := m.Called(person)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SymbolRef), args.Error(1)
}

func (m *MockPositionStore) UpdatePrevClose(symbol string, close float64) error {
	args := m.Called(symbol, close)
	return args.Error(0)
}

// MockBalanceStore is a mock implementation of BalanceStore for testing
type MockBalanceStore struct {
	mock.Mock
}

func (m *MockBalanceStore) Get(accountNumber, currency string) (*models.Balance, error) {
	args := m.Called(accountNumber, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Balance), args.Error(1)
}

func (m *MockBalanceStore) Upsert(b *models.Balance) error {
	args := m.Called(b)
	return args.Error(0)
}

// MockActivityStore is a mock implementation of ActivityStore for testing
type MockActivityStore struct {
	mock.Mock
}

func (m *MockActivityStore) Insert(a *models.Activity) (bool, error) {
	args := m.Called(a)
	return args.Bool(0), args.Error(1)
}

// MockSyncRunStore is a mock implementation of SyncRunStore for testing
type MockSyncRunStore struct {
	mock.Mock
}

func (m *MockSyncRunStore) Insert(r *models.SyncRun) error {
	args := m.Called(r)
	return args.Error(0)
}

func (m *MockSyncRunStore) Update(r *models.SyncRun) error {
	args := m.Called(r)
	return args.Error(0)
}

func (m *MockSyncRunStore) Get(id string) (*models.SyncRun, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncRun), args.Error(1)
}

func (m *MockSyncRunStore) List(person string, from, to time.Time, limit int) ([]models.SyncRun, error) {
	args := m.Called(person, from, to, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SyncRun), args.Error(1)
}

func (m *MockSyncRunStore) Stats(from, to time.Time) (*models.SyncStats, error) {
	args := m.Called(from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncStats), args.Error(1)
}

// MockDividendReconciler is a mock implementation of DividendReconciler for testing
type MockDividendReconciler struct {
	mock.Mock
}

func (m *MockDividendReconciler) ReconcilePerson(person string, run *models.SyncRun) {
	m.Called(person, run)
}

// MockCandleBackfiller is a mock implementation of CandleBackfiller for testing
type MockCandleBackfiller struct {
	mock.Mock
}

func (m *MockCandleBackfiller) Backfill(ctx context.Context, person string, run *models.SyncRun, calls *atomic.Int64) {
	m.Called(ctx, person, run, calls)
}

// fixedClock returns a constant market time.
type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }
