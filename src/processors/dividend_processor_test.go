package processors

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/logger"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/models"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/store"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

// MockPolicyStore is a mock implementation of PolicyStore for testing
type MockPolicyStore struct {
	mock.Mock
}

func (m *MockPolicyStore) Get(symbol string) (*models.DividendPolicy, error) {
	args := m.Called(symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DividendPolicy), args.Error(1)
}

func (m *MockPolicyStore) Upsert(p *models.DividendPolicy) error {
	args := m.Called(p)
	return args.Error(0)
}

// MockPositionReader is a mock implementation of PositionReader for testing
type MockPositionReader struct {
	mock.Mock
}

func (m *MockPositionReader) ListBySymbol(symbol string) ([]models.Position, error) {
	args := m.Called(symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Position), args.Error(1)
}

func (m *MockPositionReader) UpdateDividend(accountNumber, symbol string, dd models.DividendData) error {
	args := m.Called(accountNumber, symbol, dd)
	return args.Error(0)
}

// MockActivityReader is a mock implementation of ActivityReader for testing
type MockActivityReader struct {
	mock.Mock
}

func (m *MockActivityReader) DividendsBySymbol(symbol string) ([]models.Activity, error) {
	args := m.Called(symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Activity), args.Error(1)
}

func (m *MockActivityReader) SymbolsWithDividends(person string) ([]string, error) {
	args := m.Called(person)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func dividendActivity(symbol string, date time.Time, perShare, net float64) models.Activity {
	return models.Activity{
		ID:        models.ActivityID("111", date, "Dividends", symbol, net),
		Symbol:    symbol,
		Type:      "Dividends",
		TradeDate: date,
		Price:     perShare,
		NetAmount: net,
	}
}

func TestReconcileSymbol_QuarterlyScenario(t *testing.T) {
	// Payments with gaps of 30, 60 and 91 days: mean gap ~60.3 days, so the
	// detected frequency is quarterly, monthly = 10/3 and annual = 40.
	base := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	acts := []models.Activity{
		dividendActivity("XYZ", base, 10, 1000),
		dividendActivity("XYZ", base.AddDate(0, 0, 30), 10, 1000),
		dividendActivity("XYZ", base.AddDate(0, 0, 90), 10, 1000),
		dividendActivity("XYZ", base.AddDate(0, 0, 181), 10, 1000),
	}

	policies := new(MockPolicyStore)
	positions := new(MockPositionReader)
	activities := new(MockActivityReader)

	activities.On("DividendsBySymbol", "XYZ").Return(acts, nil)
	positions.On("ListBySymbol", "XYZ").Return([]models.Position{
		{AccountNumber: "111", Symbol: "XYZ", OpenQuantity: 100, AverageEntryPrice: 200, CurrentPrice: 400},
	}, nil)
	policies.On("Get", "XYZ").Return(nil, store.ErrNotFound)

	var saved *models.DividendPolicy
	policies.On("Upsert", mock.AnythingOfType("*models.DividendPolicy")).Run(func(args mock.Arguments) {
		saved = args.Get(0).(*models.DividendPolicy)
	}).Return(nil)

	var applied models.DividendData
	positions.On("UpdateDividend", "111", "XYZ", mock.AnythingOfType("models.DividendData")).Run(func(args mock.Arguments) {
		applied = args.Get(2).(models.DividendData)
	}).Return(nil)

	processor := NewDividendProcessor(policies, positions, activities)
	require.NoError(t, processor.ReconcileSymbol("XYZ"))

	require.NotNil(t, saved)
	assert.Equal(t, models.FrequencyQuarterly, saved.Frequency)
	assert.True(t, saved.MonthlyPerShare.Equal(decimal.NewFromInt(10).Div(decimal.NewFromInt(3))),
		"monthly per share should be 10/3, got %s", saved.MonthlyPerShare)
	assert.InDelta(t, 40, saved.AnnualPerShare.InexactFloat64(), 1e-9,
		"annual per share should be 40, got %s", saved.AnnualPerShare)

	// Annualization is exact by construction: annual is derived as monthly*12.
	assert.True(t, saved.AnnualPerShare.Equal(saved.MonthlyPerShare.Mul(decimal.NewFromInt(12))))

	// Yields: 40/200*100 = 20 on cost, 40/400*100 = 10 current.
	assert.True(t, applied.YieldOnCost.Equal(decimal.NewFromInt(20)), "yield on cost, got %s", applied.YieldOnCost)
	assert.True(t, applied.CurrentYield.Equal(decimal.NewFromInt(10)), "current yield, got %s", applied.CurrentYield)
	assert.False(t, applied.IsManualOverride)
}

func TestReconcileSymbol_AnnualizationInvariantAcrossFrequencies(t *testing.T) {
	cases := []struct {
		name     string
		gapDays  int
		expected models.DividendFrequency
	}{
		{"monthly", 30, models.FrequencyMonthly},
		{"quarterly", 91, models.FrequencyQuarterly},
		{"semi-annual", 182, models.FrequencySemiAnnual},
		{"annual", 365, models.FrequencyAnnual},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			acts := []models.Activity{
				dividendActivity("SYM", base, 3, 300),
				dividendActivity("SYM", base.AddDate(0, 0, tc.gapDays), 3, 300),
				dividendActivity("SYM", base.AddDate(0, 0, 2*tc.gapDays), 3, 300),
			}

			policies := new(MockPolicyStore)
			positions := new(MockPositionReader)
			activities := new(MockActivityReader)

			activities.On("DividendsBySymbol", "SYM").Return(acts, nil)
			positions.On("ListBySymbol", "SYM").Return([]models.Position{}, nil)
			policies.On("Get", "SYM").Return(nil, store.ErrNotFound)

			var saved *models.DividendPolicy
			policies.On("Upsert", mock.Anything).Run(func(args mock.Arguments) {
				saved = args.Get(0).(*models.DividendPolicy)
			}).Return(nil)

			processor := NewDividendProcessor(policies, positions, activities)
			require.NoError(t, processor.ReconcileSymbol("SYM"))

			require.NotNil(t, saved)
			assert.Equal(t, tc.expected, saved.Frequency)
			assert.True(t, saved.AnnualPerShare.Equal(saved.MonthlyPerShare.Mul(decimal.NewFromInt(12))),
				"annual %s != monthly %s * 12", saved.AnnualPerShare, saved.MonthlyPerShare)
		})
	}
}

func TestReconcileSymbol_ManualOverrideIsNeverOverwritten(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	acts := []models.Activity{
		dividendActivity("OVR", base, 2, 200),
		dividendActivity("OVR", base.AddDate(0, 0, 30), 2, 200),
	}

	policies := new(MockPolicyStore)
	positions := new(MockPositionReader)
	activities := new(MockActivityReader)

	override := &models.DividendPolicy{
		Symbol:           "OVR",
		Frequency:        models.FrequencyMonthly,
		MonthlyPerShare:  decimal.NewFromFloat(0.50),
		AnnualPerShare:   decimal.NewFromInt(6),
		IsManualOverride: true,
		Source:           models.PolicySourceManual,
	}

	activities.On("DividendsBySymbol", "OVR").Return(acts, nil)
	positions.On("ListBySymbol", "OVR").Return([]models.Position{
		{AccountNumber: "111", Symbol: "OVR", OpenQuantity: 10, AverageEntryPrice: 100, CurrentPrice: 120},
	}, nil)
	policies.On("Get", "OVR").Return(override, nil)

	var applied models.DividendData
	positions.On("UpdateDividend", "111", "OVR", mock.Anything).Run(func(args mock.Arguments) {
		applied = args.Get(2).(models.DividendData)
	}).Return(nil)

	processor := NewDividendProcessor(policies, positions, activities)
	require.NoError(t, processor.ReconcileSymbol("OVR"))

	// The automated path must not write the policy at all.
	policies.AssertNotCalled(t, "Upsert", mock.Anything)

	// Positions carry the override's values, flag intact.
	assert.True(t, applied.MonthlyPerShare.Equal(decimal.NewFromFloat(0.50)))
	assert.True(t, applied.AnnualPerShare.Equal(decimal.NewFromInt(6)))
	assert.Equal(t, models.FrequencyMonthly, applied.Frequency)
	assert.True(t, applied.IsManualOverride)
}

func TestPerShareAmount_Fallbacks(t *testing.T) {
	// Embedded unit price wins.
	amt, err := perShareAmount(models.Activity{Price: 1.25, NetAmount: 125}, 0)
	require.NoError(t, err)
	assert.True(t, amt.Equal(decimal.NewFromFloat(1.25)))

	// No unit price: parse the share count out of the description.
	amt, err = perShareAmount(models.Activity{
		Description: "ENBRIDGE INC CASH DIV ON 150 SHS REC 02/14/25",
		NetAmount:   52.50,
	}, 0)
	require.NoError(t, err)
	assert.True(t, amt.Equal(decimal.NewFromFloat(0.35)), "got %s", amt)

	// No parseable description: divide by the open quantity.
	amt, err = perShareAmount(models.Activity{Description: "DIST", NetAmount: 30}, 120)
	require.NoError(t, err)
	assert.True(t, amt.Equal(decimal.NewFromFloat(0.25)))

	// Nothing to divide by is an error, not a panic.
	_, err = perShareAmount(models.Activity{Description: "DIST", NetAmount: 30}, 0)
	assert.Error(t, err)
}

func TestSharesFromDescription(t *testing.T) {
	shares, ok := sharesFromDescription("CASH DIV ON 1,250 SHS")
	require.True(t, ok)
	assert.True(t, shares.Equal(decimal.NewFromInt(1250)))

	shares, ok = sharesFromDescription("DIST ON 82.5 SHARES REC")
	require.True(t, ok)
	assert.True(t, shares.Equal(decimal.NewFromFloat(82.5)))

	_, ok = sharesFromDescription("BOND INTEREST PAYMENT")
	assert.False(t, ok)
}

func TestYield_GuardsDivisionByZero(t *testing.T) {
	assert.True(t, yield(decimal.NewFromInt(4), 0).IsZero())
	assert.True(t, yield(decimal.NewFromInt(4), -1).IsZero())
	assert.True(t, yield(decimal.NewFromInt(4), 100).Equal(decimal.NewFromInt(4)))
}

func TestMeanGapDays(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	acts := []models.Activity{
		{TradeDate: base},
		{TradeDate: base.AddDate(0, 0, 30)},
		{TradeDate: base.AddDate(0, 0, 90)},
		{TradeDate: base.AddDate(0, 0, 181)},
	}
	assert.InDelta(t, 60.33, meanGapDays(acts), 0.01)
	assert.Zero(t, meanGapDays(acts[:1]))
}

func TestReconcilePerson_SymbolFailureDoesNotAbortSiblings(t *testing.T) {
	policies := new(MockPolicyStore)
	positions := new(MockPositionReader)
	activities := new(MockActivityReader)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	good := []models.Activity{
		dividendActivity("GOOD", base, 1, 100),
		dividendActivity("GOOD", base.AddDate(0, 0, 30), 1, 100),
	}

	activities.On("SymbolsWithDividends", "Alice").Return([]string{"BAD", "GOOD"}, nil)
	// BAD has a dividend but no way to derive a per-share amount.
	activities.On("DividendsBySymbol", "BAD").Return([]models.Activity{
		{ID: "bad", Symbol: "BAD", Type: "Dividends", TradeDate: base, NetAmount: 10, Description: "DIST"},
	}, nil)
	activities.On("DividendsBySymbol", "GOOD").Return(good, nil)
	positions.On("ListBySymbol", "BAD").Return([]models.Position{}, nil)
	positions.On("ListBySymbol", "GOOD").Return([]models.Position{}, nil)
	policies.On("Get", "GOOD").Return(nil, store.ErrNotFound)
	policies.On("Upsert", mock.Anything).Return(nil)

	run := models.NewSyncRun("Alice", models.ScopeFull, "test")
	processor := NewDividendProcessor(policies, positions, activities)
	processor.ReconcilePerson("Alice", run)

	assert.Equal(t, 1, run.Counts.SymbolsReconciled)
	assert.Equal(t, 1, run.ErrorCount())
	assert.Equal(t, models.ErrCategoryValidation, run.Errors[0].Category)
}
