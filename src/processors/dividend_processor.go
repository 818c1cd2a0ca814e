package processors

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/logger"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/models"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/store"
)

// PolicyStore is the slice of dividend-policy persistence the processor needs.
type PolicyStore interface {
	Get(symbol string) (*models.DividendPolicy, error)
	Upsert(p *models.DividendPolicy) error
}

// PositionReader reads and annotates positions per symbol.
type PositionReader interface {
	ListBySymbol(symbol string) ([]models.Position, error)
	UpdateDividend(accountNumber, symbol string, dd models.DividendData) error
}

// ActivityReader reads the recorded dividend history.
type ActivityReader interface {
	DividendsBySymbol(symbol string) ([]models.Activity, error)
	SymbolsWithDividends(person string) ([]string, error)
}

// DividendProcessor derives per-symbol dividend frequency and the normalized
// monthly per-share amount from the historical dividend record, honoring
// manual overrides on the symbol's policy.
type DividendProcessor struct {
	policies   PolicyStore
	positions  PositionReader
	activities ActivityReader
}

// NewDividendProcessor creates a new instance of DividendProcessor.
func NewDividendProcessor(policies PolicyStore, positions PositionReader, activities ActivityReader) *DividendProcessor {
	return &DividendProcessor{policies: policies, positions: positions, activities: activities}
}

// shareCountPattern matches a share count embedded in a dividend description,
// e.g. "CASH DIV ON 150 SHS" or "DIST ON 82.5 SHARES".
var shareCountPattern = regexp.MustCompile(`(?i)\b([\d,]+(?:\.\d+)?)\s*SH(?:S|ARES)?\b`)

// hundred is the percent scale for yields.
var hundred = decimal.NewFromInt(100)

// ReconcilePerson reconciles every symbol with recorded dividend activity in
// the person's accounts. Per-symbol failures are folded into the run and do
// not abort sibling symbols.
func (p *DividendProcessor) ReconcilePerson(person string, run *models.SyncRun) {
	symbols, err := p.activities.SymbolsWithDividends(person)
	if err != nil {
		run.AddError(models.ErrCategoryPersistence, "listing dividend symbols", err.Error())
		return
	}
	for _, symbol := range symbols {
		if err := p.ReconcileSymbol(symbol); err != nil {
			run.AddError(models.ErrCategoryValidation, fmt.Sprintf("reconciling dividends for %s", symbol), err.Error())
			continue
		}
		run.Counts.SymbolsReconciled++
	}
}

// ReconcileSymbol recomputes the symbol's dividend policy from its recorded
// payments and pushes the effective values onto every position quoting it.
func (p *DividendProcessor) ReconcileSymbol(symbol string) error {
	acts, err := p.activities.DividendsBySymbol(symbol)
	if err != nil {
		return err
	}
	if len(acts) == 0 {
		return nil
	}

	positions, err := p.positions.ListBySymbol(symbol)
	if err != nil {
		return err
	}

	detected, err := p.detect(acts, positionQuantity(positions))
	if err != nil {
		return err
	}

	// The override check happens immediately before the write: a manually
	// overridden policy wins and is never cleared or altered by this path.
	policy, err := p.policies.Get(symbol)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		// Treat lookup failures as no policy; the detected values still apply.
		logger.L.Warn("Dividend policy lookup failed, applying detected values", "symbol", symbol, "error", err)
		policy = nil
	}

	effective := detected
	manual := policy != nil && policy.IsManualOverride
	if manual {
		effective = models.DividendPolicy{
			Symbol:           symbol,
			Frequency:        policy.Frequency,
			MonthlyPerShare:  policy.MonthlyPerShare,
			AnnualPerShare:   policy.AnnualPerShare,
			IsManualOverride: true,
			Source:           models.PolicySourceManual,
		}
	} else {
		if err := p.policies.Upsert(&detected); err != nil {
			return err
		}
	}

	for _, pos := range positions {
		dd := models.DividendData{
			MonthlyPerShare:  effective.MonthlyPerShare,
			AnnualPerShare:   effective.AnnualPerShare,
			Frequency:        effective.Frequency,
			YieldOnCost:      yield(effective.AnnualPerShare, pos.AverageEntryPrice),
			CurrentYield:     yield(effective.AnnualPerShare, pos.CurrentPrice),
			IsManualOverride: manual,
		}
		if err := p.positions.UpdateDividend(pos.AccountNumber, pos.Symbol, dd); err != nil {
			return err
		}
	}
	return nil
}

// detect derives the frequency and normalized amounts from the payment
// history. The invariant annualPerShare == monthlyPerShare * 12 holds exactly
// for every detected frequency: the frequency label only decides the divisor
// that spreads one payment across its covered months.
func (p *DividendProcessor) detect(acts []models.Activity, fallbackQty float64) (models.DividendPolicy, error) {
	latest := acts[len(acts)-1]
	perShare, err := perShareAmount(latest, fallbackQty)
	if err != nil {
		return models.DividendPolicy{}, err
	}

	freq := models.FrequencyFromMeanGap(meanGapDays(acts))
	monthly := perShare.Div(decimal.NewFromInt(int64(freq.MonthsPerPayment())))
	return models.DividendPolicy{
		Symbol:          latest.Symbol,
		Frequency:       freq,
		MonthlyPerShare: monthly,
		AnnualPerShare:  monthly.Mul(decimal.NewFromInt(12)),
		Source:          models.PolicySourceAuto,
	}, nil
}

// perShareAmount resolves the most recent payment's per-share amount: the
// embedded unit price when present, else the net amount divided by a share
// count parsed from the description, else divided by the current open
// quantity.
func perShareAmount(act models.Activity, fallbackQty float64) (decimal.Decimal, error) {
	if act.Price > 0 {
		return decimal.NewFromFloat(act.Price), nil
	}
	net := decimal.NewFromFloat(act.NetAmount).Abs()
	if shares, ok := sharesFromDescription(act.Description); ok && shares.IsPositive() {
		return net.Div(shares), nil
	}
	if fallbackQty > 0 {
		return net.Div(decimal.NewFromFloat(fallbackQty)), nil
	}
	return decimal.Zero, fmt.Errorf("cannot determine per-share amount for activity %s", act.ID)
}

func sharesFromDescription(desc string) (decimal.Decimal, bool) {
	m := shareCountPattern.FindStringSubmatch(desc)
	if m == nil {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// meanGapDays computes the mean gap in days between consecutive payments.
// A single payment yields zero, which buckets to monthly; the next payment
// will correct the estimate.
func meanGapDays(acts []models.Activity) float64 {
	if len(acts) < 2 {
		return 0
	}
	var total time.Duration
	for i := 1; i < len(acts); i++ {
		total += acts[i].TradeDate.Sub(acts[i-1].TradeDate)
	}
	return total.Hours() / 24 / float64(len(acts)-1)
}

// yield computes annualPerShare / price * 100, guarded against division by zero.
func yield(annualPerShare decimal.Decimal, price float64) decimal.Decimal {
	if price <= 0 {
		return decimal.Zero
	}
	return annualPerShare.Div(decimal.NewFromFloat(price)).Mul(hundred)
}

// positionQuantity picks a representative open quantity for per-share
// fallback math, preferring the largest holding.
func positionQuantity(positions []models.Position) float64 {
	var max float64
	for _, p := range positions {
		if p.OpenQuantity > max {
			max = p.OpenQuantity
		}
	}
	return max
}
