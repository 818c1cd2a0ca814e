package services

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/logger"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/models"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/questrade"
)

// CandleService backfills "yesterday's close" per held symbol from a short
// window of daily price bars. It shares the client's single-refresh-and-retry
// credential contract.
type CandleService struct {
	client     BrokerageClient
	positions  PositionStore
	clock      Clock
	windowDays int
}

// NewCandleService builds the backfiller. windowDays is the calendar window
// requested per symbol; several days, to survive weekends and holidays.
func NewCandleService(client BrokerageClient, positions PositionStore, clock Clock, windowDays int) *CandleService {
	if windowDays < 3 {
		windowDays = 7
	}
	return &CandleService{client: client, positions: positions, clock: clock, windowDays: windowDays}
}

// Backfill fetches bars for every distinct symbol across the person's
// positions. A symbol with fewer than two resolvable bars is recorded as
// skipped, not failed, and sibling symbols always proceed.
func (c *CandleService) Backfill(ctx context.Context, person string, run *models.SyncRun, calls *atomic.Int64) {
	refs, err := c.positions.SymbolRefs(person)
	if err != nil {
		run.AddError(models.ErrCategoryPersistence, "listing symbols for candle backfill", err.Error())
		return
	}

	end := c.clock.Now()
	start := end.AddDate(0, 0, -c.windowDays)

	for _, ref := range refs {
		candles, err := c.client.Candles(ctx, person, ref.SymbolID, start, end, calls)
		if err != nil {
			run.AddError(models.ErrCategoryNetwork, "fetching candles for "+ref.Symbol, err.Error())
			continue
		}
		prevClose, ok := PreviousClose(candles)
		if !ok {
			logger.L.Debug("Not enough candles to derive previous close, skipping", "symbol", ref.Symbol, "bars", len(candles))
			run.Counts.CandlesSkipped++
			continue
		}
		if err := c.positions.UpdatePrevClose(ref.Symbol, prevClose); err != nil {
			run.AddError(models.ErrCategoryPersistence, "storing previous close for "+ref.Symbol, err.Error())
			continue
		}
		run.Counts.CandlesBackfilled++
	}
}

// PreviousClose selects the second most recent bar's close. The most recent
// bar may still be forming while the market is open, so it is never trusted
// as a completed close.
func PreviousClose(candles []questrade.CandlePayload) (float64, bool) {
	if len(candles) < 2 {
		return 0, false
	}
	sorted := make([]questrade.CandlePayload, len(candles))
	copy(sorted, candles)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].End.After(sorted[j].End) })
	return sorted[1].Close, true
}
