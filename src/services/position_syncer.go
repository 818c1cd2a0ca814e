package services

import (
	"context"
	"sync/atomic"

	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/logger"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/models"
)

// syncPositions reconciles one account's upstream positions. Local positions
// the upstream no longer reports are deleted only when their locally-recorded
// open quantity is already zero; a non-zero holding the upstream stopped
// reporting is stale data and is flagged for manual review, never deleted.
func (s *SyncService) syncPositions(ctx context.Context, person string, account models.Account, run *models.SyncRun, calls *atomic.Int64) error {
	payloads, err := s.client.Positions(ctx, person, account.Number, calls)
	if err != nil {
		return err
	}

	local, err := s.positions.ListByAccount(account.Number)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	upstream := make(map[string]struct{}, len(payloads))
	for _, payload := range payloads {
		upstream[payload.Symbol] = struct{}{}
		position := models.Position{
			AccountNumber:      account.Number,
			Symbol:             payload.Symbol,
			SymbolID:           payload.SymbolID,
			OpenQuantity:       payload.OpenQuantity,
			AverageEntryPrice:  payload.AverageEntryPrice,
			CurrentPrice:       payload.CurrentPrice,
			CurrentMarketValue: payload.CurrentMarketValue,
			TotalCost:          payload.TotalCost,
			OpenPnL:            payload.OpenPnl,
			DayPnL:             payload.DayPnl,
			LastSyncedAt:       now,
		}
		if err := s.positions.Upsert(&position); err != nil {
			run.AddError(models.ErrCategoryPersistence, "upserting position "+account.Number+"/"+payload.Symbol, err.Error())
			continue
		}
		run.Counts.Positions++
	}

	for _, pos := range local {
		if _, present := upstream[pos.Symbol]; present {
			continue
		}
		if pos.OpenQuantity == 0 {
			if err := s.positions.Delete(account.Number, pos.Symbol); err != nil {
				run.AddError(models.ErrCategoryPersistence, "deleting closed position "+account.Number+"/"+pos.Symbol, err.Error())
				continue
			}
			run.Counts.PositionsDeleted++
			continue
		}
		// Upstream-absent but locally non-zero: stale, keep for review.
		if err := s.positions.MarkStale(account.Number, pos.Symbol); err != nil {
			run.AddError(models.ErrCategoryPersistence, "flagging stale position "+account.Number+"/"+pos.Symbol, err.Error())
			continue
		}
		logger.L.Warn("Position absent upstream but still open locally, flagged for review",
			"account", account.Number, "symbol", pos.Symbol, "openQuantity", pos.OpenQuantity)
		run.Counts.PositionsFlagged++
	}
	return nil
}
