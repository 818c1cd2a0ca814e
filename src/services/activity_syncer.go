package services

import (
	"context"
	"sync/atomic"

	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/models"
)

// syncActivities pulls the account's transactions over the configured
// lookback window. The deterministic activity key makes the upsert idempotent:
// re-fetching the same upstream transaction never produces a duplicate.
func (s *SyncService) syncActivities(ctx context.Context, person string, account models.Account, run *models.SyncRun, calls *atomic.Int64) error {
	end := s.clock.Now()
	start := end.AddDate(0, 0, -s.lookbackDays)

	payloads, err := s.client.Activities(ctx, person, account.Number, start, end, calls)
	if err != nil {
		return err
	}

	for _, payload := range payloads {
		activity := models.Activity{
			ID:             models.ActivityID(account.Number, payload.TradeDate, payload.Type, payload.Symbol, payload.NetAmount),
			AccountNumber:  account.Number,
			TradeDate:      payload.TradeDate,
			SettlementDate: payload.SettlementDate,
			Type:           payload.Type,
			Action:         payload.Action,
			Symbol:         payload.Symbol,
			SymbolID:       payload.SymbolID,
			Description:    payload.Description,
			Quantity:       payload.Quantity,
			Price:          payload.Price,
			GrossAmount:    payload.GrossAmount,
			Commission:     payload.Commission,
			NetAmount:      payload.NetAmount,
			Currency:       payload.Currency,
		}
		inserted, err := s.activities.Insert(&activity)
		if err != nil {
			run.AddError(models.ErrCategoryPersistence, "inserting activity "+activity.ID, err.Error())
			continue
		}
		if inserted {
			run.Counts.ActivitiesNew++
		}
	}
	return nil
}
