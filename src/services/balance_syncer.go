package services

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/logger"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/models"
)

// syncBalances refreshes one account's per-currency balances. On the first
// sync of a new trading day (market time), the pre-update local values are
// snapshotted as the start-of-day baseline before the upstream update is
// applied. The account's denormalized summary is refreshed on every pass.
func (s *SyncService) syncBalances(ctx context.Context, person string, account models.Account, run *models.SyncRun, calls *atomic.Int64) error {
	payloads, err := s.client.Balances(ctx, person, account.Number, calls)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	today := now.Format("2006-01-02")
	var summary models.AccountSummary

	for _, payload := range payloads {
		existing, err := s.balances.Get(account.Number, payload.Currency)
		if err != nil {
			run.AddError(models.ErrCategoryPersistence, "loading balance "+account.Number+"/"+payload.Currency, err.Error())
			continue
		}

		balance := models.Balance{
			AccountNumber: account.Number,
			Currency:      payload.Currency,
			Cash:          payload.Cash,
			MarketValue:   payload.MarketValue,
			TotalEquity:   payload.TotalEquity,
			LastSyncedAt:  now,
		}

		switch {
		case existing == nil:
			// First sight of this balance: today's incoming values are the baseline.
			balance.SODCash = payload.Cash
			balance.SODMarketValue = payload.MarketValue
			balance.SODTotalEquity = payload.TotalEquity
			balance.SODDate = today
		case existing.SODDate != today:
			// New trading day: snapshot the pre-update values as the baseline.
			balance.SODCash = existing.Cash
			balance.SODMarketValue = existing.MarketValue
			balance.SODTotalEquity = existing.TotalEquity
			balance.SODDate = today
			logger.L.Debug("Start-of-day snapshot captured",
				"account", account.Number, "currency", payload.Currency, "date", today)
		default:
			balance.SODCash = existing.SODCash
			balance.SODMarketValue = existing.SODMarketValue
			balance.SODTotalEquity = existing.SODTotalEquity
			balance.SODDate = existing.SODDate
		}

		if err := s.balances.Upsert(&balance); err != nil {
			run.AddError(models.ErrCategoryPersistence, "upserting balance "+account.Number+"/"+payload.Currency, err.Error())
			continue
		}
		run.Counts.Balances++

		switch strings.ToUpper(payload.Currency) {
		case "CAD":
			summary.TotalEquityCAD = payload.TotalEquity
			summary.CashCAD = payload.Cash
			summary.MarketValueCAD = payload.MarketValue
		case "USD":
			summary.TotalEquityUSD = payload.TotalEquity
			summary.CashUSD = payload.Cash
			summary.MarketValueUSD = payload.MarketValue
		}
	}

	if err := s.accounts.UpdateSummary(account.Number, summary); err != nil {
		run.AddError(models.ErrCategoryPersistence, "updating summary for account "+account.Number, err.Error())
	}
	return nil
}
