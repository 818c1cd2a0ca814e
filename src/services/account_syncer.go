package services

import (
	"context"
	"sync/atomic"

	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/logger"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/models"
)

// syncAccounts reconciles the person's upstream account list into local
// storage and returns the fresh set for downstream syncs. Unrecognized
// upstream account types land in the Other bucket with a warning, never an
// error.
func (s *SyncService) syncAccounts(ctx context.Context, person string, run *models.SyncRun, calls *atomic.Int64) ([]models.Account, error) {
	payloads, err := s.client.Accounts(ctx, person, calls)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	accounts := make([]models.Account, 0, len(payloads))
	for _, payload := range payloads {
		accType := models.NormalizeAccountType(payload.Type)
		if accType == models.AccountTypeOther && payload.Type != "" {
			logger.L.Warn("Unrecognized upstream account type, defaulting to Other",
				"person", person, "account", payload.Number, "rawType", payload.Type)
		}
		account := models.Account{
			Number:       payload.Number,
			PersonName:   person,
			Type:         accType,
			RawType:      payload.Type,
			Status:       payload.Status,
			IsPrimary:    payload.IsPrimary,
			LastSyncedAt: now,
		}
		if err := s.accounts.Upsert(&account); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
		run.Counts.Accounts++
	}
	return accounts, nil
}
