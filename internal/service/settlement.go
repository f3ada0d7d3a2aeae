package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tradeyard/wallet-engine/internal/domain"
	"github.com/tradeyard/wallet-engine/internal/observability"
	"github.com/tradeyard/wallet-engine/internal/repository"
	"github.com/tradeyard/wallet-engine/internal/settings"
)

// SettlementService completes transfers that were left PENDING because the
// destination credit needed external settlement. Each batch claims pending
// INCOMING legs with SKIP LOCKED, credits the destination wallet, and moves
// both legs to COMPLETED in one transaction.
type SettlementService struct {
	store    QueryStore
	settings settings.Provider
}

func NewSettlementService(store QueryStore, settings settings.Provider) *SettlementService {
	return &SettlementService{store: store, settings: settings}
}

// SettleBatch settles up to batchSize pending transfers and returns how many
// it completed. Concurrent workers skip each other's claims, so calling this
// from several processes is safe.
func (s *SettlementService) SettleBatch(ctx context.Context, batchSize int32) (int, error) {
	if batchSize <= 0 {
		batchSize = 50
	}

	settled := 0
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		pending, err := qtx.GetPendingIncomingTransfers(ctx, batchSize)
		if err != nil {
			return fmt.Errorf("claim pending transfers: %w", err)
		}

		for _, leg := range pending {
			if err := s.settleOne(ctx, qtx, leg); err != nil {
				return err
			}
			settled++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if settled > 0 {
		observability.AddSettled(settled)
		zap.L().Info("settled pending transfers", zap.Int("count", settled))
	}
	return settled, nil
}

func (s *SettlementService) settleOne(ctx context.Context, qtx *repository.Queries, leg repository.WalletTransaction) error {
	wallet, err := qtx.GetWalletByIDForUpdate(ctx, leg.WalletID)
	if err != nil {
		return fmt.Errorf("lock destination wallet: %w", err)
	}

	precision := s.settings.CurrencyPrecision(domain.WalletType(wallet.Type), wallet.Currency)
	rows, err := qtx.UpdateWalletBalance(ctx, repository.UpdateWalletBalanceParams{
		Delta: domain.RoundToPrecision(leg.Amount, precision),
		ID:    wallet.ID,
	})
	if err != nil {
		return fmt.Errorf("credit settled wallet: %w", err)
	}
	if err := requireExactlyOne(rows, "credit settled wallet"); err != nil {
		return err
	}

	if err := transitionTransferState(ctx, qtx, repository.FromPgUUID(leg.ID), domain.TxStatusCompleted); err != nil {
		return err
	}
	if leg.LinkedID.Valid {
		if err := transitionTransferState(ctx, qtx, repository.FromPgUUID(leg.LinkedID), domain.TxStatusCompleted); err != nil {
			return err
		}
	}
	return nil
}
