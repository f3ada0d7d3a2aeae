package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tradeyard/wallet-engine/internal/observability"
	"github.com/tradeyard/wallet-engine/internal/repository"
)

// ReconciliationService cross-checks ECO wallet aggregates against their
// per-chain ledgers. Fees and pending settlements make small, explainable
// gaps; anything beyond those is drift worth alerting on.
type ReconciliationService struct {
	store QueryStore
}

func NewReconciliationService(store QueryStore) *ReconciliationService {
	return &ReconciliationService{store: store}
}

// WalletDrift describes one wallet whose aggregate balance does not match
// the sum of its chain balances after accounting for flows that bypass the
// chain ledger.
type WalletDrift struct {
	WalletID string
	UserID   string
	Currency string
	// Drift is aggregate minus chain sum minus net off-chain inflows, in
	// micros. Positive drift means the aggregate claims funds no chain
	// holds.
	Drift int64
	// Pending is the amount still awaiting settlement into this wallet.
	Pending int64
}

const reconcilePageSize = 200

// Reconcile scans every ECO wallet and returns those with unexplained
// drift. It reads page by page in short transactions so a long scan never
// holds locks across the whole table.
func (s *ReconciliationService) Reconcile(ctx context.Context) ([]WalletDrift, error) {
	var drifts []WalletDrift
	var offset int32

	for {
		var page []repository.Wallet
		err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
			var err error
			page, err = qtx.ListEcoWallets(ctx, repository.ListEcoWalletsParams{
				Limit:  reconcilePageSize,
				Offset: offset,
			})
			if err != nil {
				return fmt.Errorf("list chain-backed wallets: %w", err)
			}

			for _, row := range page {
				drift, err := s.walletDrift(ctx, qtx, row)
				if err != nil {
					return err
				}
				if drift != nil {
					drifts = append(drifts, *drift)
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if len(page) < reconcilePageSize {
			break
		}
		offset += reconcilePageSize
	}

	observability.SetDriftedWallets(len(drifts))
	for _, d := range drifts {
		zap.L().Warn("wallet aggregate drifted from chain ledger",
			zap.String("wallet_id", d.WalletID),
			zap.String("currency", d.Currency),
			zap.Int64("drift_micros", d.Drift),
			zap.Int64("pending_micros", d.Pending),
		)
	}
	return drifts, nil
}

func (s *ReconciliationService) walletDrift(ctx context.Context, qtx *repository.Queries, row repository.Wallet) (*WalletDrift, error) {
	wallet, err := walletFromRow(row)
	if err != nil {
		return nil, err
	}

	pending, err := qtx.SumPendingIncoming(ctx, row.ID)
	if err != nil {
		return nil, fmt.Errorf("sum pending credits: %w", err)
	}
	offchain, err := qtx.SumOffChainFlows(ctx, row.ID)
	if err != nil {
		return nil, fmt.Errorf("sum off-chain flows: %w", err)
	}

	// Settled transfers from wallets without a chain ledger raise the
	// aggregate without touching the chains; subtract them out. Receivers
	// of chain transfers gain net aggregate but gross chain details, so
	// negative drift up to accumulated fees is expected. Anything positive
	// means the aggregate claims funds no chain holds.
	drift := wallet.Balance - wallet.Chains.Sum() - offchain
	if drift <= 0 {
		return nil, nil
	}
	return &WalletDrift{
		WalletID: wallet.ID.String(),
		UserID:   wallet.UserID.String(),
		Currency: wallet.Currency,
		Drift:    drift,
		Pending:  pending,
	}, nil
}
