package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tradeyard/wallet-engine/internal/domain"
	"github.com/tradeyard/wallet-engine/internal/ledger"
	"github.com/tradeyard/wallet-engine/internal/models"
	"github.com/tradeyard/wallet-engine/internal/repository"
)

// WalletService resolves and reads wallets outside the transfer path.
type WalletService struct {
	store QueryStore
}

func NewWalletService(store QueryStore) *WalletService {
	return &WalletService{store: store}
}

// GetWallet returns a user's wallet for the given type and currency.
func (s *WalletService) GetWallet(ctx context.Context, userID uuid.UUID, walletType domain.WalletType, currency string) (*models.Wallet, error) {
	if !walletType.Valid() {
		return nil, domain.E(domain.KindValidation, "unknown wallet type: %s", walletType)
	}
	row, err := s.store.Queries().GetWallet(ctx, repository.GetWalletParams{
		UserID:   repository.ToPgUUID(userID),
		Currency: currency,
		Type:     string(walletType),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	wallet, err := walletFromRow(row)
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// GetLedger returns the private ledger entries for a user's wallet, newest
// first.
func (s *WalletService) GetLedger(ctx context.Context, userID uuid.UUID, walletType domain.WalletType, currency string, limit, offset int32) ([]models.LedgerEntry, error) {
	wallet, err := s.GetWallet(ctx, userID, walletType, currency)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.store.Queries().ListLedgerEntries(ctx, repository.ListLedgerEntriesParams{
		WalletID: repository.ToPgUUID(wallet.ID),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	entries := make([]models.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, models.LedgerEntry{
			ID:        repository.FromPgUUID(row.ID),
			WalletID:  repository.FromPgUUID(row.WalletID),
			Chain:     row.Chain,
			Currency:  row.Currency,
			Delta:     row.Delta,
			CreatedAt: row.CreatedAt.Time,
		})
	}
	return entries, nil
}

// ListTransactions returns the user's transfer legs, newest first.
func (s *WalletService) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]models.WalletTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.store.Queries().ListUserTransactions(ctx, repository.ListUserTransactionsParams{
		UserID: repository.ToPgUUID(userID),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	transactions := make([]models.WalletTransaction, 0, len(rows))
	for _, row := range rows {
		transactions = append(transactions, transactionFromRow(row))
	}
	return transactions, nil
}

// GetTransaction returns a single transfer leg. Legs belonging to other
// users are reported as not found.
func (s *WalletService) GetTransaction(ctx context.Context, userID, transactionID uuid.UUID) (*models.WalletTransaction, error) {
	row, err := s.store.Queries().GetWalletTransaction(ctx, repository.ToPgUUID(transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if repository.FromPgUUID(row.UserID) != userID {
		return nil, domain.ErrTransactionNotFound
	}
	tx := transactionFromRow(row)
	return &tx, nil
}

// getOrCreateWallet resolves or lazily creates the destination wallet inside
// the transfer's transaction scope. New wallets start with zero balance and
// active status; ECO wallets get an empty chain map.
func getOrCreateWallet(ctx context.Context, qtx *repository.Queries, userID uuid.UUID, walletType domain.WalletType, currency string) (models.Wallet, error) {
	row, err := qtx.GetWalletForUpdate(ctx, repository.GetWalletParams{
		UserID:   repository.ToPgUUID(userID),
		Currency: currency,
		Type:     string(walletType),
	})
	if err == nil {
		return walletFromRow(row)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Wallet{}, fmt.Errorf("lookup wallet: %w", err)
	}

	var chains []byte
	if walletType.HasChainLedger() {
		chains = []byte(`{}`)
	}
	row, err = qtx.CreateWallet(ctx, repository.CreateWalletParams{
		ID:       repository.ToPgUUID(uuid.New()),
		UserID:   repository.ToPgUUID(userID),
		Type:     string(walletType),
		Currency: currency,
		Balance:  0,
		Status:   domain.WalletStatusActive,
		Chains:   chains,
	})
	if err != nil {
		return models.Wallet{}, fmt.Errorf("create wallet: %w", err)
	}
	return walletFromRow(row)
}

// getSourceWallet resolves the transfer source under a row lock. ECO sources
// go through the ECO-specific lookup so the chain map is always loaded.
func getSourceWallet(ctx context.Context, qtx *repository.Queries, userID uuid.UUID, walletType domain.WalletType, currency string) (models.Wallet, error) {
	var (
		row repository.Wallet
		err error
	)
	if walletType == domain.WalletTypeEco {
		row, err = qtx.GetEcoWalletForUpdate(ctx, repository.GetEcoWalletForUpdateParams{
			UserID:   repository.ToPgUUID(userID),
			Currency: currency,
		})
	} else {
		row, err = qtx.GetWalletForUpdate(ctx, repository.GetWalletParams{
			UserID:   repository.ToPgUUID(userID),
			Currency: currency,
			Type:     string(walletType),
		})
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Wallet{}, domain.ErrWalletNotFound
		}
		return models.Wallet{}, fmt.Errorf("lookup source wallet: %w", err)
	}
	return walletFromRow(row)
}

func walletFromRow(row repository.Wallet) (models.Wallet, error) {
	w := models.Wallet{
		ID:        repository.FromPgUUID(row.ID),
		UserID:    repository.FromPgUUID(row.UserID),
		Type:      domain.WalletType(row.Type),
		Currency:  row.Currency,
		Balance:   row.Balance,
		Status:    row.Status,
		CreatedAt: row.CreatedAt.Time,
	}
	if len(row.Chains) > 0 {
		chains := ledger.ChainBalances{}
		if err := json.Unmarshal(row.Chains, &chains); err != nil {
			return models.Wallet{}, domain.Wrap(domain.KindInternal, err, fmt.Sprintf("decode chain balances for wallet %s", w.ID))
		}
		w.Chains = chains
	} else if w.Type.HasChainLedger() {
		w.Chains = ledger.ChainBalances{}
	}
	return w, nil
}

// persistChains writes a wallet's mutated chain map back as JSONB.
func persistChains(ctx context.Context, qtx *repository.Queries, wallet *models.Wallet) error {
	encoded, err := json.Marshal(wallet.Chains)
	if err != nil {
		return fmt.Errorf("encode chain balances: %w", err)
	}
	rows, err := qtx.UpdateWalletChains(ctx, repository.UpdateWalletChainsParams{
		Chains: encoded,
		ID:     repository.ToPgUUID(wallet.ID),
	})
	if err != nil {
		return fmt.Errorf("persist chain balances: %w", err)
	}
	return requireExactlyOne(rows, "persist chain balances")
}

func transactionFromRow(row repository.WalletTransaction) models.WalletTransaction {
	t := models.WalletTransaction{
		ID:           repository.FromPgUUID(row.ID),
		UserID:       repository.FromPgUUID(row.UserID),
		WalletID:     repository.FromPgUUID(row.WalletID),
		Type:         row.Type,
		Amount:       row.Amount,
		Fee:          row.Fee,
		FromCurrency: row.FromCurrency,
		ToCurrency:   row.ToCurrency,
		FromWalletID: repository.FromPgUUID(row.FromWalletID),
		ToWalletID:   repository.FromPgUUID(row.ToWalletID),
		Description:  row.Description,
		Status:       row.Status,
		LinkedID:     repository.FromPgUUIDPtr(row.LinkedID),
		CreatedAt:    row.CreatedAt.Time,
	}
	if row.CompletedAt.Valid {
		completed := row.CompletedAt.Time
		t.CompletedAt = &completed
	}
	return t
}
