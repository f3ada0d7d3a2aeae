package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/tradeyard/wallet-engine/internal/domain"
	"github.com/tradeyard/wallet-engine/internal/ledger"
	"github.com/tradeyard/wallet-engine/internal/models"
	"github.com/tradeyard/wallet-engine/internal/notify"
	"github.com/tradeyard/wallet-engine/internal/observability"
	"github.com/tradeyard/wallet-engine/internal/repository"
	"github.com/tradeyard/wallet-engine/internal/settings"
)

// TransferService is the transfer orchestrator: it resolves wallets,
// computes fees, delegates to the chain ledger and balance updater, and
// records both transfer legs inside one atomic transaction.
type TransferService struct {
	store    QueryStore
	settings settings.Provider
	notifier notify.Notifier
}

func NewTransferService(store QueryStore, settings settings.Provider, notifier notify.Notifier) *TransferService {
	return &TransferService{
		store:    store,
		settings: settings,
		notifier: notifier,
	}
}

// TransferRequest is the core-facing transfer input. Amount is in micros.
type TransferRequest struct {
	UserID       uuid.UUID
	TransferType string // "client" or "wallet"
	ClientID     *uuid.UUID
	FromType     domain.WalletType
	ToType       domain.WalletType
	FromCurrency string
	ToCurrency   string
	Amount       int64
}

// TransferResult carries both persisted legs of a successful transfer.
type TransferResult struct {
	FromTransfer models.WalletTransaction `json:"from_transfer"`
	ToTransfer   models.WalletTransaction `json:"to_transfer"`
	FromType     domain.WalletType        `json:"from_type"`
	ToType       domain.WalletType        `json:"to_type"`
	FromCurrency string                   `json:"from_currency"`
	ToCurrency   string                   `json:"to_currency"`
}

// requiresExternalSettlement reports whether the destination credit must be
// deferred until an external settlement process completes the transfer.
// Moving funds into a chain-backed wallet from a wallet without a chain
// ledger needs an on-chain allocation first; client transfers and ECO-to-ECO
// moves settle instantly.
func requiresExternalSettlement(transferType string, fromType, toType domain.WalletType) bool {
	return transferType == domain.TransferTypeWallet &&
		toType.HasChainLedger() && !fromType.HasChainLedger()
}

// usesChainLedger reports whether the transfer moves per-chain balances.
func usesChainLedger(transferType string, fromType, toType domain.WalletType) bool {
	if transferType == domain.TransferTypeClient {
		return true
	}
	return fromType.HasChainLedger() && toType.HasChainLedger()
}

func (r *TransferRequest) normalize() {
	if r.ToCurrency == "" {
		r.ToCurrency = r.FromCurrency
	}
	if r.ToType == "" {
		r.ToType = r.FromType
	}
}

func (r *TransferRequest) validate() error {
	if r.UserID == uuid.Nil {
		return domain.E(domain.KindUnauthorized, "missing caller identity")
	}
	if r.Amount <= 0 {
		return domain.E(domain.KindValidation, "amount must be positive")
	}
	if !r.FromType.Valid() {
		return domain.E(domain.KindValidation, "unknown source wallet type: %s", r.FromType)
	}
	if !r.ToType.Valid() {
		return domain.E(domain.KindValidation, "unknown destination wallet type: %s", r.ToType)
	}
	if r.FromCurrency == "" {
		return domain.E(domain.KindValidation, "from currency is required")
	}
	if r.ToCurrency != r.FromCurrency {
		// Transfers move value between wallets, they never convert it.
		return domain.E(domain.KindValidation, "currency conversion is not supported")
	}

	switch r.TransferType {
	case domain.TransferTypeClient:
		// Client transfers move funds between two users' chain-backed
		// wallets; the route table does not apply.
		if r.ClientID == nil || *r.ClientID == uuid.Nil {
			return domain.E(domain.KindValidation, "client id is required for client transfers")
		}
		if *r.ClientID == r.UserID {
			return domain.E(domain.KindValidation, "cannot transfer to yourself")
		}
		if r.FromType != domain.WalletTypeEco {
			return domain.E(domain.KindValidation, "client transfers require an ECO source wallet")
		}
		if r.ToType != domain.WalletTypeEco {
			return domain.E(domain.KindValidation, "client transfers require an ECO destination wallet")
		}
	case domain.TransferTypeWallet:
		if !domain.RouteAllowed(r.FromType, r.ToType) {
			return domain.ErrInvalidRoute
		}
	default:
		return domain.E(domain.KindValidation, "unknown transfer type: %s", r.TransferType)
	}
	return nil
}

// Transfer runs the full transfer state machine inside one atomic
// transaction: validate, resolve wallets, check balance, compute fee, mutate
// ledger and balances, record both legs, record admin profit. Any failure
// rolls the whole unit back; no partial state is observable.
func (s *TransferService) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	req.normalize()
	if err := req.validate(); err != nil {
		return nil, err
	}

	destUserID := req.UserID
	if req.TransferType == domain.TransferTypeClient {
		destUserID = *req.ClientID
	}

	feeBps := s.settings.TransferFeeBps(req.TransferType)
	precision := s.settings.CurrencyPrecision(req.ToType, req.ToCurrency)

	// The debited amount must equal the requested amount exactly, so amounts
	// finer than the source currency's precision are rejected up front
	// instead of being silently rounded.
	fromPrecision := s.settings.CurrencyPrecision(req.FromType, req.FromCurrency)
	if domain.RoundToPrecision(req.Amount, fromPrecision) != req.Amount {
		return nil, domain.E(domain.KindValidation, "amount is finer than the %s precision of %d decimal places", req.FromCurrency, fromPrecision)
	}

	status := domain.TxStatusCompleted
	if requiresExternalSettlement(req.TransferType, req.FromType, req.ToType) {
		status = domain.TxStatusPending
	}

	var result TransferResult
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		if req.TransferType == domain.TransferTypeClient {
			if _, err := qtx.GetUser(ctx, repository.ToPgUUID(destUserID)); err != nil {
				if err == pgx.ErrNoRows {
					return domain.ErrUserNotFound
				}
				return fmt.Errorf("lookup destination user: %w", err)
			}
		}

		from, to, err := s.resolveWallets(ctx, qtx, req, destUserID)
		if err != nil {
			return err
		}

		if from.Balance < req.Amount {
			return domain.ErrInsufficientFunds
		}

		fee := domain.ComputeFee(req.Amount, feeBps, precision)
		net := domain.RoundToPrecision(req.Amount-fee, precision)

		if usesChainLedger(req.TransferType, req.FromType, req.ToType) {
			if err := s.moveChainFunds(ctx, qtx, &from, &to, req.Amount); err != nil {
				return err
			}
		}

		// Aggregate balances: source loses the gross amount; the
		// destination gains the net receivable, deferred while the transfer
		// is pending external settlement. Both deltas match the recorded
		// legs exactly.
		rows, err := qtx.UpdateWalletBalance(ctx, repository.UpdateWalletBalanceParams{
			Delta: -req.Amount,
			ID:    repository.ToPgUUID(from.ID),
		})
		if err != nil {
			return fmt.Errorf("debit source wallet: %w", err)
		}
		if err := requireExactlyOne(rows, "debit source wallet"); err != nil {
			return err
		}

		if status == domain.TxStatusCompleted {
			rows, err = qtx.UpdateWalletBalance(ctx, repository.UpdateWalletBalanceParams{
				Delta: net,
				ID:    repository.ToPgUUID(to.ID),
			})
			if err != nil {
				return fmt.Errorf("credit destination wallet: %w", err)
			}
			if err := requireExactlyOne(rows, "credit destination wallet"); err != nil {
				return err
			}
		}

		outgoing, incoming, err := s.recordTransactions(ctx, qtx, req, from, to, fee, net, status)
		if err != nil {
			return err
		}

		if fee > 0 {
			err = qtx.InsertAdminProfit(ctx, repository.InsertAdminProfitParams{
				ID:            repository.ToPgUUID(uuid.New()),
				UserID:        repository.ToPgUUID(req.UserID),
				TransactionID: outgoing.ID,
				Amount:        fee,
				Currency:      req.FromCurrency,
				FromType:      string(req.FromType),
				ToType:        string(req.ToType),
			})
			if err != nil {
				return fmt.Errorf("record admin profit: %w", err)
			}
		}

		result = TransferResult{
			FromTransfer: transactionFromRow(outgoing),
			ToTransfer:   transactionFromRow(incoming),
			FromType:     req.FromType,
			ToType:       req.ToType,
			FromCurrency: req.FromCurrency,
			ToCurrency:   req.ToCurrency,
		}
		return nil
	})
	if err != nil {
		observability.IncrementTransfer(req.TransferType, "failed")
		return nil, err
	}

	observability.IncrementTransfer(req.TransferType, strings.ToLower(status))

	if req.TransferType == domain.TransferTypeClient && s.notifier != nil {
		// Fire and forget: notification failure never affects the transfer.
		go func(res TransferResult) {
			if err := s.notifier.TransferReceived(context.Background(), destUserID, res.ToTransfer); err != nil {
				zap.L().Warn("transfer notification failed",
					zap.Error(err),
					zap.String("transaction_id", res.ToTransfer.ID.String()),
				)
			}
		}(result)
	}

	return &result, nil
}

// resolveWallets locks and loads both wallets. To keep concurrent opposing
// transfers from deadlocking, the two rows are acquired in a deterministic
// order derived from their lookup keys.
func (s *TransferService) resolveWallets(ctx context.Context, qtx *repository.Queries, req TransferRequest, destUserID uuid.UUID) (models.Wallet, models.Wallet, error) {
	srcKey := walletLockKey(req.UserID, req.FromType, req.FromCurrency)
	dstKey := walletLockKey(destUserID, req.ToType, req.ToCurrency)

	var from, to models.Wallet
	var err error
	if srcKey <= dstKey {
		from, err = getSourceWallet(ctx, qtx, req.UserID, req.FromType, req.FromCurrency)
		if err != nil {
			return models.Wallet{}, models.Wallet{}, err
		}
		to, err = getOrCreateWallet(ctx, qtx, destUserID, req.ToType, req.ToCurrency)
		if err != nil {
			return models.Wallet{}, models.Wallet{}, err
		}
	} else {
		to, err = getOrCreateWallet(ctx, qtx, destUserID, req.ToType, req.ToCurrency)
		if err != nil {
			return models.Wallet{}, models.Wallet{}, err
		}
		from, err = getSourceWallet(ctx, qtx, req.UserID, req.FromType, req.FromCurrency)
		if err != nil {
			return models.Wallet{}, models.Wallet{}, err
		}
	}

	if from.ID == to.ID {
		return models.Wallet{}, models.Wallet{}, domain.E(domain.KindValidation, "cannot transfer to the same wallet")
	}
	return from, to, nil
}

func walletLockKey(userID uuid.UUID, walletType domain.WalletType, currency string) string {
	return userID.String() + "/" + string(walletType) + "/" + currency
}

// moveChainFunds deducts the gross amount from the source chain map, credits
// the resulting deduction details to the destination when it is chain
// backed, and mirrors every chain-level delta into the private ledger.
func (s *TransferService) moveChainFunds(ctx context.Context, qtx *repository.Queries, from, to *models.Wallet, amount int64) error {
	if from.Chains == nil {
		return domain.ErrInsufficientFunds
	}

	details, err := ledger.Deduct(from.Chains, amount)
	if err != nil {
		return err
	}
	if err := persistChains(ctx, qtx, from); err != nil {
		return err
	}
	for _, d := range details {
		err := qtx.InsertLedgerEntry(ctx, repository.InsertLedgerEntryParams{
			ID:       repository.ToPgUUID(uuid.New()),
			WalletID: repository.ToPgUUID(from.ID),
			Chain:    d.Chain,
			Currency: from.Currency,
			Delta:    -d.Amount,
		})
		if err != nil {
			return fmt.Errorf("record chain debit: %w", err)
		}
	}

	if !to.Type.HasChainLedger() {
		return nil
	}
	if to.Chains == nil {
		to.Chains = ledger.ChainBalances{}
	}
	ledger.Credit(to.Chains, details)
	if err := persistChains(ctx, qtx, to); err != nil {
		return err
	}
	for _, d := range details {
		err := qtx.InsertLedgerEntry(ctx, repository.InsertLedgerEntryParams{
			ID:       repository.ToPgUUID(uuid.New()),
			WalletID: repository.ToPgUUID(to.ID),
			Chain:    d.Chain,
			Currency: to.Currency,
			Delta:    d.Amount,
		})
		if err != nil {
			return fmt.Errorf("record chain credit: %w", err)
		}
	}
	return nil
}

// recordTransactions persists the symmetric pair of transfer legs: OUTGOING
// with the gross amount and fee on the source wallet, INCOMING with the net
// receivable and zero fee on the destination, linked to the outgoing leg.
func (s *TransferService) recordTransactions(ctx context.Context, qtx *repository.Queries, req TransferRequest, from, to models.Wallet, fee, net int64, status string) (repository.WalletTransaction, repository.WalletTransaction, error) {
	var zero repository.WalletTransaction

	description := fmt.Sprintf("Transfer from %s to %s wallet", req.FromType, req.ToType)
	if req.TransferType == domain.TransferTypeClient {
		description = fmt.Sprintf("Transfer to user %s", to.UserID)
	}

	outgoing, err := qtx.CreateWalletTransaction(ctx, repository.CreateWalletTransactionParams{
		ID:           repository.ToPgUUID(uuid.New()),
		UserID:       repository.ToPgUUID(from.UserID),
		WalletID:     repository.ToPgUUID(from.ID),
		Type:         domain.TxTypeOutgoingTransfer,
		Amount:       req.Amount,
		Fee:          fee,
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
		FromWalletID: repository.ToPgUUID(from.ID),
		ToWalletID:   repository.ToPgUUID(to.ID),
		Description:  description,
		Status:       status,
	})
	if err != nil {
		return zero, zero, fmt.Errorf("record outgoing transfer: %w", err)
	}

	incomingDescription := description
	if req.TransferType == domain.TransferTypeClient {
		incomingDescription = fmt.Sprintf("Transfer from user %s", from.UserID)
	}
	incoming, err := qtx.CreateWalletTransaction(ctx, repository.CreateWalletTransactionParams{
		ID:           repository.ToPgUUID(uuid.New()),
		UserID:       repository.ToPgUUID(to.UserID),
		WalletID:     repository.ToPgUUID(to.ID),
		Type:         domain.TxTypeIncomingTransfer,
		Amount:       net,
		Fee:          0,
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
		FromWalletID: repository.ToPgUUID(from.ID),
		ToWalletID:   repository.ToPgUUID(to.ID),
		Description:  incomingDescription,
		Status:       status,
		LinkedID:     outgoing.ID,
	})
	if err != nil {
		return zero, zero, fmt.Errorf("record incoming transfer: %w", err)
	}
	return outgoing, incoming, nil
}
