package notify

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradeyard/wallet-engine/internal/domain"
	"github.com/tradeyard/wallet-engine/internal/models"
)

// Notifier tells a user about wallet activity on their account. Delivery is
// best effort; callers must never let a notification failure affect the
// transfer that triggered it.
type Notifier interface {
	// TransferReceived notifies userID that a transfer was credited to one
	// of their wallets.
	TransferReceived(ctx context.Context, userID uuid.UUID, tx models.WalletTransaction) error
}

// LogNotifier writes notifications to the structured log. It stands in for
// a push or email channel in environments that have none configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) TransferReceived(ctx context.Context, userID uuid.UUID, tx models.WalletTransaction) error {
	zap.L().Info("transfer received",
		zap.String("user_id", userID.String()),
		zap.String("transaction_id", tx.ID.String()),
		zap.Int64("amount_micros", tx.Amount),
		zap.String("amount", domain.NewMoney(tx.Amount, tx.ToCurrency).String()),
	)
	return nil
}
