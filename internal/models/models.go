package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tradeyard/wallet-engine/internal/domain"
	"github.com/tradeyard/wallet-engine/internal/ledger"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Wallet is one balance container owned by a user. ECO wallets additionally
// carry a per-chain balance map; for every other type Chains is nil.
type Wallet struct {
	ID        uuid.UUID            `json:"id"`
	UserID    uuid.UUID            `json:"user_id"`
	Type      domain.WalletType    `json:"type"`
	Currency  string               `json:"currency"`
	Balance   int64                `json:"balance"` // micros
	Status    string               `json:"status"`
	Chains    ledger.ChainBalances `json:"chains,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// WalletTransaction is one leg of a transfer. Every transfer writes exactly
// two: an OUTGOING_TRANSFER on the source wallet carrying the gross amount
// and fee, and an INCOMING_TRANSFER on the destination wallet carrying the
// net receivable with zero fee. Rows are immutable except for the
// PENDING -> COMPLETED status transition performed by settlement.
type WalletTransaction struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	WalletID     uuid.UUID  `json:"wallet_id"`
	Type         string     `json:"type"`
	Amount       int64      `json:"amount"` // micros
	Fee          int64      `json:"fee"`    // micros
	FromCurrency string     `json:"from_currency"`
	ToCurrency   string     `json:"to_currency"`
	FromWalletID uuid.UUID  `json:"from_wallet_id"`
	ToWalletID   uuid.UUID  `json:"to_wallet_id"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	LinkedID     *uuid.UUID `json:"linked_id,omitempty"` // incoming leg -> outgoing leg
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// AdminProfit records the platform's take of a transfer fee. Append-only,
// written only when the fee is positive.
type AdminProfit struct {
	ID            uuid.UUID         `json:"id"`
	UserID        uuid.UUID         `json:"user_id"`
	TransactionID uuid.UUID         `json:"transaction_id"` // outgoing leg
	Amount        int64             `json:"amount"`         // micros
	Currency      string            `json:"currency"`
	FromType      domain.WalletType `json:"from_type"`
	ToType        domain.WalletType `json:"to_type"`
	CreatedAt     time.Time         `json:"created_at"`
}

// LedgerEntry is the private ledger: an append-only audit row recording one
// signed per-chain balance delta, independent of the wallet's aggregate
// balance field.
type LedgerEntry struct {
	ID        uuid.UUID `json:"id"`
	WalletID  uuid.UUID `json:"wallet_id"`
	Chain     string    `json:"chain"`
	Currency  string    `json:"currency"`
	Delta     int64     `json:"delta"` // micros, negative for debits
	CreatedAt time.Time `json:"created_at"`
}

// Currency is the platform currency metadata consumed by the balance
// updater for precision rounding.
type Currency struct {
	Code      string            `json:"code"`
	Type      domain.WalletType `json:"type"`
	Precision int32             `json:"precision"`
}

// Setting is one key/value row of the process-wide settings table.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
