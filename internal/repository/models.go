package repository

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// Row types mirror the database schema one to one. Services convert them to
// internal/models types at the boundary.

type User struct {
	ID        pgtype.UUID
	Username  string
	Email     string
	CreatedAt pgtype.Timestamptz
}

type Wallet struct {
	ID        pgtype.UUID
	UserID    pgtype.UUID
	Type      string
	Currency  string
	Balance   int64
	Status    string
	Chains    []byte // JSONB chain map, NULL for non-ECO wallets
	CreatedAt pgtype.Timestamptz
}

type WalletTransaction struct {
	ID           pgtype.UUID
	UserID       pgtype.UUID
	WalletID     pgtype.UUID
	Type         string
	Amount       int64
	Fee          int64
	FromCurrency string
	ToCurrency   string
	FromWalletID pgtype.UUID
	ToWalletID   pgtype.UUID
	Description  string
	Status       string
	LinkedID     pgtype.UUID
	CreatedAt    pgtype.Timestamptz
	CompletedAt  pgtype.Timestamptz
}

type LedgerEntry struct {
	ID        pgtype.UUID
	WalletID  pgtype.UUID
	Chain     string
	Currency  string
	Delta     int64
	CreatedAt pgtype.Timestamptz
}

type AdminProfit struct {
	ID            pgtype.UUID
	UserID        pgtype.UUID
	TransactionID pgtype.UUID
	Amount        int64
	Currency      string
	FromType      string
	ToType        string
	CreatedAt     pgtype.Timestamptz
}

type Setting struct {
	Key   string
	Value string
}

type Currency struct {
	Code      string
	Type      string
	Precision int32
}

type IdempotencyKey struct {
	IdempotencyKey string
	RequestHash    string
	Method         string
	Path           string
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
	InProgress     bool
	CreatedAt      pgtype.Timestamptz
}
