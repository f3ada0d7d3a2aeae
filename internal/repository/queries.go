package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of pgx shared by a pool and a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries wraps all SQL used by the system. Obtain a transaction-scoped set
// via WithTx.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to the given transaction.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const getUser = `
SELECT id, username, email, created_at FROM users WHERE id = $1
`

func (q *Queries) GetUser(ctx context.Context, id pgtype.UUID) (User, error) {
	row := q.db.QueryRow(ctx, getUser, id)
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	return u, err
}

const createUser = `
INSERT INTO users (id, username, email, created_at)
VALUES ($1, $2, $3, NOW())
RETURNING id, username, email, created_at
`

type CreateUserParams struct {
	ID       pgtype.UUID
	Username string
	Email    string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.ID, arg.Username, arg.Email)
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	return u, err
}

const walletColumns = `id, user_id, type, currency, balance, status, chains, created_at`

func scanWallet(row pgx.Row) (Wallet, error) {
	var w Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Type, &w.Currency, &w.Balance, &w.Status, &w.Chains, &w.CreatedAt)
	return w, err
}

const getWallet = `
SELECT ` + walletColumns + `
FROM wallets
WHERE user_id = $1 AND currency = $2 AND type = $3
`

type GetWalletParams struct {
	UserID   pgtype.UUID
	Currency string
	Type     string
}

func (q *Queries) GetWallet(ctx context.Context, arg GetWalletParams) (Wallet, error) {
	return scanWallet(q.db.QueryRow(ctx, getWallet, arg.UserID, arg.Currency, arg.Type))
}

const getWalletForUpdate = getWallet + `
FOR UPDATE
`

// GetWalletForUpdate locks the wallet row for the duration of the enclosing
// transaction.
func (q *Queries) GetWalletForUpdate(ctx context.Context, arg GetWalletParams) (Wallet, error) {
	return scanWallet(q.db.QueryRow(ctx, getWalletForUpdate, arg.UserID, arg.Currency, arg.Type))
}

const getEcoWalletForUpdate = `
SELECT ` + walletColumns + `
FROM wallets
WHERE user_id = $1 AND currency = $2 AND type = 'ECO'
FOR UPDATE
`

type GetEcoWalletForUpdateParams struct {
	UserID   pgtype.UUID
	Currency string
}

// GetEcoWalletForUpdate is the ECO-specific lookup: it always loads the
// per-chain balance map alongside the aggregate balance.
func (q *Queries) GetEcoWalletForUpdate(ctx context.Context, arg GetEcoWalletForUpdateParams) (Wallet, error) {
	return scanWallet(q.db.QueryRow(ctx, getEcoWalletForUpdate, arg.UserID, arg.Currency))
}

const getWalletByID = `
SELECT ` + walletColumns + `
FROM wallets
WHERE id = $1
`

func (q *Queries) GetWalletByID(ctx context.Context, id pgtype.UUID) (Wallet, error) {
	return scanWallet(q.db.QueryRow(ctx, getWalletByID, id))
}

const getWalletByIDForUpdate = getWalletByID + `
FOR UPDATE
`

func (q *Queries) GetWalletByIDForUpdate(ctx context.Context, id pgtype.UUID) (Wallet, error) {
	return scanWallet(q.db.QueryRow(ctx, getWalletByIDForUpdate, id))
}

const createWallet = `
INSERT INTO wallets (id, user_id, type, currency, balance, status, chains, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
RETURNING ` + walletColumns

type CreateWalletParams struct {
	ID       pgtype.UUID
	UserID   pgtype.UUID
	Type     string
	Currency string
	Balance  int64
	Status   string
	Chains   []byte
}

func (q *Queries) CreateWallet(ctx context.Context, arg CreateWalletParams) (Wallet, error) {
	return scanWallet(q.db.QueryRow(ctx, createWallet,
		arg.ID, arg.UserID, arg.Type, arg.Currency, arg.Balance, arg.Status, arg.Chains))
}

const updateWalletBalance = `
UPDATE wallets SET balance = balance + $1 WHERE id = $2
`

type UpdateWalletBalanceParams struct {
	Delta int64
	ID    pgtype.UUID
}

// UpdateWalletBalance applies a signed delta in micros and returns the
// number of rows affected.
func (q *Queries) UpdateWalletBalance(ctx context.Context, arg UpdateWalletBalanceParams) (int64, error) {
	tag, err := q.db.Exec(ctx, updateWalletBalance, arg.Delta, arg.ID)
	return tag.RowsAffected(), err
}

const updateWalletChains = `
UPDATE wallets SET chains = $1 WHERE id = $2
`

type UpdateWalletChainsParams struct {
	Chains []byte
	ID     pgtype.UUID
}

func (q *Queries) UpdateWalletChains(ctx context.Context, arg UpdateWalletChainsParams) (int64, error) {
	tag, err := q.db.Exec(ctx, updateWalletChains, arg.Chains, arg.ID)
	return tag.RowsAffected(), err
}

const listEcoWallets = `
SELECT ` + walletColumns + `
FROM wallets
WHERE type = 'ECO'
ORDER BY created_at
LIMIT $1 OFFSET $2
`

type ListEcoWalletsParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListEcoWallets(ctx context.Context, arg ListEcoWalletsParams) ([]Wallet, error) {
	rows, err := q.db.Query(ctx, listEcoWallets, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

const transactionColumns = `id, user_id, wallet_id, type, amount, fee, from_currency, to_currency,
	from_wallet_id, to_wallet_id, description, status, linked_id, created_at, completed_at`

func scanTransaction(row pgx.Row) (WalletTransaction, error) {
	var t WalletTransaction
	err := row.Scan(&t.ID, &t.UserID, &t.WalletID, &t.Type, &t.Amount, &t.Fee,
		&t.FromCurrency, &t.ToCurrency, &t.FromWalletID, &t.ToWalletID,
		&t.Description, &t.Status, &t.LinkedID, &t.CreatedAt, &t.CompletedAt)
	return t, err
}

const createWalletTransaction = `
INSERT INTO wallet_transactions (id, user_id, wallet_id, type, amount, fee,
	from_currency, to_currency, from_wallet_id, to_wallet_id, description,
	status, linked_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
RETURNING ` + transactionColumns

type CreateWalletTransactionParams struct {
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
}

func (q *Queries) CreateWalletTransaction(ctx context.Context, arg CreateWalletTransactionParams) (WalletTransaction, error) {
	return scanTransaction(q.db.QueryRow(ctx, createWalletTransaction,
		arg.ID, arg.UserID, arg.WalletID, arg.Type, arg.Amount, arg.Fee,
		arg.FromCurrency, arg.ToCurrency, arg.FromWalletID, arg.ToWalletID,
		arg.Description, arg.Status, arg.LinkedID))
}

const getWalletTransaction = `
SELECT ` + transactionColumns + `
FROM wallet_transactions
WHERE id = $1
`

func (q *Queries) GetWalletTransaction(ctx context.Context, id pgtype.UUID) (WalletTransaction, error) {
	return scanTransaction(q.db.QueryRow(ctx, getWalletTransaction, id))
}

const getTransactionStatusForUpdate = `
SELECT status FROM wallet_transactions WHERE id = $1 FOR UPDATE
`

func (q *Queries) GetTransactionStatusForUpdate(ctx context.Context, id pgtype.UUID) (string, error) {
	var status string
	err := q.db.QueryRow(ctx, getTransactionStatusForUpdate, id).Scan(&status)
	return status, err
}

const updateWalletTransactionStatus = `
UPDATE wallet_transactions
SET status = $1,
	completed_at = CASE WHEN $1 = 'COMPLETED' THEN NOW() ELSE completed_at END
WHERE id = $2
`

type UpdateWalletTransactionStatusParams struct {
	Status string
	ID     pgtype.UUID
}

func (q *Queries) UpdateWalletTransactionStatus(ctx context.Context, arg UpdateWalletTransactionStatusParams) (int64, error) {
	tag, err := q.db.Exec(ctx, updateWalletTransactionStatus, arg.Status, arg.ID)
	return tag.RowsAffected(), err
}

const getPendingIncomingTransfers = `
SELECT ` + transactionColumns + `
FROM wallet_transactions
WHERE status = 'PENDING' AND type = 'INCOMING_TRANSFER'
ORDER BY created_at
LIMIT $1
FOR UPDATE SKIP LOCKED
`

// GetPendingIncomingTransfers claims unsettled incoming legs. SKIP LOCKED
// keeps concurrent settlement workers from contending on the same rows.
func (q *Queries) GetPendingIncomingTransfers(ctx context.Context, limit int32) ([]WalletTransaction, error) {
	rows, err := q.db.Query(ctx, getPendingIncomingTransfers, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []WalletTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

const sumPendingIncoming = `
SELECT COALESCE(SUM(amount), 0)
FROM wallet_transactions
WHERE wallet_id = $1 AND status = 'PENDING' AND type = 'INCOMING_TRANSFER'
`

func (q *Queries) SumPendingIncoming(ctx context.Context, walletID pgtype.UUID) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx, sumPendingIncoming, walletID).Scan(&total)
	return total, err
}

const sumOffChainFlows = `
SELECT COALESCE(SUM(CASE WHEN t.type = 'INCOMING_TRANSFER' THEN t.amount ELSE -t.amount END), 0)
FROM wallet_transactions t
JOIN wallets w ON w.id = CASE WHEN t.type = 'INCOMING_TRANSFER' THEN t.from_wallet_id ELSE t.to_wallet_id END
WHERE t.wallet_id = $1 AND t.status = 'COMPLETED' AND w.type <> 'ECO'
`

// SumOffChainFlows returns the net amount that entered or left the wallet's
// aggregate balance through counterparties without a chain ledger. Those
// flows move the aggregate but never the chain map.
func (q *Queries) SumOffChainFlows(ctx context.Context, walletID pgtype.UUID) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx, sumOffChainFlows, walletID).Scan(&total)
	return total, err
}

const listWalletTransactions = `
SELECT ` + transactionColumns + `
FROM wallet_transactions
WHERE wallet_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

type ListWalletTransactionsParams struct {
	WalletID pgtype.UUID
	Limit    int32
	Offset   int32
}

func (q *Queries) ListWalletTransactions(ctx context.Context, arg ListWalletTransactionsParams) ([]WalletTransaction, error) {
	rows, err := q.db.Query(ctx, listWalletTransactions, arg.WalletID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []WalletTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

const listUserTransactions = `
SELECT ` + transactionColumns + `
FROM wallet_transactions
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

type ListUserTransactionsParams struct {
	UserID pgtype.UUID
	Limit  int32
	Offset int32
}

func (q *Queries) ListUserTransactions(ctx context.Context, arg ListUserTransactionsParams) ([]WalletTransaction, error) {
	rows, err := q.db.Query(ctx, listUserTransactions, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []WalletTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

const insertLedgerEntry = `
INSERT INTO ledger_entries (id, wallet_id, chain, currency, delta, created_at)
VALUES ($1, $2, $3, $4, $5, NOW())
`

type InsertLedgerEntryParams struct {
	ID       pgtype.UUID
	WalletID pgtype.UUID
	Chain    string
	Currency string
	Delta    int64
}

func (q *Queries) InsertLedgerEntry(ctx context.Context, arg InsertLedgerEntryParams) error {
	_, err := q.db.Exec(ctx, insertLedgerEntry, arg.ID, arg.WalletID, arg.Chain, arg.Currency, arg.Delta)
	return err
}

const listLedgerEntries = `
SELECT id, wallet_id, chain, currency, delta, created_at
FROM ledger_entries
WHERE wallet_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

type ListLedgerEntriesParams struct {
	WalletID pgtype.UUID
	Limit    int32
	Offset   int32
}

func (q *Queries) ListLedgerEntries(ctx context.Context, arg ListLedgerEntriesParams) ([]LedgerEntry, error) {
	rows, err := q.db.Query(ctx, listLedgerEntries, arg.WalletID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.WalletID, &e.Chain, &e.Currency, &e.Delta, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const insertAdminProfit = `
INSERT INTO admin_profits (id, user_id, transaction_id, amount, currency, from_type, to_type, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
`

type InsertAdminProfitParams struct {
	ID            pgtype.UUID
	UserID        pgtype.UUID
	TransactionID pgtype.UUID
	Amount        int64
	Currency      string
	FromType      string
	ToType        string
}

func (q *Queries) InsertAdminProfit(ctx context.Context, arg InsertAdminProfitParams) error {
	_, err := q.db.Exec(ctx, insertAdminProfit,
		arg.ID, arg.UserID, arg.TransactionID, arg.Amount, arg.Currency, arg.FromType, arg.ToType)
	return err
}

const listAdminProfits = `
SELECT id, user_id, transaction_id, amount, currency, from_type, to_type, created_at
FROM admin_profits
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

type ListAdminProfitsParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListAdminProfits(ctx context.Context, arg ListAdminProfitsParams) ([]AdminProfit, error) {
	rows, err := q.db.Query(ctx, listAdminProfits, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profits []AdminProfit
	for rows.Next() {
		var p AdminProfit
		if err := rows.Scan(&p.ID, &p.UserID, &p.TransactionID, &p.Amount,
			&p.Currency, &p.FromType, &p.ToType, &p.CreatedAt); err != nil {
			return nil, err
		}
		profits = append(profits, p)
	}
	return profits, rows.Err()
}

const listSettings = `
SELECT key, value FROM settings
`

func (q *Queries) ListSettings(ctx context.Context) ([]Setting, error) {
	rows, err := q.db.Query(ctx, listSettings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

const listCurrencies = `
SELECT code, type, precision FROM currencies
`

func (q *Queries) ListCurrencies(ctx context.Context) ([]Currency, error) {
	rows, err := q.db.Query(ctx, listCurrencies)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var currencies []Currency
	for rows.Next() {
		var c Currency
		if err := rows.Scan(&c.Code, &c.Type, &c.Precision); err != nil {
			return nil, err
		}
		currencies = append(currencies, c)
	}
	return currencies, rows.Err()
}

const getIdempotencyKey = `
SELECT idempotency_key, request_hash, method, path, response_status,
	response_body, content_type, in_progress, created_at
FROM idempotency_keys
WHERE idempotency_key = $1
`

func (q *Queries) GetIdempotencyKey(ctx context.Context, key string) (IdempotencyKey, error) {
	row := q.db.QueryRow(ctx, getIdempotencyKey, key)
	var k IdempotencyKey
	err := row.Scan(&k.IdempotencyKey, &k.RequestHash, &k.Method, &k.Path,
		&k.ResponseStatus, &k.ResponseBody, &k.ContentType, &k.InProgress, &k.CreatedAt)
	return k, err
}

const reserveIdempotencyKey = `
INSERT INTO idempotency_keys (idempotency_key, request_hash, method, path,
	response_status, response_body, content_type, in_progress, created_at)
VALUES ($1, $2, $3, $4, 0, ''::bytea, '', TRUE, NOW())
ON CONFLICT (idempotency_key) DO NOTHING
RETURNING idempotency_key
`

type ReserveIdempotencyKeyParams struct {
	IdempotencyKey string
	RequestHash    string
	Method         string
	Path           string
}

func (q *Queries) ReserveIdempotencyKey(ctx context.Context, arg ReserveIdempotencyKeyParams) (string, error) {
	var key string
	err := q.db.QueryRow(ctx, reserveIdempotencyKey,
		arg.IdempotencyKey, arg.RequestHash, arg.Method, arg.Path).Scan(&key)
	return key, err
}

const finalizeIdempotencyKey = `
UPDATE idempotency_keys
SET response_status = $1, response_body = $2, content_type = $3, in_progress = FALSE
WHERE idempotency_key = $4 AND request_hash = $5
RETURNING idempotency_key, request_hash, method, path, response_status,
	response_body, content_type, in_progress, created_at
`

type FinalizeIdempotencyKeyParams struct {
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
	IdempotencyKey string
	RequestHash    string
}

func (q *Queries) FinalizeIdempotencyKey(ctx context.Context, arg FinalizeIdempotencyKeyParams) (IdempotencyKey, error) {
	row := q.db.QueryRow(ctx, finalizeIdempotencyKey,
		arg.ResponseStatus, arg.ResponseBody, arg.ContentType, arg.IdempotencyKey, arg.RequestHash)
	var k IdempotencyKey
	err := row.Scan(&k.IdempotencyKey, &k.RequestHash, &k.Method, &k.Path,
		&k.ResponseStatus, &k.ResponseBody, &k.ContentType, &k.InProgress, &k.CreatedAt)
	return k, err
}
