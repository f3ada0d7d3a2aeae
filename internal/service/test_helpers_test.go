package service

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/tradeyard/wallet-engine/internal/domain"
	"github.com/tradeyard/wallet-engine/internal/ledger"
	"github.com/tradeyard/wallet-engine/internal/repository"
)

// setupTestDB connects to the database named by DATABASE_URL, creates the
// schema if missing, and wipes all rows. Tests are skipped when no database
// is configured.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	db, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	ensureSchema(t, db)

	_, err = db.Exec(context.Background(),
		"TRUNCATE TABLE admin_profits, ledger_entries, wallet_transactions, wallets, users, settings, currencies, idempotency_keys CASCADE")
	if err != nil {
		t.Fatalf("Failed to truncate tables: %v", err)
	}

	return db
}

func ensureSchema(t *testing.T, db *pgxpool.Pool) {
	t.Helper()

	sql := `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username TEXT NOT NULL,
			email TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS wallets (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id),
			type TEXT NOT NULL,
			currency TEXT NOT NULL,
			balance BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			chains JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, type, currency)
		);

		CREATE TABLE IF NOT EXISTS wallet_transactions (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			wallet_id UUID NOT NULL,
			type TEXT NOT NULL,
			amount BIGINT NOT NULL,
			fee BIGINT NOT NULL DEFAULT 0,
			from_currency TEXT NOT NULL,
			to_currency TEXT NOT NULL,
			from_wallet_id UUID NOT NULL,
			to_wallet_id UUID NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'PENDING',
			linked_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ
		);

		CREATE TABLE IF NOT EXISTS ledger_entries (
			id UUID PRIMARY KEY,
			wallet_id UUID NOT NULL,
			chain TEXT NOT NULL,
			currency TEXT NOT NULL,
			delta BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS admin_profits (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			transaction_id UUID NOT NULL,
			amount BIGINT NOT NULL,
			currency TEXT NOT NULL,
			from_type TEXT NOT NULL,
			to_type TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS currencies (
			code TEXT NOT NULL,
			type TEXT NOT NULL,
			precision INT NOT NULL DEFAULT 6,
			PRIMARY KEY (code, type)
		);

		CREATE TABLE IF NOT EXISTS idempotency_keys (
			idempotency_key TEXT PRIMARY KEY,
			request_hash TEXT NOT NULL,
			method TEXT NOT NULL,
			path TEXT NOT NULL,
			response_status INT NOT NULL DEFAULT 0,
			response_body BYTEA,
			content_type TEXT NOT NULL DEFAULT '',
			in_progress BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`
	if _, err := db.Exec(context.Background(), sql); err != nil {
		t.Fatalf("failed to ensure schema: %v", err)
	}
}

func createTestUser(t *testing.T, db *pgxpool.Pool, username string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	queries := repository.New(db)
	_, err := queries.CreateUser(context.Background(), repository.CreateUserParams{
		ID:       repository.ToPgUUID(id),
		Username: username,
		Email:    username + "@example.com",
	})
	require.NoError(t, err)
	return id
}

func createTestWallet(t *testing.T, db *pgxpool.Pool, userID uuid.UUID, walletType domain.WalletType, currency string, balance int64, chains ledger.ChainBalances) uuid.UUID {
	t.Helper()

	var encoded []byte
	if chains != nil {
		var err error
		encoded, err = json.Marshal(chains)
		require.NoError(t, err)
	} else if walletType.HasChainLedger() {
		encoded = []byte(`{}`)
	}

	id := uuid.New()
	queries := repository.New(db)
	_, err := queries.CreateWallet(context.Background(), repository.CreateWalletParams{
		ID:       repository.ToPgUUID(id),
		UserID:   repository.ToPgUUID(userID),
		Type:     string(walletType),
		Currency: currency,
		Balance:  balance,
		Status:   domain.WalletStatusActive,
		Chains:   encoded,
	})
	require.NoError(t, err)
	return id
}

func walletBalance(t *testing.T, db *pgxpool.Pool, walletID uuid.UUID) int64 {
	t.Helper()

	var balance int64
	err := db.QueryRow(context.Background(), "SELECT balance FROM wallets WHERE id = $1", walletID).Scan(&balance)
	require.NoError(t, err)
	return balance
}

func walletChains(t *testing.T, db *pgxpool.Pool, walletID uuid.UUID) ledger.ChainBalances {
	t.Helper()

	var raw []byte
	err := db.QueryRow(context.Background(), "SELECT chains FROM wallets WHERE id = $1", walletID).Scan(&raw)
	require.NoError(t, err)

	chains := ledger.ChainBalances{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &chains))
	}
	return chains
}
