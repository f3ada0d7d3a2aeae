package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tradeyard/wallet-engine/internal/api"
	"github.com/tradeyard/wallet-engine/internal/api/middleware"
	"github.com/tradeyard/wallet-engine/internal/config"
	"github.com/tradeyard/wallet-engine/internal/domain"
	"github.com/tradeyard/wallet-engine/internal/idempotency"
	"github.com/tradeyard/wallet-engine/internal/repository"
	"github.com/tradeyard/wallet-engine/internal/service"
	"github.com/tradeyard/wallet-engine/internal/settings"
	"github.com/tradeyard/wallet-engine/internal/testutil/dblock"
)

var testDB *pgxpool.Pool

const (
	testJWTSecret   = "test-secret-0123456789-test-secret"
	testJWTIssuer   = "wallet-engine-test"
	testJWTAudience = "wallet-api-test"
)

func TestMain(m *testing.M) {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		// No database configured; every test skips itself.
		os.Exit(m.Run())
	}

	release := dblock.Acquire()

	var err error
	testDB, err = pgxpool.New(context.Background(), connStr)
	if err != nil {
		release()
		fmt.Printf("Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer testDB.Close()

	ensureSchema(context.Background())
	middleware.SetJWTSecret(testJWTSecret)
	middleware.SetJWTValidation(testJWTIssuer, testJWTAudience)

	code := m.Run()
	release()
	os.Exit(code)
}

func requireDB(t *testing.T) {
	t.Helper()
	if testDB == nil {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	_, err := testDB.Exec(context.Background(),
		"TRUNCATE TABLE admin_profits, ledger_entries, wallet_transactions, wallets, users, settings, currencies, idempotency_keys CASCADE")
	require.NoError(t, err)
}

func setupAPI() *api.Router {
	store := repository.NewStore(testDB)
	cfg := &config.Config{
		HTTPPort:           "0",
		JWTSecret:          testJWTSecret,
		JWTIssuer:          testJWTIssuer,
		JWTAudience:        testJWTAudience,
		PublicRateLimitRPS: 1000,
		AuthRateLimitRPS:   1000,
		IdempotencyTTL:     time.Hour,
	}
	idemStore := idempotency.NewStore(nil, testDB, cfg.IdempotencyTTL)
	provider := settings.Static{
		FeeBps: map[string]int64{domain.TransferTypeClient: 100},
	}
	return api.NewRouter(cfg, zap.NewNop(), testDB, store, idemStore, nil, provider)
}

func generateTestToken(userID string) string {
	return generateTokenWithRole(userID, "user")
}

func generateTokenWithRole(userID, role string) string {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"iss":     testJWTIssuer,
		"aud":     testJWTAudience,
		"sub":     userID,
		"iat":     now.Unix(),
		"nbf":     now.Add(-30 * time.Second).Unix(),
		"exp":     now.Add(time.Hour).Unix(),
	})
	tokenString, _ := token.SignedString(middleware.JWTSecret())
	return tokenString
}

func seedUserWithSpot(t *testing.T, balance int64) uuid.UUID {
	t.Helper()

	queries := repository.New(testDB)
	userID := uuid.New()
	_, err := queries.CreateUser(context.Background(), repository.CreateUserParams{
		ID:       repository.ToPgUUID(userID),
		Username: "user_" + userID.String()[:8],
		Email:    "user_" + userID.String()[:8] + "@example.com",
	})
	require.NoError(t, err)

	_, err = queries.CreateWallet(context.Background(), repository.CreateWalletParams{
		ID:       repository.ToPgUUID(uuid.New()),
		UserID:   repository.ToPgUUID(userID),
		Type:     string(domain.WalletTypeSpot),
		Currency: "USDT",
		Balance:  balance,
		Status:   domain.WalletStatusActive,
	})
	require.NoError(t, err)
	return userID
}

func TestRFC7807ProblemDetails(t *testing.T) {
	requireDB(t)
	router := setupAPI().Routes()

	req := httptest.NewRequest("GET", "/v1/wallets/SPOT/USDT", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "application/problem+json")

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["type"])
	assert.Equal(t, float64(http.StatusUnauthorized), body["status"])
	assert.NotEmpty(t, body["title"])
	assert.Equal(t, "/v1/wallets/SPOT/USDT", body["instance"])
	assert.NotEmpty(t, body["request_id"])
}

func TestCreateTransferEndpoint(t *testing.T) {
	requireDB(t)
	router := setupAPI().Routes()

	userID := seedUserWithSpot(t, 100_000000)
	token := generateTestToken(userID.String())

	payload, _ := json.Marshal(map[string]string{
		"transfer_type": "wallet",
		"from_type":     "SPOT",
		"to_type":       "ECO",
		"from_currency": "USDT",
		"amount":        "25",
	})

	makeRequest := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/v1/transfers", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "transfer-test-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := makeRequest()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result service.TransferResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, domain.TxTypeOutgoingTransfer, result.FromTransfer.Type)
	assert.Equal(t, int64(25_000000), result.FromTransfer.Amount)
	assert.Equal(t, domain.TxStatusPending, result.FromTransfer.Status)

	// Replaying the same key returns the stored response without a second
	// transfer.
	replay := makeRequest()
	require.Equal(t, http.StatusOK, replay.Code)
	assert.NotEmpty(t, replay.Header().Get("X-Idempotent-Replay"))
	assert.JSONEq(t, w.Body.String(), replay.Body.String())

	var txCount int
	require.NoError(t, testDB.QueryRow(context.Background(), "SELECT COUNT(*) FROM wallet_transactions").Scan(&txCount))
	assert.Equal(t, 2, txCount)
}

func TestInsufficientFundsIsBadRequest(t *testing.T) {
	requireDB(t)
	router := setupAPI().Routes()

	userID := seedUserWithSpot(t, 10_000000)
	token := generateTestToken(userID.String())

	payload, _ := json.Marshal(map[string]string{
		"transfer_type": "wallet",
		"from_type":     "SPOT",
		"to_type":       "ECO",
		"from_currency": "USDT",
		"amount":        "1000",
	})
	req := httptest.NewRequest("POST", "/v1/transfers", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Idempotency-Key", "transfer-overdraw-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["type"], "insufficient-funds")
}

func TestGetTransactionByID(t *testing.T) {
	requireDB(t)
	router := setupAPI().Routes()

	userID := seedUserWithSpot(t, 100_000000)
	token := generateTestToken(userID.String())

	payload, _ := json.Marshal(map[string]string{
		"transfer_type": "wallet",
		"from_type":     "SPOT",
		"to_type":       "ECO",
		"from_currency": "USDT",
		"amount":        "5",
	})
	req := httptest.NewRequest("POST", "/v1/transfers", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Idempotency-Key", "transfer-fetch-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result service.TransferResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	get := httptest.NewRequest("GET", "/v1/transactions/"+result.FromTransfer.ID.String(), nil)
	get.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, get)
	require.Equal(t, http.StatusOK, w.Code)

	var leg map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &leg))
	assert.Equal(t, result.FromTransfer.ID.String(), leg["id"])
	assert.Equal(t, float64(5_000000), leg["amount"])

	// Another user's token cannot see the leg.
	otherToken := generateTestToken(seedUserWithSpot(t, 0).String())
	get = httptest.NewRequest("GET", "/v1/transactions/"+result.FromTransfer.ID.String(), nil)
	get.Header.Set("Authorization", "Bearer "+otherToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, get)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTransferRequiresIdempotencyKey(t *testing.T) {
	requireDB(t)
	router := setupAPI().Routes()

	userID := seedUserWithSpot(t, 100_000000)
	token := generateTestToken(userID.String())

	req := httptest.NewRequest("POST", "/v1/transfers", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetWallet(t *testing.T) {
	requireDB(t)
	router := setupAPI().Routes()

	userID := seedUserWithSpot(t, 42_000000)
	token := generateTestToken(userID.String())

	req := httptest.NewRequest("GET", "/v1/wallets/SPOT/USDT", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(42_000000), body["balance"])

	missing := httptest.NewRequest("GET", "/v1/wallets/FIAT/NGN", nil)
	missing.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, missing)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminProfitsRequiresRole(t *testing.T) {
	requireDB(t)
	router := setupAPI().Routes()

	userID := seedUserWithSpot(t, 0)

	req := httptest.NewRequest("GET", "/v1/admin/profits", nil)
	req.Header.Set("Authorization", "Bearer "+generateTestToken(userID.String()))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest("GET", "/v1/admin/profits", nil)
	req.Header.Set("Authorization", "Bearer "+generateTokenWithRole(userID.String(), "admin"))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func ensureSchema(ctx context.Context) {
	ddl := `
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
	if _, err := testDB.Exec(ctx, ddl); err != nil {
		fmt.Printf("failed to ensure schema: %v\n", err)
		os.Exit(1)
	}
}
