package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tradeyard/wallet-engine/internal/api/handler"
	"github.com/tradeyard/wallet-engine/internal/api/middleware"
	"github.com/tradeyard/wallet-engine/internal/api/spec"
	"github.com/tradeyard/wallet-engine/internal/config"
	"github.com/tradeyard/wallet-engine/internal/idempotency"
	"github.com/tradeyard/wallet-engine/internal/notify"
	"github.com/tradeyard/wallet-engine/internal/repository"
	"github.com/tradeyard/wallet-engine/internal/service"
	"github.com/tradeyard/wallet-engine/internal/settings"
)

type Router struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *pgxpool.Pool
	store     *repository.Store
	idemStore *idempotency.Store
	redis     redis.Cmdable
	settings  settings.Provider
}

func NewRouter(cfg *config.Config, logger *zap.Logger, db *pgxpool.Pool, store *repository.Store, idemStore *idempotency.Store, redis redis.Cmdable, settings settings.Provider) *Router {
	return &Router{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		store:     store,
		idemStore: idemStore,
		redis:     redis,
		settings:  settings,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	// Services
	transferSvc := service.NewTransferService(api.store, api.settings, notify.NewLogNotifier())
	walletSvc := service.NewWalletService(api.store)
	adminSvc := service.NewAdminService(api.store)

	// Handlers
	transferHandler := handler.NewTransferHandler(transferSvc)
	walletHandler := handler.NewWalletHandler(walletSvc)
	adminHandler := handler.NewAdminHandler(adminSvc)
	healthHandler := handler.NewHealthHandler(api.db, api.redis)

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		r.Get("/healthz", healthHandler.Live)
		r.Get("/readyz", healthHandler.Ready)
		r.Get("/openapi.yaml", spec.OpenAPIHandler())
	})
	r.Handle("/metrics", promhttp.Handler())

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		r.With(middleware.IdempotencyMiddleware(api.idemStore, api.logger)).
			Post("/v1/transfers", transferHandler.CreateTransfer)

		r.Get("/v1/wallets/{type}/{currency}", walletHandler.GetWallet)
		r.Get("/v1/wallets/{type}/{currency}/ledger", walletHandler.GetLedger)
		r.Get("/v1/transactions", walletHandler.ListTransactions)
		r.Get("/v1/transactions/{id}", walletHandler.GetTransaction)

		r.With(middleware.RequireRole("admin")).
			Get("/v1/admin/profits", adminHandler.ListProfits)
	})

	return r
}
