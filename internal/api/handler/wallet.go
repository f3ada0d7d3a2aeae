package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tradeyard/wallet-engine/internal/domain"
	"github.com/tradeyard/wallet-engine/internal/service"
)

type WalletHandler struct {
	svc *service.WalletService
}

func NewWalletHandler(svc *service.WalletService) *WalletHandler {
	return &WalletHandler{svc: svc}
}

// GetWallet returns the caller's wallet for the path's type and currency,
// including the chain balance map for ECO wallets.
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	walletType := domain.WalletType(strings.ToUpper(chi.URLParam(r, "type")))
	currency := strings.ToUpper(chi.URLParam(r, "currency"))

	wallet, err := h.svc.GetWallet(r.Context(), actorID, walletType, currency)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, wallet)
}

// GetLedger lists the chain ledger entries behind the caller's wallet.
func (h *WalletHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	walletType := domain.WalletType(strings.ToUpper(chi.URLParam(r, "type")))
	currency := strings.ToUpper(chi.URLParam(r, "currency"))
	limit, offset := pagination(r)

	entries, err := h.svc.GetLedger(r.Context(), actorID, walletType, currency, limit, offset)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, entries)
}

// ListTransactions returns the caller's transfer history, newest first.
func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	limit, offset := pagination(r)
	transactions, err := h.svc.ListTransactions(r.Context(), actorID, limit, offset)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, transactions)
}

// GetTransaction returns a single transfer leg by ID.
func (h *WalletHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	transactionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "validation/invalid-id", "transaction id must be a UUID")
		return
	}

	tx, err := h.svc.GetTransaction(r.Context(), actorID, transactionID)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, tx)
}

func pagination(r *http.Request) (limit, offset int32) {
	if v, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 32); err == nil {
		limit = int32(v)
	}
	if v, err := strconv.ParseInt(r.URL.Query().Get("offset"), 10, 32); err == nil {
		offset = int32(v)
	}
	return limit, offset
}
