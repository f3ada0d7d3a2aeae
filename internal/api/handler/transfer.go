package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeyard/wallet-engine/internal/domain"
	"github.com/tradeyard/wallet-engine/internal/service"
)

type TransferHandler struct {
	svc *service.TransferService
}

func NewTransferHandler(svc *service.TransferService) *TransferHandler {
	return &TransferHandler{svc: svc}
}

type transferRequest struct {
	TransferType string `json:"transfer_type"`
	ClientID     string `json:"client_id,omitempty"`
	FromType     string `json:"from_type"`
	ToType       string `json:"to_type,omitempty"`
	FromCurrency string `json:"from_currency"`
	ToCurrency   string `json:"to_currency,omitempty"`
	Amount       string `json:"amount"`
}

// CreateTransfer moves funds between wallets. Amounts are decimal strings in
// currency units; placement behind the idempotency middleware makes retries
// safe.
func (h *TransferHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	var body transferRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(body.Amount))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "transfer/invalid-amount", "amount must be a decimal string")
		return
	}

	req := service.TransferRequest{
		UserID:       actorID,
		TransferType: strings.ToLower(strings.TrimSpace(body.TransferType)),
		FromType:     domain.WalletType(strings.ToUpper(strings.TrimSpace(body.FromType))),
		ToType:       domain.WalletType(strings.ToUpper(strings.TrimSpace(body.ToType))),
		FromCurrency: strings.ToUpper(strings.TrimSpace(body.FromCurrency)),
		ToCurrency:   strings.ToUpper(strings.TrimSpace(body.ToCurrency)),
		Amount:       domain.FromDecimal(amount),
	}
	if body.ClientID != "" {
		clientID, err := uuid.Parse(body.ClientID)
		if err != nil {
			RespondError(w, r, http.StatusBadRequest, "transfer/invalid-client-id", "client_id must be a UUID")
			return
		}
		req.ClientID = &clientID
	}

	result, err := h.svc.Transfer(r.Context(), req)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, result)
}
