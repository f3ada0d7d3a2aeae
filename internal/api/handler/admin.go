package handler

import (
	"net/http"

	"github.com/tradeyard/wallet-engine/internal/service"
)

type AdminHandler struct {
	svc *service.AdminService
}

func NewAdminHandler(svc *service.AdminService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// ListProfits returns collected transfer fees. The router guards this with
// the admin role.
func (h *AdminHandler) ListProfits(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	profits, err := h.svc.ListProfits(r.Context(), limit, offset)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, profits)
}
