package service

import (
	"context"
	"fmt"

	"github.com/tradeyard/wallet-engine/internal/domain"
	"github.com/tradeyard/wallet-engine/internal/models"
	"github.com/tradeyard/wallet-engine/internal/repository"
)

// AdminService exposes the platform-side views: collected fees.
type AdminService struct {
	store QueryStore
}

func NewAdminService(store QueryStore) *AdminService {
	return &AdminService{store: store}
}

// ListProfits returns collected transfer fees, newest first.
func (s *AdminService) ListProfits(ctx context.Context, limit, offset int32) ([]models.AdminProfit, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.store.Queries().ListAdminProfits(ctx, repository.ListAdminProfitsParams{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list admin profits: %w", err)
	}
	profits := make([]models.AdminProfit, 0, len(rows))
	for _, row := range rows {
		profits = append(profits, models.AdminProfit{
			ID:            repository.FromPgUUID(row.ID),
			UserID:        repository.FromPgUUID(row.UserID),
			TransactionID: repository.FromPgUUID(row.TransactionID),
			Amount:        row.Amount,
			Currency:      row.Currency,
			FromType:      domain.WalletType(row.FromType),
			ToType:        domain.WalletType(row.ToType),
			CreatedAt:     row.CreatedAt.Time,
		})
	}
	return profits, nil
}
