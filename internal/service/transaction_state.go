package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tradeyard/wallet-engine/internal/domain"
	"github.com/tradeyard/wallet-engine/internal/repository"
)

// Transfer legs are immutable once written except for the settlement
// transition. COMPLETED is terminal.
var transferTransitions = map[string]map[string]struct{}{
	domain.TxStatusPending: {
		domain.TxStatusCompleted: {},
	},
	domain.TxStatusCompleted: {},
}

func normalizeState(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}

func canTransition(current, next string) bool {
	current = normalizeState(current)
	next = normalizeState(next)
	nextStates, ok := transferTransitions[current]
	if !ok {
		return false
	}
	_, ok = nextStates[next]
	return ok
}

// transitionTransferState moves one transfer leg to nextState under a row
// lock, rejecting transitions the state map does not allow.
func transitionTransferState(ctx context.Context, qtx *repository.Queries, transactionID uuid.UUID, nextState string) error {
	currentState, err := qtx.GetTransactionStatusForUpdate(ctx, repository.ToPgUUID(transactionID))
	if err != nil {
		return fmt.Errorf("get current transfer state: %w", err)
	}

	if normalizeState(currentState) == normalizeState(nextState) {
		return nil
	}
	if !canTransition(currentState, nextState) {
		return fmt.Errorf("invalid transfer state transition: %s -> %s", currentState, nextState)
	}

	rows, err := qtx.UpdateWalletTransactionStatus(ctx, repository.UpdateWalletTransactionStatusParams{
		Status: nextState,
		ID:     repository.ToPgUUID(transactionID),
	})
	if err != nil {
		return fmt.Errorf("update transfer state: %w", err)
	}
	return requireExactlyOne(rows, "update transfer state")
}
