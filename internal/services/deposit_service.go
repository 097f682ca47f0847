package services

import (
	"context"
	"fmt"

	"acorn/internal/core"
	"acorn/internal/feed"
	"acorn/internal/storage"
)

// DepositService orchestrates deposits across the ledger and the refresh
// feed. Downstream fan-out (cache invalidation, AMQP summary refresh)
// hangs off the hub, so the service itself only records and notifies.
type DepositService struct {
	storage *storage.SQLiteRepository
	hub     *feed.Hub
}

func NewDepositService(storage *storage.SQLiteRepository, hub *feed.Hub) *DepositService {
	return &DepositService{
		storage: storage,
		hub:     hub,
	}
}

// RecordDeposit applies the deposit atomically, then notifies subscribers.
// Notification failures never fail the deposit; the ledger is the source
// of truth.
func (s *DepositService) RecordDeposit(ctx context.Context, ownerID string, goalID int64, amount core.Money) (core.Deposit, core.SavingsGoal, error) {
	dep, goal, err := s.storage.RecordDeposit(ctx, ownerID, goalID, amount)
	if err != nil {
		return core.Deposit{}, core.SavingsGoal{}, fmt.Errorf("record deposit: %w", err)
	}

	if s.hub != nil {
		s.hub.Publish(feed.Event{OwnerID: ownerID, Reason: "deposit:recorded"})
	}

	return dep, goal, nil
}
