package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"acorn/internal/core"
)

const (
	ledgerMaxAttempts = 5
	ledgerRetryDelay  = 50 * time.Millisecond
)

// RecordDeposit applies a deposit to a goal atomically: the goal balance is
// read, the deposit row inserted, and the balance advanced from the value
// that was read, all inside one transaction. Either both writes land or
// neither does.
//
// Negative amounts are rejected before any write; withdrawals are not part
// of the deposit protocol.
func (r *SQLiteRepository) RecordDeposit(ctx context.Context, ownerID string, goalID int64, amount core.Money) (core.Deposit, core.SavingsGoal, error) {
	if amount.Cents < 0 {
		return core.Deposit{}, core.SavingsGoal{}, core.ErrNegativeDeposit
	}

	var lastErr error
	for attempt := 1; attempt <= ledgerMaxAttempts; attempt++ {
		dep, goal, err := r.recordDepositTx(ctx, ownerID, goalID, amount)
		if err == nil {
			slog.InfoContext(ctx, "Deposit recorded",
				"deposit_id", dep.ID, "goal_id", goalID, "owner_id", ownerID,
				"amount_cents", amount.Cents, "new_balance_cents", goal.CurrentAmount.Cents)
			return dep, goal, nil
		}
		if !isBusy(err) {
			return core.Deposit{}, core.SavingsGoal{}, err
		}
		lastErr = err
		slog.WarnContext(ctx, "Deposit transaction contended, retrying",
			"goal_id", goalID, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return core.Deposit{}, core.SavingsGoal{}, ctx.Err()
		case <-time.After(time.Duration(attempt) * ledgerRetryDelay):
		}
	}
	return core.Deposit{}, core.SavingsGoal{}, fmt.Errorf("%w: %v", core.ErrConflict, lastErr)
}

func (r *SQLiteRepository) recordDepositTx(ctx context.Context, ownerID string, goalID int64, amount core.Money) (core.Deposit, core.SavingsGoal, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Deposit{}, core.SavingsGoal{}, fmt.Errorf("begin deposit tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT id, owner_id, name, target_amount_cents, current_amount_cents, deadline, priority, category, is_completed, created_at
		 FROM savings_goals WHERE id = ? AND owner_id = ?`, goalID, ownerID)
	goal, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Deposit{}, core.SavingsGoal{}, core.ErrGoalNotFound
	}
	if err != nil {
		return core.Deposit{}, core.SavingsGoal{}, fmt.Errorf("read goal: %w", err)
	}

	dep := core.Deposit{
		OwnerID: ownerID,
		GoalID:  goalID,
		Amount:  amount,
		Date:    time.Now().UTC(),
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO deposits (owner_id, goal_id, amount_cents, date) VALUES (?, ?, ?, ?)`,
		dep.OwnerID, dep.GoalID, dep.Amount.Cents, dep.Date)
	if err != nil {
		return core.Deposit{}, core.SavingsGoal{}, fmt.Errorf("insert deposit: %w", err)
	}
	dep.ID, err = res.LastInsertId()
	if err != nil {
		return core.Deposit{}, core.SavingsGoal{}, fmt.Errorf("deposit id: %w", err)
	}

	goal.CurrentAmount = goal.CurrentAmount.Add(amount)
	if _, err := tx.ExecContext(ctx,
		`UPDATE savings_goals SET current_amount_cents = ? WHERE id = ? AND owner_id = ?`,
		goal.CurrentAmount.Cents, goalID, ownerID); err != nil {
		return core.Deposit{}, core.SavingsGoal{}, fmt.Errorf("update goal balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Deposit{}, core.SavingsGoal{}, fmt.Errorf("commit deposit tx: %w", err)
	}
	return dep, goal, nil
}

// isBusy reports whether err is sqlite lock contention worth retrying.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database table is locked")
}
