package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"acorn/internal/amqp"
	"acorn/internal/core"
	"acorn/internal/sheets"
	"acorn/internal/storage"
)

// SummaryProcessor recomputes monthly summary snapshots for the worker. A
// refresh message names an owner; the processor reads the owner's current
// records, inserts a fresh snapshot for the evaluation month, updates the
// health score, and optionally exports the snapshot to a spreadsheet.
//
// Snapshots are append-only. A second refresh in the same month inserts a
// second row for the same (month, year) slot; the processor logs the
// duplicate but never dedupes.
type SummaryProcessor struct {
	storage  *storage.SQLiteRepository
	exporter sheets.SummaryWriter
}

func NewSummaryProcessor(storage *storage.SQLiteRepository, exporter sheets.SummaryWriter) *SummaryProcessor {
	return &SummaryProcessor{
		storage:  storage,
		exporter: exporter,
	}
}

// HandleRefreshMessage processes one summary refresh request from AMQP.
func (p *SummaryProcessor) HandleRefreshMessage(ctx context.Context, msg *amqp.SummaryRefreshMessage) error {
	slog.InfoContext(ctx, "Processing summary refresh",
		"owner_id", msg.OwnerID, "reason", msg.Reason)
	return p.Refresh(ctx, msg.OwnerID)
}

// Refresh recomputes and persists the snapshot for ownerID's current month.
func (p *SummaryProcessor) Refresh(ctx context.Context, ownerID string) error {
	now := time.Now().UTC()

	streams, err := p.storage.ListIncomeStreams(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("load income streams: %w", err)
	}
	expenses, err := p.storage.ListExpenses(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("load expenses: %w", err)
	}
	goals, err := p.storage.ListSavingsGoals(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("load savings goals: %w", err)
	}

	income := core.MonthlyIncome(streams)
	spend := core.MonthlyExpenses(expenses, now)

	existing, err := p.storage.CountMonthlySummaries(ctx, ownerID, int(now.Month()), now.Year())
	if err != nil {
		return fmt.Errorf("count summaries: %w", err)
	}
	if existing > 0 {
		slog.WarnContext(ctx, "Duplicate summary snapshot for month",
			"owner_id", ownerID, "month", int(now.Month()), "year", now.Year(), "existing", existing)
	}

	summary, err := p.storage.CreateMonthlySummary(ctx, core.MonthlySummary{
		OwnerID:  ownerID,
		Month:    int(now.Month()),
		Year:     now.Year(),
		Income:   income,
		Expenses: spend,
		Savings:  core.Money{Cents: income.Cents - spend.Cents},
	})
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}

	hs := core.ComputeHealthScore(streams, expenses, goals, now)
	hs.OwnerID = ownerID
	hs.LastUpdated = now
	if err := p.storage.UpsertHealthScore(ctx, hs); err != nil {
		return fmt.Errorf("upsert health score: %w", err)
	}

	if p.exporter != nil {
		if err := p.exporter.AppendSummary(ctx, summary); err != nil {
			// Export is best effort; the snapshot is already durable.
			slog.ErrorContext(ctx, "Failed to export summary",
				"owner_id", ownerID, "summary_id", summary.ID, "error", err)
		}
	}

	slog.InfoContext(ctx, "Summary snapshot created",
		"owner_id", ownerID,
		"summary_id", summary.ID,
		"income_cents", income.Cents,
		"expenses_cents", spend.Cents,
		"savings_cents", income.Cents-spend.Cents,
		"health_score", hs.Score)
	return nil
}

// RefreshAll recomputes snapshots for every owner with any records. Used by
// the interval ticker in the worker.
func (p *SummaryProcessor) RefreshAll(ctx context.Context) error {
	owners, err := p.storage.ListOwners(ctx)
	if err != nil {
		return fmt.Errorf("list owners: %w", err)
	}
	for _, ownerID := range owners {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.Refresh(ctx, ownerID); err != nil {
			slog.ErrorContext(ctx, "Scheduled refresh failed", "owner_id", ownerID, "error", err)
		}
	}
	return nil
}
