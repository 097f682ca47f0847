package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"acorn/internal/core"
	"acorn/internal/storage"
)

type stubExporter struct {
	mu        sync.Mutex
	summaries []core.MonthlySummary
	err       error
}

func (s *stubExporter) AppendSummary(_ context.Context, summary core.MonthlySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.summaries = append(s.summaries, summary)
	return nil
}

func newTestStorage(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedOwner(t *testing.T, repo *storage.SQLiteRepository, ownerID string) {
	t.Helper()
	ctx := context.Background()
	if _, err := repo.CreateIncomeStream(ctx, core.IncomeStream{
		OwnerID: ownerID, Name: "salary", Amount: core.Money{Cents: 500000},
		Frequency: core.Monthly, IsRecurring: true,
	}); err != nil {
		t.Fatalf("CreateIncomeStream() error = %v", err)
	}
	if _, err := repo.CreateExpense(ctx, core.Expense{
		OwnerID: ownerID, Name: "rent", Amount: core.Money{Cents: 150000},
		Category: "housing", Frequency: core.Monthly, IsRecurring: true,
	}); err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}
}

func TestSummaryProcessorRefresh(t *testing.T) {
	repo := newTestStorage(t)
	exporter := &stubExporter{}
	processor := NewSummaryProcessor(repo, exporter)
	ctx := context.Background()

	seedOwner(t, repo, "alice")

	if err := processor.Refresh(ctx, "alice"); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	summaries, err := repo.ListMonthlySummaries(ctx, "alice", 6)
	if err != nil {
		t.Fatalf("ListMonthlySummaries() error = %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(summaries))
	}
	s := summaries[0]
	if s.Income.Cents != 500000 {
		t.Errorf("Income = %d, want 500000", s.Income.Cents)
	}
	if s.Expenses.Cents != 150000 {
		t.Errorf("Expenses = %d, want 150000", s.Expenses.Cents)
	}
	if s.Savings.Cents != 350000 {
		t.Errorf("Savings = %d, want 350000", s.Savings.Cents)
	}

	hs, err := repo.GetHealthScore(ctx, "alice")
	if err != nil {
		t.Fatalf("GetHealthScore() error = %v", err)
	}
	if hs.Score <= 0 {
		t.Errorf("health score = %d, want positive", hs.Score)
	}

	if len(exporter.summaries) != 1 {
		t.Fatalf("exporter received %d summaries, want 1", len(exporter.summaries))
	}
}

func TestSummaryProcessorDuplicateSnapshots(t *testing.T) {
	repo := newTestStorage(t)
	processor := NewSummaryProcessor(repo, nil)
	ctx := context.Background()

	seedOwner(t, repo, "alice")

	// Two refreshes in the same month both land; duplicates are kept.
	if err := processor.Refresh(ctx, "alice"); err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}
	if err := processor.Refresh(ctx, "alice"); err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}

	now := time.Now().UTC()
	n, err := repo.CountMonthlySummaries(ctx, "alice", int(now.Month()), now.Year())
	if err != nil {
		t.Fatalf("CountMonthlySummaries() error = %v", err)
	}
	if n != 2 {
		t.Errorf("snapshot count = %d, want 2", n)
	}
}

func TestSummaryProcessorExportFailureIsNonFatal(t *testing.T) {
	repo := newTestStorage(t)
	exporter := &stubExporter{err: errors.New("sheet unavailable")}
	processor := NewSummaryProcessor(repo, exporter)
	ctx := context.Background()

	seedOwner(t, repo, "alice")

	if err := processor.Refresh(ctx, "alice"); err != nil {
		t.Fatalf("Refresh() error = %v, want nil despite export failure", err)
	}

	summaries, _ := repo.ListMonthlySummaries(ctx, "alice", 6)
	if len(summaries) != 1 {
		t.Errorf("snapshot should be durable, got %d summaries", len(summaries))
	}
}

func TestSummaryProcessorRefreshAll(t *testing.T) {
	repo := newTestStorage(t)
	processor := NewSummaryProcessor(repo, nil)
	ctx := context.Background()

	seedOwner(t, repo, "alice")
	seedOwner(t, repo, "bob")

	if err := processor.RefreshAll(ctx); err != nil {
		t.Fatalf("RefreshAll() error = %v", err)
	}

	for _, owner := range []string{"alice", "bob"} {
		summaries, err := repo.ListMonthlySummaries(ctx, owner, 6)
		if err != nil {
			t.Fatalf("ListMonthlySummaries(%s) error = %v", owner, err)
		}
		if len(summaries) != 1 {
			t.Errorf("%s has %d summaries, want 1", owner, len(summaries))
		}
	}
}
