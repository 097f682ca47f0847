package services

import (
	"context"
	"testing"
	"time"

	"acorn/internal/core"
	"acorn/internal/feed"
)

func TestBuildOverview(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewOverviewService(repo, 6)
	ctx := context.Background()

	seedOwner(t, repo, "alice")
	deadline := time.Now().UTC().AddDate(1, 0, 0)
	if _, err := repo.CreateSavingsGoal(ctx, core.SavingsGoal{
		OwnerID:      "alice",
		Name:         "emergency fund",
		TargetAmount: core.Money{Cents: 1000000},
		Deadline:     &deadline,
		Priority:     core.PriorityHigh,
		Category:     "emergency",
	}); err != nil {
		t.Fatalf("CreateSavingsGoal() error = %v", err)
	}

	ov, err := svc.BuildOverview(ctx, "alice")
	if err != nil {
		t.Fatalf("BuildOverview() error = %v", err)
	}

	if ov.MonthlyIncome.Cents != 500000 {
		t.Errorf("MonthlyIncome = %d, want 500000", ov.MonthlyIncome.Cents)
	}
	if ov.MonthlyExpenses.Cents != 150000 {
		t.Errorf("MonthlyExpenses = %d, want 150000", ov.MonthlyExpenses.Cents)
	}
	if ov.MonthlySavings.Cents != 350000 {
		t.Errorf("MonthlySavings = %d, want 350000", ov.MonthlySavings.Cents)
	}
	if got := ov.ByCategory["housing"].Cents; got != 150000 {
		t.Errorf("ByCategory[housing] = %d, want 150000", got)
	}

	if len(ov.Goals) != 1 {
		t.Fatalf("got %d goal statuses, want 1", len(ov.Goals))
	}
	gs := ov.Goals[0]
	if gs.Progress != 0 {
		t.Errorf("Progress = %v, want 0", gs.Progress)
	}
	if !gs.HasDeadline || gs.DaysLeft <= 0 {
		t.Errorf("DaysLeft = %d (hasDeadline=%v), want positive days", gs.DaysLeft, gs.HasDeadline)
	}
	if gs.Overdue {
		t.Error("goal should not be overdue")
	}

	if ov.Health.Score <= 0 {
		t.Errorf("health score = %d, want positive", ov.Health.Score)
	}
	if len(ov.Insights) == 0 {
		t.Error("expected at least one insight for a 70% savings rate snapshot")
	}
	if ov.Trend != nil {
		t.Errorf("Trend = %+v, want nil without summary history", ov.Trend)
	}
}

func TestBuildOverviewTrend(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewOverviewService(repo, 6)
	ctx := context.Background()

	now := time.Now().UTC()
	prev := now.AddDate(0, -1, 0)
	for _, s := range []core.MonthlySummary{
		{OwnerID: "alice", Month: int(prev.Month()), Year: prev.Year(), Income: core.Money{Cents: 400000}, Expenses: core.Money{Cents: 200000}, Savings: core.Money{Cents: 200000}},
		{OwnerID: "alice", Month: int(now.Month()), Year: now.Year(), Income: core.Money{Cents: 500000}, Expenses: core.Money{Cents: 150000}, Savings: core.Money{Cents: 350000}},
	} {
		if _, err := repo.CreateMonthlySummary(ctx, s); err != nil {
			t.Fatalf("CreateMonthlySummary() error = %v", err)
		}
	}

	ov, err := svc.BuildOverview(ctx, "alice")
	if err != nil {
		t.Fatalf("BuildOverview() error = %v", err)
	}
	if ov.Trend == nil {
		t.Fatal("Trend = nil, want month-over-month comparison")
	}
	if ov.Trend.IncomeChange != 25 {
		t.Errorf("IncomeChange = %v, want 25", ov.Trend.IncomeChange)
	}
	if ov.Trend.ExpensesChange != -25 {
		t.Errorf("ExpensesChange = %v, want -25", ov.Trend.ExpensesChange)
	}
	if ov.Trend.SavingsChange != 75 {
		t.Errorf("SavingsChange = %v, want 75", ov.Trend.SavingsChange)
	}
}

func TestBuildOverviewEmptyOwner(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewOverviewService(repo, 6)

	ov, err := svc.BuildOverview(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("BuildOverview() error = %v", err)
	}
	if ov.MonthlyIncome.Cents != 0 || ov.MonthlyExpenses.Cents != 0 {
		t.Errorf("empty owner aggregates = %+v, want zeros", ov)
	}
	if len(ov.Goals) != 0 {
		t.Errorf("got %d goals, want 0", len(ov.Goals))
	}
}

func TestDepositServicePublishesFeedEvent(t *testing.T) {
	repo := newTestStorage(t)
	hub := feed.NewHub()
	svc := NewDepositService(repo, hub)
	ctx := context.Background()

	goal, err := repo.CreateSavingsGoal(ctx, core.SavingsGoal{
		OwnerID:      "alice",
		Name:         "vacation",
		TargetAmount: core.Money{Cents: 100000},
	})
	if err != nil {
		t.Fatalf("CreateSavingsGoal() error = %v", err)
	}

	var events []feed.Event
	unsubscribe := hub.Subscribe("alice", func(ev feed.Event) {
		events = append(events, ev)
	})
	defer unsubscribe()

	dep, updated, err := svc.RecordDeposit(ctx, "alice", goal.ID, core.Money{Cents: 2500})
	if err != nil {
		t.Fatalf("RecordDeposit() error = %v", err)
	}
	if dep.Amount.Cents != 2500 || updated.CurrentAmount.Cents != 2500 {
		t.Errorf("deposit = %+v, goal = %+v", dep, updated)
	}

	if len(events) != 1 {
		t.Fatalf("got %d feed events, want 1", len(events))
	}
	if events[0].Reason != "deposit:recorded" {
		t.Errorf("event reason = %q, want deposit:recorded", events[0].Reason)
	}
}
