package services

import (
	"context"
	"fmt"
	"time"

	"acorn/internal/core"
	"acorn/internal/storage"
)

// Overview is the full financial snapshot for one owner: normalized
// aggregates, goal statuses, insights, and the health score. It is
// recomputed from scratch on every request; nothing here is persisted.
type Overview struct {
	MonthlyIncome   core.Money            `json:"monthly_income"`
	MonthlyExpenses core.Money            `json:"monthly_expenses"`
	MonthlySavings  core.Money            `json:"monthly_savings"`
	ByCategory      map[string]core.Money `json:"by_category"`
	Goals           []GoalStatus          `json:"goals"`
	Insights        []core.Insight        `json:"insights"`
	Health          core.HealthScore      `json:"health"`
	Trend           *Trend                `json:"trend,omitempty"`
	GeneratedAt     time.Time             `json:"generated_at"`
}

// Trend compares the two most recent summary snapshots in the trailing
// window, as percent change from the older to the newer.
type Trend struct {
	IncomeChange   float64 `json:"income_change_pct"`
	ExpensesChange float64 `json:"expenses_change_pct"`
	SavingsChange  float64 `json:"savings_change_pct"`
}

// GoalStatus augments a goal with its derived progress figures.
type GoalStatus struct {
	Goal        core.SavingsGoal `json:"goal"`
	Progress    float64          `json:"progress"`
	DaysLeft    int              `json:"days_left"`
	HasDeadline bool             `json:"has_deadline"`
	Overdue     bool             `json:"overdue"`
}

// OverviewService composes the read side: it loads an owner's records and
// runs the pure evaluators over them.
type OverviewService struct {
	storage       *storage.SQLiteRepository
	summaryMonths int
}

func NewOverviewService(storage *storage.SQLiteRepository, summaryMonths int) *OverviewService {
	if summaryMonths <= 0 {
		summaryMonths = 6
	}
	return &OverviewService{storage: storage, summaryMonths: summaryMonths}
}

func (s *OverviewService) BuildOverview(ctx context.Context, ownerID string) (Overview, error) {
	now := time.Now().UTC()

	streams, err := s.storage.ListIncomeStreams(ctx, ownerID)
	if err != nil {
		return Overview{}, fmt.Errorf("load income streams: %w", err)
	}
	expenses, err := s.storage.ListExpenses(ctx, ownerID)
	if err != nil {
		return Overview{}, fmt.Errorf("load expenses: %w", err)
	}
	goals, err := s.storage.ListSavingsGoals(ctx, ownerID)
	if err != nil {
		return Overview{}, fmt.Errorf("load savings goals: %w", err)
	}
	summaries, err := s.storage.ListMonthlySummaries(ctx, ownerID, s.summaryMonths)
	if err != nil {
		return Overview{}, fmt.Errorf("load monthly summaries: %w", err)
	}

	income := core.MonthlyIncome(streams)
	spend := core.MonthlyExpenses(expenses, now)

	statuses := make([]GoalStatus, 0, len(goals))
	for _, g := range goals {
		days, hasDeadline := core.DaysUntilDeadline(g.Deadline, now)
		statuses = append(statuses, GoalStatus{
			Goal:        g,
			Progress:    g.Progress(),
			DaysLeft:    days,
			HasDeadline: hasDeadline,
			Overdue:     g.Overdue(now),
		})
	}

	return Overview{
		MonthlyIncome:   income,
		MonthlyExpenses: spend,
		MonthlySavings:  core.Money{Cents: income.Cents - spend.Cents},
		ByCategory:      core.ExpensesByCategory(expenses),
		Goals:           statuses,
		Insights:        core.GenerateInsights(streams, expenses, goals, summaries, now),
		Health:          core.ComputeHealthScore(streams, expenses, goals, now),
		Trend:           summaryTrend(summaries),
		GeneratedAt:     now,
	}, nil
}

// summaryTrend needs at least two snapshots; otherwise there is nothing to
// compare and the trend is omitted.
func summaryTrend(summaries []core.MonthlySummary) *Trend {
	if len(summaries) < 2 {
		return nil
	}
	prev := summaries[len(summaries)-2]
	curr := summaries[len(summaries)-1]
	return &Trend{
		IncomeChange:   core.PercentageChange(curr.Income.Dollars(), prev.Income.Dollars()),
		ExpensesChange: core.PercentageChange(curr.Expenses.Dollars(), prev.Expenses.Dollars()),
		SavingsChange:  core.PercentageChange(curr.Savings.Dollars(), prev.Savings.Dollars()),
	}
}
