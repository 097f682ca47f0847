package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	InsightWarning InsightType = "warning"
	InsightSuccess InsightType = "success"
	InsightInfo    InsightType = "info"
)

type (
	// InsightType classifies an insight for presentation.
	InsightType string

	// Insight is a computed, never-persisted advisory message. The list is
	// recomputed from scratch on every aggregate refresh.
	Insight struct {
		Type    InsightType `json:"type"`
		Title   string      `json:"title"`
		Message string      `json:"message"`
		Action  string      `json:"action"`
	}
)

const (
	targetSavingsRate     = 20.0 // percent of monthly income
	dominantCategoryShare = 0.30 // fraction of monthly income
	emergencyFundMonths   = 6
)

// GenerateInsights evaluates the advisory rules against the current
// financial snapshot and returns the triggered insights in rule order.
// Rules are independent; none suppresses another. The function is pure:
// identical inputs (including now) produce identical output.
func GenerateInsights(streams []IncomeStream, expenses []Expense, goals []SavingsGoal, summaries []MonthlySummary, now time.Time) []Insight {
	insights := []Insight{}

	monthlyIncome := MonthlyIncome(streams)
	monthlyExpenses := MonthlyExpenses(expenses, now)

	var totalSavings Money
	for _, g := range goals {
		totalSavings = totalSavings.Add(g.CurrentAmount)
	}

	// Rule 1: savings rate. Exactly 20% triggers neither branch.
	savingsRate := 0.0
	if monthlyIncome.Cents > 0 {
		savingsRate = totalSavings.Dollars() / monthlyIncome.Dollars() * 100
	}
	if savingsRate < targetSavingsRate {
		insights = append(insights, Insight{
			Type:    InsightWarning,
			Title:   "Increase Savings Rate",
			Message: fmt.Sprintf("Your current savings rate is %.1f%%. Aim for at least 20%% of income.", savingsRate),
			Action:  "Review and reduce expenses",
		})
	} else if savingsRate > targetSavingsRate {
		insights = append(insights, Insight{
			Type:    InsightSuccess,
			Title:   "Great Savings Rate!",
			Message: fmt.Sprintf("You're saving %.1f%% of your income. Keep it up!", savingsRate),
			Action:  "Consider increasing investment goals",
		})
	}

	// Rule 2: dominant expense category, by raw per-category sums. Skipped
	// when there is no income to compare against.
	if cat, sum, ok := dominantCategory(expenses); ok && monthlyIncome.Cents > 0 {
		if sum.Dollars() > monthlyIncome.Dollars()*dominantCategoryShare {
			share := sum.Dollars() / monthlyIncome.Dollars() * 100
			insights = append(insights, Insight{
				Type:    InsightWarning,
				Title:   "High Expense Category",
				Message: fmt.Sprintf("%s accounts for %.1f%% of your income.", cat, share),
				Action:  "Consider reducing expenses in this category",
			})
		}
	}

	// Rule 3: overdue goals.
	overdue := 0
	for _, g := range goals {
		if g.Overdue(now) {
			overdue++
		}
	}
	if overdue > 0 {
		insights = append(insights, Insight{
			Type:    InsightWarning,
			Title:   "Overdue Savings Goals",
			Message: fmt.Sprintf("You have %d overdue savings goals.", overdue),
			Action:  "Review deadlines and adjust savings contributions",
		})
	}

	// Rule 4: emergency fund.
	recommended := Money{Cents: monthlyExpenses.Cents * emergencyFundMonths}
	fund, hasFund := findEmergencyFund(goals)
	if !hasFund || fund.CurrentAmount.Cents < recommended.Cents {
		insights = append(insights, Insight{
			Type:    InsightInfo,
			Title:   "Emergency Fund",
			Message: fmt.Sprintf("Aim for 6 months of expenses (%.0f) in your emergency fund.", recommended.Dollars()),
			Action:  "Set up or increase emergency fund contributions",
		})
	}

	return insights
}

// dominantCategory returns the category with the largest raw expense sum.
// Ties break on category name so repeated evaluation stays deterministic.
func dominantCategory(expenses []Expense) (string, Money, bool) {
	sums := ExpensesByCategory(expenses)
	if len(sums) == 0 {
		return "", Money{}, false
	}
	var best string
	var bestSum Money
	first := true
	for cat, sum := range sums {
		if first || sum.Cents > bestSum.Cents || (sum.Cents == bestSum.Cents && cat < best) {
			best, bestSum = cat, sum
			first = false
		}
	}
	return best, bestSum, true
}

// findEmergencyFund locates a goal categorized as emergency or whose name
// mentions "emergency", case-insensitively.
func findEmergencyFund(goals []SavingsGoal) (SavingsGoal, bool) {
	for _, g := range goals {
		if g.Category == "emergency" || strings.Contains(strings.ToLower(g.Name), "emergency") {
			return g, true
		}
	}
	return SavingsGoal{}, false
}
