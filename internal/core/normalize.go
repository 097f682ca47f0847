package core

import "time"

// Average weeks and days per calendar month, matching the conversion table
// used for all monthly-equivalent amounts: weekly ×4.33, daily ×30.
const (
	weeksPerMonthNum = 433 // 4.33 as a cents-safe ratio
	weeksPerMonthDen = 100
	daysPerMonth     = 30
	monthsPerYear    = 12
)

// MonthlyAmount converts an amount tagged with a recurrence frequency into
// its monthly-equivalent value. One-time amounts pass through at face
// value; date gating for one-time expenses happens in MonthlyExpenses.
// Unknown frequencies get monthly semantics. Never fails; negative input is
// treated as zero.
func MonthlyAmount(amount Money, freq Frequency) Money {
	if amount.Cents <= 0 {
		return Money{}
	}
	switch freq.Normalized() {
	case Weekly:
		return Money{Cents: mulDivRound(amount.Cents, weeksPerMonthNum, weeksPerMonthDen)}
	case Yearly:
		return Money{Cents: mulDivRound(amount.Cents, 1, monthsPerYear)}
	case Daily:
		return Money{Cents: amount.Cents * daysPerMonth}
	default: // Monthly, OneTime
		return amount
	}
}

// MonthlyIncome sums the monthly-equivalent amounts of all income streams.
// Streams are considered currently active regardless of creation date.
func MonthlyIncome(streams []IncomeStream) Money {
	var total Money
	for _, s := range streams {
		total = total.Add(MonthlyAmount(s.Amount, s.Frequency))
	}
	return total
}

// MonthlyExpenses sums the monthly-equivalent amounts of all expenses.
// One-time expenses count only when dated in the same calendar month and
// year as now; outside that month they contribute nothing.
func MonthlyExpenses(expenses []Expense, now time.Time) Money {
	var total Money
	for _, e := range expenses {
		if e.Frequency.Normalized() == OneTime && !SameMonth(e.EffectiveDate(), now) {
			continue
		}
		total = total.Add(MonthlyAmount(e.Amount, e.Frequency))
	}
	return total
}

// ExpensesByCategory groups expenses by category and sums the raw amounts
// per category, without frequency normalization.
func ExpensesByCategory(expenses []Expense) map[string]Money {
	out := make(map[string]Money, len(expenses))
	for _, e := range expenses {
		cat := e.CategoryOrDefault()
		out[cat] = out[cat].Add(e.Amount)
	}
	return out
}

// EffectiveDate returns the expense date, falling back to the creation
// timestamp when no explicit date was recorded.
func (e Expense) EffectiveDate() time.Time {
	if !e.Date.IsZero() {
		return e.Date
	}
	return e.CreatedAt
}

// SameMonth reports whether both times fall in the same calendar month and
// year.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
