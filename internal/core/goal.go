package core

import (
	"math"
	"time"
)

// GoalProgress computes a completion percentage in [0, 100]. A missing or
// non-positive target yields 0 rather than an error.
func GoalProgress(current, target Money) float64 {
	if target.Cents <= 0 {
		return 0
	}
	pct := current.Dollars() / target.Dollars() * 100
	return math.Min(100, pct)
}

// DaysUntilDeadline returns the number of whole days until the deadline,
// rounded up. Positive means days remaining, negative days overdue, zero
// due today. ok is false when no deadline is set.
func DaysUntilDeadline(deadline *time.Time, now time.Time) (days int, ok bool) {
	if deadline == nil {
		return 0, false
	}
	diff := deadline.Sub(now)
	return int(math.Ceil(diff.Hours() / 24)), true
}

// IsGoalOverdue reports whether the deadline exists and is strictly in the
// past.
func IsGoalOverdue(deadline *time.Time, now time.Time) bool {
	return deadline != nil && deadline.Before(now)
}

// Progress is a convenience wrapper over GoalProgress for a goal value.
func (g SavingsGoal) Progress() float64 {
	return GoalProgress(g.CurrentAmount, g.TargetAmount)
}

// Overdue reports whether the goal has a past deadline and has not reached
// its target.
func (g SavingsGoal) Overdue(now time.Time) bool {
	return IsGoalOverdue(g.Deadline, now) && g.CurrentAmount.Cents < g.TargetAmount.Cents
}
