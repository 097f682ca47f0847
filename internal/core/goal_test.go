package core

import (
	"testing"
	"time"
)

func TestGoalProgress(t *testing.T) {
	tests := []struct {
		name            string
		current, target int64
		want            float64
	}{
		{"halfway", 5000, 10000, 50.0},
		{"clamped at 100", 15000, 10000, 100.0},
		{"zero target yields zero", 1000, 0, 0},
		{"negative target yields zero", 1000, -100, 0},
		{"empty goal", 0, 10000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GoalProgress(Money{Cents: tt.current}, Money{Cents: tt.target})
			if got != tt.want {
				t.Errorf("GoalProgress(%d, %d) = %v, want %v", tt.current, tt.target, got, tt.want)
			}
		})
	}
}

func TestDaysUntilDeadline(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	if _, ok := DaysUntilDeadline(nil, now); ok {
		t.Fatal("expected ok=false for nil deadline")
	}

	tomorrow := now.AddDate(0, 0, 1)
	if days, _ := DaysUntilDeadline(&tomorrow, now); days != 1 {
		t.Errorf("tomorrow = %d days, want 1", days)
	}

	lastWeek := now.AddDate(0, 0, -7)
	if days, _ := DaysUntilDeadline(&lastWeek, now); days != -7 {
		t.Errorf("last week = %d days, want -7", days)
	}

	if days, _ := DaysUntilDeadline(&now, now); days != 0 {
		t.Errorf("due now = %d days, want 0", days)
	}

	// A partial day still counts as a full remaining day.
	inTwelveHours := now.Add(12 * time.Hour)
	if days, _ := DaysUntilDeadline(&inTwelveHours, now); days != 1 {
		t.Errorf("in 12h = %d days, want 1", days)
	}
}

func TestIsGoalOverdue(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)

	if !IsGoalOverdue(&yesterday, now) {
		t.Error("yesterday should be overdue")
	}
	if IsGoalOverdue(&tomorrow, now) {
		t.Error("tomorrow should not be overdue")
	}
	if IsGoalOverdue(nil, now) {
		t.Error("nil deadline should not be overdue")
	}
	if IsGoalOverdue(&now, now) {
		t.Error("deadline equal to now is not strictly before it")
	}
}

func TestGoalOverdueRequiresShortfall(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	past := now.AddDate(0, -1, 0)

	reached := SavingsGoal{TargetAmount: Money{Cents: 10000}, CurrentAmount: Money{Cents: 10000}, Deadline: &past}
	if reached.Overdue(now) {
		t.Error("a reached goal with a past deadline is not overdue")
	}

	short := SavingsGoal{TargetAmount: Money{Cents: 10000}, CurrentAmount: Money{Cents: 500}, Deadline: &past}
	if !short.Overdue(now) {
		t.Error("an unreached goal with a past deadline is overdue")
	}
}
