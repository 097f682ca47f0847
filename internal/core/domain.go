package core

import (
	"errors"
	"strings"
	"time"
)

const (
	OneTime Frequency = "one-time"
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type (
	// Frequency describes how often a recurring amount repeats.
	Frequency string

	// Priority ranks savings goals for display ordering.
	Priority string

	// Money is an amount in cents.
	Money struct {
		Cents int64 `json:"cents"`
	}

	// IncomeStream is a recurring or one-off source of income.
	IncomeStream struct {
		ID          int64     `json:"id"`
		OwnerID     string    `json:"owner_id"`
		Name        string    `json:"name"`
		Amount      Money     `json:"amount"`
		Frequency   Frequency `json:"frequency"`
		IsRecurring bool      `json:"is_recurring"`
		CreatedAt   time.Time `json:"created_at"`
	}

	// Expense is a single spending record. One-time expenses only count
	// toward the monthly aggregate when dated in the evaluation month.
	Expense struct {
		ID          int64     `json:"id"`
		OwnerID     string    `json:"owner_id"`
		Name        string    `json:"name"`
		Amount      Money     `json:"amount"`
		Category    string    `json:"category"`
		Frequency   Frequency `json:"frequency"`
		IsRecurring bool      `json:"is_recurring"`
		Date        time.Time `json:"date"`
		Description string    `json:"description,omitempty"`
		CreatedAt   time.Time `json:"created_at"`
	}

	// SavingsGoal tracks progress toward a target amount. CurrentAmount is
	// only advanced through the deposit ledger; generic updates exist for
	// corrective edits.
	SavingsGoal struct {
		ID            int64      `json:"id"`
		OwnerID       string     `json:"owner_id"`
		Name          string     `json:"name"`
		TargetAmount  Money      `json:"target_amount"`
		CurrentAmount Money      `json:"current_amount"`
		Deadline      *time.Time `json:"deadline,omitempty"`
		Priority      Priority   `json:"priority"`
		Category      string     `json:"category"`
		IsCompleted   bool       `json:"is_completed"`
		CreatedAt     time.Time  `json:"created_at"`
	}

	// Deposit is an append-only contribution toward a goal.
	Deposit struct {
		ID      int64     `json:"id"`
		OwnerID string    `json:"owner_id"`
		GoalID  int64     `json:"goal_id"`
		Amount  Money     `json:"amount"`
		Date    time.Time `json:"date"`
	}

	// MonthlySummary is a persisted per-month aggregate snapshot used for
	// trend analysis.
	MonthlySummary struct {
		ID        int64     `json:"id"`
		OwnerID   string    `json:"owner_id"`
		Month     int       `json:"month"` // 1-12
		Year      int       `json:"year"`
		Income    Money     `json:"income"`
		Expenses  Money     `json:"expenses"`
		Savings   Money     `json:"savings"`
		CreatedAt time.Time `json:"created_at"`
	}
)

// DefaultCategory is used when a record carries no category.
const DefaultCategory = "general"

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyOwner      = errors.New("empty owner id")
	ErrInvalidTarget   = errors.New("target amount must be positive")
	ErrNotFound        = errors.New("record not found")
	ErrGoalNotFound    = errors.New("goal not found")
	ErrNegativeDeposit = errors.New("withdrawals are not allowed")
	ErrConflict        = errors.New("transaction conflict")
	ErrUnavailable     = errors.New("backend unavailable")
)

// Normalized returns the frequency with unknown or empty values mapped to
// monthly, matching the aggregation default.
func (f Frequency) Normalized() Frequency {
	switch f {
	case OneTime, Daily, Weekly, Monthly, Yearly:
		return f
	default:
		return Monthly
	}
}

// Rank orders priorities high > medium > low for goal listings.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

func (s IncomeStream) Validate() error {
	if strings.TrimSpace(s.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if s.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if e.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if len(e.Description) > 500 {
		return errors.New("description too long (max 500 characters)")
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if g.TargetAmount.Cents <= 0 {
		return ErrInvalidTarget
	}
	if g.CurrentAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// CategoryOrDefault returns the expense category, falling back to the
// default when unset.
func (e Expense) CategoryOrDefault() string {
	if strings.TrimSpace(e.Category) == "" {
		return DefaultCategory
	}
	return e.Category
}
