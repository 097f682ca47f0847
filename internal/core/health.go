package core

import "time"

// HealthScore is a coarse 0-100 rating of an owner's financial standing,
// recomputed and upserted whenever aggregates refresh.
type HealthScore struct {
	OwnerID     string    `json:"owner_id"`
	Score       int       `json:"score"`
	Factors     []string  `json:"factors,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// ComputeHealthScore derives a health score from the same snapshot the
// insight rules consume: 40 points for savings rate, 30 for spending
// headroom, 30 for mean goal progress. Factors name the weak areas.
func ComputeHealthScore(streams []IncomeStream, expenses []Expense, goals []SavingsGoal, now time.Time) HealthScore {
	income := MonthlyIncome(streams)
	spend := MonthlyExpenses(expenses, now)

	var totalSavings Money
	for _, g := range goals {
		totalSavings = totalSavings.Add(g.CurrentAmount)
	}

	var factors []string

	savingsRate := 0.0
	if income.Cents > 0 {
		savingsRate = totalSavings.Dollars() / income.Dollars() * 100
	}
	savingsPart := savingsRate / targetSavingsRate
	if savingsPart > 1 {
		savingsPart = 1
	}
	if savingsPart < 1 {
		factors = append(factors, "low savings rate")
	}

	headroom := 0.0
	if income.Cents > 0 {
		ratio := spend.Dollars() / income.Dollars()
		if ratio < 1 {
			headroom = 1 - ratio
		}
	}
	if headroom == 0 {
		factors = append(factors, "spending matches or exceeds income")
	}

	progress := 0.0
	if len(goals) > 0 {
		for _, g := range goals {
			progress += g.Progress()
		}
		progress = progress / float64(len(goals)) / 100
	} else {
		factors = append(factors, "no savings goals")
	}

	score := int(savingsPart*40 + headroom*30 + progress*30 + 0.5)
	if score > 100 {
		score = 100
	}

	return HealthScore{
		Score:       score,
		Factors:     factors,
		LastUpdated: now,
	}
}
