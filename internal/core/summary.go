package core

import (
	"sort"
	"time"
)

// SummaryWindow filters summaries to the trailing months-month window ending
// at now and returns them sorted by year then month, ascending. Duplicate
// (month, year) entries are kept as-is; deduplication is deliberately left
// to the caller to flag.
func SummaryWindow(summaries []MonthlySummary, months int, now time.Time) []MonthlySummary {
	if months < 1 {
		return nil
	}
	start := time.Date(now.Year(), now.Month()-time.Month(months-1), 1, 0, 0, 0, 0, time.UTC)

	out := make([]MonthlySummary, 0, len(summaries))
	for _, s := range summaries {
		at := time.Date(s.Year, time.Month(s.Month), 1, 0, 0, 0, 0, time.UTC)
		if !at.Before(start) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// PercentageChange computes the percent change from previous to current.
// Returns 0 when previous is 0 to avoid a meaningless division.
func PercentageChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}
