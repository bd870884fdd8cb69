package partner

import (
	"time"
)

type HealthStatus string

var (
	HealthGreen  HealthStatus = "green"
	HealthYellow HealthStatus = "yellow"
	HealthRed    HealthStatus = "red"
)

// Stats are the read-only aggregates the scorer runs on.
// DaysSinceLastSubmission is nil for partners who never submitted.
type Stats struct {
	SubmissionsThisMonth    int
	StartsThisMonth         int
	DaysSinceLastSubmission *int
}

// Score grades a partner's recent activity. Green means activity in the
// current calendar month; yellow means a last submission within 60 days;
// red means dormant or never submitted. The numeric score weighs starts
// double and decays with submission recency.
func Score(stats Stats) (HealthStatus, int) {
	status := HealthRed
	switch {
	case stats.SubmissionsThisMonth > 0 || stats.StartsThisMonth > 0:
		status = HealthGreen
	case stats.DaysSinceLastSubmission != nil && *stats.DaysSinceLastSubmission <= 60:
		status = HealthYellow
	}

	factor := 0.2
	if stats.DaysSinceLastSubmission != nil {
		switch days := *stats.DaysSinceLastSubmission; {
		case days <= 7:
			factor = 1.0
		case days <= 30:
			factor = 0.7
		case days <= 60:
			factor = 0.4
		default:
			factor = 0.1
		}
	}

	score := int(float64(stats.SubmissionsThisMonth+2*stats.StartsThisMonth) * 10 * factor)
	if score > 100 {
		score = 100
	}

	return status, score
}

// SameMonth reports whether t falls in asOf's calendar month.
func SameMonth(t, asOf time.Time) bool {
	return t.Year() == asOf.Year() && t.Month() == asOf.Month()
}
