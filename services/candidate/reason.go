package candidate

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultStatusReasons is the seeded reason catalog. An empty AppliesTo
// means the reason is usable on any transition.
func DefaultStatusReasons() []*StatusReason {
	return []*StatusReason{
		{Code: "no_show_first_day", Title: "Did not show up on the first day", AppliesTo: StatusNoShow, SortOrder: 10},
		{Code: "no_show_after_training", Title: "Did not show up after training", AppliesTo: StatusNoShow, SortOrder: 20},
		{Code: "refused_conditions", Title: "Refused the working conditions", AppliesTo: StatusNoShow, SortOrder: 30},
		{Code: "refused_salary", Title: "Refused the offered salary", AppliesTo: StatusNoShow, SortOrder: 40},
		{Code: "personal_reasons", Title: "Personal reasons", AppliesTo: StatusNoShow, SortOrder: 50},
		{Code: "moved_to_another_job", Title: "Moved to another job", AppliesTo: StatusDidNotComplete, SortOrder: 60},
		{Code: "low_performance", Title: "Low performance", AppliesTo: StatusDidNotComplete, SortOrder: 70},
		{Code: "discipline_issues", Title: "Discipline issues", AppliesTo: StatusDidNotComplete, SortOrder: 80},
		{Code: "housing_issues", Title: "Housing issues", AppliesTo: StatusNoShow, SortOrder: 90},
		{Code: "unknown_reason", Title: "Unknown reason", SortOrder: 100},
	}
}

// SeedStatusReasons upserts the default reason catalog. Safe to run on
// every startup.
func SeedStatusReasons(db *gorm.DB) error {
	return db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(DefaultStatusReasons()).Error
}
