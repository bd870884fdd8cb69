package job

import (
	"time"
)

type JobStatus string

var (
	StatusActive   JobStatus = "active"
	StatusInactive JobStatus = "inactive"
	StatusDeleted  JobStatus = "deleted"
)

func (s JobStatus) String() string {
	switch s {
	case StatusActive, StatusInactive, StatusDeleted:
		return string(s)
	default:
		return ""
	}
}

type Priority string

var (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityTop    Priority = "top"
)

func (p Priority) String() string {
	switch p {
	case PriorityNormal, PriorityHigh, PriorityTop:
		return string(p)
	default:
		return ""
	}
}

// Job carries the fee schedule used to freeze a candidate's commission offer
// at submission time. Fee fields are mutable at any time; changes never
// retroactively affect already-frozen offers.
type Job struct {
	ID        string    `gorm:"column:id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
	Title     string    `gorm:"column:title"`
	Status    JobStatus `gorm:"column:status"`
	Priority  Priority  `gorm:"column:priority"`

	PartnerFeeAmount   float64 `gorm:"column:partner_fee_amount"`
	RecruiterFeeAmount float64 `gorm:"column:recruiter_fee_amount"`
	PromoMultiplier    float64 `gorm:"column:promo_multiplier"`
	MaleBonusEnabled   bool    `gorm:"column:male_bonus_enabled"`
	MaleBonusPercent   float64 `gorm:"column:male_bonus_percent"`
}
