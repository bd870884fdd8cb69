package placement

import (
	"time"
)

// Placement records a candidate starting work, one row per candidate. The
// commission snapshots are the settled values and may diverge from the
// candidate's frozen offer; partner_paid is a one-way flag never reset by
// normal flows.
type Placement struct {
	ID          string    `gorm:"column:id;primaryKey"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
	CandidateID string    `gorm:"column:candidate_id;uniqueIndex"`
	RecruiterID string    `gorm:"column:recruiter_id;index"`
	StartDate   time.Time `gorm:"column:start_date"`

	PartnerCommission   float64 `gorm:"column:partner_commission"`
	RecruiterCommission float64 `gorm:"column:recruiter_commission"`

	PartnerPaid        bool       `gorm:"column:partner_paid;index"`
	PartnerPaidAt      *time.Time `gorm:"column:partner_paid_at"`
	PartnerPaymentFile string     `gorm:"column:partner_payment_file"`

	RecruiterConfirmed   bool       `gorm:"column:recruiter_confirmed"`
	RecruiterConfirmedBy string     `gorm:"column:recruiter_confirmed_by"`
	RecruiterConfirmedAt *time.Time `gorm:"column:recruiter_confirmed_at"`
}
