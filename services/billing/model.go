package billing

import (
	"time"
)

type PeriodStatus string

var (
	StatusDraft  PeriodStatus = "draft"
	StatusClosed PeriodStatus = "closed"
)

func (s PeriodStatus) String() string {
	switch s {
	case StatusDraft, StatusClosed:
		return string(s)
	default:
		return ""
	}
}

// BillingPeriod freezes a recruiter-partner date-range cut of placements
// into a snapshot for invoicing. Totals are computed at creation and again
// when an invoice is attached; nothing else mutates the row, so the stored
// snapshot can drift from live placement edits in between.
type BillingPeriod struct {
	ID          string    `gorm:"column:id;primaryKey"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
	RecruiterID string    `gorm:"column:recruiter_id;index"`
	PartnerID   string    `gorm:"column:partner_id;index"`
	StartDate   time.Time `gorm:"column:start_date"`
	EndDate     time.Time `gorm:"column:end_date"`

	PlacementsCount int     `gorm:"column:placements_count"`
	TotalAmount     float64 `gorm:"column:total_amount"`

	InvoiceCode string       `gorm:"column:invoice_code"`
	InvoiceFile string       `gorm:"column:invoice_file"`
	Status      PeriodStatus `gorm:"column:status"`
}
