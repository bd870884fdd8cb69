package user

import (
	"time"
)

type Role string

var (
	RolePartner     Role = "partner"
	RoleRecruiter   Role = "recruiter"
	RoleCoordinator Role = "coordinator"
	RoleFinance     Role = "finance"
	RoleAdmin       Role = "admin"
)

func (r Role) String() string {
	switch r {
	case RolePartner, RoleRecruiter, RoleCoordinator, RoleFinance, RoleAdmin:
		return string(r)
	default:
		return ""
	}
}

// IsStaff reports whether the role may drive pipeline transitions and
// payment operations.
func (r Role) IsStaff() bool {
	switch r {
	case RoleRecruiter, RoleCoordinator, RoleFinance, RoleAdmin:
		return true
	default:
		return false
	}
}

type User struct {
	ID        string    `gorm:"column:id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
	Name      string    `gorm:"column:name"`
	Email     string    `gorm:"column:email"`
	Role      Role      `gorm:"column:role"`
	IsBlocked bool      `gorm:"column:is_blocked"`

	// Partner payout metadata. SettlementDay is a day of month in [1,28],
	// or 0 meaning no fixed cycle (pay as soon as mature).
	SettlementDay       int    `gorm:"column:settlement_day"`
	BankAccount         string `gorm:"column:bank_account"`
	BankName            string `gorm:"column:bank_name"`
	Company             string `gorm:"column:company"`
	TaxID               string `gorm:"column:tax_id"`
	PayoutNote          string `gorm:"column:payout_note"`
	AssignedRecruiterID string `gorm:"column:assigned_recruiter_id"`
}
