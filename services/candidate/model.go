package candidate

import (
	"time"

	"gorm.io/datatypes"
)

// Candidate is a partner's submission into the pipeline. The commission
// offers are frozen at submission time and never recomputed; the soft-delete
// status keeps financial history intact.
type Candidate struct {
	ID        string    `gorm:"column:id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
	JobID     string    `gorm:"column:job_id;index"`
	PartnerID string    `gorm:"column:partner_id;index"`
	Name      string    `gorm:"column:name"`
	Gender    string    `gorm:"column:gender"`
	Phone     string    `gorm:"column:phone"`

	Status           Status `gorm:"column:status;index"`
	StatusReasonCode string `gorm:"column:status_reason_code"`
	StatusComment    string `gorm:"column:status_comment"`

	PartnerFeeOffer   float64 `gorm:"column:partner_fee_offer"`
	RecruiterFeeOffer float64 `gorm:"column:recruiter_fee_offer"`
}

// CandidateComment is the audit trail visible to all viewers of a candidate.
type CandidateComment struct {
	ID          string    `gorm:"column:id;primaryKey"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	CandidateID string    `gorm:"column:candidate_id;index"`
	AuthorID    string    `gorm:"column:author_id"`
	Body        string    `gorm:"column:body"`
}

// CandidateLog is the immutable machine-readable audit log. Details carries
// transition payloads such as old/new status and reason codes.
type CandidateLog struct {
	ID          string         `gorm:"column:id;primaryKey"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
	CandidateID string         `gorm:"column:candidate_id;index"`
	ActorID     string         `gorm:"column:actor_id"`
	Action      string         `gorm:"column:action"`
	Details     datatypes.JSON `gorm:"column:details"`
}

// StatusReason is a categorical reason attachable to a transition.
// Meaningful for no_show and did_not_complete.
type StatusReason struct {
	Code      string `gorm:"column:code;primaryKey"`
	Title     string `gorm:"column:title"`
	AppliesTo Status `gorm:"column:applies_to"`
	SortOrder int    `gorm:"column:sort_order"`
}
