package placement

import (
	"context"
	"sort"
	"time"

	"talentflow/pkg/db/option"
	"talentflow/pkg/errutil"
	"talentflow/services/candidate"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Row is one mature unpaid placement in the eligibility report.
type Row struct {
	PlacementID   string     `json:"placement_id"`
	CandidateID   string     `json:"candidate_id"`
	CandidateName string     `json:"candidate_name"`
	PartnerID     string     `json:"partner_id"`
	PartnerName   string     `json:"partner_name"`
	StartDate     time.Time  `json:"start_date"`
	DaysWorked    int        `json:"days_worked"`
	Amount        float64    `json:"amount"`
	SettlementDay int        `json:"settlement_day"`
	NextPayDate   *time.Time `json:"next_pay_date,omitempty"`
	DaysUntilPay  int        `json:"days_until_pay"`
}

// PartnerSummary aggregates a partner's due rows across both buckets.
type PartnerSummary struct {
	PartnerID      string     `json:"partner_id"`
	PartnerName    string     `json:"partner_name"`
	Count          int        `json:"count"`
	Total          float64    `json:"total"`
	NextPayDate    *time.Time `json:"next_pay_date,omitempty"`
	DueToday       float64    `json:"due_today"`
	DueWithin7Days float64    `json:"due_within_7_days"`
}

// Report is the output of ComputeDue.
type Report struct {
	AsOf             time.Time                  `json:"as_of"`
	PayNow           []*Row                     `json:"pay_now"`
	AccruedNotYetDue []*Row                     `json:"accrued_not_yet_due"`
	Partners         map[string]*PartnerSummary `json:"partners"`
}

// ComputeDue evaluates every unpaid placement against the maturity window
// and each partner's settlement cycle. Read-only; safe to call repeatedly.
func (s *Service) ComputeDue(ctx context.Context, asOf time.Time) (*Report, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	unpaid, err := s.repo.Find(ctx, &Placement{},
		option.ApplyOperator(option.Condition{Field: "partner_paid", Operator: option.NE, Value: true}),
	)
	if err != nil {
		zapLog.Error("failed to list unpaid placements", zap.Error(err))
		return nil, errutil.Internal("failed to list unpaid placements", err)
	}

	report := &Report{
		AsOf:             asOf,
		PayNow:           []*Row{},
		AccruedNotYetDue: []*Row{},
		Partners:         map[string]*PartnerSummary{},
	}

	mature := make([]*Placement, 0, len(unpaid))
	candidateIDs := make([]string, 0, len(unpaid))
	for _, p := range unpaid {
		if p.StartDate.IsZero() {
			continue
		}
		if DaysWorked(p.StartDate, asOf) < s.maturityDays() {
			continue
		}
		mature = append(mature, p)
		candidateIDs = append(candidateIDs, p.CandidateID)
	}

	if len(mature) == 0 {
		return report, nil
	}

	candidates, err := s.candidateRepo.Find(ctx, &candidate.Candidate{}, option.WhereIn("id", candidateIDs))
	if err != nil {
		return nil, errutil.Internal("failed to load candidates", err)
	}
	candidateByID := make(map[string]*candidate.Candidate, len(candidates))
	jobSet := make(map[string]string, len(candidates))
	partnerSet := make(map[string]struct{}, len(candidates))
	partnerIDs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		candidateByID[c.ID] = c
		jobSet[c.ID] = c.JobID
		if _, ok := partnerSet[c.PartnerID]; !ok {
			partnerSet[c.PartnerID] = struct{}{}
			partnerIDs = append(partnerIDs, c.PartnerID)
		}
	}

	jobs, err := s.loadJobs(ctx, jobIDs(jobSet))
	if err != nil {
		return nil, err
	}
	partners, err := s.loadUsers(ctx, partnerIDs)
	if err != nil {
		return nil, err
	}

	for _, p := range mature {
		c := candidateByID[p.CandidateID]
		if c == nil {
			continue
		}

		row := &Row{
			PlacementID:   p.ID,
			CandidateID:   c.ID,
			CandidateName: c.Name,
			PartnerID:     c.PartnerID,
			StartDate:     p.StartDate,
			DaysWorked:    DaysWorked(p.StartDate, asOf),
			Amount:        resolveAmount(p, jobs[c.JobID]),
		}

		partner := partners[c.PartnerID]
		if partner != nil {
			row.PartnerName = partner.Name
			row.SettlementDay = partner.SettlementDay
		}

		hasCycle := false
		if next, ok := NextPayDate(row.SettlementDay, asOf); ok {
			hasCycle = true
			row.NextPayDate = &next
			days, _ := DaysUntilPay(row.SettlementDay, asOf)
			row.DaysUntilPay = days
		}

		if InPayNowBucket(row.SettlementDay, asOf) {
			report.PayNow = append(report.PayNow, row)
		} else {
			report.AccruedNotYetDue = append(report.AccruedNotYetDue, row)
		}

		summary := report.Partners[row.PartnerID]
		if summary == nil {
			summary = &PartnerSummary{
				PartnerID:   row.PartnerID,
				PartnerName: row.PartnerName,
				NextPayDate: row.NextPayDate,
			}
			report.Partners[row.PartnerID] = summary
		}
		summary.Count++
		summary.Total += row.Amount
		if hasCycle && row.DaysUntilPay == 0 {
			summary.DueToday += row.Amount
		}
		if hasCycle && row.DaysUntilPay <= 7 {
			summary.DueWithin7Days += row.Amount
		}
	}

	sortRows(report.PayNow)
	sortRows(report.AccruedNotYetDue)

	return report, nil
}

func sortRows(rows []*Row) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].StartDate.Equal(rows[j].StartDate) {
			return rows[i].PlacementID < rows[j].PlacementID
		}
		return rows[i].StartDate.Before(rows[j].StartDate)
	})
}
