package placement

import (
	"context"
	"fmt"
	"sort"
	"time"

	"talentflow/pkg/db/option"
	"talentflow/pkg/errutil"
	"talentflow/services/candidate"
	"talentflow/services/user"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MarkPaidRequest struct {
	PlacementIDs []string `json:"placement_ids"`
	ProofRef     string   `json:"proof_ref"`
	ActorID      string   `json:"actor_id"`
}

// MarkPaid marks the given placements paid, attaching the proof reference.
// Already-paid ids are filtered out, so retries and concurrent submissions
// are harmless: the conditional update only ever flips partner_paid once.
// One notification goes out per distinct (partner, recruiter) pair, not per
// placement.
func (s *Service) MarkPaid(ctx context.Context, req MarkPaidRequest) (int64, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	if len(req.PlacementIDs) == 0 {
		return 0, nil
	}

	var paid int64

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pending, err := s.repo.WithTrx(tx).Find(ctx, &Placement{},
			option.WhereIn("id", req.PlacementIDs),
			option.ApplyOperator(option.Condition{Field: "partner_paid", Operator: option.NE, Value: true}),
		)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}

		ids := make([]string, 0, len(pending))
		candidateIDs := make([]string, 0, len(pending))
		for _, p := range pending {
			ids = append(ids, p.ID)
			candidateIDs = append(candidateIDs, p.CandidateID)
		}

		proof := req.ProofRef
		if proof == "" && s.seq != nil {
			// No uploaded proof, stamp the batch with a generated payout code
			// so the payment stays traceable.
			code, err := s.seq.NextPayoutBatchCode(ctx)
			if err != nil {
				return err
			}
			proof = code
		}

		fields := map[string]any{
			"partner_paid":    true,
			"partner_paid_at": time.Now().UTC(),
		}
		if proof != "" {
			fields["partner_payment_file"] = proof
		}

		res := tx.Model(&Placement{}).
			Where("id IN ? AND partner_paid = ?", ids, false).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		paid = res.RowsAffected

		candidates, err := s.candidateRepo.WithTrx(tx).Find(ctx, &candidate.Candidate{},
			option.WhereIn("id", candidateIDs),
		)
		if err != nil {
			return err
		}

		// One notification per distinct (partner, recruiter) pair.
		type pair struct{ partner, recruiter string }
		pairs := make(map[pair]int)
		for _, c := range candidates {
			partner, err := s.userRepo.WithTrx(tx).FindOne(ctx, &user.User{ID: c.PartnerID})
			if err != nil {
				return err
			}
			if partner == nil {
				continue
			}
			pairs[pair{partner: partner.ID, recruiter: partner.AssignedRecruiterID}]++
		}

		for p, count := range pairs {
			message := fmt.Sprintf("Commission payout recorded for %d placement(s)", count)
			if err := s.notifier.NotifyUsers(ctx, tx, []string{p.partner, p.recruiter}, message, req.ActorID); err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		zapLog.Error("failed to mark placements paid", zap.Error(err))
		return 0, errutil.Internal("failed to mark placements paid", err)
	}

	return paid, nil
}

// MarkPartnerDue pays out everything currently in the partner's payNow
// bucket. The input set is exactly what ComputeDue surfaced as due, so the
// report and the payout can never disagree on which rows are payable.
func (s *Service) MarkPartnerDue(ctx context.Context, partnerID string, asOf time.Time, proofRef, actorID string) (int64, error) {
	report, err := s.ComputeDue(ctx, asOf)
	if err != nil {
		return 0, err
	}

	ids := make([]string, 0)
	for _, row := range report.PayNow {
		if row.PartnerID == partnerID {
			ids = append(ids, row.PlacementID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	return s.MarkPaid(ctx, MarkPaidRequest{
		PlacementIDs: ids,
		ProofRef:     proofRef,
		ActorID:      actorID,
	})
}

// Confirm records the recruiter's first-month attestation and notifies the
// submitting partner. Orthogonal to payment; confirming an already-confirmed
// placement is a no-op and notifies nobody.
func (s *Service) Confirm(ctx context.Context, placementID, actorID string) error {
	p, err := s.repo.FindOne(ctx, &Placement{ID: placementID})
	if err != nil {
		return errutil.Internal("failed to get placement", err)
	}
	if p == nil {
		return errutil.NotFound("placement not found", nil)
	}
	if p.RecruiterConfirmed {
		return nil
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Placement{}).
			Where("id = ? AND recruiter_confirmed = ?", placementID, false).
			Updates(map[string]any{
				"recruiter_confirmed":    true,
				"recruiter_confirmed_by": actorID,
				"recruiter_confirmed_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race to another confirmation.
			return nil
		}

		c, err := s.candidateRepo.WithTrx(tx).FindOne(ctx, &candidate.Candidate{ID: p.CandidateID})
		if err != nil {
			return err
		}
		if c == nil {
			return nil
		}

		message := fmt.Sprintf("Recruiter confirmed the first month for %s", c.Name)
		return s.notifier.NotifyUsers(ctx, tx, []string{c.PartnerID}, message, actorID)
	}); err != nil {
		return errutil.Internal("failed to confirm placement", err)
	}

	return nil
}

// HistoryRow is one paid placement in the payment history report.
type HistoryRow struct {
	PlacementID   string    `json:"placement_id"`
	CandidateID   string    `json:"candidate_id"`
	CandidateName string    `json:"candidate_name"`
	PartnerID     string    `json:"partner_id"`
	PartnerName   string    `json:"partner_name"`
	StartDate     time.Time `json:"start_date"`
	PaidAt        time.Time `json:"paid_at"`
	Amount        float64   `json:"amount"`
	PaymentFile   string    `json:"payment_file,omitempty"`
}

// PartnerTotal summarizes one partner's share of a history report.
type PartnerTotal struct {
	PartnerID   string  `json:"partner_id"`
	PartnerName string  `json:"partner_name"`
	Count       int     `json:"count"`
	Total       float64 `json:"total"`
}

// HistoryReport is the output of PaidBetween.
type HistoryReport struct {
	Rows     []*HistoryRow            `json:"rows"`
	Partners map[string]*PartnerTotal `json:"partners"`
	Total    float64                  `json:"total"`
}

// PaidBetween reports placements paid inside [from, to], optionally limited
// to one partner.
func (s *Service) PaidBetween(ctx context.Context, from, to time.Time, partnerID string) (*HistoryReport, error) {
	placements, err := s.repo.Find(ctx, &Placement{PartnerPaid: true},
		option.ApplyOperator(option.Condition{Field: "partner_paid_at", Operator: option.GTE, Value: from}),
		option.ApplyOperator(option.Condition{Field: "partner_paid_at", Operator: option.LTE, Value: to}),
	)
	if err != nil {
		return nil, errutil.Internal("failed to list paid placements", err)
	}

	report := &HistoryReport{
		Rows:     []*HistoryRow{},
		Partners: map[string]*PartnerTotal{},
	}
	if len(placements) == 0 {
		return report, nil
	}

	candidateIDs := make([]string, 0, len(placements))
	for _, p := range placements {
		candidateIDs = append(candidateIDs, p.CandidateID)
	}
	candidates, err := s.candidateRepo.Find(ctx, &candidate.Candidate{}, option.WhereIn("id", candidateIDs))
	if err != nil {
		return nil, errutil.Internal("failed to load candidates", err)
	}

	candidateByID := make(map[string]*candidate.Candidate, len(candidates))
	jobSet := make(map[string]string, len(candidates))
	partnerSet := make(map[string]struct{})
	partnerIDs := make([]string, 0)
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

	for _, p := range placements {
		c := candidateByID[p.CandidateID]
		if c == nil {
			continue
		}
		if partnerID != "" && c.PartnerID != partnerID {
			continue
		}

		row := &HistoryRow{
			PlacementID:   p.ID,
			CandidateID:   c.ID,
			CandidateName: c.Name,
			PartnerID:     c.PartnerID,
			StartDate:     p.StartDate,
			Amount:        resolveAmount(p, jobs[c.JobID]),
			PaymentFile:   p.PartnerPaymentFile,
		}
		if p.PartnerPaidAt != nil {
			row.PaidAt = *p.PartnerPaidAt
		}
		if partner := partners[c.PartnerID]; partner != nil {
			row.PartnerName = partner.Name
		}

		report.Rows = append(report.Rows, row)
		report.Total += row.Amount

		total := report.Partners[row.PartnerID]
		if total == nil {
			total = &PartnerTotal{PartnerID: row.PartnerID, PartnerName: row.PartnerName}
			report.Partners[row.PartnerID] = total
		}
		total.Count++
		total.Total += row.Amount
	}

	sort.Slice(report.Rows, func(i, j int) bool {
		return report.Rows[i].PaidAt.Before(report.Rows[j].PaidAt)
	})

	return report, nil
}
