package billing

import (
	"context"
	"time"

	"talentflow/pkg/db/option"
	"talentflow/pkg/errutil"
	"talentflow/pkg/repository"
	"talentflow/pkg/sequence"
	"talentflow/services/candidate"
	"talentflow/services/job"
	"talentflow/services/placement"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db            *gorm.DB
	node          *snowflake.Node
	seq           sequence.Generator
	repo          repository.Repository[BillingPeriod]
	placementRepo repository.Repository[placement.Placement]
	candidateRepo repository.Repository[candidate.Candidate]
	jobRepo       repository.Repository[job.Job]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
	Seq  sequence.Generator
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:            p.DB,
		node:          p.Node,
		seq:           p.Seq,
		repo:          repository.ProvideStore[BillingPeriod](p.DB),
		placementRepo: repository.ProvideStore[placement.Placement](p.DB),
		candidateRepo: repository.ProvideStore[candidate.Candidate](p.DB),
		jobRepo:       repository.ProvideStore[job.Job](p.DB),
	}
}

type CreatePeriodRequest struct {
	RecruiterID string    `json:"recruiter_id"`
	PartnerID   string    `json:"partner_id"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

// CreatePeriod snapshots the placements the recruiter recorded for the
// partner inside the date range into a new draft period.
func (s *Service) CreatePeriod(ctx context.Context, req CreatePeriodRequest) (*BillingPeriod, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	if req.RecruiterID == "" || req.PartnerID == "" {
		return nil, errutil.ValidationFailed("recruiter_id and partner_id are required", nil)
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, errutil.ValidationFailed("end date must not be before start date", nil)
	}

	count, total, err := s.computeTotals(ctx, req.RecruiterID, req.PartnerID, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	period := &BillingPeriod{
		ID:              s.node.Generate().String(),
		RecruiterID:     req.RecruiterID,
		PartnerID:       req.PartnerID,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		PlacementsCount: count,
		TotalAmount:     total,
		Status:          StatusDraft,
	}

	if err := s.repo.Create(ctx, period); err != nil {
		zapLog.Error("failed to create billing period", zap.Error(err))
		return nil, errutil.Internal("failed to create billing period", err)
	}

	return period, nil
}

// AttachInvoice recomputes the period's totals, attaches the invoice
// reference with a sequenced invoice code and closes the period. This is
// the only mutation path for an existing period.
func (s *Service) AttachInvoice(ctx context.Context, periodID, invoiceFile string) (*BillingPeriod, error) {
	period, err := s.Get(ctx, periodID)
	if err != nil {
		return nil, err
	}

	count, total, err := s.computeTotals(ctx, period.RecruiterID, period.PartnerID, period.StartDate, period.EndDate)
	if err != nil {
		return nil, err
	}

	code := period.InvoiceCode
	if code == "" {
		code, err = s.seq.NextInvoiceCode(ctx)
		if err != nil {
			return nil, errutil.Internal("failed to allocate invoice code", err)
		}
	}

	fields := map[string]any{
		"placements_count": count,
		"total_amount":     total,
		"invoice_code":     code,
		"invoice_file":     invoiceFile,
		"status":           StatusClosed,
	}
	if err := s.repo.Update(ctx, period.ID, fields); err != nil {
		return nil, errutil.Internal("failed to attach invoice", err)
	}

	period.PlacementsCount = count
	period.TotalAmount = total
	period.InvoiceCode = code
	period.InvoiceFile = invoiceFile
	period.Status = StatusClosed

	return period, nil
}

func (s *Service) Get(ctx context.Context, id string) (*BillingPeriod, error) {
	period, err := s.repo.FindOne(ctx, &BillingPeriod{ID: id})
	if err != nil {
		return nil, errutil.Internal("failed to get billing period", err)
	}
	if period == nil {
		return nil, errutil.NotFound("billing period not found", nil)
	}
	return period, nil
}

func (s *Service) List(ctx context.Context, recruiterID, partnerID string) ([]*BillingPeriod, error) {
	periods, err := s.repo.Find(ctx, &BillingPeriod{RecruiterID: recruiterID, PartnerID: partnerID},
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
	)
	if err != nil {
		return nil, errutil.Internal("failed to list billing periods", err)
	}
	return periods, nil
}

// computeTotals selects the partner's placements recorded by the recruiter
// with a start date inside [start, end]. The fallback for a zero snapshot is
// the raw job fee amount, without the promo multiplier; invoicing has always
// used the base fee.
func (s *Service) computeTotals(ctx context.Context, recruiterID, partnerID string, start, end time.Time) (int, float64, error) {
	candidates, err := s.candidateRepo.Find(ctx, &candidate.Candidate{PartnerID: partnerID})
	if err != nil {
		return 0, 0, errutil.Internal("failed to list candidates", err)
	}
	if len(candidates) == 0 {
		return 0, 0, nil
	}

	candidateIDs := make([]string, 0, len(candidates))
	jobByCandidate := make(map[string]string, len(candidates))
	jobSeen := make(map[string]struct{})
	jobIDs := make([]string, 0)
	for _, c := range candidates {
		candidateIDs = append(candidateIDs, c.ID)
		jobByCandidate[c.ID] = c.JobID
		if _, ok := jobSeen[c.JobID]; !ok && c.JobID != "" {
			jobSeen[c.JobID] = struct{}{}
			jobIDs = append(jobIDs, c.JobID)
		}
	}

	placements, err := s.placementRepo.Find(ctx, &placement.Placement{RecruiterID: recruiterID},
		option.WhereIn("candidate_id", candidateIDs),
		option.ApplyOperator(option.Condition{Field: "start_date", Operator: option.GTE, Value: start}),
		option.ApplyOperator(option.Condition{Field: "start_date", Operator: option.LTE, Value: end}),
	)
	if err != nil {
		return 0, 0, errutil.Internal("failed to list placements", err)
	}

	jobByID := make(map[string]*job.Job, len(jobIDs))
	if len(jobIDs) > 0 {
		jobs, err := s.jobRepo.Find(ctx, &job.Job{}, option.WhereIn("id", jobIDs))
		if err != nil {
			return 0, 0, errutil.Internal("failed to load jobs", err)
		}
		for _, j := range jobs {
			jobByID[j.ID] = j
		}
	}

	var total float64
	for _, p := range placements {
		amount := p.PartnerCommission
		if amount == 0 {
			if j := jobByID[jobByCandidate[p.CandidateID]]; j != nil {
				amount = j.PartnerFeeAmount
			}
		}
		total += amount
	}

	return len(placements), total, nil
}
