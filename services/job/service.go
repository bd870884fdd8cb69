package job

import (
	"context"

	"talentflow/pkg/db/option"
	"talentflow/pkg/errutil"
	"talentflow/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	repo repository.Repository[Job]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
		repo: repository.ProvideStore[Job](p.DB),
	}
}

type CreateRequest struct {
	Title              string  `json:"title"`
	Priority           string  `json:"priority"`
	PartnerFeeAmount   float64 `json:"partner_fee_amount"`
	RecruiterFeeAmount float64 `json:"recruiter_fee_amount"`
	PromoMultiplier    float64 `json:"promo_multiplier"`
	MaleBonusEnabled   bool    `json:"male_bonus_enabled"`
	MaleBonusPercent   float64 `json:"male_bonus_percent"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Job, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	if req.PromoMultiplier < 0 {
		return nil, errutil.ValidationFailed("promo_multiplier must be >= 0", nil)
	}

	priority := Priority(req.Priority)
	if req.Priority == "" {
		priority = PriorityNormal
	}
	if priority.String() == "" {
		return nil, errutil.ValidationFailed("unknown priority", nil)
	}

	j := &Job{
		ID:                 s.node.Generate().String(),
		Title:              req.Title,
		Status:             StatusActive,
		Priority:           priority,
		PartnerFeeAmount:   req.PartnerFeeAmount,
		RecruiterFeeAmount: req.RecruiterFeeAmount,
		PromoMultiplier:    req.PromoMultiplier,
		MaleBonusEnabled:   req.MaleBonusEnabled,
		MaleBonusPercent:   req.MaleBonusPercent,
	}

	if err := s.repo.Create(ctx, j); err != nil {
		zapLog.Error("failed to create job", zap.Error(err))
		return nil, errutil.Internal("failed to create job", err)
	}

	return j, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Job, error) {
	j, err := s.repo.FindOne(ctx, &Job{ID: id})
	if err != nil {
		return nil, errutil.Internal("failed to get job", err)
	}
	if j == nil {
		return nil, errutil.NotFound("job not found", nil)
	}
	return j, nil
}

func (s *Service) List(ctx context.Context) ([]*Job, error) {
	jobs, err := s.repo.Find(ctx, &Job{},
		option.ApplyOperator(option.Condition{Field: "status", Operator: option.NE, Value: StatusDeleted}),
	)
	if err != nil {
		return nil, errutil.Internal("failed to list jobs", err)
	}
	return jobs, nil
}

type UpdateFeesRequest struct {
	PartnerFeeAmount   *float64 `json:"partner_fee_amount"`
	RecruiterFeeAmount *float64 `json:"recruiter_fee_amount"`
	PromoMultiplier    *float64 `json:"promo_multiplier"`
	MaleBonusEnabled   *bool    `json:"male_bonus_enabled"`
	MaleBonusPercent   *float64 `json:"male_bonus_percent"`
}

// UpdateFees edits the job's fee schedule. Already-frozen candidate offers
// are unaffected; resolution is a point-in-time read at submission.
func (s *Service) UpdateFees(ctx context.Context, id string, req UpdateFeesRequest) (*Job, error) {
	fields := map[string]any{}
	if req.PartnerFeeAmount != nil {
		fields["partner_fee_amount"] = *req.PartnerFeeAmount
	}
	if req.RecruiterFeeAmount != nil {
		fields["recruiter_fee_amount"] = *req.RecruiterFeeAmount
	}
	if req.PromoMultiplier != nil {
		if *req.PromoMultiplier < 0 {
			return nil, errutil.ValidationFailed("promo_multiplier must be >= 0", nil)
		}
		fields["promo_multiplier"] = *req.PromoMultiplier
	}
	if req.MaleBonusEnabled != nil {
		fields["male_bonus_enabled"] = *req.MaleBonusEnabled
	}
	if req.MaleBonusPercent != nil {
		fields["male_bonus_percent"] = *req.MaleBonusPercent
	}

	if len(fields) > 0 {
		if err := s.repo.Update(ctx, id, fields); err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, errutil.NotFound("job not found", nil)
			}
			return nil, errutil.Internal("failed to update job", err)
		}
	}

	return s.Get(ctx, id)
}

// Delete soft-deletes the job. Rows are never physically removed so frozen
// offers keep a resolvable parent.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Update(ctx, id, map[string]any{"status": StatusDeleted}); err != nil {
		if err == gorm.ErrRecordNotFound {
			return errutil.NotFound("job not found", nil)
		}
		return errutil.Internal("failed to delete job", err)
	}
	return nil
}
