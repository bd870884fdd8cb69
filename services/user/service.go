package user

import (
	"context"

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
	repo repository.Repository[User]
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
		repo: repository.ProvideStore[User](p.DB),
	}
}

type CreateRequest struct {
	Name                string `json:"name"`
	Email               string `json:"email"`
	Role                string `json:"role"`
	SettlementDay       int    `json:"settlement_day"`
	AssignedRecruiterID string `json:"assigned_recruiter_id"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*User, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	role := Role(req.Role)
	if role.String() == "" {
		return nil, errutil.ValidationFailed("unknown role", nil)
	}

	if req.SettlementDay < 0 || req.SettlementDay > 28 {
		return nil, errutil.ValidationFailed("settlement_day must be 0 or in [1,28]", nil)
	}

	u := &User{
		ID:                  s.node.Generate().String(),
		Name:                req.Name,
		Email:               req.Email,
		Role:                role,
		SettlementDay:       req.SettlementDay,
		AssignedRecruiterID: req.AssignedRecruiterID,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		zapLog.Error("failed to create user", zap.Error(err))
		return nil, errutil.Internal("failed to create user", err)
	}

	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.FindOne(ctx, &User{ID: id})
	if err != nil {
		return nil, errutil.Internal("failed to get user", err)
	}
	if u == nil {
		return nil, errutil.NotFound("user not found", nil)
	}
	return u, nil
}

func (s *Service) ListByRole(ctx context.Context, role Role) ([]*User, error) {
	users, err := s.repo.Find(ctx, &User{Role: role})
	if err != nil {
		return nil, errutil.Internal("failed to list users", err)
	}
	return users, nil
}

// PartnersOfRecruiter returns the partners routed to the given recruiter.
func (s *Service) PartnersOfRecruiter(ctx context.Context, recruiterID string) ([]*User, error) {
	partners, err := s.repo.Find(ctx, &User{Role: RolePartner, AssignedRecruiterID: recruiterID})
	if err != nil {
		return nil, errutil.Internal("failed to list partners", err)
	}
	return partners, nil
}
