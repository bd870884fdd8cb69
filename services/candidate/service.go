package candidate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"talentflow/pkg/db/option"
	"talentflow/pkg/errutil"
	"talentflow/pkg/repository"
	"talentflow/services/job"
	"talentflow/services/notification"
	"talentflow/services/user"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StartRequest asks the placement ledger to record a candidate start.
// Nil commissions fall back to the candidate's frozen offers.
type StartRequest struct {
	CandidateID         string
	StartDate           time.Time
	PartnerCommission   *float64
	RecruiterCommission *float64
	ActorID             string
}

// Starter is the placement ledger's entry point. Transitions to started
// delegate here so the placement upsert and the status flip share one
// transaction.
type Starter interface {
	Start(ctx context.Context, req StartRequest) error
}

type Service struct {
	db          *gorm.DB
	node        *snowflake.Node
	repo        repository.Repository[Candidate]
	commentRepo repository.Repository[CandidateComment]
	logRepo     repository.Repository[CandidateLog]
	reasonRepo  repository.Repository[StatusReason]
	userRepo    repository.Repository[user.User]
	jobs        *job.Service
	notifier    *notification.Service
	starter     Starter
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Jobs     *job.Service
	Notifier *notification.Service
	Starter  Starter `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:          p.DB,
		node:        p.Node,
		repo:        repository.ProvideStore[Candidate](p.DB),
		commentRepo: repository.ProvideStore[CandidateComment](p.DB),
		logRepo:     repository.ProvideStore[CandidateLog](p.DB),
		reasonRepo:  repository.ProvideStore[StatusReason](p.DB),
		userRepo:    repository.ProvideStore[user.User](p.DB),
		jobs:        p.Jobs,
		notifier:    p.Notifier,
		starter:     p.Starter,
	}
}

// SetStarter wires the placement ledger in after construction, breaking the
// candidate/placement dependency cycle.
func (s *Service) SetStarter(st Starter) {
	s.starter = st
}

type SubmitRequest struct {
	JobID     string `json:"job_id"`
	PartnerID string `json:"partner_id"`
	Name      string `json:"name"`
	Gender    string `json:"gender"`
	Phone     string `json:"phone"`
	ActorID   string `json:"actor_id"`
}

// Submit creates a candidate and freezes the commission offers from the
// job's current fee schedule. The offers are never recomputed afterwards.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Candidate, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	if req.Name == "" {
		return nil, errutil.ValidationFailed("candidate name is required", nil)
	}

	j, err := s.jobs.Get(ctx, req.JobID)
	if err != nil {
		return nil, err
	}
	if j.Status == job.StatusDeleted {
		return nil, errutil.ValidationFailed("job is deleted", nil)
	}

	partner, err := s.userRepo.FindOne(ctx, &user.User{ID: req.PartnerID})
	if err != nil {
		zapLog.Error("failed to load partner", zap.Error(err))
		return nil, errutil.Internal("failed to load partner", err)
	}
	if partner == nil {
		return nil, errutil.NotFound("partner not found", nil)
	}

	partnerOffer, recruiterOffer := job.ResolveOffers(j, req.Gender)

	c := &Candidate{
		ID:                s.node.Generate().String(),
		JobID:             j.ID,
		PartnerID:         partner.ID,
		Name:              req.Name,
		Gender:            req.Gender,
		Phone:             req.Phone,
		Status:            StatusSubmitted,
		PartnerFeeOffer:   partnerOffer,
		RecruiterFeeOffer: recruiterOffer,
	}

	actor := req.ActorID
	if actor == "" {
		actor = partner.ID
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.WithTrx(tx).Create(ctx, c); err != nil {
			return err
		}

		if err := s.appendLog(ctx, tx, c.ID, actor, "candidate_submitted", map[string]any{
			"job_id":            j.ID,
			"partner_id":        partner.ID,
			"partner_fee_offer": partnerOffer,
		}); err != nil {
			return err
		}

		message := fmt.Sprintf("New candidate %s submitted for %s", c.Name, j.Title)
		return s.notifier.NotifyUsers(ctx, tx, []string{partner.AssignedRecruiterID}, message, actor)
	}); err != nil {
		zapLog.Error("failed to submit candidate", zap.Error(err))
		return nil, errutil.Internal("failed to submit candidate", err)
	}

	return c, nil
}

type TransitionRequest struct {
	Status     string `json:"status"`
	ReasonCode string `json:"reason_code"`
	Comment    string `json:"comment"`
	ActorID    string `json:"actor_id"`
}

// Transition moves a candidate to a new status, recording the reason and an
// audit trail and notifying the submitting partner and assigned recruiter.
// The caller is trusted to pass a staff actor. A transition to the current
// status is a successful no-op.
func (s *Service) Transition(ctx context.Context, candidateID string, req TransitionRequest) error {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	to := Status(req.Status)
	if to.String() == "" {
		return errutil.ValidationFailed(fmt.Sprintf("unknown status %q", req.Status), nil)
	}

	c, err := s.repo.FindOne(ctx, &Candidate{ID: candidateID})
	if err != nil {
		zapLog.Error("failed to load candidate", zap.Error(err))
		return errutil.Internal("failed to load candidate", err)
	}
	if c == nil {
		return errutil.NotFound("candidate not found", nil)
	}

	if c.Status == to {
		return nil
	}

	if !CanTransition(c.Status, to) {
		return errutil.ValidationFailed(
			fmt.Sprintf("cannot transition from %s to %s", c.Status, to), nil)
	}

	if to == StatusStarted {
		if s.starter == nil {
			return errutil.Internal("placement ledger not configured", nil)
		}
		return s.starter.Start(ctx, StartRequest{
			CandidateID: c.ID,
			StartDate:   truncateToDate(time.Now().UTC()),
			ActorID:     req.ActorID,
		})
	}

	if req.ReasonCode != "" {
		reason, err := s.reasonRepo.FindOne(ctx, &StatusReason{Code: req.ReasonCode})
		if err != nil {
			return errutil.Internal("failed to load status reason", err)
		}
		if reason == nil {
			return errutil.ValidationFailed(fmt.Sprintf("unknown reason %q", req.ReasonCode), nil)
		}
		if reason.AppliesTo != "" && reason.AppliesTo != to {
			return errutil.ValidationFailed(
				fmt.Sprintf("reason %q does not apply to status %s", req.ReasonCode, to), nil)
		}
	}

	from := c.Status

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := map[string]any{
			"status":             to,
			"status_reason_code": req.ReasonCode,
			"status_comment":     req.Comment,
		}
		if err := s.repo.WithTrx(tx).Update(ctx, c.ID, fields); err != nil {
			return err
		}

		details := map[string]any{
			"from": from,
			"to":   to,
		}
		if req.ReasonCode != "" {
			details["reason"] = req.ReasonCode
		}
		if to == StatusDeleted {
			details["prior_status"] = from
		}
		if err := s.appendLog(ctx, tx, c.ID, req.ActorID, "status_changed", details); err != nil {
			return err
		}

		body := fmt.Sprintf("Status changed from %s to %s", from, to)
		if req.ReasonCode != "" {
			body = fmt.Sprintf("%s (%s)", body, req.ReasonCode)
		}
		if req.Comment != "" {
			body = fmt.Sprintf("%s: %s", body, req.Comment)
		}
		if err := s.appendComment(ctx, tx, c.ID, req.ActorID, body); err != nil {
			return err
		}

		recipients, err := s.stakeholders(ctx, c)
		if err != nil {
			return err
		}
		message := fmt.Sprintf("Candidate %s is now %s", c.Name, to)
		return s.notifier.NotifyUsers(ctx, tx, recipients, message, req.ActorID)
	}); err != nil {
		zapLog.Error("failed to transition candidate", zap.Error(err),
			zap.String("candidate_id", c.ID),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
		return errutil.Internal("failed to transition candidate", err)
	}

	return nil
}

// AddComment appends a free-text comment to the candidate's thread and
// notifies the other stakeholders.
func (s *Service) AddComment(ctx context.Context, candidateID, authorID, body string) (*CandidateComment, error) {
	if body == "" {
		return nil, errutil.ValidationFailed("comment body is required", nil)
	}

	c, err := s.repo.FindOne(ctx, &Candidate{ID: candidateID})
	if err != nil {
		return nil, errutil.Internal("failed to load candidate", err)
	}
	if c == nil {
		return nil, errutil.NotFound("candidate not found", nil)
	}

	comment := &CandidateComment{
		ID:          s.node.Generate().String(),
		CandidateID: c.ID,
		AuthorID:    authorID,
		Body:        body,
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.commentRepo.WithTrx(tx).Create(ctx, comment); err != nil {
			return err
		}

		if err := s.appendLog(ctx, tx, c.ID, authorID, "comment_added", map[string]any{
			"comment_id": comment.ID,
		}); err != nil {
			return err
		}

		recipients, err := s.stakeholders(ctx, c)
		if err != nil {
			return err
		}
		message := fmt.Sprintf("New comment on candidate %s", c.Name)
		return s.notifier.NotifyUsers(ctx, tx, recipients, message, authorID)
	}); err != nil {
		return nil, errutil.Internal("failed to add comment", err)
	}

	return comment, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Candidate, error) {
	c, err := s.repo.FindOne(ctx, &Candidate{ID: id})
	if err != nil {
		return nil, errutil.Internal("failed to get candidate", err)
	}
	if c == nil {
		return nil, errutil.NotFound("candidate not found", nil)
	}
	return c, nil
}

type ListRequest struct {
	PartnerID string
	JobID     string
	Status    string
}

func (s *Service) List(ctx context.Context, req ListRequest) ([]*Candidate, error) {
	query := &Candidate{
		PartnerID: req.PartnerID,
		JobID:     req.JobID,
		Status:    Status(req.Status),
	}
	rows, err := s.repo.Find(ctx, query, option.WithSortBy(option.QuerySortBy{
		SortBy:  "created_at",
		OrderBy: "desc",
	}))
	if err != nil {
		return nil, errutil.Internal("failed to list candidates", err)
	}
	return rows, nil
}

func (s *Service) Comments(ctx context.Context, candidateID string) ([]*CandidateComment, error) {
	rows, err := s.commentRepo.Find(ctx, &CandidateComment{CandidateID: candidateID})
	if err != nil {
		return nil, errutil.Internal("failed to list comments", err)
	}
	return rows, nil
}

func (s *Service) Logs(ctx context.Context, candidateID string) ([]*CandidateLog, error) {
	rows, err := s.logRepo.Find(ctx, &CandidateLog{CandidateID: candidateID})
	if err != nil {
		return nil, errutil.Internal("failed to list audit log", err)
	}
	return rows, nil
}

// stakeholders returns the submitting partner and their assigned recruiter.
func (s *Service) stakeholders(ctx context.Context, c *Candidate) ([]string, error) {
	partner, err := s.userRepo.FindOne(ctx, &user.User{ID: c.PartnerID})
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, nil
	}
	return []string{partner.ID, partner.AssignedRecruiterID}, nil
}

func (s *Service) appendLog(ctx context.Context, tx *gorm.DB, candidateID, actorID, action string, details map[string]any) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return err
	}
	return s.logRepo.WithTrx(tx).Create(ctx, &CandidateLog{
		ID:          s.node.Generate().String(),
		CandidateID: candidateID,
		ActorID:     actorID,
		Action:      action,
		Details:     datatypes.JSON(raw),
	})
}

func (s *Service) appendComment(ctx context.Context, tx *gorm.DB, candidateID, authorID, body string) error {
	return s.commentRepo.WithTrx(tx).Create(ctx, &CandidateComment{
		ID:          s.node.Generate().String(),
		CandidateID: candidateID,
		AuthorID:    authorID,
		Body:        body,
	})
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
