package placement

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"talentflow/pkg/config"
	"talentflow/pkg/db/option"
	"talentflow/pkg/errutil"
	"talentflow/pkg/repository"
	"talentflow/pkg/sequence"
	"talentflow/services/candidate"
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

type Service struct {
	db            *gorm.DB
	node          *snowflake.Node
	config        *config.Config
	repo          repository.Repository[Placement]
	candidateRepo repository.Repository[candidate.Candidate]
	jobRepo       repository.Repository[job.Job]
	userRepo      repository.Repository[user.User]
	logRepo       repository.Repository[candidate.CandidateLog]
	commentRepo   repository.Repository[candidate.CandidateComment]
	notifier      *notification.Service
	seq           sequence.Generator
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Config   *config.Config
	Notifier *notification.Service
	Seq      sequence.Generator `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:            p.DB,
		node:          p.Node,
		config:        p.Config,
		repo:          repository.ProvideStore[Placement](p.DB),
		candidateRepo: repository.ProvideStore[candidate.Candidate](p.DB),
		jobRepo:       repository.ProvideStore[job.Job](p.DB),
		userRepo:      repository.ProvideStore[user.User](p.DB),
		logRepo:       repository.ProvideStore[candidate.CandidateLog](p.DB),
		commentRepo:   repository.ProvideStore[candidate.CandidateComment](p.DB),
		notifier:      p.Notifier,
		seq:           p.Seq,
	}
}

func (s *Service) maturityDays() int {
	if s.config != nil && s.config.Payments.MaturityDays > 0 {
		return s.config.Payments.MaturityDays
	}
	return 30
}

// RecordStart upserts the candidate's placement and flips the candidate to
// started in the same transaction. A placement never exists for a candidate
// whose status is before started. Repeated starts overwrite the mutable
// fields, never duplicate the row.
func (s *Service) RecordStart(ctx context.Context, req candidate.StartRequest) (*Placement, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	c, err := s.candidateRepo.FindOne(ctx, &candidate.Candidate{ID: req.CandidateID})
	if err != nil {
		zapLog.Error("failed to load candidate", zap.Error(err))
		return nil, errutil.Internal("failed to load candidate", err)
	}
	if c == nil {
		return nil, errutil.NotFound("candidate not found", nil)
	}

	if c.Status != candidate.StatusStarted && !candidate.CanTransition(c.Status, candidate.StatusStarted) {
		return nil, errutil.ValidationFailed(
			fmt.Sprintf("cannot start candidate in status %s", c.Status), nil)
	}

	startDate := req.StartDate
	if startDate.IsZero() {
		startDate = time.Now().UTC()
	}
	startDate = time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, time.UTC)

	partnerCommission := c.PartnerFeeOffer
	if req.PartnerCommission != nil {
		partnerCommission = *req.PartnerCommission
	}
	recruiterCommission := c.RecruiterFeeOffer
	if req.RecruiterCommission != nil {
		recruiterCommission = *req.RecruiterCommission
	}

	var result *Placement

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.WithTrx(tx).FindOne(ctx, &Placement{CandidateID: c.ID})
		if err != nil {
			return err
		}

		if existing == nil {
			result = &Placement{
				ID:                  s.node.Generate().String(),
				CandidateID:         c.ID,
				RecruiterID:         req.ActorID,
				StartDate:           startDate,
				PartnerCommission:   partnerCommission,
				RecruiterCommission: recruiterCommission,
			}
			if err := s.repo.WithTrx(tx).Create(ctx, result); err != nil {
				return err
			}
		} else {
			fields := map[string]any{
				"start_date":           startDate,
				"recruiter_id":         req.ActorID,
				"partner_commission":   partnerCommission,
				"recruiter_commission": recruiterCommission,
			}
			if err := s.repo.WithTrx(tx).Update(ctx, existing.ID, fields); err != nil {
				return err
			}
			existing.StartDate = startDate
			existing.RecruiterID = req.ActorID
			existing.PartnerCommission = partnerCommission
			existing.RecruiterCommission = recruiterCommission
			result = existing
		}

		if err := s.appendLog(ctx, tx, c.ID, req.ActorID, "placement_started", map[string]any{
			"placement_id":       result.ID,
			"start_date":         startDate.Format("2006-01-02"),
			"partner_commission": partnerCommission,
		}); err != nil {
			return err
		}

		if c.Status == candidate.StatusStarted {
			return nil
		}

		if err := s.candidateRepo.WithTrx(tx).Update(ctx, c.ID, map[string]any{
			"status":             candidate.StatusStarted,
			"status_reason_code": "",
			"status_comment":     "",
		}); err != nil {
			return err
		}

		if err := s.appendLog(ctx, tx, c.ID, req.ActorID, "status_changed", map[string]any{
			"from": c.Status,
			"to":   candidate.StatusStarted,
		}); err != nil {
			return err
		}

		if err := s.commentRepo.WithTrx(tx).Create(ctx, &candidate.CandidateComment{
			ID:          s.node.Generate().String(),
			CandidateID: c.ID,
			AuthorID:    req.ActorID,
			Body:        fmt.Sprintf("Status changed from %s to %s", c.Status, candidate.StatusStarted),
		}); err != nil {
			return err
		}

		recipients, err := s.stakeholders(ctx, tx, c)
		if err != nil {
			return err
		}
		message := fmt.Sprintf("Candidate %s started on %s", c.Name, startDate.Format("2006-01-02"))
		return s.notifier.NotifyUsers(ctx, tx, recipients, message, req.ActorID)
	}); err != nil {
		zapLog.Error("failed to record placement start", zap.Error(err),
			zap.String("candidate_id", c.ID),
		)
		return nil, errutil.Internal("failed to record placement start", err)
	}

	return result, nil
}

// Start satisfies the pipeline's placement hook.
func (s *Service) Start(ctx context.Context, req candidate.StartRequest) error {
	_, err := s.RecordStart(ctx, req)
	return err
}

func (s *Service) Get(ctx context.Context, id string) (*Placement, error) {
	p, err := s.repo.FindOne(ctx, &Placement{ID: id})
	if err != nil {
		return nil, errutil.Internal("failed to get placement", err)
	}
	if p == nil {
		return nil, errutil.NotFound("placement not found", nil)
	}
	return p, nil
}

func (s *Service) ByCandidate(ctx context.Context, candidateID string) (*Placement, error) {
	p, err := s.repo.FindOne(ctx, &Placement{CandidateID: candidateID})
	if err != nil {
		return nil, errutil.Internal("failed to get placement", err)
	}
	if p == nil {
		return nil, errutil.NotFound("placement not found", nil)
	}
	return p, nil
}

// ConfirmationRow is a placement awaiting a recruiter's first-month
// attestation.
type ConfirmationRow struct {
	Placement     *Placement `json:"placement"`
	CandidateID   string     `json:"candidate_id"`
	CandidateName string     `json:"candidate_name"`
	PartnerID     string     `json:"partner_id"`
	PartnerName   string     `json:"partner_name"`
}

// PendingConfirmations lists the unconfirmed placements of the recruiter's
// assigned partners.
func (s *Service) PendingConfirmations(ctx context.Context, recruiterID string) ([]*ConfirmationRow, error) {
	partners, err := s.userRepo.Find(ctx, &user.User{Role: user.RolePartner, AssignedRecruiterID: recruiterID})
	if err != nil {
		return nil, errutil.Internal("failed to list partners", err)
	}
	if len(partners) == 0 {
		return []*ConfirmationRow{}, nil
	}

	partnerByID := make(map[string]*user.User, len(partners))
	partnerIDs := make([]string, 0, len(partners))
	for _, p := range partners {
		partnerByID[p.ID] = p
		partnerIDs = append(partnerIDs, p.ID)
	}

	candidates, err := s.candidateRepo.Find(ctx, &candidate.Candidate{}, option.WhereIn("partner_id", partnerIDs))
	if err != nil {
		return nil, errutil.Internal("failed to list candidates", err)
	}
	if len(candidates) == 0 {
		return []*ConfirmationRow{}, nil
	}

	candidateByID := make(map[string]*candidate.Candidate, len(candidates))
	candidateIDs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		candidateByID[c.ID] = c
		candidateIDs = append(candidateIDs, c.ID)
	}

	placements, err := s.repo.Find(ctx, &Placement{},
		option.WhereIn("candidate_id", candidateIDs),
		option.ApplyOperator(option.Condition{Field: "recruiter_confirmed", Operator: option.NE, Value: true}),
	)
	if err != nil {
		return nil, errutil.Internal("failed to list placements", err)
	}

	rows := make([]*ConfirmationRow, 0, len(placements))
	for _, p := range placements {
		c := candidateByID[p.CandidateID]
		if c == nil {
			continue
		}
		row := &ConfirmationRow{
			Placement:   p,
			CandidateID: c.ID,
			PartnerID:   c.PartnerID,
		}
		row.CandidateName = c.Name
		if partner := partnerByID[c.PartnerID]; partner != nil {
			row.PartnerName = partner.Name
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Placement.StartDate.Before(rows[j].Placement.StartDate)
	})

	return rows, nil
}

// MonthlyTotal is one month of a partner's placement starts.
type MonthlyTotal struct {
	Month  string  `json:"month"`
	Starts int     `json:"starts"`
	Amount float64 `json:"amount"`
}

// PartnerMonthlyTotals aggregates a partner's placement starts per calendar
// month, newest first.
func (s *Service) PartnerMonthlyTotals(ctx context.Context, partnerID string) ([]*MonthlyTotal, error) {
	candidates, err := s.candidateRepo.Find(ctx, &candidate.Candidate{PartnerID: partnerID})
	if err != nil {
		return nil, errutil.Internal("failed to list candidates", err)
	}
	if len(candidates) == 0 {
		return []*MonthlyTotal{}, nil
	}

	candidateIDs := make([]string, 0, len(candidates))
	jobByCandidate := make(map[string]string, len(candidates))
	for _, c := range candidates {
		candidateIDs = append(candidateIDs, c.ID)
		jobByCandidate[c.ID] = c.JobID
	}

	placements, err := s.repo.Find(ctx, &Placement{}, option.WhereIn("candidate_id", candidateIDs))
	if err != nil {
		return nil, errutil.Internal("failed to list placements", err)
	}

	jobs, err := s.loadJobs(ctx, jobIDs(jobByCandidate))
	if err != nil {
		return nil, err
	}

	byMonth := make(map[string]*MonthlyTotal)
	for _, p := range placements {
		if p.StartDate.IsZero() {
			continue
		}
		month := p.StartDate.Format("2006-01")
		total := byMonth[month]
		if total == nil {
			total = &MonthlyTotal{Month: month}
			byMonth[month] = total
		}
		total.Starts++
		total.Amount += resolveAmount(p, jobs[jobByCandidate[p.CandidateID]])
	}

	out := make([]*MonthlyTotal, 0, len(byMonth))
	for _, t := range byMonth {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })

	return out, nil
}

// resolveAmount prefers the settled snapshot and falls back to the live job
// fee for legacy rows lacking one.
func resolveAmount(p *Placement, j *job.Job) float64 {
	if p.PartnerCommission > 0 {
		return p.PartnerCommission
	}
	if j == nil {
		return 0
	}
	return j.PartnerFeeAmount * j.Multiplier()
}

func jobIDs(byCandidate map[string]string) []string {
	seen := make(map[string]struct{}, len(byCandidate))
	ids := make([]string, 0, len(byCandidate))
	for _, id := range byCandidate {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func (s *Service) loadJobs(ctx context.Context, ids []string) (map[string]*job.Job, error) {
	out := make(map[string]*job.Job, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	jobs, err := s.jobRepo.Find(ctx, &job.Job{}, option.WhereIn("id", ids))
	if err != nil {
		return nil, errutil.Internal("failed to load jobs", err)
	}
	for _, j := range jobs {
		out[j.ID] = j
	}
	return out, nil
}

func (s *Service) loadUsers(ctx context.Context, ids []string) (map[string]*user.User, error) {
	out := make(map[string]*user.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := s.userRepo.Find(ctx, &user.User{}, option.WhereIn("id", ids))
	if err != nil {
		return nil, errutil.Internal("failed to load users", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (s *Service) stakeholders(ctx context.Context, tx *gorm.DB, c *candidate.Candidate) ([]string, error) {
	partner, err := s.userRepo.WithTrx(tx).FindOne(ctx, &user.User{ID: c.PartnerID})
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
	return s.logRepo.WithTrx(tx).Create(ctx, &candidate.CandidateLog{
		ID:          s.node.Generate().String(),
		CandidateID: candidateID,
		ActorID:     actorID,
		Action:      action,
		Details:     datatypes.JSON(raw),
	})
}
