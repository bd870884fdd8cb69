package partner

import (
	"context"
	"sort"
	"time"

	"talentflow/pkg/db/option"
	"talentflow/pkg/errutil"
	"talentflow/pkg/repository"
	"talentflow/services/candidate"
	"talentflow/services/notification"
	"talentflow/services/placement"
	"talentflow/services/user"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db            *gorm.DB
	userRepo      repository.Repository[user.User]
	candidateRepo repository.Repository[candidate.Candidate]
	placementRepo repository.Repository[placement.Placement]
	notifier      *notification.Service
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Notifier *notification.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:            p.DB,
		userRepo:      repository.ProvideStore[user.User](p.DB),
		candidateRepo: repository.ProvideStore[candidate.Candidate](p.DB),
		placementRepo: repository.ProvideStore[placement.Placement](p.DB),
		notifier:      p.Notifier,
	}
}

// PartnerHealth is one partner's activity grade.
type PartnerHealth struct {
	PartnerID               string       `json:"partner_id"`
	PartnerName             string       `json:"partner_name"`
	RecruiterID             string       `json:"recruiter_id,omitempty"`
	Status                  HealthStatus `json:"status"`
	Score                   int          `json:"score"`
	SubmissionsThisMonth    int          `json:"submissions_this_month"`
	StartsThisMonth         int          `json:"starts_this_month"`
	DaysSinceLastSubmission *int         `json:"days_since_last_submission,omitempty"`
}

// Health grades every non-blocked partner's recent activity as of the given
// date, best score first.
func (s *Service) Health(ctx context.Context, asOf time.Time) ([]*PartnerHealth, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	partners, err := s.userRepo.Find(ctx, &user.User{Role: user.RolePartner})
	if err != nil {
		zapLog.Error("failed to list partners", zap.Error(err))
		return nil, errutil.Internal("failed to list partners", err)
	}

	out := make([]*PartnerHealth, 0, len(partners))
	if len(partners) == 0 {
		return out, nil
	}

	partnerIDs := make([]string, 0, len(partners))
	for _, p := range partners {
		if !p.IsBlocked {
			partnerIDs = append(partnerIDs, p.ID)
		}
	}

	candidates, err := s.candidateRepo.Find(ctx, &candidate.Candidate{}, option.WhereIn("partner_id", partnerIDs))
	if err != nil {
		return nil, errutil.Internal("failed to list candidates", err)
	}

	byPartner := make(map[string][]*candidate.Candidate)
	candidateToPartner := make(map[string]string, len(candidates))
	candidateIDs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		byPartner[c.PartnerID] = append(byPartner[c.PartnerID], c)
		candidateToPartner[c.ID] = c.PartnerID
		candidateIDs = append(candidateIDs, c.ID)
	}

	startsByPartner := make(map[string]int)
	if len(candidateIDs) > 0 {
		placements, err := s.placementRepo.Find(ctx, &placement.Placement{}, option.WhereIn("candidate_id", candidateIDs))
		if err != nil {
			return nil, errutil.Internal("failed to list placements", err)
		}
		for _, p := range placements {
			if !p.StartDate.IsZero() && SameMonth(p.StartDate, asOf) {
				startsByPartner[candidateToPartner[p.CandidateID]]++
			}
		}
	}

	for _, partner := range partners {
		if partner.IsBlocked {
			continue
		}

		stats := Stats{
			StartsThisMonth: startsByPartner[partner.ID],
		}

		var lastSubmission time.Time
		for _, c := range byPartner[partner.ID] {
			if SameMonth(c.CreatedAt, asOf) {
				stats.SubmissionsThisMonth++
			}
			if c.CreatedAt.After(lastSubmission) {
				lastSubmission = c.CreatedAt
			}
		}
		if !lastSubmission.IsZero() {
			days := placement.DaysWorked(lastSubmission, asOf)
			stats.DaysSinceLastSubmission = &days
		}

		status, score := Score(stats)
		out = append(out, &PartnerHealth{
			PartnerID:               partner.ID,
			PartnerName:             partner.Name,
			RecruiterID:             partner.AssignedRecruiterID,
			Status:                  status,
			Score:                   score,
			SubmissionsThisMonth:    stats.SubmissionsThisMonth,
			StartsThisMonth:         stats.StartsThisMonth,
			DaysSinceLastSubmission: stats.DaysSinceLastSubmission,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].PartnerID < out[j].PartnerID
		}
		return out[i].Score > out[j].Score
	})

	return out, nil
}
