package partner

import (
	"context"
	"fmt"
	"time"

	"talentflow/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// dormantAfterDays is the inactivity threshold for the recruiter alert.
const dormantAfterDays = 30

// HandleHealthScan flags dormant partners to their recruiters. Each
// recruiter is alerted at most once per distinct unread message, so the
// scan can run on any schedule without spamming.
func (s *Service) HandleHealthScan(ctx context.Context, t *asynq.Task) error {
	health, err := s.Health(ctx, time.Now().UTC())
	if err != nil {
		return err
	}

	dormantByRecruiter := make(map[string]int)
	for _, h := range health {
		if h.RecruiterID == "" {
			continue
		}
		if h.DaysSinceLastSubmission == nil || *h.DaysSinceLastSubmission >= dormantAfterDays {
			dormantByRecruiter[h.RecruiterID]++
		}
	}

	for recruiterID, count := range dormantByRecruiter {
		message := fmt.Sprintf("%d of your partners have not submitted candidates in %d+ days", count, dormantAfterDays)

		unread, err := s.notifier.HasUnread(ctx, recruiterID, message)
		if err != nil {
			return err
		}
		if unread {
			continue
		}

		if err := s.notifier.NotifyUsers(ctx, s.db, []string{recruiterID}, message, ""); err != nil {
			return err
		}

		zap.L().Info("dormant partner alert sent",
			zap.String("recruiter_id", recruiterID),
			zap.Int("dormant_partners", count),
		)
	}

	return nil
}

func RegisterHandlers(mux *asynq.ServeMux, s *Service) {
	mux.HandleFunc(taskname.PartnerHealthScan, s.HandleHealthScan)
}
