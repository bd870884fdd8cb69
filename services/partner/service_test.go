package partner

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"talentflow/pkg/taskname"
	"talentflow/services/candidate"
	"talentflow/services/notification"
	"talentflow/services/placement"
	"talentflow/services/testutil"
	"talentflow/services/user"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return nil, nil
}

type testEnv struct {
	db  *gorm.DB
	svc *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t,
		&user.User{}, &candidate.Candidate{}, &placement.Placement{},
		&notification.Notification{},
	)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	notifier := notification.NewService(notification.ServiceParams{DB: db, Asynq: &fakeEnqueuer{}, Node: node})
	svc := NewService(ServiceParams{DB: db, Notifier: notifier})

	return &testEnv{db: db, svc: svc}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestHealthGrading(t *testing.T) {
	env := newTestEnv(t)
	asOf := date(2026, time.March, 20)

	recruiter := &user.User{ID: "recruiter-1", Role: user.RoleRecruiter}
	active := &user.User{ID: "partner-active", Name: "Active", Role: user.RolePartner, AssignedRecruiterID: recruiter.ID}
	aging := &user.User{ID: "partner-aging", Name: "Aging", Role: user.RolePartner, AssignedRecruiterID: recruiter.ID}
	dormant := &user.User{ID: "partner-dormant", Name: "Dormant", Role: user.RolePartner, AssignedRecruiterID: recruiter.ID}
	silent := &user.User{ID: "partner-silent", Name: "Silent", Role: user.RolePartner, AssignedRecruiterID: recruiter.ID}
	blocked := &user.User{ID: "partner-blocked", Name: "Blocked", Role: user.RolePartner, IsBlocked: true}
	for _, u := range []*user.User{recruiter, active, aging, dormant, silent, blocked} {
		testutil.MustCreate(t, env.db, u)
	}

	// Active: one submission this month plus one start this month.
	c1 := &candidate.Candidate{ID: "c1", PartnerID: active.ID, Status: candidate.StatusStarted, CreatedAt: date(2026, time.March, 18)}
	testutil.MustCreate(t, env.db, c1)
	testutil.MustCreate(t, env.db, &placement.Placement{ID: "p1", CandidateID: c1.ID, StartDate: date(2026, time.March, 19)})

	// Aging: last submission 45 days back.
	testutil.MustCreate(t, env.db, &candidate.Candidate{ID: "c2", PartnerID: aging.ID, Status: candidate.StatusSubmitted, CreatedAt: asOf.AddDate(0, 0, -45)})

	// Dormant: 65 days of silence.
	testutil.MustCreate(t, env.db, &candidate.Candidate{ID: "c3", PartnerID: dormant.ID, Status: candidate.StatusSubmitted, CreatedAt: asOf.AddDate(0, 0, -65)})

	health, err := env.svc.Health(context.Background(), asOf)
	require.NoError(t, err)
	require.Len(t, health, 4) // blocked partner excluded

	byID := make(map[string]*PartnerHealth, len(health))
	for _, h := range health {
		byID[h.PartnerID] = h
	}

	require.Equal(t, HealthGreen, byID[active.ID].Status)
	require.Equal(t, 1, byID[active.ID].SubmissionsThisMonth)
	require.Equal(t, 1, byID[active.ID].StartsThisMonth)
	require.Equal(t, 30, byID[active.ID].Score)

	require.Equal(t, HealthYellow, byID[aging.ID].Status)
	require.Equal(t, 45, *byID[aging.ID].DaysSinceLastSubmission)

	require.Equal(t, HealthRed, byID[dormant.ID].Status)
	require.Equal(t, 65, *byID[dormant.ID].DaysSinceLastSubmission)

	require.Equal(t, HealthRed, byID[silent.ID].Status)
	require.Nil(t, byID[silent.ID].DaysSinceLastSubmission)

	// Best score first.
	require.Equal(t, active.ID, health[0].PartnerID)
}

func TestHealthScanAlertsOncePerMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	recruiter := &user.User{ID: "recruiter-1", Role: user.RoleRecruiter}
	dormant := &user.User{ID: "partner-dormant", Role: user.RolePartner, AssignedRecruiterID: recruiter.ID}
	testutil.MustCreate(t, env.db, recruiter)
	testutil.MustCreate(t, env.db, dormant)
	testutil.MustCreate(t, env.db, &candidate.Candidate{
		ID: "c1", PartnerID: dormant.ID, Status: candidate.StatusSubmitted,
		CreatedAt: time.Now().UTC().AddDate(0, 0, -40),
	})

	task := asynq.NewTask(taskname.PartnerHealthScan, nil)
	require.NoError(t, env.svc.HandleHealthScan(ctx, task))

	var count int64
	require.NoError(t, env.db.Model(&notification.Notification{}).Where("user_id = ?", recruiter.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)

	// Re-running the scan with the alert still unread stays quiet.
	require.NoError(t, env.svc.HandleHealthScan(ctx, task))
	require.NoError(t, env.db.Model(&notification.Notification{}).Where("user_id = ?", recruiter.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}
