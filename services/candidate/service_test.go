package candidate

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"talentflow/pkg/errutil"
	"talentflow/services/job"
	"talentflow/services/notification"
	"talentflow/services/testutil"
	"talentflow/services/user"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return nil, nil
}

type fakeStarter struct {
	calls []StartRequest
}

func (f *fakeStarter) Start(ctx context.Context, req StartRequest) error {
	f.calls = append(f.calls, req)
	return nil
}

type testEnv struct {
	db       *gorm.DB
	svc      *Service
	jobs     *job.Service
	starter  *fakeStarter
	enqueuer *fakeEnqueuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t,
		&Candidate{}, &CandidateComment{}, &CandidateLog{}, &StatusReason{},
		&user.User{}, &job.Job{}, &notification.Notification{},
	)
	require.NoError(t, SeedStatusReasons(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	enqueuer := &fakeEnqueuer{}
	notifier := notification.NewService(notification.ServiceParams{DB: db, Asynq: enqueuer, Node: node})
	jobs := job.NewService(job.ServiceParams{DB: db, Node: node})
	starter := &fakeStarter{}

	svc := NewService(ServiceParams{
		DB:       db,
		Node:     node,
		Jobs:     jobs,
		Notifier: notifier,
		Starter:  starter,
	})

	return &testEnv{db: db, svc: svc, jobs: jobs, starter: starter, enqueuer: enqueuer}
}

func requireCode(t *testing.T, err error, code errutil.CoreStatus) {
	t.Helper()
	require.Error(t, err)
	base, ok := err.(errutil.BaseError)
	require.True(t, ok, "expected BaseError, got %T: %v", err, err)
	require.Equal(t, code, base.Code)
}

func seedPartner(t *testing.T, env *testEnv) (*user.User, *user.User) {
	t.Helper()
	recruiter := &user.User{ID: "recruiter-1", Name: "Recruiter", Role: user.RoleRecruiter}
	partner := &user.User{ID: "partner-1", Name: "Partner", Role: user.RolePartner, AssignedRecruiterID: recruiter.ID}
	testutil.MustCreate(t, env.db, recruiter)
	testutil.MustCreate(t, env.db, partner)
	return partner, recruiter
}

func seedJob(t *testing.T, env *testEnv) *job.Job {
	t.Helper()
	j, err := env.jobs.Create(context.Background(), job.CreateRequest{
		Title:            "Warehouse operator",
		PartnerFeeAmount: 500,
		PromoMultiplier:  1.2,
		MaleBonusEnabled: true,
		MaleBonusPercent: 10,
	})
	require.NoError(t, err)
	return j
}

func TestSubmitFreezesOffer(t *testing.T) {
	env := newTestEnv(t)
	partner, _ := seedPartner(t, env)
	j := seedJob(t, env)
	ctx := context.Background()

	c, err := env.svc.Submit(ctx, SubmitRequest{
		JobID:     j.ID,
		PartnerID: partner.ID,
		Name:      "Ivan",
		Gender:    "male",
	})
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, c.Status)
	require.InDelta(t, 660.0, c.PartnerFeeOffer, 0.0001)

	// Later fee edits never touch the frozen offer.
	newFee := 900.0
	_, err = env.jobs.UpdateFees(ctx, j.ID, job.UpdateFeesRequest{PartnerFeeAmount: &newFee})
	require.NoError(t, err)

	reloaded, err := env.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	require.InDelta(t, 660.0, reloaded.PartnerFeeOffer, 0.0001)
}

func TestSubmitNotifiesRecruiter(t *testing.T) {
	env := newTestEnv(t)
	partner, recruiter := seedPartner(t, env)
	j := seedJob(t, env)

	_, err := env.svc.Submit(context.Background(), SubmitRequest{
		JobID:     j.ID,
		PartnerID: partner.ID,
		Name:      "Ivan",
	})
	require.NoError(t, err)

	var rows []*notification.Notification
	require.NoError(t, env.db.Where("user_id = ?", recruiter.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
}

func TestSubmitUnknownJob(t *testing.T) {
	env := newTestEnv(t)
	partner, _ := seedPartner(t, env)

	_, err := env.svc.Submit(context.Background(), SubmitRequest{
		JobID:     "missing",
		PartnerID: partner.ID,
		Name:      "Ivan",
	})
	requireCode(t, err, errutil.StatusNotFound)
}

func TestTransitionUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	partner, _ := seedPartner(t, env)
	j := seedJob(t, env)

	c, err := env.svc.Submit(context.Background(), SubmitRequest{JobID: j.ID, PartnerID: partner.ID, Name: "Ivan"})
	require.NoError(t, err)

	err = env.svc.Transition(context.Background(), c.ID, TransitionRequest{Status: "fired", ActorID: "staff-1"})
	requireCode(t, err, errutil.StatusValidationFailed)
}

func TestTransitionSameStatusIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	partner, _ := seedPartner(t, env)
	j := seedJob(t, env)
	ctx := context.Background()

	c, err := env.svc.Submit(ctx, SubmitRequest{JobID: j.ID, PartnerID: partner.ID, Name: "Ivan"})
	require.NoError(t, err)

	logsBefore, err := env.svc.Logs(ctx, c.ID)
	require.NoError(t, err)

	err = env.svc.Transition(ctx, c.ID, TransitionRequest{Status: "submitted", ActorID: "staff-1"})
	require.NoError(t, err)

	logsAfter, err := env.svc.Logs(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, logsAfter, len(logsBefore))
}

func TestTransitionDisallowedEdge(t *testing.T) {
	env := newTestEnv(t)
	partner, _ := seedPartner(t, env)
	j := seedJob(t, env)

	c, err := env.svc.Submit(context.Background(), SubmitRequest{JobID: j.ID, PartnerID: partner.ID, Name: "Ivan"})
	require.NoError(t, err)

	err = env.svc.Transition(context.Background(), c.ID, TransitionRequest{Status: "completed_month", ActorID: "staff-1"})
	requireCode(t, err, errutil.StatusValidationFailed)
}

func TestTransitionNoShowWithReason(t *testing.T) {
	env := newTestEnv(t)
	partner, recruiter := seedPartner(t, env)
	j := seedJob(t, env)
	ctx := context.Background()

	c, err := env.svc.Submit(ctx, SubmitRequest{JobID: j.ID, PartnerID: partner.ID, Name: "Ivan"})
	require.NoError(t, err)

	err = env.svc.Transition(ctx, c.ID, TransitionRequest{
		Status:     "no_show",
		ReasonCode: "refused_salary",
		Comment:    "wanted more",
		ActorID:    "staff-1",
	})
	require.NoError(t, err)

	reloaded, err := env.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, StatusNoShow, reloaded.Status)
	require.Equal(t, "refused_salary", reloaded.StatusReasonCode)

	logs, err := env.svc.Logs(ctx, c.ID)
	require.NoError(t, err)
	var found bool
	for _, l := range logs {
		if l.Action == "status_changed" {
			found = true
			require.Contains(t, string(l.Details), "submitted")
			require.Contains(t, string(l.Details), "no_show")
			require.Contains(t, string(l.Details), "refused_salary")
		}
	}
	require.True(t, found)

	// Partner and the assigned recruiter each get exactly one notification
	// for the change; the submission notification is the recruiter's other.
	var partnerRows, recruiterRows []*notification.Notification
	require.NoError(t, env.db.Where("user_id = ?", partner.ID).Find(&partnerRows).Error)
	require.NoError(t, env.db.Where("user_id = ?", recruiter.ID).Find(&recruiterRows).Error)
	require.Len(t, partnerRows, 1)
	require.Len(t, recruiterRows, 2)
}

func TestSeededReasonScopes(t *testing.T) {
	byCode := map[string]*StatusReason{}
	for _, r := range DefaultStatusReasons() {
		byCode[r.Code] = r
	}

	// Personal and housing reasons belong to the no-show flow; only the
	// unknown fallback stays usable on any transition.
	require.Equal(t, StatusNoShow, byCode["personal_reasons"].AppliesTo)
	require.Equal(t, StatusNoShow, byCode["housing_issues"].AppliesTo)
	require.Equal(t, StatusDidNotComplete, byCode["moved_to_another_job"].AppliesTo)
	require.Equal(t, Status(""), byCode["unknown_reason"].AppliesTo)
}

func TestTransitionReasonMustApply(t *testing.T) {
	env := newTestEnv(t)
	partner, _ := seedPartner(t, env)
	j := seedJob(t, env)

	c, err := env.svc.Submit(context.Background(), SubmitRequest{JobID: j.ID, PartnerID: partner.ID, Name: "Ivan"})
	require.NoError(t, err)

	err = env.svc.Transition(context.Background(), c.ID, TransitionRequest{
		Status:     "no_show",
		ReasonCode: "low_performance",
		ActorID:    "staff-1",
	})
	requireCode(t, err, errutil.StatusValidationFailed)
}

func TestTransitionDeleteRecordsPriorStatus(t *testing.T) {
	env := newTestEnv(t)
	partner, _ := seedPartner(t, env)
	j := seedJob(t, env)
	ctx := context.Background()

	c, err := env.svc.Submit(ctx, SubmitRequest{JobID: j.ID, PartnerID: partner.ID, Name: "Ivan"})
	require.NoError(t, err)

	err = env.svc.Transition(ctx, c.ID, TransitionRequest{Status: "deleted", ActorID: "staff-1"})
	require.NoError(t, err)

	logs, err := env.svc.Logs(ctx, c.ID)
	require.NoError(t, err)
	var found bool
	for _, l := range logs {
		if l.Action == "status_changed" {
			found = true
			require.Contains(t, string(l.Details), "prior_status")
		}
	}
	require.True(t, found)
}

func TestTransitionTerminalStatesReject(t *testing.T) {
	env := newTestEnv(t)
	partner, _ := seedPartner(t, env)
	j := seedJob(t, env)
	ctx := context.Background()

	c, err := env.svc.Submit(ctx, SubmitRequest{JobID: j.ID, PartnerID: partner.ID, Name: "Ivan"})
	require.NoError(t, err)

	require.NoError(t, env.svc.Transition(ctx, c.ID, TransitionRequest{Status: "deleted", ActorID: "staff-1"}))

	err = env.svc.Transition(ctx, c.ID, TransitionRequest{Status: "no_show", ActorID: "staff-1"})
	requireCode(t, err, errutil.StatusValidationFailed)
}

func TestTransitionStartedDelegatesToLedger(t *testing.T) {
	env := newTestEnv(t)
	partner, _ := seedPartner(t, env)
	j := seedJob(t, env)
	ctx := context.Background()

	c, err := env.svc.Submit(ctx, SubmitRequest{JobID: j.ID, PartnerID: partner.ID, Name: "Ivan"})
	require.NoError(t, err)

	err = env.svc.Transition(ctx, c.ID, TransitionRequest{Status: "started", ActorID: "staff-1"})
	require.NoError(t, err)

	require.Len(t, env.starter.calls, 1)
	require.Equal(t, c.ID, env.starter.calls[0].CandidateID)
	require.Equal(t, "staff-1", env.starter.calls[0].ActorID)
}

func TestAddComment(t *testing.T) {
	env := newTestEnv(t)
	partner, _ := seedPartner(t, env)
	j := seedJob(t, env)
	ctx := context.Background()

	c, err := env.svc.Submit(ctx, SubmitRequest{JobID: j.ID, PartnerID: partner.ID, Name: "Ivan"})
	require.NoError(t, err)

	_, err = env.svc.AddComment(ctx, c.ID, "staff-1", "called the candidate")
	require.NoError(t, err)

	comments, err := env.svc.Comments(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	require.Equal(t, "called the candidate", comments[0].Body)
}

func TestCanTransitionTable(t *testing.T) {
	require.True(t, CanTransition(StatusSubmitted, StatusStarted))
	require.True(t, CanTransition(StatusSubmitted, StatusNoShow))
	require.True(t, CanTransition(StatusNoShow, StatusStarted))
	require.True(t, CanTransition(StatusDidNotComplete, StatusStarted))
	require.True(t, CanTransition(StatusStarted, StatusCompletedMonth))
	require.False(t, CanTransition(StatusSubmitted, StatusCompletedMonth))
	require.False(t, CanTransition(StatusCompletedMonth, StatusStarted))
	require.False(t, CanTransition(StatusDeleted, StatusSubmitted))
}
