package billing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"talentflow/pkg/errutil"
	"talentflow/services/candidate"
	"talentflow/services/job"
	"talentflow/services/placement"
	"talentflow/services/testutil"
	"talentflow/services/user"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type stubSequence struct {
	n int
}

func (s *stubSequence) NextInvoiceCode(ctx context.Context) (string, error) {
	s.n++
	return fmt.Sprintf("INV-2026-%04d", s.n), nil
}

func (s *stubSequence) NextPayoutBatchCode(ctx context.Context) (string, error) {
	s.n++
	return fmt.Sprintf("PAY-260301-%03d", s.n), nil
}

type testEnv struct {
	db  *gorm.DB
	svc *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t,
		&BillingPeriod{}, &placement.Placement{}, &candidate.Candidate{},
		&job.Job{}, &user.User{},
	)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParams{DB: db, Node: node, Seq: &stubSequence{}})
	return &testEnv{db: db, svc: svc}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (e *testEnv) seed(t *testing.T) (*user.User, *user.User) {
	t.Helper()
	recruiter := &user.User{ID: "recruiter-1", Role: user.RoleRecruiter}
	partner := &user.User{ID: "partner-1", Role: user.RolePartner, AssignedRecruiterID: recruiter.ID}
	testutil.MustCreate(t, e.db, recruiter)
	testutil.MustCreate(t, e.db, partner)
	testutil.MustCreate(t, e.db, &job.Job{ID: "job-1", PartnerFeeAmount: 500, PromoMultiplier: 1.2})

	testutil.MustCreate(t, e.db, &candidate.Candidate{ID: "c1", PartnerID: partner.ID, JobID: "job-1", Status: candidate.StatusStarted})
	testutil.MustCreate(t, e.db, &candidate.Candidate{ID: "c2", PartnerID: partner.ID, JobID: "job-1", Status: candidate.StatusStarted})
	testutil.MustCreate(t, e.db, &candidate.Candidate{ID: "c3", PartnerID: partner.ID, JobID: "job-1", Status: candidate.StatusStarted})

	testutil.MustCreate(t, e.db, &placement.Placement{ID: "p1", CandidateID: "c1", RecruiterID: recruiter.ID, StartDate: date(2026, time.January, 10), PartnerCommission: 660})
	// Legacy row without a snapshot: falls back to the raw job fee.
	testutil.MustCreate(t, e.db, &placement.Placement{ID: "p2", CandidateID: "c2", RecruiterID: recruiter.ID, StartDate: date(2026, time.January, 20)})
	// Outside the period.
	testutil.MustCreate(t, e.db, &placement.Placement{ID: "p3", CandidateID: "c3", RecruiterID: recruiter.ID, StartDate: date(2026, time.February, 10), PartnerCommission: 660})

	return recruiter, partner
}

func TestCreatePeriodSnapshot(t *testing.T) {
	env := newTestEnv(t)
	recruiter, partner := env.seed(t)

	period, err := env.svc.CreatePeriod(context.Background(), CreatePeriodRequest{
		RecruiterID: recruiter.ID,
		PartnerID:   partner.ID,
		StartDate:   date(2026, time.January, 1),
		EndDate:     date(2026, time.January, 31),
	})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, period.Status)
	require.Equal(t, 2, period.PlacementsCount)
	// 660 snapshot + 500 raw fee fallback.
	require.InDelta(t, 1160.0, period.TotalAmount, 0.0001)
}

func TestCreatePeriodScopedToRecruiter(t *testing.T) {
	env := newTestEnv(t)
	_, partner := env.seed(t)
	testutil.MustCreate(t, env.db, &user.User{ID: "recruiter-2", Role: user.RoleRecruiter})

	// Another recruiter's period over the same partner must not pick up
	// placements recorded by recruiter-1.
	period, err := env.svc.CreatePeriod(context.Background(), CreatePeriodRequest{
		RecruiterID: "recruiter-2",
		PartnerID:   partner.ID,
		StartDate:   date(2026, time.January, 1),
		EndDate:     date(2026, time.January, 31),
	})
	require.NoError(t, err)
	require.Equal(t, 0, period.PlacementsCount)
	require.InDelta(t, 0.0, period.TotalAmount, 0.0001)
}

func TestCreatePeriodInvalidDateRange(t *testing.T) {
	env := newTestEnv(t)
	recruiter, partner := env.seed(t)

	_, err := env.svc.CreatePeriod(context.Background(), CreatePeriodRequest{
		RecruiterID: recruiter.ID,
		PartnerID:   partner.ID,
		StartDate:   date(2026, time.January, 31),
		EndDate:     date(2026, time.January, 1),
	})
	require.Error(t, err)
	base, ok := err.(errutil.BaseError)
	require.True(t, ok)
	require.Equal(t, errutil.StatusValidationFailed, base.Code)
}

func TestSnapshotDriftIsPreserved(t *testing.T) {
	env := newTestEnv(t)
	recruiter, partner := env.seed(t)
	ctx := context.Background()

	period, err := env.svc.CreatePeriod(ctx, CreatePeriodRequest{
		RecruiterID: recruiter.ID,
		PartnerID:   partner.ID,
		StartDate:   date(2026, time.January, 1),
		EndDate:     date(2026, time.January, 31),
	})
	require.NoError(t, err)

	// Editing a placement after the snapshot does not touch the stored
	// totals until the period is explicitly re-saved.
	require.NoError(t, env.db.Model(&placement.Placement{}).
		Where("id = ?", "p1").
		Update("partner_commission", 900).Error)

	reloaded, err := env.svc.Get(ctx, period.ID)
	require.NoError(t, err)
	require.InDelta(t, 1160.0, reloaded.TotalAmount, 0.0001)
}

func TestAttachInvoiceRecomputesAndCloses(t *testing.T) {
	env := newTestEnv(t)
	recruiter, partner := env.seed(t)
	ctx := context.Background()

	period, err := env.svc.CreatePeriod(ctx, CreatePeriodRequest{
		RecruiterID: recruiter.ID,
		PartnerID:   partner.ID,
		StartDate:   date(2026, time.January, 1),
		EndDate:     date(2026, time.January, 31),
	})
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&placement.Placement{}).
		Where("id = ?", "p1").
		Update("partner_commission", 900).Error)

	closed, err := env.svc.AttachInvoice(ctx, period.ID, "invoice.pdf")
	require.NoError(t, err)
	require.Equal(t, StatusClosed, closed.Status)
	require.Equal(t, "invoice.pdf", closed.InvoiceFile)
	require.Equal(t, "INV-2026-0001", closed.InvoiceCode)
	// Attaching the invoice is the one mutation path that recomputes.
	require.InDelta(t, 1400.0, closed.TotalAmount, 0.0001)

	_, err = env.svc.AttachInvoice(ctx, "missing", "invoice.pdf")
	require.Error(t, err)
}
