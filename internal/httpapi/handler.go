package httpapi

import (
	"net/http"
	"time"

	"talentflow/pkg/config"
	"talentflow/pkg/errutil"
	"talentflow/pkg/health"
	"talentflow/pkg/middleware"
	"talentflow/services/billing"
	"talentflow/services/candidate"
	"talentflow/services/job"
	"talentflow/services/notification"
	"talentflow/services/partner"
	"talentflow/services/placement"
	"talentflow/services/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

const dateLayout = "2006-01-02"

type Handler struct {
	jobs          *job.Service
	users         *user.Service
	candidates    *candidate.Service
	placements    *placement.Service
	partners      *partner.Service
	billing       *billing.Service
	notifications *notification.Service
}

type HandlerParams struct {
	fx.In
	Jobs          *job.Service
	Users         *user.Service
	Candidates    *candidate.Service
	Placements    *placement.Service
	Partners      *partner.Service
	Billing       *billing.Service
	Notifications *notification.Service
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		jobs:          p.Jobs,
		users:         p.Users,
		candidates:    p.Candidates,
		placements:    p.Placements,
		partners:      p.Partners,
		billing:       p.Billing,
		notifications: p.Notifications,
	}
}

// ProvideEngine builds the gin engine with all routes registered.
func ProvideEngine(cfg *config.Config, h *Handler, checks health.HealthService) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Error())

	engine.GET("/healthz", checks.Liveness)
	engine.GET("/readyz", checks.Readiness)

	h.RegisterRoutes(engine)
	return engine
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.POST("/jobs", h.CreateJob)
	router.GET("/jobs", h.ListJobs)
	router.GET("/jobs/:id", h.GetJob)
	router.PATCH("/jobs/:id/fees", h.UpdateJobFees)
	router.DELETE("/jobs/:id", h.DeleteJob)

	router.POST("/users", h.CreateUser)

	router.POST("/candidates", h.SubmitCandidate)
	router.GET("/candidates", h.ListCandidates)
	router.GET("/candidates/:id", h.GetCandidate)
	router.POST("/candidates/:id/status", h.TransitionCandidate)
	router.POST("/candidates/:id/start", h.StartCandidate)
	router.POST("/candidates/:id/comments", h.AddCandidateComment)
	router.GET("/candidates/:id/comments", h.ListCandidateComments)
	router.GET("/candidates/:id/logs", h.ListCandidateLogs)

	router.GET("/finance/payments", h.GetDuePayments)
	router.POST("/finance/payments/mark-paid", h.MarkPaid)
	router.POST("/finance/payments/partner/:id", h.MarkPartnerDue)
	router.GET("/finance/history", h.PaymentHistory)
	router.GET("/finance/confirmations", h.PendingConfirmations)
	router.POST("/placements/:id/confirm", h.ConfirmPlacement)

	router.GET("/partners/health", h.PartnerHealth)
	router.GET("/partners/:id/monthly-totals", h.PartnerMonthlyTotals)

	router.POST("/finance/periods", h.CreateBillingPeriod)
	router.GET("/finance/periods", h.ListBillingPeriods)
	router.POST("/finance/periods/:id/invoice", h.AttachInvoice)

	router.GET("/notifications", h.ListNotifications)
	router.POST("/notifications/:id/read", h.MarkNotificationRead)
}

func abortWithError(c *gin.Context, err error) {
	code, body := errutil.ToHTTP(err)
	c.AbortWithStatusJSON(code, body)
}

// parseDate reads a query parameter as a calendar date, defaulting to today.
func parseDate(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), true
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		abortWithError(c, errutil.ValidationFailed("invalid date, expected YYYY-MM-DD", err))
		return time.Time{}, false
	}
	return t, true
}

func (h *Handler) CreateJob(c *gin.Context) {
	var req job.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errutil.BadRequest("invalid request body", err))
		return
	}
	j, err := h.jobs.Create(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, j)
}

func (h *Handler) ListJobs(c *gin.Context) {
	jobs, err := h.jobs.List(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (h *Handler) GetJob(c *gin.Context) {
	j, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}

func (h *Handler) UpdateJobFees(c *gin.Context) {
	var req job.UpdateFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errutil.BadRequest("invalid request body", err))
		return
	}
	j, err := h.jobs.UpdateFees(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}

func (h *Handler) DeleteJob(c *gin.Context) {
	if err := h.jobs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req user.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errutil.BadRequest("invalid request body", err))
		return
	}
	u, err := h.users.Create(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) SubmitCandidate(c *gin.Context) {
	var req candidate.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errutil.BadRequest("invalid request body", err))
		return
	}
	created, err := h.candidates.Submit(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) ListCandidates(c *gin.Context) {
	rows, err := h.candidates.List(c.Request.Context(), candidate.ListRequest{
		PartnerID: c.Query("partner_id"),
		JobID:     c.Query("job_id"),
		Status:    c.Query("status"),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": rows})
}

func (h *Handler) GetCandidate(c *gin.Context) {
	row, err := h.candidates.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *Handler) TransitionCandidate(c *gin.Context) {
	var req candidate.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errutil.BadRequest("invalid request body", err))
		return
	}
	if err := h.candidates.Transition(c.Request.Context(), c.Param("id"), req); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type startRequest struct {
	StartDate           string   `json:"start_date"`
	PartnerCommission   *float64 `json:"partner_commission"`
	RecruiterCommission *float64 `json:"recruiter_commission"`
	ActorID             string   `json:"actor_id"`
}

func (h *Handler) StartCandidate(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errutil.BadRequest("invalid request body", err))
		return
	}

	var startDate time.Time
	if req.StartDate != "" {
		parsed, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			abortWithError(c, errutil.ValidationFailed("invalid start_date, expected YYYY-MM-DD", err))
			return
		}
		startDate = parsed
	}

	p, err := h.placements.RecordStart(c.Request.Context(), candidate.StartRequest{
		CandidateID:         c.Param("id"),
		StartDate:           startDate,
		PartnerCommission:   req.PartnerCommission,
		RecruiterCommission: req.RecruiterCommission,
		ActorID:             req.ActorID,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type commentRequest struct {
	AuthorID string `json:"author_id"`
	Body     string `json:"body"`
}

func (h *Handler) AddCandidateComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errutil.BadRequest("invalid request body", err))
		return
	}
	comment, err := h.candidates.AddComment(c.Request.Context(), c.Param("id"), req.AuthorID, req.Body)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *Handler) ListCandidateComments(c *gin.Context) {
	rows, err := h.candidates.Comments(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": rows})
}

func (h *Handler) ListCandidateLogs(c *gin.Context) {
	rows, err := h.candidates.Logs(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": rows})
}

func (h *Handler) GetDuePayments(c *gin.Context) {
	asOf, ok := parseDate(c, "as_of")
	if !ok {
		return
	}
	report, err := h.placements.ComputeDue(c.Request.Context(), asOf)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) MarkPaid(c *gin.Context) {
	var req placement.MarkPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errutil.BadRequest("invalid request body", err))
		return
	}
	count, err := h.placements.MarkPaid(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paid": count})
}

type markPartnerDueRequest struct {
	ProofRef string `json:"proof_ref"`
	ActorID  string `json:"actor_id"`
}

func (h *Handler) MarkPartnerDue(c *gin.Context) {
	var req markPartnerDueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errutil.BadRequest("invalid request body", err))
		return
	}
	asOf, ok := parseDate(c, "as_of")
	if !ok {
		return
	}
	count, err := h.placements.MarkPartnerDue(c.Request.Context(), c.Param("id"), asOf, req.ProofRef, req.ActorID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paid": count})
}

func (h *Handler) PaymentHistory(c *gin.Context) {
	from, ok := parseDate(c, "from")
	if !ok {
		return
	}
	to, ok := parseDate(c, "to")
	if !ok {
		return
	}
	// Make the end of the range inclusive of the whole day.
	to = to.Add(24*time.Hour - time.Nanosecond)

	report, err := h.placements.PaidBetween(c.Request.Context(), from, to, c.Query("partner_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) PendingConfirmations(c *gin.Context) {
	rows, err := h.placements.PendingConfirmations(c.Request.Context(), c.Query("recruiter_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"confirmations": rows})
}

type confirmRequest struct {
	ActorID string `json:"actor_id"`
}

func (h *Handler) ConfirmPlacement(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errutil.BadRequest("invalid request body", err))
		return
	}
	if err := h.placements.Confirm(c.Request.Context(), c.Param("id"), req.ActorID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) PartnerHealth(c *gin.Context) {
	asOf, ok := parseDate(c, "as_of")
	if !ok {
		return
	}
	health, err := h.partners.Health(c.Request.Context(), asOf)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"partners": health})
}

func (h *Handler) PartnerMonthlyTotals(c *gin.Context) {
	totals, err := h.placements.PartnerMonthlyTotals(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"totals": totals})
}

type createPeriodRequest struct {
	RecruiterID string `json:"recruiter_id"`
	PartnerID   string `json:"partner_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

func (h *Handler) CreateBillingPeriod(c *gin.Context) {
	var req createPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errutil.BadRequest("invalid request body", err))
		return
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		abortWithError(c, errutil.ValidationFailed("invalid start_date, expected YYYY-MM-DD", err))
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		abortWithError(c, errutil.ValidationFailed("invalid end_date, expected YYYY-MM-DD", err))
		return
	}

	period, err := h.billing.CreatePeriod(c.Request.Context(), billing.CreatePeriodRequest{
		RecruiterID: req.RecruiterID,
		PartnerID:   req.PartnerID,
		StartDate:   start,
		EndDate:     end,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, period)
}

func (h *Handler) ListBillingPeriods(c *gin.Context) {
	periods, err := h.billing.List(c.Request.Context(), c.Query("recruiter_id"), c.Query("partner_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"periods": periods})
}

type attachInvoiceRequest struct {
	InvoiceFile string `json:"invoice_file"`
}

func (h *Handler) AttachInvoice(c *gin.Context) {
	var req attachInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errutil.BadRequest("invalid request body", err))
		return
	}
	period, err := h.billing.AttachInvoice(c.Request.Context(), c.Param("id"), req.InvoiceFile)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, period)
}

func (h *Handler) ListNotifications(c *gin.Context) {
	rows, err := h.notifications.ListForUser(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": rows})
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	if err := h.notifications.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
