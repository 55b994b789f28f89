package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"outreach_backend/internal/events"
	"outreach_backend/internal/outreach"
	"outreach_backend/internal/outreach/budget"
	"outreach_backend/internal/outreach/domain"
	"outreach_backend/internal/outreach/repository"
	"outreach_backend/internal/outreach/transport"
	"outreach_backend/internal/scheduler"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/clock"
	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/phone"
	"outreach_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler exposes the orchestrator's operational API: lifecycle control,
// module status, manual runs, budget inspection, and lead intake.
type Handler struct {
	orch     *outreach.Orchestrator
	store    repository.Store
	budget   *budget.Governor
	queue    *scheduler.Client
	validate *validator.Validator
	clk      clock.Clock
	bus      events.Bus
}

func New(orch *outreach.Orchestrator, store repository.Store, gov *budget.Governor, queue *scheduler.Client, clk clock.Clock, bus events.Bus) *Handler {
	return &Handler{
		orch:     orch,
		store:    store,
		budget:   gov,
		queue:    queue,
		validate: validator.New(),
		clk:      clk,
		bus:      bus,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	orch := rg.Group("/orchestrator")
	orch.POST("/start", h.Start)
	orch.POST("/stop", h.Stop)
	orch.GET("/status", h.Status)

	modules := rg.Group("/modules")
	modules.GET("", h.ListModules)
	modules.POST("/:name/run", h.RunModule)
	modules.POST("/:name/pause", h.PauseModule)
	modules.POST("/:name/resume", h.ResumeModule)

	rg.GET("/budget", h.Budget)
	rg.POST("/digest", h.ScheduleDigest)

	leads := rg.Group("/leads")
	leads.POST("", h.CreateLead)
	leads.GET("/:id", h.GetLead)
	leads.POST("/:id/transition", h.TransitionLead)
}

func (h *Handler) Start(c *gin.Context) {
	if err := h.orch.Start(c.Request.Context()); err != nil {
		httpkit.Error(c, http.StatusConflict, err.Error(), nil)
		return
	}
	httpkit.OK(c, gin.H{"running": true})
}

func (h *Handler) Stop(c *gin.Context) {
	h.orch.Stop()
	httpkit.OK(c, gin.H{"running": false})
}

func (h *Handler) Status(c *gin.Context) {
	statuses := h.orch.Statuses()
	resp := transport.OrchestratorStatusResponse{
		Running: h.orch.Running(),
		Modules: make([]transport.ModuleStatus, 0, len(statuses)),
	}
	for _, st := range statuses {
		resp.Modules = append(resp.Modules, transport.ModuleStatus{
			Name:           st.Name,
			State:          string(st.State),
			LastCycleAt:    st.LastCycleAt,
			ProcessedToday: st.ProcessedToday,
			SentToday:      st.SentToday,
			ErrorCount:     st.ErrorCount,
		})
	}
	httpkit.OK(c, resp)
}

func (h *Handler) ListModules(c *gin.Context) {
	httpkit.OK(c, gin.H{"modules": h.orch.ModuleNames()})
}

// RunModule triggers one out-of-band cycle. With async=true the cycle is
// queued for the task worker instead of running inside the request.
func (h *Handler) RunModule(c *gin.Context) {
	name := c.Param("name")

	var req transport.RunModuleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		if err := h.validate.Struct(req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
			return
		}
	}

	if req.Async && h.queue != nil {
		err := h.queue.EnqueueModuleRun(c.Request.Context(), scheduler.ModuleRunPayload{
			Module:      name,
			RequestedBy: req.RequestedBy,
		})
		if err != nil {
			httpkit.Error(c, http.StatusInternalServerError, "failed to queue module run", nil)
			return
		}
		httpkit.JSON(c, http.StatusAccepted, gin.H{"module": name, "queued": true})
		return
	}

	if err := h.orch.RunModule(c.Request.Context(), name); err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	httpkit.OK(c, gin.H{"module": name, "ran": true})
}

// PauseModule suspends a module's scheduled ticks without stopping it.
func (h *Handler) PauseModule(c *gin.Context) {
	name := c.Param("name")
	if err := h.orch.PauseModule(name); err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	httpkit.OK(c, gin.H{"module": name, "paused": true})
}

// ResumeModule re-enables scheduled ticks for a paused module.
func (h *Handler) ResumeModule(c *gin.Context) {
	name := c.Param("name")
	if err := h.orch.ResumeModule(name); err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	httpkit.OK(c, gin.H{"module": name, "resumed": true})
}

// ScheduleDigest queues the ops digest through the task worker, optionally
// for a future instant.
func (h *Handler) ScheduleDigest(c *gin.Context) {
	if h.queue == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "task queue not configured", nil)
		return
	}

	var req transport.ScheduleDigestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}

	runAt := h.clk.Now()
	if req.RunAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.RunAt)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "runAt must be RFC 3339", nil)
			return
		}
		runAt = parsed
	}

	if err := h.queue.ScheduleDigest(c.Request.Context(), runAt); err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to schedule digest", nil)
		return
	}
	httpkit.JSON(c, http.StatusAccepted, gin.H{"queued": true, "runAt": runAt.Format(time.RFC3339)})
}

func (h *Handler) Budget(c *gin.Context) {
	snap := h.budget.Snapshot()
	httpkit.OK(c, transport.BudgetResponse{
		Day:          snap.Day,
		Sent:         snap.Sent,
		Limit:        snap.Limit,
		UsedFraction: snap.UsedFraction,
		State:        string(snap.State),
		ModuleCounts: snap.ModuleCounts,
	})
}

func (h *Handler) CreateLead(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	params := repository.CreateLeadParams{
		Name:           req.Name,
		MarketingOptIn: req.MarketingOptIn,
		Tags:           req.Tags,
	}
	if req.Email != "" {
		params.Email = &req.Email
	}
	if normalized := phone.NormalizeE164(req.Phone); normalized != "" {
		params.Phone = &normalized
	}

	lead, err := h.store.CreateLead(c.Request.Context(), params)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			httpkit.HandleError(c, apperr.Conflict("a lead with this email already exists"))
			return
		}
		httpkit.Error(c, http.StatusInternalServerError, "failed to create lead", nil)
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToLeadResponse(lead))
}

func (h *Handler) GetLead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.store.GetLead(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, leadError(err))
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// leadError maps storage errors to typed domain errors for HTTP rendering.
func leadError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("lead not found")
	}
	return apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
}

// TransitionLead applies an externally-observed lifecycle event: a reply,
// a booked demo, a closed deal. Invalid transitions are rejected; a
// transition on a terminal lead is a no-op reported as a conflict.
func (h *Handler) TransitionLead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.TransitionLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.store.GetLead(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, leadError(err))
		return
	}

	from := lead.Status
	if !applyTransition(&lead, domain.Status(req.Status), h.clk.Now()) {
		httpkit.Error(c, http.StatusConflict, "invalid transition", gin.H{
			"from": string(from), "to": req.Status,
		})
		return
	}

	updated, err := h.store.UpdateLead(c.Request.Context(), id, repository.UpdateLeadParams{
		Status:          &lead.Status,
		LastContactedAt: lead.LastContactedAt,
	})
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to update lead", nil)
		return
	}

	h.bus.Publish(c.Request.Context(), events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    id,
		OldStatus: string(from),
		NewStatus: string(updated.Status),
		Module:    "api",
	})
	httpkit.OK(c, transport.ToLeadResponse(updated))
}

func applyTransition(lead *domain.Lead, to domain.Status, now time.Time) bool {
	switch to {
	case domain.StatusContacted:
		return domain.MarkContacted(lead, now)
	case domain.StatusWarm:
		return domain.MarkWarm(lead)
	case domain.StatusReplied:
		return domain.MarkReplied(lead)
	case domain.StatusDemoBooked:
		return domain.MarkDemoBooked(lead)
	case domain.StatusWon:
		return domain.MarkWon(lead)
	case domain.StatusLost:
		return domain.MarkLost(lead)
	default:
		return false
	}
}
