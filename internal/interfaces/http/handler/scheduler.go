package handler

import (
	"errors"

	"github.com/erp/ledgersync/internal/infrastructure/scheduler"
	"github.com/erp/ledgersync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SchedulerAdmin queues background jobs and reports recent runs
type SchedulerAdmin interface {
	Schedule(jobType scheduler.JobType) (*scheduler.Job, error)
	History(limit int) []scheduler.Job
}

// SchedulerHandler serves the background job endpoints
type SchedulerHandler struct {
	BaseHandler
	jobs SchedulerAdmin
}

// NewSchedulerHandler creates a new SchedulerHandler
func NewSchedulerHandler(jobs SchedulerAdmin) *SchedulerHandler {
	return &SchedulerHandler{jobs: jobs}
}

type jobHistoryQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
}

type scheduleJobRequest struct {
	Type string `json:"type" binding:"required,oneof=OVERDUE_SWEEP PAYMENT_BACKLOG"`
}

func toJobResponse(job *scheduler.Job) dto.JobResponse {
	return dto.JobResponse{
		ID:          job.ID.String(),
		Type:        string(job.Type),
		Status:      string(job.Status),
		AsOf:        job.AsOf,
		Processed:   job.Processed,
		Error:       job.Error,
		RetryCount:  job.RetryCount,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
}

// RegisterRoutes registers the scheduler routes
func (h *SchedulerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	jobs := rg.Group("/scheduler/jobs")
	jobs.GET("", h.History)
	jobs.POST("", h.Schedule)
}

// History lists finished jobs, newest first
func (h *SchedulerHandler) History(c *gin.Context) {
	var q jobHistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultHistoryLimit
	}

	history := h.jobs.History(q.Limit)
	out := make([]dto.JobResponse, 0, len(history))
	for i := range history {
		out = append(out, toJobResponse(&history[i]))
	}
	h.Success(c, out)
}

// Schedule queues a job outside its regular schedule
func (h *SchedulerHandler) Schedule(c *gin.Context) {
	var req scheduleJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	job, err := h.jobs.Schedule(scheduler.JobType(req.Type))
	switch {
	case err == nil:
		h.Accepted(c, toJobResponse(job))
	case errors.Is(err, scheduler.ErrInvalidJobType):
		h.Error(c, dto.ErrCodeValidation, err.Error())
	case errors.Is(err, scheduler.ErrJobQueueFull), errors.Is(err, scheduler.ErrSchedulerNotRunning):
		h.Error(c, dto.ErrCodeServiceUnavailable, err.Error())
	default:
		h.HandleError(c, err)
	}
}
