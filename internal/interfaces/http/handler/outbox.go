package handler

import (
	"context"

	"github.com/erp/ledgersync/internal/application/event"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OutboxAdmin lists and replays failed post-commit deliveries
type OutboxAdmin interface {
	DeadLetters(ctx context.Context, page, pageSize int) (*event.OutboxPage, error)
	Retry(ctx context.Context, id uuid.UUID) (*event.OutboxEntryDTO, error)
	RetryAll(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*event.OutboxStatsDTO, error)
}

// OutboxHandler serves the outbox operator endpoints
type OutboxHandler struct {
	BaseHandler
	outbox OutboxAdmin
}

// NewOutboxHandler creates a new OutboxHandler
func NewOutboxHandler(outbox OutboxAdmin) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

type deadLetterQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// RegisterRoutes registers the outbox routes
func (h *OutboxHandler) RegisterRoutes(rg *gin.RouterGroup) {
	outbox := rg.Group("/outbox")
	outbox.GET("/stats", h.Stats)
	outbox.GET("/dead", h.DeadLetters)
	outbox.POST("/dead/retry", h.RetryAll)
	outbox.POST("/dead/:id/retry", h.Retry)
}

// Stats counts outbox entries per status
func (h *OutboxHandler) Stats(c *gin.Context) {
	stats, err := h.outbox.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// DeadLetters lists entries that exhausted their retries
func (h *OutboxHandler) DeadLetters(c *gin.Context) {
	var q deadLetterQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	page, err := h.outbox.DeadLetters(c.Request.Context(), q.Page, q.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, page)
}

// Retry requeues one dead letter entry
func (h *OutboxHandler) Retry(c *gin.Context) {
	id, ok := h.ParseUUID(c, "id")
	if !ok {
		return
	}
	entry, err := h.outbox.Retry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// RetryAll requeues every dead letter entry
func (h *OutboxHandler) RetryAll(c *gin.Context) {
	count, err := h.outbox.RetryAll(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"requeued": count})
}
