package handler

import (
	"net/http"

	"github.com/erp/ledgersync/internal/infrastructure/persistence"
	"github.com/erp/ledgersync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Pinger checks a dependency is reachable
type Pinger interface {
	Ping() error
}

// poolReporter is implemented by pingers that also expose pool usage
type poolReporter interface {
	Stats() (persistence.ConnectionStats, error)
}

// HealthHandler serves liveness and readiness checks
type HealthHandler struct {
	BaseHandler
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// RegisterRoutes registers the health checks on the root engine
func (h *HealthHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.Live)
	r.GET("/ready", h.Ready)
}

func (h *HealthHandler) Live(c *gin.Context) {
	h.Success(c, gin.H{"status": "ok"})
}

// Ready answers 503 while the database is unreachable. When the pinger
// reports pool usage it is included under "db_pool".
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(dto.ErrCodeUpstreamUnavailable, "database unreachable", requestID(c)))
		return
	}

	body := gin.H{"status": "ready"}
	if pr, ok := h.db.(poolReporter); ok {
		if stats, err := pr.Stats(); err == nil {
			body["db_pool"] = stats
		}
	}
	h.Success(c, body)
}
