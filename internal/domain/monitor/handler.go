package monitor

import (
	"net/http"

	"backoffice/internal/common"

	"github.com/gin-gonic/gin"
)

// Handler exposes the polling monitor over HTTP.
type Handler struct {
	monitor *Monitor
}

// NewHandler creates a new monitor handler.
func NewHandler(monitor *Monitor) *Handler {
	return &Handler{monitor: monitor}
}

// Status handles GET /api/v1/monitor
func (h *Handler) Status(c *gin.Context) {
	common.Success(c, http.StatusOK, h.monitor.Status())
}

// Poll handles POST /api/v1/monitor/poll
// Runs one cycle synchronously; 409 when a cycle is already running.
func (h *Handler) Poll(c *gin.Context) {
	res, err := h.monitor.Poll(c.Request.Context())
	if err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, res)
}

// RegisterRoutes registers monitor routes to the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/monitor", h.Status)
	rg.POST("/monitor/poll", h.Poll)
}
