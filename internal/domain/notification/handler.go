package notification

import (
	"io"
	"net/http"
	"time"

	"backoffice/internal/common"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for in-app notifications.
type Handler struct {
	service     *Service
	broadcaster *Broadcaster
	retention   time.Duration
}

// NewHandler creates a new notification handler. broadcaster may be nil, in
// which case the stream endpoint is not registered.
func NewHandler(service *Service, broadcaster *Broadcaster, retention time.Duration) *Handler {
	return &Handler{
		service:     service,
		broadcaster: broadcaster,
		retention:   retention,
	}
}

// List handles GET /api/v1/notifications
func (h *Handler) List(c *gin.Context) {
	common.Success(c, http.StatusOK, h.service.List())
}

// Counts handles GET /api/v1/notifications/counts
func (h *Handler) Counts(c *gin.Context) {
	common.Success(c, http.StatusOK, h.service.Counts())
}

// Create handles POST /api/v1/notifications
func (h *Handler) Create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	n, err := h.service.Add(c.Request.Context(), in)
	if err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusCreated, n)
}

// Simulate handles POST /api/v1/notifications/simulate/:category
func (h *Handler) Simulate(c *gin.Context) {
	n, err := h.service.Simulate(c.Request.Context(), Category(c.Param("category")))
	if err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusCreated, n)
}

// MarkRead handles POST /api/v1/notifications/:id/read
func (h *Handler) MarkRead(c *gin.Context) {
	if err := h.service.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, h.service.Counts())
}

// MarkManyRead handles POST /api/v1/notifications/read
// With ?section= only that section is marked, otherwise everything.
func (h *Handler) MarkManyRead(c *gin.Context) {
	var affected int
	if section := c.Query("section"); section != "" {
		n, err := h.service.MarkSectionRead(c.Request.Context(), Section(section))
		if err != nil {
			common.HandleError(c, err)
			return
		}
		affected = n
	} else {
		affected = h.service.MarkAllRead(c.Request.Context())
	}

	common.Success(c, http.StatusOK, gin.H{
		"affected": affected,
		"counts":   h.service.Counts(),
	})
}

// PurgeOld handles DELETE /api/v1/notifications/old
func (h *Handler) PurgeOld(c *gin.Context) {
	removed := h.service.PurgeOlderThan(c.Request.Context(), h.retention)
	common.Success(c, http.StatusOK, gin.H{"removed": removed})
}

// Stream handles GET /api/v1/notifications/stream
// Emits a server-sent event for every new notification.
func (h *Handler) Stream(c *gin.Context) {
	events, cancel := h.broadcaster.Subscribe()
	defer cancel()

	ctx := c.Request.Context()
	c.SSEvent("counts", h.service.Counts())
	c.Writer.Flush()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("notification", ev)
			return true
		}
	})
}

// RegisterRoutes registers notification routes to the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/notifications", h.List)
	rg.POST("/notifications", h.Create)
	rg.GET("/notifications/counts", h.Counts)
	rg.POST("/notifications/read", h.MarkManyRead)
	rg.POST("/notifications/simulate/:category", h.Simulate)
	rg.POST("/notifications/:id/read", h.MarkRead)
	rg.DELETE("/notifications/old", h.PurgeOld)
	if h.broadcaster != nil {
		rg.GET("/notifications/stream", h.Stream)
	}
}
