package dispatch

import (
	"net/http"

	"backoffice/internal/common"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for channel dispatch.
type Handler struct {
	service *Service
}

// NewHandler creates a new dispatch handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Enqueue handles POST /api/v1/events
func (h *Handler) Enqueue(c *gin.Context) {
	var ev Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.service.Enqueue(c.Request.Context(), &ev); err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusAccepted, gin.H{
		"type":   ev.Type,
		"source": ev.Source,
		"status": "queued",
	})
}

// RegisterRoutes registers dispatch routes to the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/events", h.Enqueue)
}
