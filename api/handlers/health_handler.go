package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/archivist-go/internal/app"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// HealthHandler handles health check requests
type HealthHandler struct {
	runMgr *app.RunManager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(runMgr *app.RunManager) *HealthHandler {
	return &HealthHandler{
		runMgr: runMgr,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	ActiveRun string `json:"active_run,omitempty"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: Version,
	}
	response.ActiveRun, _ = h.runMgr.Active()

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready. The server is ready when it can accept a new run.
func (h *HealthHandler) Ready(c *gin.Context) {
	if id, busy := h.runMgr.Active(); busy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "busy",
			"reason": "run " + id + " in progress",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
