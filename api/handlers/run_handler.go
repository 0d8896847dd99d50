package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/archivist-go/internal/app"
	"github.com/yourusername/archivist-go/internal/domain"
)

// RunHandler handles run-related HTTP requests
type RunHandler struct {
	runMgr *app.RunManager
	logger *zap.Logger
}

// NewRunHandler creates a new run handler
func NewRunHandler(runMgr *app.RunManager, logger *zap.Logger) *RunHandler {
	return &RunHandler{
		runMgr: runMgr,
		logger: logger,
	}
}

// StartRunRequest represents a request to start a run
type StartRunRequest struct {
	Kind string `json:"kind" binding:"required"`
}

// RunResponse is a run plus human readable sizes
type RunResponse struct {
	domain.Run
	Duration string `json:"duration"`
	Size     string `json:"size,omitempty"`
}

func newRunResponse(run domain.Run) RunResponse {
	resp := RunResponse{Run: run, Duration: run.Duration().Round(time.Millisecond).String()}
	switch {
	case run.Download != nil:
		resp.Size = humanize.IBytes(uint64(run.Download.Size))
	case run.Validation != nil:
		resp.Size = humanize.IBytes(uint64(run.Validation.Size))
	}
	return resp
}

// StartRun handles POST /api/v1/runs
func (h *RunHandler) StartRun(c *gin.Context) {
	var req StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind := domain.RunKind(req.Kind)
	if !domain.ValidateRunKind(kind) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be download or validate"})
		return
	}

	run, err := h.runMgr.Start(kind)
	if err != nil {
		if errors.Is(err, domain.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to start run", zap.String("kind", req.Kind), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, newRunResponse(run))
}

// GetRun handles GET /api/v1/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	run, err := h.runMgr.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	c.JSON(http.StatusOK, newRunResponse(run))
}

// ListRuns handles GET /api/v1/runs
func (h *RunHandler) ListRuns(c *gin.Context) {
	status := domain.RunStatus(c.Query("status"))

	runs := h.runMgr.List()
	resp := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		if status != "" && run.Status != status {
			continue
		}
		resp = append(resp, newRunResponse(run))
	}

	c.JSON(http.StatusOK, resp)
}

// CancelRun handles POST /api/v1/runs/:id/cancel
func (h *RunHandler) CancelRun(c *gin.Context) {
	id := c.Param("id")

	if err := h.runMgr.Cancel(id); err != nil {
		switch {
		case errors.Is(err, domain.ErrRunNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrRunNotActive):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Failed to cancel run", zap.String("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "cancellation requested"})
}
