package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/archivist-go/internal/app"
	"github.com/yourusername/archivist-go/pkg/logger"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
)

var logCategories = map[logger.LogCategory]bool{
	logger.CategoryRun:   true,
	logger.CategoryError: true,
}

// LogHandler handles log-related requests
type LogHandler struct {
	logsDir   string
	logReader *logger.LogReader
	runMgr    *app.RunManager
}

// NewLogHandler creates a new log handler
func NewLogHandler(logsDir string, runMgr *app.RunManager) *LogHandler {
	return &LogHandler{
		logsDir:   logsDir,
		logReader: logger.NewLogReader(logsDir),
		runMgr:    runMgr,
	}
}

func parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLogLimit)))
	if err != nil || limit < 0 {
		return defaultLogLimit
	}
	if limit > maxLogLimit {
		return maxLogLimit
	}
	return limit
}

func parseDate(c *gin.Context) (time.Time, bool) {
	dateStr := c.Query("date")
	if dateStr == "" {
		return time.Now(), true
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format, use YYYY-MM-DD"})
		return time.Time{}, false
	}
	return date, true
}

// GetLogs handles GET /api/v1/logs/:category?date=&run_id=&limit=
func (h *LogHandler) GetLogs(c *gin.Context) {
	category := logger.LogCategory(c.Param("category"))
	if !logCategories[category] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
		return
	}

	date, ok := parseDate(c)
	if !ok {
		return
	}

	var filter logger.LogFilter
	if runID := c.Query("run_id"); runID != "" {
		filter = logger.LogFilter{Key: "run_id", Value: runID}
	}

	entries, err := h.logReader.ReadLogs(category, date, filter, parseLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"category": category,
		"date":     date.Format("2006-01-02"),
		"count":    len(entries),
		"entries":  entries,
	})
}

// GetRunLogs handles GET /api/v1/runs/:id/logs
func (h *LogHandler) GetRunLogs(c *gin.Context) {
	run, err := h.runMgr.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	// TODO: runs crossing midnight log into two daily files, only the start day is read
	entries, err := h.logReader.ReadLogs(logger.CategoryRun, run.StartedAt,
		logger.LogFilter{Key: "run_id", Value: run.ID}, parseLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":  run.ID,
		"count":   len(entries),
		"entries": entries,
	})
}

// GetCategories handles GET /api/v1/logs/categories
func (h *LogHandler) GetCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"categories": []string{string(logger.CategoryRun), string(logger.CategoryError)},
	})
}

// ExportLogs handles GET /api/v1/logs/:category/export
func (h *LogHandler) ExportLogs(c *gin.Context) {
	category := logger.LogCategory(c.Param("category"))
	if !logCategories[category] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
		return
	}

	date, ok := parseDate(c)
	if !ok {
		return
	}

	filename := string(category) + "-" + date.Format("20060102") + ".log"
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "application/octet-stream")

	c.File(logger.CategoryLogPath(h.logsDir, category, date))
}
