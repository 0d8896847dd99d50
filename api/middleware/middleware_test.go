package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestEngine(log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Logger(log), Recovery(log))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/runs/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/boom/:id", func(c *gin.Context) { panic("kaboom") })
	return r
}

func serve(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestLogger_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := newTestEngine(zap.New(core))

	serve(r, "/health")
	serve(r, "/runs/r1")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "r1", entries[1].ContextMap()["run_id"])
	assert.Equal(t, "/runs/:id", entries[1].ContextMap()["route"])
}

func TestRecovery_PanicBecomes500(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := newTestEngine(zap.New(core))

	w := serve(r, "/boom/r9")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())

	panics := logs.FilterMessage("Handler panicked").All()
	require.Len(t, panics, 1)
	assert.Equal(t, "r9", panics[0].ContextMap()["run_id"])

	requests := logs.FilterMessage("HTTP request").All()
	require.Len(t, requests, 1)
	assert.Equal(t, zapcore.ErrorLevel, requests[0].Level)
	assert.Contains(t, requests[0].ContextMap()["errors"], "kaboom")
}
