package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a JSON 500. The request keeps flowing
// through Logger, which records it at error level.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := append(requestFields(c), zap.Any("panic", rec), zap.Stack("stack"))
			log.Error("Handler panicked", fields...)
			_ = c.Error(fmt.Errorf("panic: %v", rec))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}()
		c.Next()
	}
}
