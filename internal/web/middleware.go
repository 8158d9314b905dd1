package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/meetsched/internal/auth"
)

const ownerIDKey = "ownerID"

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/healthz" {
			return
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= 500:
			logger.Error("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

func requireOwner(sessions *auth.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := sessions.Get(c.Request)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("UNAUTHORIZED", "login required"))
			return
		}
		c.Set(ownerIDKey, sess.OwnerID)
		c.Next()
	}
}

func ownerID(c *gin.Context) string { return c.GetString(ownerIDKey) }
