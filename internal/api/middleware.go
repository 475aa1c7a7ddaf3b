package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"metinanaliz/internal/logger"
)

// RequestLogger logs one line per request through logrus.
func RequestLogger() gin.HandlerFunc {
	log := logger.For("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		entry := log.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency_ms": float64(latency.Nanoseconds()) / 1e6,
			"client_ip":  c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}
		msg := c.Request.Method + " " + c.Request.URL.Path
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error(msg)
		case status >= http.StatusBadRequest:
			entry.Warn(msg)
		case latency > 30*time.Second:
			entry.WithField("slow_request", true).Warn(msg)
		default:
			entry.Info(msg)
		}
	}
}

// Recovery turns a panic into the standard failure body.
func Recovery() gin.HandlerFunc {
	log := logger.For("http")
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithFields(logrus.Fields{
					"method": c.Request.Method,
					"path":   c.Request.URL.Path,
					"panic":  rec,
				}).Error("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": "Beklenmeyen bir sunucu hatası oluştu",
				})
			}
		}()
		c.Next()
	}
}

// NewRouter returns a gin engine with logging, recovery and every route.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(Recovery(), RequestLogger())
	h.RegisterRoutes(router)
	return router
}
