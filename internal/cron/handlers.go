// Package cron is the external trigger surface: shared-secret-guarded
// endpoints an outside scheduler calls when the internal periodic scheduler
// is disabled. Both endpoints drive the same evaluator and job service the
// worker uses.
package cron

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inkwellhq/inkwell/internal/jobs"
	"github.com/inkwellhq/inkwell/internal/scheduler"
)

// SecretHeader carries the shared secret on trigger requests.
const SecretHeader = "X-Cron-Secret"

// RequireSecret guards the trigger endpoints. An empty configured secret
// disables the surface entirely rather than leaving it open.
func RequireSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			slog.Warn("Cron trigger rejected: no secret configured")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "cron trigger disabled"})
			return
		}
		provided := c.GetHeader(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid cron secret"})
			return
		}
		c.Next()
	}
}

// TickHandler runs one schedule evaluation pass.
func TickHandler(evaluator *scheduler.Evaluator) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := evaluator.Tick(c.Request.Context())
		if err != nil {
			slog.Error("Cron tick failed", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

// ProcessHandler drains one batch of pending generation jobs.
func ProcessHandler(jobService *jobs.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := jobService.ProcessPendingJobs(c.Request.Context())
		if err != nil {
			slog.Error("Cron processing failed", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}
