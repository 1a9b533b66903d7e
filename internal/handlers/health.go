package handlers

import (
	"net/http"
	"time"

	"github.com/charlesng35/larkrelay/internal/monitoring"
	"github.com/charlesng35/larkrelay/pkg/response"
	"github.com/gin-gonic/gin"
)

// Greeting is the plain-text body of GET /.
const Greeting = "Hello Lark Relay!"

// Root answers the liveness probe Lark and humans hit first.
func Root() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, Greeting)
	}
}

// Health returns a simple status payload useful for liveness checks.
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}

// Ready evaluates the readiness probes, answering 503 unless every probe is up.
func Ready(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := manager.Evaluate(c.Request.Context())
		status := http.StatusOK
		if !report.Success {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"success":    report.Success,
			"status":     report.Status,
			"checks":     report.Checks,
			"checked_at": time.Now().UTC(),
		})
	}
}
