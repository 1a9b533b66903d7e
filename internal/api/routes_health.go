package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/larkrelay/internal/handlers"
	"github.com/charlesng35/larkrelay/internal/monitoring"
)

func registerHealthRoutes(r *gin.Engine, manager *monitoring.HealthManager) {
	r.GET("/", handlers.Root())
	r.GET("/health", handlers.Health())
	r.GET("/health/ready", handlers.Ready(manager))
}
