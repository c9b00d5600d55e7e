package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lapply/lapply/internal/transport/middleware"
)

func InitRoutes(cancellationHandler *CancellationHandler, applicationHandler *ApplicationHandler, webhookHandler *LineWebhookHandler) *gin.Engine {

	router := gin.New()

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(30))

	// API routes
	api := router.Group("/api/v1")
	{
		applications := api.Group("/applications")
		{
			applications.POST("/:id/cancel", cancellationHandler.Cancel)
		}

		api.GET("/cancelable-applications", applicationHandler.GetCancelable)

		// Admin routes
		admin := api.Group("/admin")
		{
			admin.GET("/organizations/:id/applications", applicationHandler.GetOrganizationApplications)
			admin.GET("/events/:id", applicationHandler.GetEventAvailability)
			admin.POST("/applications/:id/repair-cancel", cancellationHandler.RepairCancel)
		}
	}

	// LINE Messaging API webhook
	router.POST("/webhook/line", webhookHandler.Handle)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	return router
}
