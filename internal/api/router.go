package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/api/handler"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	accountHandler *handler.AccountHandler,
	requestHandler *handler.RequestHandler,
	adminHandler *handler.AdminHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Account and affiliate operations
		accounts := v1.Group("/accounts")
		{
			accounts.POST("", accountHandler.Register)
			accounts.GET("/:id", accountHandler.GetByID)
			accounts.GET("/:id/stats", accountHandler.GetStats)
			accounts.GET("/:id/transactions", accountHandler.GetTransactions)
			accounts.GET("/:id/requests", requestHandler.GetByAccountID)
			accounts.GET("/:id/commissions/preview", accountHandler.PreviewCommissions)
		}

		// Investment plan catalog
		v1.GET("/plans", accountHandler.ListPlans)

		// Financial request operations
		requests := v1.Group("/requests")
		{
			requests.POST("", requestHandler.Create)
			requests.GET("/:id", requestHandler.GetByID)
			requests.POST("/:id/cancel", requestHandler.Cancel)
		}

		// Admin approval queue
		admin := v1.Group("/admin")
		{
			admin.GET("/requests", adminHandler.Queue)
			admin.POST("/requests/:id/approve", adminHandler.Approve)
			admin.POST("/requests/:id/reject", adminHandler.Reject)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
