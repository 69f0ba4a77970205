package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gigworks/marketplace-core/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "marketplace-api-service",
		})
	})

	jobHandler := handler.NewJobHandler(deps)
	transferHandler := handler.NewTransferHandler(deps)
	payoutHandler := handler.NewPayoutHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			jobs.POST("", jobHandler.CreateJob)
			jobs.GET("", jobHandler.ListJobs)
			jobs.GET("/:job_id", jobHandler.GetJob)
			jobs.POST("/:job_id/claim", jobHandler.ClaimJob)
			jobs.POST("/:job_id/checkin", jobHandler.CheckIn)
			jobs.POST("/:job_id/checkout", jobHandler.CheckOut)
			jobs.POST("/:job_id/approve", jobHandler.ApproveJob)
			jobs.POST("/:job_id/cancel", jobHandler.CancelJob)
			jobs.POST("/:job_id/dispute", jobHandler.DisputeJob)
			jobs.POST("/:job_id/resolve", jobHandler.ResolveDispute)
			jobs.POST("/:job_id/complaint", jobHandler.FileComplaint)
			jobs.POST("/:job_id/transfers", transferHandler.OfferTransfer)
		}

		v1.GET("/claims/recent", jobHandler.ListRecentClaims)

		transfers := v1.Group("/transfers")
		{
			transfers.POST("/:transfer_id/accept", transferHandler.AcceptTransfer)
			transfers.POST("/:transfer_id/decline", transferHandler.DeclineTransfer)
		}

		payouts := v1.Group("/payouts")
		{
			payouts.POST("/callback", payoutHandler.GatewayCallback)
			payouts.POST("/:payout_id/paid", payoutHandler.MarkPaid)
		}

		v1.GET("/reports/:period_id", payoutHandler.GetReport)
	}

	return r
}
