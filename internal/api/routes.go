package api

import (
	"transcript-request-service/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the engine with the middleware chain and all routes.
func NewRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	router := gin.New()
	_ = router.SetTrustedProxies(cfg.Server.TrustedProxies)

	router.Use(RecoveryMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(BodyLimitMiddleware(cfg.Server.MaxBodyBytes))

	SetupRoutes(router, handler, cfg.Auth.APIKey)
	return router
}

func SetupRoutes(router *gin.Engine, handler *Handler, apiKey string) {
	// Health and metrics
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/submit-request", handler.SubmitRequest)

		// Partner routes
		external := v1.Group("/external", APIKeyMiddleware(apiKey))
		{
			external.POST("/submit", handler.SubmitRequest)
			external.GET("/status/:requestId", handler.GetStatus)
			external.POST("/status/:requestId/confirm", handler.ConfirmDelivery)
			external.GET("/requests/export", handler.ExportRequests)
			external.GET("/requests/:requestId/receipt", handler.GetReceipt)
		}
	}
}
