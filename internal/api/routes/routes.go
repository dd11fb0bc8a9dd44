package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/meagent/meagent_service/internal/api/handlers/common"
	"github.com/meagent/meagent_service/internal/api/middleware"
	"github.com/meagent/meagent_service/internal/infrastructure/di"
	"github.com/meagent/meagent_service/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes builds the router for the widget API
func SetupRoutes(container *di.Container) *gin.Engine {
	cfg := container.Config
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(container.ZapLog),
		metrics.GinMiddleware(),
		middleware.CORS(cfg.Server.AllowedOrigins),
		common.MaxRequestBodySizeMiddleware(common.DefaultMaxBodySize),
	)

	router.GET("/health", container.HealthHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	timeout := middleware.TimeoutMiddleware(cfg.Server.RequestTimeout)
	widget := container.WidgetHandlers

	v1 := router.Group("/api/v1")
	sessions := v1.Group("/widget/sessions")
	sessions.POST("", container.SessionRateLimiter.Limit(), timeout, widget.CreateSession)

	session := sessions.Group("/:id", middleware.WidgetSession(container.Registry))
	// Event streams outlive the request timeout
	session.GET("/events", widget.StreamEvents)

	timed := session.Group("", timeout)
	{
		timed.GET("/screen", widget.GetScreen)
		timed.POST("/actions", widget.PostAction)
		timed.POST("/function-calls", widget.PostFunctionCall)
		timed.GET("/redemptions", widget.ListRedemptions)
		timed.DELETE("", widget.DeleteSession)
	}

	return router
}
