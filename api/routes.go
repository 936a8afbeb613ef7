package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/inboxkit/mailsort/api/handlers"
	"github.com/inboxkit/mailsort/internal/tracing"
	"github.com/inboxkit/mailsort/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, s *services.Services) {
	if s == nil {
		panic("Services cannot be nil")
	}

	// Add recovery middlewares
	r.Use(gin.Recovery())                                         // Gin's built-in recovery
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer())) // Our custom Jaeger recovery

	// Liveness and scheduler status endpoints
	r.GET("/health", handlers.HealthCheck)
	r.GET("/status", tracing.TracingEnhancer(ctx, "GET /status"), handlers.Status(s.OnboardingService))
}
