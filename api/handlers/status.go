package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inboxkit/mailsort/interfaces"
)

// HealthCheck provides a simple health check endpoint
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Status returns the current state of the onboarding scheduler
func Status(onboardingService interfaces.OnboardingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := onboardingService.Status()
		c.JSON(http.StatusOK, status)
	}
}
