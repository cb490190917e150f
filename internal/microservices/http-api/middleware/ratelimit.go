package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"rheumactive/internal/microservices/http-api/dto"
)

// RateLimit rejects requests beyond the limiter's budget with 429.
// One limiter is shared by every caller of the route: there is only one producer to protect.
func RateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.Error("Too many requests"))
			return
		}
		c.Next()
	}
}
