package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const checkTimeout = 2 * time.Second

// Check pings one backing store.
type Check func(ctx context.Context) error

// RegisterRoutes mounts GET /health. Every check must pass for a 200.
func RegisterRoutes(rg *gin.RouterGroup, checks map[string]Check) {
	rg.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
		defer cancel()

		status := "ok"
		code := http.StatusOK
		results := make(gin.H, len(checks))
		for name, check := range checks {
			ok := check(ctx) == nil
			results[name] = ok
			if !ok {
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		results["status"] = status
		c.JSON(code, results)
	})
}
