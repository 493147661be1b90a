package gateway

import (
	"github.com/gin-gonic/gin"
	"github.com/soundscape/server/internal/pkg/response"
)

// RegisterRoutes mounts the socket.io transport.
func RegisterRoutes(rg *gin.RouterGroup, hub *Hub) {
	handler := gin.WrapH(hub.Handler())
	rg.Any("/socket.io", handler)
	rg.Any("/socket.io/*any", handler)
}

// RegisterAPIRoutes mounts the gateway stats endpoint under /api.
func RegisterAPIRoutes(rg *gin.RouterGroup, hub *Hub) {
	rg.GET("/gateway/stats", func(c *gin.Context) {
		response.OK(c, hub.Stats(c.Request.Context()))
	})
}
