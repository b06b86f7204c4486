package http

import "github.com/gin-gonic/gin"

// registerV1Routes sets up the versioned API under /api/v1.
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware()) // Add X-API-Version: v1 header

	v1.GET("/stations", s.handleV1ListStations)
	v1.GET("/stations/:station_id", s.handleV1GetStation)
}

func apiVersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-API-Version", "v1")
		c.Next()
	}
}
