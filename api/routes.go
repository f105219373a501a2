package api

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) registerRoutes() {
	s.engine.POST("/auth/login", s.handleLogin)

	sessions := s.engine.Group("/sessions")
	{
		sessions.POST("", s.requireAuth, s.handleCreateSession)
		sessions.POST("/:id/start", s.requireAuth, s.handleStartSession)
		sessions.POST("/:id/pause", s.requireAuth, s.handlePauseSession)
		sessions.POST("/:id/resume", s.requireAuth, s.handleResumeSession)
		sessions.DELETE("/:id", s.requireAuth, s.handleStopSession)
		sessions.GET("/:id/state", s.handleSessionState)
		sessions.GET("/:id/events", s.handleSessionEventsSSE)
		sessions.GET("/:id/ws", s.handleSessionWS)
	}

	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
