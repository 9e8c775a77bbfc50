package api

import (
	"github.com/gin-gonic/gin"

	"signal-controller-go/internal/api/middleware"
)

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestContext())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.ControllerInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	session := s.router.Group("/session")
	{
		session.POST("", s.sessionHandler.Start)
		session.DELETE("", s.sessionHandler.Stop)
		session.POST("/pause", s.sessionHandler.Pause)
		session.POST("/resume", s.sessionHandler.Resume)
		session.GET("/snapshot", s.sessionHandler.Snapshot)
	}

	lanes := s.router.Group("/lanes")
	{
		lanes.GET("/:id", s.sessionHandler.Lane)
		lanes.POST("/:id/emergency", s.sessionHandler.TriggerEmergency)
		lanes.GET("/:id/preview", s.previewHandler.Stream)
	}

	reports := s.router.Group("/reports")
	{
		reports.GET("/summary", s.reportHandler.Summary)
		reports.GET("/text", s.reportHandler.Text)
		reports.GET("/csv", s.reportHandler.CSV)
		reports.GET("/chart", s.reportHandler.Chart)
		reports.GET("/plot.png", s.reportHandler.Plot)
		reports.GET("/sessions", s.reportHandler.Sessions)
		reports.GET("/sessions/:id", s.reportHandler.Session)
	}

	system := s.router.Group("/system")
	{
		system.GET("/stats", s.systemHandler.GetStats)
	}

	socket := gin.WrapH(s.sockets.Handler())
	s.router.GET("/socket.io/*any", socket)
	s.router.POST("/socket.io/*any", socket)
}
