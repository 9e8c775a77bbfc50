package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"signal-controller-go/internal/api/handlers"
	"signal-controller-go/internal/config"
	"signal-controller-go/internal/logging"
	"signal-controller-go/internal/services"
)

type Server struct {
	config    *config.Config
	router    *gin.Engine
	server    *http.Server
	container *services.ServiceContainer
	sockets   *SocketHub

	healthHandler  *handlers.HealthHandler
	systemHandler  *handlers.SystemHandler
	sessionHandler *handlers.SessionHandler
	reportHandler  *handlers.ReportHandler
	previewHandler *handlers.PreviewHandler
}

// NewServer builds the service container and the HTTP API on top of it
func NewServer(cfg *config.Config) (*Server, error) {
	container, err := services.NewServiceContainer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create services: %w", err)
	}
	return newServer(cfg, container), nil
}

func newServer(cfg *config.Config, container *services.ServiceContainer) *Server {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctrl := container.Controller
	sockets := NewSocketHub(ctrl, logging.NewServiceLogger(cfg, "socket"))
	ctrl.AddPublisher(sockets)

	var archive handlers.SessionArchive
	if container.Store != nil {
		archive = container.Store
	}
	var streamer handlers.Streamer
	if container.Preview != nil {
		streamer = container.Preview
	}

	s := &Server{
		config:         cfg,
		router:         gin.New(),
		container:      container,
		sockets:        sockets,
		healthHandler:  handlers.NewHealthHandler(cfg.ControllerID, cfg.Version, ctrl.Active),
		systemHandler:  handlers.NewSystemHandler(cfg.ControllerID),
		sessionHandler: handlers.NewSessionHandler(ctrl, cfg.Videos, cfg.ShutdownTimeout),
		reportHandler:  handlers.NewReportHandler(ctrl, archive),
		previewHandler: handlers.NewPreviewHandler(streamer),
	}

	if container.Messaging != nil {
		s.healthHandler.WithMessaging(container.Messaging.IsConnected)
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupSwagger()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s.router,
	}
	return s
}

// Start serves HTTP until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	go s.sockets.Serve()

	log.Info().Int("port", s.config.Port).Msg("Signal controller API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then stops the session and services
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := s.sockets.Close(); err != nil {
		errs = append(errs, fmt.Errorf("socket shutdown: %w", err))
	}
	if err := s.container.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("services shutdown: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Server) Handler() http.Handler {
	return s.router
}
