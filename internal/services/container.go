package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"signal-controller-go/internal/config"
	"signal-controller-go/internal/logging"
	"signal-controller-go/internal/models"
	"signal-controller-go/internal/services/camera"
	"signal-controller-go/internal/services/messaging"
	"signal-controller-go/internal/services/preview"
	"signal-controller-go/internal/services/report"
	"signal-controller-go/internal/services/simulation"
	"signal-controller-go/internal/services/storage"
	"signal-controller-go/internal/timeutil"
)

// ServiceContainer holds all services
type ServiceContainer struct {
	Config     *config.Config
	Capture    *camera.StreamCapture
	Controller *simulation.Controller
	Preview    *preview.Publisher // nil when PREVIEW_FPS is 0
	Messaging  *messaging.Service // nil when NATS is disabled or unreachable
	Store      *storage.Store     // nil when the archive could not be opened
	Reports    *report.DirectoryArchive
}

// NewServiceContainer creates a new service container. NATS and the session
// archive are optional: failures are logged and the controller runs without them.
func NewServiceContainer(cfg *config.Config) (*ServiceContainer, error) {
	capture := camera.NewStreamCapture(cfg)
	open := func(laneID models.LaneID, uri string) (simulation.FrameSource, error) {
		src, err := capture.Open(laneID, uri)
		if err != nil {
			return nil, err
		}
		return src, nil
	}

	ctrl := simulation.NewController(cfg, timeutil.RealClock{}, open, logging.NewServiceLogger(cfg, "simulation"))

	sc := &ServiceContainer{
		Config:     cfg,
		Capture:    capture,
		Controller: ctrl,
	}

	if cfg.PreviewFPS > 0 {
		sc.Preview = preview.NewPublisher(cfg.PreviewFPS)
		ctrl.AddFrameObserver(sc.Preview)
	}

	var archives multiArchive
	if cfg.DBPath != "" {
		store, err := storage.Open(cfg.DBPath)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.DBPath).Msg("Session archive unavailable")
		} else {
			sc.Store = store
			archives = append(archives, store)
		}
	}
	if cfg.ReportDir != "" {
		sc.Reports = report.NewDirectoryArchive(cfg.ReportDir)
		archives = append(archives, sc.Reports)
	}
	if len(archives) > 0 {
		ctrl.SetArchive(archives)
	}

	if cfg.NatsEnabled {
		msg, err := messaging.NewService(cfg)
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NatsURL).Msg("NATS unavailable, continuing without messaging")
		} else {
			sc.Messaging = msg
			ctrl.AddPublisher(msg)
			if err := msg.SubscribeCommands(func(laneID models.LaneID) error {
				_, err := ctrl.TriggerEmergency(laneID, simulation.SourceCommand)
				return err
			}); err != nil {
				log.Warn().Err(err).Str("subject", cfg.CommandSubject).Msg("Remote emergency commands disabled")
			}
		}
	}

	return sc, nil
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	var errs []error
	if sc.Controller != nil {
		if err := sc.Controller.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if sc.Messaging != nil {
		if err := sc.Messaging.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if sc.Store != nil {
		if err := sc.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// multiArchive fans a finished session out to every configured archive
type multiArchive []simulation.Archive

func (m multiArchive) SaveSession(ctx context.Context, snap models.Snapshot, reason string) error {
	var errs []error
	for _, a := range m {
		if err := a.SaveSession(ctx, snap, reason); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
