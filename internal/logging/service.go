package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"signal-controller-go/internal/config"
	"signal-controller-go/internal/models"
)

func NewServiceLogger(cfg *config.Config, service string) zerolog.Logger {
	return log.With().Str("controller_id", cfg.ControllerID).Str("service", service).Logger()
}

func WithLane(base zerolog.Logger, laneID models.LaneID) zerolog.Logger {
	return base.With().Str("lane_id", laneID.String()).Logger()
}

func WithSession(base zerolog.Logger, sessionID string) zerolog.Logger {
	return base.With().Str("session_id", sessionID).Logger()
}
