package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"signal-controller-go/internal/config"
	"signal-controller-go/internal/models"
)

// EmergencyCommand is the payload accepted on the command subject.
// Lane may be a lane id ("lane3") or a direction ("east").
type EmergencyCommand struct {
	Lane string `json:"lane"`
}

// EmergencyTrigger applies a remote emergency command
type EmergencyTrigger func(laneID models.LaneID) error

type Service struct {
	conn *nats.Conn
	cfg  *config.Config
	subs []*nats.Subscription
}

func NewService(cfg *config.Config) (*Service, error) {
	opts := []nats.Option{
		nats.Name("signal-controller-" + cfg.ControllerID),
		nats.Timeout(cfg.NatsConnectTimeout),
		nats.ReconnectWait(cfg.NatsReconnectWait),
		nats.MaxReconnects(cfg.NatsMaxReconnects),
		nats.DrainTimeout(cfg.NatsDrainTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(cfg.NatsURL, opts...)
	if err != nil {
		return nil, err
	}

	log.Info().Str("url", cfg.NatsURL).Msg("NATS connection established")

	return &Service{
		conn: conn,
		cfg:  cfg,
	}, nil
}

func (s *Service) Publish(subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return s.conn.Publish(subject, payload)
}

// PublishSnapshot sends the per-tick snapshot on the snapshot subject
func (s *Service) PublishSnapshot(snap models.Snapshot) {
	if err := s.Publish(s.cfg.SnapshotSubject, snap); err != nil {
		log.Warn().Err(err).Str("subject", s.cfg.SnapshotSubject).Int("tick", snap.Tick).Msg("Failed to publish snapshot")
	}
}

// PublishEmergency sends override start/clear events on the emergency subject
func (s *Service) PublishEmergency(event models.EmergencyEvent) {
	if err := s.Publish(s.cfg.EmergencySubject, event); err != nil {
		log.Warn().Err(err).Str("subject", s.cfg.EmergencySubject).Str("lane_id", event.LaneID.String()).Msg("Failed to publish emergency event")
	}
}

func (s *Service) Subscribe(subject string, handler func([]byte)) (*nats.Subscription, error) {
	return s.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
}

// SubscribeCommands listens for remote emergency triggers. Commands are
// load-balanced across controllers sharing the same id.
func (s *Service) SubscribeCommands(trigger EmergencyTrigger) error {
	sub, err := s.conn.QueueSubscribe(s.cfg.CommandSubject, s.cfg.ControllerID, func(msg *nats.Msg) {
		reply := HandleCommand(msg.Data, trigger)
		if msg.Reply == "" {
			return
		}
		if err := msg.Respond(reply); err != nil {
			log.Warn().Err(err).Msg("Failed to respond to emergency command")
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.cfg.CommandSubject, err)
	}
	s.subs = append(s.subs, sub)

	log.Info().Str("subject", s.cfg.CommandSubject).Str("queue", s.cfg.ControllerID).Msg("Listening for emergency commands")
	return nil
}

// HandleCommand decodes and applies one command, returning a JSON reply
func HandleCommand(data []byte, trigger EmergencyTrigger) []byte {
	reply := func(ok bool, msg string) []byte {
		out, _ := json.Marshal(map[string]interface{}{"ok": ok, "message": msg})
		return out
	}

	var cmd EmergencyCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		log.Warn().Err(err).Msg("Malformed emergency command")
		return reply(false, "malformed command")
	}

	laneID, err := models.ParseLaneID(cmd.Lane)
	if err != nil {
		log.Warn().Err(err).Str("lane", cmd.Lane).Msg("Emergency command for unknown lane")
		return reply(false, err.Error())
	}

	if err := trigger(laneID); err != nil {
		log.Warn().Err(err).Str("lane_id", laneID.String()).Msg("Emergency command rejected")
		return reply(false, err.Error())
	}
	return reply(true, "emergency triggered on "+laneID.String())
}

func (s *Service) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

func (s *Service) Shutdown(ctx context.Context) error {
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Debug().Err(err).Msg("Failed to unsubscribe")
		}
	}
	if s.conn != nil {
		// Try graceful drain, fallback to immediate close
		if err := s.conn.Drain(); err != nil {
			log.Warn().Err(err).Msg("Failed to drain NATS connection gracefully, closing immediately")
			s.conn.Close()
		}
	}
	return nil
}
