// Package agent runs the endpoint side of the command channel: it
// dials the controller and answers command packets, either over a raw
// TCP stream or by polling the controller's HTTP tunnel.
package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/tlvctl/internal/observability"
	"github.com/danmuck/tlvctl/internal/protocol"
	"github.com/danmuck/tlvctl/internal/protocol/tlv"
	"github.com/danmuck/tlvctl/internal/tcp"
	"github.com/danmuck/tlvctl/internal/transport"
)

var (
	ErrInvalidMode          = errors.New("agent: invalid connection mode")
	ErrControllerAddrNeeded = errors.New("agent: controller address required")
	ErrControllerURLNeeded  = errors.New("agent: controller url required")
)

// Mode selects how the agent reaches the controller.
type Mode string

const (
	// ModeTCP frames packets over a raw stream socket.
	ModeTCP Mode = "tcp"
	// ModeHTTP polls the controller's tunnel path with GET/POST.
	ModeHTTP Mode = "http"
)

// ServiceConfig configures agent runtime defaults.
type ServiceConfig struct {
	AgentID           string
	Mode              Mode
	ControllerAddr    string
	ControllerURL     string
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	HTTPTimeout       time.Duration
	Dialer            tcp.Dialer
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		AgentID:           "agent.local",
		Mode:              ModeTCP,
		PollInterval:      500 * time.Millisecond,
		HeartbeatInterval: 5 * time.Second,
		HTTPTimeout:       10 * time.Second,
		Dialer:            tcp.DefaultDialer(),
	}
}

// Service is the agent run loop plus its command handlers.
type Service struct {
	cfg     ServiceConfig
	started time.Time
	seq     uint64
}

func NewService(cfg ServiceConfig) (*Service, error) {
	cfg.AgentID = strings.TrimSpace(cfg.AgentID)
	if cfg.AgentID == "" {
		cfg.AgentID = "agent.local"
	}
	switch cfg.Mode {
	case ModeTCP:
		if strings.TrimSpace(cfg.ControllerAddr) == "" {
			return nil, ErrControllerAddrNeeded
		}
	case ModeHTTP:
		if strings.TrimSpace(cfg.ControllerURL) == "" {
			return nil, ErrControllerURLNeeded
		}
	default:
		return nil, ErrInvalidMode
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	return &Service{cfg: cfg}, nil
}

// Run drives the agent until the context ends.
func (s *Service) Run(ctx context.Context) error {
	s.started = time.Now()
	log.Info().
		Str("agent_id", s.cfg.AgentID).
		Str("mode", string(s.cfg.Mode)).
		Msg("agent_start")

	switch s.cfg.Mode {
	case ModeHTTP:
		return s.runHTTP(ctx)
	default:
		return s.runTCP(ctx)
	}
}

func (s *Service) runTCP(ctx context.Context) error {
	for {
		conn, err := s.cfg.Dialer.DialRetry(ctx, s.cfg.ControllerAddr)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		log.Info().Str("addr", s.cfg.ControllerAddr).Msg("agent_connected")

		client := transport.NewClient(conn, transport.DefaultConfig())
		err = s.sessionLoop(ctx, client)
		_ = client.Close()
		if ctx.Err() != nil {
			return nil
		}
		log.Warn().Err(err).Msg("agent_session_lost")
	}
}

// sessionLoop services one live socket: poll for inbound packets,
// answer them, and keep heartbeats flowing. The transport client is
// single-goroutine, so everything happens on this loop.
func (s *Service) sessionLoop(ctx context.Context, client *transport.Client) error {
	lastHeartbeat := time.Now()
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		p, err := client.Read(false)
		if err != nil {
			return err
		}
		if p != nil {
			observability.RecordPacketReceived("tcp")
			for _, reply := range s.Handle(*p) {
				if err := client.Send(reply); err != nil {
					return err
				}
				observability.RecordPacketSent("tcp")
			}
			continue
		}

		if s.cfg.HeartbeatInterval > 0 && time.Since(lastHeartbeat) >= s.cfg.HeartbeatInterval {
			if err := client.Send(s.heartbeat()); err != nil {
				return err
			}
			observability.RecordPacketSent("tcp")
			lastHeartbeat = time.Now()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.PollInterval):
		}
	}
}

// Handle maps one inbound packet to zero or more replies.
func (s *Service) Handle(p tlv.Packet) []tlv.Packet {
	switch p.Type {
	case protocol.MsgPing:
		return []tlv.Packet{tlv.New(protocol.MsgPong, p.Payload)}
	case protocol.MsgStatus:
		return []tlv.Packet{s.statusReport()}
	default:
		log.Debug().Uint32("type", p.Type).Int("bytes", len(p.Payload)).Msg("agent_packet_ignored")
		return nil
	}
}

func (s *Service) statusReport() tlv.Packet {
	s.seq++
	fields := tlv.NewFields(nil)
	fields.AddString(protocol.FieldID, s.cfg.AgentID)
	fields.AddUint64(protocol.FieldUptimeMS, uint64(time.Since(s.started).Milliseconds()))
	fields.AddUint64(protocol.FieldSeq, s.seq)
	return tlv.New(protocol.MsgReport, fields.Buffer())
}

func (s *Service) heartbeat() tlv.Packet {
	s.seq++
	fields := tlv.NewFields(nil)
	fields.AddString(protocol.FieldID, s.cfg.AgentID)
	fields.AddUint64(protocol.FieldSeq, s.seq)
	return tlv.New(protocol.MsgHeartbeat, fields.Buffer())
}
