// Package controller runs the operator side of the command channel:
// the HTTP dispatcher carrying the TLV tunnel, plus a separate admin
// surface for queueing commands and inspecting traffic.
package controller

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/tlvctl/internal/config"
	"github.com/danmuck/tlvctl/internal/httplisten"
	"github.com/danmuck/tlvctl/internal/observability"
	"github.com/danmuck/tlvctl/internal/protocol"
	"github.com/danmuck/tlvctl/internal/protocol/tlv"
	"github.com/danmuck/tlvctl/internal/tunnel"
)

// ServiceConfig configures the controller runtime.
type ServiceConfig struct {
	Name       string
	ListenAddr string
	AdminAddr  string
	Tunnel     tunnel.Config
	InboxLimit int
}

// FromFileConfig maps a loaded TOML config onto runtime settings.
func FromFileConfig(cfg config.ControllerConfig) ServiceConfig {
	return ServiceConfig{
		Name:       cfg.Name,
		ListenAddr: cfg.ListenAddr,
		AdminAddr:  cfg.AdminAddr,
		Tunnel: tunnel.Config{
			URLPath:        cfg.URLPath,
			MaxEgressBytes: cfg.MaxEgressBytes,
			Overflow:       tunnel.OverflowPolicy(cfg.OverflowPolicy),
		},
		InboxLimit: cfg.InboxLimit,
	}
}

// Received is one inbound packet held for admin inspection.
type Received struct {
	Packet tlv.Packet
	At     time.Time
}

// Service wires the dispatcher, the tunnel transport, and the admin
// router together.
type Service struct {
	cfg      ServiceConfig
	listener *httplisten.Listener
	tun      *tunnel.Server
	admin    *http.Server
	started  time.Time

	mu    sync.Mutex
	inbox []Received
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Name == "" {
		cfg.Name = "tlv-ctl"
	}
	if cfg.InboxLimit <= 0 {
		cfg.InboxLimit = 256
	}

	s := &Service{
		cfg:      cfg,
		listener: httplisten.NewListener(cfg.ListenAddr),
	}

	tun, err := tunnel.NewServer(s.listener, cfg.Tunnel, s.onPacket)
	if err != nil {
		return nil, err
	}
	s.tun = tun

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		observability.AdminRequestLogger(log.Logger),
		observability.AdminRequestMetrics(cfg.Name),
		gin.Recovery(),
	)
	s.registerRoutes(router)
	s.admin = &http.Server{Addr: cfg.AdminAddr, Handler: router}

	return s, nil
}

// Tunnel exposes the tunnel transport, mainly for tests and embedding.
func (s *Service) Tunnel() *tunnel.Server {
	return s.tun
}

// Listener exposes the dispatcher, mainly for tests and embedding.
func (s *Service) Listener() *httplisten.Listener {
	return s.listener
}

// onPacket is the tunnel inbound callback. Pings are answered in
// kind; everything else lands in the inspection inbox.
func (s *Service) onPacket(p tlv.Packet) {
	observability.RecordPacketReceived("tunnel")
	log.Info().Uint32("type", p.Type).Int("bytes", len(p.Payload)).Msg("controller_packet")

	s.mu.Lock()
	s.inbox = append(s.inbox, Received{Packet: p, At: time.Now()})
	if len(s.inbox) > s.cfg.InboxLimit {
		s.inbox = s.inbox[len(s.inbox)-s.cfg.InboxLimit:]
	}
	s.mu.Unlock()

	if p.Type == protocol.MsgPing {
		if err := s.tun.Send(tlv.New(protocol.MsgPong, p.Payload)); err != nil {
			log.Warn().Err(err).Msg("controller_pong_dropped")
		}
	}
}

// Inbox returns a snapshot of recently received packets, newest last.
func (s *Service) Inbox() []Received {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Received, len(s.inbox))
	copy(out, s.inbox)
	return out
}

// Run serves the tunnel dispatcher and admin surface until the
// context ends.
func (s *Service) Run(ctx context.Context) error {
	s.started = time.Now()
	if err := s.listener.Listen(); err != nil {
		return err
	}

	log.Info().
		Str("name", s.cfg.Name).
		Str("listen_addr", s.listener.Addr()).
		Str("admin_addr", s.cfg.AdminAddr).
		Str("url_path", s.tun.URLPath()).
		Msg("controller_start")

	errs := make(chan error, 2)
	go func() { errs <- s.listener.Serve() }()
	go func() {
		err := s.admin.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errs <- err
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errs:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.admin.Shutdown(shutdownCtx)
	_ = s.listener.Shutdown(shutdownCtx)
	return runErr
}
