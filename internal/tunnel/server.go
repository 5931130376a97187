// Package tunnel carries TLV frames through HTTP request/response
// cycles for peers that can only speak outbound HTTP. Outbound frames
// queue in an egress mailbox drained by the peer's polling GETs;
// inbound frames arrive as POST bodies. Latency is bounded by the
// peer's poll interval, not by this package.
package tunnel

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/tlvctl/internal/httplisten"
	"github.com/danmuck/tlvctl/internal/observability"
	"github.com/danmuck/tlvctl/internal/protocol/tlv"
)

var (
	ErrClosed     = errors.New("tunnel: transport is closed")
	ErrEgressFull = errors.New("tunnel: egress mailbox is full")
)

// OverflowPolicy decides what Send does when the egress mailbox is at
// its configured cap.
type OverflowPolicy string

const (
	// OverflowReject makes Send fail with ErrEgressFull.
	OverflowReject OverflowPolicy = "reject"
	// OverflowDropOldest evicts whole frames from the front of the
	// mailbox until the new frame fits.
	OverflowDropOldest OverflowPolicy = "drop_oldest"
)

// Config shapes one tunnel transport.
type Config struct {
	URLPath string
	// MaxEgressBytes caps the mailbox; 0 leaves it unbounded, which
	// matches the polling peer keeping up.
	MaxEgressBytes int
	Overflow       OverflowPolicy
}

func DefaultConfig() Config {
	return Config{
		URLPath:  "/",
		Overflow: OverflowReject,
	}
}

// Server is the HTTP-tunneled TLV transport. It holds one path
// registration in an externally-owned dispatcher and never owns the
// dispatcher itself.
type Server struct {
	mu       sync.Mutex
	listener *httplisten.Listener
	urlPath  string
	egress   [][]byte
	pending  int
	callback func(tlv.Packet)
	cfg      Config
	closed   bool
}

// NewServer registers a tunnel transport under cfg.URLPath on the
// given dispatcher. callback, when non-nil, runs for every packet
// decoded from a POST body.
func NewServer(listener *httplisten.Listener, cfg Config, callback func(tlv.Packet)) (*Server, error) {
	if cfg.URLPath == "" {
		cfg.URLPath = "/"
	}
	if cfg.Overflow == "" {
		cfg.Overflow = OverflowReject
	}
	s := &Server{
		listener: listener,
		urlPath:  cfg.URLPath,
		callback: callback,
		cfg:      cfg,
	}
	if err := listener.Register(cfg.URLPath, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Send queues the packet's wire bytes for the next GET. It never
// performs network I/O and never blocks on the peer.
func (s *Server) Send(p tlv.Packet) error {
	frame := p.Marshal()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.cfg.MaxEgressBytes > 0 && s.pending+len(frame) > s.cfg.MaxEgressBytes {
		if s.cfg.Overflow != OverflowDropOldest {
			return ErrEgressFull
		}
		for len(s.egress) > 0 && s.pending+len(frame) > s.cfg.MaxEgressBytes {
			dropped := s.egress[0]
			s.egress = s.egress[1:]
			s.pending -= len(dropped)
			log.Warn().
				Str("path", s.urlPath).
				Int("frame_bytes", len(dropped)).
				Msg("tunnel_egress_drop_oldest")
		}
		if s.pending+len(frame) > s.cfg.MaxEgressBytes {
			return ErrEgressFull
		}
	}
	s.egress = append(s.egress, frame)
	s.pending += len(frame)
	observability.SetTunnelEgressBytes(s.urlPath, s.pending)
	return nil
}

// PendingBytes returns the current egress mailbox size.
func (s *Server) PendingBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// URLPath returns the currently registered path.
func (s *Server) URLPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.urlPath
}

// HandleGet serves a poll: 200 with the entire egress mailbox as the
// body, then an empty mailbox. Invoked by the dispatcher.
func (s *Server) HandleGet(req *httplisten.Request) {
	if req.Path != s.URLPath() {
		return
	}

	body := s.drain()
	req.SendStatus(200)
	if _, err := req.Write(body); err != nil {
		log.Warn().Err(err).Str("path", req.Path).Msg("tunnel_get_write_failed")
	}
	observability.RecordTunnelRequest(req.Path, "GET", len(body))
}

// HandlePost serves a delivery: reads the declared body, answers 200
// with any queued egress (best effort), then decodes the body as one
// packet and hands it to the callback.
func (s *Server) HandlePost(req *httplisten.Request) {
	if req.Path != s.URLPath() {
		return
	}

	var body []byte
	var err error
	if n := req.ContentLength(); n >= 0 {
		body = make([]byte, n)
		_, err = io.ReadFull(req.Body, body)
	} else {
		body, err = io.ReadAll(req.Body)
	}
	if err != nil {
		log.Warn().Err(err).Str("path", req.Path).Msg("tunnel_post_body_failed")
		req.SendStatus(400)
		return
	}

	req.SendStatus(200)
	// Response delivery is best effort; a dead poller must not stop
	// the inbound packet from reaching the callback.
	if _, err := req.Write(s.drain()); err != nil {
		log.Warn().Err(err).Str("path", req.Path).Msg("tunnel_post_write_failed")
	}

	p, err := tlv.Decode(body)
	if err != nil {
		log.Warn().Err(err).Str("path", req.Path).Int("bytes", len(body)).Msg("tunnel_post_decode_failed")
		return
	}
	observability.RecordTunnelRequest(req.Path, "POST", len(body))
	if s.callback != nil {
		s.callback(p)
	}
}

// SetURLPath atomically moves the registration to a new path: the same
// handler pair answers on newPath and the old path falls back to the
// dispatcher default.
func (s *Server) SetURLPath(newPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if newPath == s.urlPath {
		return nil
	}
	if err := s.listener.Register(newPath, s); err != nil {
		return fmt.Errorf("tunnel: rebind %q: %w", newPath, err)
	}
	s.listener.Unregister(s.urlPath)
	s.urlPath = newPath
	return nil
}

// Close removes the path registration. The dispatcher keeps running;
// it was never this transport's to stop.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.listener.Unregister(s.urlPath)
	return nil
}

func (s *Server) drain() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	body := make([]byte, 0, s.pending)
	for _, frame := range s.egress {
		body = append(body, frame...)
	}
	s.egress = s.egress[:0]
	s.pending = 0
	observability.SetTunnelEgressBytes(s.urlPath, 0)
	return body
}
