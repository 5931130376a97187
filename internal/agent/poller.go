package agent

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/tlvctl/internal/observability"
	"github.com/danmuck/tlvctl/internal/protocol/tlv"
)

// runHTTP polls the controller's tunnel path: GET drains queued
// commands, POST delivers one reply per request. A POST response body
// may itself carry queued frames, which feed back into the same
// handling path.
func (s *Service) runHTTP(ctx context.Context) error {
	client := &http.Client{Timeout: s.cfg.HTTPTimeout}
	lastHeartbeat := time.Now()
	outbound := make([]tlv.Packet, 0)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.cfg.PollInterval):
		}

		inbound, err := s.pollOnce(ctx, client)
		if err != nil {
			log.Warn().Err(err).Str("url", s.cfg.ControllerURL).Msg("agent_poll_failed")
			continue
		}
		for _, p := range inbound {
			observability.RecordPacketReceived("http")
			outbound = append(outbound, s.Handle(p)...)
		}

		if s.cfg.HeartbeatInterval > 0 && time.Since(lastHeartbeat) >= s.cfg.HeartbeatInterval {
			outbound = append(outbound, s.heartbeat())
			lastHeartbeat = time.Now()
		}

		// Flush one batch; replies decoded out of POST responses wait
		// for the next cycle so a chatty controller cannot pin the
		// loop inside one iteration.
		batch := outbound
		outbound = nil
		for _, p := range batch {
			extra, err := s.deliverOnce(ctx, client, p)
			if err != nil {
				log.Warn().Err(err).Str("url", s.cfg.ControllerURL).Msg("agent_deliver_failed")
				outbound = append(outbound, p)
				break
			}
			observability.RecordPacketSent("http")
			for _, in := range extra {
				observability.RecordPacketReceived("http")
				outbound = append(outbound, s.Handle(in)...)
			}
		}
	}
}

func (s *Service) pollOnce(ctx context.Context, client *http.Client) ([]tlv.Packet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.ControllerURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent: poll status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return tlv.DecodeAll(body)
}

func (s *Service) deliverOnce(ctx context.Context, client *http.Client, p tlv.Packet) ([]tlv.Packet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.ControllerURL, bytes.NewReader(p.Marshal()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent: deliver status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return tlv.DecodeAll(body)
}
