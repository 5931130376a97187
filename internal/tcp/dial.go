// Package tcp owns connection establishment for the framed transport.
// The transport package takes an already-connected socket; this is
// where the socket comes from.
package tcp

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/rs/zerolog/log"
)

// Dialer dials controller endpoints with a connect timeout and
// optional retry backoff.
type Dialer struct {
	Timeout     time.Duration
	MaxAttempts int
	Backoff     BackoffConfig
}

func DefaultDialer() Dialer {
	return Dialer{
		Timeout: 10 * time.Second,
		Backoff: DefaultBackoffConfig(),
	}
}

// Dial makes a single connection attempt.
func (d Dialer) Dial(ctx context.Context, addr string) (net.Conn, error) {
	nd := net.Dialer{Timeout: d.Timeout}
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp: connect %s: %w", addr, err)
	}
	return conn, nil
}

// DialRetry dials until a connection succeeds, the context ends, or
// MaxAttempts is exhausted (0 retries forever).
func (d Dialer) DialRetry(ctx context.Context, addr string) (net.Conn, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var attempt int
	for {
		attempt++
		conn, err := d.Dial(ctx, addr)
		if err == nil {
			return conn, nil
		}
		log.Warn().Int("attempt", attempt).Str("addr", addr).Err(err).Msg("tcp_dial_retry")
		if d.MaxAttempts > 0 && attempt >= d.MaxAttempts {
			return nil, err
		}

		timer := time.NewTimer(NextBackoffDelay(d.Backoff, attempt, rng))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
