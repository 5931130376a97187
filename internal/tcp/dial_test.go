package tcp

import (
	"context"
	"math/rand"
	"net"
	"strings"
	"testing"
	"time"
)

func TestDialConnects(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			_ = conn.Close()
		}
	}()

	d := DefaultDialer()
	conn, err := d.Dial(context.Background(), ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	_ = conn.Close()
}

func TestDialErrorNamesEndpoint(t *testing.T) {
	d := Dialer{Timeout: 200 * time.Millisecond}
	_, err := d.Dial(context.Background(), "127.0.0.1:1")
	if err == nil {
		t.Fatalf("expected dial failure")
	}
	if !strings.Contains(err.Error(), "127.0.0.1:1") {
		t.Fatalf("error does not name endpoint: %v", err)
	}
}

func TestDialRetryStopsAtMaxAttempts(t *testing.T) {
	d := Dialer{
		Timeout:     100 * time.Millisecond,
		MaxAttempts: 2,
		Backoff:     BackoffConfig{InitialDelay: time.Millisecond, Multiplier: 1.0},
	}
	start := time.Now()
	_, err := d.DialRetry(context.Background(), "127.0.0.1:1")
	if err == nil {
		t.Fatalf("expected failure after retries")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("retry loop ran too long")
	}
}

func TestDialRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	d := Dialer{
		Timeout: 10 * time.Millisecond,
		Backoff: BackoffConfig{InitialDelay: time.Second, Multiplier: 1.0},
	}
	_, err := d.DialRetry(ctx, "127.0.0.1:1")
	if err == nil {
		t.Fatalf("expected context cancellation")
	}
}

func TestNextBackoffDelayGrowsAndCaps(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     500 * time.Millisecond,
	}

	if got := NextBackoffDelay(cfg, 1, nil); got != 100*time.Millisecond {
		t.Fatalf("attempt 1: %v", got)
	}
	if got := NextBackoffDelay(cfg, 2, nil); got != 200*time.Millisecond {
		t.Fatalf("attempt 2: %v", got)
	}
	if got := NextBackoffDelay(cfg, 10, nil); got != 500*time.Millisecond {
		t.Fatalf("attempt 10 should cap: %v", got)
	}
}

func TestNextBackoffDelayJitterBounds(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     time.Second,
		Jitter:       true,
	}
	rng := rand.New(rand.NewSource(1))
	for attempt := 2; attempt <= 6; attempt++ {
		base := NextBackoffDelay(BackoffConfig{
			InitialDelay: cfg.InitialDelay,
			Multiplier:   cfg.Multiplier,
			MaxDelay:     cfg.MaxDelay,
		}, attempt, nil)
		got := NextBackoffDelay(cfg, attempt, rng)
		if got < base/2 || got > base+base/2 {
			t.Fatalf("attempt %d jitter out of bounds: base=%v got=%v", attempt, base, got)
		}
	}
}
