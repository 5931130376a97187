// Package transport frames TLV packets over a connected stream
// socket. Stream sockets deliver and accept bytes in arbitrary chunk
// sizes, so every frame carries a self-describing 8-byte header and
// every read/write loops until the frame boundary is reached.
package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/danmuck/tlvctl/internal/protocol/tlv"
)

var (
	ErrNotConnected  = errors.New("transport: socket is not connected")
	ErrFrameTooLarge = errors.New("transport: frame exceeds size limit")
	ErrBadSize       = errors.New("transport: negative read size")
)

// probeWindow bounds how long a non-blocking Read waits for the first
// header bytes. Long enough for the poller to surface queued bytes,
// short enough that an empty socket does not stall the caller.
const probeWindow = time.Millisecond

// Config carries per-client I/O deadlines and limits. Zero values mean
// block forever and accept any frame length, which is the default for
// command channels.
type Config struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MaxFrameBytes caps the payload length a peer may declare in a
	// frame header. 0 means no cap.
	MaxFrameBytes uint32
}

func DefaultConfig() Config {
	return Config{}
}

// Client frames TLV packets over one connected stream socket. It owns
// the socket for its lifetime; dialing belongs to the tcp package.
//
// A Client is single-goroutine: Send and Read must not run
// concurrently. Close may be called from another goroutine to unblock
// a pending Read, which then fails with a connection error.
type Client struct {
	conn net.Conn
	cfg  Config

	// Header bytes picked up by a non-blocking probe that did not
	// deliver a full frame yet. Carried across Read calls so a short
	// probe cannot shift the frame boundary.
	hdr    [tlv.HeaderLen]byte
	hdrLen int
}

// NewClient wraps an already-connected stream socket.
func NewClient(conn net.Conn, cfg Config) *Client {
	return &Client{conn: conn, cfg: cfg}
}

// Send serializes the packet and writes the full frame.
func (c *Client) Send(p tlv.Packet) error {
	return c.SendRaw(p.Marshal())
}

// SendRaw writes data fully, looping over partial and would-block
// writes until every byte is accepted.
func (c *Client) SendRaw(data []byte) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	if c.cfg.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
		defer func() { _ = c.conn.SetWriteDeadline(time.Time{}) }()
	}
	for len(data) > 0 {
		n, err := c.conn.Write(data)
		data = data[n:]
		if err != nil {
			if wouldBlock(err) {
				continue
			}
			return fmt.Errorf("transport: write: %w", err)
		}
	}
	return nil
}

// Read returns the next packet from the socket.
//
// With block=true the call waits until a full frame arrives. With
// block=false the initial type read is a non-blocking probe: when the
// socket has no bytes queued the call returns (nil, nil) immediately
// and consumes nothing. Once any header bytes are in, the remainder of
// the frame is read blocking: the 4-byte length, then exactly length
// payload bytes, looping over partial reads.
func (c *Client) Read(block bool) (*tlv.Packet, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	if !block && c.hdrLen == 0 {
		// A short future deadline turns the first type read into a
		// poll of the receive queue. A deadline already in the past
		// would fail the read before draining queued bytes.
		_ = c.conn.SetReadDeadline(time.Now().Add(probeWindow))
		n, err := c.conn.Read(c.hdr[:4])
		c.hdrLen = n
		_ = c.conn.SetReadDeadline(time.Time{})
		if err != nil && c.hdrLen == 0 {
			if isTimeout(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("transport: read type: %w", err)
		}
	}

	if c.cfg.ReadTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		defer func() { _ = c.conn.SetReadDeadline(time.Time{}) }()
	}

	for c.hdrLen < tlv.HeaderLen {
		n, err := c.conn.Read(c.hdr[c.hdrLen:tlv.HeaderLen])
		c.hdrLen += n
		if err != nil {
			if wouldBlock(err) {
				continue
			}
			return nil, fmt.Errorf("transport: read header: %w", err)
		}
	}

	length := binary.BigEndian.Uint32(c.hdr[4:8])
	if c.cfg.MaxFrameBytes > 0 && length > c.cfg.MaxFrameBytes {
		return nil, fmt.Errorf("%w: header declares %d bytes, limit %d",
			ErrFrameTooLarge, length, c.cfg.MaxFrameBytes)
	}
	payload := make([]byte, length)
	for read := 0; read < int(length); {
		n, err := c.conn.Read(payload[read:])
		read += n
		if err != nil {
			if wouldBlock(err) {
				continue
			}
			return nil, fmt.Errorf("transport: read payload: %w", err)
		}
	}

	typ := binary.BigEndian.Uint32(c.hdr[0:4])
	c.hdrLen = 0
	return &tlv.Packet{Type: typ, Payload: payload}, nil
}

// ReadRaw performs a single read of up to size bytes with no framing
// and no partial-read looping.
func (c *Client) ReadRaw(size int) ([]byte, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	buf := make([]byte, size)
	n, err := c.conn.Read(buf)
	if n == 0 && err != nil {
		return nil, fmt.Errorf("transport: read: %w", err)
	}
	return buf[:n], nil
}

// Close closes the underlying socket. A second Close, or a Close on a
// client that never held a socket, fails with ErrNotConnected.
func (c *Client) Close() error {
	if c.conn == nil {
		return ErrNotConnected
	}
	err := c.conn.Close()
	c.conn = nil
	if err != nil {
		return fmt.Errorf("transport: close: %w", err)
	}
	return nil
}

func wouldBlock(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
