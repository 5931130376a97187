package tlv

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderLen is the fixed frame header size: type(4) || length(4).
const HeaderLen = 8

var (
	ErrShortHeader  = errors.New("tlv: short packet header")
	ErrShortPayload = errors.New("tlv: short packet payload")
)

// Packet is one complete wire message. Type is an opaque message kind
// this layer preserves bit-exactly and never interprets.
type Packet struct {
	Type    uint32
	Payload []byte
}

// New builds a packet from a type and payload. An empty payload is a
// valid zero-length frame.
func New(typ uint32, payload []byte) Packet {
	return Packet{Type: typ, Payload: payload}
}

// Marshal returns the exact wire form:
// type(4 bytes BE) || length(4 bytes BE) || payload(length bytes).
func (p Packet) Marshal() []byte {
	buf := make([]byte, HeaderLen+len(p.Payload))
	binary.BigEndian.PutUint32(buf[0:4], p.Type)
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(p.Payload)))
	copy(buf[HeaderLen:], p.Payload)
	return buf
}

// Len returns the serialized frame size.
func (p Packet) Len() int {
	return HeaderLen + len(p.Payload)
}

// Equal reports whether two packets carry the same type and payload.
func (p Packet) Equal(other Packet) bool {
	return p.Type == other.Type && bytes.Equal(p.Payload, other.Payload)
}

// Decode parses a buffer that already holds one complete frame.
func Decode(buf []byte) (Packet, error) {
	if len(buf) < HeaderLen {
		return Packet{}, fmt.Errorf("%w: got=%d need=%d", ErrShortHeader, len(buf), HeaderLen)
	}
	length := binary.BigEndian.Uint32(buf[4:8])
	if uint64(len(buf)-HeaderLen) < uint64(length) {
		return Packet{}, fmt.Errorf("%w: declared=%d have=%d", ErrShortPayload, length, len(buf)-HeaderLen)
	}
	payload := make([]byte, length)
	copy(payload, buf[HeaderLen:HeaderLen+int(length)])
	return Packet{
		Type:    binary.BigEndian.Uint32(buf[0:4]),
		Payload: payload,
	}, nil
}

// DecodeAll parses a buffer holding zero or more back-to-back frames,
// such as a drained egress mailbox. A truncated trailing frame is an
// error; an empty buffer decodes to an empty slice.
func DecodeAll(buf []byte) ([]Packet, error) {
	packets := make([]Packet, 0)
	for len(buf) > 0 {
		p, err := Decode(buf)
		if err != nil {
			return nil, err
		}
		packets = append(packets, p)
		buf = buf[p.Len():]
	}
	return packets, nil
}
