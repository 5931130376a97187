package tlv

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestMarshalDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		typ     uint32
		payload []byte
	}{
		{"empty payload", 0, nil},
		{"small", 1, []byte("PING")},
		{"max type", math.MaxUint32, []byte{0x00, 0xFF, 0x7F}},
		{"binary payload", 42, bytes.Repeat([]byte{0xAB}, 1024)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := New(tc.typ, tc.payload)
			wire := in.Marshal()
			if len(wire) != HeaderLen+len(tc.payload) {
				t.Fatalf("wire length: got=%d want=%d", len(wire), HeaderLen+len(tc.payload))
			}
			out, err := Decode(wire)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !out.Equal(in) {
				t.Fatalf("round trip mismatch: got=%+v want=%+v", out, in)
			}
		})
	}
}

func TestMarshalWireLayout(t *testing.T) {
	wire := New(0x01020304, []byte("HELLO")).Marshal()
	if got := binary.BigEndian.Uint32(wire[0:4]); got != 0x01020304 {
		t.Fatalf("type word: got=%#x", got)
	}
	if got := binary.BigEndian.Uint32(wire[4:8]); got != 5 {
		t.Fatalf("length word: got=%d", got)
	}
	if !bytes.Equal(wire[8:], []byte("HELLO")) {
		t.Fatalf("payload bytes: got=%q", wire[8:])
	}
}

func TestDecodeShortHeader(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	if !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}

func TestDecodeShortPayload(t *testing.T) {
	wire := New(7, []byte("TRUNCATED")).Marshal()
	_, err := Decode(wire[:len(wire)-2])
	if !errors.Is(err, ErrShortPayload) {
		t.Fatalf("expected ErrShortPayload, got %v", err)
	}
}

func TestDecodeAllBackToBackFrames(t *testing.T) {
	p1 := New(1, []byte("first"))
	p2 := New(2, nil)
	p3 := New(3, []byte("third"))
	buf := append(append(p1.Marshal(), p2.Marshal()...), p3.Marshal()...)

	packets, err := DecodeAll(buf)
	if err != nil {
		t.Fatalf("decode all: %v", err)
	}
	if len(packets) != 3 {
		t.Fatalf("packet count: got=%d want=3", len(packets))
	}
	for i, want := range []Packet{p1, p2, p3} {
		if !packets[i].Equal(want) {
			t.Fatalf("packet %d mismatch: got=%+v want=%+v", i, packets[i], want)
		}
	}
}

func TestDecodeAllEmptyBuffer(t *testing.T) {
	packets, err := DecodeAll(nil)
	if err != nil {
		t.Fatalf("decode all: %v", err)
	}
	if len(packets) != 0 {
		t.Fatalf("expected no packets, got %d", len(packets))
	}
}

func TestDecodeAllTruncatedTail(t *testing.T) {
	buf := append(New(1, []byte("ok")).Marshal(), 0x00, 0x00)
	_, err := DecodeAll(buf)
	if !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}

func TestDecodeDoesNotAliasInput(t *testing.T) {
	wire := New(9, []byte("mutable")).Marshal()
	p, err := Decode(wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	wire[HeaderLen] = 'X'
	if p.Payload[0] != 'm' {
		t.Fatalf("payload aliases the input buffer")
	}
}
