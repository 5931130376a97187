package tlv

import (
	"encoding/binary"
	"fmt"
)

// Fields is an ordered group of TLV values sharing one buffer, used to
// build and pick apart composite packet payloads. Each value is framed
// exactly like a top-level packet, so a group round-trips through
// Marshal/Decode unchanged.
//
// Getters consume the first value of the requested type, so repeated
// values of one type read out in insertion order.
type Fields struct {
	buf []byte
}

// NewFields wraps a raw buffer of concatenated values. An empty buffer
// is a valid empty group.
func NewFields(buf []byte) *Fields {
	return &Fields{buf: buf}
}

// Buffer returns the group's current wire bytes.
func (f *Fields) Buffer() []byte {
	return f.buf
}

// Count returns the number of complete values in the group.
func (f *Fields) Count() int {
	count := 0
	for off := 0; off+HeaderLen <= len(f.buf); {
		length := binary.BigEndian.Uint32(f.buf[off+4 : off+8])
		next := off + HeaderLen + int(length)
		if next > len(f.buf) {
			break
		}
		count++
		off = next
	}
	return count
}

func (f *Fields) AddBytes(typ uint32, value []byte) {
	f.buf = append(f.buf, Packet{Type: typ, Payload: value}.Marshal()...)
}

func (f *Fields) AddString(typ uint32, value string) {
	f.AddBytes(typ, []byte(value))
}

func (f *Fields) AddUint16(typ uint32, value uint16) {
	v := make([]byte, 2)
	binary.BigEndian.PutUint16(v, value)
	f.AddBytes(typ, v)
}

func (f *Fields) AddUint32(typ uint32, value uint32) {
	v := make([]byte, 4)
	binary.BigEndian.PutUint32(v, value)
	f.AddBytes(typ, v)
}

func (f *Fields) AddUint64(typ uint32, value uint64) {
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, value)
	f.AddBytes(typ, v)
}

// AddGroup embeds a nested group as a single value.
func (f *Fields) AddGroup(typ uint32, group *Fields) {
	f.AddBytes(typ, group.Buffer())
}

// Bytes removes and returns the first value of the given type.
func (f *Fields) Bytes(typ uint32) ([]byte, bool) {
	for off := 0; off+HeaderLen <= len(f.buf); {
		curType := binary.BigEndian.Uint32(f.buf[off : off+4])
		length := binary.BigEndian.Uint32(f.buf[off+4 : off+8])
		next := off + HeaderLen + int(length)
		if next > len(f.buf) {
			return nil, false
		}
		if curType == typ {
			value := make([]byte, length)
			copy(value, f.buf[off+HeaderLen:next])
			f.buf = append(f.buf[:off:off], f.buf[next:]...)
			return value, true
		}
		off = next
	}
	return nil, false
}

func (f *Fields) String(typ uint32) (string, bool) {
	v, ok := f.Bytes(typ)
	if !ok {
		return "", false
	}
	return string(v), true
}

func (f *Fields) Uint16(typ uint32) (uint16, error) {
	v, ok := f.Bytes(typ)
	if !ok {
		return 0, fmt.Errorf("tlv: field %d not present", typ)
	}
	if len(v) != 2 {
		return 0, fmt.Errorf("tlv: field %d invalid u16 length: %d", typ, len(v))
	}
	return binary.BigEndian.Uint16(v), nil
}

func (f *Fields) Uint32(typ uint32) (uint32, error) {
	v, ok := f.Bytes(typ)
	if !ok {
		return 0, fmt.Errorf("tlv: field %d not present", typ)
	}
	if len(v) != 4 {
		return 0, fmt.Errorf("tlv: field %d invalid u32 length: %d", typ, len(v))
	}
	return binary.BigEndian.Uint32(v), nil
}

func (f *Fields) Uint64(typ uint32) (uint64, error) {
	v, ok := f.Bytes(typ)
	if !ok {
		return 0, fmt.Errorf("tlv: field %d not present", typ)
	}
	if len(v) != 8 {
		return 0, fmt.Errorf("tlv: field %d invalid u64 length: %d", typ, len(v))
	}
	return binary.BigEndian.Uint64(v), nil
}

// Group removes and returns the first value of the given type as a
// nested group.
func (f *Fields) Group(typ uint32) (*Fields, bool) {
	v, ok := f.Bytes(typ)
	if !ok {
		return nil, false
	}
	return NewFields(v), true
}

// Contains reports whether a value of the given type is present
// without consuming it.
func (f *Fields) Contains(typ uint32) bool {
	for off := 0; off+HeaderLen <= len(f.buf); {
		curType := binary.BigEndian.Uint32(f.buf[off : off+4])
		length := binary.BigEndian.Uint32(f.buf[off+4 : off+8])
		next := off + HeaderLen + int(length)
		if next > len(f.buf) {
			return false
		}
		if curType == typ {
			return true
		}
		off = next
	}
	return false
}
