// Package fpsensor speaks the framed UART protocol of R30x style fingerprint
// sensors.
//
// Every packet on the wire looks like
//
//	[0xEF 0x01] [address:4] [type:1] [length:2 BE] [content: length-2] [checksum:2 BE]
//
// where length counts the content plus the checksum and the checksum is
// (type + length + sum(content)) mod 65536. For command packets the first
// content byte is the instruction code, for acknowledge packets it is the
// confirmation code.
package fpsensor

import (
	"encoding/binary"
	"fmt"
)

const (
	Magic          uint16 = 0xEF01
	DefaultAddress uint32 = 0xFFFFFFFF

	// magic + address + type + length
	HeaderSize   = 9
	ChecksumSize = 2
	// smallest legal length field: one content byte plus the checksum
	MinLength = 1 + ChecksumSize
	// payload bytes that still fit into a command packet's length field
	MaxCommandPayload = 0xFFFF - 1 - ChecksumSize
)

type PacketType byte

const (
	PacketCommand PacketType = 0x01
	PacketData    PacketType = 0x02
	PacketAck     PacketType = 0x07
	PacketEnd     PacketType = 0x08
)

func (t PacketType) String() string {
	switch t {
	case PacketCommand:
		return "command"
	case PacketData:
		return "data"
	case PacketAck:
		return "ack"
	case PacketEnd:
		return "end"
	default:
		return fmt.Sprintf("type(0x%02x)", byte(t))
	}
}

// Frame is one decoded packet. Content excludes the trailing checksum.
type Frame struct {
	Address  uint32
	Type     PacketType
	Content  []byte
	Checksum uint16
}

// Confirmation returns the first content byte, which the sensor uses as
// status code in acknowledge packets.
func (f Frame) Confirmation() byte {
	if len(f.Content) == 0 {
		return 0xFF
	}
	return f.Content[0]
}

// Checksum sums the packet type, the length field taken as an integer and
// every content byte, truncated to 16 bits.
func Checksum(t PacketType, length uint16, content []byte) uint16 {
	sum := uint32(t) + uint32(length)
	for _, b := range content {
		sum += uint32(b)
	}
	return uint16(sum & 0xFFFF)
}

// EncodePacket frames arbitrary content. The length field is len(content)+2.
func EncodePacket(address uint32, t PacketType, content []byte) ([]byte, error) {
	if len(content)+ChecksumSize > 0xFFFF {
		return nil, fmt.Errorf("%w: %d content bytes", ErrPayloadTooLarge, len(content))
	}
	length := uint16(len(content) + ChecksumSize)
	packet := make([]byte, HeaderSize+len(content)+ChecksumSize)
	binary.BigEndian.PutUint16(packet[0:2], Magic)
	binary.BigEndian.PutUint32(packet[2:6], address)
	packet[6] = byte(t)
	binary.BigEndian.PutUint16(packet[7:9], length)
	copy(packet[HeaderSize:], content)
	binary.BigEndian.PutUint16(packet[len(packet)-ChecksumSize:], Checksum(t, length, content))
	return packet, nil
}

// Encode builds a command packet: instruction code followed by its arguments.
func Encode(address uint32, cmd byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxCommandPayload {
		return nil, fmt.Errorf("%w: %d payload bytes", ErrPayloadTooLarge, len(payload))
	}
	content := make([]byte, 0, 1+len(payload))
	content = append(content, cmd)
	content = append(content, payload...)
	return EncodePacket(address, PacketCommand, content)
}

// ParseFrame validates a complete packet held in memory: magic, address,
// length field against the actual size, and checksum.
func ParseFrame(b []byte, address uint32) (Frame, error) {
	if len(b) < HeaderSize+MinLength {
		return Frame{}, fmt.Errorf("%w: short packet (%d bytes)", ErrMalformed, len(b))
	}
	if binary.BigEndian.Uint16(b[0:2]) != Magic {
		return Frame{}, fmt.Errorf("%w: bad magic %02x%02x", ErrMalformed, b[0], b[1])
	}
	f := Frame{
		Address: binary.BigEndian.Uint32(b[2:6]),
		Type:    PacketType(b[6]),
	}
	if f.Address != address {
		return Frame{}, fmt.Errorf("%w: address %08x, expected %08x", ErrMalformed, f.Address, address)
	}
	length := binary.BigEndian.Uint16(b[7:9])
	if int(length) != len(b)-HeaderSize || length < MinLength {
		return Frame{}, fmt.Errorf("%w: length field %d for %d byte body", ErrMalformed, length, len(b)-HeaderSize)
	}
	return parseBody(f, length, b[HeaderSize:])
}

func parseBody(f Frame, length uint16, body []byte) (Frame, error) {
	content := body[:len(body)-ChecksumSize]
	f.Checksum = binary.BigEndian.Uint16(body[len(body)-ChecksumSize:])
	if want := Checksum(f.Type, length, content); want != f.Checksum {
		return Frame{}, fmt.Errorf("%w: checksum %04x, computed %04x", ErrMalformed, f.Checksum, want)
	}
	f.Content = make([]byte, len(content))
	copy(f.Content, content)
	return f, nil
}
