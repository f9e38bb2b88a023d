package crtp

import (
	"errors"
	"fmt"
)

// Port is the CRTP port (4 bits) a packet is addressed to
type Port uint8

// Channel is the CRTP channel (2 bits) within a port
type Channel uint8

const (
	PortConsole Port = 0x0
	PortParam   Port = 0x2
	PortLog     Port = 0x5
	PortLink    Port = 0xf
)

// MaxPayload is the largest data section a single CRTP packet can carry
const MaxPayload = 30

// nullHeader is the header-only packet sent to poll the downlink
const nullHeader = 0xff

var (
	ErrEmptyPacket   = errors.New("crtp: empty packet")
	ErrPayloadTooBig = errors.New("crtp: payload exceeds 30 bytes")
)

// Packet is one CRTP message, header decoded
type Packet struct {
	Port    Port
	Channel Channel
	Data    []byte
}

func NewPacket(port Port, channel Channel, data ...byte) Packet {
	return Packet{Port: port, Channel: channel, Data: data}
}

// Header packs port and channel, keeping the two legacy link bits set
func (p Packet) Header() byte {
	return byte(p.Port&0x0f)<<4 | 0x3<<2 | byte(p.Channel&0x03)
}

// Bytes returns the on-air representation of the packet
func (p Packet) Bytes() ([]byte, error) {
	if len(p.Data) > MaxPayload {
		return nil, ErrPayloadTooBig
	}
	b := make([]byte, 1+len(p.Data))
	b[0] = p.Header()
	copy(b[1:], p.Data)
	return b, nil
}

// IsNull reports whether p is an empty link-port keepalive
func (p Packet) IsNull() bool {
	return p.Port == PortLink && p.Channel == 0x3 && len(p.Data) == 0
}

func (p Packet) String() string {
	return fmt.Sprintf("crtp(port=%d ch=%d len=%d)", p.Port, p.Channel, len(p.Data))
}

// ParsePacket decodes raw bytes received from a link
func ParsePacket(b []byte) (Packet, error) {
	if len(b) == 0 {
		return Packet{}, ErrEmptyPacket
	}
	if len(b)-1 > MaxPayload {
		return Packet{}, ErrPayloadTooBig
	}
	data := make([]byte, len(b)-1)
	copy(data, b[1:])
	return Packet{
		Port:    Port(b[0] >> 4),
		Channel: Channel(b[0] & 0x03),
		Data:    data,
	}, nil
}
