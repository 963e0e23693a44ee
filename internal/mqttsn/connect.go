package mqttsn

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ConnectPacket opens an MQTT-SN session. Only the Will and CleanSession
// bits of Flags apply here; QoS and topic-id-type are meaningless and left
// zero.
type ConnectPacket struct {
	Flags      Flags
	ProtocolID uint8
	Duration   uint16
	ClientID   string
}

func (p *ConnectPacket) Type() uint8 { return CONNECT }

func (p *ConnectPacket) Encode(dst []byte) ([]byte, error) {
	if p.ClientID == "" {
		return nil, fmt.Errorf("mqttsn: CONNECT requires a non-empty client id")
	}
	protocolID := p.ProtocolID
	if protocolID == 0 {
		protocolID = ProtocolID
	}

	body := make([]byte, 0, 4+len(p.ClientID))
	body = append(body, encodeFlags(p.Flags), protocolID)
	body = binary.BigEndian.AppendUint16(body, p.Duration)
	body = append(body, p.ClientID...)
	return appendFrame(dst, CONNECT, body)
}

func (p *ConnectPacket) WriteTo(w io.Writer) (int64, error) { return writeSelf(w, p) }

func decodeConnect(body []byte) (*ConnectPacket, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("mqttsn: CONNECT body too short")
	}
	if body[1] != ProtocolID {
		return nil, fmt.Errorf("mqttsn: CONNECT unsupported protocol id 0x%02x", body[1])
	}
	return &ConnectPacket{
		Flags:      decodeFlags(body[0]),
		ProtocolID: body[1],
		Duration:   binary.BigEndian.Uint16(body[2:4]),
		ClientID:   string(body[4:]),
	}, nil
}

// ConnackPacket acknowledges a Connect.
type ConnackPacket struct {
	ReturnCode uint8
}

func (p *ConnackPacket) Type() uint8 { return CONNACK }

func (p *ConnackPacket) Encode(dst []byte) ([]byte, error) {
	return appendFrame(dst, CONNACK, []byte{p.ReturnCode})
}

func (p *ConnackPacket) WriteTo(w io.Writer) (int64, error) { return writeSelf(w, p) }

func decodeConnack(body []byte) (*ConnackPacket, error) {
	if len(body) != 1 {
		return nil, fmt.Errorf("mqttsn: CONNACK body must be 1 byte")
	}
	return &ConnackPacket{ReturnCode: body[0]}, nil
}
