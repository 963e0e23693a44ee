package mqttsn

import (
	"encoding/binary"
	"fmt"
	"io"
)

// RegisterPacket asks the peer to bind TopicName to TopicID, or (when sent
// by the gateway) informs the client of a binding it chose.
type RegisterPacket struct {
	TopicID   uint16
	MessageID uint16
	TopicName string
}

func (p *RegisterPacket) Type() uint8 { return REGISTER }

func (p *RegisterPacket) Encode(dst []byte) ([]byte, error) {
	body := make([]byte, 0, 4+len(p.TopicName))
	body = binary.BigEndian.AppendUint16(body, p.TopicID)
	body = binary.BigEndian.AppendUint16(body, p.MessageID)
	body = append(body, p.TopicName...)
	return appendFrame(dst, REGISTER, body)
}

func (p *RegisterPacket) WriteTo(w io.Writer) (int64, error) { return writeSelf(w, p) }

func decodeRegister(body []byte) (*RegisterPacket, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("mqttsn: REGISTER body too short")
	}
	return &RegisterPacket{
		TopicID:   binary.BigEndian.Uint16(body[0:2]),
		MessageID: binary.BigEndian.Uint16(body[2:4]),
		TopicName: string(body[4:]),
	}, nil
}

// RegackPacket acknowledges a Register.
type RegackPacket struct {
	TopicID    uint16
	MessageID  uint16
	ReturnCode uint8
}

func (p *RegackPacket) Type() uint8 { return REGACK }

func (p *RegackPacket) Encode(dst []byte) ([]byte, error) {
	body := make([]byte, 0, 5)
	body = binary.BigEndian.AppendUint16(body, p.TopicID)
	body = binary.BigEndian.AppendUint16(body, p.MessageID)
	body = append(body, p.ReturnCode)
	return appendFrame(dst, REGACK, body)
}

func (p *RegackPacket) WriteTo(w io.Writer) (int64, error) { return writeSelf(w, p) }

func decodeRegack(body []byte) (*RegackPacket, error) {
	if len(body) != 5 {
		return nil, fmt.Errorf("mqttsn: REGACK body must be 5 bytes")
	}
	return &RegackPacket{
		TopicID:    binary.BigEndian.Uint16(body[0:2]),
		MessageID:  binary.BigEndian.Uint16(body[2:4]),
		ReturnCode: body[4],
	}, nil
}
