package mqttsn

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PublishPacket carries application data tagged to a 2-byte topic id (for
// TopicNormal/TopicPredefined) or a 2-character topic name (TopicShort).
// QoS -1 is valid here and only here: an unconnected client publishing
// without first completing CONNECT.
type PublishPacket struct {
	Flags Flags

	// TopicID holds the registered or predefined numeric topic id; ignored
	// when Flags.TopicIDType is TopicShort.
	TopicID uint16

	// ShortTopic holds the 2-character topic name; ignored unless
	// Flags.TopicIDType is TopicShort.
	ShortTopic string

	MessageID uint16
	Data      []byte
}

func (p *PublishPacket) Type() uint8 { return PUBLISH }

func (p *PublishPacket) Encode(dst []byte) ([]byte, error) {
	body := make([]byte, 0, 5+len(p.Data))
	body = append(body, encodeFlags(p.Flags))

	if p.Flags.TopicIDType != nil && *p.Flags.TopicIDType == TopicShort {
		if len(p.ShortTopic) != 2 {
			return nil, fmt.Errorf("mqttsn: PUBLISH short topic must be exactly 2 characters")
		}
		body = append(body, p.ShortTopic[0], p.ShortTopic[1])
	} else {
		body = binary.BigEndian.AppendUint16(body, p.TopicID)
	}

	body = binary.BigEndian.AppendUint16(body, p.MessageID)
	body = append(body, p.Data...)

	return appendFrame(dst, PUBLISH, body)
}

func (p *PublishPacket) WriteTo(w io.Writer) (int64, error) {
	body, err := p.Encode(nil)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(body)
	return int64(n), err
}

func decodePublish(body []byte) (*PublishPacket, error) {
	if len(body) < 5 {
		return nil, fmt.Errorf("mqttsn: PUBLISH body too short")
	}
	p := &PublishPacket{Flags: decodeFlags(body[0])}

	if p.Flags.TopicIDType != nil && *p.Flags.TopicIDType == TopicShort {
		p.ShortTopic = string(body[1:3])
	} else {
		p.TopicID = binary.BigEndian.Uint16(body[1:3])
	}

	p.MessageID = binary.BigEndian.Uint16(body[3:5])
	p.Data = append([]byte(nil), body[5:]...)
	return p, nil
}

// PubackPacket acknowledges a Publish with QoS 1 or 2.
type PubackPacket struct {
	TopicID    uint16
	MessageID  uint16
	ReturnCode uint8
}

func (p *PubackPacket) Type() uint8 { return PUBACK }

func (p *PubackPacket) Encode(dst []byte) ([]byte, error) {
	body := make([]byte, 0, 5)
	body = binary.BigEndian.AppendUint16(body, p.TopicID)
	body = binary.BigEndian.AppendUint16(body, p.MessageID)
	body = append(body, p.ReturnCode)
	return appendFrame(dst, PUBACK, body)
}

func (p *PubackPacket) WriteTo(w io.Writer) (int64, error) { return writeSelf(w, p) }

func decodePuback(body []byte) (*PubackPacket, error) {
	if len(body) != 5 {
		return nil, fmt.Errorf("mqttsn: PUBACK body must be 5 bytes")
	}
	return &PubackPacket{
		TopicID:    binary.BigEndian.Uint16(body[0:2]),
		MessageID:  binary.BigEndian.Uint16(body[2:4]),
		ReturnCode: body[4],
	}, nil
}

// encodeMsgIDOnly and decodeMsgIDOnly implement the shared body shape of
// Pubrec, Pubrel, and Pubcomp: a single 2-byte message id and nothing else.
func encodeMsgIDOnly(dst []byte, msgType uint8, id uint16) ([]byte, error) {
	body := binary.BigEndian.AppendUint16(nil, id)
	return appendFrame(dst, msgType, body)
}

func decodeMsgIDOnly(body []byte, msgType uint8) (uint16, error) {
	if len(body) != 2 {
		return 0, fmt.Errorf("mqttsn: %s body must be 2 bytes", Names[msgType])
	}
	return binary.BigEndian.Uint16(body), nil
}

// PubrecPacket is the QoS 2 publish-received acknowledgment.
type PubrecPacket struct{ MessageID uint16 }

func (p *PubrecPacket) Type() uint8                        { return PUBREC }
func (p *PubrecPacket) Encode(dst []byte) ([]byte, error)   { return encodeMsgIDOnly(dst, PUBREC, p.MessageID) }
func (p *PubrecPacket) WriteTo(w io.Writer) (int64, error)  { return writeSelf(w, p) }

func decodePubrec(body []byte) (*PubrecPacket, error) {
	id, err := decodeMsgIDOnly(body, PUBREC)
	if err != nil {
		return nil, err
	}
	return &PubrecPacket{MessageID: id}, nil
}

// PubrelPacket is the QoS 2 publish-release handshake step.
type PubrelPacket struct{ MessageID uint16 }

func (p *PubrelPacket) Type() uint8                       { return PUBREL }
func (p *PubrelPacket) Encode(dst []byte) ([]byte, error) { return encodeMsgIDOnly(dst, PUBREL, p.MessageID) }
func (p *PubrelPacket) WriteTo(w io.Writer) (int64, error) { return writeSelf(w, p) }

func decodePubrel(body []byte) (*PubrelPacket, error) {
	id, err := decodeMsgIDOnly(body, PUBREL)
	if err != nil {
		return nil, err
	}
	return &PubrelPacket{MessageID: id}, nil
}

// PubcompPacket completes the QoS 2 handshake.
type PubcompPacket struct{ MessageID uint16 }

func (p *PubcompPacket) Type() uint8                       { return PUBCOMP }
func (p *PubcompPacket) Encode(dst []byte) ([]byte, error) { return encodeMsgIDOnly(dst, PUBCOMP, p.MessageID) }
func (p *PubcompPacket) WriteTo(w io.Writer) (int64, error) { return writeSelf(w, p) }

func decodePubcomp(body []byte) (*PubcompPacket, error) {
	id, err := decodeMsgIDOnly(body, PUBCOMP)
	if err != nil {
		return nil, err
	}
	return &PubcompPacket{MessageID: id}, nil
}
