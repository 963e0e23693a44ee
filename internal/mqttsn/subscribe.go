package mqttsn

import (
	"encoding/binary"
	"fmt"
	"io"
)

// SubscribePacket requests delivery of messages under a topic, named one of
// three ways depending on Flags.TopicIDType: TopicName (TopicNormal),
// TopicID (TopicPredefined), or ShortTopic (TopicShort).
type SubscribePacket struct {
	Flags     Flags
	MessageID uint16
	TopicName string
	TopicID   uint16
	ShortTopic string
}

func (p *SubscribePacket) Type() uint8 { return SUBSCRIBE }

func (p *SubscribePacket) Encode(dst []byte) ([]byte, error) {
	body, err := encodeTopicRef(p.Flags, p.MessageID, p.TopicName, p.TopicID, p.ShortTopic)
	if err != nil {
		return nil, err
	}
	return appendFrame(dst, SUBSCRIBE, body)
}

func (p *SubscribePacket) WriteTo(w io.Writer) (int64, error) { return writeSelf(w, p) }

func decodeSubscribe(body []byte) (*SubscribePacket, error) {
	p := &SubscribePacket{}
	if err := decodeTopicRef(body, &p.Flags, &p.MessageID, &p.TopicName, &p.TopicID, &p.ShortTopic); err != nil {
		return nil, fmt.Errorf("mqttsn: SUBSCRIBE: %w", err)
	}
	return p, nil
}

// SubackPacket acknowledges a Subscribe, carrying the topic id the gateway
// assigned (meaningful for TopicNormal subscriptions).
type SubackPacket struct {
	Flags      Flags
	TopicID    uint16
	MessageID  uint16
	ReturnCode uint8
}

func (p *SubackPacket) Type() uint8 { return SUBACK }

func (p *SubackPacket) Encode(dst []byte) ([]byte, error) {
	body := make([]byte, 0, 6)
	body = append(body, encodeFlags(p.Flags))
	body = binary.BigEndian.AppendUint16(body, p.TopicID)
	body = binary.BigEndian.AppendUint16(body, p.MessageID)
	body = append(body, p.ReturnCode)
	return appendFrame(dst, SUBACK, body)
}

func (p *SubackPacket) WriteTo(w io.Writer) (int64, error) { return writeSelf(w, p) }

func decodeSuback(body []byte) (*SubackPacket, error) {
	if len(body) != 6 {
		return nil, fmt.Errorf("mqttsn: SUBACK body must be 6 bytes")
	}
	return &SubackPacket{
		Flags:      decodeFlags(body[0]),
		TopicID:    binary.BigEndian.Uint16(body[1:3]),
		MessageID:  binary.BigEndian.Uint16(body[3:5]),
		ReturnCode: body[5],
	}, nil
}

// UnsubscribePacket cancels a prior Subscribe; same topic-reference shape.
type UnsubscribePacket struct {
	Flags      Flags
	MessageID  uint16
	TopicName  string
	TopicID    uint16
	ShortTopic string
}

func (p *UnsubscribePacket) Type() uint8 { return UNSUBSCRIBE }

func (p *UnsubscribePacket) Encode(dst []byte) ([]byte, error) {
	body, err := encodeTopicRef(p.Flags, p.MessageID, p.TopicName, p.TopicID, p.ShortTopic)
	if err != nil {
		return nil, err
	}
	return appendFrame(dst, UNSUBSCRIBE, body)
}

func (p *UnsubscribePacket) WriteTo(w io.Writer) (int64, error) { return writeSelf(w, p) }

func decodeUnsubscribe(body []byte) (*UnsubscribePacket, error) {
	p := &UnsubscribePacket{}
	if err := decodeTopicRef(body, &p.Flags, &p.MessageID, &p.TopicName, &p.TopicID, &p.ShortTopic); err != nil {
		return nil, fmt.Errorf("mqttsn: UNSUBSCRIBE: %w", err)
	}
	return p, nil
}

// UnsubackPacket acknowledges an Unsubscribe.
type UnsubackPacket struct {
	MessageID uint16
}

func (p *UnsubackPacket) Type() uint8 { return UNSUBACK }

func (p *UnsubackPacket) Encode(dst []byte) ([]byte, error) {
	return encodeMsgIDOnly(dst, UNSUBACK, p.MessageID)
}

func (p *UnsubackPacket) WriteTo(w io.Writer) (int64, error) { return writeSelf(w, p) }

func decodeUnsuback(body []byte) (*UnsubackPacket, error) {
	id, err := decodeMsgIDOnly(body, UNSUBACK)
	if err != nil {
		return nil, err
	}
	return &UnsubackPacket{MessageID: id}, nil
}

// encodeTopicRef serializes the flags byte, message id, and the topic
// reference selected by flags.TopicIDType: a variable-length name
// (TopicNormal), a 2-byte id (TopicPredefined), or a 2-character short name
// (TopicShort). A reserved (nil) topic-id-type falls back to the name form.
func encodeTopicRef(flags Flags, msgID uint16, topicName string, topicID uint16, shortTopic string) ([]byte, error) {
	body := make([]byte, 0, 5+len(topicName))
	body = append(body, encodeFlags(flags))
	body = binary.BigEndian.AppendUint16(body, msgID)

	switch {
	case flags.TopicIDType != nil && *flags.TopicIDType == TopicPredefined:
		body = binary.BigEndian.AppendUint16(body, topicID)
	case flags.TopicIDType != nil && *flags.TopicIDType == TopicShort:
		if len(shortTopic) != 2 {
			return nil, fmt.Errorf("short topic must be exactly 2 characters")
		}
		body = append(body, shortTopic[0], shortTopic[1])
	default:
		body = append(body, topicName...)
	}
	return body, nil
}

func decodeTopicRef(body []byte, flags *Flags, msgID *uint16, topicName *string, topicID *uint16, shortTopic *string) error {
	if len(body) < 3 {
		return fmt.Errorf("body too short")
	}
	*flags = decodeFlags(body[0])
	*msgID = binary.BigEndian.Uint16(body[1:3])
	rest := body[3:]

	switch {
	case flags.TopicIDType != nil && *flags.TopicIDType == TopicPredefined:
		if len(rest) != 2 {
			return fmt.Errorf("predefined topic id must be 2 bytes")
		}
		*topicID = binary.BigEndian.Uint16(rest)
	case flags.TopicIDType != nil && *flags.TopicIDType == TopicShort:
		if len(rest) != 2 {
			return fmt.Errorf("short topic must be 2 bytes")
		}
		*shortTopic = string(rest)
	default:
		*topicName = string(rest)
	}
	return nil
}
