package mqttsn

import (
	"fmt"
	"io"
)

// WilltopicreqPacket requests the client send its will topic; it carries
// nothing beyond the frame header.
type WilltopicreqPacket struct{}

func (p *WilltopicreqPacket) Type() uint8                        { return WILLTOPICREQ }
func (p *WilltopicreqPacket) Encode(dst []byte) ([]byte, error)   { return appendFrame(dst, WILLTOPICREQ, nil) }
func (p *WilltopicreqPacket) WriteTo(w io.Writer) (int64, error)  { return writeSelf(w, p) }

func decodeWilltopicreq(body []byte) (*WilltopicreqPacket, error) {
	if len(body) != 0 {
		return nil, fmt.Errorf("mqttsn: WILLTOPICREQ carries no body")
	}
	return &WilltopicreqPacket{}, nil
}

// WilltopicPacket carries the will topic and its publish flags.
type WilltopicPacket struct {
	Flags Flags
	Topic string
}

func (p *WilltopicPacket) Type() uint8 { return WILLTOPIC }

func (p *WilltopicPacket) Encode(dst []byte) ([]byte, error) {
	body := append([]byte{encodeFlags(p.Flags)}, p.Topic...)
	return appendFrame(dst, WILLTOPIC, body)
}

func (p *WilltopicPacket) WriteTo(w io.Writer) (int64, error) { return writeSelf(w, p) }

func decodeWilltopic(body []byte) (*WilltopicPacket, error) {
	if len(body) < 1 {
		return nil, fmt.Errorf("mqttsn: WILLTOPIC body too short")
	}
	return &WilltopicPacket{Flags: decodeFlags(body[0]), Topic: string(body[1:])}, nil
}

// WillmsgreqPacket requests the client send its will message.
type WillmsgreqPacket struct{}

func (p *WillmsgreqPacket) Type() uint8                       { return WILLMSGREQ }
func (p *WillmsgreqPacket) Encode(dst []byte) ([]byte, error) { return appendFrame(dst, WILLMSGREQ, nil) }
func (p *WillmsgreqPacket) WriteTo(w io.Writer) (int64, error) { return writeSelf(w, p) }

func decodeWillmsgreq(body []byte) (*WillmsgreqPacket, error) {
	if len(body) != 0 {
		return nil, fmt.Errorf("mqttsn: WILLMSGREQ carries no body")
	}
	return &WillmsgreqPacket{}, nil
}

// WillmsgPacket carries the will payload.
type WillmsgPacket struct {
	Message []byte
}

func (p *WillmsgPacket) Type() uint8 { return WILLMSG }

func (p *WillmsgPacket) Encode(dst []byte) ([]byte, error) {
	return appendFrame(dst, WILLMSG, p.Message)
}

func (p *WillmsgPacket) WriteTo(w io.Writer) (int64, error) { return writeSelf(w, p) }

func decodeWillmsg(body []byte) (*WillmsgPacket, error) {
	return &WillmsgPacket{Message: append([]byte(nil), body...)}, nil
}

// WilltopicupdPacket updates the will topic of an already-connected client.
type WilltopicupdPacket struct {
	Flags Flags
	Topic string
}

func (p *WilltopicupdPacket) Type() uint8 { return WILLTOPICUPD }

func (p *WilltopicupdPacket) Encode(dst []byte) ([]byte, error) {
	body := append([]byte{encodeFlags(p.Flags)}, p.Topic...)
	return appendFrame(dst, WILLTOPICUPD, body)
}

func (p *WilltopicupdPacket) WriteTo(w io.Writer) (int64, error) { return writeSelf(w, p) }

func decodeWilltopicupd(body []byte) (*WilltopicupdPacket, error) {
	if len(body) < 1 {
		return nil, fmt.Errorf("mqttsn: WILLTOPICUPD body too short")
	}
	return &WilltopicupdPacket{Flags: decodeFlags(body[0]), Topic: string(body[1:])}, nil
}

// WilltopicrespPacket acknowledges a WilltopicupdPacket.
type WilltopicrespPacket struct {
	ReturnCode uint8
}

func (p *WilltopicrespPacket) Type() uint8 { return WILLTOPICRESP }

func (p *WilltopicrespPacket) Encode(dst []byte) ([]byte, error) {
	return appendFrame(dst, WILLTOPICRESP, []byte{p.ReturnCode})
}

func (p *WilltopicrespPacket) WriteTo(w io.Writer) (int64, error) { return writeSelf(w, p) }

func decodeWilltopicresp(body []byte) (*WilltopicrespPacket, error) {
	if len(body) != 1 {
		return nil, fmt.Errorf("mqttsn: WILLTOPICRESP body must be 1 byte")
	}
	return &WilltopicrespPacket{ReturnCode: body[0]}, nil
}

// WillmsgupdPacket updates the will message of an already-connected client.
type WillmsgupdPacket struct {
	Message []byte
}

func (p *WillmsgupdPacket) Type() uint8 { return WILLMSGUPD }

func (p *WillmsgupdPacket) Encode(dst []byte) ([]byte, error) {
	return appendFrame(dst, WILLMSGUPD, p.Message)
}

func (p *WillmsgupdPacket) WriteTo(w io.Writer) (int64, error) { return writeSelf(w, p) }

func decodeWillmsgupd(body []byte) (*WillmsgupdPacket, error) {
	return &WillmsgupdPacket{Message: append([]byte(nil), body...)}, nil
}

// WillmsgrespPacket acknowledges a WillmsgupdPacket.
type WillmsgrespPacket struct {
	ReturnCode uint8
}

func (p *WillmsgrespPacket) Type() uint8 { return WILLMSGRESP }

func (p *WillmsgrespPacket) Encode(dst []byte) ([]byte, error) {
	return appendFrame(dst, WILLMSGRESP, []byte{p.ReturnCode})
}

func (p *WillmsgrespPacket) WriteTo(w io.Writer) (int64, error) { return writeSelf(w, p) }

func decodeWillmsgresp(body []byte) (*WillmsgrespPacket, error) {
	if len(body) != 1 {
		return nil, fmt.Errorf("mqttsn: WILLMSGRESP body must be 1 byte")
	}
	return &WillmsgrespPacket{ReturnCode: body[0]}, nil
}
