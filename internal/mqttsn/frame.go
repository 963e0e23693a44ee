package mqttsn

import (
	"encoding/binary"
	"fmt"
	"io"
)

// appendFrame writes the length header, msgType, and body to dst. The
// length counts itself and the type octet too, so a frame of at most 255
// bytes (a body of up to 253 bytes) uses the 1-byte length form, and a body
// of 254 bytes or more uses the 3-byte form (0x01, 16-bit big-endian total
// length).
func appendFrame(dst []byte, msgType uint8, body []byte) ([]byte, error) {
	if len(body) > MaxBodySize {
		return nil, fmt.Errorf("mqttsn: body of %d bytes exceeds maximum %d", len(body), MaxBodySize)
	}

	total := 1 + 1 + len(body) // 1-byte length field + type + body
	if total <= 255 {
		dst = append(dst, byte(total), msgType)
		return append(dst, body...), nil
	}

	total = 3 + 1 + len(body) // 3-byte length field + type + body
	dst = append(dst, 0x01, byte(total>>8), byte(total))
	dst = append(dst, msgType)
	return append(dst, body...), nil
}

// writeFrame frames body with appendFrame into a small buffer, then writes
// it to w in one call.
func writeFrame(w io.Writer, msgType uint8, body []byte) (int64, error) {
	buf, err := appendFrame(make([]byte, 0, len(body)+4), msgType, body)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(buf)
	return int64(n), err
}

// decoder parses a packet body given its message type.
type decoder func(body []byte) (Packet, error)

var decoders = map[uint8]decoder{
	ADVERTISE:     func(b []byte) (Packet, error) { return decodeAdvertise(b) },
	SEARCHGW:      func(b []byte) (Packet, error) { return decodeSearchgw(b) },
	GWINFO:        func(b []byte) (Packet, error) { return decodeGwinfo(b) },
	CONNECT:       func(b []byte) (Packet, error) { return decodeConnect(b) },
	CONNACK:       func(b []byte) (Packet, error) { return decodeConnack(b) },
	WILLTOPICREQ:  func(b []byte) (Packet, error) { return decodeWilltopicreq(b) },
	WILLTOPIC:     func(b []byte) (Packet, error) { return decodeWilltopic(b) },
	WILLMSGREQ:    func(b []byte) (Packet, error) { return decodeWillmsgreq(b) },
	WILLMSG:       func(b []byte) (Packet, error) { return decodeWillmsg(b) },
	REGISTER:      func(b []byte) (Packet, error) { return decodeRegister(b) },
	REGACK:        func(b []byte) (Packet, error) { return decodeRegack(b) },
	PUBLISH:       func(b []byte) (Packet, error) { return decodePublish(b) },
	PUBACK:        func(b []byte) (Packet, error) { return decodePuback(b) },
	PUBCOMP:       func(b []byte) (Packet, error) { return decodePubcomp(b) },
	PUBREC:        func(b []byte) (Packet, error) { return decodePubrec(b) },
	PUBREL:        func(b []byte) (Packet, error) { return decodePubrel(b) },
	SUBSCRIBE:     func(b []byte) (Packet, error) { return decodeSubscribe(b) },
	SUBACK:        func(b []byte) (Packet, error) { return decodeSuback(b) },
	UNSUBSCRIBE:   func(b []byte) (Packet, error) { return decodeUnsubscribe(b) },
	UNSUBACK:      func(b []byte) (Packet, error) { return decodeUnsuback(b) },
	PINGREQ:       func(b []byte) (Packet, error) { return decodePingreq(b) },
	PINGRESP:      func(b []byte) (Packet, error) { return decodePingresp(b) },
	DISCONNECT:    func(b []byte) (Packet, error) { return decodeDisconnect(b) },
	WILLTOPICUPD:  func(b []byte) (Packet, error) { return decodeWilltopicupd(b) },
	WILLTOPICRESP: func(b []byte) (Packet, error) { return decodeWilltopicresp(b) },
	WILLMSGUPD:    func(b []byte) (Packet, error) { return decodeWillmsgupd(b) },
	WILLMSGRESP:   func(b []byte) (Packet, error) { return decodeWillmsgresp(b) },
}

// Parse decodes one complete framed packet held entirely in buf, one
// datagram's worth: MQTT-SN runs over a message-oriented transport (UDP,
// a single ZigBee frame, ...) where the length header is already redundant
// with the transport's own framing, so any byte beyond what the header
// declares means the datagram is corrupt rather than that another packet
// follows.
func Parse(buf []byte) (Packet, int, error) {
	if len(buf) < 2 {
		return nil, 0, fmt.Errorf("mqttsn: buffer too short for length header")
	}

	headerLen := 1
	total := int(buf[0])
	if buf[0] == 0x01 {
		if len(buf) < 4 {
			return nil, 0, fmt.Errorf("mqttsn: buffer too short for 3-byte length header")
		}
		headerLen = 3
		total = int(binary.BigEndian.Uint16(buf[1:3]))
	}
	if total < headerLen+1 {
		return nil, 0, fmt.Errorf("mqttsn: invalid total length %d", total)
	}
	if len(buf) != total {
		return nil, 0, fmt.Errorf("Length of packet is not the same as the length header")
	}

	msgType := buf[headerLen]
	body := buf[headerLen+1 : total]

	dec, ok := decoders[msgType]
	if !ok {
		return nil, 0, fmt.Errorf("mqttsn: unknown message type 0x%02x", msgType)
	}
	pkt, err := dec(body)
	return pkt, total, err
}

// ReadPacket reads one complete framed packet from r.
func ReadPacket(r io.Reader) (Packet, error) {
	var first [1]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return nil, err
	}

	headerLen := 1
	total := int(first[0])
	if first[0] == 0x01 {
		var rest [2]byte
		if _, err := io.ReadFull(r, rest[:]); err != nil {
			return nil, err
		}
		headerLen = 3
		total = int(binary.BigEndian.Uint16(rest[:]))
	}
	if total < headerLen+1 {
		return nil, fmt.Errorf("mqttsn: invalid total length %d", total)
	}

	rest := make([]byte, total-headerLen)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, err
	}

	msgType := rest[0]
	body := rest[1:]

	dec, ok := decoders[msgType]
	if !ok {
		return nil, fmt.Errorf("mqttsn: unknown message type 0x%02x", msgType)
	}
	return dec(body)
}
