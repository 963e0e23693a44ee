package mqttsn

import "io"

// Packet is the interface every MQTT-SN control packet implements.
type Packet interface {
	// Type returns the MQTT-SN message type octet.
	Type() uint8

	// Encode appends the full framed packet (length header, type, body) to
	// dst and returns the resulting slice.
	Encode(dst []byte) ([]byte, error)

	// WriteTo writes the full framed packet to w.
	WriteTo(w io.Writer) (int64, error)
}
