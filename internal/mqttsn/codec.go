package mqttsn

import "io"

// writeSelf is the common WriteTo implementation shared by every packet
// type: Encode into a fresh slice, then write it in one call.
func writeSelf(w io.Writer, p Packet) (int64, error) {
	buf, err := p.Encode(nil)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(buf)
	return int64(n), err
}
