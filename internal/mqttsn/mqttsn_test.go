package mqttsn

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shortType(t TopicIDType) *TopicIDType { return &t }

func TestPublishQoSMinus1ShortTopicKnownBytes(t *testing.T) {
	pkt := &PublishPacket{
		Flags:      Flags{QoS: -1, TopicIDType: shortType(TopicShort)},
		ShortTopic: "tt",
		Data:       []byte("Hello World"),
	}

	var buf bytes.Buffer
	_, err := pkt.WriteTo(&buf)
	require.NoError(t, err)

	want := []byte("\x12\x0C\x62tt\x00\x00Hello World")
	assert.Equal(t, want, buf.Bytes())
}

func TestPublishRoundTripNormalTopicID(t *testing.T) {
	normal := TopicNormal
	pkt := &PublishPacket{
		Flags:     Flags{QoS: 1, TopicIDType: &normal},
		TopicID:   0x1234,
		MessageID: 7,
		Data:      []byte("payload"),
	}

	var buf bytes.Buffer
	_, err := pkt.WriteTo(&buf)
	require.NoError(t, err)

	got, err := ReadPacket(&buf)
	require.NoError(t, err)
	decoded, ok := got.(*PublishPacket)
	require.True(t, ok)
	assert.Equal(t, pkt, decoded)
}

func TestFlagsReservedTopicIDTypeDecodesToNil(t *testing.T) {
	f := decodeFlags(0x03)
	assert.Nil(t, f.TopicIDType)
	assert.Equal(t, int8(0), f.QoS)
}

func TestFlagsQoSMinus1RoundTrip(t *testing.T) {
	f := Flags{QoS: -1, TopicIDType: shortType(TopicShort)}
	b := encodeFlags(f)
	got := decodeFlags(b)
	assert.Equal(t, int8(-1), got.QoS)
	require.NotNil(t, got.TopicIDType)
	assert.Equal(t, TopicShort, *got.TopicIDType)
}

func TestConnectRequiresClientID(t *testing.T) {
	pkt := &ConnectPacket{Duration: 30}
	_, err := pkt.Encode(nil)
	assert.Error(t, err)
}

func TestConnectRoundTrip(t *testing.T) {
	pkt := &ConnectPacket{
		Flags:      Flags{Will: true, CleanSession: true},
		ProtocolID: ProtocolID,
		Duration:   300,
		ClientID:   "sensor-1",
	}

	var buf bytes.Buffer
	_, err := pkt.WriteTo(&buf)
	require.NoError(t, err)

	got, err := ReadPacket(&buf)
	require.NoError(t, err)
	assert.Equal(t, pkt, got)
}

func TestConnectRejectsUnknownProtocolID(t *testing.T) {
	body := []byte{0x00, 0x99, 0x00, 0x1E, 'a'}
	_, err := decodeConnect(body)
	assert.Error(t, err)
}

func TestConnackRoundTrip(t *testing.T) {
	pkt := &ConnackPacket{ReturnCode: ReturnRejectedCongestion}

	var buf bytes.Buffer
	_, err := pkt.WriteTo(&buf)
	require.NoError(t, err)

	got, err := ReadPacket(&buf)
	require.NoError(t, err)
	assert.Equal(t, pkt, got)
}

func TestSubscribeShortTopicRoundTrip(t *testing.T) {
	pkt := &SubscribePacket{
		Flags:      Flags{QoS: 1, TopicIDType: shortType(TopicShort)},
		MessageID:  5,
		ShortTopic: "ab",
	}

	var buf bytes.Buffer
	_, err := pkt.WriteTo(&buf)
	require.NoError(t, err)

	got, err := ReadPacket(&buf)
	require.NoError(t, err)
	assert.Equal(t, pkt, got)
}

func TestSubscribeNormalTopicNameRoundTrip(t *testing.T) {
	normal := TopicNormal
	pkt := &SubscribePacket{
		Flags:     Flags{QoS: 0, TopicIDType: &normal},
		MessageID: 9,
		TopicName: "a/b/c",
	}

	var buf bytes.Buffer
	_, err := pkt.WriteTo(&buf)
	require.NoError(t, err)

	got, err := ReadPacket(&buf)
	require.NoError(t, err)
	assert.Equal(t, pkt, got)
}

func TestSubscribeRejectsBadShortTopicLength(t *testing.T) {
	pkt := &SubscribePacket{
		Flags:      Flags{TopicIDType: shortType(TopicShort)},
		ShortTopic: "abc",
	}
	_, err := pkt.Encode(nil)
	assert.Error(t, err)
}

func TestRegisterRoundTrip(t *testing.T) {
	pkt := &RegisterPacket{TopicID: 0x0042, MessageID: 3, TopicName: "some/topic"}

	var buf bytes.Buffer
	_, err := pkt.WriteTo(&buf)
	require.NoError(t, err)

	got, err := ReadPacket(&buf)
	require.NoError(t, err)
	assert.Equal(t, pkt, got)
}

func TestPingreqEmptyClientIDWhenNotSleeping(t *testing.T) {
	pkt := &PingreqPacket{}

	var buf bytes.Buffer
	_, err := pkt.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, byte(PINGREQ)}, buf.Bytes())
}

func TestDisconnectWithDurationRoundTrip(t *testing.T) {
	pkt := &DisconnectPacket{Duration: 600}

	var buf bytes.Buffer
	_, err := pkt.WriteTo(&buf)
	require.NoError(t, err)

	got, err := ReadPacket(&buf)
	require.NoError(t, err)
	assert.Equal(t, pkt, got)
}

func TestThreeByteLengthFramingForLargeBody(t *testing.T) {
	data := bytes.Repeat([]byte{'x'}, 300)
	normal := TopicNormal
	pkt := &PublishPacket{
		Flags:     Flags{TopicIDType: &normal},
		TopicID:   1,
		MessageID: 1,
		Data:      data,
	}

	var buf bytes.Buffer
	_, err := pkt.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), buf.Bytes()[0])

	got, err := ReadPacket(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	decoded, ok := got.(*PublishPacket)
	require.True(t, ok)
	assert.Equal(t, data, decoded.Data)
}

func TestAppendFrameRejectsOversizedBody(t *testing.T) {
	_, err := appendFrame(nil, PUBLISH, make([]byte, MaxBodySize+1))
	assert.Error(t, err)
}

func TestParseReturnsBytesConsumed(t *testing.T) {
	pkt := &PingrespPacket{}
	buf, err := pkt.Encode(nil)
	require.NoError(t, err)

	got, n, err := Parse(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.IsType(t, &PingrespPacket{}, got)
}

func TestParseRejectsTrailingBytes(t *testing.T) {
	pkt := &PingrespPacket{}
	buf, err := pkt.Encode(nil)
	require.NoError(t, err)

	extra := append(append([]byte{}, buf...), 0xFF, 0xFF)
	_, _, err = Parse(extra)
	require.Error(t, err)
	assert.EqualError(t, err, "Length of packet is not the same as the length header")
}
