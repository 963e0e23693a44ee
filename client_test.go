package mqttc

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/gonzalop/mqttc/internal/packets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeDialer hands back a pre-established net.Conn instead of dialing,
// letting tests stand in a fake broker on the other end of a net.Pipe.
type pipeDialer struct{ conn net.Conn }

func (d *pipeDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return d.conn, nil
}

// fakeBroker reads packets off server and reacts just enough to drive a
// Client through connect, a QoS 1 publish round trip, a subscribe round
// trip, and disconnect.
func fakeBroker(t *testing.T, server net.Conn) {
	t.Helper()
	go func() {
		for {
			pkt, err := packets.ReadPacket(server, 0)
			if err != nil {
				return
			}
			switch p := pkt.(type) {
			case *packets.ConnectPacket:
				ack := &packets.ConnackPacket{ReturnCode: packets.ConnAccepted}
				if _, err := ack.WriteTo(server); err != nil {
					return
				}
			case *packets.PublishPacket:
				if p.QoS == packets.QoS1 {
					ack := &packets.PubackPacket{PacketID: p.PacketID}
					if _, err := ack.WriteTo(server); err != nil {
						return
					}
				}
			case *packets.SubscribePacket:
				ack := &packets.SubackPacket{PacketID: p.PacketID, ReturnCodes: p.QoS}
				if _, err := ack.WriteTo(server); err != nil {
					return
				}
			case *packets.UnsubscribePacket:
				ack := &packets.UnsubackPacket{PacketID: p.PacketID}
				if _, err := ack.WriteTo(server); err != nil {
					return
				}
			case *packets.PingreqPacket:
				if _, err := (&packets.PingrespPacket{}).WriteTo(server); err != nil {
					return
				}
			case *packets.DisconnectPacket:
				return
			}
		}
	}()
}

func newPipedClient(t *testing.T, opts ...Option) (*Client, net.Conn) {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	fakeBroker(t, serverSide)

	allOpts := append([]Option{
		WithHost("broker.example", 1883),
		WithClientID("test-client"),
		WithDialer(&pipeDialer{conn: clientSide}),
		WithAckTimeout(2 * time.Second),
	}, opts...)

	c, err := NewClient(allOpts...)
	require.NoError(t, err)
	return c, serverSide
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)
}

func TestConnectDisconnectHandshake(t *testing.T) {
	c, _ := newPipedClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, c.Connect(ctx))
	assert.True(t, c.IsConnected())

	require.NoError(t, c.Disconnect(context.Background()))
	assert.False(t, c.IsConnected())
}

func TestConnectIsIdempotent(t *testing.T) {
	c, _ := newPipedClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.Connect(ctx))
	assert.True(t, c.IsConnected())

	require.NoError(t, c.Disconnect(context.Background()))
}

func TestPublishQoS0ReturnsAlreadyCompletedToken(t *testing.T) {
	c, _ := newPipedClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer c.Disconnect(context.Background())

	tok, err := c.Publish("a/b", []byte("hi"), AtMostOnce, false)
	require.NoError(t, err)
	select {
	case <-tok.Done():
	default:
		t.Fatal("QoS 0 token should already be done")
	}
	assert.NoError(t, tok.Error())
}

func TestPublishQoS1WaitsForPuback(t *testing.T) {
	c, _ := newPipedClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer c.Disconnect(context.Background())

	err := c.PublishWait(ctx, "a/b", []byte("hi"), AtLeastOnce, false)
	assert.NoError(t, err)
}

func TestSubscribeUnsubscribeWait(t *testing.T) {
	c, _ := newPipedClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer c.Disconnect(context.Background())

	err := c.SubscribeWait(ctx, []string{"a/b", "c/d"}, []QoS{AtMostOnce, AtLeastOnce})
	require.NoError(t, err)

	err = c.UnsubscribeWait(ctx, []string{"a/b", "c/d"})
	assert.NoError(t, err)
}

func TestSubscribeRejectsMismatchedLists(t *testing.T) {
	c, _ := newPipedClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer c.Disconnect(context.Background())

	_, err := c.Subscribe([]string{"a/b"}, []QoS{AtMostOnce, AtLeastOnce})
	assert.Error(t, err)
}

func TestPublishRequiresConnection(t *testing.T) {
	c, err := NewClient(WithHost("broker.example", 1883), WithClientID("idle"))
	require.NoError(t, err)
	_, err = c.Publish("a/b", nil, AtMostOnce, false)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestGetDeliversPublishedMessage(t *testing.T) {
	clientSide, serverSide := net.Pipe()

	go func() {
		pkt, err := packets.ReadPacket(serverSide, 0)
		if err != nil {
			return
		}
		if _, ok := pkt.(*packets.ConnectPacket); !ok {
			return
		}
		ack := &packets.ConnackPacket{ReturnCode: packets.ConnAccepted}
		if _, err := ack.WriteTo(serverSide); err != nil {
			return
		}
		pub := &packets.PublishPacket{Topic: "news", Payload: []byte("hello"), QoS: packets.QoS0}
		pub.WriteTo(serverSide)

		for {
			if _, err := packets.ReadPacket(serverSide, 0); err != nil {
				return
			}
		}
	}()

	c, err := NewClient(
		WithHost("broker.example", 1883),
		WithClientID("reader"),
		WithDialer(&pipeDialer{conn: clientSide}),
		WithAckTimeout(2*time.Second),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer c.Disconnect(context.Background())

	msg, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "news", msg.Topic)
	assert.Equal(t, []byte("hello"), msg.Payload)
}

func TestQoS1PublishAcksOnlyAfterGet(t *testing.T) {
	clientSide, serverSide := net.Pipe()

	published := make(chan struct{})
	acked := make(chan packets.Packet, 1)
	go func() {
		pkt, err := packets.ReadPacket(serverSide, 0)
		if err != nil {
			return
		}
		if _, ok := pkt.(*packets.ConnectPacket); !ok {
			return
		}
		ack := &packets.ConnackPacket{ReturnCode: packets.ConnAccepted}
		if _, err := ack.WriteTo(serverSide); err != nil {
			return
		}
		pub := &packets.PublishPacket{PacketID: 7, Topic: "news", Payload: []byte("hello"), QoS: packets.QoS1}
		if _, err := pub.WriteTo(serverSide); err != nil {
			return
		}
		close(published)

		next, err := packets.ReadPacket(serverSide, 0)
		if err != nil {
			return
		}
		acked <- next

		for {
			if _, err := packets.ReadPacket(serverSide, 0); err != nil {
				return
			}
		}
	}()

	c, err := NewClient(
		WithHost("broker.example", 1883),
		WithClientID("reader"),
		WithDialer(&pipeDialer{conn: clientSide}),
		WithAckTimeout(2*time.Second),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer c.Disconnect(context.Background())

	<-published
	select {
	case <-acked:
		t.Fatal("puback was sent before the message was consumed via Get")
	case <-time.After(100 * time.Millisecond):
	}

	msg, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "news", msg.Topic)

	select {
	case pkt := <-acked:
		_, ok := pkt.(*packets.PubackPacket)
		assert.True(t, ok, "expected a PUBACK, got %T", pkt)
	case <-time.After(2 * time.Second):
		t.Fatal("expected puback once Get returned the message")
	}
}

func TestNextPacketIDSkipsZero(t *testing.T) {
	c := &Client{}
	c.idCounter.Store(0xFFFF)
	id := c.nextPacketID()
	assert.Equal(t, uint16(1), id)
}

func TestGenerateClientIDIsLowercaseAlphanumeric(t *testing.T) {
	id := generateClientID()
	require.True(t, strings.HasPrefix(id, "mqttc"))
	for _, r := range strings.TrimPrefix(id, "mqttc") {
		assert.True(t, strings.ContainsRune(clientIDAlphabet, r), "unexpected rune %q", r)
		assert.False(t, r >= 'A' && r <= 'Z', "client id must not contain uppercase letters, got %q", id)
	}
}

func TestPublishRejectsEmptyTopic(t *testing.T) {
	c, _ := newPipedClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer c.Disconnect(context.Background())

	_, err := c.Publish("", []byte("hi"), AtMostOnce, false)
	assert.Error(t, err)
}

func TestResolveClientIDRules(t *testing.T) {
	id, err := resolveClientID(&Options{Version: packets.ProtocolLevel311, CleanSession: true})
	require.NoError(t, err)
	assert.Equal(t, "", id)

	_, err = resolveClientID(&Options{Version: packets.ProtocolLevel311, CleanSession: false})
	assert.Error(t, err)

	id, err = resolveClientID(&Options{Version: packets.ProtocolLevel310})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	id, err = resolveClientID(&Options{ClientID: "fixed"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", id)
}
