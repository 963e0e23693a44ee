package mqttc

import (
	"context"
	"crypto/tls"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gonzalop/mqttc/internal/packets"
)

// Client is a single MQTT v3.1/v3.1.1 session: one TCP or TLS connection
// multiplexed between a reader task and a writer task. A Client is safe for
// concurrent use by multiple goroutines once connected.
type Client struct {
	opts *Options

	connMu sync.Mutex // serializes Connect/Disconnect/reconnect (connection_mutex)
	conn   net.Conn

	connected atomic.Bool

	writeQueue chan any // packets.Packet or *flushBarrier
	readQueue  chan readItem

	acks *ackTracker
	wake *wakeSignal

	idCounter atomic.Uint32

	lastRecvNano atomic.Int64
	lastSentNano atomic.Int64

	stopReader *stopSignal
	stopWriter *stopSignal
	wg         sync.WaitGroup

	bytesRead    atomic.Uint64
	bytesWritten atomic.Uint64

	reconnectAttempt atomic.Int32

	pendingMu    sync.Mutex
	pendingFront []packets.Packet
}

// stopSignal is a close-once channel gate. triggerReconnect and
// disconnectLocked both close the current generation's reader and writer
// signals; a connection can drop from either side, or be torn down by the
// caller, so closing must tolerate being invoked more than once.
type stopSignal struct {
	ch   chan struct{}
	once sync.Once
}

func newStopSignal() *stopSignal {
	return &stopSignal{ch: make(chan struct{})}
}

func (s *stopSignal) close() {
	s.once.Do(func() { close(s.ch) })
}

// Stats reports byte counters accumulated over the life of the client.
type Stats struct {
	BytesRead    uint64
	BytesWritten uint64
}

// NewClient builds a Client from opts without dialing. The connection is
// established by a subsequent call to Connect, so that construction itself
// never blocks or fails on network state.
func NewClient(opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.Host == "" {
		return nil, fmt.Errorf("mqttc: no host configured and MQTT_SERVER is unset")
	}

	c := &Client{
		opts:       o,
		writeQueue: make(chan any, 64),
		readQueue:  make(chan readItem, 64),
	}
	c.wake = newWakeSignal()
	c.acks = newAckTracker(c.wake)
	return c, nil
}

// IsConnected reports whether the session currently owns a live socket.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// Stats returns a snapshot of the byte counters.
func (c *Client) Stats() Stats {
	return Stats{
		BytesRead:    c.bytesRead.Load(),
		BytesWritten: c.bytesWritten.Load(),
	}
}

// Connect establishes the session. It is idempotent: calling it again while
// already connected is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.connected.Load() {
		return nil
	}

	clientID, err := resolveClientID(c.opts)
	if err != nil {
		return err
	}
	c.opts.ClientID = clientID

	if c.opts.Host == "" {
		return fmt.Errorf("mqttc: no host configured")
	}

	conn, err := c.dialServer(ctx)
	if err != nil {
		return fmt.Errorf("mqttc: dial %s: %w", joinHostPort(c.opts.Host, c.opts.Port), err)
	}

	connectPkt := c.buildConnectPacket()
	if _, err := connectPkt.WriteTo(conn); err != nil {
		conn.Close()
		return fmt.Errorf("mqttc: send connect: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(c.opts.AckTimeout))
	pkt, err := packets.ReadPacket(conn, c.maxIncomingPacket())
	conn.SetReadDeadline(time.Time{})
	if err != nil {
		conn.Close()
		return fmt.Errorf("mqttc: read connack: %w", err)
	}
	connack, ok := pkt.(*packets.ConnackPacket)
	if !ok {
		conn.Close()
		return &ProtocolError{Message: fmt.Sprintf("expected CONNACK, got packet type %d", pkt.Type())}
	}
	if connack.ReturnCode != packets.ConnAccepted {
		conn.Close()
		return connackError(connack.ReturnCode)
	}

	c.conn = conn
	now := time.Now().UnixNano()
	c.lastRecvNano.Store(now)
	c.lastSentNano.Store(now)
	c.reconnectAttempt.Store(0)
	c.stopReader = newStopSignal()
	c.stopWriter = newStopSignal()
	c.connected.Store(true)

	c.wg.Add(2)
	go c.readLoop()
	go c.writeLoop()

	c.opts.Logger.Info("mqttc: connected", "host", c.opts.Host, "port", c.opts.Port, "client_id", c.opts.ClientID, "session_present", connack.SessionPresent)
	return nil
}

// Disconnect sends a DISCONNECT, stops the reader and writer, and closes the
// socket. It is safe to call even if the client is not currently connected.
func (c *Client) Disconnect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.disconnectLocked()
}

func (c *Client) disconnectLocked() error {
	if !c.connected.Load() {
		return nil
	}

	dp := &packets.DisconnectPacket{}
	_, _ = dp.WriteTo(c.conn)

	c.connected.Store(false)
	c.stopReader.close()
	c.stopWriter.close()
	err := c.conn.Close()
	c.wg.Wait()

	c.acks.failAll(ErrConnectionClosed)
	return err
}

// WithSession connects opts, invokes fn, and disconnects unconditionally on
// return: a scoped-connect helper for short-lived sessions.
func WithSession(ctx context.Context, fn func(*Client) error, opts ...Option) error {
	c, err := NewClient(opts...)
	if err != nil {
		return err
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Disconnect(context.Background())
	return fn(c)
}

func (c *Client) dialServer(ctx context.Context) (net.Conn, error) {
	addr := joinHostPort(c.opts.Host, c.opts.Port)

	dial := c.opts.Dialer
	if dial == nil {
		dial = &net.Dialer{Timeout: c.opts.AckTimeout}
	}

	conn, err := dial.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if c.opts.SSL {
		cfg := c.opts.TLSConfig
		if cfg == nil {
			cfg = &tls.Config{ServerName: c.opts.Host}
		} else if cfg.ServerName == "" {
			clone := cfg.Clone()
			clone.ServerName = c.opts.Host
			cfg = clone
		}
		tlsConn := tls.Client(conn, cfg)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		return tlsConn, nil
	}
	return conn, nil
}

func (c *Client) buildConnectPacket() *packets.ConnectPacket {
	p := &packets.ConnectPacket{
		ProtocolName:  "MQTT",
		ProtocolLevel: c.opts.Version,
		CleanSession:  c.opts.CleanSession,
		KeepAlive:     uint16(c.opts.KeepAlive / time.Second),
		ClientID:      c.opts.ClientID,
	}
	if c.opts.Version == packets.ProtocolLevel310 {
		p.ProtocolName = "MQIsdp"
	}
	if c.opts.WillTopic != "" {
		p.WillFlag = true
		p.WillTopic = c.opts.WillTopic
		p.WillMessage = c.opts.WillPayload
		p.WillQoS = c.opts.WillQoS
		p.WillRetain = c.opts.WillRetain
	}
	if c.opts.Username != "" {
		p.UsernameFlag = true
		p.Username = c.opts.Username
		if c.opts.Password != "" {
			p.PasswordFlag = true
			p.Password = c.opts.Password
		}
	}
	return p
}

func (c *Client) maxIncomingPacket() int {
	if c.opts.MaxIncomingPacket > 0 {
		return c.opts.MaxIncomingPacket
	}
	return packets.MaxRemainingLength
}

// nextPacketID allocates the next packet identifier, wrapping 0xFFFF back to
// 1 and never issuing 0.
func (c *Client) nextPacketID() uint16 {
	for {
		n := c.idCounter.Add(1)
		id := uint16(n)
		if id != 0 {
			return id
		}
	}
}

// resolveClientID applies the protocol-version-dependent client-id rules:
// an empty ID is allowed only for clean sessions under 3.1.1, and 3.1.0
// requires a generated identifier when none is supplied.
func resolveClientID(o *Options) (string, error) {
	if o.ClientID != "" {
		return o.ClientID, nil
	}
	if o.Version == packets.ProtocolLevel310 {
		return generateClientID(), nil
	}
	if !o.CleanSession {
		return "", fmt.Errorf("mqttc: client id required when clean_session is false")
	}
	return "", nil
}

const clientIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func generateClientID() string {
	b := make([]byte, 16)
	for i := range b {
		b[i] = clientIDAlphabet[rand.Intn(len(clientIDAlphabet))]
	}
	return "mqttc" + string(b)
}
