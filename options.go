package mqttc

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/gonzalop/mqttc/internal/packets"
)

// ContextDialer is satisfied by *net.Dialer; it allows a caller to substitute
// a custom dial step (e.g. a transparent proxy) without the core taking on
// any transport-construction responsibility of its own.
type ContextDialer interface {
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}

// Options holds the full, typed configuration surface recognized when
// constructing a client. There is no keyword/map escape hatch:
// every recognized option has a named field and a With* constructor below.
type Options struct {
	Host string
	Port int
	SSL  bool

	Version uint8 // packets.ProtocolLevel310 or packets.ProtocolLevel311

	KeepAlive    time.Duration
	CleanSession bool
	ClientID     string

	AckTimeout  time.Duration
	ResendLimit int

	ReconnectLimit   int
	ReconnectBackoff time.Duration

	Username string
	Password string

	WillTopic   string
	WillPayload []byte
	WillQoS     uint8
	WillRetain  bool

	TLSConfig *tls.Config

	MaxIncomingPacket int

	Logger *slog.Logger
	Dialer ContextDialer

	OnReconnect      func(*Client) error
	OnConnectionLost func(*Client, error)
}

// Option configures an Options value.
type Option func(*Options)

// defaultOptions returns the out-of-the-box defaults: 5s ack timeout, 15s
// keep-alive, 5 reconnect attempts with 5s exponential backoff, 5 resend
// attempts.
func defaultOptions() *Options {
	host := os.Getenv("MQTT_SERVER")
	return &Options{
		Host:             host,
		Port:             1883,
		Version:          packets.ProtocolLevel311,
		KeepAlive:        15 * time.Second,
		CleanSession:     true,
		AckTimeout:       5 * time.Second,
		ResendLimit:      5,
		ReconnectLimit:   5,
		ReconnectBackoff: 5 * time.Second,
		Logger:           slog.New(slog.DiscardHandler),
	}
}

// WithHost sets the network endpoint. A later WithSSL(true) or
// WithTLSConfig moves a port of 1883 to 8883.
func WithHost(host string, port int) Option {
	return func(o *Options) {
		o.Host = host
		o.Port = port
	}
}

// WithSSL enables TLS and switches the port to 8883 when it is 1883. Any
// other port set via WithHost is kept; a port of 1883 is switched even when
// WithHost set it explicitly.
func WithSSL(enabled bool) Option {
	return func(o *Options) {
		o.SSL = enabled
		if enabled && o.Port == 1883 {
			o.Port = 8883
		}
	}
}

// WithTLSConfig supplies TLS material; implies WithSSL(true).
func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *Options) {
		o.TLSConfig = cfg
		o.SSL = true
		if o.Port == 1883 {
			o.Port = 8883
		}
	}
}

// WithVersion selects the protocol level: "3.1.0" or "3.1.1".
func WithVersion(version string) Option {
	return func(o *Options) {
		switch version {
		case "3.1.0":
			o.Version = packets.ProtocolLevel310
		case "3.1.1":
			o.Version = packets.ProtocolLevel311
		}
	}
}

// WithClientID sets the client identifier.
func WithClientID(id string) Option {
	return func(o *Options) { o.ClientID = id }
}

// WithCredentials sets the username and password.
func WithCredentials(username, password string) Option {
	return func(o *Options) {
		o.Username = username
		o.Password = password
	}
}

// WithKeepAlive sets the keep-alive interval; 0 disables keep-alive pings.
func WithKeepAlive(d time.Duration) Option {
	return func(o *Options) { o.KeepAlive = d }
}

// WithCleanSession sets the clean-session flag.
func WithCleanSession(clean bool) Option {
	return func(o *Options) { o.CleanSession = clean }
}

// WithAckTimeout bounds individual packet round-trips and the Connack wait.
func WithAckTimeout(d time.Duration) Option {
	return func(o *Options) { o.AckTimeout = d }
}

// WithResendLimit bounds retransmissions per pending ack.
func WithResendLimit(n int) Option {
	return func(o *Options) { o.ResendLimit = n }
}

// WithReconnectLimit bounds reconnection attempts; 0 disables reconnection.
func WithReconnectLimit(n int) Option {
	return func(o *Options) { o.ReconnectLimit = n }
}

// WithReconnectBackoff sets the exponential backoff base (backoff^attempt).
func WithReconnectBackoff(d time.Duration) Option {
	return func(o *Options) { o.ReconnectBackoff = d }
}

// WithWill sets the Last Will and Testament.
func WithWill(topic string, payload []byte, qos uint8, retain bool) Option {
	return func(o *Options) {
		o.WillTopic = topic
		o.WillPayload = payload
		o.WillQoS = qos
		o.WillRetain = retain
	}
}

// WithMaxIncomingPacket bounds the Remaining Length accepted from the
// server; 0 uses the protocol maximum.
func WithMaxIncomingPacket(n int) Option {
	return func(o *Options) { o.MaxIncomingPacket = n }
}

// WithLogger installs a structured logger; the default discards all output.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithDialer substitutes the network dial step.
func WithDialer(d ContextDialer) Option {
	return func(o *Options) { o.Dialer = d }
}

// WithOnReconnect registers the callback invoked after a successful
// reconnect, used to re-subscribe or re-publish presence.
func WithOnReconnect(fn func(*Client) error) Option {
	return func(o *Options) { o.OnReconnect = fn }
}

// WithOnConnectionLost registers a callback invoked when the connection is
// lost, before any reconnect attempt begins.
func WithOnConnectionLost(fn func(*Client, error)) Option {
	return func(o *Options) { o.OnConnectionLost = fn }
}
