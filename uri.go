package mqttc

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// ParseConnString parses a connection URI of the form
// "mqtt://[user:pass@]host[:port]" or "mqtts://[user:pass@]host[:port]"
// into an Option that configures host, port, TLS, and optional credentials
// in one step.
func ParseConnString(raw string) (Option, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("mqttc: invalid connection string: %w", err)
	}

	var ssl bool
	switch u.Scheme {
	case "mqtt":
		ssl = false
	case "mqtts":
		ssl = true
	default:
		return nil, fmt.Errorf("mqttc: unsupported scheme %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("mqttc: connection string missing host")
	}

	port := 1883
	if ssl {
		port = 8883
	}
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("mqttc: invalid port %q: %w", p, err)
		}
	}

	var username, password string
	hasUser := false
	if u.User != nil {
		username = u.User.Username()
		password, _ = u.User.Password()
		hasUser = true
	}

	return func(o *Options) {
		o.Host = host
		o.Port = port
		o.SSL = ssl
		if hasUser {
			o.Username = username
			o.Password = password
		}
	}, nil
}

// joinHostPort is a thin wrapper kept for symmetry with dialServer's use of
// net.JoinHostPort across both IPv4 and IPv6 literals.
func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
