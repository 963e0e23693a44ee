// Package mqttc implements a pure client-side MQTT v3.1 / v3.1.1 publish/subscribe
// client over TCP or TLS. It owns the wire codec (internal/packets), a
// session engine that multiplexes a single connection between a reader task
// and a writer task, and the public Connect/Publish/Subscribe/Get surface.
//
// Broker behavior, topic filter matching, and TLS socket construction beyond
// an optional *tls.Config are out of scope: the client consumes a resolved
// host/port and an opaque byte-stream handle.
package mqttc
