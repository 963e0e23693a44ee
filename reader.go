package mqttc

import (
	"errors"
	"net"
	"time"

	"github.com/gonzalop/mqttc/internal/packets"
)

// readItem is one entry of the single FIFO read_queue: either a delivered
// Publish or a terminal connectivity error. at is the UnixNano time the
// error marker was pushed; it is unused for message items.
type readItem struct {
	msg *Message
	err error
	at  int64
}

// readLoop is the session's sole reader task: it owns c.conn for reading,
// recomputes its wait deadline from the pending-ack head, the next
// keep-alive ping, and the ping timeout, and never writes to the socket
// itself.
func (c *Client) readLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopReader.ch:
			return
		default:
		}

		timeout := c.nextReadTimeout()
		c.conn.SetReadDeadline(timeout)

		pkt, err := packets.ReadPacket(c.conn, c.maxIncomingPacket())
		c.conn.SetReadDeadline(time.Time{})

		select {
		case <-c.wake.C():
		default:
		}

		if err != nil {
			if isTimeout(err) {
				c.handleTimeouts()
				c.handleKeepAlives()
				continue
			}
			select {
			case <-c.stopReader.ch:
				return
			default:
			}
			c.triggerReconnect(err)
			return
		}

		c.lastRecvNano.Store(time.Now().UnixNano())
		c.bytesRead.Add(1)
		c.handlePacket(pkt)
		c.handleTimeouts()
		c.handleKeepAlives()
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// nextReadTimeout computes the deadline for the next socket read: the
// earliest of now + ack_timeout, the pending-ack head's timeout_at, and,
// when keep-alive is on, the next ping due time and the ping timeout.
func (c *Client) nextReadTimeout() time.Time {
	deadline := time.Now().Add(c.opts.AckTimeout)

	if t, ok := c.acks.headTimeout(); ok && t.Before(deadline) {
		deadline = t
	}

	if c.opts.KeepAlive > 0 {
		lastSent := time.Unix(0, c.lastSentNano.Load())
		pingDue := lastSent.Add(c.opts.KeepAlive)
		if pingDue.Before(deadline) {
			deadline = pingDue
		}
		lastRecv := time.Unix(0, c.lastRecvNano.Load())
		pingTimeout := lastRecv.Add(c.opts.KeepAlive + c.opts.AckTimeout)
		if pingTimeout.Before(deadline) {
			deadline = pingTimeout
		}
	}

	return deadline
}

func (c *Client) handleTimeouts() {
	c.acks.handleTimeouts(c.opts.ResendLimit, c.opts.AckTimeout, c.enqueueWrite)
}

// handleKeepAlives sends a PINGREQ when the keep-alive interval has elapsed
// since the last packet we sent, and fails the connection when no PINGRESP
// or other packet has arrived within keep_alive + ack_timeout of the last
// received packet.
func (c *Client) handleKeepAlives() {
	if c.opts.KeepAlive <= 0 {
		return
	}
	now := time.Now()

	lastRecv := time.Unix(0, c.lastRecvNano.Load())
	if now.Sub(lastRecv) > c.opts.KeepAlive+c.opts.AckTimeout {
		c.triggerReconnect(ErrKeepAliveTimeout)
		return
	}

	lastSent := time.Unix(0, c.lastSentNano.Load())
	if now.Sub(lastSent) >= c.opts.KeepAlive {
		c.enqueueWrite(&packets.PingreqPacket{})
	}
}

func (c *Client) handlePacket(pkt packets.Packet) {
	switch p := pkt.(type) {
	case *packets.PublishPacket:
		c.handlePublish(p)
	case *packets.PubackPacket:
		if pa, ok := c.acks.resolve(p.PacketID); ok {
			pa.token.complete(nil)
		}
	case *packets.PubrecPacket:
		// Outgoing QoS 2: answer PUBREC with PUBREL at once and resolve the
		// original publish once PUBCOMP arrives, reusing the pending-ack
		// slot rather than a dedicated state machine.
		c.enqueueWrite(&packets.PubrelPacket{PacketID: p.PacketID})
	case *packets.PubcompPacket:
		if pa, ok := c.acks.resolve(p.PacketID); ok {
			pa.token.complete(nil)
		}
	case *packets.PubrelPacket:
		c.enqueueWrite(&packets.PubcompPacket{PacketID: p.PacketID})
	case *packets.SubackPacket:
		if pa, ok := c.acks.resolve(p.PacketID); ok {
			pa.token.complete(nil)
		}
	case *packets.UnsubackPacket:
		if pa, ok := c.acks.resolve(p.PacketID); ok {
			pa.token.complete(nil)
		}
	case *packets.PingrespPacket:
		// no-op: arrival already updated lastRecvNano above.
	case *packets.DisconnectPacket:
		c.triggerReconnect(ErrConnectionClosed)
	}
}

// handlePublish never acknowledges a QoS 1/2 delivery itself: the PUBACK or
// PUBREC is deferred until the caller actually consumes the message through
// Get/GetFunc, so a message the application never retrieves is never
// acknowledged to the broker either.
func (c *Client) handlePublish(p *packets.PublishPacket) {
	msg := &Message{
		Topic:     p.Topic,
		Payload:   p.Payload,
		QoS:       QoS(p.QoS),
		Retained:  p.Retain,
		Duplicate: p.Dup,
		packetID:  p.PacketID,
	}
	c.pushRead(readItem{msg: msg})
}

// ackMessage sends the PUBACK or PUBREC deferred from handlePublish. It runs
// only once Get/GetFunc has handed the message to the caller.
func (c *Client) ackMessage(msg *Message) {
	switch msg.QoS {
	case AtLeastOnce:
		c.enqueueWrite(&packets.PubackPacket{PacketID: msg.packetID})
	case ExactlyOnce:
		c.enqueueWrite(&packets.PubrecPacket{PacketID: msg.packetID})
	}
}

func (c *Client) pushRead(item readItem) {
	select {
	case c.readQueue <- item:
	default:
		// read_queue is a blocking FIFO; a full queue means the consumer
		// has stopped draining Get, so block until it catches up.
		c.readQueue <- item
	}
}
