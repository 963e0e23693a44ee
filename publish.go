package mqttc

import (
	"context"
	"fmt"

	"github.com/gonzalop/mqttc/internal/packets"
)

// Publish sends a message and returns a Token. For QoS 0 the token is
// already complete, since there is nothing to acknowledge; for QoS 1/2 the
// token completes when the matching ack arrives, the resend limit is
// exceeded, or the connection is closed.
func (c *Client) Publish(topic string, payload []byte, qos QoS, retain bool) (Token, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}
	if topic == "" {
		return nil, fmt.Errorf("mqttc: publish requires a non-empty topic")
	}

	pkt := &packets.PublishPacket{
		Topic:   topic,
		Payload: payload,
		QoS:     uint8(qos),
		Retain:  retain,
	}

	if qos == AtMostOnce {
		c.enqueueWrite(pkt)
		return completedToken(nil), nil
	}

	pkt.PacketID = c.nextPacketID()
	tok := newToken()
	c.acks.register(pkt.PacketID, pkt, tok, c.opts.AckTimeout)
	c.enqueueWrite(pkt)
	return tok, nil
}

// PublishWait is Publish followed by a wait on the returned token.
func (c *Client) PublishWait(ctx context.Context, topic string, payload []byte, qos QoS, retain bool) error {
	tok, err := c.Publish(topic, payload, qos, retain)
	if err != nil {
		return err
	}
	return tok.Wait(ctx)
}
