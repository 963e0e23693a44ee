package mqttc

import (
	"context"
	"fmt"

	"github.com/gonzalop/mqttc/internal/packets"
)

// Subscribe requests delivery of messages matching topics at the paired qos
// levels. Topic filter matching itself is a broker responsibility; every
// delivered Publish, regardless of which filter matched it, arrives through
// the single Get/GetFunc stream.
func (c *Client) Subscribe(topics []string, qos []QoS) (Token, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}
	if len(topics) == 0 || len(topics) != len(qos) {
		return nil, fmt.Errorf("mqttc: subscribe requires matching topic and qos lists")
	}

	levels := make([]uint8, len(qos))
	for i, q := range qos {
		levels[i] = uint8(q)
	}

	pkt := &packets.SubscribePacket{
		PacketID: c.nextPacketID(),
		Topics:   topics,
		QoS:      levels,
	}

	tok := newToken()
	c.acks.register(pkt.PacketID, pkt, tok, c.opts.AckTimeout)
	c.enqueueWrite(pkt)
	return tok, nil
}

// SubscribeWait is Subscribe followed by a wait on the returned token.
func (c *Client) SubscribeWait(ctx context.Context, topics []string, qos []QoS) error {
	tok, err := c.Subscribe(topics, qos)
	if err != nil {
		return err
	}
	return tok.Wait(ctx)
}

// Unsubscribe requests the server stop forwarding messages for topics.
func (c *Client) Unsubscribe(topics []string) (Token, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("mqttc: unsubscribe requires at least one topic filter")
	}

	pkt := &packets.UnsubscribePacket{
		PacketID: c.nextPacketID(),
		Topics:   topics,
	}

	tok := newToken()
	c.acks.register(pkt.PacketID, pkt, tok, c.opts.AckTimeout)
	c.enqueueWrite(pkt)
	return tok, nil
}

// UnsubscribeWait is Unsubscribe followed by a wait on the returned token.
func (c *Client) UnsubscribeWait(ctx context.Context, topics []string) error {
	tok, err := c.Unsubscribe(topics)
	if err != nil {
		return err
	}
	return tok.Wait(ctx)
}
