package mqttc

import (
	"context"
	"sync"
)

type batchKey struct {
	qos    QoS
	retain bool
}

type batchItem struct {
	topic   string
	payload []byte
}

// Batch accumulates publishes grouped by (qos, retain) and sends them as one
// unit on Flush, followed by a flush-barrier wait and a wait on every
// QoS>0 token. It is an explicit scope object, since Go has no implicit
// thread-local to hang an accumulator from.
type Batch struct {
	c  *Client
	mu sync.Mutex
	// groups preserves insertion order within each (qos, retain) bucket;
	// bucket order itself follows first-use order via keys.
	keys   []batchKey
	groups map[batchKey][]batchItem
}

// BeginBatch opens a new accumulator bound to c.
func (c *Client) BeginBatch() *Batch {
	return &Batch{c: c, groups: make(map[batchKey][]batchItem)}
}

// Publish buffers a message in the batch; nothing is sent until Flush.
func (b *Batch) Publish(topic string, payload []byte, qos QoS, retain bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := batchKey{qos: qos, retain: retain}
	if _, ok := b.groups[k]; !ok {
		b.keys = append(b.keys, k)
	}
	b.groups[k] = append(b.groups[k], batchItem{topic: topic, payload: payload})
}

// Flush sends every buffered message, one bucket at a time, then blocks
// until the writer has flushed them to the socket and every QoS>0 publish
// in the batch has been acknowledged.
func (b *Batch) Flush(ctx context.Context) error {
	b.mu.Lock()
	keys, groups := b.keys, b.groups
	b.keys, b.groups = nil, make(map[batchKey][]batchItem)
	b.mu.Unlock()

	var tokens []Token
	for _, k := range keys {
		for _, item := range groups[k] {
			tok, err := b.c.Publish(item.topic, item.payload, k.qos, k.retain)
			if err != nil {
				return err
			}
			tokens = append(tokens, tok)
		}
	}

	if err := b.c.Flush(ctx); err != nil {
		return err
	}
	for _, tok := range tokens {
		if err := tok.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}
