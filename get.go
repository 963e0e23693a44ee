package mqttc

import (
	"context"
	"time"
)

// Get blocks until a message is delivered, the connection closes, or ctx is
// done. There is no per-topic dispatch: every delivered
// Publish arrives through this single stream in the order the reader task
// processed it. A QoS 1/2 delivery is acknowledged to the broker only once
// it is returned here, never before.
func (c *Client) Get(ctx context.Context) (*Message, error) {
	start := time.Now().UnixNano()
	for {
		select {
		case item := <-c.readQueue:
			if item.err != nil {
				// A terminal error queued before this call began belongs to
				// a reconnect cycle this call never watched; a duplicate
				// worker pair from an earlier generation can still deliver
				// one after the session has already recovered, so only a
				// marker timestamped at or after start is raised.
				if item.at < start {
					continue
				}
				return nil, item.err
			}
			c.ackMessage(item.msg)
			return item.msg, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// GetFunc drains the read queue, invoking fn for every message, until ctx is
// done or the connection closes with an error.
func (c *Client) GetFunc(ctx context.Context, fn func(*Message)) error {
	for {
		msg, err := c.Get(ctx)
		if err != nil {
			return err
		}
		fn(msg)
	}
}
