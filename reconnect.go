package mqttc

import (
	"context"
	"math"
	"time"
)

// triggerReconnect is invoked by the reader or writer task when it hits a
// socket error. The caller is already on its way out; this function tears
// down the shared connection state, closes both workers' stop signals so
// the one that did NOT call in also exits rather than idling against a
// conn that is about to be replaced, and, if configured, hands off to an
// asynchronous reconnect loop.
func (c *Client) triggerReconnect(cause error) {
	c.connMu.Lock()
	if !c.connected.Load() {
		c.connMu.Unlock()
		return
	}
	c.connected.Store(false)
	c.conn.Close()
	c.stopReader.close()
	c.stopWriter.close()
	c.connMu.Unlock()

	if c.opts.OnConnectionLost != nil {
		c.opts.OnConnectionLost(c, cause)
	}

	if c.opts.ReconnectLimit == 0 {
		c.acks.failAll(ErrConnectionClosed)
		c.pushRead(readItem{err: cause, at: time.Now().UnixNano()})
		return
	}

	go c.reconnectLoop(cause)
}

// reconnectLoop retries connecting up to reconnect_limit times. The first
// attempt runs immediately; a failed attempt sleeps backoff^attempt seconds
// before the next retry, so the delay never precedes the very first try.
// In-flight packets are deliberately NOT retransmitted on success: only new
// writes and the ordinary ack-timeout resend path touch the wire again.
func (c *Client) reconnectLoop(cause error) {
	for attempt := 1; attempt <= c.opts.ReconnectLimit; attempt++ {
		c.connMu.Lock()
		err := c.connectLocked(context.Background())
		c.connMu.Unlock()

		if err == nil {
			c.reconnectAttempt.Store(0)
			if c.opts.OnReconnect != nil {
				c.opts.OnReconnect(c)
			}
			return
		}
		c.opts.Logger.Warn("mqttc: reconnect attempt failed", "attempt", attempt, "error", err)

		if attempt < c.opts.ReconnectLimit {
			time.Sleep(reconnectDelay(c.opts.ReconnectBackoff, attempt))
		}
	}

	c.acks.failAll(ErrConnectionClosed)
	c.pushRead(readItem{err: cause, at: time.Now().UnixNano()})
}

// reconnectDelay computes the wait after the given failed reconnect attempt,
// before the next one: backoff^attempt seconds, so a 5s backoff yields 5s
// then 25s then 125s.
func reconnectDelay(backoff time.Duration, attempt int) time.Duration {
	base := backoff.Seconds()
	return time.Duration(math.Pow(base, float64(attempt)) * float64(time.Second))
}
