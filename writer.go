package mqttc

import (
	"context"
	"time"

	"github.com/gonzalop/mqttc/internal/packets"
)

// flushBarrier is a sentinel pushed through write_queue by Flush: the
// writer closes done once every packet enqueued ahead of it has been
// written.
type flushBarrier struct {
	done chan struct{}
}

// writeLoop is the session's sole writer task: it owns c.conn for writing
// and never reads from the socket. pendingFront is drained ahead of
// write_queue so that a packet bounced by a write error is the next thing
// sent once a reconnect succeeds.
func (c *Client) writeLoop() {
	defer c.wg.Done()

	for {
		pkt, ok := c.popPendingFront()
		if !ok {
			select {
			case <-c.stopWriter.ch:
				return
			case item := <-c.writeQueue:
				if barrier, isBarrier := item.(*flushBarrier); isBarrier {
					close(barrier.done)
					continue
				}
				pkt = item.(packets.Packet)
			}
		}

		n, err := pkt.WriteTo(c.conn)
		if err != nil {
			// A write failure re-enqueues the packet at the head of
			// write_queue before handing off to reconnect, so nothing
			// already accepted by the caller is silently dropped.
			c.requeueFront(pkt)
			select {
			case <-c.stopWriter.ch:
				// Disconnect or a reconnect already under way closed the
				// socket and owns the teardown.
				return
			default:
			}
			c.triggerReconnect(err)
			return
		}

		c.lastSentNano.Store(time.Now().UnixNano())
		c.bytesWritten.Add(uint64(n))
	}
}

// requeueFront pushes pkt back so it is the next item written after a
// reconnect succeeds. write_queue has no native head-insert, so a small
// dedicated slice stands in for it, drained first by writeLoop.
func (c *Client) requeueFront(pkt packets.Packet) {
	c.pendingMu.Lock()
	c.pendingFront = append(c.pendingFront, pkt)
	c.pendingMu.Unlock()
}

func (c *Client) popPendingFront() (packets.Packet, bool) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if len(c.pendingFront) == 0 {
		return nil, false
	}
	pkt := c.pendingFront[0]
	c.pendingFront = c.pendingFront[1:]
	return pkt, true
}

func (c *Client) enqueueWrite(pkt packets.Packet) {
	c.writeQueue <- pkt
}

// Flush blocks until every packet already enqueued for writing has reached
// the socket.
func (c *Client) Flush(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	barrier := &flushBarrier{done: make(chan struct{})}
	c.writeQueue <- barrier
	select {
	case <-barrier.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
