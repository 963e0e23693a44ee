package mqttc

import (
	"sync"
	"time"

	"github.com/gonzalop/mqttc/internal/packets"
)

// wakeSignal is a one-shot, rearmable notifier used to break the reader out
// of its timed wait when new work appears.
type wakeSignal struct {
	ch chan struct{}
}

func newWakeSignal() *wakeSignal {
	return &wakeSignal{ch: make(chan struct{}, 1)}
}

func (w *wakeSignal) fire() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

func (w *wakeSignal) C() <-chan struct{} {
	return w.ch
}

// pendingAck tracks one outstanding acknowledged operation (Publish with
// QoS > 0, Subscribe, Unsubscribe).
type pendingAck struct {
	packet    packets.Packet
	token     *token
	timeoutAt time.Time
	sendCount int
}

// ackTracker is the ordered pending-acks map: insertion order must equal
// transmission order so that the head's timeout_at is always the earliest,
// which Go's native map cannot guarantee. order holds
// packet IDs in insertion order; entries removed from the middle leave a
// hole that is skipped by callers walking order, not compacted, to keep
// removal O(1) amortized under the mutex.
type ackTracker struct {
	mu      sync.Mutex
	order   []uint16
	entries map[uint16]*pendingAck
	wake    *wakeSignal
}

func newAckTracker(wake *wakeSignal) *ackTracker {
	return &ackTracker{
		entries: make(map[uint16]*pendingAck),
		wake:    wake,
	}
}

// register inserts a new pending ack, firing the wake signal if the tracker
// was empty beforehand.
func (a *ackTracker) register(id uint16, pkt packets.Packet, tok *token, ackTimeout time.Duration) {
	a.mu.Lock()
	wasEmpty := len(a.entries) == 0
	a.entries[id] = &pendingAck{
		packet:    pkt,
		token:     tok,
		timeoutAt: time.Now().Add(ackTimeout),
		sendCount: 1,
	}
	a.order = append(a.order, id)
	a.mu.Unlock()

	if wasEmpty {
		a.wake.fire()
	}
}

// resolve removes and returns the pending ack for id, if any.
func (a *ackTracker) resolve(id uint16) (*pendingAck, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	pa, ok := a.entries[id]
	if !ok {
		return nil, false
	}
	delete(a.entries, id)
	return pa, true
}

// headTimeout returns the earliest timeout_at among live entries, walking
// order from the front and skipping IDs already removed. ok is false when
// no entry remains.
func (a *ackTracker) headTimeout() (t time.Time, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for len(a.order) > 0 {
		id := a.order[0]
		if pa, live := a.entries[id]; live {
			return pa.timeoutAt, true
		}
		a.order = a.order[1:]
	}
	return time.Time{}, false
}

// handleTimeouts walks pending_acks in insertion order, resending or
// failing every expired entry, and stops at the first entry whose timeout
// has not yet elapsed.
func (a *ackTracker) handleTimeouts(resendLimit int, ackTimeout time.Duration, enqueue func(packets.Packet)) {
	now := time.Now()
	a.mu.Lock()
	defer a.mu.Unlock()

	compacted := a.order[:0]
	for i, id := range a.order {
		pa, live := a.entries[id]
		if !live {
			continue
		}
		if pa.timeoutAt.After(now) {
			compacted = append(compacted, a.order[i:]...)
			break
		}

		pa.sendCount++
		if pa.sendCount > resendLimit {
			delete(a.entries, id)
			pa.token.complete(ErrResendLimitExceeded)
			continue
		}

		pa.timeoutAt = now.Add(ackTimeout)
		compacted = append(compacted, id)

		if pub, ok := pa.packet.(*packets.PublishPacket); ok {
			pub.Dup = true
		}
		a.wake.fire()
		enqueue(pa.packet)
	}
	a.order = compacted
}

// failAll completes every pending ack with err and empties the tracker;
// called on an unrecoverable reconnect failure or an explicit disconnect.
func (a *ackTracker) failAll(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, pa := range a.entries {
		pa.token.complete(err)
	}
	a.entries = make(map[uint16]*pendingAck)
	a.order = nil
}
