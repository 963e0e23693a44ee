package mqttc

import (
	"testing"
	"time"

	"github.com/gonzalop/mqttc/internal/packets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAckTrackerOrderedHeadTimeout(t *testing.T) {
	wake := newWakeSignal()
	tr := newAckTracker(wake)

	tr.register(1, &packets.PublishPacket{PacketID: 1}, newToken(), 10*time.Millisecond)
	tr.register(2, &packets.PublishPacket{PacketID: 2}, newToken(), time.Hour)

	head, ok := tr.headTimeout()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(10*time.Millisecond), head, 5*time.Millisecond)

	tr.resolve(1)
	head, ok = tr.headTimeout()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), head, time.Second)
}

func TestAckTrackerRegisterFiresWakeOnlyWhenEmpty(t *testing.T) {
	wake := newWakeSignal()
	tr := newAckTracker(wake)

	tr.register(1, &packets.PublishPacket{PacketID: 1}, newToken(), time.Minute)
	select {
	case <-wake.C():
	default:
		t.Fatal("expected wake to fire for first registration")
	}

	tr.register(2, &packets.PublishPacket{PacketID: 2}, newToken(), time.Minute)
	select {
	case <-wake.C():
		t.Fatal("wake should not fire when tracker was already non-empty")
	default:
	}
}

func TestAckTrackerHandleTimeoutsResendsAndSetsDup(t *testing.T) {
	wake := newWakeSignal()
	tr := newAckTracker(wake)

	pkt := &packets.PublishPacket{PacketID: 1, Topic: "a", QoS: packets.QoS1}
	tok := newToken()
	tr.register(1, pkt, tok, -time.Millisecond) // already expired

	var resent []packets.Packet
	tr.handleTimeouts(5, time.Minute, func(p packets.Packet) {
		resent = append(resent, p)
	})

	require.Len(t, resent, 1)
	assert.True(t, resent[0].(*packets.PublishPacket).Dup)
	select {
	case <-tok.Done():
		t.Fatal("token should not complete before resend limit is exceeded")
	default:
	}
}

func TestAckTrackerHandleTimeoutsFailsAfterResendLimit(t *testing.T) {
	wake := newWakeSignal()
	tr := newAckTracker(wake)

	pkt := &packets.PublishPacket{PacketID: 1, Topic: "a"}
	tok := newToken()
	tr.register(1, pkt, tok, -time.Millisecond)

	for i := 0; i < 2; i++ {
		tr.handleTimeouts(2, -time.Millisecond, func(packets.Packet) {})
	}

	select {
	case <-tok.Done():
	default:
		t.Fatal("token should complete once resend limit is exceeded")
	}
	assert.ErrorIs(t, tok.Error(), ErrResendLimitExceeded)
}

func TestAckTrackerFailAllCompletesEveryToken(t *testing.T) {
	wake := newWakeSignal()
	tr := newAckTracker(wake)

	t1, t2 := newToken(), newToken()
	tr.register(1, &packets.PublishPacket{PacketID: 1}, t1, time.Minute)
	tr.register(2, &packets.PublishPacket{PacketID: 2}, t2, time.Minute)

	tr.failAll(ErrConnectionClosed)

	assert.ErrorIs(t, t1.Error(), ErrConnectionClosed)
	assert.ErrorIs(t, t2.Error(), ErrConnectionClosed)

	_, ok := tr.headTimeout()
	assert.False(t, ok)
}

func TestCompletedTokenIsImmediatelyDone(t *testing.T) {
	tok := completedToken(nil)
	select {
	case <-tok.Done():
	default:
		t.Fatal("completedToken should already be done")
	}
	assert.NoError(t, tok.Error())
}

func TestTokenCompleteIsIdempotent(t *testing.T) {
	tok := newToken()
	tok.complete(ErrConnectionClosed)
	tok.complete(ErrResendLimitExceeded)
	assert.ErrorIs(t, tok.Error(), ErrConnectionClosed)
}
