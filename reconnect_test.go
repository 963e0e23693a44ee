package mqttc

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReconnectDelayMatchesBackoffPowAttempt(t *testing.T) {
	assert.Equal(t, 5*time.Second, reconnectDelay(5*time.Second, 1))
	assert.Equal(t, 25*time.Second, reconnectDelay(5*time.Second, 2))
	assert.Equal(t, 125*time.Second, reconnectDelay(5*time.Second, 3))
}

func TestTriggerReconnectWithZeroLimitFailsImmediately(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer serverSide.Close()

	c, err := NewClient(
		WithHost("broker.example", 1883),
		WithClientID("no-reconnect"),
		WithDialer(&pipeDialer{conn: clientSide}),
		WithReconnectLimit(0),
	)
	if err != nil {
		t.Fatal(err)
	}
	c.conn = clientSide
	c.connected.Store(true)
	c.acks = newAckTracker(newWakeSignal())
	c.readQueue = make(chan readItem, 1)
	c.stopReader = newStopSignal()
	c.stopWriter = newStopSignal()

	cause := errors.New("pipe read failed")
	c.triggerReconnect(cause)

	assert.False(t, c.IsConnected())
	item := <-c.readQueue
	assert.ErrorIs(t, item.err, cause)
}
