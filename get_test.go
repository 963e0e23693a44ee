package mqttc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDiscardsStaleErrorMarkerFromPreviousReconnectCycle(t *testing.T) {
	c := &Client{readQueue: make(chan readItem, 2)}

	staleErr := errors.New("stale: from an earlier reconnect cycle")
	c.readQueue <- readItem{err: staleErr, at: time.Now().Add(-time.Hour).UnixNano()}

	msg := &Message{Topic: "a/b", QoS: AtMostOnce}
	go func() {
		time.Sleep(20 * time.Millisecond)
		c.readQueue <- readItem{msg: msg}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Same(t, msg, got)
}

func TestGetRaisesFreshErrorMarker(t *testing.T) {
	c := &Client{readQueue: make(chan readItem, 1)}

	cause := errors.New("connection lost")
	go func() {
		time.Sleep(20 * time.Millisecond)
		c.readQueue <- readItem{err: cause, at: time.Now().UnixNano()}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := c.Get(ctx)
	assert.ErrorIs(t, err, cause)
}
