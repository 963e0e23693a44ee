package mqttc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchGroupsByQoSAndRetainPreservingOrder(t *testing.T) {
	c := &Client{}
	b := c.BeginBatch()

	b.Publish("a", []byte("1"), AtMostOnce, false)
	b.Publish("b", []byte("2"), AtLeastOnce, false)
	b.Publish("c", []byte("3"), AtMostOnce, false)
	b.Publish("d", []byte("4"), AtMostOnce, true)

	require.Len(t, b.keys, 3)
	assert.Equal(t, batchKey{qos: AtMostOnce, retain: false}, b.keys[0])
	assert.Equal(t, batchKey{qos: AtLeastOnce, retain: false}, b.keys[1])
	assert.Equal(t, batchKey{qos: AtMostOnce, retain: true}, b.keys[2])

	group := b.groups[batchKey{qos: AtMostOnce, retain: false}]
	require.Len(t, group, 2)
	assert.Equal(t, "a", group[0].topic)
	assert.Equal(t, "c", group[1].topic)
}

func TestBatchFlushRequiresConnection(t *testing.T) {
	c, err := NewClient(WithHost("broker.example", 1883), WithClientID("idle"))
	require.NoError(t, err)

	b := c.BeginBatch()
	b.Publish("a", []byte("1"), AtMostOnce, false)

	err = b.Flush(context.Background())
	assert.Error(t, err)
}
