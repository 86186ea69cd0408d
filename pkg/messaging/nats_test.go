package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	raw, err := encode([]byte("raw"))
	require.NoError(t, err)
	assert.Equal(t, "raw", string(raw))

	str, err := encode("text")
	require.NoError(t, err)
	assert.Equal(t, "text", string(str))

	obj, err := encode(map[string]any{"symbol": "AAPL"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"symbol":"AAPL"}`, string(obj))

	_, err = encode(make(chan int))
	assert.Error(t, err)
}

func TestCheckDisconnected(t *testing.T) {
	c := &NATSClient{natsURL: "nats://localhost:4222"}
	assert.False(t, c.IsConnected())
	assert.Error(t, c.Check(context.Background()))
	assert.NoError(t, c.Close())
}
