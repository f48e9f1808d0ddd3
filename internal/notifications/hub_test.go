package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub()

	c1, err := hub.Register("u1", nil)
	require.NoError(t, err)
	c2, err := hub.Register("u1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Connections("u1"))

	assert.Equal(t, 2, hub.Deliver("u1", []byte("hi")))
	assert.Equal(t, 0, hub.Deliver("nobody", []byte("hi")))

	hub.Unregister(c1)
	hub.Unregister(c1)
	assert.Equal(t, 1, hub.Connections("u1"))

	_, open := <-c1.Send
	assert.True(t, open, "buffered message is still readable")
	_, open = <-c1.Send
	assert.False(t, open)

	hub.Unregister(c2)
	assert.Equal(t, 0, hub.Connections("u1"))
}

func TestHub_PerUserLimit(t *testing.T) {
	hub := NewHub()
	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register("u1", nil)
		require.NoError(t, err)
	}
	_, err := hub.Register("u1", nil)
	assert.Error(t, err)

	_, err = hub.Register("u2", nil)
	assert.NoError(t, err)
}

func TestHub_DeliverDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register("u1", nil)
	require.NoError(t, err)

	for i := 0; i < cap(c.Send); i++ {
		require.Equal(t, 1, hub.Deliver("u1", []byte("x")))
	}
	assert.Equal(t, 0, hub.Deliver("u1", []byte("overflow")))
}

func TestHub_Shutdown(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register("u1", nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Equal(t, 0, hub.Connections("u1"))

	_, open := <-c.Send
	assert.False(t, open)

	hub.Unregister(c)
}
