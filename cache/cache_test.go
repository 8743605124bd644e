package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LocalMapsMiss(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)
	_, err = c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNew_RedisMapsMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := New(Config{RedisAddr: mr.Addr()})
	require.NoError(t, err)
	ctx := context.Background()
	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestNewPubSub_Local(t *testing.T) {
	ps, err := NewPubSub(Config{LocalPubSubBuf: 8})
	require.NoError(t, err)
	ctx := context.Background()
	ch, cancel, err := ps.Subscribe(ctx, "events")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "events", "payload"))
	select {
	case m := <-ch:
		assert.Equal(t, "events", m.Channel)
		assert.Equal(t, "payload", m.Payload)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}
