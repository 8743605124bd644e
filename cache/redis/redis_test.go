package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKV_AgainstMiniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	kv, err := NewKV(Config{Addr: mr.Addr()})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = kv.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, "save", `{"version":2}`, time.Minute))
	v, err := kv.Get(ctx, "save")
	require.NoError(t, err)
	assert.Equal(t, `{"version":2}`, v)

	ok, err := kv.SetNX(ctx, "save", "other", 0)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)
	exists, err := kv.Exists(ctx, "save")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNewKV_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err := NewKV(Config{Addr: addr})
	assert.Error(t, err)
}

func TestPubSub_AgainstMiniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	ps, err := NewPubSub(Config{Addr: mr.Addr()})
	require.NoError(t, err)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "runtime")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "runtime", "hi"))
	select {
	case m := <-ch:
		assert.Equal(t, [2]string{"runtime", "hi"}, m)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}
