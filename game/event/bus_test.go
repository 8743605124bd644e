package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewBus(t *testing.T) {
	b := NewBus(zaptest.NewLogger(t))
	require.NotNil(t, b)
	assert.Equal(t, 0, b.HandlerCount("ev"))
}

func TestEmit_NoHandlers(t *testing.T) {
	b := NewBus(nil)
	b.Emit(context.Background(), "noop", 42)
}

func TestSubscribe_ReceivesData(t *testing.T) {
	b := NewBus(nil)
	var got Event
	b.Subscribe("ev", 0, "h1", func(_ context.Context, ev Event) { got = ev })
	b.Emit(context.Background(), "ev", "hello")
	assert.Equal(t, "ev", got.Name)
	assert.Equal(t, "hello", got.Data)
	assert.False(t, got.EmittedAt.IsZero())
}

func TestSubscribe_PriorityThenRegistrationOrder(t *testing.T) {
	b := NewBus(nil)
	var order []string
	b.Subscribe("ev", 10, "late", func(context.Context, Event) { order = append(order, "late") })
	b.Subscribe("ev", 1, "first", func(context.Context, Event) { order = append(order, "first") })
	b.Subscribe("ev", 5, "a", func(context.Context, Event) { order = append(order, "a") })
	b.Subscribe("ev", 5, "b", func(context.Context, Event) { order = append(order, "b") })
	b.Emit(context.Background(), "ev", nil)
	assert.Equal(t, []string{"first", "a", "b", "late"}, order)
}

func TestEmit_NestedEmitIsQueuedFIFO(t *testing.T) {
	b := NewBus(nil)
	var order []string
	b.Subscribe("outer", 0, "h1", func(ctx context.Context, _ Event) {
		order = append(order, "outer-1")
		b.Emit(ctx, "inner", nil)
		order = append(order, "outer-1-done")
	})
	b.Subscribe("outer", 1, "h2", func(context.Context, Event) { order = append(order, "outer-2") })
	b.Subscribe("inner", 0, "h3", func(context.Context, Event) { order = append(order, "inner") })

	b.Emit(context.Background(), "outer", nil)
	assert.Equal(t, []string{"outer-1", "outer-1-done", "outer-2", "inner"}, order)
}

func TestEmit_PanicIsRecovered(t *testing.T) {
	b := NewBus(zaptest.NewLogger(t))
	var second bool
	b.Subscribe("ev", 0, "boom", func(context.Context, Event) { panic("boom") })
	b.Subscribe("ev", 1, "ok", func(context.Context, Event) { second = true })
	assert.NotPanics(t, func() { b.Emit(context.Background(), "ev", nil) })
	assert.True(t, second)

	// The bus must still be usable after a panic.
	second = false
	b.Emit(context.Background(), "ev", nil)
	assert.True(t, second)
}

func TestUnsubscribe_OnlyNamed(t *testing.T) {
	b := NewBus(nil)
	var c1, c2 bool
	b.Subscribe("ev", 0, "h1", func(context.Context, Event) { c1 = true })
	b.Subscribe("ev", 1, "h2", func(context.Context, Event) { c2 = true })
	b.Unsubscribe("ev", "h1")
	b.Emit(context.Background(), "ev", nil)
	assert.False(t, c1)
	assert.True(t, c2)
	assert.Equal(t, 1, b.HandlerCount("ev"))
}

func TestUnsubscribeAll(t *testing.T) {
	b := NewBus(nil)
	var c1, c2, other bool
	b.Subscribe("evA", 0, "mgr", func(context.Context, Event) { c1 = true })
	b.Subscribe("evB", 0, "mgr", func(context.Context, Event) { c2 = true })
	b.Subscribe("evA", 1, "other", func(context.Context, Event) { other = true })
	b.UnsubscribeAll("mgr")
	b.Emit(context.Background(), "evA", nil)
	b.Emit(context.Background(), "evB", nil)
	assert.False(t, c1)
	assert.False(t, c2)
	assert.True(t, other)
}

func TestIsGameplayEvent(t *testing.T) {
	assert.True(t, IsGameplayEvent(DeliverItem))
	assert.True(t, IsGameplayEvent(CharacterSwitched))
	assert.False(t, IsGameplayEvent(QuestCompleted))
	assert.False(t, IsGameplayEvent("bogus"))
}
