// Package event implements the process-wide publish/subscribe channel that
// connects gameplay code, the quest runtime and the UI collaborators.
package event

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is one emitted message. Data's concrete type is implied by Name.
type Event struct {
	Name      string
	Data      interface{}
	EmittedAt time.Time
}

// Handler reacts to a single event.
type Handler func(ctx context.Context, ev Event)

type subscription struct {
	priority int
	seq      uint64
	owner    string
	fn       Handler
}

type pending struct {
	ctx context.Context
	ev  Event
}

// Bus dispatches events synchronously and in emission order.
//
// An Emit issued from inside a handler is queued behind the event currently
// being dispatched; the outermost Emit drains the queue before returning.
// Callers that emit from several goroutines must serialize access themselves
// (see runtime.Runtime.Do).
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]*subscription
	seq    uint64
	logger *zap.Logger

	qmu      sync.Mutex
	queue    []pending
	draining bool
}

// NewBus creates an empty Bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{subs: make(map[string][]*subscription), logger: logger}
}

// Subscribe adds fn for the named event. Lower priority runs first; equal
// priorities run in registration order. owner is used by Unsubscribe.
func (b *Bus) Subscribe(name string, priority int, owner string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	entries := append(b.subs[name], &subscription{priority: priority, seq: b.seq, owner: owner, fn: fn})
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority < entries[j].priority
		}
		return entries[i].seq < entries[j].seq
	})
	b.subs[name] = entries
}

// Unsubscribe removes every handler owned by owner for the named event.
func (b *Bus) Unsubscribe(name, owner string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[name] = without(b.subs[name], owner)
}

// UnsubscribeAll removes every handler owned by owner.
func (b *Bus) UnsubscribeAll(owner string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name, entries := range b.subs {
		b.subs[name] = without(entries, owner)
	}
}

func without(entries []*subscription, owner string) []*subscription {
	n := 0
	for _, e := range entries {
		if e.owner != owner {
			entries[n] = e
			n++
		}
	}
	return entries[:n]
}

// HandlerCount reports how many handlers are subscribed to name.
func (b *Bus) HandlerCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}

// Emit publishes data under name.
func (b *Bus) Emit(ctx context.Context, name string, data interface{}) {
	b.qmu.Lock()
	b.queue = append(b.queue, pending{ctx: ctx, ev: Event{Name: name, Data: data, EmittedAt: time.Now()}})
	if b.draining {
		b.qmu.Unlock()
		return
	}
	b.draining = true
	b.qmu.Unlock()

	for {
		b.qmu.Lock()
		if len(b.queue) == 0 {
			b.draining = false
			b.qmu.Unlock()
			return
		}
		next := b.queue[0]
		b.queue[0] = pending{}
		b.queue = b.queue[1:]
		b.qmu.Unlock()

		b.dispatch(next.ctx, next.ev)
	}
}

func (b *Bus) dispatch(ctx context.Context, ev Event) {
	b.mu.RLock()
	entries := make([]*subscription, len(b.subs[ev.Name]))
	copy(entries, b.subs[ev.Name])
	b.mu.RUnlock()

	for _, e := range entries {
		b.call(ctx, e, ev)
	}
}

func (b *Bus) call(ctx context.Context, e *subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("event", ev.Name),
				zap.String("owner", e.owner),
				zap.Any("recover", r))
		}
	}()
	e.fn(ctx, ev)
}
