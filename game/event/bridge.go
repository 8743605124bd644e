package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kasuganosora/skyquest/cache"
	"go.uber.org/zap"
)

// BridgeOwner is the subscription owner used by Bridge.
const BridgeOwner = "pubsub_bridge"

// Envelope is the JSON form of an event published by Bridge.
type Envelope struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data,omitempty"`
	At   time.Time       `json:"at"`
}

// Bridge republishes bus events on a pub/sub channel for SSE subscribers.
type Bridge struct {
	ps      cache.PubSub
	channel string
	logger  *zap.Logger
}

// NewBridge creates a Bridge publishing to channel.
func NewBridge(ps cache.PubSub, channel string, logger *zap.Logger) *Bridge {
	return &Bridge{ps: ps, channel: channel, logger: logger}
}

// Channel returns the pub/sub channel name.
func (br *Bridge) Channel() string { return br.channel }

// Attach forwards every named event. Bridge handlers run after all others.
func (br *Bridge) Attach(bus *Bus, names ...string) {
	for _, n := range names {
		bus.Subscribe(n, 1000, BridgeOwner, br.forward)
	}
}

func (br *Bridge) forward(ctx context.Context, ev Event) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		br.logger.Warn("bridge: marshal event data", zap.String("event", ev.Name), zap.Error(err))
		data = nil
	}
	msg, err := json.Marshal(Envelope{Name: ev.Name, Data: data, At: ev.EmittedAt})
	if err != nil {
		br.logger.Warn("bridge: marshal envelope", zap.String("event", ev.Name), zap.Error(err))
		return
	}
	if err := br.ps.Publish(ctx, br.channel, string(msg)); err != nil {
		br.logger.Warn("bridge: publish", zap.String("event", ev.Name), zap.Error(err))
	}
}
