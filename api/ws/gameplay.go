package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kasuganosora/skyquest/game/event"
	"github.com/kasuganosora/skyquest/game/runtime"
	"github.com/kasuganosora/skyquest/game/world"
)

// Ack confirms a gameplay packet was put on the bus.
type Ack struct {
	Type string `json:"type"`
}

// RegisterGameplay routes every gameplay event type plus the ping and
// player_state packets to rt.
func RegisterGameplay(r *Router, rt *runtime.Runtime) {
	for _, name := range event.GameplayEvents {
		name := name
		r.On(name, func(ctx context.Context, s *Session, pkt *Packet) error {
			payload := event.Payload{}
			if len(pkt.Payload) > 0 {
				if err := json.Unmarshal(pkt.Payload, &payload); err != nil {
					return fmt.Errorf("decode %s payload: %w", name, err)
				}
			}
			if _, ok := payload["character"]; !ok && s.Character != "" {
				payload["character"] = s.Character
			}
			rt.Emit(ctx, name, payload)
			s.Reply(pkt.Seq, "ack", Ack{Type: name})
			return nil
		})
	}

	r.On("ping", func(_ context.Context, s *Session, pkt *Packet) error {
		s.Reply(pkt.Seq, "pong", map[string]int64{"server_ts": time.Now().UnixMilli()})
		return nil
	})

	r.On("player_state", func(ctx context.Context, s *Session, pkt *Packet) error {
		var ps world.PlayerState
		if err := json.Unmarshal(pkt.Payload, &ps); err != nil {
			return fmt.Errorf("decode player_state: %w", err)
		}
		if ps.Character == "" {
			ps.Character = s.Character
		}
		rt.Do(func() error {
			rt.World.SetLastPlayerState(ctx, ps)
			return nil
		})
		s.Reply(pkt.Seq, "ack", Ack{Type: "player_state"})
		return nil
	})
}
