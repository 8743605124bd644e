package ws

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/kasuganosora/skyquest/audit"
	"go.uber.org/zap"
)

// HandlerFunc processes a decoded packet.
type HandlerFunc func(ctx context.Context, s *Session, pkt *Packet) error

// Router dispatches incoming packets by type.
type Router struct {
	handlers map[string]HandlerFunc
	logger   *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{handlers: make(map[string]HandlerFunc), logger: logger}
}

// On registers fn for msgType, replacing any earlier handler.
func (r *Router) On(msgType string, fn HandlerFunc) {
	r.handlers[msgType] = fn
}

// Dispatch decodes raw, rejects replayed sequence numbers and runs the
// handler. Handler errors are reported to the client as an error packet.
func (r *Router) Dispatch(s *Session, raw []byte) {
	var pkt Packet
	if err := json.Unmarshal(raw, &pkt); err != nil {
		r.logger.Warn("malformed packet", zap.Int64("account_id", s.AccountID), zap.Error(err))
		s.Reply(0, "error", map[string]string{"error": "malformed packet"})
		return
	}

	// seq 0 opts out of replay tracking
	if pkt.Seq != 0 && pkt.Seq <= s.LastSeq {
		r.logger.Warn("replayed or out-of-order packet",
			zap.Int64("account_id", s.AccountID),
			zap.Uint64("seq", pkt.Seq),
			zap.Uint64("last_seq", s.LastSeq))
		return
	}
	if pkt.Seq != 0 {
		s.LastSeq = pkt.Seq
	}

	fn, ok := r.handlers[pkt.Type]
	if !ok {
		r.logger.Debug("unhandled message type", zap.String("type", pkt.Type), zap.Int64("account_id", s.AccountID))
		s.Reply(pkt.Seq, "error", map[string]string{"error": "unknown type", "type": pkt.Type})
		return
	}

	s.TraceID = uuid.NewString()
	ctx := audit.WithTraceID(context.Background(), s.TraceID)
	if err := fn(ctx, s, &pkt); err != nil {
		r.logger.Warn("handler error",
			zap.String("type", pkt.Type),
			zap.Int64("account_id", s.AccountID),
			zap.String("trace_id", s.TraceID),
			zap.Error(err))
		s.Reply(pkt.Seq, "error", map[string]string{"error": err.Error(), "type": pkt.Type})
	}
}
