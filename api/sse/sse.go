// Package sse streams runtime events to UI panels as server-sent events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/skyquest/cache"
	"github.com/kasuganosora/skyquest/game/event"
	mw "github.com/kasuganosora/skyquest/middleware"
	"go.uber.org/zap"
)

// Handler serves GET /sse. It must sit behind middleware.Auth.
type Handler struct {
	pubsub    cache.PubSub
	channel   string
	keepalive time.Duration
	logger    *zap.Logger
}

// NewHandler streams messages published on channel by an event.Bridge.
func NewHandler(pubsub cache.PubSub, channel string, logger *zap.Logger) *Handler {
	return &Handler{pubsub: pubsub, channel: channel, keepalive: 30 * time.Second, logger: logger}
}

// ServeSSE writes each bridged event as "event: <NAME>" with the event data
// as JSON, until the client goes away.
func (h *Handler) ServeSSE(c *gin.Context) {
	ctx := c.Request.Context()
	msgCh, unsub, err := h.pubsub.Subscribe(ctx, h.channel)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stream unavailable"})
		return
	}
	defer unsub()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"accountId\":%d}\n\n", mw.GetAccountID(c))
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			var env event.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				h.logger.Warn("sse: bad envelope", zap.Error(err))
				continue
			}
			data := env.Data
			if len(data) == 0 {
				data = json.RawMessage("null")
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", env.Name, data)
			c.Writer.Flush()
		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()
		case <-ctx.Done():
			return
		}
	}
}
