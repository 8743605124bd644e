// Package ws accepts gameplay events from the game client over WebSocket.
package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kasuganosora/skyquest/config"
	mw "github.com/kasuganosora/skyquest/middleware"
	"go.uber.org/zap"
)

// Handler serves GET /ws. It must sit behind middleware.Auth.
type Handler struct {
	router   *Router
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler. An empty sec.AllowedOrigins accepts every
// origin.
func NewHandler(sec config.SecurityConfig, router *Router, logger *zap.Logger) *Handler {
	allowed := sec.AllowedOrigins
	return &Handler{
		router: router,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, o := range allowed {
					if o == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// ServeWS upgrades the connection and reads packets until it closes.
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	s := NewSession(mw.GetAccountID(c), mw.GetCharacter(c), conn, h.logger)
	h.logger.Info("game client connected", zap.Int64("account_id", s.AccountID), zap.String("character", s.Character))
	h.readPump(s)
}

func (h *Handler) readPump(s *Session) {
	defer func() {
		s.Close()
		h.logger.Info("game client disconnected", zap.Int64("account_id", s.AccountID))
	}()

	s.Conn.SetReadLimit(64 << 10)
	_ = s.Conn.SetReadDeadline(time.Now().Add(readDeadline))
	s.Conn.SetPongHandler(func(string) error {
		return s.Conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	for {
		_, raw, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived) {
				h.logger.Warn("ws unexpected close", zap.Int64("account_id", s.AccountID), zap.Error(err))
			}
			return
		}
		_ = s.Conn.SetReadDeadline(time.Now().Add(readDeadline))
		h.router.Dispatch(s, raw)
	}
}
