package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendChanBuf   = 64
	writeDeadline = 10 * time.Second
	readDeadline  = 60 * time.Second
	pingInterval  = 30 * time.Second
)

// Packet is the WS message envelope in both directions.
type Packet struct {
	Seq     uint64          `json:"seq"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Session is one connected game client.
type Session struct {
	AccountID int64
	Character string
	Conn      *websocket.Conn
	SendChan  chan []byte
	Done      chan struct{}
	LastSeq   uint64
	TraceID   string

	logger *zap.Logger
}

// NewSession creates a Session and starts its writer.
func NewSession(accountID int64, character string, conn *websocket.Conn, logger *zap.Logger) *Session {
	s := newSession(accountID, character, logger)
	s.Conn = conn
	go s.writePump()
	return s
}

func newSession(accountID int64, character string, logger *zap.Logger) *Session {
	return &Session{
		AccountID: accountID,
		Character: character,
		SendChan:  make(chan []byte, sendChanBuf),
		Done:      make(chan struct{}),
		logger:    logger,
	}
}

// writePump drains SendChan and pings the client until the session closes.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer s.Conn.Close()
	for {
		select {
		case data := <-s.SendChan:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Warn("ws write error", zap.Int64("account_id", s.AccountID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.Done:
			_ = s.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send queues pkt without blocking. Packets are dropped when the client
// falls behind.
func (s *Session) Send(pkt *Packet) {
	if s.IsClosed() {
		return
	}
	data, err := json.Marshal(pkt)
	if err != nil {
		return
	}
	select {
	case s.SendChan <- data:
	case <-s.Done:
	default:
		s.logger.Warn("send channel full, dropping packet",
			zap.Int64("account_id", s.AccountID), zap.String("type", pkt.Type))
	}
}

// Reply sends a packet of the given type with v as payload.
func (s *Session) Reply(seq uint64, typ string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.Send(&Packet{Seq: seq, Type: typ, Payload: payload})
}

// Close signals the writer to shut down.
func (s *Session) Close() {
	select {
	case <-s.Done:
	default:
		close(s.Done)
	}
}

func (s *Session) IsClosed() bool {
	select {
	case <-s.Done:
		return true
	default:
		return false
	}
}
