package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
)

const (
	outboxSize     = 16
	keepaliveEvery = 30 * time.Second
)

// Session is one attached dashboard. Dashboards are listen-only: they receive
// sync messages through the outbox and send nothing meaningful back.
type Session struct {
	hub    *Hub
	conn   *ws.Conn
	outbox chan []byte
}

func newSession(hub *Hub, conn *ws.Conn) *Session {
	return &Session{
		hub:    hub,
		conn:   conn,
		outbox: make(chan []byte, outboxSize),
	}
}

// serve registers the session, starts the outbound pump, and blocks draining
// inbound frames. A read error is how we learn the dashboard went away; the
// session then unregisters itself.
func (s *Session) serve(ctx context.Context) {
	s.hub.Register(s)
	defer s.hub.Unregister(s)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.pump(ctx)

	for {
		if _, _, err := s.conn.Read(ctx); err != nil {
			return
		}
	}
}

// pump writes queued messages to the dashboard and pings between broadcasts
// so stale connections surface even when the board is quiet.
func (s *Session) pump(ctx context.Context) {
	keepalive := time.NewTicker(keepaliveEvery)
	defer keepalive.Stop()

	for {
		select {
		case data, ok := <-s.outbox:
			if !ok {
				// Hub closed the outbox on unregister
				return
			}
			if err := s.conn.Write(ctx, ws.MessageText, data); err != nil {
				return
			}
		case <-keepalive.C:
			if err := s.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
