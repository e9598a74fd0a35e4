package api

import (
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/medtrackpro/medtrack/internal/drone"
)

// handleDroneSocket streams drone snapshots to the client as JSON frames.
// Authentication happens here rather than in middleware because browsers
// cannot set headers on WebSocket upgrades; the token rides the query
// string.
func (s *Server) handleDroneSocket(c *websocket.Conn) {
	defer c.Close()

	token := c.Query("token")
	sess, err := s.sessions.Resolve(token)
	if err != nil {
		_ = c.WriteJSON(map[string]string{"error": "unauthorized"})
		return
	}

	// Snapshots flow through a small buffer; a slow client drops
	// intermediate frames instead of blocking the engine.
	updates := make(chan drone.Snapshot, 16)
	unsub := sess.Drone.Subscribe(func(snap drone.Snapshot) {
		select {
		case updates <- snap:
		default:
		}
	})
	defer unsub()

	// reader goroutine notices the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case snap := <-updates:
			if err := c.WriteJSON(snap); err != nil {
				s.logger.Debug("drone socket write failed", zap.Error(err))
				return
			}
		}
	}
}
