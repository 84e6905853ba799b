package web

import (
	"github.com/gofiber/contrib/websocket"

	"github.com/teslashibe/go-tabletop/pkg/hub"
)

// handleStatusWS sends the current voice state, then streams state and
// playback events until the client goes away.
func (s *Server) handleStatusWS(conn *websocket.Conn) {
	if err := conn.WriteJSON(hub.VoiceStateEvent(string(s.voice.Status()))); err != nil {
		return
	}
	client := hub.NewClient(s.status, conn)
	if client == nil {
		return
	}
	client.Run()
}
