package notifier

import (
	"net/http"

	"taskflow-leads/internal/common/logger"

	"golang.org/x/net/websocket"
)

// WebSocketHandler serves observers over websocket. Each event is written as
// one JSON text frame {"event": ..., "data": ...}. Inbound frames are ignored;
// reading only detects the client going away.
func WebSocketHandler(hub *Hub, log logger.Logger) http.Handler {
	log = logger.ForComponent(log, Component)
	return websocket.Server{
		// Any origin may observe, matching the open CORS policy of the API.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()
			serveObserver(conn, hub, log)
		},
	}
}

func serveObserver(conn *websocket.Conn, hub *Hub, log logger.Logger) {
	sub := hub.Subscribe()
	defer sub.Close()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		var discard []byte
		for {
			if err := websocket.Message.Receive(conn, &discard); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := websocket.JSON.Send(conn, ev); err != nil {
				log.Debug("observer write failed", map[string]interface{}{
					"remote": conn.Request().RemoteAddr,
					"error":  err,
				})
				return
			}
		}
	}
}
