package handler

import (
	"net/http"

	"facewatch/internal/dto"
	"facewatch/internal/logger"
	wshub "facewatch/internal/service/websocket"

	"github.com/gorilla/websocket"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StatusSource reports the latest presence event.
type StatusSource interface {
	Snapshot() dto.PresenceEvent
}

// StatusWebsocketHandler streams presence events to a viewer. The current
// state is sent first, then every event the hub broadcasts.
func StatusWebsocketHandler(status StatusSource, hub *wshub.HubService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		if err := connection.WriteJSON(status.Snapshot()); err != nil {
			logger.Error("Error sending initial status: %v", err)
			connection.Close()
			return
		}

		hub.Register(connection)
		defer hub.Unregister(connection)

		for {
			_, _, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Viewer disconnected normally")
				} else {
					logger.Warning("Viewer disconnected: %v", err)
				}
				break
			}
		}
	}
}
