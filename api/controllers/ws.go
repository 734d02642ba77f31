package controllers

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/camilavaldes/splitabill-backend/api/responses"
	"github.com/camilavaldes/splitabill-backend/api/validators"
	"github.com/camilavaldes/splitabill-backend/internal/hub"
	"github.com/camilavaldes/splitabill-backend/internal/realtime"
	"github.com/camilavaldes/splitabill-backend/pkg/config"
	"github.com/camilavaldes/splitabill-backend/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origin policy is enforced by the CORS layer for the rest of the API;
	// the socket accepts any origin and relies on session ids being unguessable.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SessionSocket upgrades the request and hands the connection to the
// realtime dispatcher. An unknown session id closes the socket immediately.
func SessionSocket(dispatcher *realtime.Dispatcher, cfg config.HubConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := validators.ParseUUIDParam(r, "sessionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the handshake failure.
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "websocket upgrade failed")
			return
		}

		conn := hub.NewWSConn(ws, cfg.WriteTimeout)
		defer conn.Close()

		ctx := logg.WithSessionID(r.Context(), sessionID.String())
		if err := dispatcher.Serve(ctx, conn, sessionID); err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "websocket session rejected")
		}
	}
}
