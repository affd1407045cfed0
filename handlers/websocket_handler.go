package handlers

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Dosada05/tournament-brackets/brackets"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub      *brackets.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler accepts connections whose Origin matches one of
// allowedOrigins. A "*" entry allows every origin.
func NewWebSocketHandler(hub *brackets.Hub, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	h := &WebSocketHandler{hub: hub, logger: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r.Header.Get("Origin"), allowedOrigins)
		},
	}
	return h
}

func originAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(strings.TrimRight(a, "/"), u.Scheme+"://"+u.Host) {
			return true
		}
	}
	return false
}

// ServeWs subscribes the client to /ws/tournaments/{tournamentID}. Clients
// receive BRACKET_GENERATED and MATCH_UPDATED messages and never send.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("websocket upgrade failed", slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		return
	}

	client := &brackets.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: brackets.RoomName(tournamentID),
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
