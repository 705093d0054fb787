package collab

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inamate/keyframes/internal/typeid"
)

// TokenValidator resolves a control token to the track it grants.
type TokenValidator interface {
	Validate(token string) (string, error)
}

type Handler struct {
	hub     *Hub
	tokens  TokenValidator
	origins []string
}

func NewHandler(hub *Hub, tokens TokenValidator, origins []string) *Handler {
	return &Handler{hub: hub, tokens: tokens, origins: origins}
}

// ServeWS joins the room of the trackId route variable. Anyone may watch;
// a token query parameter for the same track grants control.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	trackID := mux.Vars(r)["trackId"]
	if err := typeid.Validate(trackID, typeid.PrefixTrack); err != nil {
		http.Error(w, "track not found", http.StatusNotFound)
		return
	}

	canControl := false
	if token := r.URL.Query().Get("token"); token != "" {
		subject, err := h.tokens.Validate(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if subject != trackID {
			http.Error(w, "token is for another track", http.StatusForbidden)
			return
		}
		canControl = true
	}

	displayName := strings.TrimSpace(r.URL.Query().Get("name"))
	if displayName == "" {
		displayName = "Viewer"
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	viewerID := "viewer-" + clientID[:8]
	client := NewClient(h.hub, conn, viewerID, displayName, trackID, clientID, canControl)

	h.hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
