package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type controlTokenRequest struct {
	TrackID string `json:"trackId"`
}

// IssueControlToken serves POST /auth/control-token. Mount it behind
// AdminMiddleware.
func (h *Handler) IssueControlToken(w http.ResponseWriter, r *http.Request) {
	var req controlTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.TrackID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "trackId is required"})
		return
	}

	token, err := h.service.Issue(req.TrackID)
	if err != nil {
		slog.Warn("issue control token failed", "error", err, "track", req.TrackID)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid trackId"})
		return
	}

	writeJSON(w, http.StatusCreated, token)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
