package track

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/inamate/keyframes/internal/document"
	"github.com/inamate/keyframes/internal/easing"
	"github.com/inamate/keyframes/internal/keyframe"
)

const maxFeatureSize = 8 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name    string          `json:"name"`
	Feature json.RawMessage `json:"feature"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxFeatureSize)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Feature) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "feature is required"})
		return
	}

	t, err := h.service.Create(r.Context(), req.Name, req.Feature)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Get(r.Context(), mux.Vars(r)["trackId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.service.List(r.Context())
	if err != nil {
		slog.Error("list tracks failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, tracks)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["trackId"]); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Keyframes serves the compiled keyframe document of a stored track.
func (h *Handler) Keyframes(w http.ResponseWriter, r *http.Request) {
	smoothing, err := SmoothingFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	t, compiled, err := h.service.Keyframes(r.Context(), mux.Vars(r)["trackId"], smoothing)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, document.FromTrack(t.ID, t.Name, compiled))
}

// Compile compiles the posted feature without storing it.
func (h *Handler) Compile(w http.ResponseWriter, r *http.Request) {
	smoothing, err := SmoothingFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxFeatureSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	compiled, err := h.service.Compile(body, smoothing)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, document.FromTrack("", "", compiled))
}

// Easings lists the easing names a feature's @easing entries may use.
func (h *Handler) Easings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"easings": easing.Names()})
}

// SmoothingFromQuery reads optional resolution and epsilon parameters.
// It returns nil when resolution is absent.
func SmoothingFromQuery(r *http.Request) (*keyframe.Smoothing, error) {
	q := r.URL.Query()
	res := q.Get("resolution")
	if res == "" {
		return nil, nil
	}
	resolution, err := strconv.Atoi(res)
	if err != nil {
		return nil, fmt.Errorf("resolution must be an integer")
	}
	s := &keyframe.Smoothing{Resolution: resolution}
	if eps := q.Get("epsilon"); eps != "" {
		s.Epsilon, err = strconv.ParseFloat(eps, 64)
		if err != nil {
			return nil, fmt.Errorf("epsilon must be a number")
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrInvalidFeature):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
