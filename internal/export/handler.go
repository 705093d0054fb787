package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/inamate/keyframes/internal/engine"
	"github.com/inamate/keyframes/internal/keyframe"
	"github.com/inamate/keyframes/internal/track"
)

const maxFeatureSize = 4 << 20 // 4MB

// Tracks is the part of the track service the export endpoints use.
type Tracks interface {
	Keyframes(ctx context.Context, id string, smoothing *keyframe.Smoothing) (*track.Track, *keyframe.Track, error)
	Compile(feature []byte, smoothing *keyframe.Smoothing) (*keyframe.Track, error)
}

type Handler struct {
	tracks Tracks
	base   engine.Config
}

// NewHandler captures tracks with base supplying the settings a track
// leaves unset.
func NewHandler(tracks Tracks, base engine.Config) *Handler {
	return &Handler{tracks: tracks, base: base}
}

// Frames serves GET /api/tracks/{trackId}/frames?fps=&format=json|csv.
func (h *Handler) Frames(w http.ResponseWriter, r *http.Request) {
	fps, format, smoothing, err := captureParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	t, compiled, err := h.tracks.Keyframes(r.Context(), mux.Vars(r)["trackId"], smoothing)
	if err != nil {
		switch {
		case errors.Is(err, track.ErrNotFound):
			http.Error(w, "track not found", http.StatusNotFound)
		case errors.Is(err, track.ErrInvalidFeature):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			slog.Error("load track for export", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	h.capture(w, compiled, fps, format, t.Name)
}

// FeatureFrames serves POST /api/frames, capturing a GeoJSON feature posted
// in the body without storing it.
func (h *Handler) FeatureFrames(w http.ResponseWriter, r *http.Request) {
	fps, format, smoothing, err := captureParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxFeatureSize))
	if err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	compiled, err := h.tracks.Compile(body, smoothing)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	h.capture(w, compiled, fps, format, "")
}

func (h *Handler) capture(w http.ResponseWriter, compiled *keyframe.Track, fps int, format, name string) {
	frames, err := Capture(engine.ConfigFromTrack(compiled, h.base), fps)
	if err != nil {
		if errors.Is(err, ErrTooManyFrames) {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	slog.Info("frames captured", "frames", len(frames), "fps", fps, "format", format)

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		if name != "" {
			w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, sanitize(name)))
		}
		if err := WriteCSV(w, frames); err != nil {
			slog.Error("write csv", "error", err)
		}
	default:
		writeJSON(w, http.StatusOK, frames)
	}
}

func captureParams(r *http.Request) (fps int, format string, smoothing *keyframe.Smoothing, err error) {
	q := r.URL.Query()

	fps = DefaultFPS
	if s := q.Get("fps"); s != "" {
		fps, err = strconv.Atoi(s)
		if err != nil || fps < 1 || fps > MaxFPS {
			return 0, "", nil, fmt.Errorf("fps must be between 1 and %d", MaxFPS)
		}
	}

	format = q.Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		return 0, "", nil, fmt.Errorf("invalid format: must be json or csv")
	}

	smoothing, err = track.SmoothingFromQuery(r)
	return fps, format, smoothing, err
}

// WriteCSV writes one row per frame: index, time, delta, iteration, then
// every property in name order. Properties missing from a frame are empty.
func WriteCSV(w io.Writer, frames []Frame) error {
	names := map[string]struct{}{}
	for _, f := range frames {
		for k := range f.Props {
			names[k] = struct{}{}
		}
	}
	props := make([]string, 0, len(names))
	for k := range names {
		props = append(props, k)
	}
	sort.Strings(props)

	cw := csv.NewWriter(w)
	header := append([]string{"index", "time", "delta", "iteration"}, props...)
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for _, f := range frames {
		row[0] = strconv.Itoa(f.Index)
		row[1] = formatFloat(f.Time)
		row[2] = formatFloat(f.Delta)
		row[3] = strconv.Itoa(f.Iteration)
		for i, k := range props {
			if v, ok := f.Props[k]; ok {
				row[4+i] = formatFloat(v)
			} else {
				row[4+i] = ""
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
