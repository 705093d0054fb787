package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

type contextKey string

const TrackIDKey contextKey = "trackID"

// AdminKeyHeader carries the admin key on token issuing requests.
const AdminKeyHeader = "X-Admin-Key"

// AdminMiddleware rejects requests without a valid admin key.
func (s *Service) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.CheckAdminKey(r.Header.Get(AdminKeyHeader)); err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid admin key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ControlMiddleware requires a bearer control token. When the route has a
// trackId variable the token must be for that track.
func (s *Service) ControlMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid authorization format"})
			return
		}

		trackID, err := s.Validate(parts[1])
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}

		if want := mux.Vars(r)["trackId"]; want != "" && want != trackID {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "token is for another track"})
			return
		}

		ctx := context.WithValue(r.Context(), TrackIDKey, trackID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func TrackIDFromContext(ctx context.Context) string {
	trackID, _ := ctx.Value(TrackIDKey).(string)
	return trackID
}
