package track

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	geojson "github.com/paulmach/go.geojson"

	"github.com/inamate/keyframes/internal/keyframe"
	"github.com/inamate/keyframes/internal/typeid"
)

var (
	ErrNotFound       = errors.New("track not found")
	ErrInvalidFeature = errors.New("invalid keyframe feature")
)

// DBTX is the subset of pgx shared by pools, connections and transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Service struct {
	db     DBTX
	opts   keyframe.Options
	logger *slog.Logger
}

// NewService stores tracks in db and compiles them with opts.
func NewService(db DBTX, opts keyframe.Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opts.Logger = logger
	return &Service{db: db, opts: opts, logger: logger}
}

// Track is a stored source feature.
type Track struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Feature   json.RawMessage `json:"feature,omitempty"`
	Keyframes int             `json:"keyframes"`
	CreatedAt string          `json:"createdAt"`
}

// Compile compiles a feature without storing it. A non-nil smoothing
// overrides the service default.
func (s *Service) Compile(feature []byte, smoothing *keyframe.Smoothing) (*keyframe.Track, error) {
	opts := s.opts
	if smoothing != nil {
		opts.Smoothing = smoothing
	}
	compiled, err := keyframe.NewCompiler(opts).Compile(feature)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFeature, err)
	}
	return compiled, nil
}

// Create validates the feature by compiling it, then stores it. An empty
// name falls back to the feature's "name" property.
func (s *Service) Create(ctx context.Context, name string, feature []byte) (*Track, error) {
	compiled, err := s.Compile(feature, nil)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = featureName(feature)
	}

	t := &Track{
		ID:        typeid.NewTrackID(),
		Name:      name,
		Feature:   feature,
		Keyframes: len(compiled.Keyframes),
	}
	var createdAt time.Time
	err = s.db.QueryRow(ctx,
		`INSERT INTO keyframe_tracks (id, name, feature) VALUES ($1, $2, $3) RETURNING created_at`,
		t.ID, t.Name, feature,
	).Scan(&createdAt)
	if err != nil {
		return nil, fmt.Errorf("insert track: %w", err)
	}
	t.CreatedAt = createdAt.UTC().Format(time.RFC3339)

	s.logger.Info("track created", "track", t.ID, "keyframes", t.Keyframes)
	return t, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Track, error) {
	if typeid.Validate(id, typeid.PrefixTrack) != nil {
		return nil, ErrNotFound
	}

	var (
		t         = Track{ID: id}
		createdAt time.Time
	)
	err := s.db.QueryRow(ctx,
		`SELECT name, feature, created_at FROM keyframe_tracks WHERE id = $1`, id,
	).Scan(&t.Name, &t.Feature, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get track: %w", err)
	}
	t.CreatedAt = createdAt.UTC().Format(time.RFC3339)

	if compiled, err := s.Compile(t.Feature, nil); err == nil {
		t.Keyframes = len(compiled.Keyframes)
	}
	return &t, nil
}

// List returns every track, newest first, without feature bodies.
func (s *Service) List(ctx context.Context) ([]Track, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, feature, created_at FROM keyframe_tracks ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	tracks := []Track{}
	for rows.Next() {
		var (
			t         Track
			feature   []byte
			createdAt time.Time
		)
		if err := rows.Scan(&t.ID, &t.Name, &feature, &createdAt); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		t.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		if compiled, err := s.Compile(feature, nil); err == nil {
			t.Keyframes = len(compiled.Keyframes)
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	return tracks, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM keyframe_tracks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete track: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Keyframes loads a stored feature and compiles it.
func (s *Service) Keyframes(ctx context.Context, id string, smoothing *keyframe.Smoothing) (*Track, *keyframe.Track, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	compiled, err := s.Compile(t.Feature, smoothing)
	if err != nil {
		return nil, nil, err
	}
	return t, compiled, nil
}

func featureName(data []byte) string {
	f, err := geojson.UnmarshalFeature(data)
	if err != nil {
		return ""
	}
	name, _ := f.PropertyString("name")
	return name
}
