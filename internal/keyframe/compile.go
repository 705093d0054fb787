package keyframe

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	geojson "github.com/paulmach/go.geojson"

	"github.com/inamate/keyframes/internal/easing"
	"github.com/inamate/keyframes/internal/geopath"
)

var (
	ErrMissingGeometry     = errors.New("keyframe: feature has no geometry")
	ErrUnsupportedGeometry = errors.New("keyframe: unsupported geometry type")
	ErrInvalidCoordinate   = errors.New("keyframe: invalid coordinate")
	ErrInvalidProperty     = errors.New("keyframe: invalid property")
	ErrLengthMismatch      = errors.New("keyframe: array length mismatch")
	ErrSmoothingLimit      = errors.New("keyframe: smoothing out of range")
)

// Property names the compiler gives to coordinate components.
const (
	PropLng      = "lng"
	PropLat      = "lat"
	PropAltitude = "altitude"
)

// Smoothing enables path simplification and Bezier smoothing.
type Smoothing struct {
	// Resolution is the number of samples per original segment.
	Resolution int
	// Epsilon is the simplification distance factor. Zero disables
	// simplification.
	Epsilon float64
}

// Smoothing limits. Simplification resamples a path of n vertices into about
// (n-1)/Epsilon points before dropping any, and smoothing multiplies the
// survivors by Resolution.
const (
	MaxResolution     = 64
	MinEpsilon        = 0.01
	MaxSmoothedPoints = 100_000
)

// Validate checks the parameters without regard to any path.
func (s Smoothing) Validate() error {
	if s.Resolution < 1 || s.Resolution > MaxResolution {
		return fmt.Errorf("%w: resolution must be between 1 and %d, got %d", ErrSmoothingLimit, MaxResolution, s.Resolution)
	}
	if math.IsNaN(s.Epsilon) || math.IsInf(s.Epsilon, 0) || s.Epsilon < 0 || (s.Epsilon > 0 && s.Epsilon < MinEpsilon) {
		return fmt.Errorf("%w: epsilon must be 0 or at least %v, got %v", ErrSmoothingLimit, MinEpsilon, s.Epsilon)
	}
	return nil
}

// maxPoints bounds the size of any intermediate path when smoothing n vertices.
func (s Smoothing) maxPoints(n int) float64 {
	spans := float64(n - 1)
	if s.Epsilon > 0 {
		spans = math.Ceil(spans/s.Epsilon) + 1
	}
	return spans*float64(s.Resolution) + 1
}

type Options struct {
	// DefaultEasing is used for every keyframe when the feature has no
	// @easing list, and for unnamed entries of one.
	DefaultEasing string
	// Smoothing is optional.
	Smoothing *Smoothing
	Logger    *slog.Logger
}

// Compiler turns keyframeable GeoJSON features into keyframe tracks.
type Compiler struct {
	opts   Options
	logger *slog.Logger
}

func NewCompiler(opts Options) *Compiler {
	if opts.DefaultEasing == "" {
		opts.DefaultEasing = easing.DefaultName
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{opts: opts, logger: logger}
}

// Compile parses a GeoJSON feature and compiles it.
func (c *Compiler) Compile(data []byte) (*Track, error) {
	feature, err := geojson.UnmarshalFeature(data)
	if err != nil {
		return nil, fmt.Errorf("keyframe: parse feature: %w", err)
	}
	return c.CompileFeature(feature)
}

// channel is one animatable per-vertex property array.
type channel struct {
	name   string
	values []Value
}

// CompileFeature converts the feature's geometry and per-vertex property
// arrays into a track.
func (c *Compiler) CompileFeature(feature *geojson.Feature) (*Track, error) {
	if feature == nil || feature.Geometry == nil || feature.Geometry.Type == "" {
		return nil, ErrMissingGeometry
	}

	coords, err := flatten(feature.Geometry)
	if err != nil {
		return nil, err
	}

	points, altitude, err := splitCoordinates(coords)
	if err != nil {
		return nil, err
	}

	track := &Track{}
	var ctl controls
	var channels []channel

	keys := make([]string, 0, len(feature.Properties))
	for key := range feature.Properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw := feature.Properties[key]
		if IsReserved(key) {
			if err := applyControl(track, &ctl, key, raw, c.logger); err != nil {
				return nil, err
			}
			continue
		}
		if _, isArray := raw.([]any); !isArray {
			c.logger.Debug("ignoring non-array property", "property", key)
			continue
		}
		if key == PropLng || key == PropLat || key == PropAltitude {
			c.logger.Warn("property shadows a coordinate component, ignoring", "property", key)
			continue
		}
		values, err := toValues(key, raw)
		if err != nil {
			return nil, err
		}
		channels = append(channels, channel{name: key, values: values})
	}
	if altitude != nil {
		channels = append(channels, channel{name: PropAltitude, values: altitude})
	}

	if ctl.deltas == nil {
		c.logger.Warn("feature has no delta list, spreading keyframes evenly", "key", KeyDelta, "points", len(points))
	}
	if ctl.easings == nil {
		c.logger.Warn("feature has no easing list, using default", "key", KeyEasing, "easing", c.opts.DefaultEasing)
	}

	if c.opts.Smoothing != nil {
		track.Keyframes, err = c.smoothed(points, channels)
	} else {
		track.Keyframes, err = c.direct(points, channels, ctl)
	}
	if err != nil {
		return nil, err
	}
	return track, nil
}

// direct builds one keyframe per vertex. Every array must match the vertex count.
func (c *Compiler) direct(points []geopath.Point, channels []channel, ctl controls) ([]Keyframe, error) {
	n := len(points)

	deltas := uniformDeltas(n)
	if ctl.deltas != nil {
		if len(ctl.deltas) != n {
			return nil, mismatch(KeyDelta, len(ctl.deltas), n)
		}
		filled, err := fill(KeyDelta, ctl.deltas)
		if err != nil {
			return nil, err
		}
		deltas = filled
	}

	easings := c.defaultEasings(n)
	if ctl.easings != nil {
		if len(ctl.easings) != n {
			return nil, mismatch(KeyEasing, len(ctl.easings), n)
		}
		for i, name := range ctl.easings {
			if name != "" {
				easings[i] = name
			}
		}
	}

	columns := make(map[string][]float64, len(channels))
	for _, ch := range channels {
		if len(ch.values) != n {
			return nil, mismatch(ch.name, len(ch.values), n)
		}
		filled, err := fill(ch.name, ch.values)
		if err != nil {
			return nil, err
		}
		columns[ch.name] = filled
	}

	return build(points, deltas, easings, columns), nil
}

// smoothed simplifies and smooths the path, then stretches every channel
// onto the new vertices and regenerates deltas and easings.
func (c *Compiler) smoothed(points []geopath.Point, channels []channel) ([]Keyframe, error) {
	s := c.opts.Smoothing
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if est := s.maxPoints(len(points)); est > MaxSmoothedPoints {
		return nil, fmt.Errorf("%w: %d vertices would smooth to about %.0f points, limit %d",
			ErrSmoothingLimit, len(points), est, MaxSmoothedPoints)
	}
	path := geopath.Smooth(geopath.Simplify(points, s.Epsilon), s.Resolution)
	m := len(path)

	c.logger.Debug("smoothed path", "points", len(points), "smoothed", m,
		"resolution", s.Resolution, "epsilon", s.Epsilon)

	columns := make(map[string][]float64, len(channels))
	for _, ch := range channels {
		source, err := fill(ch.name, ch.values)
		if err != nil {
			return nil, err
		}
		stretched, err := fill(ch.name, StretchNumericalArray(source, m))
		if err != nil {
			return nil, err
		}
		columns[ch.name] = stretched
	}

	return build(path, uniformDeltas(m), c.defaultEasings(m), columns), nil
}

func build(points []geopath.Point, deltas []float64, easings []string, columns map[string][]float64) []Keyframe {
	keyframes := make([]Keyframe, len(points))
	for i, p := range points {
		props := make(map[string]float64, len(columns)+2)
		props[PropLng] = p.Lng
		props[PropLat] = p.Lat
		for name, column := range columns {
			props[name] = column[i]
		}
		keyframes[i] = Keyframe{
			Props:  props,
			Delta:  deltas[i],
			Easing: easings[i],
		}
	}
	return keyframes
}

func (c *Compiler) defaultEasings(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = c.opts.DefaultEasing
	}
	return out
}

// uniformDeltas spreads n keyframes as index / n.
func uniformDeltas(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) / float64(n)
	}
	return out
}

func fill(name string, values []Value) ([]float64, error) {
	if !HasGaps(values) {
		out := make([]float64, len(values))
		for i, v := range values {
			out[i], _ = v.Float()
		}
		return out, nil
	}
	out, err := LerpArrayValues(values)
	if err != nil {
		return nil, fmt.Errorf("keyframe: property %q: %w", name, err)
	}
	return out, nil
}

func mismatch(name string, got, want int) error {
	return fmt.Errorf("%w: %s has %d entries, geometry has %d coordinates", ErrLengthMismatch, name, got, want)
}

// flatten collects the geometry's coordinates into one ordered sequence.
// Rings and lines are concatenated; polygon holes get no special treatment.
func flatten(g *geojson.Geometry) ([][]float64, error) {
	switch g.Type {
	case geojson.GeometryPoint:
		return [][]float64{g.Point}, nil
	case geojson.GeometryMultiPoint:
		return g.MultiPoint, nil
	case geojson.GeometryLineString:
		return g.LineString, nil
	case geojson.GeometryMultiLineString:
		return concat(g.MultiLineString), nil
	case geojson.GeometryPolygon:
		return concat(g.Polygon), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGeometry, g.Type)
	}
}

func concat(parts [][][]float64) [][]float64 {
	var out [][]float64
	for _, part := range parts {
		out = append(out, part...)
	}
	return out
}

// splitCoordinates separates 2D positions from the optional altitude column.
// altitude is nil for purely 2D input; vertices without one are gaps.
func splitCoordinates(coords [][]float64) ([]geopath.Point, []Value, error) {
	if len(coords) == 0 {
		return nil, nil, fmt.Errorf("%w: geometry has no coordinates", ErrInvalidCoordinate)
	}

	points := make([]geopath.Point, len(coords))
	altitude := make([]Value, len(coords))
	has3D := false
	for i, c := range coords {
		if len(c) < 2 {
			return nil, nil, fmt.Errorf("%w: coordinate %d has %d components", ErrInvalidCoordinate, i, len(c))
		}
		points[i] = geopath.Point{Lng: c[0], Lat: c[1]}
		if len(c) >= 3 {
			altitude[i] = Number(c[2])
			has3D = true
		}
	}
	if !has3D {
		return points, nil, nil
	}
	return points, altitude, nil
}
