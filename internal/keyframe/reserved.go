package keyframe

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// ReservedPrefix marks feature properties that control the animation rather
// than being animated.
const ReservedPrefix = "@"

const (
	KeyDuration   = "@duration"
	KeyIterations = "@iterations"
	KeyDelay      = "@delay"
	KeyAutoplay   = "@autoplay"
	KeyEasing     = "@easing"
	KeyDelta      = "@delta"
)

// MinDuration is the shortest @duration accepted, in milliseconds.
const MinDuration = 1.0

// IsReserved reports whether a property key is an animation control key.
func IsReserved(key string) bool {
	return strings.HasPrefix(key, ReservedPrefix)
}

// controls holds the reserved values read from a feature.
type controls struct {
	easings []string // nil when @easing is absent
	deltas  []Value  // nil when @delta is absent
}

func applyControl(track *Track, c *controls, key string, raw any, logger *slog.Logger) error {
	switch key {
	case KeyDuration:
		f, ok := asFloat(raw)
		if !ok || !(f >= MinDuration) || math.IsInf(f, 1) {
			return fmt.Errorf("%w: %s must be at least %v ms, got %v", ErrInvalidProperty, key, MinDuration, raw)
		}
		track.Duration = f

	case KeyIterations:
		n, err := parseIterations(raw)
		if err != nil {
			return err
		}
		track.Iterations = n

	case KeyDelay:
		f, ok := asFloat(raw)
		if !ok || f < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number, got %v", ErrInvalidProperty, key, raw)
		}
		track.Delay = f

	case KeyAutoplay:
		b, ok := raw.(bool)
		if !ok {
			return fmt.Errorf("%w: %s must be a boolean, got %v", ErrInvalidProperty, key, raw)
		}
		track.Autoplay = &b

	case KeyEasing:
		list, ok := raw.([]any)
		if !ok {
			return fmt.Errorf("%w: %s must be an array of easing names", ErrInvalidProperty, key)
		}
		c.easings = make([]string, len(list))
		for i, v := range list {
			name, ok := v.(string)
			if !ok {
				logger.Warn("easing entry is not a name, using the default", "key", key, "index", i, "value", v)
			}
			c.easings[i] = name
		}

	case KeyDelta:
		values, err := toValues(key, raw)
		if err != nil {
			return err
		}
		c.deltas = values

	default:
		logger.Debug("ignoring unknown control key", "key", key)
	}
	return nil
}

func parseIterations(raw any) (int, error) {
	if v, ok := asFloat(raw); ok {
		if math.IsInf(v, 1) {
			return Infinite, nil
		}
		if v < 1 || v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %s must be a whole number >= 1, got %v", ErrInvalidProperty, KeyIterations, v)
		}
		return int(v), nil
	}
	if s, ok := raw.(string); ok {
		switch strings.ToLower(s) {
		case "infinite", "infinity":
			return Infinite, nil
		}
	}
	return 0, fmt.Errorf("%w: %s must be a number or \"infinite\", got %v", ErrInvalidProperty, KeyIterations, raw)
}

// asFloat accepts the numeric types a decoded or hand-built feature may hold.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// toValues converts a decoded JSON array into Values, null entries becoming gaps.
func toValues(key string, raw any) ([]Value, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be an array", ErrInvalidProperty, key)
	}
	out := make([]Value, len(list))
	for i, v := range list {
		if v == nil {
			out[i] = Gap()
			continue
		}
		n, ok := asFloat(v)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] is not numeric: %v", ErrInvalidProperty, key, i, v)
		}
		out[i] = Number(n)
	}
	return out, nil
}
