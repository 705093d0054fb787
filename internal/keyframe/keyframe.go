// Package keyframe holds the keyframe model and the compiler that turns
// GeoJSON features into keyframe tracks.
package keyframe

import (
	"maps"
)

// Infinite is the iteration count of a track that loops forever.
const Infinite = -1

// Keyframe is a control point on a normalized [0,1] timeline.
type Keyframe struct {
	// Props are the property values at this keyframe.
	Props map[string]float64
	// Delta is the keyframe's position on the timeline.
	Delta float64
	// Easing names the easing of the segment leaving this keyframe. Empty
	// means the animation default.
	Easing string
	// UserData is carried through untouched.
	UserData map[string]any
}

// Clone returns a copy of k that shares nothing mutable with it.
func (k Keyframe) Clone() Keyframe {
	out := Keyframe{
		Props:  maps.Clone(k.Props),
		Delta:  k.Delta,
		Easing: k.Easing,
	}
	if k.UserData != nil {
		out.UserData = maps.Clone(k.UserData)
	}
	return out
}

// Track is a compiled keyframe list together with the animation settings
// its source requested. Zero settings mean "not specified".
type Track struct {
	Keyframes []Keyframe

	// Duration in milliseconds.
	Duration float64
	// Iterations, or Infinite.
	Iterations int
	// Delay before the first iteration starts, in milliseconds.
	Delay    float64
	Autoplay *bool
}
