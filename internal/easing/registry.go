package easing

import (
	"sort"

	"github.com/tanema/gween/ease"
)

// DefaultName is used when neither a keyframe nor its animation names an easing.
const DefaultName = "Linear"

var registry = map[string]Func{
	"Linear": Linear,

	"QuadraticIn":    QuadraticIn,
	"QuadraticOut":   QuadraticOut,
	"QuadraticInOut": QuadraticInOut,

	"CubicIn":    CubicIn,
	"CubicOut":   CubicOut,
	"CubicInOut": CubicInOut,

	"SinusoidalIn":    SinusoidalIn,
	"SinusoidalOut":   SinusoidalOut,
	"SinusoidalInOut": SinusoidalInOut,

	"ExponentialIn":    ExponentialIn,
	"ExponentialOut":   ExponentialOut,
	"ExponentialInOut": ExponentialInOut,

	"ElasticIn":    ElasticIn,
	"ElasticOut":   ElasticOut,
	"ElasticInOut": ElasticInOut,

	"BounceIn":    BounceIn,
	"BounceOut":   BounceOut,
	"BounceInOut": BounceInOut,

	// Families without a house formula come straight from gween.
	"QuarticIn":     FromTween(ease.InQuart),
	"QuarticOut":    FromTween(ease.OutQuart),
	"QuarticInOut":  FromTween(ease.InOutQuart),
	"QuinticIn":     FromTween(ease.InQuint),
	"QuinticOut":    FromTween(ease.OutQuint),
	"QuinticInOut":  FromTween(ease.InOutQuint),
	"CircularIn":    FromTween(ease.InCirc),
	"CircularOut":   FromTween(ease.OutCirc),
	"CircularInOut": FromTween(ease.InOutCirc),
	"BackIn":        FromTween(ease.InBack),
	"BackOut":       FromTween(ease.OutBack),
	"BackInOut":     FromTween(ease.InOutBack),
}

// FromTween adapts a gween tween function (t, begin, change, duration) to a
// normalized Func by tweening from 0 to 1 over a unit duration.
func FromTween(fn ease.TweenFunc) Func {
	return func(k float64) float64 {
		return float64(fn(float32(k), 0, 1, 1))
	}
}

// Lookup returns the easing registered under name.
func Lookup(name string) (Func, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Get returns the easing registered under name, or Linear.
func Get(name string) Func {
	if fn, ok := registry[name]; ok {
		return fn
	}
	return Linear
}

// Names returns every registered easing name in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
