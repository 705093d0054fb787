package keyframe

import (
	"errors"
	"math"
)

var (
	ErrEmptyArray = errors.New("keyframe: array is empty")
	ErrAllGaps    = errors.New("keyframe: array has no values to interpolate from")
)

// Lerp performs linear interpolation between a and b.
func Lerp(a, b, alpha float64) float64 {
	return a + (b-a)*alpha
}

// LerpArrayValues fills the gaps in values. Interior gaps are interpolated
// linearly between the nearest numbers on either side; leading gaps take the
// first number and trailing gaps take the last one.
func LerpArrayValues(values []Value) ([]float64, error) {
	if len(values) == 0 {
		return nil, ErrEmptyArray
	}

	out := make([]float64, len(values))
	prev := -1
	for i, v := range values {
		f, ok := v.Float()
		if !ok {
			continue
		}
		out[i] = f

		switch {
		case prev == -1:
			// Fill to the start.
			for j := 0; j < i; j++ {
				out[j] = f
			}
		case i-prev > 1:
			from := out[prev]
			span := float64(i - prev)
			for j := prev + 1; j < i; j++ {
				out[j] = Lerp(from, f, float64(j-prev)/span)
			}
		}
		prev = i
	}

	if prev == -1 {
		return nil, ErrAllGaps
	}

	// Fill to the end.
	for j := prev + 1; j < len(out); j++ {
		out[j] = out[prev]
	}
	return out, nil
}

// StretchNumericalArray spreads source over targetLength slots. Source index
// i lands at round(i/(n-1) * (targetLength-1)); every other slot is a gap.
func StretchNumericalArray(source []float64, targetLength int) []Value {
	if targetLength <= 0 {
		return nil
	}
	out := make([]Value, targetLength)

	n := len(source)
	switch n {
	case 0:
		return out
	case 1:
		out[0] = Number(source[0])
		return out
	}

	for i, f := range source {
		idx := int(math.Round(float64(i) / float64(n-1) * float64(targetLength-1)))
		out[idx] = Number(f)
	}
	return out
}
