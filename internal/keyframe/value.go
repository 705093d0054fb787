package keyframe

import (
	"encoding/json"
	"strconv"
)

// Value is either a number or a gap: a vertex with no value for a property.
// The zero Value is a gap, so a real 0 is never mistaken for one.
type Value struct {
	n   float64
	set bool
}

// Number returns a Value holding f.
func Number(f float64) Value {
	return Value{n: f, set: true}
}

// Gap returns the "no value at this vertex" marker.
func Gap() Value {
	return Value{}
}

// IsGap reports whether v carries no number.
func (v Value) IsGap() bool {
	return !v.set
}

// Float returns the number and whether one is present.
func (v Value) Float() (float64, bool) {
	return v.n, v.set
}

func (v Value) String() string {
	if !v.set {
		return "gap"
	}
	return strconv.FormatFloat(v.n, 'g', -1, 64)
}

// MarshalJSON encodes gaps as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte("null"), nil
	}
	return json.Marshal(v.n)
}

// UnmarshalJSON decodes null as a gap.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Gap()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Number(f)
	return nil
}

// HasGaps reports whether any element of values is a gap.
func HasGaps(values []Value) bool {
	for _, v := range values {
		if v.IsGap() {
			return true
		}
	}
	return false
}
