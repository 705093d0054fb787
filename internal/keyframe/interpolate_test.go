package keyframe

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestLerp(t *testing.T) {
	pairs := [][2]float64{{0, 100}, {-3.5, 7}, {1e6, -1e6}, {2, 2}}
	for _, p := range pairs {
		a, b := p[0], p[1]
		if got := Lerp(a, b, 0); got != a {
			t.Errorf("Lerp(%v, %v, 0) = %v, want %v", a, b, got, a)
		}
		if got := Lerp(a, b, 1); got != b {
			t.Errorf("Lerp(%v, %v, 1) = %v, want %v", a, b, got, b)
		}
		if got, want := Lerp(a, b, 0.5), (a+b)/2; math.Abs(got-want) > 1e-9 {
			t.Errorf("Lerp(%v, %v, 0.5) = %v, want %v", a, b, got, want)
		}
	}
}

// values builds a Value slice from a JSON array so tests read like the
// feature data they model.
func values(t *testing.T, raw string) []Value {
	t.Helper()
	var out []Value
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return out
}

func TestLerpArrayValues(t *testing.T) {
	tests := []struct {
		in   string
		want []float64
	}{
		{"[0,null,null,100,null,200]", []float64{0, 100.0 / 3, 200.0 / 3, 100, 150, 200}},
		{"[null,0,null,100,null,null,null]", []float64{0, 0, 50, 100, 100, 100, 100}},
		{"[null,null,7]", []float64{7, 7, 7}},
		{"[1,2,3]", []float64{1, 2, 3}},
		{"[0]", []float64{0}},
	}
	for _, tt := range tests {
		got, err := LerpArrayValues(values(t, tt.in))
		if err != nil {
			t.Fatalf("LerpArrayValues(%s): %v", tt.in, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("LerpArrayValues(%s) = %v, want %v", tt.in, got, tt.want)
		}
		for i := range got {
			if math.Abs(got[i]-tt.want[i]) > 1e-9 {
				t.Errorf("LerpArrayValues(%s)[%d] = %v, want %v", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestLerpArrayValuesFailures(t *testing.T) {
	if _, err := LerpArrayValues(nil); !errors.Is(err, ErrEmptyArray) {
		t.Errorf("empty array: err = %v, want ErrEmptyArray", err)
	}
	if _, err := LerpArrayValues(values(t, "[null,null,null]")); !errors.Is(err, ErrAllGaps) {
		t.Errorf("all gaps: err = %v, want ErrAllGaps", err)
	}
}

func TestZeroIsNotAGap(t *testing.T) {
	v := Number(0)
	if v.IsGap() {
		t.Fatal("Number(0) reported as gap")
	}
	if !Gap().IsGap() || !(Value{}).IsGap() {
		t.Fatal("Gap() and the zero Value must be gaps")
	}
}

func TestStretchNumericalArray(t *testing.T) {
	got := StretchNumericalArray([]float64{0, 1, 2}, 10)
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	placed := map[int]float64{0: 0, 5: 1, 9: 2}
	for i, v := range got {
		want, ok := placed[i]
		f, set := v.Float()
		if ok != set {
			t.Errorf("index %d: gap = %v, want gap = %v", i, !set, !ok)
			continue
		}
		if ok && f != want {
			t.Errorf("index %d = %v, want %v", i, f, want)
		}
	}

	single := StretchNumericalArray([]float64{4}, 3)
	if f, ok := single[0].Float(); !ok || f != 4 {
		t.Errorf("single source: index 0 = %v, want 4", single[0])
	}
	if !single[1].IsGap() || !single[2].IsGap() {
		t.Errorf("single source: trailing slots should be gaps, got %v", single)
	}
}

func TestStretchThenFill(t *testing.T) {
	filled, err := LerpArrayValues(StretchNumericalArray([]float64{0, 10}, 5))
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 2.5, 5, 7.5, 10}
	for i := range want {
		if math.Abs(filled[i]-want[i]) > 1e-9 {
			t.Errorf("filled[%d] = %v, want %v", i, filled[i], want[i])
		}
	}
}
