package keyframe

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
)

func quietCompiler(opts Options) *Compiler {
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCompiler(opts)
}

const roundTripFeature = `{
	"type": "Feature",
	"geometry": {"type": "LineString", "coordinates": [[10, 50], [11, 51], [12, 52]]},
	"properties": {
		"@delta": [0, 0.25, 1],
		"@easing": ["QuadraticIn", "BounceOut", "Linear"],
		"@duration": 4000,
		"@iterations": "infinite",
		"@delay": 250,
		"@autoplay": true,
		"speed": [1, 2, 3],
		"name": "route"
	}
}`

func TestCompileRoundTrip(t *testing.T) {
	track, err := quietCompiler(Options{}).Compile([]byte(roundTripFeature))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	if track.Duration != 4000 || track.Iterations != Infinite || track.Delay != 250 {
		t.Errorf("controls = duration %v iterations %v delay %v", track.Duration, track.Iterations, track.Delay)
	}
	if track.Autoplay == nil || !*track.Autoplay {
		t.Errorf("autoplay = %v, want true", track.Autoplay)
	}

	wantDelta := []float64{0, 0.25, 1}
	wantEasing := []string{"QuadraticIn", "BounceOut", "Linear"}
	wantSpeed := []float64{1, 2, 3}
	if len(track.Keyframes) != 3 {
		t.Fatalf("got %d keyframes, want 3", len(track.Keyframes))
	}
	for i, kf := range track.Keyframes {
		if kf.Delta != wantDelta[i] {
			t.Errorf("keyframe %d delta = %v, want %v", i, kf.Delta, wantDelta[i])
		}
		if kf.Easing != wantEasing[i] {
			t.Errorf("keyframe %d easing = %q, want %q", i, kf.Easing, wantEasing[i])
		}
		if kf.Props["speed"] != wantSpeed[i] {
			t.Errorf("keyframe %d speed = %v, want %v", i, kf.Props["speed"], wantSpeed[i])
		}
		if kf.Props[PropLng] != float64(10+i) || kf.Props[PropLat] != float64(50+i) {
			t.Errorf("keyframe %d position = %v,%v", i, kf.Props[PropLng], kf.Props[PropLat])
		}
		for key := range kf.Props {
			if IsReserved(key) || key == "name" {
				t.Errorf("keyframe %d carries non-animatable prop %q", i, key)
			}
		}
		if _, ok := kf.Props[PropAltitude]; ok {
			t.Errorf("keyframe %d has altitude for 2D input", i)
		}
	}
}

func TestCompileDefaults(t *testing.T) {
	data := []byte(`{
		"type": "Feature",
		"geometry": {"type": "MultiPoint", "coordinates": [[0, 0, 5], [1, 1], [2, 2, 15], [3, 3, 20]]},
		"properties": {}
	}`)
	track, err := quietCompiler(Options{DefaultEasing: "CubicOut"}).Compile(data)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	wantAlt := []float64{5, 10, 15, 20}
	for i, kf := range track.Keyframes {
		if want := float64(i) / 4; kf.Delta != want {
			t.Errorf("keyframe %d delta = %v, want %v", i, kf.Delta, want)
		}
		if kf.Easing != "CubicOut" {
			t.Errorf("keyframe %d easing = %q, want CubicOut", i, kf.Easing)
		}
		if kf.Props[PropAltitude] != wantAlt[i] {
			t.Errorf("keyframe %d altitude = %v, want %v", i, kf.Props[PropAltitude], wantAlt[i])
		}
	}
}

func TestCompileFillsGappedChannels(t *testing.T) {
	data := []byte(`{
		"type": "Feature",
		"geometry": {"type": "LineString", "coordinates": [[0, 0], [1, 0], [2, 0], [3, 0]]},
		"properties": {"speed": [null, 10, null, 30]}
	}`)
	track, err := quietCompiler(Options{}).Compile(data)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := []float64{10, 10, 20, 30}
	for i, kf := range track.Keyframes {
		if kf.Props["speed"] != want[i] {
			t.Errorf("keyframe %d speed = %v, want %v", i, kf.Props["speed"], want[i])
		}
	}
}

func TestCompileFlattensPolygon(t *testing.T) {
	data := []byte(`{
		"type": "Feature",
		"geometry": {"type": "Polygon", "coordinates": [
			[[0, 0], [4, 0], [4, 4], [0, 0]],
			[[1, 1], [2, 1], [1, 1]]
		]},
		"properties": {}
	}`)
	track, err := quietCompiler(Options{}).Compile(data)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(track.Keyframes) != 7 {
		t.Fatalf("got %d keyframes, want 7", len(track.Keyframes))
	}
	if got := track.Keyframes[4].Props[PropLng]; got != 1 {
		t.Errorf("first hole vertex lng = %v, want 1", got)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{
			name: "missing geometry",
			data: `{"type": "Feature", "geometry": null, "properties": {}}`,
			want: ErrMissingGeometry,
		},
		{
			name: "unsupported geometry",
			data: `{"type": "Feature", "geometry": {"type": "MultiPolygon", "coordinates": [[[[0,0],[1,1],[0,0]]]]}, "properties": {}}`,
			want: ErrUnsupportedGeometry,
		},
		{
			name: "channel length mismatch",
			data: `{"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[0,0],[1,1]]}, "properties": {"speed": [1,2,3]}}`,
			want: ErrLengthMismatch,
		},
		{
			name: "delta length mismatch",
			data: `{"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[0,0],[1,1]]}, "properties": {"@delta": [0]}}`,
			want: ErrLengthMismatch,
		},
		{
			name: "easing length mismatch",
			data: `{"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[0,0],[1,1]]}, "properties": {"@easing": ["Linear","Linear","Linear"]}}`,
			want: ErrLengthMismatch,
		},
		{
			name: "all-gap channel",
			data: `{"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[0,0],[1,1]]}, "properties": {"speed": [null,null]}}`,
			want: ErrAllGaps,
		},
		{
			name: "non-numeric channel",
			data: `{"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[0,0],[1,1]]}, "properties": {"speed": [1,"fast"]}}`,
			want: ErrInvalidProperty,
		},
		{
			name: "non-positive duration",
			data: `{"type": "Feature", "geometry": {"type": "Point", "coordinates": [0,0]}, "properties": {"@duration": 0}}`,
			want: ErrInvalidProperty,
		},
		{
			name: "sub-millisecond duration",
			data: `{"type": "Feature", "geometry": {"type": "Point", "coordinates": [0,0]}, "properties": {"@duration": 0.0001}}`,
			want: ErrInvalidProperty,
		},
		{
			name: "fractional iterations",
			data: `{"type": "Feature", "geometry": {"type": "Point", "coordinates": [0,0]}, "properties": {"@iterations": 1.5}}`,
			want: ErrInvalidProperty,
		},
	}
	c := quietCompiler(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Compile([]byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCompileSmoothing(t *testing.T) {
	data := []byte(`{
		"type": "Feature",
		"geometry": {"type": "LineString", "coordinates": [[0,0,100],[0.01,0,110],[0.02,0,120],[0.03,0,130],[0.04,0,140]]},
		"properties": {
			"speed": [0, null, 20, 30, 40, 50, 60],
			"@easing": ["BounceIn"]
		}
	}`)
	// Epsilon 0 leaves the path untouched by simplification, so the output
	// length is exactly (5-1)*4+1.
	c := quietCompiler(Options{Smoothing: &Smoothing{Resolution: 4, Epsilon: 0}})
	track, err := c.Compile(data)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	const m = 17
	if len(track.Keyframes) != m {
		t.Fatalf("got %d keyframes, want %d", len(track.Keyframes), m)
	}
	for i, kf := range track.Keyframes {
		if want := float64(i) / m; kf.Delta != want {
			t.Errorf("keyframe %d delta = %v, want %v", i, kf.Delta, want)
		}
		if kf.Easing != "Linear" {
			t.Errorf("keyframe %d easing = %q, want regenerated default", i, kf.Easing)
		}
		if _, ok := kf.Props["speed"]; !ok {
			t.Errorf("keyframe %d lost speed channel", i)
		}
	}
	first, last := track.Keyframes[0], track.Keyframes[m-1]
	if first.Props[PropAltitude] != 100 || last.Props[PropAltitude] != 140 {
		t.Errorf("altitude endpoints = %v, %v, want 100, 140", first.Props[PropAltitude], last.Props[PropAltitude])
	}
	if first.Props["speed"] != 0 || last.Props["speed"] != 60 {
		t.Errorf("speed endpoints = %v, %v, want 0, 60", first.Props["speed"], last.Props["speed"])
	}
	if last.Props[PropLng] != 0.04 {
		t.Errorf("last lng = %v, want 0.04", last.Props[PropLng])
	}
}

func TestCompileSkipsShadowingChannel(t *testing.T) {
	data := []byte(`{
		"type": "Feature",
		"geometry": {"type": "LineString", "coordinates": [[5,6],[7,8]]},
		"properties": {"lng": [100, 200]}
	}`)
	track, err := quietCompiler(Options{}).Compile(data)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if got := track.Keyframes[1].Props[PropLng]; got != 7 {
		t.Errorf("lng = %v, want coordinate value 7", got)
	}
}

func TestCompileLogsIgnoredControls(t *testing.T) {
	var buf bytes.Buffer
	c := NewCompiler(Options{Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))})
	data := []byte(`{
		"type": "Feature",
		"geometry": {"type": "LineString", "coordinates": [[0,0],[1,1]]},
		"properties": {"@colour": "red", "@easing": ["Linear", 3]}
	}`)
	track, err := c.Compile(data)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"ignoring unknown control key",
		"key=@colour",
		"easing entry is not a name",
		"index=1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
	for i, kf := range track.Keyframes {
		if _, ok := kf.Props["@colour"]; ok {
			t.Errorf("keyframe %d animates a control key", i)
		}
	}
	if track.Keyframes[1].Easing != "" {
		t.Errorf("non-name easing = %q, want the default", track.Keyframes[1].Easing)
	}
}

func TestSmoothingValidate(t *testing.T) {
	tests := []struct {
		s    Smoothing
		fail bool
	}{
		{Smoothing{Resolution: 1}, false},
		{Smoothing{Resolution: MaxResolution, Epsilon: MinEpsilon}, false},
		{Smoothing{Resolution: 0}, true},
		{Smoothing{Resolution: MaxResolution + 1}, true},
		{Smoothing{Resolution: 4, Epsilon: -1}, true},
		{Smoothing{Resolution: 4, Epsilon: MinEpsilon / 10}, true},
		{Smoothing{Resolution: 4, Epsilon: math.NaN()}, true},
		{Smoothing{Resolution: 4, Epsilon: math.Inf(1)}, true},
	}
	for _, tt := range tests {
		err := tt.s.Validate()
		if tt.fail != (err != nil) {
			t.Errorf("Validate(%+v) = %v", tt.s, err)
		}
		if err != nil && !errors.Is(err, ErrSmoothingLimit) {
			t.Errorf("Validate(%+v) = %v, want %v", tt.s, err, ErrSmoothingLimit)
		}
	}
}

func TestCompileRejectsOversizedSmoothing(t *testing.T) {
	coords := make([]string, 1000)
	for i := range coords {
		coords[i] = fmt.Sprintf("[%v,0]", float64(i)*0.001)
	}
	data := []byte(`{"type": "Feature", "geometry": {"type": "LineString", "coordinates": [` +
		strings.Join(coords, ",") + `]}, "properties": {}}`)

	ok := quietCompiler(Options{Smoothing: &Smoothing{Resolution: MaxResolution, Epsilon: 1}})
	track, err := ok.Compile(data)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(track.Keyframes) > MaxSmoothedPoints {
		t.Errorf("smoothed to %d keyframes, limit %d", len(track.Keyframes), MaxSmoothedPoints)
	}

	big := quietCompiler(Options{Smoothing: &Smoothing{Resolution: MaxResolution, Epsilon: 0.5}})
	if _, err := big.Compile(data); !errors.Is(err, ErrSmoothingLimit) {
		t.Errorf("err = %v, want %v", err, ErrSmoothingLimit)
	}
}
