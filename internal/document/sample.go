package document

import (
	geojson "github.com/paulmach/go.geojson"
)

// sampleRoute is a short 3D walking route with a sparse speed channel.
const sampleRoute = `{
  "type": "Feature",
  "geometry": {
    "type": "LineString",
    "coordinates": [
      [8.5417, 47.3769, 408],
      [8.5432, 47.3781, 410],
      [8.5451, 47.3790, 415],
      [8.5473, 47.3794, 421],
      [8.5490, 47.3803, 428],
      [8.5502, 47.3818, 433]
    ]
  },
  "properties": {
    "name": "Lakeside walk",
    "@duration": 12000,
    "@iterations": 1,
    "@delay": 500,
    "@autoplay": false,
    "@delta": [0, 0.15, 0.35, 0.55, 0.8, 1],
    "@easing": ["SinusoidalInOut", "Linear", "Linear", "QuadraticOut", "CubicInOut", "Linear"],
    "speed": [1.2, null, 1.6, null, null, 1.1],
    "bearing": [45, 60, 80, 75, 50, 30]
  }
}`

// SampleFeatureJSON returns the built-in sample feature as GeoJSON.
func SampleFeatureJSON() []byte {
	return []byte(sampleRoute)
}

// SampleFeature returns a freshly decoded copy of the built-in sample.
func SampleFeature() *geojson.Feature {
	f, err := geojson.UnmarshalFeature([]byte(sampleRoute))
	if err != nil {
		panic("document: invalid sample feature: " + err.Error())
	}
	return f
}
