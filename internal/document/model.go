package document

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/inamate/keyframes/internal/keyframe"
)

// KeyframeDocument is the serialized form of a compiled track, written by
// the CLI as YAML and served by the API as JSON.
type KeyframeDocument struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	Duration   float64    `json:"duration,omitempty" yaml:"duration,omitempty"`
	Iterations int        `json:"iterations,omitempty" yaml:"iterations,omitempty"`
	Delay      float64    `json:"delay,omitempty" yaml:"delay,omitempty"`
	Autoplay   *bool      `json:"autoplay,omitempty" yaml:"autoplay,omitempty"`
	Keyframes  []Keyframe `json:"keyframes" yaml:"keyframes"`
}

type Keyframe struct {
	Delta    float64            `json:"delta" yaml:"delta"`
	Easing   string             `json:"easing,omitempty" yaml:"easing,omitempty"`
	Props    map[string]float64 `json:"props" yaml:"props"`
	UserData map[string]any     `json:"userData,omitempty" yaml:"userData,omitempty"`
}

func FromTrack(id, name string, track *keyframe.Track) *KeyframeDocument {
	doc := &KeyframeDocument{
		ID:         id,
		Name:       name,
		Duration:   track.Duration,
		Iterations: track.Iterations,
		Delay:      track.Delay,
		Autoplay:   track.Autoplay,
		Keyframes:  make([]Keyframe, len(track.Keyframes)),
	}
	for i, kf := range track.Keyframes {
		kf = kf.Clone()
		doc.Keyframes[i] = Keyframe{
			Delta:    kf.Delta,
			Easing:   kf.Easing,
			Props:    kf.Props,
			UserData: kf.UserData,
		}
	}
	return doc
}

// Track converts the document back into a keyframe track.
func (d *KeyframeDocument) Track() *keyframe.Track {
	track := &keyframe.Track{
		Duration:   d.Duration,
		Iterations: d.Iterations,
		Delay:      d.Delay,
		Autoplay:   d.Autoplay,
		Keyframes:  make([]keyframe.Keyframe, len(d.Keyframes)),
	}
	for i, kf := range d.Keyframes {
		track.Keyframes[i] = keyframe.Keyframe{
			Delta:    kf.Delta,
			Easing:   kf.Easing,
			Props:    kf.Props,
			UserData: kf.UserData,
		}.Clone()
	}
	return track
}

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func (d *KeyframeDocument) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(d, "", "  ")
	case FormatYAML:
		return yaml.Marshal(d)
	default:
		return nil, fmt.Errorf("unknown document format %q", format)
	}
}

func Decode(data []byte, format Format) (*KeyframeDocument, error) {
	var doc KeyframeDocument
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("unknown document format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s document: %w", format, err)
	}
	return &doc, nil
}
