// Package export samples animations at a fixed frame rate.
package export

import (
	"errors"
	"fmt"
	"time"

	"github.com/inamate/keyframes/internal/engine"
)

const (
	DefaultFPS = 30
	MaxFPS     = 240
	// MaxFrames bounds a single capture.
	MaxFrames = 100_000
)

var (
	ErrInvalidFPS    = errors.New("export: fps out of range")
	ErrTooManyFrames = errors.New("export: capture exceeds frame limit")
)

// Frame is the animation state at one captured instant.
type Frame struct {
	Index int `json:"index"`
	// Time is wall time since playback started, in milliseconds. It
	// includes the start delay.
	Time      float64            `json:"time"`
	Delta     float64            `json:"delta"`
	Iteration int                `json:"iteration"`
	Props     map[string]float64 `json:"props"`
}

// Capture plays cfg to the end on a manual clock and records a frame every
// 1/fps seconds. The last frame is the first one taken after the animation
// finished. Animations that loop forever are captured for one iteration.
func Capture(cfg engine.Config, fps int) ([]Frame, error) {
	if fps < 1 || fps > MaxFPS {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFPS, fps)
	}

	start := time.Unix(0, 0)
	clock := engine.NewManualClock(start)
	cfg.Clock = clock
	cfg.ManualMode = true
	cfg.Autoplay = false
	cfg.Scheduler = nil
	if cfg.Iterations == engine.Infinite {
		cfg.Iterations = 1
	}

	anim, err := engine.New(cfg)
	if err != nil {
		return nil, err
	}
	defer anim.Destroy()

	step := float64(time.Second) / float64(fps)
	frames := []Frame{snapshot(anim, 0, 0)}
	anim.Play()

	for i := 1; anim.State() != engine.StateFinished; i++ {
		if i >= MaxFrames {
			return nil, fmt.Errorf("%w: more than %d frames", ErrTooManyFrames, MaxFrames)
		}
		next := start.Add(time.Duration(float64(i) * step))
		clock.Advance(next.Sub(clock.Now()))
		anim.Update(true)
		frames = append(frames, snapshot(anim, i, float64(next.Sub(start))/float64(time.Millisecond)))
	}
	return frames, nil
}

func snapshot(a *engine.Animation, index int, ms float64) Frame {
	return Frame{
		Index:     index,
		Time:      ms,
		Delta:     a.CurrentDelta(),
		Iteration: a.Iteration(),
		Props:     a.Props(),
	}
}
