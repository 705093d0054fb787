package engine

import (
	"log/slog"
	"sort"

	"github.com/inamate/keyframes/internal/easing"
	"github.com/inamate/keyframes/internal/keyframe"
)

// timeline is the immutable part of an animation: its keyframes and the
// easing resolved for each segment. Clones share it.
type timeline struct {
	keyframes []keyframe.Keyframe
	easings   []easing.Func
}

// newTimeline copies kfs and resolves each keyframe's easing, falling back
// to defaultName and then to Linear.
func newTimeline(kfs []keyframe.Keyframe, defaultName string, logger *slog.Logger) *timeline {
	fallback, ok := easing.Lookup(defaultName)
	if !ok {
		logger.Warn("unknown default easing, using linear", "easing", defaultName)
		fallback = easing.Linear
	}

	tl := &timeline{
		keyframes: make([]keyframe.Keyframe, len(kfs)),
		easings:   make([]easing.Func, len(kfs)),
	}
	for i, kf := range kfs {
		tl.keyframes[i] = kf.Clone()
		tl.easings[i] = fallback
		if kf.Easing == "" {
			continue
		}
		fn, ok := easing.Lookup(kf.Easing)
		if !ok {
			logger.Warn("unknown easing, using linear", "easing", kf.Easing, "keyframe", i)
			fn = easing.Linear
		}
		tl.easings[i] = fn
	}
	return tl
}

// bracket returns the index of the last keyframe whose delta is <= d, or 0
// when d lies before the first keyframe.
func (tl *timeline) bracket(d float64) int {
	i := sort.Search(len(tl.keyframes), func(i int) bool {
		return tl.keyframes[i].Delta > d
	})
	return max(i-1, 0)
}

// sample is the evaluated state of a timeline at one delta.
type sample struct {
	index int // keyframe the current segment leaves from
	props map[string]float64
}

// evaluate interpolates every property present in both keyframes of the
// bracketing pair using the eased local progress. Properties only the
// leaving keyframe has are held.
func (tl *timeline) evaluate(d float64) sample {
	i := tl.bracket(d)
	from := &tl.keyframes[i]

	props := make(map[string]float64, len(from.Props))
	if i+1 >= len(tl.keyframes) || d <= from.Delta {
		for k, v := range from.Props {
			props[k] = v
		}
		return sample{index: i, props: props}
	}

	to := &tl.keyframes[i+1]
	progress := 1.0
	if span := to.Delta - from.Delta; span > 0 {
		progress = (d - from.Delta) / span
	}
	eased := tl.easings[i](progress)

	for k, a := range from.Props {
		if b, ok := to.Props[k]; ok {
			props[k] = keyframe.Lerp(a, b, eased)
		} else {
			props[k] = a
		}
	}
	return sample{index: i, props: props}
}

// pair returns the keyframes around index i for event payloads. next is nil
// at the last keyframe.
func (tl *timeline) pair(i int) (cur, next *keyframe.Keyframe) {
	cur = &tl.keyframes[i]
	if i+1 < len(tl.keyframes) {
		next = &tl.keyframes[i+1]
	}
	return cur, next
}
