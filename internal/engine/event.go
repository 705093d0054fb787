package engine

import (
	"github.com/inamate/keyframes/internal/keyframe"
)

// EventType names an animation event.
type EventType string

const (
	EventPlay               EventType = "play"
	EventPause              EventType = "pause"
	EventStop               EventType = "stop"
	EventReset              EventType = "reset"
	EventTimeUpdate         EventType = "timeupdate"
	EventScrub              EventType = "scrub"
	EventPlaybackRateChange EventType = "playbackratechange"
	EventAnimationStart     EventType = "animationstart"
	EventAnimationEnd       EventType = "animationend"
	EventKeyframe           EventType = "keyframe"
	EventIteration          EventType = "iteration"
)

// EventTypes lists every event an Animation emits.
var EventTypes = []EventType{
	EventPlay, EventPause, EventStop, EventReset, EventTimeUpdate, EventScrub,
	EventPlaybackRateChange, EventAnimationStart, EventAnimationEnd,
	EventKeyframe, EventIteration,
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Event is passed to listeners. Props and PreviousProps belong to the
// listener; the animation does not keep references to them.
type Event struct {
	Type      EventType
	Animation *Animation

	CurrentTime  float64 // ms into the current iteration
	CurrentDelta float64
	PlaybackRate float64
	Iteration    int

	// Keyframe is the keyframe the current segment leaves from, and
	// NextKeyframe the one it heads to (nil past the last keyframe).
	Keyframe     *keyframe.Keyframe
	NextKeyframe *keyframe.Keyframe

	Props         map[string]float64
	PreviousProps map[string]float64
}

// Listener receives events.
type Listener func(Event)

// ListenerID identifies a registered listener. Zero is never issued.
type ListenerID uint64

type listenerEntry struct {
	id ListenerID
	fn Listener
}

// listeners is an ordered arena of callbacks keyed by event type.
type listeners struct {
	next   ListenerID
	byType map[EventType][]listenerEntry
}

func (l *listeners) add(t EventType, fn Listener) ListenerID {
	if l.byType == nil {
		l.byType = make(map[EventType][]listenerEntry)
	}
	l.next++
	l.byType[t] = append(l.byType[t], listenerEntry{id: l.next, fn: fn})
	return l.next
}

func (l *listeners) remove(t EventType, id ListenerID) bool {
	entries := l.byType[t]
	for i, e := range entries {
		if e.id == id {
			l.byType[t] = append(entries[:i:i], entries[i+1:]...)
			return true
		}
	}
	return false
}

// snapshot returns the listeners for t in registration order.
func (l *listeners) snapshot(t EventType) []Listener {
	entries := l.byType[t]
	if len(entries) == 0 {
		return nil
	}
	out := make([]Listener, len(entries))
	for i, e := range entries {
		out[i] = e.fn
	}
	return out
}

func (l *listeners) clear() {
	l.byType = nil
}
