// Package engine runs keyframe animations: a per-timeline state machine that
// turns elapsed time into interpolated properties and events, and a
// scheduler that advances many animations from one frame loop.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"sync"
	"time"

	"github.com/inamate/keyframes/internal/easing"
	"github.com/inamate/keyframes/internal/keyframe"
	"github.com/inamate/keyframes/internal/typeid"
)

var (
	ErrNoKeyframes     = errors.New("engine: animation has no keyframes")
	ErrInvalidDuration = errors.New("engine: duration must be at least MinDuration milliseconds")
	ErrKeyframeOrder   = errors.New("engine: keyframe deltas must lie in [0,1] and never decrease")
)

// Infinite is the iteration count of an animation that loops forever.
const Infinite = keyframe.Infinite

// MinDuration is the shortest iteration, in milliseconds.
const MinDuration = keyframe.MinDuration

// State is the playback state of an Animation.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
	StateStopped
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config is fixed when the Animation is created and shared with its clones.
type Config struct {
	Keyframes []keyframe.Keyframe
	// Duration of one iteration in milliseconds.
	Duration float64
	// Iterations to play; 0 means 1 and a negative count loops forever.
	Iterations int
	// Delay before the first iteration, in milliseconds.
	Delay float64
	// ManualMode animations never join the scheduler; the owner drives them
	// with Update(true).
	ManualMode bool
	Autoplay   bool
	// Easing is the default easing name for keyframes that do not name one.
	Easing string

	// Scheduler defaults to Default().
	Scheduler *Scheduler
	// Clock defaults to SystemClock.
	Clock  Clock
	Logger *slog.Logger
}

// ConfigFromTrack overlays the settings a compiled track carries onto base.
func ConfigFromTrack(track *keyframe.Track, base Config) Config {
	cfg := base
	cfg.Keyframes = track.Keyframes
	if track.Duration > 0 {
		cfg.Duration = track.Duration
	}
	if track.Iterations != 0 {
		cfg.Iterations = track.Iterations
	}
	if track.Delay > 0 {
		cfg.Delay = track.Delay
	}
	if track.Autoplay != nil {
		cfg.Autoplay = *track.Autoplay
	}
	return cfg
}

func (c Config) validate() error {
	if len(c.Keyframes) == 0 {
		return ErrNoKeyframes
	}
	if !(c.Duration >= MinDuration) || math.IsInf(c.Duration, 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidDuration, c.Duration)
	}
	prev := 0.0
	for i, kf := range c.Keyframes {
		d := kf.Delta
		if math.IsNaN(d) || d < 0 || d > 1 || d < prev {
			return fmt.Errorf("%w: keyframe %d has delta %v", ErrKeyframeOrder, i, d)
		}
		prev = d
	}
	return nil
}

func (c Config) normalize() Config {
	if c.Iterations == 0 {
		c.Iterations = 1
	}
	if c.Iterations < 0 {
		c.Iterations = Infinite
	}
	if !(c.Delay > 0) || math.IsInf(c.Delay, 1) {
		c.Delay = 0
	}
	if c.Easing == "" {
		c.Easing = easing.DefaultName
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Animation plays one keyframe timeline. All methods are safe for concurrent
// use; listeners run on the calling goroutine after internal state has been
// updated and may call back into the animation.
type Animation struct {
	id     string
	cfg    Config
	tl     *timeline
	logger *slog.Logger

	mu        sync.Mutex
	scheduler *Scheduler // set on first registration

	state          State
	currentTime    float64
	currentDelta   float64
	playbackRate   float64
	iteration      int
	delayRemaining float64
	started        bool
	lastUpdate     time.Time
	hasLastUpdate  bool
	activeIndex    int
	props          map[string]float64
	previousProps  map[string]float64
	listeners      listeners
	destroyed      bool
}

// New validates cfg and creates an idle animation, starting it when
// cfg.Autoplay is set.
func New(cfg Config) (*Animation, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.normalize()

	id := typeid.NewAnimationID()
	logger := cfg.Logger.With("animation", id)
	a := newAnimation(id, cfg, newTimeline(cfg.Keyframes, cfg.Easing, logger), logger)
	// The timeline holds its own copy.
	a.cfg.Keyframes = nil

	if cfg.Autoplay {
		a.Play()
	}
	return a, nil
}

func newAnimation(id string, cfg Config, tl *timeline, logger *slog.Logger) *Animation {
	a := &Animation{
		id:             id,
		cfg:            cfg,
		tl:             tl,
		logger:         logger,
		playbackRate:   1,
		delayRemaining: cfg.Delay,
		activeIndex:    -1,
	}
	a.props = tl.evaluate(0).props
	return a
}

// Clone returns an idle animation over the same timeline and settings, with
// fresh playback state and no listeners.
func (a *Animation) Clone() *Animation {
	id := typeid.NewAnimationID()
	return newAnimation(id, a.cfg, a.tl, a.cfg.Logger.With("animation", id))
}

func (a *Animation) ID() string { return a.id }

// Duration of one iteration in milliseconds.
func (a *Animation) Duration() float64 { return a.cfg.Duration }

// Iterations is the configured count, or Infinite.
func (a *Animation) Iterations() int { return a.cfg.Iterations }

// ManualMode reports whether the owner drives frames through Update.
func (a *Animation) ManualMode() bool { return a.cfg.ManualMode }

// Keyframes returns a copy of the timeline.
func (a *Animation) Keyframes() []keyframe.Keyframe {
	out := make([]keyframe.Keyframe, len(a.tl.keyframes))
	for i, kf := range a.tl.keyframes {
		out[i] = kf.Clone()
	}
	return out
}

func (a *Animation) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Animation) IsPlaying() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == StatePlaying
}

func (a *Animation) CurrentTime() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentTime
}

func (a *Animation) CurrentDelta() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentDelta
}

func (a *Animation) PlaybackRate() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.playbackRate
}

// Iteration is the number of completed iterations in the current run.
func (a *Animation) Iteration() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.iteration
}

// Props returns a copy of the most recently evaluated properties.
func (a *Animation) Props() map[string]float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return maps.Clone(a.props)
}

// Play starts or resumes playback. A finished animation starts over. With a
// negative rate, playback that would begin at time 0 begins at the end.
func (a *Animation) Play() {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		a.logger.Warn("play on destroyed animation")
		return
	}
	if a.state == StatePlaying {
		a.mu.Unlock()
		return
	}
	if a.state == StateFinished {
		a.rewindLocked()
	}
	if a.playbackRate < 0 && a.currentTime == 0 && a.state != StatePaused {
		a.currentTime = a.cfg.Duration
		a.currentDelta = 1
		a.previousProps = a.props
		a.props = a.tl.evaluate(1).props
	}
	a.state = StatePlaying
	a.lastUpdate = a.cfg.Clock.Now()
	a.hasLastUpdate = true
	ev := a.eventLocked(EventPlay)
	a.mu.Unlock()

	a.register()
	a.dispatch(ev)
}

// Pause halts playback and keeps the position. The animation stays
// registered with the scheduler, which skips it until it plays again.
func (a *Animation) Pause() {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return
	}
	a.state = StatePaused
	ev := a.eventLocked(EventPause)
	a.mu.Unlock()

	a.dispatch(ev)
}

// Stop halts playback, keeps the position and leaves the scheduler.
func (a *Animation) Stop() {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return
	}
	a.state = StateStopped
	ev := a.eventLocked(EventStop)
	a.mu.Unlock()

	a.unregister()
	a.dispatch(ev)
}

// Reset rewinds to the start of the first iteration and stops playback.
// With toStart the properties are re-evaluated at delta 0 so the reset event
// carries the starting values.
func (a *Animation) Reset(toStart bool) {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return
	}
	a.rewindLocked()
	a.state = StateIdle
	a.hasLastUpdate = false
	if toStart {
		a.applySampleLocked(a.tl.evaluate(0))
	}
	ev := a.eventLocked(EventReset)
	a.mu.Unlock()

	a.unregister()
	a.dispatch(ev)
}

// SetCurrentTime scrubs to ms milliseconds into the current iteration.
// Out of range values are clamped.
func (a *Animation) SetCurrentTime(ms float64) {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return
	}
	a.currentTime = clamp(ms, 0, a.cfg.Duration)
	a.currentDelta = a.currentTime / a.cfg.Duration
	ev := a.scrubLocked()
	a.mu.Unlock()

	a.dispatch(ev)
}

// SetCurrentDelta scrubs to a normalized position. Out of range values are
// clamped.
func (a *Animation) SetCurrentDelta(d float64) {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return
	}
	a.currentDelta = clamp(d, 0, 1)
	a.currentTime = a.currentDelta * a.cfg.Duration
	ev := a.scrubLocked()
	a.mu.Unlock()

	a.dispatch(ev)
}

func (a *Animation) scrubLocked() Event {
	a.applySampleLocked(a.tl.evaluate(a.currentDelta))
	return a.eventLocked(EventScrub)
}

// SetPlaybackRate sets the time multiplier. Negative rates play backwards.
func (a *Animation) SetPlaybackRate(rate float64) {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		a.logger.Warn("ignoring invalid playback rate", "rate", rate)
		return
	}
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return
	}
	a.playbackRate = rate
	ev := a.eventLocked(EventPlaybackRateChange)
	a.mu.Unlock()

	a.dispatch(ev)
}

// Update advances the animation by the wall time elapsed since the previous
// update, as measured by the configured clock. It does nothing unless the
// animation is playing or force is set. A finished animation never advances.
func (a *Animation) Update(force bool) {
	a.mu.Lock()
	if a.destroyed || a.state == StateFinished || (!force && a.state != StatePlaying) {
		a.mu.Unlock()
		return
	}
	now := a.cfg.Clock.Now()
	var elapsed time.Duration
	if a.hasLastUpdate {
		elapsed = now.Sub(a.lastUpdate)
	}
	a.lastUpdate = now
	a.hasLastUpdate = true
	events, finished := a.stepLocked(elapsed)
	a.mu.Unlock()

	if finished {
		a.unregister()
	}
	a.dispatch(events...)
}

// Advance moves the animation forward by elapsed wall time regardless of
// its state or clock.
func (a *Animation) Advance(elapsed time.Duration) {
	a.mu.Lock()
	if a.destroyed || a.state == StateFinished {
		a.mu.Unlock()
		return
	}
	events, finished := a.stepLocked(elapsed)
	a.mu.Unlock()

	if finished {
		a.unregister()
	}
	a.dispatch(events...)
}

// stepLocked applies elapsed wall time: start delay first, then scaled
// timeline time with iteration wrapping, then evaluation.
func (a *Animation) stepLocked(elapsed time.Duration) (events []Event, finished bool) {
	ms := float64(elapsed) / float64(time.Millisecond)
	if ms < 0 {
		ms = 0
	}

	if a.delayRemaining > 0 {
		if ms < a.delayRemaining {
			a.delayRemaining -= ms
			return nil, false
		}
		ms -= a.delayRemaining
		a.delayRemaining = 0
	}

	if !a.started {
		a.started = true
		events = append(events, a.eventLocked(EventAnimationStart))
	}

	dur := a.cfg.Duration
	a.currentTime += ms * a.playbackRate

	// Crossed iteration boundaries are counted, not looped over, so a long
	// frame costs the same as a short one.
	var crossed float64
	switch {
	case a.currentTime >= dur && a.playbackRate > 0:
		crossed = math.Floor(a.currentTime / dur)
	case a.currentTime < 0:
		crossed = math.Ceil(-a.currentTime / dur)
	}
	wrapped := 0
	if crossed > 0 {
		left := a.iterationsLeftLocked()
		if crossed > left {
			wrapped = int(left)
			finished = true
			if a.currentTime < 0 {
				a.currentTime = 0
			} else {
				a.currentTime = dur
			}
		} else {
			wrapped = int(min(crossed, math.MaxInt32))
			a.currentTime = math.Mod(a.currentTime, dur)
			if a.currentTime < 0 {
				a.currentTime += dur
			}
			// Mod of an exact negative multiple is -0.
			a.currentTime += 0
		}
		a.iteration += wrapped
	}
	a.currentDelta = a.currentTime / dur

	s := a.tl.evaluate(a.currentDelta)
	keyframeChanged := s.index != a.activeIndex
	a.applySampleLocked(s)
	if wrapped > 0 {
		// One event per frame carries the latest completed count.
		events = append(events, a.eventLocked(EventIteration))
	}
	if keyframeChanged {
		events = append(events, a.eventLocked(EventKeyframe))
	}
	events = append(events, a.eventLocked(EventTimeUpdate))

	if finished {
		a.iteration++
		a.state = StateFinished
		events = append(events, a.eventLocked(EventAnimationEnd))
		a.logger.Debug("animation finished", "iterations", a.iteration)
	}
	return events, finished
}

// iterationsLeftLocked returns how many iterations follow the current one.
func (a *Animation) iterationsLeftLocked() float64 {
	if a.cfg.Iterations == Infinite {
		return math.Inf(1)
	}
	return float64(a.cfg.Iterations - a.iteration - 1)
}

func (a *Animation) applySampleLocked(s sample) {
	a.previousProps = a.props
	a.props = s.props
	a.activeIndex = s.index
}

// rewindLocked returns runtime position to the start of a fresh run.
func (a *Animation) rewindLocked() {
	a.currentTime = 0
	a.currentDelta = 0
	a.iteration = 0
	a.delayRemaining = a.cfg.Delay
	a.started = false
	a.activeIndex = -1
}

// AddEventListener registers fn for events of type t and returns an ID for
// RemoveEventListener. Unknown types are ignored and return 0.
func (a *Animation) AddEventListener(t EventType, fn Listener) ListenerID {
	if !t.Valid() {
		a.logger.Warn("ignoring listener for unknown event type", "type", string(t))
		return 0
	}
	if fn == nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destroyed {
		a.logger.Warn("listener added to destroyed animation", "type", string(t))
		return 0
	}
	return a.listeners.add(t, fn)
}

// RemoveEventListener unregisters a listener and reports whether it was found.
func (a *Animation) RemoveEventListener(t EventType, id ListenerID) bool {
	if !t.Valid() {
		a.logger.Warn("ignoring removal for unknown event type", "type", string(t))
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listeners.remove(t, id)
}

// Destroy leaves the scheduler and drops every listener. The animation
// ignores all further calls.
func (a *Animation) Destroy() {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		a.logger.Warn("animation already destroyed")
		return
	}
	a.destroyed = true
	a.state = StateStopped
	a.listeners.clear()
	a.mu.Unlock()

	a.unregister()
}

func (a *Animation) register() {
	if a.cfg.ManualMode {
		return
	}
	a.mu.Lock()
	if a.scheduler == nil {
		a.scheduler = a.cfg.Scheduler
		if a.scheduler == nil {
			a.scheduler = Default()
		}
	}
	s := a.scheduler
	a.mu.Unlock()

	s.Add(a)
}

func (a *Animation) unregister() {
	a.mu.Lock()
	s := a.scheduler
	a.mu.Unlock()

	if s != nil {
		s.Remove(a)
	}
}

func (a *Animation) eventLocked(t EventType) Event {
	cur, next := a.tl.pair(max(a.activeIndex, 0))
	return Event{
		Type:          t,
		Animation:     a,
		CurrentTime:   a.currentTime,
		CurrentDelta:  a.currentDelta,
		PlaybackRate:  a.playbackRate,
		Iteration:     a.iteration,
		Keyframe:      cur,
		NextKeyframe:  next,
		Props:         maps.Clone(a.props),
		PreviousProps: maps.Clone(a.previousProps),
	}
}

// dispatch delivers events in order. Listeners are looked up per event so a
// listener removed by an earlier one is not called.
func (a *Animation) dispatch(events ...Event) {
	for _, ev := range events {
		a.mu.Lock()
		fns := a.listeners.snapshot(ev.Type)
		a.mu.Unlock()

		for _, fn := range fns {
			fn(ev)
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
