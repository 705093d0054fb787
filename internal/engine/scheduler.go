package engine

import (
	"log/slog"
	"slices"
	"sync"
)

// Advancer is anything the scheduler can drive. *Animation implements it.
type Advancer interface {
	IsPlaying() bool
	Update(force bool)
}

// Scheduler drives every registered animation from a single frame loop.
// The loop runs only while the registry is non-empty.
type Scheduler struct {
	mu      sync.Mutex
	frames  FrameSource
	entries []Advancer
	running bool
	cancel  func()
	// gen invalidates frame callbacks requested before the last Stop.
	gen uint64
}

func NewScheduler(frames FrameSource) *Scheduler {
	if frames == nil {
		frames = NewTickerFrames(DefaultFrameRate)
	}
	return &Scheduler{frames: frames}
}

var (
	defaultOnce      sync.Once
	defaultScheduler *Scheduler
)

// Default returns the process scheduler, creating it on first use.
func Default() *Scheduler {
	defaultOnce.Do(func() {
		defaultScheduler = NewScheduler(NewTickerFrames(DefaultFrameRate))
	})
	return defaultScheduler
}

// Add registers a and starts the loop if it is not running. Adding an
// already registered entry does nothing.
func (s *Scheduler) Add(a Advancer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.Contains(s.entries, a) {
		return
	}
	s.entries = append(s.entries, a)
	if !s.running {
		s.startLocked()
	}
}

// Remove unregisters a. Removing the last entry stops the loop.
func (s *Scheduler) Remove(a Advancer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.Index(s.entries, a)
	if i < 0 {
		return
	}
	s.entries = slices.Delete(s.entries, i, i+1)
	if len(s.entries) == 0 {
		s.stopLocked()
	}
}

// Start arms the loop. It is a no-op when already running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		s.startLocked()
	}
}

// Stop cancels the pending frame. Registered entries are kept.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Has reports whether a is registered.
func (s *Scheduler) Has(a Advancer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.entries, a)
}

// Tick runs one pass of the loop body: every registered entry that is
// playing is updated once, in registration order. Entries removed during the
// pass are skipped. It returns the number of entries updated.
func (s *Scheduler) Tick() int {
	s.mu.Lock()
	snapshot := slices.Clone(s.entries)
	s.mu.Unlock()

	updated := 0
	for _, a := range snapshot {
		if !s.Has(a) || !a.IsPlaying() {
			continue
		}
		a.Update(false)
		updated++
	}
	return updated
}

func (s *Scheduler) startLocked() {
	s.running = true
	s.gen++
	s.requestLocked(s.gen)
}

func (s *Scheduler) stopLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.running = false
	s.gen++
}

func (s *Scheduler) requestLocked(gen uint64) {
	s.cancel = s.frames.RequestFrame(func() { s.frame(gen) })
}

// frame is the frame callback: tick, then re-arm while the registry is
// non-empty.
func (s *Scheduler) frame(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel = nil
	s.mu.Unlock()

	s.Tick()

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || !s.running {
		return
	}
	if len(s.entries) == 0 {
		s.running = false
		slog.Debug("scheduler idle")
		return
	}
	s.requestLocked(gen)
}
