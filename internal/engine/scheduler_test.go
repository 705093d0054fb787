package engine

import (
	"testing"
	"time"
)

type fakeEntry struct {
	name    string
	playing bool
	log     *[]string
	onTick  func()
}

func (f *fakeEntry) IsPlaying() bool { return f.playing }

func (f *fakeEntry) Update(force bool) {
	*f.log = append(*f.log, f.name)
	if f.onTick != nil {
		f.onTick()
	}
}

func TestSchedulerLoopLifecycle(t *testing.T) {
	frames := NewManualFrames()
	s := NewScheduler(frames)
	var log []string
	a := &fakeEntry{name: "a", playing: true, log: &log}

	if s.Running() {
		t.Fatal("new scheduler is running")
	}
	s.Add(a)
	if !s.Running() || frames.Pending() != 1 {
		t.Fatalf("Add did not start the loop: running %v pending %d", s.Running(), frames.Pending())
	}
	s.Add(a)
	if s.Len() != 1 {
		t.Errorf("duplicate Add: len = %d", s.Len())
	}

	frames.Fire()
	frames.Fire()
	if len(log) != 2 {
		t.Errorf("updates = %d, want one per frame", len(log))
	}
	if frames.Pending() != 1 {
		t.Errorf("loop did not re-arm")
	}

	s.Remove(a)
	if s.Running() || frames.Pending() != 0 {
		t.Errorf("Remove of last entry left the loop running")
	}
	if frames.Fire() != 0 {
		t.Errorf("canceled frame still fired")
	}
}

func TestSchedulerOrderAndSkipsPaused(t *testing.T) {
	frames := NewManualFrames()
	s := NewScheduler(frames)
	var log []string
	a := &fakeEntry{name: "a", playing: true, log: &log}
	b := &fakeEntry{name: "b", playing: false, log: &log}
	c := &fakeEntry{name: "c", playing: true, log: &log}
	s.Add(a)
	s.Add(b)
	s.Add(c)

	frames.Fire()
	if len(log) != 2 || log[0] != "a" || log[1] != "c" {
		t.Errorf("tick order = %v, want [a c]", log)
	}
}

func TestSchedulerRemoveDuringTick(t *testing.T) {
	frames := NewManualFrames()
	s := NewScheduler(frames)
	var log []string
	b := &fakeEntry{name: "b", playing: true, log: &log}
	a := &fakeEntry{name: "a", playing: true, log: &log, onTick: func() { s.Remove(b) }}
	s.Add(a)
	s.Add(b)

	frames.Fire()
	if len(log) != 1 || log[0] != "a" {
		t.Errorf("tick = %v, want removed entry skipped", log)
	}
}

func TestSchedulerStopsWhenLastEntryLeavesDuringTick(t *testing.T) {
	frames := NewManualFrames()
	s := NewScheduler(frames)
	var log []string
	var a *fakeEntry
	a = &fakeEntry{name: "a", playing: true, log: &log, onTick: func() { s.Remove(a) }}
	s.Add(a)

	frames.Fire()
	if s.Running() || frames.Pending() != 0 {
		t.Errorf("loop still armed with empty registry")
	}
}

func TestSchedulerDrivesAnimation(t *testing.T) {
	frames := NewManualFrames()
	s := NewScheduler(frames)
	clock := NewManualClock(epoch)
	a, err := New(Config{
		Keyframes: linearX(),
		Duration:  1000,
		Scheduler: s,
		Clock:     clock,
		Logger:    quiet,
	})
	if err != nil {
		t.Fatal(err)
	}

	var ended bool
	a.AddEventListener(EventAnimationEnd, func(Event) { ended = true })
	a.Play()

	for i := 0; i < 5; i++ {
		clock.Advance(100 * time.Millisecond)
		frames.Fire()
	}
	if got := a.Props()["x"]; got != 50 {
		t.Errorf("x after 500ms = %v, want 50", got)
	}

	a.Pause()
	clock.Advance(300 * time.Millisecond)
	frames.Fire()
	if !s.Has(a) {
		t.Error("paused animation left the scheduler")
	}
	if got := a.CurrentTime(); got != 500 {
		t.Errorf("paused animation advanced to %v", got)
	}

	a.Play()
	for i := 0; i < 6; i++ {
		clock.Advance(100 * time.Millisecond)
		frames.Fire()
	}
	if !ended {
		t.Fatal("animation did not end")
	}
	if s.Len() != 0 || s.Running() {
		t.Errorf("finished animation still registered: len %d running %v", s.Len(), s.Running())
	}
}

func TestManualModeNeverRegisters(t *testing.T) {
	frames := NewManualFrames()
	s := NewScheduler(frames)
	a, err := New(Config{Keyframes: linearX(), Duration: 1000, ManualMode: true, Scheduler: s, Logger: quiet})
	if err != nil {
		t.Fatal(err)
	}
	if !a.ManualMode() {
		t.Error("ManualMode() = false")
	}
	a.Play()
	if s.Len() != 0 {
		t.Errorf("manual animation registered")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	frames := NewManualFrames()
	s := NewScheduler(frames)
	var log []string
	s.Add(&fakeEntry{name: "a", playing: true, log: &log})

	s.Stop()
	if s.Running() || frames.Fire() != 0 {
		t.Errorf("Stop left a frame pending")
	}
	if s.Len() != 1 {
		t.Errorf("Stop dropped entries")
	}

	s.Start()
	frames.Fire()
	if len(log) != 1 {
		t.Errorf("Start did not resume ticking")
	}
}
