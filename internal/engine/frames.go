package engine

import (
	"sync"
	"time"
)

// FrameSource delivers frame callbacks, one per request, the way a browser's
// requestAnimationFrame does. The returned cancel drops a pending request.
type FrameSource interface {
	RequestFrame(fn func()) (cancel func())
}

// DefaultFrameRate is the tick rate of the process scheduler.
const DefaultFrameRate = 60

// TickerFrames fires requested frames on a fixed interval using timers.
type TickerFrames struct {
	interval time.Duration
}

// NewTickerFrames returns a frame source running at fps frames per second.
// Non-positive rates fall back to DefaultFrameRate.
func NewTickerFrames(fps int) *TickerFrames {
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	return &TickerFrames{interval: time.Second / time.Duration(fps)}
}

func (f *TickerFrames) RequestFrame(fn func()) func() {
	t := time.AfterFunc(f.interval, fn)
	return func() { t.Stop() }
}

// ManualFrames holds frame requests until Fire is called.
type ManualFrames struct {
	mu      sync.Mutex
	pending []*manualRequest
}

type manualRequest struct {
	fn       func()
	canceled bool
}

func NewManualFrames() *ManualFrames {
	return &ManualFrames{}
}

func (f *ManualFrames) RequestFrame(fn func()) func() {
	req := &manualRequest{fn: fn}
	f.mu.Lock()
	f.pending = append(f.pending, req)
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		req.canceled = true
		f.mu.Unlock()
	}
}

// Fire runs every request pending at the time of the call and reports how
// many ran. Requests made from inside a callback wait for the next Fire.
func (f *ManualFrames) Fire() int {
	f.mu.Lock()
	batch := f.pending
	f.pending = nil
	f.mu.Unlock()

	ran := 0
	for _, req := range batch {
		f.mu.Lock()
		canceled := req.canceled
		f.mu.Unlock()
		if canceled {
			continue
		}
		req.fn()
		ran++
	}
	return ran
}

// Pending reports the number of live frame requests.
func (f *ManualFrames) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, req := range f.pending {
		if !req.canceled {
			n++
		}
	}
	return n
}
