package collab

import (
	"errors"
	"fmt"
	"sync"

	"github.com/inamate/keyframes/internal/engine"
)

var (
	ErrUnknownOperation = errors.New("unknown operation type")
	ErrMissingArgument  = errors.New("missing operation argument")
)

// Playback applies control operations to a room's animation and numbers
// them with a server sequence.
type Playback struct {
	mu        sync.Mutex
	anim      *engine.Animation
	serverSeq int64
}

func NewPlayback(anim *engine.Animation) *Playback {
	return &Playback{anim: anim}
}

func (p *Playback) Animation() *engine.Animation {
	return p.anim
}

// Apply runs op and returns its server sequence number. Rejected operations
// do not consume a number.
func (p *Playback) Apply(op Operation) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.applyOperation(op); err != nil {
		return 0, err
	}
	p.serverSeq++
	return p.serverSeq, nil
}

func (p *Playback) applyOperation(op Operation) error {
	switch op.Type {
	case OpPlay:
		p.anim.Play()
	case OpPause:
		p.anim.Pause()
	case OpStop:
		p.anim.Stop()
	case OpReset:
		p.anim.Reset(op.ToStart)
	case OpSeek:
		if op.Time == nil {
			return fmt.Errorf("%w: seek needs time", ErrMissingArgument)
		}
		p.anim.SetCurrentTime(*op.Time)
	case OpSeekDelta:
		if op.Delta == nil {
			return fmt.Errorf("%w: seekDelta needs delta", ErrMissingArgument)
		}
		p.anim.SetCurrentDelta(*op.Delta)
	case OpRate:
		if op.Rate == nil {
			return fmt.Errorf("%w: rate needs rate", ErrMissingArgument)
		}
		p.anim.SetPlaybackRate(*op.Rate)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOperation, op.Type)
	}
	return nil
}

// State snapshots the animation.
func (p *Playback) State() PlaybackState {
	p.mu.Lock()
	seq := p.serverSeq
	p.mu.Unlock()

	a := p.anim
	return PlaybackState{
		AnimationID:  a.ID(),
		State:        a.State().String(),
		CurrentTime:  a.CurrentTime(),
		CurrentDelta: a.CurrentDelta(),
		PlaybackRate: a.PlaybackRate(),
		Iteration:    a.Iteration(),
		Duration:     a.Duration(),
		Iterations:   a.Iterations(),
		Props:        a.Props(),
		ServerSeq:    seq,
	}
}
