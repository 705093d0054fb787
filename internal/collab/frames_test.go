package collab

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/inamate/keyframes/internal/engine"
	"github.com/inamate/keyframes/internal/keyframe"
)

// drain empties the client's queue and counts animation events by type.
func drain(t *testing.T, c *Client) map[string]int {
	t.Helper()
	got := make(map[string]int)
	for {
		select {
		case data := <-c.send:
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatal(err)
			}
			if msg.Type != TypeAnimEvent {
				got[msg.Type]++
				continue
			}
			var p AnimEventPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				t.Fatal(err)
			}
			got[p.Event]++
		default:
			return got
		}
	}
}

func TestRoomSpacesTimeUpdates(t *testing.T) {
	frames := engine.NewManualFrames()
	clock := engine.NewManualClock(time.Unix(0, 0))
	loader := func(ctx context.Context, id string) (*keyframe.Track, error) {
		return &keyframe.Track{Keyframes: testKeyframes(), Duration: 2000}, nil
	}
	hub := NewHub(loader, Options{
		Scheduler:          engine.NewScheduler(frames),
		Clock:              clock,
		TimeUpdateInterval: 50 * time.Millisecond,
		Logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	room, err := hub.newRoom(context.Background(), "trk")
	if err != nil {
		t.Fatal(err)
	}
	anim := room.playback.Animation()
	t.Cleanup(anim.Destroy)

	client := NewClient(hub, nil, "viewer", "Viewer", "trk", "client", false)
	hub.rooms["trk"] = room
	room.clients[client.ClientID] = client

	anim.Play()
	for i := 0; i < 12; i++ {
		clock.Advance(10 * time.Millisecond)
		frames.Fire()
	}
	if anim.CurrentTime() != 120 {
		t.Fatalf("current time = %v, want 120", anim.CurrentTime())
	}

	got := drain(t, client)
	if n := got[string(engine.EventTimeUpdate)]; n != 3 {
		t.Errorf("timeupdates = %d, want 3 over 120ms at 50ms spacing", n)
	}
	if got[string(engine.EventPlay)] != 1 || got[string(engine.EventAnimationStart)] != 1 {
		t.Errorf("state events = %v", got)
	}

	anim.Pause()
	if n := drain(t, client)[string(engine.EventPause)]; n != 1 {
		t.Errorf("pause events = %d, want 1", n)
	}
}

func TestFrameGate(t *testing.T) {
	start := time.Unix(0, 0)
	g := &frameGate{interval: 50 * time.Millisecond}
	steps := []struct {
		at   time.Duration
		want bool
	}{
		{0, true},
		{20 * time.Millisecond, false},
		{49 * time.Millisecond, false},
		{50 * time.Millisecond, true},
		{60 * time.Millisecond, false},
		{200 * time.Millisecond, true},
	}
	for _, s := range steps {
		if got := g.allow(start.Add(s.at)); got != s.want {
			t.Errorf("allow at %v = %v, want %v", s.at, got, s.want)
		}
	}

	open := &frameGate{interval: -1}
	for i := 0; i < 3; i++ {
		if !open.allow(start) {
			t.Fatal("negative interval gated a frame")
		}
	}
}

func TestClientSkipsFramesWhenBackedUp(t *testing.T) {
	c := NewClient(nil, nil, "viewer", "Viewer", "trk", "client", false)
	for i := 0; i < sendBuffer; i++ {
		c.enqueueFrame([]byte(`{}`))
	}
	if len(c.send) != frameBacklog {
		t.Fatalf("queued frames = %d, want %d", len(c.send), frameBacklog)
	}
	if c.skipped != sendBuffer-frameBacklog {
		t.Errorf("skipped = %d, want %d", c.skipped, sendBuffer-frameBacklog)
	}

	c.Send(&Message{Type: TypeViewerJoin})
	if len(c.send) != frameBacklog+1 {
		t.Errorf("state message not queued behind frames: len %d", len(c.send))
	}

	<-c.send
	<-c.send
	c.enqueueFrame([]byte(`{}`))
	if c.skipped != 0 || len(c.send) != frameBacklog {
		t.Errorf("after catching up: skipped %d len %d", c.skipped, len(c.send))
	}

	c.close()
	c.enqueueFrame([]byte(`{}`))
	c.Send(&Message{Type: TypeViewerJoin})
}
