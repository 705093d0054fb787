package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/inamate/keyframes/internal/engine"
	"github.com/inamate/keyframes/internal/keyframe"
)

// TrackLoader returns the compiled track a room plays.
type TrackLoader func(ctx context.Context, trackID string) (*keyframe.Track, error)

// DefaultDuration applies to tracks that do not carry @duration.
const DefaultDuration = 10000

// DefaultTimeUpdateInterval spaces out timeupdate broadcasts in a room.
const DefaultTimeUpdateInterval = 50 * time.Millisecond

type Options struct {
	// Scheduler drives every room's animation. Defaults to engine.Default().
	Scheduler *engine.Scheduler
	// Duration for tracks without one, in milliseconds.
	Duration float64
	// Easing is the default easing name.
	Easing string
	// TimeUpdateInterval is the minimum spacing of timeupdate broadcasts.
	// Zero uses DefaultTimeUpdateInterval; negative sends every frame.
	TimeUpdateInterval time.Duration
	// Clock drives room animations and the timeupdate spacing.
	Clock  engine.Clock
	Logger *slog.Logger
}

type Room struct {
	trackID  string
	clients  map[string]*Client // clientID -> client
	roster   *Roster
	playback *Playback
	frames   *frameGate
}

// frameGate passes at most one timeupdate per interval.
type frameGate struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func (g *frameGate) allow(now time.Time) bool {
	if g.interval <= 0 {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.last.IsZero() && now.Sub(g.last) < g.interval {
		return false
	}
	g.last = now
	return true
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // trackID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	loader TrackLoader
	opts   Options
	logger *slog.Logger
}

func NewHub(loader TrackLoader, opts Options) *Hub {
	if opts.Scheduler == nil {
		opts.Scheduler = engine.Default()
	}
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.TimeUpdateInterval == 0 {
		opts.TimeUpdateInterval = DefaultTimeUpdateInterval
	}
	if opts.Clock == nil {
		opts.Clock = engine.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		loader:     loader,
		opts:       opts,
		logger:     opts.Logger,
	}
}

// Run serves registrations until ctx is done, then destroys every room.
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()
	for {
		select {
		case client := <-h.register:
			h.addClient(ctx, client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ctx.Done():
			return nil
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) shutdown() {
	close(h.done)

	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]*Room)
	h.mu.Unlock()

	for _, room := range rooms {
		for _, c := range room.clients {
			c.close()
		}
		room.playback.Animation().Destroy()
	}
}

// Playback returns the playback of a live room.
func (h *Hub) Playback(trackID string) (*Playback, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[trackID]
	if !ok {
		return nil, false
	}
	return room.playback, true
}

func (h *Hub) newRoom(ctx context.Context, trackID string) (*Room, error) {
	track, err := h.loader(ctx, trackID)
	if err != nil {
		return nil, fmt.Errorf("load track: %w", err)
	}

	cfg := engine.ConfigFromTrack(track, engine.Config{
		Duration:  h.opts.Duration,
		Easing:    h.opts.Easing,
		Scheduler: h.opts.Scheduler,
		Clock:     h.opts.Clock,
		Logger:    h.logger.With("track", trackID),
	})
	autoplay := cfg.Autoplay
	cfg.Autoplay = false

	anim, err := engine.New(cfg)
	if err != nil {
		return nil, err
	}

	room := &Room{
		trackID:  trackID,
		clients:  make(map[string]*Client),
		roster:   NewRoster(),
		playback: NewPlayback(anim),
		frames:   &frameGate{interval: h.opts.TimeUpdateInterval},
	}
	for _, t := range engine.EventTypes {
		anim.AddEventListener(t, func(ev engine.Event) {
			if ev.Type != engine.EventTimeUpdate {
				h.broadcastToRoom(trackID, eventMessage(trackID, ev), "")
				return
			}
			if room.frames.allow(h.opts.Clock.Now()) {
				h.broadcastFrame(trackID, eventMessage(trackID, ev))
			}
		})
	}
	if autoplay {
		anim.Play()
	}
	return room, nil
}

func (h *Hub) addClient(ctx context.Context, client *Client) {
	h.mu.RLock()
	room, ok := h.rooms[client.TrackID]
	h.mu.RUnlock()

	if !ok {
		var err error
		room, err = h.newRoom(ctx, client.TrackID)
		if err != nil {
			h.logger.Warn("open room failed", "error", err, "track", client.TrackID)
			client.Send(errorMessage("track unavailable"))
			client.close()
			return
		}
	}

	h.mu.Lock()
	h.rooms[client.TrackID] = room
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	viewer := ViewerPayload{
		ViewerID:    client.ViewerID,
		DisplayName: client.DisplayName,
		CanControl:  client.CanControl,
	}
	room.roster.Add(viewer)

	welcome, _ := json.Marshal(WelcomePayload{
		ClientID:   client.ClientID,
		ViewerID:   client.ViewerID,
		CanControl: client.CanControl,
		Playback:   room.playback.State(),
	})
	client.Send(&Message{Type: TypeWelcome, TrackID: client.TrackID, Payload: welcome})

	if stateMsg := room.roster.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	joinPayload, _ := json.Marshal(viewer)
	joinMsg := &Message{
		Type:     TypeViewerJoin,
		TrackID:  client.TrackID,
		ViewerID: client.ViewerID,
		Payload:  joinPayload,
	}
	h.broadcastToRoom(client.TrackID, joinMsg, client.ClientID)

	h.logger.Info("viewer joined", "viewer", client.ViewerID, "track", client.TrackID, "control", client.CanControl)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.TrackID]
	if !ok || room.clients[client.ClientID] != client {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.close()
	room.roster.Remove(client.ViewerID)

	empty := len(room.clients) == 0
	if empty {
		delete(h.rooms, client.TrackID)
	}
	h.mu.Unlock()

	if empty {
		room.playback.Animation().Destroy()
		h.logger.Info("room closed", "track", client.TrackID)
		return
	}

	leavePayload, _ := json.Marshal(ViewerLeavePayload{
		ViewerID: client.ViewerID,
	})
	leaveMsg := &Message{
		Type:     TypeViewerLeave,
		TrackID:  client.TrackID,
		ViewerID: client.ViewerID,
		Payload:  leavePayload,
	}
	h.broadcastToRoom(client.TrackID, leaveMsg, "")

	h.logger.Info("viewer left", "viewer", client.ViewerID, "track", client.TrackID)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypeOpSubmit:
		h.handleOpSubmit(sender, msg)
	default:
		h.logger.Warn("unknown message type", "type", msg.Type, "viewer", sender.ViewerID)
	}
}

func (h *Hub) handleOpSubmit(sender *Client, msg *Message) {
	var submit OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		h.logger.Warn("invalid operation payload", "error", err, "viewer", sender.ViewerID)
		sender.Send(errorMessage("invalid operation payload"))
		return
	}
	op := submit.Operation

	if !sender.CanControl {
		sender.Send(nackMessage(op.ID, "control token required"))
		return
	}

	h.mu.RLock()
	room, ok := h.rooms[sender.TrackID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	seq, err := room.playback.Apply(op)
	if err != nil {
		reason := "operation failed"
		if errors.Is(err, ErrUnknownOperation) || errors.Is(err, ErrMissingArgument) {
			reason = err.Error()
		}
		sender.Send(nackMessage(op.ID, reason))
		return
	}

	ackPayload, _ := json.Marshal(OperationAckPayload{
		OperationID:     op.ID,
		ServerSeq:       seq,
		ServerTimestamp: time.Now().UnixMilli(),
	})
	sender.Send(&Message{Type: TypeOpAck, TrackID: sender.TrackID, Seq: seq, Payload: ackPayload})

	broadcastPayload, _ := json.Marshal(OperationBroadcastPayload{
		Operation: op,
		ViewerID:  sender.ViewerID,
		ServerSeq: seq,
	})
	h.broadcastToRoom(sender.TrackID, &Message{
		Type:     TypeOpBroadcast,
		TrackID:  sender.TrackID,
		ViewerID: sender.ViewerID,
		Seq:      seq,
		Payload:  broadcastPayload,
	}, sender.ClientID)
}

func (h *Hub) broadcastToRoom(trackID string, msg *Message, excludeClientID string) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal message", "error", err, "type", msg.Type)
		return
	}
	for _, c := range h.roomClients(trackID, excludeClientID) {
		c.enqueue(data)
	}
}

// broadcastFrame sends a timeupdate that clients may skip when backed up.
func (h *Hub) broadcastFrame(trackID string, msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal message", "error", err, "type", msg.Type)
		return
	}
	for _, c := range h.roomClients(trackID, "") {
		c.enqueueFrame(data)
	}
}

func (h *Hub) roomClients(trackID, excludeClientID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[trackID]
	if !ok {
		return nil
	}
	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	return clients
}

func eventMessage(trackID string, ev engine.Event) *Message {
	p := AnimEventPayload{
		Event:        string(ev.Type),
		CurrentTime:  ev.CurrentTime,
		CurrentDelta: ev.CurrentDelta,
		PlaybackRate: ev.PlaybackRate,
		Iteration:    ev.Iteration,
		Props:        ev.Props,
	}
	if ev.Keyframe != nil {
		d := ev.Keyframe.Delta
		p.KeyframeDelta = &d
	}
	if ev.Type == engine.EventKeyframe {
		p.PreviousProps = ev.PreviousProps
	}
	payload, _ := json.Marshal(p)
	return &Message{Type: TypeAnimEvent, TrackID: trackID, Payload: payload}
}

func errorMessage(text string) *Message {
	payload, _ := json.Marshal(ErrorPayload{Message: text})
	return &Message{Type: TypeError, Payload: payload}
}

func nackMessage(opID, reason string) *Message {
	payload, _ := json.Marshal(OperationNackPayload{OperationID: opID, Reason: reason})
	return &Message{Type: TypeOpNack, Payload: payload}
}
