package collab

import "encoding/json"

type Message struct {
	Type     string          `json:"type"`
	TrackID  string          `json:"trackId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	ViewerID string          `json:"viewerId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

const (
	TypeError = "error"

	// Connection
	TypeWelcome = "welcome"

	// Animation events, one per engine event
	TypeAnimEvent = "anim.event"

	// Viewer roster
	TypeViewerState = "viewer.state"
	TypeViewerJoin  = "viewer.join"
	TypeViewerLeave = "viewer.leave"

	// Playback control
	TypeOpSubmit    = "op.submit"
	TypeOpAck       = "op.ack"
	TypeOpNack      = "op.nack"
	TypeOpBroadcast = "op.broadcast"
)

// Operation types.
const (
	OpPlay      = "play"
	OpPause     = "pause"
	OpStop      = "stop"
	OpReset     = "reset"
	OpSeek      = "seek"
	OpSeekDelta = "seekDelta"
	OpRate      = "rate"
)

// Operation is a playback control request.
type Operation struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	ClientSeq int64  `json:"clientSeq"`

	// For seek, in milliseconds
	Time *float64 `json:"time,omitempty"`
	// For seekDelta
	Delta *float64 `json:"delta,omitempty"`
	// For rate
	Rate *float64 `json:"rate,omitempty"`
	// For reset
	ToStart bool `json:"toStart,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type WelcomePayload struct {
	ClientID   string        `json:"clientId"`
	ViewerID   string        `json:"viewerId"`
	CanControl bool          `json:"canControl"`
	Playback   PlaybackState `json:"playback"`
}

// PlaybackState is a snapshot of a room's animation.
type PlaybackState struct {
	AnimationID  string             `json:"animationId"`
	State        string             `json:"state"`
	CurrentTime  float64            `json:"currentTime"`
	CurrentDelta float64            `json:"currentDelta"`
	PlaybackRate float64            `json:"playbackRate"`
	Iteration    int                `json:"iteration"`
	Duration     float64            `json:"duration"`
	Iterations   int                `json:"iterations"`
	Props        map[string]float64 `json:"props"`
	ServerSeq    int64              `json:"serverSeq"`
}

type AnimEventPayload struct {
	Event         string             `json:"event"`
	CurrentTime   float64            `json:"currentTime"`
	CurrentDelta  float64            `json:"currentDelta"`
	PlaybackRate  float64            `json:"playbackRate"`
	Iteration     int                `json:"iteration"`
	KeyframeDelta *float64           `json:"keyframeDelta,omitempty"`
	Props         map[string]float64 `json:"props,omitempty"`
	PreviousProps map[string]float64 `json:"previousProps,omitempty"`
}

type ViewerPayload struct {
	ViewerID    string `json:"viewerId"`
	DisplayName string `json:"displayName"`
	CanControl  bool   `json:"canControl"`
}

type ViewerStatePayload struct {
	Viewers []ViewerPayload `json:"viewers"`
}

type ViewerLeavePayload struct {
	ViewerID string `json:"viewerId"`
}

// OperationSubmitPayload is the payload for op.submit messages
type OperationSubmitPayload struct {
	Operation Operation `json:"operation"`
}

// OperationAckPayload is the payload for op.ack messages
type OperationAckPayload struct {
	OperationID     string `json:"operationId"`
	ServerSeq       int64  `json:"serverSeq"`
	ServerTimestamp int64  `json:"serverTimestamp"`
}

// OperationNackPayload is the payload for op.nack messages
type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

// OperationBroadcastPayload is the payload for op.broadcast messages
type OperationBroadcastPayload struct {
	Operation Operation `json:"operation"`
	ViewerID  string    `json:"viewerId"`
	ServerSeq int64     `json:"serverSeq"`
}
