package collab

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
)

// Roster tracks the viewers connected to a room.
type Roster struct {
	mu      sync.RWMutex
	viewers map[string]ViewerPayload // viewerID -> viewer
}

func NewRoster() *Roster {
	return &Roster{
		viewers: make(map[string]ViewerPayload),
	}
}

func (r *Roster) Add(v ViewerPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.viewers[v.ViewerID] = v
}

func (r *Roster) Remove(viewerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.viewers, viewerID)
}

// All returns the viewers ordered by ID.
func (r *Roster) All() []ViewerPayload {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ViewerPayload, 0, len(r.viewers))
	for _, v := range r.viewers {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ViewerID < result[j].ViewerID })
	return result
}

func (r *Roster) StateMessage() *Message {
	payload, err := json.Marshal(ViewerStatePayload{Viewers: r.All()})
	if err != nil {
		slog.Error("marshal viewer state", "error", err)
		return nil
	}
	return &Message{
		Type:    TypeViewerState,
		Payload: payload,
	}
}
