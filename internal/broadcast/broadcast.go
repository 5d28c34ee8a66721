// Package broadcast builds per-viewer projections of a lobby's state and
// fans out one-shot events to subscribers, generalizing the teacher's
// buildGameStateForPlayer/PlayerSnapshot/event-dedupe idiom
// (pkg/server/events.go, helpers.go, collectors.go) across both game types.
package broadcast

import (
	"encoding/json"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/slog"
)

// EventType names a one-shot notification fanned out to a lobby's viewers.
type EventType string

const (
	EventPlayerJoined   EventType = "player_joined"
	EventPlayerLeft     EventType = "player_left"
	EventGameStarted    EventType = "game_started"
	EventHandStarted    EventType = "hand_started"
	EventActionAccepted EventType = "action_accepted"
	EventShowdown       EventType = "showdown"
	EventRoundEnded     EventType = "round_ended"
	EventPlayerDropped  EventType = "player_disconnected"
	EventPlayerExpired  EventType = "player_forfeited"

	// EventCelebration carries {id, winnerId, effectId} once a hand/round
	// settles, naming only which celebration to play, never the UI effect
	// itself.
	EventCelebration EventType = "game:celebration"
	// EventUnoDrawFX carries {playerId, count}: it tells viewers a draw
	// happened without revealing which cards were drawn.
	EventUnoDrawFX EventType = "uno:drawFx"
	// EventUnoRoster is a lobby-phase roster update (seat/host changes
	// before a round starts).
	EventUnoRoster EventType = "uno:roster"
	// EventLobbyEnded announces a host-initiated lobby teardown.
	EventLobbyEnded EventType = "lobbyEnded"
	// EventShowdownChoice is a winner-only prompt to optionally reveal cards.
	EventShowdownChoice EventType = "poker:showdownChoice"
)

// Event is one fanned-out notification. ID is a stable, globally unique
// identifier (lobby code + version + event type is sufficient) that the
// lobby's Hub uses to publish each event at most once.
type Event struct {
	ID        string
	Type      EventType
	LobbyCode string
	Payload   any
}

// Viewer receives projected snapshots and events for one connected player.
type Viewer interface {
	// PlayerID is "" for a spectator with no hidden-information stake.
	PlayerID() string
	Send(message []byte) error
}

// Projector builds a per-viewer JSON snapshot of a lobby's current state,
// hiding any information the viewer isn't entitled to see (opponents' hole
// cards, other players' hands).
type Projector func(viewerID string) (any, error)

// Hub fans state snapshots and events out to every viewer of one lobby.
type Hub struct {
	lobbyCode string
	log       slog.Logger

	mu      sync.RWMutex
	viewers map[string]Viewer // keyed by connection id
	seen    map[string]bool   // delivered event IDs, for dedupe
}

// NewHub creates an empty fanout hub for one lobby.
func NewHub(lobbyCode string, log slog.Logger) *Hub {
	return &Hub{lobbyCode: lobbyCode, log: log, viewers: make(map[string]Viewer), seen: make(map[string]bool)}
}

// Subscribe registers a viewer's connection for this lobby's fanout.
func (h *Hub) Subscribe(connectionID string, v Viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.viewers[connectionID] = v
}

// Unsubscribe removes a connection from fanout, e.g. on disconnect.
func (h *Hub) Unsubscribe(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.viewers, connectionID)
}

// BroadcastState pushes project(viewerID)'s result to every subscribed
// viewer, each getting their own hidden-information-appropriate snapshot.
func (h *Hub) BroadcastState(project Projector) {
	h.mu.RLock()
	viewers := make(map[string]Viewer, len(h.viewers))
	for id, v := range h.viewers {
		viewers[id] = v
	}
	h.mu.RUnlock()

	for connID, v := range viewers {
		snapshot, err := project(v.PlayerID())
		if err != nil {
			h.log.Warnf("broadcast: projecting state for %s: %v", connID, err)
			continue
		}
		data, err := json.Marshal(snapshot)
		if err != nil {
			h.log.Warnf("broadcast: marshaling state for %s: %v", connID, err)
			continue
		}
		if err := v.Send(data); err != nil {
			h.log.Debugf("broadcast: sending state to %s: %v", connID, err)
		}
	}
}

// PublishEvent delivers ev to every subscribed viewer, once per event ID for
// the whole hub: an ID this hub has already published is dropped for all
// viewers. Delivery is not tracked per viewer.
func (h *Hub) PublishEvent(ev Event) {
	h.mu.Lock()
	if h.seen[ev.ID] {
		h.mu.Unlock()
		return
	}
	h.seen[ev.ID] = true
	if len(h.seen) > 1000 {
		// Bound memory: drop the dedupe set wholesale once it grows large.
		// A replayed duplicate beyond this horizon is harmless — at worst a
		// viewer sees one event twice.
		h.seen = make(map[string]bool, 1000)
		h.seen[ev.ID] = true
	}
	viewers := make(map[string]Viewer, len(h.viewers))
	for id, v := range h.viewers {
		viewers[id] = v
	}
	h.mu.Unlock()

	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Warnf("broadcast: marshaling event %s: %v", ev.ID, err)
		return
	}
	for connID, v := range viewers {
		if err := v.Send(data); err != nil {
			h.log.Debugf("broadcast: sending event to %s: %v", connID, err)
		}
	}
}

// DumpSnapshot renders snapshot with go-spew and logs it at trace level.
// It is a standalone helper for a one-off deep dump; BroadcastState does not
// call it.
func DumpSnapshot(log slog.Logger, label string, snapshot any) {
	if log.Level() > slog.LevelTrace {
		return
	}
	log.Tracef("%s:\n%s", label, spew.Sdump(snapshot))
}
