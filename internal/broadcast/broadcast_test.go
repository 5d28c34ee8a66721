package broadcast

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/require"
)

func testLogger() slog.Logger {
	backend := slog.NewBackend(os.Stderr)
	log := backend.Logger("test")
	log.SetLevel(slog.LevelError)
	return log
}

type fakeViewer struct {
	id       string
	received [][]byte
}

func (v *fakeViewer) PlayerID() string { return v.id }
func (v *fakeViewer) Send(message []byte) error {
	v.received = append(v.received, message)
	return nil
}

func TestBroadcastState_ProjectsPerViewer(t *testing.T) {
	hub := NewHub("TABLE1", testLogger())
	alice := &fakeViewer{id: "alice"}
	bob := &fakeViewer{id: "bob"}
	hub.Subscribe("conn-a", alice)
	hub.Subscribe("conn-b", bob)

	hub.BroadcastState(func(viewerID string) (any, error) {
		return map[string]string{"you": viewerID}, nil
	})

	require.Len(t, alice.received, 1)
	require.Len(t, bob.received, 1)

	var aliceView map[string]string
	require.NoError(t, json.Unmarshal(alice.received[0], &aliceView))
	require.Equal(t, "alice", aliceView["you"])

	var bobView map[string]string
	require.NoError(t, json.Unmarshal(bob.received[0], &bobView))
	require.Equal(t, "bob", bobView["you"])
}

func TestPublishEvent_DedupesByID(t *testing.T) {
	hub := NewHub("TABLE1", testLogger())
	v := &fakeViewer{id: "alice"}
	hub.Subscribe("conn-a", v)

	ev := Event{ID: "evt-1", Type: EventHandStarted, LobbyCode: "TABLE1"}
	hub.PublishEvent(ev)
	hub.PublishEvent(ev)

	require.Len(t, v.received, 1, "a duplicate event ID must only be delivered once")
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	hub := NewHub("TABLE1", testLogger())
	v := &fakeViewer{id: "alice"}
	hub.Subscribe("conn-a", v)
	hub.Unsubscribe("conn-a")

	hub.PublishEvent(Event{ID: "evt-1", Type: EventGameStarted})
	require.Empty(t, v.received)
}
