package session

import (
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"
	"github.com/vctt94/cardroom/internal/lobby"
)

func TestConnect_RejectsSecondLobbySameGameType(t *testing.T) {
	clock := quartz.NewMock(t)
	m := NewManager(clock, 15*time.Second, nil)

	require.NoError(t, m.Connect("conn1", "alice", lobby.GamePoker, "TABLE1"))
	err := m.Connect("conn2", "alice", lobby.GamePoker, "TABLE2")
	require.Error(t, err)
	var mlErr *MultiLobbyError
	require.ErrorAs(t, err, &mlErr)
}

func TestConnect_RejectsSecondLobbyDifferentGameType(t *testing.T) {
	clock := quartz.NewMock(t)
	m := NewManager(clock, 15*time.Second, nil)

	require.NoError(t, m.Connect("conn1", "alice", lobby.GamePoker, "TABLE1"))
	err := m.Connect("conn2", "alice", lobby.GameUno, "UNO1")
	require.Error(t, err)
	var mlErr *MultiLobbyError
	require.ErrorAs(t, err, &mlErr)
}

func TestConnect_RejoiningSameLobbyIsAReconnect(t *testing.T) {
	clock := quartz.NewMock(t)
	m := NewManager(clock, 15*time.Second, nil)

	require.NoError(t, m.Connect("conn1", "alice", lobby.GamePoker, "TABLE1"))
	require.NoError(t, m.Connect("conn2", "alice", lobby.GamePoker, "TABLE1"))
}

func TestDisconnect_ReconnectBeforeGraceCancelsExpiry(t *testing.T) {
	clock := quartz.NewMock(t)
	expired := false
	m := NewManager(clock, 15*time.Second, func(gameType lobby.GameType, userID, lobbyCode string) {
		expired = true
	})

	require.NoError(t, m.Connect("conn1", "alice", lobby.GamePoker, "TABLE1"))
	m.Disconnect("conn1")

	clock.Advance(10 * time.Second).MustWait(t.Context())
	require.NoError(t, m.Connect("conn2", "alice", lobby.GamePoker, "TABLE1"))

	clock.Advance(20 * time.Second).MustWait(t.Context())
	require.False(t, expired, "reconnecting before the grace window should cancel expiry")
}

func TestDisconnect_ExpiresAfterGraceWindow(t *testing.T) {
	clock := quartz.NewMock(t)
	var gotUser, gotLobby string
	m := NewManager(clock, 15*time.Second, func(gameType lobby.GameType, userID, lobbyCode string) {
		gotUser, gotLobby = userID, lobbyCode
	})

	require.NoError(t, m.Connect("conn1", "alice", lobby.GamePoker, "TABLE1"))
	m.Disconnect("conn1")

	clock.Advance(16 * time.Second).MustWait(t.Context())

	require.Equal(t, "alice", gotUser)
	require.Equal(t, "TABLE1", gotLobby)

	_, ok := m.LookupUser("alice")
	require.False(t, ok)
}
