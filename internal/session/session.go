// Package session tracks which connection belongs to which user and lobby,
// and runs the reconnect-grace window that gives a dropped player a chance
// to rejoin before their seat is forfeited. The teacher has no equivalent
// timer: it tracks disconnection as an `IsPlayerDisconnected` database flag
// checked opportunistically, with no actual countdown. This package builds
// the real cancellable timer the spec requires, on top of `coder/quartz` so
// tests can advance a fake clock instead of sleeping.
package session

import (
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/vctt94/cardroom/internal/lobby"
)

// DefaultGraceWindow is how long a disconnected player's seat is held open.
const DefaultGraceWindow = 15 * time.Second

// Entry describes one tracked connection.
type Entry struct {
	ConnectionID string
	UserID       string
	GameType     lobby.GameType
	LobbyCode    string
	Connected    bool
}

// ExpireFunc is invoked when a grace window elapses without reconnection.
type ExpireFunc func(gameType lobby.GameType, userID, lobbyCode string)

// Manager tracks live connections and grace timers.
type Manager struct {
	clock       quartz.Clock
	graceWindow time.Duration
	onExpire    ExpireFunc

	mu          sync.RWMutex
	byConn      map[string]*Entry
	byUser      map[string]*Entry
	graceTimers map[string]*quartz.Timer
}

// NewManager creates a presence manager. clock is quartz.NewReal() in
// production and a quartz.Mock in tests.
func NewManager(clock quartz.Clock, graceWindow time.Duration, onExpire ExpireFunc) *Manager {
	if graceWindow <= 0 {
		graceWindow = DefaultGraceWindow
	}
	return &Manager{
		clock:       clock,
		graceWindow: graceWindow,
		onExpire:    onExpire,
		byConn:      make(map[string]*Entry),
		byUser:      make(map[string]*Entry),
		graceTimers: make(map[string]*quartz.Timer),
	}
}

// Connect binds a new connection to (userID, gameType, lobbyCode). A user may
// hold at most one active lobby membership across ALL game types at once: if
// the same user already holds an active connection to a *different*
// lobby/game, it is refused (the multi-lobby guard). Rejoining the same
// lobby is permitted and treated as a reconnect.
func (m *Manager) Connect(connectionID, userID string, gameType lobby.GameType, lobbyCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byUser[userID]; ok && existing.Connected && (existing.GameType != gameType || existing.LobbyCode != lobbyCode) {
		return &MultiLobbyError{UserID: userID, GameType: existing.GameType, ExistingLobby: existing.LobbyCode}
	}

	if timer, ok := m.graceTimers[userID]; ok {
		timer.Stop()
		delete(m.graceTimers, userID)
	}

	entry := &Entry{ConnectionID: connectionID, UserID: userID, GameType: gameType, LobbyCode: lobbyCode, Connected: true}
	m.byConn[connectionID] = entry
	m.byUser[userID] = entry
	return nil
}

// Disconnect marks connectionID as dropped and starts a grace timer. If the
// user reconnects (a fresh Connect for the same key) before it fires, the
// timer is cancelled and the seat is preserved; otherwise onExpire fires
// exactly once.
func (m *Manager) Disconnect(connectionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.byConn[connectionID]
	if !ok {
		return
	}
	delete(m.byConn, connectionID)
	entry.Connected = false

	if cur, ok := m.byUser[entry.UserID]; !ok || cur != entry {
		return // superseded by a newer connection already
	}

	gameType, userID, lobbyCode := entry.GameType, entry.UserID, entry.LobbyCode
	timer := m.clock.AfterFunc(m.graceWindow, func() {
		m.expire(userID, gameType, lobbyCode)
	})
	m.graceTimers[userID] = timer
}

func (m *Manager) expire(userID string, gameType lobby.GameType, lobbyCode string) {
	m.mu.Lock()
	cur, stillPending := m.byUser[userID]
	if stillPending && !cur.Connected {
		delete(m.byUser, userID)
	}
	delete(m.graceTimers, userID)
	m.mu.Unlock()

	if stillPending && !cur.Connected && m.onExpire != nil {
		m.onExpire(gameType, userID, lobbyCode)
	}
}

// Lookup returns the current entry for a connection.
func (m *Manager) Lookup(connectionID string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byConn[connectionID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// LookupUser returns the current entry for a userID, whether connected or
// mid-grace-window, regardless of which game type it belongs to.
func (m *Manager) LookupUser(userID string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byUser[userID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// MultiLobbyError reports that a user already holds an active seat
// elsewhere, in this or another game type.
type MultiLobbyError struct {
	UserID        string
	GameType      lobby.GameType
	ExistingLobby string
}

func (e *MultiLobbyError) Error() string {
	return "session: user " + e.UserID + " is already active in lobby " + e.ExistingLobby + " for " + string(e.GameType)
}
