// Package lobby tracks the set of live poker and UNO tables under their
// short join codes, generalizing the teacher's ad hoc
// `Server.tables map[string]*poker.Table` into one registry shared by both
// game families.
package lobby

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
)

// Room is the shared surface both poker.Table and uno.Table satisfy, so the
// registry and session layer can manage either without knowing game
// internals.
type Room interface {
	Code() string
	PhaseName() string
	Version() uint64
	ActionLog() []string
}

// GameType identifies which engine a code belongs to.
type GameType string

const (
	GamePoker GameType = "poker"
	GameUno   GameType = "uno"
)

// PublicCodes are the six fixed, always-present public lobbies.
var PublicCodes = map[GameType][]string{
	GamePoker: {"POKER_PUBLIC_1", "POKER_PUBLIC_2", "POKER_PUBLIC_3"},
	GameUno:   {"UNO_PUBLIC_1", "UNO_PUBLIC_2", "UNO_PUBLIC_3"},
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 6

// Registry is the process-wide index of every live table, across both games.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[GameType]map[string]Room
}

// NewRegistry creates an empty registry. The six public codes are not bound
// to a Room here; callers create and Register the actual tables for those
// codes at startup.
func NewRegistry() *Registry {
	r := &Registry{rooms: map[GameType]map[string]Room{
		GamePoker: make(map[string]Room),
		GameUno:   make(map[string]Room),
	}}
	return r
}

// IsPublicCode reports whether code is one of the six fixed public lobbies
// for gameType.
func IsPublicCode(gameType GameType, code string) bool {
	for _, c := range PublicCodes[gameType] {
		if c == code {
			return true
		}
	}
	return false
}

// Register binds code to room under gameType. Returns an error if the code
// is already in use for that game type.
func (r *Registry) Register(gameType GameType, code string, room Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rooms[gameType][code]; exists {
		return fmt.Errorf("lobby: code %q already registered for %s", code, gameType)
	}
	r.rooms[gameType][code] = room
	return nil
}

// Unregister removes code, e.g. once a private lobby empties out. Public
// codes are never removed; callers should reset them in place instead.
func (r *Registry) Unregister(gameType GameType, code string) {
	if IsPublicCode(gameType, code) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms[gameType], code)
}

// Get looks up a room by game type and code.
func (r *Registry) Get(gameType GameType, code string) (Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[gameType][code]
	return room, ok
}

// NewPrivateCode allocates a fresh, unused 6-character code across both game
// registries (codes are unique process-wide, not just within one game, so a
// code never has to carry its game type alongside it on the wire).
func (r *Registry) NewPrivateCode() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for attempt := 0; attempt < 64; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		if _, exists := r.rooms[GamePoker][code]; exists {
			continue
		}
		if _, exists := r.rooms[GameUno][code]; exists {
			continue
		}
		return code, nil
	}
	return "", fmt.Errorf("lobby: exhausted attempts allocating a unique code")
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// List returns every registered code for gameType.
func (r *Registry) List(gameType GameType) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.rooms[gameType]))
	for code := range r.rooms[gameType] {
		codes = append(codes, code)
	}
	return codes
}
