package poker

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/decred/slog"
	"github.com/vctt94/cardroom/internal/rng"
)

const (
	MinPlayers = 2
	MaxPlayers = 9

	DefaultTurnTimeout = 30 * time.Second
)

// Table is one poker lobby's engine: seat/host bookkeeping around a Game.
// mu serializes every command against this table, per the concurrency
// model's per-lobby mutex: a table mutates, so a plain Mutex is used rather
// than the teacher's RWMutex.
type Table struct {
	mu sync.Mutex

	code string

	players []*Player
	hostID  string

	game   *Game
	config GameConfig
	rng    rng.Source
	log    slog.Logger

	version   uint64
	actionLog []string

	gameStarted  bool
	rewardIssued bool

	clock     quartz.Clock
	turnTimer *quartz.Timer
}

// NewTable creates an empty poker table identified by code, with its turn
// timer driven by the real wall clock.
func NewTable(code string, config GameConfig, src rng.Source, log slog.Logger) *Table {
	return &Table{code: code, config: config, rng: src, log: log, clock: quartz.NewReal()}
}

// SetClock overrides the table's turn-timer clock, for tests that need to
// advance a fake clock instead of sleeping.
func (t *Table) SetClock(clock quartz.Clock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clock = clock
}

// Code returns the lobby code this table is registered under.
func (t *Table) Code() string { return t.code }

// GameType identifies this table's game family, for the lobby registry and dispatcher.
func (t *Table) GameType() string { return "poker" }

// PhaseName returns the current phase as a string, satisfying the shared Room projection.
func (t *Table) PhaseName() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.game == nil {
		return string(PhaseWaiting)
	}
	return string(t.game.Phase())
}

// Version returns the monotonically increasing state version, bumped on
// every accepted command, used for client reconciliation.
func (t *Table) Version() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.version
}

// bumpVersion records an accepted state change and appends to the action log.
func (t *Table) bumpVersion(action string) {
	t.version++
	t.actionLog = append(t.actionLog, action)
	if len(t.actionLog) > 200 {
		t.actionLog = t.actionLog[len(t.actionLog)-200:]
	}
}

// ActionLog returns the most recent accepted actions, oldest first.
func (t *Table) ActionLog() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.actionLog
}

// Players returns the seated players in seat order.
func (t *Table) Players() []*Player {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.players
}

// HostID returns the current host's player ID.
func (t *Table) HostID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hostID
}

// IsGameStarted reports whether a game has been started on this table. It
// stays true between hands and turns false once too few funded players remain.
func (t *Table) IsGameStarted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gameStarted
}

// AddPlayer seats a new player, making them host if they're first to arrive.
func (t *Table) AddPlayer(id, name string) (*Player, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.getPlayer(id) != nil {
		return nil, fmt.Errorf("poker: player %q already seated", id)
	}
	if len(t.players) >= MaxPlayers {
		return nil, fmt.Errorf("poker: table %q is full", t.code)
	}
	p := NewPlayer(id, name, len(t.players), t.config.StartingChips)
	t.players = append(t.players, p)
	if t.hostID == "" {
		t.hostID = id
	}
	t.bumpVersion("join:" + id)
	return p, nil
}

// RemovePlayer removes a seated player. If the game is in progress the seat
// is marked folded and out rather than physically removed, preserving seat
// indices the running Game already captured.
func (t *Table) RemovePlayer(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gameStarted {
		if p := t.getPlayer(id); p != nil {
			p.HasFolded = true
			p.Balance = 0
		}
	} else {
		for i, p := range t.players {
			if p.ID == id {
				t.players = append(t.players[:i], t.players[i+1:]...)
				break
			}
		}
		for i, p := range t.players {
			p.Seat = i
		}
	}
	if t.hostID == id {
		t.transferHost()
	}
	t.bumpVersion("leave:" + id)
	t.armTurnTimerLocked()
}

func (t *Table) transferHost() {
	for _, p := range t.players {
		if p.Balance > 0 || !t.gameStarted {
			t.hostID = p.ID
			return
		}
	}
	t.hostID = ""
}

func (t *Table) getPlayer(id string) *Player {
	for _, p := range t.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// GetPlayer exposes seat lookup for the dispatcher and broadcaster.
func (t *Table) GetPlayer(id string) *Player {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.getPlayer(id)
}

// SetCardsRevealed lets a player opt to show (or re-hide) their hole cards,
// a choice only meaningful once a hand has reached showdown.
func (t *Table) SetCardsRevealed(playerID string, reveal bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.getPlayer(playerID)
	if p == nil {
		return fmt.Errorf("poker: unknown player %q on table %q", playerID, t.code)
	}
	p.CardsRevealed = reveal
	return nil
}

// ReadyToStart reports whether enough players with chips are seated.
func (t *Table) ReadyToStart() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readyToStartLocked()
}

func (t *Table) readyToStartLocked() bool {
	funded := 0
	for _, p := range t.players {
		if p.Balance > 0 {
			funded++
		}
	}
	return funded >= MinPlayers
}

// StartGame deals the first hand of a new game on this table.
func (t *Table) StartGame() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startGameLocked()
}

func (t *Table) startGameLocked() error {
	if t.gameStarted {
		return fmt.Errorf("poker: game already in progress on table %q", t.code)
	}
	if !t.readyToStartLocked() {
		return fmt.Errorf("poker: table %q needs at least %d funded players", t.code, MinPlayers)
	}
	t.game = NewGame(t.players, t.config, t.rng, t.log)
	t.gameStarted = true
	t.rewardIssued = false
	t.game.StartHand()
	t.bumpVersion("start_game")
	t.armTurnTimerLocked()
	return nil
}

// StartNextHand deals a new hand, rotating the dealer button, once the
// previous hand has concluded (phase hand_end).
func (t *Table) StartNextHand() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.game == nil {
		return t.startGameLocked()
	}
	if t.game.Phase() != PhaseHandEnd {
		return fmt.Errorf("poker: hand still in progress on table %q", t.code)
	}
	t.pruneBustedPlayers()
	t.game.players = t.players
	if !t.readyToStartLocked() {
		t.gameStarted = false
		t.bumpVersion("game_over")
		return fmt.Errorf("poker: not enough funded players to continue on table %q", t.code)
	}
	t.game.RotateDealer()
	t.rewardIssued = false
	t.game.StartHand()
	t.bumpVersion("new_hand")
	t.armTurnTimerLocked()
	return nil
}

// isActiveBettingPhase reports whether phase has a player on the clock.
func isActiveBettingPhase(phase Phase) bool {
	switch phase {
	case PhasePreFlop, PhaseFlop, PhaseTurn, PhaseRiver:
		return true
	default:
		return false
	}
}

// armTurnTimerLocked cancels any running turn timer and, if a hand is
// mid-street with a player on the clock, arms a fresh one for that player.
// Callers must hold t.mu.
func (t *Table) armTurnTimerLocked() {
	t.cancelTurnTimerLocked()
	if t.game == nil || !isActiveBettingPhase(t.game.Phase()) {
		return
	}
	playerID := t.game.CurrentPlayerID()
	if playerID == "" {
		return
	}
	timeout := t.config.TurnTimeout
	if timeout <= 0 {
		timeout = DefaultTurnTimeout
	}
	t.turnTimer = t.clock.AfterFunc(timeout, func() { t.onTurnTimeout(playerID) })
}

// cancelTurnTimerLocked stops and clears the running turn timer, if any.
// Callers must hold t.mu.
func (t *Table) cancelTurnTimerLocked() {
	if t.turnTimer != nil {
		t.turnTimer.Stop()
		t.turnTimer = nil
	}
}

// onTurnTimeout auto-checks or auto-folds playerID once their turn timer
// expires, then arms the next player's timer. A timer that fires after the
// turn already moved on (a race with an accepted action) is a no-op.
func (t *Table) onTurnTimeout(playerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.game == nil || t.game.CurrentPlayerID() != playerID {
		return
	}
	if err := t.game.AutoAct(playerID); err != nil {
		t.log.Warnf("poker: turn-timeout auto-act failed for %q on table %q: %v", playerID, t.code, err)
		return
	}
	t.bumpVersion("timeout:" + playerID)
	if t.game.Phase() == PhaseHandEnd {
		t.bumpVersion("hand_end")
	}
	t.armTurnTimerLocked()
}

// pruneBustedPlayers removes zero-balance players from the active roster so
// they stop occupying a seat the dealer button or blind rotation can land on.
func (t *Table) pruneBustedPlayers() {
	kept := t.players[:0]
	for _, p := range t.players {
		if p.Balance > 0 {
			kept = append(kept, p)
		}
	}
	t.players = kept
	for i, p := range t.players {
		p.Seat = i
	}
}

// Game returns the active hand engine, or nil if none is running. Callers
// mutating the returned Game directly (as tests do) must not race concurrent
// Dispatch calls on the same table.
func (t *Table) Game() *Game {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.game
}

// ConsumeTerminalResult reports the winners of a just-settled hand exactly
// once: the first caller after the hand reaches PhaseHandEnd gets (winners,
// true); every later caller (or one before settlement) gets (nil, false).
// Callers use this to drive reward issuance without the engine knowing
// anything about storage.
func (t *Table) ConsumeTerminalResult() ([]string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.game == nil || t.game.Phase() != PhaseHandEnd || t.rewardIssued {
		return nil, false
	}
	t.rewardIssued = true
	winners := append([]string(nil), t.game.Winners()...)
	return winners, true
}

// Dispatch routes a named action to the running game, bumping the lobby
// version on acceptance. amount is ignored by actions that don't need it.
func (t *Table) Dispatch(playerID, action string, amount int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.game == nil {
		return fmt.Errorf("poker: no hand in progress on table %q", t.code)
	}
	var err error
	switch action {
	case "fold":
		err = t.game.HandleFold(playerID)
	case "check":
		err = t.game.HandleCheck(playerID)
	case "call":
		err = t.game.HandleCall(playerID)
	case "bet", "raise":
		err = t.game.HandleBet(playerID, amount)
	case "all-in":
		err = t.game.HandleAllIn(playerID)
	default:
		return fmt.Errorf("poker: unknown action %q", action)
	}
	if err != nil {
		return err
	}
	t.bumpVersion(fmt.Sprintf("%s:%s", action, playerID))

	if t.game.Phase() == PhaseHandEnd {
		t.bumpVersion("hand_end")
	}
	t.armTurnTimerLocked()
	return nil
}

// SeatSnapshot is an ordered, read-only view of seated players for broadcasting.
type SeatSnapshot struct {
	ID       string
	Name     string
	Seat     int
	Balance  int64
	Status   string
	HasBet   int64
	IsDealer bool
}

// Seats returns a stable, seat-ordered snapshot of every seated player.
func (t *Table) Seats() []SeatSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]SeatSnapshot, 0, len(t.players))
	dealerID := ""
	if t.game != nil && len(t.players) > 0 {
		dealerID = t.players[t.game.dealerSeat%len(t.players)].ID
	}
	for _, p := range t.players {
		out = append(out, SeatSnapshot{
			ID: p.ID, Name: p.Name, Seat: p.Seat, Balance: p.Balance,
			Status: p.Status(), HasBet: p.HasBet, IsDealer: p.ID == dealerID,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seat < out[j].Seat })
	return out
}
