package uno

import (
	"fmt"
	"sort"
	"sync"

	"github.com/decred/slog"
	"github.com/vctt94/cardroom/internal/rng"
)

const (
	MinPlayers = 2
	MaxPlayers = 10
)

// Table is one UNO lobby's engine: seat/host bookkeeping around a Game.
// mu serializes every command against this table, mirroring the poker
// Table's per-lobby mutex.
type Table struct {
	mu sync.Mutex

	code string

	players []*Player
	hostID  string

	game *Game
	rng  rng.Source
	log  slog.Logger

	version   uint64
	actionLog []string

	roundStarted bool
	rewardIssued bool
}

// NewTable creates an empty UNO table identified by code.
func NewTable(code string, src rng.Source, log slog.Logger) *Table {
	return &Table{code: code, rng: src, log: log}
}

func (t *Table) Code() string     { return t.code }
func (t *Table) GameType() string { return "uno" }

func (t *Table) PhaseName() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.game == nil {
		return string(PhaseWaiting)
	}
	return string(t.game.Phase())
}

func (t *Table) Version() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.version
}

func (t *Table) ActionLog() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.actionLog
}

func (t *Table) Players() []*Player {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.players
}

func (t *Table) HostID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hostID
}

func (t *Table) IsGameStarted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.roundStarted
}

// Game returns the active round engine, or nil if none is running. Callers
// mutating the returned Game directly (as tests do) must not race concurrent
// Dispatch calls on the same table.
func (t *Table) Game() *Game {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.game
}

func (t *Table) bumpVersion(action string) {
	t.version++
	t.actionLog = append(t.actionLog, action)
	if len(t.actionLog) > 200 {
		t.actionLog = t.actionLog[len(t.actionLog)-200:]
	}
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

// AddPlayer seats a new player, making them host if first to arrive.
func (t *Table) AddPlayer(id, name string) (*Player, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.getPlayer(id) != nil {
		return nil, fmt.Errorf("uno: player %q already seated", id)
	}
	if len(t.players) >= MaxPlayers {
		return nil, fmt.Errorf("uno: table %q is full", t.code)
	}
	p := &Player{ID: id, Name: name, Seat: len(t.players)}
	t.players = append(t.players, p)
	if t.hostID == "" {
		t.hostID = id
	}
	t.bumpVersion("join:" + id)
	return p, nil
}

// RemovePlayer removes id from the table. Mid-round, their cards are simply
// discarded; they no longer take turns.
func (t *Table) RemovePlayer(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, p := range t.players {
		if p.ID == id {
			t.players = append(t.players[:i], t.players[i+1:]...)
			break
		}
	}
	for i, p := range t.players {
		p.Seat = i
	}
	if t.hostID == id {
		if len(t.players) > 0 {
			t.hostID = t.players[0].ID
		} else {
			t.hostID = ""
		}
	}
	t.bumpVersion("leave:" + id)
}

// ReadyToStart reports whether enough players are seated.
func (t *Table) ReadyToStart() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readyToStartLocked()
}

func (t *Table) readyToStartLocked() bool {
	return len(t.players) >= MinPlayers
}

// StartGame deals the first round.
func (t *Table) StartGame() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startGameLocked()
}

func (t *Table) startGameLocked() error {
	if t.roundStarted {
		return fmt.Errorf("uno: round already in progress on table %q", t.code)
	}
	if !t.readyToStartLocked() {
		return fmt.Errorf("uno: table %q needs at least %d players", t.code, MinPlayers)
	}
	t.game = NewGame(t.players, t.rng, t.log)
	t.roundStarted = true
	t.rewardIssued = false
	t.game.StartRound()
	t.bumpVersion("start_game")
	return nil
}

// StartNextRound deals a new round once the previous one has ended.
func (t *Table) StartNextRound() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.game == nil {
		return t.startGameLocked()
	}
	if t.game.Phase() != PhaseRoundEnd {
		return fmt.Errorf("uno: round still in progress on table %q", t.code)
	}
	t.game.players = t.players
	if !t.readyToStartLocked() {
		t.roundStarted = false
		return fmt.Errorf("uno: not enough players to continue on table %q", t.code)
	}
	t.rewardIssued = false
	t.game.StartRound()
	t.bumpVersion("new_round")
	return nil
}

// ConsumeTerminalResult reports a just-finished round's winner exactly once,
// mirroring poker.Table.ConsumeTerminalResult.
func (t *Table) ConsumeTerminalResult() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.game == nil || t.game.Phase() != PhaseRoundEnd || t.rewardIssued {
		return "", false
	}
	t.rewardIssued = true
	return t.game.Winner(), true
}

// Dispatch routes a named action to the running round.
func (t *Table) Dispatch(playerID, action, cardID string, chosenColor Color) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.game == nil {
		return fmt.Errorf("uno: no round in progress on table %q", t.code)
	}
	var err error
	switch action {
	case "play":
		err = t.game.Play(playerID, cardID, chosenColor)
	case "draw":
		err = t.game.Draw(playerID)
	case "pass":
		err = t.game.Pass(playerID)
	case "call_uno":
		err = t.game.CallUno(playerID)
	case "catch_uno":
		err = t.game.CatchUno(cardID) // cardID carries the target player ID for this action
	default:
		return fmt.Errorf("uno: unknown action %q", action)
	}
	if err != nil {
		return err
	}
	t.bumpVersion(fmt.Sprintf("%s:%s", action, playerID))
	if t.game.Phase() == PhaseRoundEnd {
		t.bumpVersion("round_end")
	}
	return nil
}

// SeatSnapshot is an ordered, read-only view of a seated player for broadcasting.
type SeatSnapshot struct {
	ID        string
	Name      string
	Seat      int
	HandCount int
	CalledUno bool
}

// Seats returns a stable, seat-ordered snapshot of every seated player.
func (t *Table) Seats() []SeatSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]SeatSnapshot, 0, len(t.players))
	for _, p := range t.players {
		out = append(out, SeatSnapshot{ID: p.ID, Name: p.Name, Seat: p.Seat, HandCount: len(p.Hand), CalledUno: p.CalledUno})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seat < out[j].Seat })
	return out
}
