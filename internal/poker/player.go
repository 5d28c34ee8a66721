package poker

import (
	"github.com/vctt94/cardroom/internal/statemachine"
)

// PlayerStateFn is a state function over a seated Player.
type PlayerStateFn = statemachine.StateFn[Player]

// Player is one seat at a poker table.
type Player struct {
	ID       string
	Name     string
	Seat     int
	Balance  int64

	Hand      []Card
	HasBet    int64 // chips committed this betting round
	TotalBet  int64 // chips committed this hand, across all rounds
	HasFolded bool
	IsAllIn   bool
	IsDealer  bool
	IsTurn    bool

	HandValue       HandValue
	HandDescription string

	// CardsRevealed is a player-chosen flag, only meaningful at showdown,
	// letting a winner voluntarily show their hole cards to the table.
	CardsRevealed bool

	stateMachine *statemachine.StateMachine[Player]
}

// NewPlayer seats a new player with the given starting balance.
func NewPlayer(id, name string, seat int, balance int64) *Player {
	p := &Player{ID: id, Name: name, Seat: seat, Balance: balance}
	p.stateMachine = statemachine.NewStateMachine(p, playerStateAtTable)
	return p
}

// ResetForNewHand clears per-hand state ahead of a fresh deal.
func (p *Player) ResetForNewHand() {
	p.Hand = nil
	p.HasBet = 0
	p.TotalBet = 0
	p.HasFolded = false
	p.IsAllIn = false
	p.IsTurn = false
	p.HandValue = HandValue{}
	p.HandDescription = ""
	if p.Balance > 0 {
		p.stateMachine.SetState(playerStateInGame)
	}
}

// IsActiveInGame reports whether the player can still act or win this hand.
func (p *Player) IsActiveInGame() bool {
	return !p.HasFolded && p.Balance+p.HasBet >= 0
}

// CanAct reports whether the player may take a betting action this turn.
func (p *Player) CanAct() bool {
	return !p.HasFolded && !p.IsAllIn && p.Balance > 0
}

func playerStateAtTable(p *Player, notify func(string, statemachine.StateEvent)) PlayerStateFn {
	if notify != nil {
		notify("at_table", statemachine.StateEntered)
	}
	return playerStateAtTable
}

func playerStateInGame(p *Player, notify func(string, statemachine.StateEvent)) PlayerStateFn {
	if notify != nil {
		notify("in_game", statemachine.StateEntered)
	}
	switch {
	case p.HasFolded:
		return playerStateFolded
	case p.IsAllIn:
		return playerStateAllIn
	default:
		return playerStateInGame
	}
}

func playerStateFolded(p *Player, notify func(string, statemachine.StateEvent)) PlayerStateFn {
	if notify != nil {
		notify("folded", statemachine.StateEntered)
	}
	return playerStateFolded
}

func playerStateAllIn(p *Player, notify func(string, statemachine.StateEvent)) PlayerStateFn {
	if notify != nil {
		notify("all_in", statemachine.StateEntered)
	}
	return playerStateAllIn
}

// Tick advances the player's own state machine one step, reflecting any
// fold/all-in transition made since the last dispatch.
func (p *Player) Tick() {
	p.stateMachine.Dispatch(nil)
}

// Status returns a short human-readable state label, used in broadcasts.
func (p *Player) Status() string {
	switch {
	case p.HasFolded:
		return "folded"
	case p.IsAllIn:
		return "all_in"
	default:
		return "in_game"
	}
}
