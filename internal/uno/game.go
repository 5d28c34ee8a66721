package uno

import (
	"errors"
	"fmt"
	"time"

	"github.com/decred/slog"
	"github.com/vctt94/cardroom/internal/rng"
	"github.com/vctt94/cardroom/internal/statemachine"
)

// Phase is the current stage of an UNO round.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseDealing  Phase = "dealing"
	PhasePlaying  Phase = "playing"
	PhaseRoundEnd Phase = "round_end"
)

const handSize = 7

var (
	ErrNotYourTurn      = errors.New("uno: not your turn")
	ErrCardNotHeld      = errors.New("uno: card not in hand")
	ErrIllegalPlay      = errors.New("uno: card does not match the active color or rank")
	ErrIllegalWild4     = errors.New("uno: wild draw four requires no matching color in hand")
	ErrNothingToDraw    = errors.New("uno: no pending draw penalty to resolve")
	ErrWrongColorChoice = errors.New("uno: wild cards require choosing red, yellow, green, or blue")
	ErrCannotCatch      = errors.New("uno: no open catch window for that player")
	ErrAlreadyCalled    = errors.New("uno: player already called uno")
	ErrMustPlay         = errors.New("uno: player holds a playable card and cannot draw")
	ErrNothingToPass    = errors.New("uno: pass without a drawn-playable pending for that player")
)

// ButtonPos is a uniformly random on-screen position, in percent units, for
// the "catch uno" button shown to everyone but the prompted player.
type ButtonPos struct {
	X int
	Y int
}

// UnoPrompt is the active "must call uno" catch window, naming the player it
// targets. It clears on the same transitions that clear the underlying
// catch window (a call, a successful catch, or a new round).
type UnoPrompt struct {
	TargetPlayerID string
	ButtonPos      ButtonPos
	CreatedAt      time.Time
}

// DrawnPlayable records a card just drawn that the drawing player could
// still choose to play immediately, keeping the turn instead of passing it.
type DrawnPlayable struct {
	PlayerID string
	CardID   string
}

// GameStateFn is a state function driving one UNO round.
type GameStateFn = statemachine.StateFn[Game]

// Game drives a single table's UNO round. Like the poker Game, it carries no
// mutex of its own: the owning lobby serializes every command.
type Game struct {
	players []*Player
	seat    int
	dir     int // +1 clockwise, -1 counterclockwise

	drawPile      []Face
	discardPile   []Face
	activeColor   Color
	pendingDraw   int // cards the next player must draw before acting, from an unanswered Draw2/Wild4 chain
	catchWindow   map[string]bool
	unoPrompt     *UnoPrompt
	drawnPlayable *DrawnPlayable

	phase  Phase
	winner string
	log    slog.Logger
	rng    rng.Source

	stateMachine *statemachine.StateMachine[Game]
}

// NewGame creates an UNO round over the given seated players.
func NewGame(players []*Player, src rng.Source, log slog.Logger) *Game {
	g := &Game{players: players, dir: 1, rng: src, log: log, phase: PhaseWaiting, catchWindow: make(map[string]bool)}
	g.stateMachine = statemachine.NewStateMachine(g, stateDealing)
	return g
}

func (g *Game) Phase() Phase               { return g.phase }
func (g *Game) ActiveColor() Color         { return g.activeColor }
func (g *Game) PendingDraw() int           { return g.pendingDraw }
func (g *Game) Winner() string             { return g.winner }
func (g *Game) UnoPrompt() *UnoPrompt      { return g.unoPrompt }
func (g *Game) DrawnPlayable() *DrawnPlayable { return g.drawnPlayable }

func (g *Game) topCard() Face {
	if len(g.discardPile) == 0 {
		return nil
	}
	return g.discardPile[len(g.discardPile)-1]
}

// TopCard exposes the current discard pile's top card for projection.
func (g *Game) TopCard() Face { return g.topCard() }

func (g *Game) CurrentPlayerID() string {
	if g.phase != PhasePlaying {
		return ""
	}
	return g.players[g.seat].ID
}

func (g *Game) getPlayer(id string) *Player {
	for _, p := range g.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// StartRound shuffles and deals a fresh round.
func (g *Game) StartRound() {
	for _, p := range g.players {
		p.Hand = nil
		p.CalledUno = false
	}
	g.discardPile = nil
	g.pendingDraw = 0
	g.catchWindow = make(map[string]bool)
	g.unoPrompt = nil
	g.drawnPlayable = nil
	g.winner = ""
	g.dir = 1
	g.seat = 0

	g.stateMachine.SetState(stateDealing)
}

func stateDealing(g *Game, notify func(string, statemachine.StateEvent)) GameStateFn {
	g.phase = PhaseDealing
	g.drawPile = NewDeck()
	g.rng.Shuffle(len(g.drawPile), func(i, j int) { g.drawPile[i], g.drawPile[j] = g.drawPile[j], g.drawPile[i] })

	for _, p := range g.players {
		for i := 0; i < handSize; i++ {
			p.Hand = append(p.Hand, g.draw())
		}
	}

	// Flip a start card; redraw if it's a Wild4 (illegal as a start card),
	// and apply its effect if it's an action card.
	var start Face
	for {
		start = g.draw()
		if start.Kind() != KindWild4 {
			break
		}
		// draw takes from the end, so the Wild4 goes back at the bottom.
		g.drawPile = append([]Face{start}, g.drawPile...)
	}
	g.discardPile = []Face{start}
	g.activeColor = start.Color()

	switch f := start.(type) {
	case WildFace:
		colors := []Color{ColorRed, ColorYellow, ColorGreen, ColorBlue}
		g.activeColor = colors[g.rng.Intn(len(colors))]
		_ = f
	case SkipFace:
		g.advanceSeat()
	case ReverseFace:
		g.dir = -g.dir
		if len(g.players) == 2 {
			g.advanceSeat()
		}
	case Draw2Face:
		g.pendingDraw = 2
	}

	g.phase = PhasePlaying
	return statePlaying
}

func statePlaying(g *Game, notify func(string, statemachine.StateEvent)) GameStateFn {
	if g.winner != "" {
		g.phase = PhaseRoundEnd
		return stateRoundEnd
	}
	return statePlaying
}

func stateRoundEnd(g *Game, notify func(string, statemachine.StateEvent)) GameStateFn {
	g.phase = PhaseRoundEnd
	return stateRoundEnd
}

// draw removes and returns the top card of the draw pile, reshuffling the
// discard pile (keeping its top card) back into the draw pile if it's empty.
func (g *Game) draw() Face {
	if len(g.drawPile) == 0 {
		g.reshuffleDiscardIntoDraw()
	}
	if len(g.drawPile) == 0 {
		return nil // both piles exhausted; practically unreachable with 108 cards
	}
	c := g.drawPile[len(g.drawPile)-1]
	g.drawPile = g.drawPile[:len(g.drawPile)-1]
	return c
}

func (g *Game) reshuffleDiscardIntoDraw() {
	if len(g.discardPile) <= 1 {
		return
	}
	top := g.discardPile[len(g.discardPile)-1]
	rest := g.discardPile[:len(g.discardPile)-1]
	g.drawPile = append(g.drawPile, rest...)
	g.rng.Shuffle(len(g.drawPile), func(i, j int) { g.drawPile[i], g.drawPile[j] = g.drawPile[j], g.drawPile[i] })
	g.discardPile = []Face{top}
}

func (g *Game) advanceSeat() {
	n := len(g.players)
	g.seat = ((g.seat+g.dir)%n + n) % n
}

// isPlayable reports whether face can legally be played right now by p,
// honoring both the top-card/active-color match and the Wild4 restriction
// (legal only when p holds no card of the active color).
func (g *Game) isPlayable(p *Player, face Face) bool {
	if g.pendingDraw > 0 {
		return face.Kind() == KindDraw2
	}
	if !Matches(face, g.topCard(), g.activeColor) {
		return false
	}
	if face.Kind() == KindWild4 && p.HasColor(g.activeColor) {
		return false
	}
	return true
}

func (g *Game) hasPlayableCard(p *Player) bool {
	for _, f := range p.Hand {
		if g.isPlayable(p, f) {
			return true
		}
	}
	return false
}

func (g *Game) requireTurn(playerID string) (*Player, error) {
	p := g.getPlayer(playerID)
	if p == nil {
		return nil, fmt.Errorf("uno: unknown player %q", playerID)
	}
	if g.CurrentPlayerID() != playerID {
		return nil, ErrNotYourTurn
	}
	return p, nil
}

// Play attempts to play the card with cardID, with chosenColor required only
// for Wild/Wild4 plays.
func (g *Game) Play(playerID, cardID string, chosenColor Color) error {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return err
	}
	if !p.HasCard(cardID) {
		return ErrCardNotHeld
	}

	var face Face
	for _, f := range p.Hand {
		if f.ID() == cardID {
			face = f
			break
		}
	}

	if g.pendingDraw > 0 {
		// Only a stacking Draw2 answers an open Draw2 chain; anything else
		// must first resolve the pending draw via Draw.
		if face.Kind() != KindDraw2 {
			return ErrIllegalPlay
		}
	} else if !Matches(face, g.topCard(), g.activeColor) {
		return ErrIllegalPlay
	}

	if face.Kind() == KindWild4 && p.HasColor(g.activeColor) {
		return ErrIllegalWild4
	}
	if (face.Kind() == KindWild || face.Kind() == KindWild4) && chosenColor == ColorNone {
		return ErrWrongColorChoice
	}

	p.RemoveCard(cardID)
	g.discardPile = append(g.discardPile, face)
	g.clearCatchWindowFor(playerID)
	g.drawnPlayable = nil

	switch f := face.(type) {
	case NumberFace:
		g.activeColor = f.CardColor
		g.advanceSeat()
	case SkipFace:
		g.activeColor = f.CardColor
		g.advanceSeat()
		g.advanceSeat()
	case ReverseFace:
		g.activeColor = f.CardColor
		g.dir = -g.dir
		// Heads-up, a reverse has no direction to flip into, so house rules
		// treat it as a skip: the opponent's turn is skipped entirely.
		g.advanceSeat()
		if len(g.players) == 2 {
			g.advanceSeat()
		}
	case Draw2Face:
		g.activeColor = f.CardColor
		g.pendingDraw += 2
		g.advanceSeat()
	case WildFace:
		g.activeColor = chosenColor
		g.advanceSeat()
	case Wild4Face:
		g.activeColor = chosenColor
		g.pendingDraw += 4
		g.advanceSeat()
	}

	if len(p.Hand) == 0 {
		g.winner = playerID
		g.phase = PhaseRoundEnd
		return nil
	}
	if len(p.Hand) != 1 {
		p.CalledUno = false
	}
	if len(p.Hand) == 1 {
		g.openCatchWindow(playerID)
	}

	g.stateMachine.Dispatch(nil)
	return nil
}

// Draw draws one card for playerID on their turn. It is rejected outright if
// the player already holds a playable card: drawing is only for a player
// with no legal play. If the drawn card is itself playable against the
// now-augmented hand, the turn is held open as a drawnPlayable pointer so
// the player may immediately Play it; otherwise the turn passes to the next
// player. An open Draw2/Wild4 chain bypasses this and is resolved in full.
func (g *Game) Draw(playerID string) error {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return err
	}
	if g.pendingDraw > 0 {
		return g.resolvePendingDraw(p)
	}
	if g.hasPlayableCard(p) {
		return ErrMustPlay
	}
	card := g.draw()
	if card == nil {
		g.advanceSeat()
		g.drawnPlayable = nil
		g.stateMachine.Dispatch(nil)
		return nil
	}
	p.Hand = append(p.Hand, card)
	p.CalledUno = false
	if g.isPlayable(p, card) {
		g.drawnPlayable = &DrawnPlayable{PlayerID: playerID, CardID: card.ID()}
		g.stateMachine.Dispatch(nil)
		return nil
	}
	g.drawnPlayable = nil
	g.advanceSeat()
	g.stateMachine.Dispatch(nil)
	return nil
}

// Pass ends playerID's turn without playing a just-drawn playable card. It
// is only valid while that player holds an open drawnPlayable pointer.
func (g *Game) Pass(playerID string) error {
	if _, err := g.requireTurn(playerID); err != nil {
		return err
	}
	if g.drawnPlayable == nil || g.drawnPlayable.PlayerID != playerID {
		return ErrNothingToPass
	}
	g.drawnPlayable = nil
	g.advanceSeat()
	g.stateMachine.Dispatch(nil)
	return nil
}

func (g *Game) resolvePendingDraw(p *Player) error {
	n := g.pendingDraw
	for i := 0; i < n; i++ {
		if c := g.draw(); c != nil {
			p.Hand = append(p.Hand, c)
		}
	}
	if len(p.Hand) != 1 {
		p.CalledUno = false
	}
	g.pendingDraw = 0
	g.drawnPlayable = nil
	g.advanceSeat()
	g.stateMachine.Dispatch(nil)
	return nil
}

// CallUno announces the caller holds exactly one card, closing their own
// catch window before an opponent can catch them for the penalty.
func (g *Game) CallUno(playerID string) error {
	p := g.getPlayer(playerID)
	if p == nil {
		return fmt.Errorf("uno: unknown player %q", playerID)
	}
	if p.CalledUno {
		return ErrAlreadyCalled
	}
	if len(p.Hand) != 1 {
		return fmt.Errorf("uno: %s does not hold exactly one card", playerID)
	}
	p.CalledUno = true
	g.clearCatchWindowFor(playerID)
	return nil
}

// CatchUno lets any player penalize targetID for failing to call "uno" after
// being left with one card: targetID draws two cards.
func (g *Game) CatchUno(targetID string) error {
	if !g.catchWindow[targetID] {
		return ErrCannotCatch
	}
	target := g.getPlayer(targetID)
	if target == nil {
		return fmt.Errorf("uno: unknown player %q", targetID)
	}
	for i := 0; i < 2; i++ {
		if c := g.draw(); c != nil {
			target.Hand = append(target.Hand, c)
		}
	}
	g.clearCatchWindowFor(targetID)
	return nil
}

func (g *Game) openCatchWindow(playerID string) {
	if p := g.getPlayer(playerID); p != nil && !p.CalledUno {
		g.catchWindow[playerID] = true
		g.unoPrompt = &UnoPrompt{
			TargetPlayerID: playerID,
			ButtonPos:      ButtonPos{X: 15 + g.rng.Intn(71), Y: 20 + g.rng.Intn(56)},
			CreatedAt:      time.Now(),
		}
	}
}

func (g *Game) clearCatchWindowFor(playerID string) {
	delete(g.catchWindow, playerID)
	if g.unoPrompt != nil && g.unoPrompt.TargetPlayerID == playerID {
		g.unoPrompt = nil
	}
}
