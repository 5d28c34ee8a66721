package poker

import (
	"errors"
	"fmt"
	"time"

	"github.com/decred/slog"
	"github.com/vctt94/cardroom/internal/rng"
	"github.com/vctt94/cardroom/internal/statemachine"
)

// Phase is the current street of a poker hand.
type Phase string

const (
	PhaseWaiting    Phase = "waiting"
	PhaseDealing    Phase = "dealing"
	PhasePreFlop    Phase = "preflop"
	PhaseFlop       Phase = "flop"
	PhaseTurn       Phase = "turn"
	PhaseRiver      Phase = "river"
	PhaseShowdown   Phase = "showdown"
	PhaseHandEnd    Phase = "hand_end"
)

// GameStateFn is a state function driving one hand of poker.
type GameStateFn = statemachine.StateFn[Game]

var (
	ErrNotYourTurn     = errors.New("poker: not your turn")
	ErrAlreadyFolded   = errors.New("poker: player has already folded")
	ErrBetTooLow       = errors.New("poker: bet below the minimum raise")
	ErrCannotCheck     = errors.New("poker: cannot check facing a bet")
	ErrInsufficientBal = errors.New("poker: insufficient balance")
)

// GameConfig parameterizes a single table's poker rules.
type GameConfig struct {
	SmallBlind    int64
	BigBlind      int64
	StartingChips int64
	// TurnTimeout bounds each acting player's turn; zero means DefaultTurnTimeout.
	TurnTimeout time.Duration
}

// ShowdownResult reports a completed hand's winners and per-player deltas.
type ShowdownResult struct {
	Winners      []string
	Awards       map[string]int64
	HandStrings  map[string]string
	TotalPot     int64
}

// Game drives a single poker table's hand-by-hand betting logic. It holds no
// mutex of its own: the lobby that owns it serializes every command through
// a single lock, per the concurrency model.
type Game struct {
	Config GameConfig

	players    []*Player // seat order; the table swaps in its pruned roster between hands
	dealerSeat int

	deck      *Deck
	community []Card
	pot       *PotManager

	currentSeat     int
	currentBet      int64
	lastRaiseAmount int64
	actedThisRound  map[string]bool

	phase   Phase
	winners []string
	log     slog.Logger

	rng rng.Source

	stateMachine *statemachine.StateMachine[Game]
}

// NewGame creates a game over the given seated players.
func NewGame(players []*Player, config GameConfig, src rng.Source, log slog.Logger) *Game {
	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	g := &Game{
		Config: config,
		players: players,
		pot:     NewPotManager(ids),
		phase:   PhaseWaiting,
		rng:     src,
		log:     log,
	}
	g.stateMachine = statemachine.NewStateMachine(g, stateDealing)
	return g
}

// Phase returns the game's current street.
func (g *Game) Phase() Phase { return g.phase }

// CommunityCards returns the shared board cards dealt so far.
func (g *Game) CommunityCards() []Card { return g.community }

// Winners returns the settled hand's winning player IDs, or nil before showdown.
func (g *Game) Winners() []string { return g.winners }

// CurrentBet returns the amount a player must match to stay in the hand.
func (g *Game) CurrentBet() int64 { return g.currentBet }

// CurrentPlayerID returns the ID of the player whose turn it is, or "" if none.
func (g *Game) CurrentPlayerID() string {
	if g.phase == PhaseWaiting || g.phase == PhaseShowdown || g.phase == PhaseHandEnd {
		return ""
	}
	if g.currentSeat < 0 || g.currentSeat >= len(g.players) {
		return ""
	}
	return g.players[g.currentSeat].ID
}

func (g *Game) playerBySeat(seat int) *Player {
	return g.players[seat%len(g.players)]
}

func (g *Game) getPlayer(id string) *Player {
	for _, p := range g.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// activeSeats returns the seat indices of players still in the hand (not folded).
func (g *Game) activeSeats() []int {
	var seats []int
	for i, p := range g.players {
		if !p.HasFolded {
			seats = append(seats, i)
		}
	}
	return seats
}

// StartHand resets every seated player, then dispatches the state machine
// through dealing and blinds so the first action is on the correct player.
// It leaves the dealer button where it is; Table.StartNextHand calls
// RotateDealer before each later hand.
func (g *Game) StartHand() {
	for _, p := range g.players {
		p.ResetForNewHand()
	}
	ids := make([]string, len(g.players))
	for i, p := range g.players {
		ids[i] = p.ID
	}
	g.pot = NewPotManager(ids)
	g.community = nil
	g.currentBet = 0
	g.lastRaiseAmount = g.Config.BigBlind
	g.winners = nil
	g.actedThisRound = make(map[string]bool)

	g.stateMachine.SetState(stateDealing)
	g.runUntilActionNeeded()
}

// runUntilActionNeeded dispatches the state machine until it reaches a phase
// awaiting a player action (or ends the hand).
func (g *Game) runUntilActionNeeded() {
	for i := 0; i < len(g.players)+8; i++ {
		before := g.phase
		g.stateMachine.Dispatch(nil)
		if g.phase == before && g.phase != PhaseWaiting {
			return
		}
		if g.phase == PhaseHandEnd {
			return
		}
	}
}

func stateDealing(g *Game, notify func(string, statemachine.StateEvent)) GameStateFn {
	g.phase = PhaseDealing
	g.deck = NewDeck(g.rng)
	for _, p := range g.players {
		if p.Balance <= 0 {
			continue
		}
		c1, _ := g.deck.Draw()
		c2, _ := g.deck.Draw()
		p.Hand = []Card{c1, c2}
	}
	return stateBlinds
}

func stateBlinds(g *Game, notify func(string, statemachine.StateEvent)) GameStateFn {
	n := len(g.players)
	sbSeat := (g.dealerSeat + 1) % n
	bbSeat := (g.dealerSeat + 2) % n
	if n == 2 {
		// Heads-up: the dealer posts the small blind and acts first preflop.
		sbSeat = g.dealerSeat
		bbSeat = (g.dealerSeat + 1) % n
	}

	g.postBlind(sbSeat, g.Config.SmallBlind)
	g.postBlind(bbSeat, g.Config.BigBlind)
	g.currentBet = g.Config.BigBlind
	g.lastRaiseAmount = g.Config.BigBlind

	if n == 2 {
		g.currentSeat = sbSeat
	} else {
		g.currentSeat = (bbSeat + 1) % n
	}
	g.phase = PhasePreFlop
	g.actedThisRound = make(map[string]bool)
	g.advanceToActionableSeat()
	return statePreFlop
}

func (g *Game) postBlind(seat int, amount int64) {
	p := g.playerBySeat(seat)
	post := amount
	if p.Balance < post {
		post = p.Balance
		p.IsAllIn = true
	}
	p.Balance -= post
	p.HasBet += post
	g.pot.AddBet(p.ID, post)
}

func statePreFlop(g *Game, notify func(string, statemachine.StateEvent)) GameStateFn {
	if g.roundComplete() {
		return g.advanceStreet(PhaseFlop, 3)
	}
	return statePreFlop
}

func stateFlop(g *Game, notify func(string, statemachine.StateEvent)) GameStateFn {
	if g.roundComplete() {
		return g.advanceStreet(PhaseTurn, 1)
	}
	return stateFlop
}

func stateTurn(g *Game, notify func(string, statemachine.StateEvent)) GameStateFn {
	if g.roundComplete() {
		return g.advanceStreet(PhaseRiver, 1)
	}
	return stateTurn
}

func stateRiver(g *Game, notify func(string, statemachine.StateEvent)) GameStateFn {
	if g.roundComplete() {
		g.phase = PhaseShowdown
		return stateShowdown
	}
	return stateRiver
}

// roundComplete reports whether the betting round is over: either every
// player still in the hand who can act has acted and matched the current bet
// (or is all-in), or at most one player remains able to act and nobody owes
// a call, in which case the remaining streets run out without action.
func (g *Game) roundComplete() bool {
	active := g.activeSeats()
	if len(active) <= 1 {
		return true
	}
	actionable := 0
	for _, seat := range active {
		if g.players[seat].CanAct() {
			actionable++
		}
	}
	if actionable <= 1 {
		return allMatched(g)
	}
	for _, seat := range active {
		p := g.players[seat]
		if p.CanAct() && (!g.actedThisRound[p.ID] || p.HasBet != g.currentBet) {
			return false
		}
	}
	return true
}

func allMatched(g *Game) bool {
	for _, seat := range g.activeSeats() {
		p := g.players[seat]
		if p.CanAct() && p.HasBet != g.currentBet {
			return false
		}
	}
	return true
}

// advanceStreet deals n community cards, resets round-scoped betting state,
// and positions the first actor for the new street (first active seat after
// the dealer).
func (g *Game) advanceStreet(next Phase, nCards int) GameStateFn {
	for i := 0; i < nCards; i++ {
		c, ok := g.deck.Draw()
		if !ok {
			break
		}
		g.community = append(g.community, c)
	}
	for _, p := range g.players {
		p.HasBet = 0
	}
	g.pot.ResetRound()
	g.currentBet = 0
	g.lastRaiseAmount = g.Config.BigBlind
	g.actedThisRound = make(map[string]bool)
	g.phase = next

	if len(g.activeSeats()) <= 1 {
		g.phase = PhaseShowdown
		return stateShowdown
	}

	g.currentSeat = (g.dealerSeat + 1) % len(g.players)
	g.advanceToActionableSeat()

	switch next {
	case PhaseFlop:
		return stateFlop
	case PhaseTurn:
		return stateTurn
	case PhaseRiver:
		return stateRiver
	default:
		return stateShowdown
	}
}

func stateShowdown(g *Game, notify func(string, statemachine.StateEvent)) GameStateFn {
	g.phase = PhaseShowdown
	g.handleShowdown()
	g.phase = PhaseHandEnd
	return stateHandEnd
}

func stateHandEnd(g *Game, notify func(string, statemachine.StateEvent)) GameStateFn {
	g.phase = PhaseHandEnd
	return stateHandEnd
}

// handleShowdown evaluates remaining hands (or awards uncontested pots to a
// lone survivor), builds side pots, and distributes chips.
func (g *Game) handleShowdown() ShowdownResult {
	folded := make(map[string]bool)
	for _, p := range g.players {
		folded[p.ID] = p.HasFolded
	}

	if refundID, amount := g.pot.ReturnUncalledBet(folded); refundID != "" && amount > 0 {
		if p := g.getPlayer(refundID); p != nil {
			p.Balance += amount
			p.TotalBet -= amount
			g.pot.TotalBet[refundID] -= amount
		}
	}

	active := g.activeSeats()
	if len(active) == 1 {
		winner := g.players[active[0]]
		total := int64(0)
		for _, v := range g.pot.TotalBet {
			total += v
		}
		winner.Balance += total
		g.winners = []string{winner.ID}
		return ShowdownResult{Winners: []string{winner.ID}, Awards: map[string]int64{winner.ID: total}, TotalPot: total}
	}

	hands := make(map[string]HandValue)
	descs := make(map[string]string)
	for _, seat := range active {
		p := g.players[seat]
		hv, err := EvaluateHand(p.Hand, g.community)
		if err != nil {
			continue
		}
		p.HandValue = hv
		p.HandDescription = hv.HandDescription
		hands[p.ID] = hv
		descs[p.ID] = hv.HandDescription
	}

	pots := g.pot.BuildSidePots(folded)
	n := len(g.players)
	seatOrder := make([]string, n)
	for i := 0; i < n; i++ {
		seatOrder[i] = g.players[(g.dealerSeat+1+i)%n].ID
	}
	awards := DistributePots(pots, hands, seatOrder)

	var total int64
	var winners []string
	for id, amount := range awards {
		if p := g.getPlayer(id); p != nil {
			p.Balance += amount
		}
		total += amount
		winners = append(winners, id)
	}
	g.winners = winners

	return ShowdownResult{Winners: winners, Awards: awards, HandStrings: descs, TotalPot: total}
}

// advanceToActionableSeat moves currentSeat forward to the next player who
// can still act, wrapping around the table.
func (g *Game) advanceToActionableSeat() {
	n := len(g.players)
	for i := 0; i < n; i++ {
		p := g.playerBySeat(g.currentSeat)
		if p.CanAct() {
			return
		}
		g.currentSeat = (g.currentSeat + 1) % n
	}
}

func (g *Game) advanceTurn() {
	g.currentSeat = (g.currentSeat + 1) % len(g.players)
	g.advanceToActionableSeat()
}

// HandleFold folds playerID out of the remainder of the hand.
func (g *Game) HandleFold(playerID string) error {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return err
	}
	p.HasFolded = true
	p.Tick()
	g.actedThisRound[playerID] = true
	g.advanceTurn()
	g.runUntilActionNeeded()
	return nil
}

// HandleCheck passes the action without betting; only legal when no bet is owed.
func (g *Game) HandleCheck(playerID string) error {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return err
	}
	if p.HasBet != g.currentBet {
		return ErrCannotCheck
	}
	g.actedThisRound[playerID] = true
	g.advanceTurn()
	g.runUntilActionNeeded()
	return nil
}

// HandleCall matches the current bet, going all-in if the player is short.
func (g *Game) HandleCall(playerID string) error {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return err
	}
	delta := g.currentBet - p.HasBet
	if delta <= 0 {
		return g.HandleCheck(playerID)
	}
	if delta >= p.Balance {
		delta = p.Balance
		p.IsAllIn = true
	}
	p.Balance -= delta
	p.HasBet += delta
	g.pot.AddBet(p.ID, delta)
	p.Tick()
	g.actedThisRound[playerID] = true
	g.advanceTurn()
	g.runUntilActionNeeded()
	return nil
}

// HandleBet raises the current bet to amount (a total round commitment, not
// a delta), enforcing the table's minimum-raise increment unless the player
// is going all-in for less.
func (g *Game) HandleBet(playerID string, amount int64) error {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return err
	}
	if amount <= p.HasBet {
		return ErrBetTooLow
	}
	delta := amount - p.HasBet
	if delta > p.Balance {
		return ErrInsufficientBal
	}

	raiseBy := amount - g.currentBet
	isAllIn := delta == p.Balance
	if !isAllIn && raiseBy < g.lastRaiseAmount && g.currentBet > 0 {
		return ErrBetTooLow
	}
	if !isAllIn && g.currentBet == 0 && amount < g.Config.BigBlind {
		return ErrBetTooLow
	}

	p.Balance -= delta
	p.HasBet = amount
	g.pot.AddBet(p.ID, delta)
	if isAllIn {
		p.IsAllIn = true
	}

	p.Tick()
	if raiseBy > 0 {
		g.lastRaiseAmount = raiseBy
		g.currentBet = amount
		// A raise reopens the action for everyone else.
		g.actedThisRound = map[string]bool{playerID: true}
	} else {
		g.actedThisRound[playerID] = true
	}
	g.advanceTurn()
	g.runUntilActionNeeded()
	return nil
}

// AutoAct resolves an expired turn timer for playerID: checks if no call is
// owed, otherwise folds. It is the only action ever taken without an
// explicit player command.
func (g *Game) AutoAct(playerID string) error {
	p := g.getPlayer(playerID)
	if p == nil {
		return fmt.Errorf("poker: unknown player %q", playerID)
	}
	if p.HasBet == g.currentBet {
		return g.HandleCheck(playerID)
	}
	return g.HandleFold(playerID)
}

// HandleAllIn is a shortcut for HandleBet with amount set to the player's
// entire remaining stack committed on top of what they've already put in.
func (g *Game) HandleAllIn(playerID string) error {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return err
	}
	return g.HandleBet(playerID, p.HasBet+p.Balance)
}

func (g *Game) requireTurn(playerID string) (*Player, error) {
	p := g.getPlayer(playerID)
	if p == nil {
		return nil, fmt.Errorf("poker: unknown player %q", playerID)
	}
	if g.CurrentPlayerID() != playerID {
		return nil, ErrNotYourTurn
	}
	if p.HasFolded {
		return nil, ErrAlreadyFolded
	}
	return p, nil
}

// RotateDealer advances the dealer button to the next seated player with
// chips, ahead of the next hand.
func (g *Game) RotateDealer() {
	n := len(g.players)
	for i := 1; i <= n; i++ {
		seat := (g.dealerSeat + i) % n
		if g.players[seat].Balance > 0 {
			g.dealerSeat = seat
			return
		}
	}
}
