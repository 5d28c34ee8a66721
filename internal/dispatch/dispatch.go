// Package dispatch generalizes the teacher's per-RPC-method handlers
// (pkg/server/poker.go, lobby.go — one gRPC method per action) into a
// single table-driven dispatcher over a transport-agnostic JSON command
// envelope, producing a uniform ack instead of one method per action.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/vctt94/cardroom/internal/broadcast"
	"github.com/vctt94/cardroom/internal/lobby"
	"github.com/vctt94/cardroom/internal/poker"
	"github.com/vctt94/cardroom/internal/rewards"
	"github.com/vctt94/cardroom/internal/rng"
	"github.com/vctt94/cardroom/internal/uno"
)

// rewardTimeout bounds reward persistence so a slow database write never
// delays the command path it piggybacks on; it runs detached from the
// critical section that produced the terminal transition.
const rewardTimeout = 2500 * time.Millisecond

// DefaultWinCoins is the flat coin award for settling a hand or round.
const DefaultWinCoins = 10

// defaultNewTableConfig backs private lobbies created via createLobby.
var defaultNewTableConfig = poker.GameConfig{SmallBlind: 5, BigBlind: 10, StartingChips: 1000}

// Envelope is the transport-agnostic command wrapper carried over the
// websocket adapter in internal/transport.
type Envelope struct {
	GameType  string          `json:"gameType"`
	LobbyCode string          `json:"lobbyCode"`
	PlayerID  string          `json:"playerId"`
	Action    string          `json:"action"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Ack is the uniform response to every dispatched command.
type Ack struct {
	Success  bool    `json:"success"`
	Accepted *bool   `json:"accepted,omitempty"`
	Version  *uint64 `json:"version,omitempty"`
	Error    string  `json:"error,omitempty"`
	Reason   string  `json:"reason,omitempty"`

	// GameState is the requesting player's projected snapshot, attached to
	// joinLobby, requestState, and createLobby acks.
	GameState any `json:"gameState,omitempty"`
	// Code is the freshly allocated lobby code, set only on createLobby.
	Code string `json:"code,omitempty"`
	// Rooms lists public lobbies, set only on listPublicRooms.
	Rooms []RoomSummary `json:"rooms,omitempty"`
}

// RoomSummary is one entry in a listPublicRooms response.
type RoomSummary struct {
	GameType    string `json:"gameType"`
	Code        string `json:"code"`
	PlayerCount int    `json:"playerCount"`
	Status      string `json:"status"`
	MaxPlayers  int    `json:"maxPlayers"`
}

func acceptedAck(version uint64) Ack {
	ok := true
	v := version
	return Ack{Success: true, Accepted: &ok, Version: &v}
}

func rejectedAck(err error) Ack {
	no := false
	if de, ok := err.(*DispatchError); ok {
		return Ack{Success: false, Accepted: &no, Error: string(de.Kind), Reason: de.Message}
	}
	return Ack{Success: false, Accepted: &no, Error: string(KindInternal), Reason: err.Error()}
}

// pokerActionPayload is the payload shape for poker betting actions.
type pokerActionPayload struct {
	Amount int64 `json:"amount,omitempty"`
}

// unoActionPayload is the payload shape for UNO play/draw actions.
type unoActionPayload struct {
	CardID   string `json:"cardId,omitempty"`
	Color    string `json:"color,omitempty"`
	TargetID string `json:"targetId,omitempty"` // for catch_uno
}

// createLobbyPayload is the payload shape for the createLobby action.
type createLobbyPayload struct {
	GameType string `json:"gameType"`
}

// revealCardsPayload is the payload shape for poker:revealCards.
type revealCardsPayload struct {
	Reveal bool `json:"reveal"`
}

// Dispatcher routes envelopes to the right table, applying commands under
// that table's own per-lobby mutex (held inside Table.Dispatch), and fans
// resulting state out to every subscribed viewer over per-lobby hubs.
type Dispatcher struct {
	registry    *lobby.Registry
	log         slog.Logger
	rewards     *rewards.Store
	turnTimeout time.Duration

	hubMu sync.Mutex
	hubs  map[string]*broadcast.Hub
}

// NewDispatcher creates a dispatcher over a shared lobby registry. rewards
// may be nil, in which case terminal hands/rounds simply go unrewarded
// (useful for tests that don't care about persistence). turnTimeout is
// applied to poker tables created via createLobby; zero uses
// poker.DefaultTurnTimeout.
func NewDispatcher(registry *lobby.Registry, log slog.Logger, rewardStore *rewards.Store, turnTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		registry:    registry,
		log:         log,
		rewards:     rewardStore,
		turnTimeout: turnTimeout,
		hubs:        make(map[string]*broadcast.Hub),
	}
}

func hubKey(gameType lobby.GameType, code string) string {
	return string(gameType) + ":" + code
}

// hubFor returns (creating if necessary) the fanout hub for one lobby.
func (d *Dispatcher) hubFor(gameType lobby.GameType, code string) *broadcast.Hub {
	key := hubKey(gameType, code)
	d.hubMu.Lock()
	defer d.hubMu.Unlock()
	h, ok := d.hubs[key]
	if !ok {
		h = broadcast.NewHub(code, d.log)
		d.hubs[key] = h
	}
	return h
}

// Subscribe registers a connection to receive fanned-out state and events
// for one lobby. Transport adapters call this once a connection's session
// resolves to a (gameType, lobbyCode).
func (d *Dispatcher) Subscribe(gameType lobby.GameType, code, connectionID string, v broadcast.Viewer) {
	d.hubFor(gameType, code).Subscribe(connectionID, v)
}

// Unsubscribe removes a connection from a lobby's fanout, e.g. on disconnect.
func (d *Dispatcher) Unsubscribe(gameType lobby.GameType, code, connectionID string) {
	d.hubFor(gameType, code).Unsubscribe(connectionID)
}

// issuePokerReward fires off reward persistence for a settled hand's winners
// in a detached goroutine, never holding the table's mutex and never
// blocking the caller past rewardTimeout.
func (d *Dispatcher) issuePokerReward(winners []string) {
	if d.rewards == nil || len(winners) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), rewardTimeout)
		defer cancel()
		for _, id := range winners {
			if err := d.rewards.IssueWin(ctx, id, rewards.GamePoker, DefaultWinCoins); err != nil {
				d.log.Warnf("rewards: failed to issue poker win for %q: %v", id, err)
			}
		}
	}()
}

func (d *Dispatcher) issueUnoReward(winner string) {
	if d.rewards == nil || winner == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), rewardTimeout)
		defer cancel()
		if err := d.rewards.IssueWin(ctx, winner, rewards.GameUno, DefaultWinCoins); err != nil {
			d.log.Warnf("rewards: failed to issue uno win for %q: %v", winner, err)
		}
	}()
}

// celebrate publishes a one-shot game:celebration event naming which
// celebration identifier to play, never the effect itself.
func (d *Dispatcher) celebrate(gameType lobby.GameType, code string, version uint64, winnerID, effectID string) {
	id := fmt.Sprintf("%s:%s:celebration:%d", gameType, code, version)
	d.hubFor(gameType, code).PublishEvent(broadcast.Event{
		ID:        id,
		Type:      broadcast.EventCelebration,
		LobbyCode: code,
		Payload: map[string]any{
			"id":       id,
			"winnerId": winnerID,
			"effectId": effectID,
		},
	})
}

// pokerPlayerView is the per-viewer projection of one seated poker player;
// Hand is populated only for the viewer's own seat, or every seat once
// showdown reveals hands (subject to each player's CardsRevealed choice).
type pokerPlayerView struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Seat     int          `json:"seat"`
	Balance  int64        `json:"balance"`
	HasBet   int64        `json:"hasBet"`
	Folded   bool         `json:"folded"`
	AllIn    bool         `json:"allIn"`
	HandSize int          `json:"handSize"`
	Hand     []poker.Card `json:"hand,omitempty"`
}

type pokerStateView struct {
	Code          string            `json:"code"`
	Version       uint64            `json:"version"`
	Phase         string            `json:"phase"`
	Community     []poker.Card      `json:"communityCards,omitempty"`
	CurrentBet    int64             `json:"currentBet"`
	CurrentPlayer string            `json:"currentPlayerId,omitempty"`
	Winners       []string          `json:"winners,omitempty"`
	Players       []pokerPlayerView `json:"players"`
}

func (d *Dispatcher) pokerProjector(table *poker.Table) broadcast.Projector {
	return func(viewerID string) (any, error) {
		game := table.Game()
		view := pokerStateView{Code: table.Code(), Version: table.Version(), Phase: string(poker.PhaseWaiting)}
		var atShowdown bool
		if game != nil {
			view.Phase = string(game.Phase())
			view.Community = game.CommunityCards()
			view.CurrentBet = game.CurrentBet()
			view.CurrentPlayer = game.CurrentPlayerID()
			view.Winners = game.Winners()
			atShowdown = game.Phase() == poker.PhaseShowdown || game.Phase() == poker.PhaseHandEnd
		}
		for _, p := range table.Players() {
			pv := pokerPlayerView{ID: p.ID, Name: p.Name, Seat: p.Seat, Balance: p.Balance, HasBet: p.HasBet, Folded: p.HasFolded, AllIn: p.IsAllIn, HandSize: len(p.Hand)}
			if p.ID == viewerID || (atShowdown && p.CardsRevealed) {
				pv.Hand = p.Hand
			}
			view.Players = append(view.Players, pv)
		}
		return view, nil
	}
}

type unoPlayerView struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Seat      int        `json:"seat"`
	HandCount int        `json:"handCount"`
	CalledUno bool       `json:"calledUno"`
	Hand      []uno.Face `json:"hand,omitempty"`
}

type unoStateView struct {
	Code          string             `json:"code"`
	Version       uint64             `json:"version"`
	Phase         string             `json:"phase"`
	ActiveColor   uno.Color          `json:"activeColor,omitempty"`
	TopCard       uno.Face           `json:"topCard,omitempty"`
	PendingDraw   int                `json:"pendingDraw"`
	CurrentPlayer string             `json:"currentPlayerId,omitempty"`
	Winner        string             `json:"winner,omitempty"`
	DrawnPlayable *uno.DrawnPlayable `json:"drawnPlayable,omitempty"`
	UnoPrompt     *uno.UnoPrompt     `json:"unoPrompt,omitempty"`
	Players       []unoPlayerView    `json:"players"`
}

func (d *Dispatcher) unoProjector(table *uno.Table) broadcast.Projector {
	return func(viewerID string) (any, error) {
		game := table.Game()
		view := unoStateView{Code: table.Code(), Version: table.Version(), Phase: string(uno.PhaseWaiting)}
		if game != nil {
			view.Phase = string(game.Phase())
			view.ActiveColor = game.ActiveColor()
			view.TopCard = game.TopCard()
			view.PendingDraw = game.PendingDraw()
			view.CurrentPlayer = game.CurrentPlayerID()
			view.Winner = game.Winner()
			view.DrawnPlayable = game.DrawnPlayable()
			view.UnoPrompt = game.UnoPrompt()
		}
		for _, seat := range table.Seats() {
			pv := unoPlayerView{ID: seat.ID, Name: seat.Name, Seat: seat.Seat, HandCount: seat.HandCount, CalledUno: seat.CalledUno}
			if seat.ID == viewerID {
				if p := table.GetPlayer(seat.ID); p != nil {
					pv.Hand = p.Hand
				}
			}
			view.Players = append(view.Players, pv)
		}
		return view, nil
	}
}

func (d *Dispatcher) gameStateFor(gameType lobby.GameType, room lobby.Room, viewerID string) any {
	switch t := room.(type) {
	case *poker.Table:
		state, _ := d.pokerProjector(t)(viewerID)
		return state
	case *uno.Table:
		state, _ := d.unoProjector(t)(viewerID)
		return state
	}
	return nil
}

func (d *Dispatcher) broadcastPoker(table *poker.Table) {
	d.hubFor(lobby.GamePoker, table.Code()).BroadcastState(d.pokerProjector(table))
}

func (d *Dispatcher) broadcastUno(table *uno.Table) {
	d.hubFor(lobby.GameUno, table.Code()).BroadcastState(d.unoProjector(table))
}

// Handle routes one envelope to the correct engine and returns its ack.
// Handle never panics on malformed input: every failure mode becomes a
// rejected Ack so the transport layer can always reply.
func (d *Dispatcher) Handle(env Envelope) Ack {
	switch env.Action {
	case "createLobby":
		return d.handleCreateLobby(env)
	case "listPublicRooms":
		return d.handleListPublicRooms(env)
	}

	gameType := lobby.GameType(env.GameType)
	room, ok := d.registry.Get(gameType, env.LobbyCode)
	if !ok {
		return rejectedAck(ErrNotFound(fmt.Sprintf("no %s lobby with code %q", env.GameType, env.LobbyCode)))
	}

	switch env.Action {
	case "requestState":
		return Ack{Success: true, GameState: d.gameStateFor(gameType, room, env.PlayerID)}
	case "endLobby":
		return d.handleEndLobby(gameType, room, env)
	}

	switch gameType {
	case lobby.GamePoker:
		table, ok := room.(*poker.Table)
		if !ok {
			return rejectedAck(ErrInternal("lobby registered under poker game type is not a poker table"))
		}
		if env.Action == "revealCards" || env.Action == "poker:revealCards" {
			return d.handleRevealCards(table, env)
		}
		return d.handlePoker(table, env)
	case lobby.GameUno:
		table, ok := room.(*uno.Table)
		if !ok {
			return rejectedAck(ErrInternal("lobby registered under uno game type is not a uno table"))
		}
		return d.handleUno(table, env)
	default:
		return rejectedAck(ErrInvalidInput(fmt.Sprintf("unknown game type %q", env.GameType)))
	}
}

func (d *Dispatcher) handleCreateLobby(env Envelope) Ack {
	var payload createLobbyPayload
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return rejectedAck(ErrInvalidInput("malformed payload: " + err.Error()))
		}
	}
	gameTypeStr := env.GameType
	if gameTypeStr == "" {
		gameTypeStr = payload.GameType
	}
	gameType := lobby.GameType(gameTypeStr)
	if gameType != lobby.GamePoker && gameType != lobby.GameUno {
		return rejectedAck(ErrInvalidInput(fmt.Sprintf("unknown game type %q", gameTypeStr)))
	}
	if env.PlayerID == "" {
		return rejectedAck(ErrInvalidInput("createLobby requires a host player id"))
	}

	code, err := d.registry.NewPrivateCode()
	if err != nil {
		return rejectedAck(ErrInternal(err.Error()))
	}

	var room lobby.Room
	switch gameType {
	case lobby.GamePoker:
		config := defaultNewTableConfig
		config.TurnTimeout = d.turnTimeout
		table := poker.NewTable(code, config, rng.New(), d.log)
		if _, err := table.AddPlayer(env.PlayerID, env.PlayerID); err != nil {
			return rejectedAck(ErrInternal(err.Error()))
		}
		room = table
	case lobby.GameUno:
		table := uno.NewTable(code, rng.New(), d.log)
		if _, err := table.AddPlayer(env.PlayerID, env.PlayerID); err != nil {
			return rejectedAck(ErrInternal(err.Error()))
		}
		room = table
	}

	if err := d.registry.Register(gameType, code, room); err != nil {
		return rejectedAck(ErrInternal(err.Error()))
	}

	return Ack{Success: true, Code: code, GameState: d.gameStateFor(gameType, room, env.PlayerID)}
}

func (d *Dispatcher) handleListPublicRooms(env Envelope) Ack {
	gameTypes := []lobby.GameType{lobby.GamePoker, lobby.GameUno}
	if env.GameType != "" {
		gameTypes = []lobby.GameType{lobby.GameType(env.GameType)}
	}

	var rooms []RoomSummary
	for _, gt := range gameTypes {
		for _, code := range lobby.PublicCodes[gt] {
			room, ok := d.registry.Get(gt, code)
			if !ok {
				continue
			}
			rooms = append(rooms, roomSummary(gt, room))
		}
	}
	return Ack{Success: true, Rooms: rooms}
}

func roomSummary(gameType lobby.GameType, room lobby.Room) RoomSummary {
	summary := RoomSummary{GameType: string(gameType), Code: room.Code(), Status: room.PhaseName()}
	switch t := room.(type) {
	case *poker.Table:
		summary.PlayerCount = len(t.Players())
		summary.MaxPlayers = poker.MaxPlayers
	case *uno.Table:
		summary.PlayerCount = len(t.Players())
		summary.MaxPlayers = uno.MaxPlayers
	}
	return summary
}

func (d *Dispatcher) handleEndLobby(gameType lobby.GameType, room lobby.Room, env Envelope) Ack {
	if lobby.IsPublicCode(gameType, env.LobbyCode) {
		return rejectedAck(ErrIllegalAction("public lobbies cannot be ended"))
	}
	var hostID string
	switch t := room.(type) {
	case *poker.Table:
		hostID = t.HostID()
	case *uno.Table:
		hostID = t.HostID()
	}
	if hostID == "" || hostID != env.PlayerID {
		return rejectedAck(ErrIllegalAction("only the host may end a lobby"))
	}

	d.registry.Unregister(gameType, env.LobbyCode)
	hub := d.hubFor(gameType, env.LobbyCode)
	hub.PublishEvent(broadcast.Event{
		ID:        fmt.Sprintf("%s:%s:lobbyEnded", gameType, env.LobbyCode),
		Type:      broadcast.EventLobbyEnded,
		LobbyCode: env.LobbyCode,
		Payload:   map[string]any{"lobbyCode": env.LobbyCode},
	})
	return Ack{Success: true}
}

func (d *Dispatcher) handleRevealCards(table *poker.Table, env Envelope) Ack {
	var payload revealCardsPayload
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return rejectedAck(ErrInvalidInput("malformed payload: " + err.Error()))
		}
	}
	if err := table.SetCardsRevealed(env.PlayerID, payload.Reveal); err != nil {
		return rejectedAck(ErrIllegalAction(err.Error()))
	}
	d.broadcastPoker(table)
	return acceptedAck(table.Version())
}

func (d *Dispatcher) handlePoker(table *poker.Table, env Envelope) Ack {
	switch env.Action {
	case "join":
		if _, err := table.AddPlayer(env.PlayerID, env.PlayerID); err != nil {
			return rejectedAck(ErrAlreadySeated(err.Error()))
		}
		d.broadcastPoker(table)
		return Ack{Success: true, Accepted: boolPtr(true), Version: uint64Ptr(table.Version()), GameState: d.gameStateFor(lobby.GamePoker, table, env.PlayerID)}
	case "leave":
		table.RemovePlayer(env.PlayerID)
		d.broadcastPoker(table)
		return acceptedAck(table.Version())
	case "start_game":
		if err := table.StartGame(); err != nil {
			return rejectedAck(ErrIllegalAction(err.Error()))
		}
		d.broadcastPoker(table)
		return acceptedAck(table.Version())
	case "next_hand":
		if err := table.StartNextHand(); err != nil {
			return rejectedAck(ErrIllegalAction(err.Error()))
		}
		d.broadcastPoker(table)
		return acceptedAck(table.Version())
	case "fold", "check", "call", "bet", "raise", "all-in":
		var payload pokerActionPayload
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &payload); err != nil {
				return rejectedAck(ErrInvalidInput("malformed payload: " + err.Error()))
			}
		}
		if err := table.Dispatch(env.PlayerID, env.Action, payload.Amount); err != nil {
			return rejectedAck(classifyPokerErr(err))
		}
		d.broadcastPoker(table)
		if winners, ok := table.ConsumeTerminalResult(); ok {
			d.issuePokerReward(winners)
			if len(winners) > 0 {
				d.celebrate(lobby.GamePoker, table.Code(), table.Version(), winners[0], "poker_win")
			}
		}
		return acceptedAck(table.Version())
	default:
		return rejectedAck(ErrInvalidInput(fmt.Sprintf("unknown poker action %q", env.Action)))
	}
}

func (d *Dispatcher) handleUno(table *uno.Table, env Envelope) Ack {
	switch env.Action {
	case "join":
		if _, err := table.AddPlayer(env.PlayerID, env.PlayerID); err != nil {
			return rejectedAck(ErrAlreadySeated(err.Error()))
		}
		d.broadcastUno(table)
		d.publishUnoRoster(table)
		return Ack{Success: true, Accepted: boolPtr(true), Version: uint64Ptr(table.Version()), GameState: d.gameStateFor(lobby.GameUno, table, env.PlayerID)}
	case "leave":
		table.RemovePlayer(env.PlayerID)
		d.broadcastUno(table)
		d.publishUnoRoster(table)
		return acceptedAck(table.Version())
	case "start_game":
		if err := table.StartGame(); err != nil {
			return rejectedAck(ErrIllegalAction(err.Error()))
		}
		d.broadcastUno(table)
		return acceptedAck(table.Version())
	case "next_round":
		if err := table.StartNextRound(); err != nil {
			return rejectedAck(ErrIllegalAction(err.Error()))
		}
		d.broadcastUno(table)
		return acceptedAck(table.Version())
	case "play", "draw", "pass", "call_uno", "catch_uno":
		var payload unoActionPayload
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &payload); err != nil {
				return rejectedAck(ErrInvalidInput("malformed payload: " + err.Error()))
			}
		}
		cardID := payload.CardID
		if env.Action == "catch_uno" {
			cardID = payload.TargetID
		}

		var drawCount int
		if env.Action == "draw" {
			if g := table.Game(); g != nil {
				if g.PendingDraw() > 0 {
					drawCount = g.PendingDraw()
				} else {
					drawCount = 1
				}
			}
		}

		if err := table.Dispatch(env.PlayerID, env.Action, cardID, uno.Color(payload.Color)); err != nil {
			return rejectedAck(classifyUnoErr(err))
		}
		d.broadcastUno(table)
		if env.Action == "draw" && drawCount > 0 {
			d.hubFor(lobby.GameUno, table.Code()).PublishEvent(broadcast.Event{
				ID:        fmt.Sprintf("uno:%s:drawFx:%d", table.Code(), table.Version()),
				Type:      broadcast.EventUnoDrawFX,
				LobbyCode: table.Code(),
				Payload:   map[string]any{"playerId": env.PlayerID, "count": drawCount},
			})
		}
		if winner, ok := table.ConsumeTerminalResult(); ok {
			d.issueUnoReward(winner)
			if winner != "" {
				d.celebrate(lobby.GameUno, table.Code(), table.Version(), winner, "uno_win")
			}
		}
		return acceptedAck(table.Version())
	default:
		return rejectedAck(ErrInvalidInput(fmt.Sprintf("unknown uno action %q", env.Action)))
	}
}

// publishUnoRoster fans out a lobby-phase seat/host update, used for join
// and leave before a round is underway.
func (d *Dispatcher) publishUnoRoster(table *uno.Table) {
	if table.IsGameStarted() {
		return
	}
	d.hubFor(lobby.GameUno, table.Code()).PublishEvent(broadcast.Event{
		ID:        fmt.Sprintf("uno:%s:roster:%d", table.Code(), table.Version()),
		Type:      broadcast.EventUnoRoster,
		LobbyCode: table.Code(),
		Payload:   map[string]any{"seats": table.Seats()},
	})
}

func boolPtr(b bool) *bool       { return &b }
func uint64Ptr(v uint64) *uint64 { return &v }

func classifyPokerErr(err error) *DispatchError {
	switch err {
	case poker.ErrNotYourTurn:
		return ErrNotYourTurn(err.Error())
	case poker.ErrAlreadyFolded, poker.ErrBetTooLow, poker.ErrCannotCheck, poker.ErrInsufficientBal:
		return ErrIllegalAction(err.Error())
	default:
		return ErrIllegalAction(err.Error())
	}
}

func classifyUnoErr(err error) *DispatchError {
	switch err {
	case uno.ErrNotYourTurn:
		return ErrNotYourTurn(err.Error())
	default:
		return ErrIllegalAction(err.Error())
	}
}
