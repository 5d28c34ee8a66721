package uno

import (
	"os"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/require"
	"github.com/vctt94/cardroom/internal/rng"
)

func testLogger() slog.Logger {
	backend := slog.NewBackend(os.Stderr)
	log := backend.Logger("test")
	log.SetLevel(slog.LevelError)
	return log
}

func newHeadsUpTable(t *testing.T) *Table {
	t.Helper()
	tbl := NewTable("UNO1", rng.NewDeterministic(1), testLogger())
	_, err := tbl.AddPlayer("p1", "Alice")
	require.NoError(t, err)
	_, err = tbl.AddPlayer("p2", "Bob")
	require.NoError(t, err)
	require.NoError(t, tbl.StartGame())
	return tbl
}

func TestStartGame_DealsSevenEach(t *testing.T) {
	tbl := newHeadsUpTable(t)
	for _, p := range tbl.Players() {
		require.Len(t, p.Hand, handSize)
	}
	require.Equal(t, PhasePlaying, tbl.Game().Phase())
}

func TestPlay_RejectsOutOfTurn(t *testing.T) {
	tbl := newHeadsUpTable(t)
	g := tbl.Game()
	notCurrent := tbl.Players()[0]
	if g.CurrentPlayerID() == notCurrent.ID {
		notCurrent = tbl.Players()[1]
	}
	err := tbl.Dispatch(notCurrent.ID, "play", notCurrent.Hand[0].ID(), ColorNone)
	require.ErrorIs(t, err, ErrNotYourTurn)
}

func TestPlay_RejectsCardNotHeld(t *testing.T) {
	tbl := newHeadsUpTable(t)
	g := tbl.Game()
	err := tbl.Dispatch(g.CurrentPlayerID(), "play", "nonexistent-card", ColorNone)
	require.ErrorIs(t, err, ErrCardNotHeld)
}

func TestPlay_IllegalColorRejected(t *testing.T) {
	tbl := newHeadsUpTable(t)
	g := tbl.Game()
	current := g.getPlayer(g.CurrentPlayerID())

	// Find (or force) a card that doesn't match the active color/rank.
	var badCard Face
	for _, f := range current.Hand {
		if !Matches(f, g.topCard(), g.activeColor) {
			badCard = f
			break
		}
	}
	if badCard == nil {
		t.Skip("no illegal card in this deterministic deal")
	}
	err := tbl.Dispatch(current.ID, "play", badCard.ID(), ColorNone)
	require.ErrorIs(t, err, ErrIllegalPlay)
}

func TestDraw2_ForcesNextPlayerToDrawTwo(t *testing.T) {
	tbl := newHeadsUpTable(t)
	g := tbl.Game()
	current := g.getPlayer(g.CurrentPlayerID())

	draw2Color := ColorRed
	if g.activeColor != ColorNone {
		draw2Color = g.activeColor
	}
	d2 := Draw2Face{CardColor: draw2Color, CardID: "test-draw2"}
	current.Hand = append(current.Hand, d2)
	g.activeColor = draw2Color

	opponent := otherPlayer(tbl, current.ID)
	before := len(opponent.Hand)

	require.NoError(t, tbl.Dispatch(current.ID, "play", "test-draw2", ColorNone))
	require.Equal(t, 2, g.PendingDraw())

	require.NoError(t, tbl.Dispatch(opponent.ID, "draw", "", ColorNone))
	require.Equal(t, before+2, len(opponent.Hand))
	require.Equal(t, 0, g.PendingDraw())
}

func TestWild4_IllegalWithMatchingColorInHand(t *testing.T) {
	tbl := newHeadsUpTable(t)
	g := tbl.Game()
	current := g.getPlayer(g.CurrentPlayerID())

	g.activeColor = ColorRed
	current.Hand = append(current.Hand, NumberFace{CardColor: ColorRed, Number: 5, CardID: "red-5-test"})
	current.Hand = append(current.Hand, Wild4Face{CardID: "test-wild4"})

	err := tbl.Dispatch(current.ID, "play", "test-wild4", ColorBlue)
	require.ErrorIs(t, err, ErrIllegalWild4)
}

func TestPlay_LastCardWinsRound(t *testing.T) {
	tbl := newHeadsUpTable(t)
	g := tbl.Game()
	current := g.getPlayer(g.CurrentPlayerID())

	// Leave exactly one playable card in hand.
	keep := NumberFace{CardColor: ColorRed, Number: 5, CardID: "keep-card"}
	current.Hand = []Face{keep}
	g.activeColor = ColorRed
	g.discardPile = []Face{NumberFace{CardColor: ColorRed, Number: 1, CardID: "top"}}

	require.NoError(t, tbl.Dispatch(current.ID, "play", "keep-card", ColorNone))
	require.Equal(t, current.ID, tbl.Game().Winner())
	require.Equal(t, PhaseRoundEnd, tbl.Game().Phase())
}

func TestCatchUno_PenalizesUncalledPlayer(t *testing.T) {
	tbl := newHeadsUpTable(t)
	g := tbl.Game()
	current := g.getPlayer(g.CurrentPlayerID())
	opponent := otherPlayer(tbl, current.ID)

	keep := NumberFace{CardColor: ColorRed, Number: 5, CardID: "keep-card"}
	extra := NumberFace{CardColor: ColorBlue, Number: 3, CardID: "extra-card"}
	current.Hand = []Face{keep, extra}
	g.activeColor = ColorRed
	g.discardPile = []Face{NumberFace{CardColor: ColorRed, Number: 1, CardID: "top"}}

	require.NoError(t, tbl.Dispatch(current.ID, "play", "keep-card", ColorNone))
	require.Len(t, current.Hand, 1)

	before := len(current.Hand)
	require.NoError(t, tbl.Dispatch(opponent.ID, "catch_uno", current.ID, ColorNone))
	require.Equal(t, before+2, len(current.Hand))
}

func TestDraw_RejectedWhenHoldingPlayableCard(t *testing.T) {
	tbl := newHeadsUpTable(t)
	g := tbl.Game()
	current := g.getPlayer(g.CurrentPlayerID())

	playable := NumberFace{CardColor: ColorRed, Number: 5, CardID: "playable-card"}
	current.Hand = []Face{playable}
	g.activeColor = ColorRed
	g.discardPile = []Face{NumberFace{CardColor: ColorRed, Number: 1, CardID: "top"}}

	err := tbl.Dispatch(current.ID, "draw", "", ColorNone)
	require.ErrorIs(t, err, ErrMustPlay)
}

func TestDraw_PlayableDrawHoldsTurnUntilPlayOrPass(t *testing.T) {
	tbl := newHeadsUpTable(t)
	g := tbl.Game()
	current := g.getPlayer(g.CurrentPlayerID())

	unplayable := NumberFace{CardColor: ColorBlue, Number: 9, CardID: "unplayable-card"}
	current.Hand = []Face{unplayable}
	g.activeColor = ColorRed
	g.discardPile = []Face{NumberFace{CardColor: ColorRed, Number: 1, CardID: "top"}}
	// Force the next draw to be an immediately-playable red card.
	g.drawPile = append(g.drawPile, NumberFace{CardColor: ColorRed, Number: 3, CardID: "forced-draw"})

	require.NoError(t, tbl.Dispatch(current.ID, "draw", "", ColorNone))
	require.NotNil(t, g.DrawnPlayable())
	require.Equal(t, current.ID, g.DrawnPlayable().PlayerID)
	require.Equal(t, current.ID, g.CurrentPlayerID(), "turn stays open while a drawn-playable card is pending")

	require.NoError(t, tbl.Dispatch(current.ID, "pass", "", ColorNone))
	require.Nil(t, g.DrawnPlayable())
	require.NotEqual(t, current.ID, g.CurrentPlayerID())
}

func TestPass_RejectsWithoutPendingDrawnCard(t *testing.T) {
	tbl := newHeadsUpTable(t)
	g := tbl.Game()
	err := tbl.Dispatch(g.CurrentPlayerID(), "pass", "", ColorNone)
	require.ErrorIs(t, err, ErrNothingToPass)
}

func TestOpenCatchWindow_PromptTargetsLeftoverPlayer(t *testing.T) {
	tbl := newHeadsUpTable(t)
	g := tbl.Game()
	current := g.getPlayer(g.CurrentPlayerID())

	keep := NumberFace{CardColor: ColorRed, Number: 5, CardID: "keep-card"}
	extra := NumberFace{CardColor: ColorBlue, Number: 3, CardID: "extra-card"}
	current.Hand = []Face{keep, extra}
	g.activeColor = ColorRed
	g.discardPile = []Face{NumberFace{CardColor: ColorRed, Number: 1, CardID: "top"}}

	require.NoError(t, tbl.Dispatch(current.ID, "play", "keep-card", ColorNone))
	prompt := g.UnoPrompt()
	require.NotNil(t, prompt)
	require.Equal(t, current.ID, prompt.TargetPlayerID)
	require.GreaterOrEqual(t, prompt.ButtonPos.X, 15)
	require.LessOrEqual(t, prompt.ButtonPos.X, 85)
	require.GreaterOrEqual(t, prompt.ButtonPos.Y, 20)
	require.LessOrEqual(t, prompt.ButtonPos.Y, 75)

	require.NoError(t, tbl.Dispatch(current.ID, "call_uno", "", ColorNone))
	require.Nil(t, g.UnoPrompt())
}

func otherPlayer(tbl *Table, exceptID string) *Player {
	for _, p := range tbl.Players() {
		if p.ID != exceptID {
			return p
		}
	}
	return nil
}
