package poker

import (
	"os"
	"testing"
	"time"

	"github.com/coder/quartz"
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
	tbl := NewTable("TABLE1", GameConfig{SmallBlind: 5, BigBlind: 10, StartingChips: 1000}, rng.NewDeterministic(1), testLogger())
	_, err := tbl.AddPlayer("p1", "Alice")
	require.NoError(t, err)
	_, err = tbl.AddPlayer("p2", "Bob")
	require.NoError(t, err)
	require.NoError(t, tbl.StartGame())
	return tbl
}

func TestStartGame_PostsBlindsHeadsUp(t *testing.T) {
	tbl := newHeadsUpTable(t)
	g := tbl.Game()
	require.Equal(t, PhasePreFlop, g.Phase())

	p1 := g.getPlayer("p1")
	p2 := g.getPlayer("p2")
	// Heads-up: dealer (seat 0, p1) posts SB, p2 posts BB.
	require.Equal(t, int64(995), p1.Balance)
	require.Equal(t, int64(990), p2.Balance)
	require.Equal(t, "p1", g.CurrentPlayerID())
}

func TestHandleFold_AwardsPotToSurvivor(t *testing.T) {
	tbl := newHeadsUpTable(t)
	g := tbl.Game()

	require.NoError(t, tbl.Dispatch("p1", "fold", 0))
	require.Equal(t, PhaseHandEnd, g.Phase())

	p2 := g.getPlayer("p2")
	require.Equal(t, int64(1005), p2.Balance) // 990 + 15 pot
}

func TestHandleCheck_RejectsWhenBetOwed(t *testing.T) {
	tbl := newHeadsUpTable(t)
	err := tbl.Dispatch("p1", "check", 0)
	require.ErrorIs(t, err, ErrCannotCheck)
}

func TestHandleBet_RejectsOutOfTurn(t *testing.T) {
	tbl := newHeadsUpTable(t)
	err := tbl.Dispatch("p2", "call", 0)
	require.ErrorIs(t, err, ErrNotYourTurn)
}

func TestFullHandToShowdown_ThreeHanded(t *testing.T) {
	tbl := NewTable("TABLE2", GameConfig{SmallBlind: 5, BigBlind: 10, StartingChips: 1000}, rng.NewDeterministic(7), testLogger())
	for _, id := range []string{"p1", "p2", "p3"} {
		_, err := tbl.AddPlayer(id, id)
		require.NoError(t, err)
	}
	require.NoError(t, tbl.StartGame())
	g := tbl.Game()

	// Preflop: UTG (p1 since 3-handed: dealer=seat0=p1, sb=p2, bb=p3, first
	// to act preflop is p1) calls, sb completes, bb checks.
	require.NoError(t, tbl.Dispatch("p1", "call", 0))
	require.NoError(t, tbl.Dispatch("p2", "call", 0))
	require.NoError(t, tbl.Dispatch("p3", "check", 0))
	require.Equal(t, PhaseFlop, g.Phase())

	require.NoError(t, tbl.Dispatch("p2", "check", 0))
	require.NoError(t, tbl.Dispatch("p3", "check", 0))
	require.NoError(t, tbl.Dispatch("p1", "check", 0))
	require.Equal(t, PhaseTurn, g.Phase())

	require.NoError(t, tbl.Dispatch("p2", "check", 0))
	require.NoError(t, tbl.Dispatch("p3", "check", 0))
	require.NoError(t, tbl.Dispatch("p1", "check", 0))
	require.Equal(t, PhaseRiver, g.Phase())

	require.NoError(t, tbl.Dispatch("p2", "check", 0))
	require.NoError(t, tbl.Dispatch("p3", "check", 0))
	require.NoError(t, tbl.Dispatch("p1", "check", 0))
	require.Equal(t, PhaseHandEnd, g.Phase())

	var total int64
	for _, p := range tbl.Players() {
		total += p.Balance
	}
	require.Equal(t, int64(3000), total) // chip-conservation across the hand
}

func TestHandleBet_MinRaiseEnforced(t *testing.T) {
	tbl := newHeadsUpTable(t)
	// p1 (SB) tries to raise to 15 (a 5-chip raise), below the 10 min-raise.
	err := tbl.Dispatch("p1", "bet", 15)
	require.ErrorIs(t, err, ErrBetTooLow)

	require.NoError(t, tbl.Dispatch("p1", "bet", 20))
	g := tbl.Game()
	require.Equal(t, int64(20), g.CurrentBet())
}

func TestAllInSidePot_ShortStackCappedOut(t *testing.T) {
	tbl := NewTable("TABLE3", GameConfig{SmallBlind: 5, BigBlind: 10, StartingChips: 1000}, rng.NewDeterministic(3), testLogger())
	_, err := tbl.AddPlayer("rich", "Rich")
	require.NoError(t, err)
	_, err = tbl.AddPlayer("short", "Short")
	require.NoError(t, err)
	require.NoError(t, tbl.StartGame())

	g := tbl.Game()
	g.getPlayer("short").Balance = 20 // force a short stack after blinds post

	require.NoError(t, tbl.Dispatch("rich", "bet", 500))
	require.NoError(t, tbl.Dispatch("short", "call", 0))

	require.True(t, g.getPlayer("short").IsAllIn)
	require.Equal(t, PhaseHandEnd, g.Phase())
}

func TestHandleAllIn_CommitsEntireStack(t *testing.T) {
	tbl := newHeadsUpTable(t)
	g := tbl.Game()
	current := g.CurrentPlayerID()
	stack := g.getPlayer(current).Balance

	require.NoError(t, tbl.Dispatch(current, "all-in", 0))
	require.Equal(t, int64(0), g.getPlayer(current).Balance)
	require.True(t, g.getPlayer(current).IsAllIn)
	require.Equal(t, g.getPlayer(current).HasBet, g.CurrentBet())
	_ = stack
}

func TestAutoAct_FoldsWhenCallOwed(t *testing.T) {
	tbl := newHeadsUpTable(t)
	g := tbl.Game()
	current := g.CurrentPlayerID()

	// Facing the big blind, AutoAct has an outstanding call owed: folds.
	require.NoError(t, g.AutoAct(current))
	require.True(t, g.getPlayer(current).HasFolded)
	require.Equal(t, PhaseHandEnd, g.Phase())
}

func TestAutoAct_ChecksWhenBetAlreadyMatched(t *testing.T) {
	tbl := NewTable("TABLE4", GameConfig{SmallBlind: 5, BigBlind: 10, StartingChips: 1000}, rng.NewDeterministic(7), testLogger())
	for _, id := range []string{"p1", "p2", "p3"} {
		_, err := tbl.AddPlayer(id, id)
		require.NoError(t, err)
	}
	require.NoError(t, tbl.StartGame())
	g := tbl.Game()

	require.NoError(t, tbl.Dispatch("p1", "call", 0))
	require.NoError(t, tbl.Dispatch("p2", "call", 0))
	current := g.CurrentPlayerID() // p3, already matching the big blind
	require.NoError(t, g.AutoAct(current))
	require.False(t, g.getPlayer(current).HasFolded)
	require.Equal(t, PhaseFlop, g.Phase())
}

func TestTurnTimer_ExpiresIntoAutoAct(t *testing.T) {
	clock := quartz.NewMock(t)
	tbl := NewTable("TABLE5", GameConfig{SmallBlind: 5, BigBlind: 10, StartingChips: 1000, TurnTimeout: 5 * time.Second}, rng.NewDeterministic(1), testLogger())
	tbl.SetClock(clock)
	_, err := tbl.AddPlayer("p1", "Alice")
	require.NoError(t, err)
	_, err = tbl.AddPlayer("p2", "Bob")
	require.NoError(t, err)
	require.NoError(t, tbl.StartGame())

	current := tbl.Game().CurrentPlayerID()
	clock.Advance(5 * time.Second).MustWait(t.Context())

	require.True(t, tbl.Game().getPlayer(current).HasFolded || tbl.Game().Phase() == PhaseHandEnd)
}
