package poker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func c(rank Rank, suit Suit) Card { return Card{Rank: rank, Suit: suit} }

func TestEvaluateHand_WheelStraight(t *testing.T) {
	hole := []Card{c(Ace, Spades), c(Two, Hearts)}
	community := []Card{c(Three, Clubs), c(Four, Diamonds), c(Five, Spades), c(King, Hearts), c(Queen, Clubs)}

	hv, err := EvaluateHand(hole, community)
	require.NoError(t, err)
	require.Equal(t, Straight, hv.Rank)
	require.Equal(t, []int{5}, hv.Tiebreak)
}

func TestEvaluateHand_BroadwayBeatsWheel(t *testing.T) {
	wheel, err := EvaluateHand([]Card{c(Ace, Spades), c(Two, Hearts)},
		[]Card{c(Three, Clubs), c(Four, Diamonds), c(Five, Spades), c(Nine, Hearts), c(Eight, Clubs)})
	require.NoError(t, err)

	broadway, err := EvaluateHand([]Card{c(King, Spades), c(Queen, Hearts)},
		[]Card{c(Jack, Clubs), c(Ten, Diamonds), c(Ace, Spades), c(Nine, Hearts), c(Eight, Clubs)})
	require.NoError(t, err)

	require.Equal(t, 1, Compare(broadway, wheel))
}

func TestEvaluateHand_FullHousePrefersHigherTrips(t *testing.T) {
	// Board pairs twos and threes; one hand trips up threes, the other twos.
	community := []Card{c(Two, Clubs), c(Two, Diamonds), c(Three, Spades), c(Three, Hearts), c(King, Clubs)}

	tripsThrees, err := EvaluateHand([]Card{c(Three, Clubs), c(Nine, Hearts)}, community)
	require.NoError(t, err)
	require.Equal(t, FullHouse, tripsThrees.Rank)
	require.Equal(t, 3, tripsThrees.Tiebreak[0])
	require.Equal(t, 2, tripsThrees.Tiebreak[1])

	tripsTwos, err := EvaluateHand([]Card{c(Two, Hearts), c(Nine, Clubs)}, community)
	require.NoError(t, err)
	require.Equal(t, FullHouse, tripsTwos.Rank)
	require.Equal(t, 2, tripsTwos.Tiebreak[0])
	require.Equal(t, 3, tripsTwos.Tiebreak[1])

	require.Equal(t, 1, Compare(tripsThrees, tripsTwos))
}

func TestEvaluateHand_FlushBeatsStraight(t *testing.T) {
	flush, err := EvaluateHand([]Card{c(Two, Spades), c(Nine, Spades)},
		[]Card{c(Five, Spades), c(Seven, Spades), c(Jack, Spades), c(King, Hearts), c(Queen, Clubs)})
	require.NoError(t, err)
	require.Equal(t, Flush, flush.Rank)

	straight, err := EvaluateHand([]Card{c(Nine, Clubs), c(Ten, Hearts)},
		[]Card{c(Jack, Diamonds), c(Queen, Spades), c(King, Clubs), c(Two, Hearts), c(Three, Clubs)})
	require.NoError(t, err)
	require.Equal(t, Straight, straight.Rank)

	require.Equal(t, 1, Compare(flush, straight))
}

func TestEvaluateHand_ExactTie(t *testing.T) {
	community := []Card{c(Ace, Clubs), c(King, Diamonds), c(Queen, Spades), c(Jack, Hearts), c(Ten, Clubs)}
	a, err := EvaluateHand([]Card{c(Two, Spades), c(Three, Hearts)}, community)
	require.NoError(t, err)
	b, err := EvaluateHand([]Card{c(Four, Clubs), c(Five, Diamonds)}, community)
	require.NoError(t, err)

	require.Equal(t, 0, Compare(a, b))
}

func TestFindWinners_SplitPot(t *testing.T) {
	community := []Card{c(Ace, Clubs), c(King, Diamonds), c(Queen, Spades), c(Jack, Hearts), c(Ten, Clubs)}
	a, _ := EvaluateHand([]Card{c(Two, Spades), c(Three, Hearts)}, community)
	b, _ := EvaluateHand([]Card{c(Four, Clubs), c(Five, Diamonds)}, community)
	loser, _ := EvaluateHand([]Card{c(Two, Clubs), c(Seven, Diamonds)},
		[]Card{c(Nine, Clubs), c(Eight, Spades), c(Four, Hearts), c(Two, Diamonds), c(Six, Clubs)})

	winners := FindWinners([]HandValue{a, b, loser})
	require.ElementsMatch(t, []int{0, 1}, winners)
}
