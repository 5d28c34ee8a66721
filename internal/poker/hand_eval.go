package poker

import (
	"fmt"
	"sort"

	chehsunliu "github.com/chehsunliu/poker"
)

// HandRank classifies a 5-card poker hand, weakest to strongest.
type HandRank int

const (
	HighCard HandRank = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

func (r HandRank) String() string {
	switch r {
	case HighCard:
		return "High Card"
	case Pair:
		return "One Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// HandValue is the complete evaluation of a player's best 5-card hand.
type HandValue struct {
	Rank            HandRank
	Tiebreak        []int // high-to-low, lexicographically compared within Rank
	Best            []Card
	HandDescription string
}

// Compare returns 1 if a beats b, -1 if b beats a, 0 on an exact tie.
func Compare(a, b HandValue) int {
	if a.Rank != b.Rank {
		if a.Rank > b.Rank {
			return 1
		}
		return -1
	}
	for i := 0; i < len(a.Tiebreak) && i < len(b.Tiebreak); i++ {
		if a.Tiebreak[i] != b.Tiebreak[i] {
			if a.Tiebreak[i] > b.Tiebreak[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

// EvaluateHand picks the best 5-card hand out of up to 7 cards (hole +
// community) per the rank-class/tiebreak-vector contract in §4.B.
func EvaluateHand(hole, community []Card) (HandValue, error) {
	all := make([]Card, 0, len(hole)+len(community))
	all = append(all, hole...)
	all = append(all, community...)
	if len(all) < 5 {
		return HandValue{}, fmt.Errorf("poker: need at least 5 cards to evaluate, got %d", len(all))
	}

	best := HandValue{Rank: -1}
	for _, combo := range combinations(all, 5) {
		v := evaluateFive(combo)
		if best.Rank == -1 || Compare(v, best) > 0 {
			best = v
		}
	}

	best.HandDescription = describeWithChehsunliu(best.Best)
	return best, nil
}

// describeWithChehsunliu cross-checks the chosen five-card hand against the
// chehsunliu/poker evaluator and returns its human-readable rank string.
// This keeps chehsunliu exercised as a description source without making it
// the authority for the tiebreak vector this package computes itself.
func describeWithChehsunliu(five []Card) string {
	conv := make([]chehsunliu.Card, 0, len(five))
	for _, c := range five {
		cc, err := toChehsunliu(c)
		if err != nil {
			return ""
		}
		conv = append(conv, cc)
	}
	rank := chehsunliu.Evaluate(conv)
	return chehsunliu.RankString(rank)
}

func toChehsunliu(c Card) (chehsunliu.Card, error) {
	var rankChar byte
	switch c.Rank {
	case Two, Three, Four, Five, Six, Seven, Eight, Nine:
		rankChar = string(c.Rank)[0]
	case Ten:
		rankChar = 'T'
	case Jack:
		rankChar = 'J'
	case Queen:
		rankChar = 'Q'
	case King:
		rankChar = 'K'
	case Ace:
		rankChar = 'A'
	default:
		return chehsunliu.Card(0), fmt.Errorf("poker: invalid rank %q", c.Rank)
	}

	var suitChar byte
	switch c.Suit {
	case Spades:
		suitChar = 's'
	case Hearts:
		suitChar = 'h'
	case Diamonds:
		suitChar = 'd'
	case Clubs:
		suitChar = 'c'
	default:
		return chehsunliu.Card(0), fmt.Errorf("poker: invalid suit %q", c.Suit)
	}

	return chehsunliu.NewCard(string([]byte{rankChar, suitChar})), nil
}

// evaluateFive classifies an exact 5-card hand.
func evaluateFive(cards []Card) HandValue {
	sorted := append([]Card{}, cards...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rank.Value() > sorted[j].Rank.Value() })

	byRank := map[int][]Card{}
	for _, c := range sorted {
		byRank[c.Rank.Value()] = append(byRank[c.Rank.Value()], c)
	}

	isFlush := true
	for _, c := range sorted {
		if c.Suit != sorted[0].Suit {
			isFlush = false
			break
		}
	}

	straightHigh, isStraight := detectStraight(sorted)

	// Group rank-counts descending by (count, rank) so quads/trips/pairs
	// sort correctly and ties within a count break by rank.
	type group = struct {
		value int
		count int
	}
	groups := make([]group, 0, len(byRank))
	for v, cs := range byRank {
		groups = append(groups, group{value: v, count: len(cs)})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].value > groups[j].value
	})

	switch {
	case isStraight && isFlush && straightHigh == 14:
		return HandValue{Rank: RoyalFlush, Tiebreak: []int{14}, Best: sorted}
	case isStraight && isFlush:
		return HandValue{Rank: StraightFlush, Tiebreak: []int{straightHigh}, Best: sorted}
	case groups[0].count == 4:
		return HandValue{Rank: FourOfAKind, Tiebreak: []int{groups[0].value, groups[1].value}, Best: sorted}
	case groups[0].count == 3 && groups[1].count >= 2:
		// Full House must prefer the highest available trips; when two trip
		// sets exist, the lower one contributes its top two cards as the pair.
		return HandValue{Rank: FullHouse, Tiebreak: []int{groups[0].value, groups[1].value}, Best: sorted}
	case isFlush:
		return HandValue{Rank: Flush, Tiebreak: ranksDesc(sorted), Best: sorted}
	case isStraight:
		return HandValue{Rank: Straight, Tiebreak: []int{straightHigh}, Best: sorted}
	case groups[0].count == 3:
		kickers := kickerValues(groups, 2)
		return HandValue{Rank: ThreeOfAKind, Tiebreak: append([]int{groups[0].value}, kickers...), Best: sorted}
	case groups[0].count == 2 && groups[1].count == 2:
		hi, lo := groups[0].value, groups[1].value
		if lo > hi {
			hi, lo = lo, hi
		}
		kicker := kickerValues(groups, 1)
		return HandValue{Rank: TwoPair, Tiebreak: append([]int{hi, lo}, kicker...), Best: sorted}
	case groups[0].count == 2:
		kickers := kickerValues(groups, 3)
		return HandValue{Rank: Pair, Tiebreak: append([]int{groups[0].value}, kickers...), Best: sorted}
	default:
		return HandValue{Rank: HighCard, Tiebreak: ranksDesc(sorted), Best: sorted}
	}
}

func ranksDesc(cards []Card) []int {
	out := make([]int, len(cards))
	for i, c := range cards {
		out[i] = c.Rank.Value()
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

func kickerValues(groups []struct {
	value int
	count int
}, n int) []int {
	out := make([]int, 0, n)
	for _, g := range groups[1:] {
		for i := 0; i < g.count && len(out) < n; i++ {
			out = append(out, g.value)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// detectStraight returns the high card of a straight among 5 distinct-rank
// cards, including the wheel (A-2-3-4-5) reported with high card 5 per §4.B.
func detectStraight(sorted []Card) (high int, ok bool) {
	values := make([]int, 0, len(sorted))
	seen := map[int]bool{}
	for _, c := range sorted {
		v := c.Rank.Value()
		if !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	if len(values) != 5 {
		return 0, false
	}
	sort.Sort(sort.Reverse(sort.IntSlice(values)))

	// Wheel: A,5,4,3,2 (Ace counted low).
	if values[0] == 14 && values[1] == 5 && values[2] == 4 && values[3] == 3 && values[4] == 2 {
		return 5, true
	}

	for i := 0; i < 4; i++ {
		if values[i]-values[i+1] != 1 {
			return 0, false
		}
	}
	return values[0], true
}

// combinations returns all k-length subsets of cards.
func combinations(cards []Card, k int) [][]Card {
	var out [][]Card
	n := len(cards)
	if k > n {
		return out
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		combo := make([]Card, k)
		for i, v := range idx {
			combo[i] = cards[v]
		}
		out = append(out, combo)

		i := k - 1
		for i >= 0 && idx[i] == i+n-k {
			i--
		}
		if i < 0 {
			break
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
	return out
}

// FindWinners returns the indices of players (within hands, aligned 1:1)
// sharing the strongest hand among eligible non-folded players.
func FindWinners(hands []HandValue) []int {
	if len(hands) == 0 {
		return nil
	}
	best := hands[0]
	winners := []int{0}
	for i := 1; i < len(hands); i++ {
		switch Compare(hands[i], best) {
		case 1:
			best = hands[i]
			winners = []int{i}
		case 0:
			winners = append(winners, i)
		}
	}
	return winners
}
