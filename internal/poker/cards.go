package poker

import (
	"encoding/json"
	"fmt"

	"github.com/vctt94/cardroom/internal/rng"
)

// Suit is a poker card suit.
type Suit string

const (
	Spades   Suit = "spades"
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
)

// Rank is a poker card rank, 2 through Ace.
type Rank string

const (
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
	Ace   Rank = "A"
)

var rankValues = map[Rank]int{
	Two: 2, Three: 3, Four: 4, Five: 5, Six: 6, Seven: 7, Eight: 8,
	Nine: 9, Ten: 10, Jack: 11, Queen: 12, King: 13, Ace: 14,
}

// Value returns the rank's numeric value (Ace high, 14). Callers needing
// the wheel's Ace-low value substitute it explicitly in straight detection.
func (r Rank) Value() int {
	return rankValues[r]
}

// Card is an immutable poker playing card.
type Card struct {
	Rank Rank
	Suit Suit
}

// cardJSON is the wire shape for a Card; tolerant of multiple spellings on
// unmarshal so a loosely-typed transport peer doesn't fail decoding.
type cardJSON struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(cardJSON{Rank: string(c.Rank), Suit: string(c.Suit)})
}

func (c *Card) UnmarshalJSON(data []byte) error {
	var raw cardJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rank, err := parseRank(raw.Rank)
	if err != nil {
		return err
	}
	suit, err := parseSuit(raw.Suit)
	if err != nil {
		return err
	}
	c.Rank = rank
	c.Suit = suit
	return nil
}

func parseRank(s string) (Rank, error) {
	switch s {
	case "2", "3", "4", "5", "6", "7", "8", "9":
		return Rank(s), nil
	case "10", "T", "t":
		return Ten, nil
	case "J", "j", "jack":
		return Jack, nil
	case "Q", "q", "queen":
		return Queen, nil
	case "K", "k", "king":
		return King, nil
	case "A", "a", "ace":
		return Ace, nil
	default:
		return "", fmt.Errorf("poker: invalid rank %q", s)
	}
}

func parseSuit(s string) (Suit, error) {
	switch s {
	case "spades", "s", "S":
		return Spades, nil
	case "hearts", "h", "H":
		return Hearts, nil
	case "diamonds", "d", "D":
		return Diamonds, nil
	case "clubs", "c", "C":
		return Clubs, nil
	default:
		return "", fmt.Errorf("poker: invalid suit %q", s)
	}
}

func (c Card) String() string {
	return string(c.Rank) + string(c.Suit)[:1]
}

// Deck is a shuffled sequence of the 52 canonical cards, drawn from the top.
type Deck struct {
	cards []Card
}

// NewDeck builds and shuffles a fresh 52-card deck using src.
func NewDeck(src rng.Source) *Deck {
	d := &Deck{cards: make([]Card, 0, 52)}
	for _, suit := range []Suit{Spades, Hearts, Diamonds, Clubs} {
		for _, rank := range []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace} {
			d.cards = append(d.cards, Card{Rank: rank, Suit: suit})
		}
	}
	d.Shuffle(src)
	return d
}

// Shuffle performs an in-place uniform Fisher-Yates shuffle. O(n), unbiased
// by position, per the deck's shuffle contract.
func (d *Deck) Shuffle(src rng.Source) {
	src.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw removes and returns the top card, or ok=false if the deck is empty.
func (d *Deck) Draw() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, true
}

// Remaining returns the number of cards left in the deck.
func (d *Deck) Remaining() int {
	return len(d.cards)
}
