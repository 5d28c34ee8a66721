// Package uno implements the card-game engine for UNO lobbies: a 108-card
// deck of tagged-union faces, turn order with direction/skip/draw effects,
// and the "call/catch UNO" one-card penalty window. It mirrors the shape of
// the poker engine next door (table wraps a per-hand game state machine)
// but UNO has no betting and no showdown: a round ends the moment one
// player empties their hand.
package uno

import (
	"encoding/json"
	"fmt"
)

// Color is a card color; WildFace and Wild4Face report ColorNone until chosen.
type Color string

const (
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
	ColorNone   Color = ""
)

// Kind discriminates the tagged union of card faces.
type Kind string

const (
	KindNumber  Kind = "number"
	KindSkip    Kind = "skip"
	KindReverse Kind = "reverse"
	KindDraw2   Kind = "draw2"
	KindWild    Kind = "wild"
	KindWild4   Kind = "wild4"
)

// Face is any playable UNO card face.
type Face interface {
	Kind() Kind
	Color() Color
	// ID is a stable per-physical-card identifier ("red-7-a"), used for
	// event dedupe and for round-tripping exact cards over the wire.
	ID() string
}

// NumberFace is a colored 0-9 card.
type NumberFace struct {
	CardColor Color
	Number    int
	CardID    string
}

func (f NumberFace) Kind() Kind    { return KindNumber }
func (f NumberFace) Color() Color  { return f.CardColor }
func (f NumberFace) ID() string    { return f.CardID }

// SkipFace skips the next player's turn.
type SkipFace struct {
	CardColor Color
	CardID    string
}

func (f SkipFace) Kind() Kind   { return KindSkip }
func (f SkipFace) Color() Color { return f.CardColor }
func (f SkipFace) ID() string   { return f.CardID }

// ReverseFace reverses turn direction (acts as Skip in heads-up).
type ReverseFace struct {
	CardColor Color
	CardID    string
}

func (f ReverseFace) Kind() Kind   { return KindReverse }
func (f ReverseFace) Color() Color { return f.CardColor }
func (f ReverseFace) ID() string   { return f.CardID }

// Draw2Face forces the next player to draw two cards and lose their turn.
type Draw2Face struct {
	CardColor Color
	CardID    string
}

func (f Draw2Face) Kind() Kind   { return KindDraw2 }
func (f Draw2Face) Color() Color { return f.CardColor }
func (f Draw2Face) ID() string   { return f.CardID }

// WildFace lets the player choose the next active color.
type WildFace struct {
	ChosenColor Color
	CardID      string
}

func (f WildFace) Kind() Kind   { return KindWild }
func (f WildFace) Color() Color { return f.ChosenColor }
func (f WildFace) ID() string   { return f.CardID }

// Wild4Face chooses color and forces the next player to draw four.
// Legal only when the player holds no card matching the active color.
type Wild4Face struct {
	ChosenColor Color
	CardID      string
}

func (f Wild4Face) Kind() Kind   { return KindWild4 }
func (f Wild4Face) Color() Color { return f.ChosenColor }
func (f Wild4Face) ID() string   { return f.CardID }

// faceJSON is the wire shape for any Face, tagged by kind.
type faceJSON struct {
	Kind   Kind   `json:"kind"`
	Color  Color  `json:"color,omitempty"`
	Number *int   `json:"number,omitempty"`
	ID     string `json:"id"`
}

// MarshalFace encodes any Face to its tagged JSON wire shape.
func MarshalFace(f Face) ([]byte, error) {
	fj := faceJSON{Kind: f.Kind(), Color: f.Color(), ID: f.ID()}
	if nf, ok := f.(NumberFace); ok {
		n := nf.Number
		fj.Number = &n
	}
	return json.Marshal(fj)
}

// UnmarshalFace decodes a tagged JSON wire shape back into a concrete Face.
func UnmarshalFace(data []byte) (Face, error) {
	var fj faceJSON
	if err := json.Unmarshal(data, &fj); err != nil {
		return nil, err
	}
	switch fj.Kind {
	case KindNumber:
		if fj.Number == nil {
			return nil, fmt.Errorf("uno: number face missing number")
		}
		return NumberFace{CardColor: fj.Color, Number: *fj.Number, CardID: fj.ID}, nil
	case KindSkip:
		return SkipFace{CardColor: fj.Color, CardID: fj.ID}, nil
	case KindReverse:
		return ReverseFace{CardColor: fj.Color, CardID: fj.ID}, nil
	case KindDraw2:
		return Draw2Face{CardColor: fj.Color, CardID: fj.ID}, nil
	case KindWild:
		return WildFace{ChosenColor: fj.Color, CardID: fj.ID}, nil
	case KindWild4:
		return Wild4Face{ChosenColor: fj.Color, CardID: fj.ID}, nil
	default:
		return nil, fmt.Errorf("uno: unknown face kind %q", fj.Kind)
	}
}

// NewDeck builds the standard 108-card UNO deck: per color, one 0, two each
// of 1-9, two Skip, two Reverse, two Draw2; plus four Wild and four Wild4.
func NewDeck() []Face {
	colors := []Color{ColorRed, ColorYellow, ColorGreen, ColorBlue}
	deck := make([]Face, 0, 108)

	for _, col := range colors {
		deck = append(deck, NumberFace{CardColor: col, Number: 0, CardID: fmt.Sprintf("%s-0-a", col)})
		for n := 1; n <= 9; n++ {
			deck = append(deck, NumberFace{CardColor: col, Number: n, CardID: fmt.Sprintf("%s-%d-a", col, n)})
			deck = append(deck, NumberFace{CardColor: col, Number: n, CardID: fmt.Sprintf("%s-%d-b", col, n)})
		}
		for i := 0; i < 2; i++ {
			letter := string(rune('a' + i))
			deck = append(deck, SkipFace{CardColor: col, CardID: fmt.Sprintf("%s-skip-%s", col, letter)})
			deck = append(deck, ReverseFace{CardColor: col, CardID: fmt.Sprintf("%s-reverse-%s", col, letter)})
			deck = append(deck, Draw2Face{CardColor: col, CardID: fmt.Sprintf("%s-draw2-%s", col, letter)})
		}
	}
	for i := 0; i < 4; i++ {
		letter := string(rune('a' + i))
		deck = append(deck, WildFace{CardID: fmt.Sprintf("wild-%s", letter)})
		deck = append(deck, Wild4Face{CardID: fmt.Sprintf("wild4-%s", letter)})
	}
	return deck
}

// Matches reports whether candidate is legally playable on top of top, given
// the currently active color (which may differ from top.Color() right after
// a wild is played).
func Matches(candidate Face, top Face, activeColor Color) bool {
	switch candidate.Kind() {
	case KindWild, KindWild4:
		return true
	}
	if candidate.Color() == activeColor {
		return true
	}
	if top.Kind() == KindNumber && candidate.Kind() == KindNumber {
		return top.(NumberFace).Number == candidate.(NumberFace).Number
	}
	return candidate.Kind() == top.Kind() && candidate.Kind() != KindNumber
}
