// internal/models/card.go
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Suit is one of the four French suits.
type Suit string

const (
	Spades   Suit = "S"
	Hearts   Suit = "H"
	Diamonds Suit = "D"
	Clubs    Suit = "C"
)

// Suits lists the suits in canonical deck order.
var Suits = []Suit{Spades, Hearts, Diamonds, Clubs}

// Rank is the card rank, Ace=1 through King=13.
type Rank int

const (
	Ace   Rank = 1
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
)

var rankLabels = map[Rank]string{
	1: "A", 2: "2", 3: "3", 4: "4", 5: "5", 6: "6", 7: "7",
	8: "8", 9: "9", 10: "10", 11: "J", 12: "Q", 13: "K",
}

var suitNames = map[Suit]string{
	Spades: "spades", Hearts: "hearts", Diamonds: "diamonds", Clubs: "clubs",
}

// Card is a single playing card. Cards are values and never mutated once drawn.
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

// Value is the Pokdeng point value: A=1, 10/J/Q/K=10, otherwise face value.
func (c Card) Value() int {
	if c.Rank >= 10 {
		return 10
	}
	return int(c.Rank)
}

// IsCourt reports whether the card is a J, Q or K.
func (c Card) IsCourt() bool {
	return c.Rank >= Jack && c.Rank <= King
}

// String renders the short code, e.g. "AS", "10H", "KD".
func (c Card) String() string {
	return rankLabels[c.Rank] + string(c.Suit)
}

// Name renders the long form used for card assets, e.g. "ace_of_spades".
func (c Card) Name() string {
	var rank string
	switch c.Rank {
	case Ace:
		rank = "ace"
	case Jack:
		rank = "jack"
	case Queen:
		rank = "queen"
	case King:
		rank = "king"
	default:
		rank = fmt.Sprintf("%d", c.Rank)
	}
	return rank + "_of_" + suitNames[c.Suit]
}

// MarshalJSON emits the card with its label, code and point value so clients
// don't have to repeat the scoring table.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Rank  string `json:"rank"`
		Suit  Suit   `json:"suit"`
		Code  string `json:"code"`
		Name  string `json:"name"`
		Value int    `json:"value"`
	}{rankLabels[c.Rank], c.Suit, c.String(), c.Name(), c.Value()})
}

// ParseCard parses a short code such as "9D", "10S" or "KH".
func ParseCard(code string) (Card, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < 2 {
		return Card{}, fmt.Errorf("invalid card code %q", code)
	}
	suit := Suit(code[len(code)-1:])
	if _, ok := suitNames[suit]; !ok {
		return Card{}, fmt.Errorf("invalid suit in card code %q", code)
	}
	label := code[:len(code)-1]
	for r, l := range rankLabels {
		if l == label {
			return Card{Rank: r, Suit: suit}, nil
		}
	}
	return Card{}, fmt.Errorf("invalid rank in card code %q", code)
}

// MustParseCards parses a list of card codes and panics on a bad code.
// Intended for tests and fixtures.
func MustParseCards(codes ...string) []Card {
	cards := make([]Card, 0, len(codes))
	for _, code := range codes {
		c, err := ParseCard(code)
		if err != nil {
			panic(err)
		}
		cards = append(cards, c)
	}
	return cards
}
