// internal/game/deck.go
package game

import (
	"math/rand"
	"time"

	"github.com/jason-s-yu/pokdeng/internal/models"
)

// DeckSize is the number of cards in a standard deck. The shoe is always
// exactly one deck.
const DeckSize = 52

// NewDeck returns the canonical, unshuffled 52-card deck: suits in
// models.Suits order, each running A through K.
func NewDeck() []models.Card {
	deck := make([]models.Card, 0, DeckSize)
	for _, suit := range models.Suits {
		for rank := models.Ace; rank <= models.King; rank++ {
			deck = append(deck, models.Card{Rank: rank, Suit: suit})
		}
	}
	return deck
}

// Shuffle permutes cards in place with Fisher-Yates: for i from n-1 down to 1,
// swap i with a uniform index in [0, i].
func Shuffle(cards []models.Card, r *rand.Rand) {
	for i := len(cards) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// newRand returns a time-seeded source for sessions that aren't given one.
func newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Shoe is the full deck in draw order plus a cursor at the next undealt card.
// The cursor only moves forward; a reshuffle replaces the whole shoe.
type Shoe struct {
	cards  []models.Card
	cursor int
}

// NewShoe builds a freshly shuffled shoe with the cursor at 0.
func NewShoe(r *rand.Rand) *Shoe {
	cards := NewDeck()
	Shuffle(cards, r)
	return &Shoe{cards: cards}
}

// Draw returns the next k undealt cards and advances the cursor.
// Returns ErrShoeExhausted without moving the cursor if fewer than k remain.
func (s *Shoe) Draw(k int) ([]models.Card, error) {
	if k > s.Remaining() {
		return nil, ErrShoeExhausted
	}
	drawn := make([]models.Card, k)
	copy(drawn, s.cards[s.cursor:s.cursor+k])
	s.cursor += k
	return drawn, nil
}

// Remaining is the number of undealt cards.
func (s *Shoe) Remaining() int {
	return len(s.cards) - s.cursor
}

// Cards returns a copy of the shoe in draw order, dealt cards included.
func (s *Shoe) Cards() []models.Card {
	out := make([]models.Card, len(s.cards))
	copy(out, s.cards)
	return out
}
