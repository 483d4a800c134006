// internal/game/hand.go
package game

import (
	"fmt"
	"sort"

	"github.com/jason-s-yu/pokdeng/internal/models"
)

// HandType tags a hand in the special-combination taxonomy.
type HandType string

const (
	HandNormal        HandType = "normal"
	HandPokdeng       HandType = "pokdeng"
	HandSongDeng      HandType = "song_deng"
	HandPair          HandType = "pair"
	HandTong          HandType = "tong"
	HandStraightFlush HandType = "straight_flush"
	HandStraight      HandType = "straight"
	HandSamLuang      HandType = "sam_luang"
	HandSamDeng       HandType = "sam_deng"
)

// handStrength orders hand types for settlement. song_deng and pair share a tier.
var handStrength = map[HandType]int{
	HandTong:          8,
	HandStraightFlush: 7,
	HandSamLuang:      6,
	HandStraight:      5,
	HandSamDeng:       4,
	HandPokdeng:       3,
	HandSongDeng:      2,
	HandPair:          2,
	HandNormal:        1,
}

// Strength returns the settlement rank of the hand type; unknown types rank as normal.
func (t HandType) Strength() int {
	if s, ok := handStrength[t]; ok {
		return s
	}
	return 1
}

// SpecialHand is the derived classification of a hand. Never stored.
type SpecialHand struct {
	Type       HandType `json:"type"`
	Multiplier int      `json:"multiplier"`
	Name       string   `json:"name"`
}

// MaxMultiplier is the largest payout multiplier any hand carries.
const MaxMultiplier = 5

var normalHand = SpecialHand{Type: HandNormal, Multiplier: 1, Name: "ปกติ"}

// HandValue is the sum of card point values modulo 10.
func HandValue(cards []models.Card) int {
	total := 0
	for _, c := range cards {
		total += c.Value()
	}
	return total % 10
}

// Classify maps a hand onto the special-combination taxonomy. Only 2- and
// 3-card hands can be special; 3-card checks run in priority order and the
// first match wins.
func Classify(cards []models.Card) SpecialHand {
	switch len(cards) {
	case 3:
		return classifyThree(cards)
	case 2:
		return classifyTwo(cards)
	}
	return normalHand
}

func classifyThree(cards []models.Card) SpecialHand {
	a, b, c := cards[0], cards[1], cards[2]
	flush := a.Suit == b.Suit && b.Suit == c.Suit
	straight := isStraight(cards)

	switch {
	case a.Rank == b.Rank && b.Rank == c.Rank:
		return SpecialHand{Type: HandTong, Multiplier: MaxMultiplier, Name: "ตอง"}
	case flush && straight:
		return SpecialHand{Type: HandStraightFlush, Multiplier: MaxMultiplier, Name: "เรียงฟลัช"}
	case straight:
		return SpecialHand{Type: HandStraight, Multiplier: 3, Name: "เรียง"}
	case a.IsCourt() && b.IsCourt() && c.IsCourt():
		return SpecialHand{Type: HandSamLuang, Multiplier: 3, Name: "สามเหลือง"}
	case flush:
		return SpecialHand{Type: HandSamDeng, Multiplier: 3, Name: "สามเด้ง"}
	}
	return normalHand
}

func classifyTwo(cards []models.Card) SpecialHand {
	a, b := cards[0], cards[1]
	if v := HandValue(cards); v >= 8 {
		mult := 1
		if v == 9 {
			mult = 2
		}
		return SpecialHand{Type: HandPokdeng, Multiplier: mult, Name: fmt.Sprintf("ป๊อก%d", v)}
	}
	if a.Suit == b.Suit {
		return SpecialHand{Type: HandSongDeng, Multiplier: 2, Name: "สองเด้ง"}
	}
	if a.Rank == b.Rank {
		return SpecialHand{Type: HandPair, Multiplier: 2, Name: "คู่"}
	}
	return normalHand
}

// isStraight reports whether three cards form a run of consecutive ranks
// with A..K as 1..13. Q-K-A also counts, with the ace played high; that is
// the only wraparound (K-A-2 is not a run).
func isStraight(cards []models.Card) bool {
	if len(cards) != 3 {
		return false
	}
	ranks := []int{int(cards[0].Rank), int(cards[1].Rank), int(cards[2].Rank)}
	sort.Ints(ranks)
	if ranks[1]-ranks[0] == 1 && ranks[2]-ranks[1] == 1 {
		return true
	}
	return ranks[0] == int(models.Ace) && ranks[1] == int(models.Queen) && ranks[2] == int(models.King)
}

// Outcome is a player's result against the host.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
	OutcomeDraw Outcome = "draw"
)

// CompareHands resolves a player's hand against the host's: hand strength
// first, then point value.
func CompareHands(player SpecialHand, playerValue int, host SpecialHand, hostValue int) Outcome {
	ps, hs := player.Type.Strength(), host.Type.Strength()
	switch {
	case ps > hs:
		return OutcomeWin
	case ps < hs:
		return OutcomeLose
	case playerValue > hostValue:
		return OutcomeWin
	case playerValue < hostValue:
		return OutcomeLose
	}
	return OutcomeDraw
}
