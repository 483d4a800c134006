// internal/game/hand_test.go
package game

import (
	"testing"

	"github.com/jason-s-yu/pokdeng/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestHandValue(t *testing.T) {
	cases := []struct {
		cards []string
		want  int
	}{
		{[]string{"AS", "8H"}, 9},
		{[]string{"KH", "QD"}, 0},
		{[]string{"10S", "5C"}, 5},
		{[]string{"9S", "9H", "9D"}, 7},
		{[]string{"AS"}, 1},
		{nil, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HandValue(models.MustParseCards(tc.cards...)), "%v", tc.cards)
	}
}

func TestEveryHandHasOneTagAndValueInRange(t *testing.T) {
	deck := NewDeck()
	twoCard := map[HandType]bool{HandPokdeng: true, HandSongDeng: true, HandPair: true, HandNormal: true}

	check := func(hand []models.Card, allowed map[HandType]bool) HandType {
		v := HandValue(hand)
		if v < 0 || v > 9 {
			t.Fatalf("%v: value %d out of range", hand, v)
		}
		sh := Classify(hand)
		if allowed != nil && !allowed[sh.Type] {
			t.Fatalf("%v: unexpected tag %q", hand, sh.Type)
		}
		if _, ok := handStrength[sh.Type]; !ok {
			t.Fatalf("%v: unknown tag %q", hand, sh.Type)
		}
		if sh.Multiplier < 1 || sh.Multiplier > MaxMultiplier {
			t.Fatalf("%v: multiplier %d", hand, sh.Multiplier)
		}
		return sh.Type
	}

	for i := 0; i < len(deck); i++ {
		for j := i + 1; j < len(deck); j++ {
			check([]models.Card{deck[i], deck[j]}, twoCard)
		}
	}

	counts := make(map[HandType]int)
	for i := 0; i < len(deck); i++ {
		for j := i + 1; j < len(deck); j++ {
			for k := j + 1; k < len(deck); k++ {
				counts[check([]models.Card{deck[i], deck[j], deck[k]}, nil)]++
			}
		}
	}
	assert.Equal(t, map[HandType]int{
		HandTong:          52,
		HandStraightFlush: 48,
		HandStraight:      720,
		HandSamLuang:      144,
		HandSamDeng:       1096,
		HandNormal:        20040,
	}, counts)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name  string
		cards []string
		typ   HandType
		mult  int
		label string
	}{
		{"pok nine", []string{"AS", "8H"}, HandPokdeng, 2, "ป๊อก9"},
		{"pok eight beats suited", []string{"3D", "5D"}, HandPokdeng, 1, "ป๊อก8"},
		{"two suited", []string{"2S", "3S"}, HandSongDeng, 2, "สองเด้ง"},
		{"pair", []string{"7H", "7D"}, HandPair, 2, "คู่"},
		{"plain two", []string{"KH", "QD"}, HandNormal, 1, "ปกติ"},
		{"single card", []string{"9S"}, HandNormal, 1, "ปกติ"},
		{"tong", []string{"5S", "5H", "5D"}, HandTong, 5, "ตอง"},
		{"straight flush", []string{"4H", "6H", "5H"}, HandStraightFlush, 5, "เรียงฟลัช"},
		{"straight", []string{"4H", "5S", "6D"}, HandStraight, 3, "เรียง"},
		{"court straight beats sam luang", []string{"JS", "QH", "KD"}, HandStraight, 3, "เรียง"},
		{"ace high straight", []string{"QS", "KH", "AD"}, HandStraight, 3, "เรียง"},
		{"ace high straight flush", []string{"AC", "QC", "KC"}, HandStraightFlush, 5, "เรียงฟลัช"},
		{"ace low straight", []string{"AS", "2H", "3D"}, HandStraight, 3, "เรียง"},
		{"no wraparound", []string{"KS", "AH", "2D"}, HandNormal, 1, "ปกติ"},
		{"sam luang", []string{"JS", "JH", "QD"}, HandSamLuang, 3, "สามเหลือง"},
		{"sam deng", []string{"2C", "7C", "9C"}, HandSamDeng, 3, "สามเด้ง"},
		{"plain three", []string{"2C", "7H", "9D"}, HandNormal, 1, "ปกติ"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(models.MustParseCards(tc.cards...))
			assert.Equal(t, tc.typ, got.Type)
			assert.Equal(t, tc.mult, got.Multiplier)
			assert.Equal(t, tc.label, got.Name)
		})
	}
}

func TestHandStrengthOrdering(t *testing.T) {
	order := []HandType{HandTong, HandStraightFlush, HandSamLuang, HandStraight, HandSamDeng, HandPokdeng, HandSongDeng, HandNormal}
	for i := 1; i < len(order); i++ {
		assert.Greater(t, order[i-1].Strength(), order[i].Strength(), "%s vs %s", order[i-1], order[i])
	}
	assert.Equal(t, HandSongDeng.Strength(), HandPair.Strength())
	assert.Equal(t, 1, HandType("bogus").Strength())
}

func TestCompareHands(t *testing.T) {
	pok8 := SpecialHand{Type: HandPokdeng, Multiplier: 1}
	normal := SpecialHand{Type: HandNormal, Multiplier: 1}
	pair := SpecialHand{Type: HandPair, Multiplier: 2}
	suited := SpecialHand{Type: HandSongDeng, Multiplier: 2}

	assert.Equal(t, OutcomeWin, CompareHands(pok8, 8, normal, 9), "tag outranks value")
	assert.Equal(t, OutcomeLose, CompareHands(normal, 9, pok8, 8))
	assert.Equal(t, OutcomeWin, CompareHands(normal, 7, normal, 6))
	assert.Equal(t, OutcomeLose, CompareHands(pair, 2, suited, 5), "pair and song deng tie on tag")
	assert.Equal(t, OutcomeDraw, CompareHands(pair, 4, suited, 4))
}
