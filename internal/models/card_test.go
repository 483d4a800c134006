package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardValue(t *testing.T) {
	cases := map[string]int{"AS": 1, "2H": 2, "9D": 9, "10C": 10, "JS": 10, "QH": 10, "KD": 10}
	for code, want := range cases {
		c, err := ParseCard(code)
		require.NoError(t, err)
		assert.Equal(t, want, c.Value(), code)
	}
}

func TestParseCard(t *testing.T) {
	c, err := ParseCard(" 10h ")
	require.NoError(t, err)
	assert.Equal(t, Card{Rank: 10, Suit: Hearts}, c)
	assert.Equal(t, "10H", c.String())
	assert.Equal(t, "10_of_hearts", c.Name())

	for _, bad := range []string{"", "A", "1S", "AX", "11D"} {
		_, err := ParseCard(bad)
		assert.Error(t, err, bad)
	}
	assert.Panics(t, func() { MustParseCards("ZZ") })
}

func TestCardCourt(t *testing.T) {
	assert.True(t, Card{Rank: Jack, Suit: Spades}.IsCourt())
	assert.True(t, Card{Rank: King, Suit: Spades}.IsCourt())
	assert.False(t, Card{Rank: 10, Suit: Spades}.IsCourt())
	assert.False(t, Card{Rank: Ace, Suit: Spades}.IsCourt())
}

func TestCardMarshalJSON(t *testing.T) {
	data, err := json.Marshal(Card{Rank: Queen, Suit: Diamonds})
	require.NoError(t, err)
	assert.JSONEq(t, `{"rank":"Q","suit":"D","code":"QD","name":"queen_of_diamonds","value":10}`, string(data))
}

func TestGameActionAccessors(t *testing.T) {
	a := GameAction{ActionType: "place_bet", Payload: map[string]interface{}{
		"amount":  float64(25),
		"text":    " 40 ",
		"bad":     "lots",
		"name":    "Nok",
		"wasHost": true,
	}}

	n, ok := a.Int("amount")
	assert.True(t, ok)
	assert.Equal(t, 25, n)

	n, ok = a.Int("text")
	assert.True(t, ok)
	assert.Equal(t, 40, n)

	_, ok = a.Int("bad")
	assert.False(t, ok)
	_, ok = a.Int("missing")
	assert.False(t, ok)

	assert.Equal(t, "Nok", a.String("name"))
	assert.Equal(t, "", a.String("amount"))
	assert.True(t, a.Bool("wasHost"))

	var empty GameAction
	assert.Equal(t, "", empty.String("name"))
	_, ok = empty.Int("amount")
	assert.False(t, ok)
}

func TestGameActionIntRejectsOutOfRange(t *testing.T) {
	a := GameAction{Payload: map[string]interface{}{
		"huge":     1e300,
		"negative": -1e300,
		"fraction": 12.5,
		"inf":      math.Inf(1),
		"nan":      math.NaN(),
	}}
	for _, key := range []string{"huge", "negative", "fraction", "inf", "nan"} {
		_, ok := a.Int(key)
		assert.False(t, ok, key)
	}
}

func TestPlayerBetLifecycle(t *testing.T) {
	p := &Player{Hand: MustParseCards("AS", "9H"), CurrentBet: 10, BetLocked: true}
	assert.True(t, p.HasCards())

	p.ClearHand()
	assert.False(t, p.HasCards())
	assert.False(t, p.BetLocked)
	assert.Equal(t, 10, p.CurrentBet)

	p.ResetBet()
	assert.Equal(t, 0, p.CurrentBet)
}
