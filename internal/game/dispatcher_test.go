// internal/game/dispatcher_test.go
package game

import (
	"testing"

	"github.com/jason-s-yu/pokdeng/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func act(typ string, payload map[string]interface{}) models.GameAction {
	return models.GameAction{ActionType: typ, Payload: payload}
}

func findEvent(envs []Envelope, typ EventType) (Envelope, bool) {
	for _, e := range envs {
		if e.Event.Type == typ {
			return e, true
		}
	}
	return Envelope{}, false
}

func joinAll(t *testing.T, d *Dispatcher, sessionID string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := d.Handle(id, act(ActionJoin, map[string]interface{}{"sessionId": sessionID, "playerName": "name-" + id}))
		require.NoError(t, err)
	}
}

func TestDispatchJoin(t *testing.T) {
	d := NewDispatcher(newTestRegistry(), "", nil)
	joinAll(t, d, "table", "a")

	envs, err := d.Handle("b", act(ActionJoin, map[string]interface{}{"sessionId": "table", "playerName": "Bob"}))
	require.NoError(t, err)

	joined, ok := findEvent(envs, EventSessionJoined)
	require.True(t, ok)
	assert.Equal(t, TargetPlayer, joined.Target)
	assert.Equal(t, "b", joined.PlayerID)
	assert.Equal(t, "table", joined.Event.Payload["sessionId"])
	assert.Len(t, joined.Event.Payload["allPlayers"], 2)
	assert.Equal(t, HostInfo{HostID: "a", HostName: "name-a"}, joined.Event.Payload["hostInfo"])

	others, ok := findEvent(envs, EventPlayerJoined)
	require.True(t, ok)
	assert.Equal(t, TargetSession, others.Target)
	assert.Equal(t, "b", others.Exclude)
	assert.Equal(t, "Bob", others.Event.Payload["playerName"])

	welcome, ok := findEvent(envs, EventChat)
	require.True(t, ok)
	assert.Equal(t, "System", welcome.Event.Payload["username"])
}

func TestDispatchJoinDefaultsName(t *testing.T) {
	d := NewDispatcher(newTestRegistry(), "", nil)
	_, err := d.Handle("abcdef123", act(ActionJoin, nil))
	require.NoError(t, err)

	s, ok := d.Registry.GetPlayerSession("abcdef123")
	require.True(t, ok)
	p, _ := s.Player("abcdef123")
	assert.Equal(t, "Player_abcdef", p.Name)
}

func TestDispatchGlobalSession(t *testing.T) {
	d := NewDispatcher(newTestRegistry(), "global", nil)
	joinAll(t, d, "ignored", "a")
	joinAll(t, d, "", "b")

	s, ok := d.Registry.GetSession("global")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, s.PlayerIDs())
}

func TestDispatchRequiresSession(t *testing.T) {
	d := NewDispatcher(newTestRegistry(), "", nil)
	for _, typ := range []string{ActionDeal, ActionHit, ActionPlaceBet, ActionChat, ActionCommand, ActionSettle} {
		_, err := d.Handle("loner", act(typ, nil))
		assert.ErrorIs(t, err, ErrSessionNotFound, typ)
	}
}

func TestDispatchUnknownAction(t *testing.T) {
	d := NewDispatcher(newTestRegistry(), "", nil)
	joinAll(t, d, "table", "a")
	_, err := d.Handle("a", act("fold", nil))
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestDispatchDealIsPrivateAndLocksBets(t *testing.T) {
	d := NewDispatcher(newTestRegistry(), "", nil)
	joinAll(t, d, "table", "host", "p")

	_, err := d.Handle("p", act(ActionPlaceBet, map[string]interface{}{"amount": float64(20)}))
	require.NoError(t, err)

	envs, err := d.Handle("p", act(ActionPok, nil))
	require.NoError(t, err)

	cards, ok := findEvent(envs, EventCards)
	require.True(t, ok)
	assert.Equal(t, TargetPlayer, cards.Target)
	assert.Equal(t, "p", cards.PlayerID)
	assert.Len(t, cards.Event.Payload["cards"], 2)

	for _, e := range envs {
		if e.Target == TargetSession {
			assert.NotContains(t, e.Event.Payload, "cards", "cards must never be broadcast")
		}
	}
	_, ok = findEvent(envs, EventBetsLocked)
	assert.True(t, ok)

	_, err = d.Handle("p", act(ActionPlaceBet, map[string]interface{}{"amount": "30"}))
	assert.ErrorIs(t, err, ErrBetLocked)
}

func TestDispatchHit(t *testing.T) {
	d := NewDispatcher(newTestRegistry(), "", nil)
	joinAll(t, d, "table", "a")
	_, err := d.Handle("a", act(ActionDeal, nil))
	require.NoError(t, err)

	envs, err := d.Handle("a", act(ActionHit, nil))
	require.NoError(t, err)
	card3, ok := findEvent(envs, EventCard3)
	require.True(t, ok)
	assert.Equal(t, TargetPlayer, card3.Target)
	assert.Len(t, card3.Event.Payload["allCards"], 3)

	_, err = d.Handle("a", act(ActionHit, nil))
	assert.ErrorIs(t, err, ErrMaxCardsReached)
}

func TestDispatchHostOnlyActions(t *testing.T) {
	d := NewDispatcher(newTestRegistry(), "", nil)
	joinAll(t, d, "table", "host", "p")

	_, err := d.Handle("p", act(ActionShuffle, nil))
	assert.ErrorIs(t, err, ErrNotHost)
	_, err = d.Handle("p", act(ActionSettle, nil))
	assert.ErrorIs(t, err, ErrNotHost)

	envs, err := d.Handle("host", act(ActionShuffle, nil))
	require.NoError(t, err)
	shuffle, ok := findEvent(envs, EventShuffle)
	require.True(t, ok)
	assert.Equal(t, DeckSize, shuffle.Event.Payload["remainingCards"])
	assert.Equal(t, "name-host", shuffle.Event.Payload["shuffledBy"])
}

func TestDispatchSettle(t *testing.T) {
	d := NewDispatcher(newTestRegistry(), "", nil)
	joinAll(t, d, "table", "host", "p")
	s, _ := d.Registry.GetSession("table")

	_, err := d.Handle("p", act(ActionPlaceBet, map[string]interface{}{"amount": float64(100)}))
	require.NoError(t, err)
	setHand(s, "host", "2S", "3S", "4S")
	setHand(s, "p", "9C", "9D")

	envs, err := d.Handle("host", act(ActionCalculateWinnings, nil))
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, EventGameResults, envs[0].Event.Type)
	assert.Equal(t, TargetSession, envs[0].Target)
	assert.Equal(t, 100, envs[0].Event.Payload["hostChips"])

	results, ok := envs[0].Event.Payload["results"].([]PlayerResult)
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeLose, results[0].Result)
}

func TestDispatchBecomeHostAndLeave(t *testing.T) {
	d := NewDispatcher(newTestRegistry(), "", nil)
	joinAll(t, d, "table", "a", "b", "c")

	envs, err := d.Handle("c", act(ActionBecomeHost, nil))
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, "c", envs[0].Event.Payload["hostId"])

	envs, err = d.Handle("c", act(ActionLeave, nil))
	require.NoError(t, err)
	left, ok := findEvent(envs, EventPlayerLeft)
	require.True(t, ok)
	assert.Equal(t, "c", left.Event.Payload["playerId"])
	changed, ok := findEvent(envs, EventHostChanged)
	require.True(t, ok)
	assert.Equal(t, "a", changed.Event.Payload["hostId"])

	envs, err = d.Handle("b", act(ActionLeave, nil))
	require.NoError(t, err)
	_, ok = findEvent(envs, EventHostChanged)
	assert.False(t, ok, "a non-host leaving does not move the bank")

	envs, err = d.Handle("a", act(ActionLeave, nil))
	require.NoError(t, err)
	assert.Empty(t, envs, "nobody left to tell")
}

func TestDispatchCommand(t *testing.T) {
	d := NewDispatcher(newTestRegistry(), "", nil)
	joinAll(t, d, "table", "host", "p")

	envs, err := d.Handle("p", act(ActionCommand, map[string]interface{}{"message": " POK "}))
	require.NoError(t, err)
	_, ok := findEvent(envs, EventCards)
	assert.True(t, ok)

	envs, err = d.Handle("p", act(ActionCommand, map[string]interface{}{"message": "hit"}))
	require.NoError(t, err)
	_, ok = findEvent(envs, EventCard3)
	assert.True(t, ok)

	_, err = d.Handle("p", act(ActionCommand, map[string]interface{}{"message": "shuffle"}))
	assert.ErrorIs(t, err, ErrNotHost)

	envs, err = d.Handle("p", act(ActionCommand, map[string]interface{}{"message": "good luck"}))
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, EventChat, envs[0].Event.Type)
	assert.Equal(t, "good luck", envs[0].Event.Payload["message"])
	assert.Equal(t, "name-p", envs[0].Event.Payload["username"])
}

func TestDispatchGetStats(t *testing.T) {
	d := NewDispatcher(newTestRegistry(), "", nil)
	joinAll(t, d, "table", "a")
	envs, err := d.Handle("a", act(ActionGetStats, nil))
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, TargetPlayer, envs[0].Target)
	stats, ok := envs[0].Event.Payload["stats"].(SessionStats)
	require.True(t, ok)
	assert.Equal(t, 1, stats.PlayerCount)
}
