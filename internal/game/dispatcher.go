// internal/game/dispatcher.go
package game

import (
	"fmt"
	"strings"

	"github.com/jason-s-yu/pokdeng/internal/models"
	"github.com/sirupsen/logrus"
)

// Inbound action types.
const (
	ActionJoin              = "join"
	ActionJoinGame          = "join_game"
	ActionDeal              = "deal"
	ActionPok               = "pok"
	ActionHit               = "hit"
	ActionShuffle           = "shuffle"
	ActionPlaceBet          = "place_bet"
	ActionLockBets          = "lock_bets"
	ActionBecomeHost        = "become_host"
	ActionSettle            = "settle"
	ActionCalculateWinnings = "calculate_winnings"
	ActionChat              = "chat"
	ActionCommand           = "command"
	ActionGetStats          = "get_stats"
	ActionLeave             = "leave"
)

// Dispatcher turns inbound actions into session calls and reports, per piece
// of result data, whether it goes to the actor alone or to the whole session.
// It never holds a session lock while building envelopes, so delivery can
// happen freely afterwards.
type Dispatcher struct {
	Registry *SessionRegistry

	// GlobalSessionID, when non-empty, seats every joining player at that one
	// table regardless of the session they ask for.
	GlobalSessionID string

	log logrus.FieldLogger
}

// NewDispatcher wraps a registry.
func NewDispatcher(reg *SessionRegistry, globalSessionID string, logger logrus.FieldLogger) *Dispatcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Dispatcher{Registry: reg, GlobalSessionID: globalSessionID, log: logger}
}

// Handle executes one action for playerID. Errors are local to the action and
// leave every other player's state untouched.
func (d *Dispatcher) Handle(playerID string, action models.GameAction) ([]Envelope, error) {
	switch action.ActionType {
	case ActionJoin, ActionJoinGame:
		return d.join(playerID, action)
	case ActionLeave:
		return leaveEnvelopes(playerID, d.Registry.LeaveSession(playerID)), nil
	case ActionCommand:
		return d.command(playerID, action)
	}

	s, ok := d.Registry.GetPlayerSession(playerID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	switch action.ActionType {
	case ActionDeal, ActionPok:
		return d.deal(s, playerID)
	case ActionHit:
		return d.hit(s, playerID)
	case ActionShuffle:
		return d.shuffle(s, playerID)
	case ActionPlaceBet:
		amount, ok := action.Int("amount")
		if !ok {
			return nil, ErrInvalidBetAmount
		}
		return d.placeBet(s, playerID, amount)
	case ActionLockBets:
		s.LockAllBets()
		return []Envelope{toSession(s.ID, EventBetsLocked, nil)}, nil
	case ActionBecomeHost:
		host, err := s.ChangeHost(playerID)
		if err != nil {
			return nil, err
		}
		d.log.WithFields(logrus.Fields{"session": s.ID, "player": playerID}).Info("Host changed")
		return []Envelope{toSession(s.ID, EventHostChanged, hostPayload(host))}, nil
	case ActionSettle, ActionCalculateWinnings:
		return d.settle(s, playerID)
	case ActionChat:
		return d.chat(s, playerID, action.String("message")), nil
	case ActionGetStats:
		return []Envelope{toPlayer(playerID, EventSessionStats, map[string]interface{}{"stats": s.Stats()})}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action.ActionType)
}

func (d *Dispatcher) join(playerID string, action models.GameAction) ([]Envelope, error) {
	name := action.String("playerName")
	if name == "" {
		name = DefaultPlayerName(playerID)
	}
	sessionID := action.String("sessionId")
	if d.GlobalSessionID != "" {
		sessionID = d.GlobalSessionID
	}

	res, err := d.Registry.JoinSession(sessionID, playerID, name, action.String("userId"), action.Bool("wasHost"))
	if err != nil {
		return nil, err
	}
	envs := leaveEnvelopes(playerID, res.Left)

	s := res.Session
	stats := s.Stats()
	player, _ := s.Player(playerID)

	allPlayers := make([]map[string]interface{}, 0, len(stats.Players))
	for _, p := range stats.Players {
		allPlayers = append(allPlayers, map[string]interface{}{
			"id":         p.ID,
			"name":       p.Name,
			"isHost":     p.IsHost,
			"chips":      p.Chips,
			"currentBet": p.CurrentBet,
		})
	}

	envs = append(envs,
		toPlayer(playerID, EventSessionJoined, map[string]interface{}{
			"sessionId":  s.ID,
			"playerName": player.Name,
			"stats":      stats,
			"hostInfo":   stats.HostInfo,
			"allPlayers": allPlayers,
		}),
		toOthers(s.ID, playerID, EventPlayerJoined, map[string]interface{}{
			"playerId":   playerID,
			"playerName": player.Name,
			"chips":      player.Chips,
			"currentBet": player.CurrentBet,
			"stats":      stats,
		}),
		toSession(s.ID, EventHostChanged, hostPayload(stats.HostInfo)),
		toPlayer(playerID, EventChat, systemChat("Welcome to Pokdeng!")),
	)
	return envs, nil
}

// leaveEnvelopes tells the remaining players someone left, and who holds the
// bank if that moved.
func leaveEnvelopes(playerID string, left *LeaveResult) []Envelope {
	if left == nil || left.Session == nil || left.SessionRemoved {
		return nil
	}
	envs := []Envelope{toSession(left.SessionID, EventPlayerLeft, map[string]interface{}{
		"playerId": playerID,
		"stats":    left.Session.Stats(),
	})}
	if left.HostChanged {
		envs = append(envs, toSession(left.SessionID, EventHostChanged, hostPayload(left.Host)))
	}
	return envs
}

func (d *Dispatcher) deal(s *GameSession, playerID string) ([]Envelope, error) {
	res, err := s.DealAndLockBets(playerID)
	if err != nil {
		return nil, err
	}

	name := playerName(s, playerID)
	var envs []Envelope
	if res.Reshuffled {
		envs = append(envs, reshuffleEnvelopes(s.ID, "", res.RemainingCards+len(res.Cards))...)
	}
	envs = append(envs,
		toSession(s.ID, EventChat, map[string]interface{}{"username": name, "message": name + " received their cards"}),
		toPlayer(playerID, EventCards, map[string]interface{}{
			"username":       name,
			"cards":          res.Cards,
			"handValue":      res.HandValue,
			"specialHand":    res.SpecialHand,
			"remainingCards": res.RemainingCards,
		}),
		toSession(s.ID, EventBetsLocked, nil),
	)
	return envs, nil
}

func (d *Dispatcher) hit(s *GameSession, playerID string) ([]Envelope, error) {
	res, err := s.HitCard(playerID)
	if err != nil {
		return nil, err
	}
	name := playerName(s, playerID)
	var envs []Envelope
	if res.Reshuffled {
		envs = append(envs, reshuffleEnvelopes(s.ID, "", res.RemainingCards+1)...)
	}
	envs = append(envs,
		toSession(s.ID, EventChat, map[string]interface{}{"username": name, "message": name + " drew another card"}),
		toPlayer(playerID, EventCard3, map[string]interface{}{
			"username":       name,
			"card":           res.Card,
			"allCards":       res.AllCards,
			"handValue":      res.HandValue,
			"specialHand":    res.SpecialHand,
			"remainingCards": res.RemainingCards,
		}),
	)
	return envs, nil
}

func (d *Dispatcher) shuffle(s *GameSession, playerID string) ([]Envelope, error) {
	if !s.IsHost(playerID) {
		return nil, ErrNotHost
	}
	remaining := s.ReshuffleDeck()
	name := playerName(s, playerID)
	d.log.WithFields(logrus.Fields{"session": s.ID, "player": playerID}).Info("Host reshuffled the deck")
	return reshuffleEnvelopes(s.ID, name, remaining), nil
}

// reshuffleEnvelopes announces a fresh shoe. An empty shuffledBy marks an
// automatic reshuffle triggered by an exhausted shoe.
func reshuffleEnvelopes(sessionID, shuffledBy string, remaining int) []Envelope {
	msg := "The shoe ran out and was reshuffled. Everyone's cards were cleared"
	if shuffledBy != "" {
		msg = "🔄 " + shuffledBy + " (Host) reshuffled the deck. Everyone's cards were cleared"
	}
	return []Envelope{
		toSession(sessionID, EventChat, systemChat(msg)),
		toSession(sessionID, EventShuffle, map[string]interface{}{
			"remainingCards": remaining,
			"shuffledBy":     shuffledBy,
			"automatic":      shuffledBy == "",
		}),
	}
}

func (d *Dispatcher) placeBet(s *GameSession, playerID string, amount int) ([]Envelope, error) {
	res, err := s.PlaceBet(playerID, amount)
	if err != nil {
		return nil, err
	}
	d.log.WithFields(logrus.Fields{"session": s.ID, "player": playerID, "amount": amount}).Debug("Bet placed")
	return []Envelope{toSession(s.ID, EventBetPlaced, map[string]interface{}{
		"playerId":       res.PlayerID,
		"playerName":     res.PlayerName,
		"betAmount":      res.BetAmount,
		"remainingChips": res.RemainingChips,
	})}, nil
}

func (d *Dispatcher) settle(s *GameSession, playerID string) ([]Envelope, error) {
	if !s.IsHost(playerID) {
		return nil, ErrNotHost
	}
	res, err := s.CalculateWinnings(playerID)
	if err != nil {
		return nil, err
	}
	d.log.WithFields(logrus.Fields{
		"session":   s.ID,
		"settled":   len(res.Results),
		"hostDelta": res.HostDelta(),
	}).Info("Round settled")
	return []Envelope{toSession(s.ID, EventGameResults, map[string]interface{}{
		"hostId":    res.HostID,
		"hostName":  res.HostName,
		"hostHand":  res.HostHand,
		"hostValue": res.HostValue,
		"hostCards": res.HostCards,
		"hostChips": res.HostChips,
		"results":   res.Results,
	})}, nil
}

func (d *Dispatcher) chat(s *GameSession, playerID, message string) []Envelope {
	return []Envelope{toSession(s.ID, EventChat, map[string]interface{}{
		"username": playerName(s, playerID),
		"message":  message,
	})}
}

// command handles the free-text command box: a few words are game actions,
// anything else is chat.
func (d *Dispatcher) command(playerID string, action models.GameAction) ([]Envelope, error) {
	s, ok := d.Registry.GetPlayerSession(playerID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	message := action.String("message")
	switch strings.ToLower(strings.TrimSpace(message)) {
	case ActionShuffle:
		return d.shuffle(s, playerID)
	case ActionPok:
		return d.deal(s, playerID)
	case ActionHit:
		return d.hit(s, playerID)
	}
	return d.chat(s, playerID, message), nil
}

// DefaultPlayerName is used when a client joins without a name.
func DefaultPlayerName(playerID string) string {
	if len(playerID) > 6 {
		playerID = playerID[:6]
	}
	return "Player_" + playerID
}

func playerName(s *GameSession, playerID string) string {
	if p, ok := s.Player(playerID); ok {
		return p.Name
	}
	return DefaultPlayerName(playerID)
}

func hostPayload(h HostInfo) map[string]interface{} {
	return map[string]interface{}{"hostId": h.HostID, "hostName": h.HostName}
}
