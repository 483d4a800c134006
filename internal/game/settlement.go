// internal/game/settlement.go
package game

import (
	"github.com/jason-s-yu/pokdeng/internal/models"
)

// PlayerResult is one player's settlement against the host.
type PlayerResult struct {
	PlayerID    string        `json:"playerId"`
	PlayerName  string        `json:"playerName"`
	PlayerHand  SpecialHand   `json:"playerHand"`
	PlayerValue int           `json:"playerValue"`
	PlayerCards []models.Card `json:"playerCards"`
	BetAmount   int           `json:"betAmount"`
	Result      Outcome       `json:"result"`
	WinAmount   int           `json:"winAmount"` // player's chip delta; the host's delta is the negation
	NewChips    int           `json:"newChips"`
}

// SettlementResult is the outcome of one round.
type SettlementResult struct {
	HostID    string         `json:"hostId"`
	HostName  string         `json:"hostName"`
	HostHand  SpecialHand    `json:"hostHand"`
	HostValue int            `json:"hostValue"`
	HostCards []models.Card  `json:"hostCards"`
	HostChips int            `json:"hostChips"`
	Results   []PlayerResult `json:"results"`
}

// HostDelta is the host's total chip change across all results.
func (r *SettlementResult) HostDelta() int {
	total := 0
	for _, pr := range r.Results {
		total -= pr.WinAmount
	}
	return total
}

// CalculateWinnings settles every non-host player holding a bet and at least
// one card against the host. A winner is paid bet × their own hand's
// multiplier; a loser pays only the bet, whatever the host holds. Results are
// computed before any balance moves, so an error leaves chips untouched.
//
// Afterwards the settled players' and the host's bets and locks are reset,
// which makes an immediate second call a no-op.
func (s *GameSession) CalculateWinnings(hostID string) (*SettlementResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	host, ok := s.players[hostID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	if !host.HasCards() {
		return nil, ErrHostHasNoCards
	}

	hostHand := Classify(host.Hand)
	hostValue := HandValue(host.Hand)

	type pending struct {
		player *models.Player
		result PlayerResult
	}
	var settled []pending
	for _, id := range s.order {
		p := s.players[id]
		if id == hostID || p.CurrentBet == 0 || !p.HasCards() {
			continue
		}
		hand := Classify(p.Hand)
		value := HandValue(p.Hand)
		outcome := CompareHands(hand, value, hostHand, hostValue)

		delta := 0
		switch outcome {
		case OutcomeWin:
			delta = p.CurrentBet * hand.Multiplier
		case OutcomeLose:
			delta = -p.CurrentBet
		}
		settled = append(settled, pending{player: p, result: PlayerResult{
			PlayerID:    p.ID,
			PlayerName:  p.Name,
			PlayerHand:  hand,
			PlayerValue: value,
			PlayerCards: copyCards(p.Hand),
			BetAmount:   p.CurrentBet,
			Result:      outcome,
			WinAmount:   delta,
		}})
	}

	res := &SettlementResult{
		HostID:    host.ID,
		HostName:  host.Name,
		HostHand:  hostHand,
		HostValue: hostValue,
		HostCards: copyCards(host.Hand),
		Results:   make([]PlayerResult, 0, len(settled)),
	}
	for _, st := range settled {
		st.player.Chips += st.result.WinAmount
		host.Chips -= st.result.WinAmount
		st.result.NewChips = st.player.Chips
		st.player.ResetBet()
		res.Results = append(res.Results, st.result)
	}
	host.ResetBet()
	res.HostChips = host.Chips

	s.touch()
	s.logAction(hostID, "settle", map[string]interface{}{
		"hostHand":  hostHand.Type,
		"hostValue": hostValue,
		"hostDelta": res.HostDelta(),
		"settled":   len(res.Results),
	})
	return res, nil
}
