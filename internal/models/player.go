package models

import "time"

// Player is a seat at a Pokdeng table, keyed by the connection id.
type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	UserID   string    `json:"userId,omitempty"` // optional client-persisted identity, echoed back on rejoin
	JoinedAt time.Time `json:"joinedAt"`
	IsActive bool      `json:"isActive"`
	WasHost  bool      `json:"-"`

	// Hand holds 0-3 cards in draw order. Cleared on reshuffle.
	Hand []Card `json:"-"`

	// Chips may go negative; no solvency floor is enforced.
	Chips      int  `json:"chips"`
	CurrentBet int  `json:"currentBet"`
	BetLocked  bool `json:"betLocked"`
}

// HasCards reports whether the player currently holds any cards.
func (p *Player) HasCards() bool {
	return len(p.Hand) > 0
}

// ClearHand drops the player's cards and bet lock. The bet itself survives.
func (p *Player) ClearHand() {
	p.Hand = nil
	p.BetLocked = false
}

// ResetBet clears the bet and its lock after settlement.
func (p *Player) ResetBet() {
	p.CurrentBet = 0
	p.BetLocked = false
}
