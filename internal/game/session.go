// internal/game/session.go
package game

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pokdeng/internal/cache"
	"github.com/jason-s-yu/pokdeng/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	// MaxHandSize is the most cards a player may hold.
	MaxHandSize = 3

	// MaxNameLength bounds display names, in runes.
	MaxNameLength = 20

	// MaxBet keeps bet × the largest hand multiplier within int.
	MaxBet = math.MaxInt32 / MaxMultiplier

	// DefaultSessionTTL is how long a session may sit idle before cleanup purges it.
	DefaultSessionTTL = time.Hour
)

// ActionRecorder receives a record of every state transition for the historian.
// Implementations must be safe for concurrent use.
type ActionRecorder interface {
	PublishAction(ctx context.Context, rec cache.ActionRecord) error
}

// HostInfo identifies the current host, if any.
type HostInfo struct {
	HostID   string `json:"hostId"`
	HostName string `json:"hostName"`
}

// DealResult is returned by DealInitialCards.
type DealResult struct {
	Cards          []models.Card `json:"cards"`
	HandValue      int           `json:"handValue"`
	SpecialHand    SpecialHand   `json:"specialHand"`
	RemainingCards int           `json:"remainingCards"`

	// Reshuffled is set when the shoe ran short and every hand at the table was cleared first.
	Reshuffled bool `json:"-"`
}

// HitResult is returned by HitCard.
type HitResult struct {
	Card           models.Card   `json:"card"`
	AllCards       []models.Card `json:"allCards"`
	HandValue      int           `json:"handValue"`
	SpecialHand    SpecialHand   `json:"specialHand"`
	RemainingCards int           `json:"remainingCards"`
	Reshuffled     bool          `json:"-"`
}

// BetResult is returned by PlaceBet.
type BetResult struct {
	PlayerID       string `json:"playerId"`
	PlayerName     string `json:"playerName"`
	BetAmount      int    `json:"betAmount"`
	RemainingChips int    `json:"remainingChips"`
}

// PlayerSummary is the broadcast-safe view of a player: no raw cards.
type PlayerSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CardCount  int    `json:"cardCount"`
	HandValue  int    `json:"handValue"`
	IsActive   bool   `json:"isActive"`
	IsHost     bool   `json:"isHost"`
	Chips      int    `json:"chips"`
	CurrentBet int    `json:"currentBet"`
}

// SessionStats is a read-only snapshot of a session.
type SessionStats struct {
	SessionID      string          `json:"sessionId"`
	PlayerCount    int             `json:"playerCount"`
	RemainingCards int             `json:"remainingCards"`
	CreatedAt      time.Time       `json:"createdAt"`
	LastActivity   time.Time       `json:"lastActivity"`
	HostInfo       HostInfo        `json:"hostInfo"`
	Players        []PlayerSummary `json:"players"`
}

// GameSession is one table's live state. Every exported method takes the
// session lock for its whole duration and none of them perform I/O, so
// callers must not hold other session locks while calling in.
type GameSession struct {
	ID           string
	InstanceID   string // unique per lifetime; a recreated session id gets a new one
	CreatedAt    time.Time
	lastActivity time.Time

	mu      sync.Mutex
	players map[string]*models.Player
	order   []string // join order; host succession picks the earliest remaining player
	hostID  string
	shoe    *Shoe

	rng         *rand.Rand
	now         func() time.Time
	ttl         time.Duration
	recorder    ActionRecorder
	actionIndex int
	log         logrus.FieldLogger
}

// SessionOption customizes a GameSession at construction.
type SessionOption func(*GameSession)

// WithRand injects the shuffle source. The session owns it from then on.
func WithRand(r *rand.Rand) SessionOption {
	return func(s *GameSession) { s.rng = r }
}

// WithClock overrides time.Now, for expiry tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *GameSession) { s.now = now }
}

// WithTTL sets the idle threshold used by IsExpired.
func WithTTL(ttl time.Duration) SessionOption {
	return func(s *GameSession) { s.ttl = ttl }
}

// WithRecorder sets where action records are published.
func WithRecorder(rec ActionRecorder) SessionOption {
	return func(s *GameSession) { s.recorder = rec }
}

// WithLogger sets the session logger.
func WithLogger(l logrus.FieldLogger) SessionOption {
	return func(s *GameSession) { s.log = l }
}

// NewGameSession builds an empty session with a freshly shuffled shoe.
func NewGameSession(id string, opts ...SessionOption) *GameSession {
	s := &GameSession{
		ID:         id,
		InstanceID: uuid.NewString(),
		players:    make(map[string]*models.Player),
		now:        time.Now,
		ttl:        DefaultSessionTTL,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = newRand()
	}
	s.log = s.log.WithField("session", id)
	s.CreatedAt = s.now()
	s.lastActivity = s.CreatedAt
	s.shoe = NewShoe(s.rng)
	return s
}

// validateName enforces the core's only constraint on display names:
// non-empty after trimming and at most MaxNameLength runes.
func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// AddPlayer seats a new player with zero chips and no cards or bet. The player
// becomes host if the table has none or wasHost is set (a reconnecting host
// reclaiming the bank).
func (s *GameSession) AddPlayer(id, name, userID string, wasHost bool) error {
	name, err := validateName(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.players[id]; !exists {
		s.order = append(s.order, id)
	}
	s.players[id] = &models.Player{
		ID:       id,
		Name:     name,
		UserID:   userID,
		JoinedAt: s.now(),
		IsActive: true,
		WasHost:  wasHost,
	}
	if s.hostID == "" || wasHost {
		s.hostID = id
	}
	s.touch()
	s.logAction(id, "player_add", map[string]interface{}{"name": name, "wasHost": wasHost})
	return nil
}

// RemovePlayer drops a player. If they held the bank, the earliest-joined
// remaining player becomes host, or nobody if the table is now empty.
// Returns the resulting host and whether it changed.
func (s *GameSession) RemovePlayer(id string) (HostInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[id]; !ok {
		return s.hostInfo(), false
	}
	delete(s.players, id)
	for i, pid := range s.order {
		if pid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	changed := false
	if s.hostID == id {
		s.hostID = ""
		if len(s.order) > 0 {
			s.hostID = s.order[0]
		}
		changed = true
	}
	s.touch()
	s.logAction(id, "player_remove", map[string]interface{}{"newHost": s.hostID})
	return s.hostInfo(), changed
}

// DealInitialCards gives a player their two starting cards. A player who
// already holds cards gets their existing hand back unchanged, so a replayed
// deal is harmless. If fewer than two cards remain the whole table is
// reshuffled first, which clears every other player's hand too.
func (s *GameSession) DealInitialCards(id string) (*DealResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deal(id)
}

// DealAndLockBets deals to a player and locks every nonzero bet in one step,
// so no other action on the session can land between the two.
func (s *GameSession) DealAndLockBets(id string) (*DealResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.deal(id)
	if err != nil {
		return nil, err
	}
	s.lockAllBets()
	return res, nil
}

// deal assumes the lock is held.
func (s *GameSession) deal(id string) (*DealResult, error) {
	p, ok := s.players[id]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	if p.HasCards() {
		return &DealResult{
			Cards:          copyCards(p.Hand),
			HandValue:      HandValue(p.Hand),
			SpecialHand:    Classify(p.Hand),
			RemainingCards: s.shoe.Remaining(),
		}, nil
	}

	reshuffled := false
	if s.shoe.Remaining() < 2 {
		s.reshuffle()
		reshuffled = true
	}
	cards, err := s.shoe.Draw(2)
	if err != nil {
		// unreachable after the reshuffle above
		return nil, err
	}
	p.Hand = cards
	s.touch()

	res := &DealResult{
		Cards:          copyCards(cards),
		HandValue:      HandValue(cards),
		SpecialHand:    Classify(cards),
		RemainingCards: s.shoe.Remaining(),
		Reshuffled:     reshuffled,
	}
	s.logAction(id, "deal", map[string]interface{}{
		"cards":      cardCodes(cards),
		"handValue":  res.HandValue,
		"special":    res.SpecialHand.Type,
		"reshuffled": reshuffled,
	})
	return res, nil
}

// HitCard draws one more card for a player holding fewer than three.
// An empty shoe is reshuffled first, with the same table-wide clearing as a deal.
func (s *GameSession) HitCard(id string) (*HitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[id]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	if len(p.Hand) >= MaxHandSize {
		return nil, ErrMaxCardsReached
	}

	reshuffled := false
	if s.shoe.Remaining() < 1 {
		s.reshuffle()
		reshuffled = true
	}
	drawn, err := s.shoe.Draw(1)
	if err != nil {
		return nil, err
	}
	p.Hand = append(p.Hand, drawn[0])
	s.touch()

	res := &HitResult{
		Card:           drawn[0],
		AllCards:       copyCards(p.Hand),
		HandValue:      HandValue(p.Hand),
		SpecialHand:    Classify(p.Hand),
		RemainingCards: s.shoe.Remaining(),
		Reshuffled:     reshuffled,
	}
	s.logAction(id, "hit", map[string]interface{}{
		"card":       drawn[0].String(),
		"handValue":  res.HandValue,
		"special":    res.SpecialHand.Type,
		"reshuffled": reshuffled,
	})
	return res, nil
}

// ReshuffleDeck replaces the shoe and clears every hand and bet lock.
// Bets themselves stay; only settlement clears them. Returns the new shoe size.
func (s *GameSession) ReshuffleDeck() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reshuffle()
	return s.shoe.Remaining()
}

// reshuffle assumes the lock is held.
func (s *GameSession) reshuffle() {
	s.shoe = NewShoe(s.rng)
	for _, p := range s.players {
		p.ClearHand()
	}
	s.touch()
	s.log.Debug("Reshuffled shoe and cleared all hands")
	s.logAction("", "reshuffle", map[string]interface{}{"remainingCards": s.shoe.Remaining()})
}

// PlaceBet sets or overwrites a player's unlocked bet, between 1 and MaxBet.
// Chips are not checked and balances may be negative.
func (s *GameSession) PlaceBet(id string, amount int) (*BetResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[id]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	if amount <= 0 || amount > MaxBet {
		return nil, ErrInvalidBetAmount
	}
	if p.BetLocked {
		return nil, ErrBetLocked
	}
	p.CurrentBet = amount
	s.touch()
	s.logAction(id, "place_bet", map[string]interface{}{"amount": amount})

	return &BetResult{
		PlayerID:       id,
		PlayerName:     p.Name,
		BetAmount:      amount,
		RemainingChips: p.Chips,
	}, nil
}

// LockAllBets locks every nonzero bet. Safe to call repeatedly.
func (s *GameSession) LockAllBets() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockAllBets()
}

func (s *GameSession) lockAllBets() {
	for _, p := range s.players {
		if p.CurrentBet > 0 {
			p.BetLocked = true
		}
	}
	s.touch()
	s.logAction("", "lock_bets", nil)
}

// ChangeHost hands the bank to any seated player. No approval step.
func (s *GameSession) ChangeHost(newHostID string) (HostInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[newHostID]; !ok {
		return HostInfo{}, ErrPlayerNotFound
	}
	s.hostID = newHostID
	s.touch()
	s.logAction(newHostID, "change_host", nil)
	return s.hostInfo(), nil
}

// IsHost reports whether id currently holds the bank.
func (s *GameSession) IsHost(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostID != "" && s.hostID == id
}

// HostInfo returns the current host.
func (s *GameSession) HostInfo() HostInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostInfo()
}

func (s *GameSession) hostInfo() HostInfo {
	info := HostInfo{HostID: s.hostID}
	if p, ok := s.players[s.hostID]; ok {
		info.HostName = p.Name
	}
	return info
}

// Player returns a copy of a seated player.
func (s *GameSession) Player(id string) (models.Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return models.Player{}, false
	}
	cp := *p
	cp.Hand = copyCards(p.Hand)
	return cp, true
}

// PlayerIDs returns the roster in join order.
func (s *GameSession) PlayerIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// PlayerCount is the roster size.
func (s *GameSession) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// RemainingCards is the number of undealt cards in the shoe.
func (s *GameSession) RemainingCards() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shoe.Remaining()
}

// Stats snapshots the session for broadcast: hand sizes and values, never raw cards.
func (s *GameSession) Stats() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := SessionStats{
		SessionID:      s.ID,
		PlayerCount:    len(s.players),
		RemainingCards: s.shoe.Remaining(),
		CreatedAt:      s.CreatedAt,
		LastActivity:   s.lastActivity,
		HostInfo:       s.hostInfo(),
		Players:        make([]PlayerSummary, 0, len(s.order)),
	}
	for _, id := range s.order {
		p := s.players[id]
		stats.Players = append(stats.Players, PlayerSummary{
			ID:         p.ID,
			Name:       p.Name,
			CardCount:  len(p.Hand),
			HandValue:  HandValue(p.Hand),
			IsActive:   p.IsActive,
			IsHost:     p.ID == s.hostID,
			Chips:      p.Chips,
			CurrentBet: p.CurrentBet,
		})
	}
	return stats
}

// IsExpired reports whether the session has been idle longer than its TTL.
func (s *GameSession) IsExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Sub(s.lastActivity) > s.ttl
}

// LastActivity returns the time of the last state change.
func (s *GameSession) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// end records the session's teardown. Called by the registry as it drops
// the session.
func (s *GameSession) end(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logAction("", cache.ActionSessionEnd, map[string]interface{}{"reason": reason})
}

// touch assumes the lock is held.
func (s *GameSession) touch() {
	s.lastActivity = s.now()
}

// logAction hands a record to the recorder on its own goroutine so the
// session lock is never held across the network call. Assumes lock is held.
func (s *GameSession) logAction(actorID, actionType string, payload map[string]interface{}) {
	s.actionIndex++
	if s.recorder == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	rec := cache.ActionRecord{
		SessionID:     s.ID,
		InstanceID:    s.InstanceID,
		ActionIndex:   s.actionIndex,
		ActorID:       actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     s.now().UnixMilli(),
	}
	go func(rec cache.ActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.recorder.PublishAction(ctx, rec); err != nil {
			s.log.WithError(err).Warnf("Failed to publish action %d (%s)", rec.ActionIndex, rec.ActionType)
		}
	}(rec)
}

func copyCards(cards []models.Card) []models.Card {
	if cards == nil {
		return nil
	}
	out := make([]models.Card, len(cards))
	copy(out, cards)
	return out
}

func cardCodes(cards []models.Card) []string {
	codes := make([]string, len(cards))
	for i, c := range cards {
		codes[i] = c.String()
	}
	return codes
}
