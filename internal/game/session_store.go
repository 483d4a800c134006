// internal/game/session_store.go
package game

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Reasons a session is torn down, recorded with its final action.
const (
	EndReasonEmpty   = "empty"
	EndReasonExpired = "expired"
)

// SessionRegistry owns every live GameSession and the player -> session index.
// Its lock guards only the two maps; gameplay runs under each session's own
// lock, always acquired after (never while waiting on) the registry lock.
type SessionRegistry struct {
	mu             sync.Mutex
	sessions       map[string]*GameSession
	playerSessions map[string]string

	ttl      time.Duration
	now      func() time.Time
	newRand  func() *rand.Rand
	recorder ActionRecorder
	log      logrus.FieldLogger
}

// RegistryOption customizes a SessionRegistry.
type RegistryOption func(*SessionRegistry)

// WithSessionTTL sets the idle threshold handed to every new session.
func WithSessionTTL(ttl time.Duration) RegistryOption {
	return func(r *SessionRegistry) { r.ttl = ttl }
}

// WithRegistryClock overrides time.Now for the registry and its sessions.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *SessionRegistry) { r.now = now }
}

// WithRandFactory sets how each new session gets its shuffle source.
func WithRandFactory(f func() *rand.Rand) RegistryOption {
	return func(r *SessionRegistry) { r.newRand = f }
}

// WithActionRecorder wires the historian queue into every new session.
func WithActionRecorder(rec ActionRecorder) RegistryOption {
	return func(r *SessionRegistry) { r.recorder = rec }
}

// WithRegistryLogger sets the logger used by the registry and its sessions.
func WithRegistryLogger(l logrus.FieldLogger) RegistryOption {
	return func(r *SessionRegistry) { r.log = l }
}

// NewSessionRegistry returns an empty registry.
func NewSessionRegistry(opts ...RegistryOption) *SessionRegistry {
	r := &SessionRegistry{
		sessions:       make(map[string]*GameSession),
		playerSessions: make(map[string]string),
		ttl:            DefaultSessionTTL,
		now:            time.Now,
		newRand:        newRand,
		log:            logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LeaveResult describes what a departure did to its session.
type LeaveResult struct {
	SessionID      string
	Session        *GameSession // nil when the player was not seated anywhere
	SessionRemoved bool
	Host           HostInfo
	HostChanged    bool
}

// JoinResult is returned by JoinSession.
type JoinResult struct {
	Session *GameSession
	Created bool

	// Left is set when the player was moved out of another session first.
	Left *LeaveResult
}

// JoinSession seats a player, first removing them from any session they
// occupy. An empty or unknown sessionID creates a new session (with a fresh
// random id when none is given).
func (r *SessionRegistry) JoinSession(sessionID, playerID, name, userID string, wasHost bool) (*JoinResult, error) {
	if _, err := validateName(name); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	res := &JoinResult{}
	if left := r.leaveLocked(playerID); left.Session != nil {
		res.Left = left
	}

	session, ok := r.sessions[sessionID]
	if sessionID == "" || !ok {
		if sessionID == "" {
			sessionID = r.generateSessionID()
		}
		session = r.newSession(sessionID)
		r.sessions[sessionID] = session
		res.Created = true
		r.log.WithField("session", sessionID).Info("Session created")
	}

	if err := session.AddPlayer(playerID, name, userID, wasHost); err != nil {
		if res.Created {
			delete(r.sessions, sessionID)
		}
		return nil, err
	}
	r.playerSessions[playerID] = sessionID
	res.Session = session

	r.log.WithFields(logrus.Fields{
		"session": sessionID,
		"player":  playerID,
		"name":    name,
		"players": session.PlayerCount(),
	}).Info("Player joined session")
	return res, nil
}

// LeaveSession removes a player from their session, deleting the session once
// its roster is empty. The index entry is cleared either way.
func (r *SessionRegistry) LeaveSession(playerID string) *LeaveResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(playerID)
}

// leaveLocked assumes r.mu is held.
func (r *SessionRegistry) leaveLocked(playerID string) *LeaveResult {
	res := &LeaveResult{}
	sessionID, indexed := r.playerSessions[playerID]
	delete(r.playerSessions, playerID)
	if !indexed {
		return res
	}
	session, ok := r.sessions[sessionID]
	if !ok {
		return res
	}

	res.SessionID = sessionID
	res.Session = session
	res.Host, res.HostChanged = session.RemovePlayer(playerID)
	if session.PlayerCount() == 0 {
		delete(r.sessions, sessionID)
		res.SessionRemoved = true
		session.end(EndReasonEmpty)
		r.log.WithField("session", sessionID).Info("Session removed (empty)")
	}
	return res
}

// GetPlayerSession returns the session a player is seated in.
func (r *SessionRegistry) GetPlayerSession(playerID string) (*GameSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessionID, ok := r.playerSessions[playerID]
	if !ok {
		return nil, false
	}
	s, ok := r.sessions[sessionID]
	return s, ok
}

// GetSession looks a session up by id.
func (r *SessionRegistry) GetSession(sessionID string) (*GameSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

// CleanupExpiredSessions drops every session idle past its TTL, unindexing
// all of its members. Returns the removed session ids.
func (r *SessionRegistry) CleanupExpiredSessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for id, session := range r.sessions {
		if !session.IsExpired() {
			continue
		}
		for _, pid := range session.PlayerIDs() {
			if r.playerSessions[pid] == id {
				delete(r.playerSessions, pid)
			}
		}
		delete(r.sessions, id)
		session.end(EndReasonExpired)
		removed = append(removed, id)
		r.log.WithField("session", id).Info("Session expired and cleaned up")
	}
	sort.Strings(removed)
	return removed
}

// RunCleanup sweeps expired sessions every interval until ctx is done.
func (r *SessionRegistry) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := r.CleanupExpiredSessions(); len(removed) > 0 {
				r.log.WithField("count", len(removed)).Info("Expired sessions purged")
			}
		}
	}
}

// AllSessions snapshots every live session, ordered by id.
func (r *SessionRegistry) AllSessions() []SessionStats {
	r.mu.Lock()
	sessions := make([]*GameSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	stats := make([]SessionStats, 0, len(sessions))
	for _, s := range sessions {
		stats = append(stats, s.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].SessionID < stats[j].SessionID })
	return stats
}

// Counts returns the number of live sessions and seated players.
func (r *SessionRegistry) Counts() (sessions, players int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions), len(r.playerSessions)
}

// newSession assumes r.mu is held.
func (r *SessionRegistry) newSession(id string) *GameSession {
	opts := []SessionOption{
		WithRand(r.newRand()),
		WithClock(r.now),
		WithTTL(r.ttl),
		WithLogger(r.log),
	}
	if r.recorder != nil {
		opts = append(opts, WithRecorder(r.recorder))
	}
	return NewGameSession(id, opts...)
}

// generateSessionID returns a random id unused by any live session.
// Assumes r.mu is held.
func (r *SessionRegistry) generateSessionID() string {
	for {
		id := strings.ReplaceAll(uuid.NewString(), "-", "")
		if _, taken := r.sessions[id]; !taken {
			return id
		}
	}
}
