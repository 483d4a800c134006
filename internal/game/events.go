// internal/game/events.go
package game

// EventType names an outbound message.
type EventType string

const (
	EventSessionJoined EventType = "session_joined"
	EventPlayerJoined  EventType = "player_joined"
	EventPlayerLeft    EventType = "player_left"
	EventHostChanged   EventType = "host_changed"
	EventChat          EventType = "chat"
	EventCards         EventType = "cards" // private: initial two-card hand
	EventCard3         EventType = "card3" // private: third card after a hit
	EventShuffle       EventType = "shuffle"
	EventBetPlaced     EventType = "bet_placed"
	EventBetsLocked    EventType = "bets_locked"
	EventGameResults   EventType = "game_results"
	EventSessionStats  EventType = "session_stats"
	EventError         EventType = "error"
)

// Event is the JSON frame delivered to clients.
type Event struct {
	Type    EventType              `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Target says who an Envelope is for.
type Target int

const (
	// TargetPlayer delivers to a single connection.
	TargetPlayer Target = iota
	// TargetSession delivers to every connection seated in the session.
	TargetSession
)

func (t Target) String() string {
	if t == TargetSession {
		return "session"
	}
	return "player"
}

// Envelope pairs an Event with its delivery target.
type Envelope struct {
	Target    Target
	PlayerID  string // set for TargetPlayer
	SessionID string // set for TargetSession
	Exclude   string // optional connection skipped by a TargetSession delivery
	Event     Event
}

func toPlayer(playerID string, typ EventType, payload map[string]interface{}) Envelope {
	return Envelope{Target: TargetPlayer, PlayerID: playerID, Event: Event{Type: typ, Payload: payload}}
}

func toSession(sessionID string, typ EventType, payload map[string]interface{}) Envelope {
	return Envelope{Target: TargetSession, SessionID: sessionID, Event: Event{Type: typ, Payload: payload}}
}

func toOthers(sessionID, exclude string, typ EventType, payload map[string]interface{}) Envelope {
	env := toSession(sessionID, typ, payload)
	env.Exclude = exclude
	return env
}

// systemChat builds a chat payload from the table itself.
func systemChat(msg string) map[string]interface{} {
	return map[string]interface{}{"username": "System", "message": msg}
}
