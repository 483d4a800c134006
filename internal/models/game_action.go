package models

import (
	"math"
	"strconv"
	"strings"
)

// GameAction captures a player's inbound action, already tagged by the
// transport with the acting connection.
type GameAction struct {
	ActionType string                 `json:"action_type"`
	Payload    map[string]interface{} `json:"payload"`
}

// String reads a string field from the payload, returning "" when absent or mistyped.
func (a GameAction) String(key string) string {
	if a.Payload == nil {
		return ""
	}
	s, _ := a.Payload[key].(string)
	return s
}

// Bool reads a bool field from the payload.
func (a GameAction) Bool(key string) bool {
	if a.Payload == nil {
		return false
	}
	b, _ := a.Payload[key].(bool)
	return b
}

// Int reads a numeric field from the payload. JSON numbers decode as float64,
// and clients occasionally send numeric strings, so both are accepted.
func (a GameAction) Int(key string) (int, bool) {
	if a.Payload == nil {
		return 0, false
	}
	switch v := a.Payload[key].(type) {
	case float64:
		if v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}
