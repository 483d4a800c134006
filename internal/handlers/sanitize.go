// internal/handlers/sanitize.go
package handlers

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	jsProtocol       = regexp.MustCompile(`(?i)javascript:`)
	inlineHandler    = regexp.MustCompile(`(?i)on\w+=`)
	sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,64}$`)

	ErrInvalidSessionID = errors.New("invalid session id")
	ErrEmptyMessage     = errors.New("message cannot be empty")
)

// sanitizeInput strips angle brackets, javascript: URLs and inline event
// handler attributes, then trims whitespace.
func sanitizeInput(s string) string {
	s = strings.NewReplacer("<", "", ">", "").Replace(s)
	s = jsProtocol.ReplaceAllString(s, "")
	s = inlineHandler.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Validator enforces the transport's length limits, all counted in runes.
type Validator struct {
	NameMin int
	NameMax int
	ChatMax int
}

// Name cleans a display name. An empty input is allowed and returns "" so
// the caller can substitute a default name.
func (v Validator) Name(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	name := sanitizeInput(raw)
	if n := utf8.RuneCountInString(name); n < v.NameMin || n > v.NameMax {
		return "", fmt.Errorf("player name must be %d-%d characters", v.NameMin, v.NameMax)
	}
	return name, nil
}

// Chat cleans a chat message.
func (v Validator) Chat(raw string) (string, error) {
	msg := sanitizeInput(raw)
	if msg == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(msg) > v.ChatMax {
		return "", fmt.Errorf("message too long (max %d characters)", v.ChatMax)
	}
	return msg, nil
}

// validSessionID accepts the ids clients may request. Empty means "create one".
func validSessionID(id string) bool {
	return id == "" || sessionIDPattern.MatchString(id)
}
