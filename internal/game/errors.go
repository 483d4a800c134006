// internal/game/errors.go
package game

import "errors"

var (
	ErrPlayerNotFound   = errors.New("player not found in session")
	ErrShoeExhausted    = errors.New("not enough cards left in the shoe")
	ErrInvalidBetAmount = errors.New("invalid bet amount")
	ErrBetLocked        = errors.New("bet already locked")
	ErrMaxCardsReached  = errors.New("player already has maximum cards")
	ErrHostHasNoCards   = errors.New("host has no cards")
	ErrSessionNotFound  = errors.New("you must join a game session first")
	ErrNotHost          = errors.New("only the host can do that")
	ErrInvalidName      = errors.New("invalid player name")
	ErrUnknownAction    = errors.New("unknown action")
)
