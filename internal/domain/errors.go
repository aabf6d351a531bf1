package domain

import "errors"

var (
	// ErrSessionNotFound is returned for unknown or evicted game codes.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrInvalidPlayer is returned when a player slot is outside 1..players.
	ErrInvalidPlayer = errors.New("invalid player slot")
	// ErrDuplicateAnswer indicates the player already answered this question.
	ErrDuplicateAnswer = errors.New("answer already recorded")
	// ErrSessionNotStarted is returned when question content is requested before start.
	ErrSessionNotStarted = errors.New("game has not started")
	// ErrSessionNotRunning is returned when answers arrive outside a running game.
	ErrSessionNotRunning = errors.New("game is not running")
	// ErrStaleQuestion indicates an answer for a question other than the current one.
	ErrStaleQuestion = errors.New("question is not the current question")
	// ErrLevelNotFound indicates the catalog has no questions for a level.
	ErrLevelNotFound = errors.New("level not found")
	// ErrInvalidCatalog indicates malformed catalog content.
	ErrInvalidCatalog = errors.New("invalid catalog")
	// ErrCodesExhausted is returned when no free game code could be drawn.
	ErrCodesExhausted = errors.New("no free game code available")
)
