package session

import "errors"

var (
	ErrInvalidSessionID            = errors.New("invalid session ID")
	ErrInvalidPlayer               = errors.New("player is not a participant of this session")
	ErrNotYourTurn                 = errors.New("not your turn")
	ErrAllParticipantsDisconnected = errors.New("all participants disconnected")

	// Connection level failures. Callers treat both as a disconnect.
	ErrConnClosed = errors.New("connection closed")
	ErrConnFull   = errors.New("connection buffer full")
)
