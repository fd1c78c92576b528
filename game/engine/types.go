package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Color identifies a side of the board
type Color int

const (
	White Color = iota
	Black
)

// Opponent returns the other side
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	switch c {
	case White:
		return "White"
	case Black:
		return "Black"
	default:
		return fmt.Sprintf("Color(%d)", int(c))
	}
}

// MarshalJSON encodes the color as "White" or "Black"
func (c Color) MarshalJSON() ([]byte, error) {
	if c != White && c != Black {
		return nil, fmt.Errorf("invalid color %d", int(c))
	}
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts "White" or "Black"
func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseColor converts a color name into a Color
func ParseColor(s string) (Color, error) {
	switch s {
	case "White", "white", "w":
		return White, nil
	case "Black", "black", "b":
		return Black, nil
	}
	return White, fmt.Errorf("unknown color %q", s)
}

// Move is a single move request expressed in square coordinates.
// Promotion is empty unless a pawn reaches the last rank.
type Move struct {
	From      string `json:"from" form:"from"`
	To        string `json:"to" form:"to"`
	Promotion string `json:"promote_to,omitempty" form:"promote_to"`
}

// Normalize trims and lowercases every field
func (m Move) Normalize() Move {
	return Move{
		From:      strings.ToLower(strings.TrimSpace(m.From)),
		To:        strings.ToLower(strings.TrimSpace(m.To)),
		Promotion: strings.ToLower(strings.TrimSpace(m.Promotion)),
	}
}

func (m Move) String() string {
	return m.From + m.To + m.Promotion
}

// MoveOutcome is the result of a move the board accepted
type MoveOutcome int

const (
	// Committed means the board state changed and the move must be broadcast.
	Committed MoveOutcome = iota
	// PendingPromotion means the move needs a promotion piece; nothing changed.
	PendingPromotion
)

func (o MoveOutcome) String() string {
	if o == PendingPromotion {
		return "pending_promotion"
	}
	return "committed"
}

// ErrIllegalMove is matched by every IllegalMoveError
var ErrIllegalMove = errors.New("illegal move")

// IllegalMoveError carries the board engine's reason for rejecting a move
type IllegalMoveError struct {
	Reason string
}

func (e *IllegalMoveError) Error() string {
	return "illegal move: " + e.Reason
}

// Is reports ErrIllegalMove as a match
func (e *IllegalMoveError) Is(target error) bool {
	return target == ErrIllegalMove
}

// Snapshot is the serializable view of a board
type Snapshot struct {
	FEN     string   `json:"fen"`
	Moves   []string `json:"moves"`
	Turn    Color    `json:"turn"`
	Outcome string   `json:"outcome"`
}
