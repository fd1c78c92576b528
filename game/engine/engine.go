package engine

// Board is the move-legality collaborator owned by a live session.
// Implementations are not safe for concurrent use; callers serialize access.
type Board interface {
	// ApplyMove validates and applies a move for the side to play.
	// Rejected moves return an *IllegalMoveError and leave the board unchanged.
	ApplyMove(move Move) (MoveOutcome, error)

	// CurrentTurn returns the side to play
	CurrentTurn() Color

	// IsTerminal reports whether the game has an outcome
	IsTerminal() bool

	// Snapshot returns a copy of the current board state
	Snapshot() Snapshot
}

// Factory builds a fresh board for a new session
type Factory func() Board
