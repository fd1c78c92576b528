// Package engine defines the board collaborator used by live chess sessions.
//
// The broker never inspects board internals. It only needs to know whose turn
// it is, whether the game is over, how to apply a move and how to describe the
// board to a reconnecting player. Those four operations form the Board
// interface.
//
// Core Types:
//
// Board is the contract. ChessBoard implements it with standard chess rules
// on top of github.com/corentings/chess/v2. Move describes a move request in
// square coordinates ("e2" to "e4", optional promotion piece). MoveOutcome
// distinguishes a committed move from a pawn push that still needs a
// promotion choice. Rejected moves are reported as *IllegalMoveError, which
// matches ErrIllegalMove with errors.Is.
//
// Usage:
//
//	board := engine.NewChessBoard()
//
//	outcome, err := board.ApplyMove(engine.Move{From: "e2", To: "e4"})
//	if errors.Is(err, engine.ErrIllegalMove) {
//		// reject the request
//	}
//
//	snap := board.Snapshot()
//	fmt.Println(snap.FEN, snap.Turn)
package engine
