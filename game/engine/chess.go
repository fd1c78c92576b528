package engine

import (
	"fmt"
	"regexp"

	nchess "github.com/corentings/chess/v2"
)

var squarePattern = regexp.MustCompile(`^[a-h][1-8]$`)

// ChessBoard implements Board with standard chess rules
type ChessBoard struct {
	game  *nchess.Game
	moves []string
}

// NewChessBoard creates a board in the standard starting position
func NewChessBoard() *ChessBoard {
	return &ChessBoard{game: nchess.NewGame(), moves: []string{}}
}

// NewChessBoardFromFEN creates a board from a FEN position
func NewChessBoardFromFEN(fen string) (*ChessBoard, error) {
	option, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("invalid FEN: %w", err)
	}
	return &ChessBoard{game: nchess.NewGame(option), moves: []string{}}, nil
}

// NewChessFactory returns a Factory producing standard boards
func NewChessFactory() Factory {
	return func() Board {
		return NewChessBoard()
	}
}

// ApplyMove applies a move given in square coordinates
func (b *ChessBoard) ApplyMove(move Move) (MoveOutcome, error) {
	move = move.Normalize()
	from, to, promo := move.From, move.To, move.Promotion

	if !squarePattern.MatchString(from) || !squarePattern.MatchString(to) {
		return Committed, &IllegalMoveError{Reason: fmt.Sprintf("malformed squares %q -> %q", from, to)}
	}
	if b.IsTerminal() {
		return Committed, &IllegalMoveError{Reason: "game is over"}
	}
	promoPiece, ok := promotionPieces[promo]
	if !ok {
		return Committed, &IllegalMoveError{Reason: fmt.Sprintf("invalid promotion piece %q", promo)}
	}

	// PushNotationMove only decodes; legality comes from the generated moves.
	if b.isValid(from, to, promoPiece) {
		uci := from + to + promo
		if err := b.game.PushNotationMove(uci, nchess.UCINotation{}, nil); err != nil {
			return Committed, &IllegalMoveError{Reason: err.Error()}
		}
		b.moves = append(b.moves, uci)
		return Committed, nil
	}

	// A pawn reaching the last rank without a piece choice is legal but incomplete.
	if promo == "" && b.isValid(from, to, nchess.Queen) {
		return PendingPromotion, nil
	}
	return Committed, &IllegalMoveError{Reason: fmt.Sprintf("%s%s%s is not legal in this position", from, to, promo)}
}

var promotionPieces = map[string]nchess.PieceType{
	"":  nchess.NoPieceType,
	"q": nchess.Queen,
	"r": nchess.Rook,
	"b": nchess.Bishop,
	"n": nchess.Knight,
}

func (b *ChessBoard) isValid(from, to string, promo nchess.PieceType) bool {
	for _, mv := range b.game.ValidMoves() {
		if mv.S1().String() == from && mv.S2().String() == to && mv.Promo() == promo {
			return true
		}
	}
	return false
}

// CurrentTurn returns the side to play
func (b *ChessBoard) CurrentTurn() Color {
	if b.game.Position().Turn() == nchess.White {
		return White
	}
	return Black
}

// IsTerminal reports checkmate, stalemate and other recorded outcomes
func (b *ChessBoard) IsTerminal() bool {
	return b.game.Outcome() != nchess.NoOutcome
}

// Snapshot returns the FEN, move list, side to play and outcome
func (b *ChessBoard) Snapshot() Snapshot {
	moves := make([]string, len(b.moves))
	copy(moves, b.moves)
	return Snapshot{
		FEN:     b.game.FEN(),
		Moves:   moves,
		Turn:    b.CurrentTurn(),
		Outcome: string(b.game.Outcome()),
	}
}
