package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChessBoard_StartingPosition(t *testing.T) {
	board := NewChessBoard()

	assert.Equal(t, White, board.CurrentTurn())
	assert.False(t, board.IsTerminal())

	snap := board.Snapshot()
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", snap.FEN)
	assert.Empty(t, snap.Moves)
	assert.Equal(t, White, snap.Turn)
	assert.Equal(t, "*", snap.Outcome)
}

func TestChessBoard_ApplyMove(t *testing.T) {
	tests := []struct {
		name    string
		move    Move
		wantErr bool
	}{
		{name: "pawn double push", move: Move{From: "e2", To: "e4"}},
		{name: "knight", move: Move{From: "g1", To: "f3"}},
		{name: "uppercase squares", move: Move{From: "D2", To: "D3"}},
		{name: "blocked rook", move: Move{From: "a1", To: "a4"}, wantErr: true},
		{name: "rook through own pieces", move: Move{From: "a1", To: "a8"}, wantErr: true},
		{name: "pawn triple push", move: Move{From: "e2", To: "e5"}, wantErr: true},
		{name: "knight shape wrong", move: Move{From: "g1", To: "g3"}, wantErr: true},
		{name: "empty origin square", move: Move{From: "e4", To: "e5"}, wantErr: true},
		{name: "promotion on a non-promoting move", move: Move{From: "e2", To: "e4", Promotion: "q"}, wantErr: true},
		{name: "opponent piece", move: Move{From: "e7", To: "e5"}, wantErr: true},
		{name: "malformed square", move: Move{From: "z9", To: "e4"}, wantErr: true},
		{name: "empty", move: Move{}, wantErr: true},
		{name: "bad promotion piece", move: Move{From: "e2", To: "e4", Promotion: "k"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board := NewChessBoard()
			before := board.Snapshot()

			outcome, err := board.ApplyMove(tt.move)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrIllegalMove))
				var illegal *IllegalMoveError
				require.True(t, errors.As(err, &illegal))
				assert.NotEmpty(t, illegal.Reason)
				assert.Equal(t, before, board.Snapshot(), "board must not change on rejection")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Committed, outcome)
			assert.Equal(t, Black, board.CurrentTurn())
			assert.Len(t, board.Snapshot().Moves, 1)
		})
	}
}

func TestChessBoard_Checkmate(t *testing.T) {
	board := NewChessBoard()
	for _, mv := range []Move{
		{From: "f2", To: "f3"},
		{From: "e7", To: "e5"},
		{From: "g2", To: "g4"},
		{From: "d8", To: "h4"},
	} {
		_, err := board.ApplyMove(mv)
		require.NoError(t, err, mv.String())
	}

	assert.True(t, board.IsTerminal())
	assert.Equal(t, "0-1", board.Snapshot().Outcome)
	assert.Equal(t, []string{"f2f3", "e7e5", "g2g4", "d8h4"}, board.Snapshot().Moves)

	_, err := board.ApplyMove(Move{From: "a2", To: "a3"})
	assert.ErrorIs(t, err, ErrIllegalMove)
}

func TestChessBoard_PendingPromotion(t *testing.T) {
	board, err := NewChessBoardFromFEN("8/P7/8/8/8/8/8/k6K w - - 0 1")
	require.NoError(t, err)

	outcome, err := board.ApplyMove(Move{From: "a7", To: "a8"})
	require.NoError(t, err)
	assert.Equal(t, PendingPromotion, outcome)
	assert.Equal(t, White, board.CurrentTurn(), "pending promotion must not change the board")
	assert.Empty(t, board.Snapshot().Moves)

	outcome, err = board.ApplyMove(Move{From: "a7", To: "a8", Promotion: "q"})
	require.NoError(t, err)
	assert.Equal(t, Committed, outcome)
	assert.Equal(t, []string{"a7a8q"}, board.Snapshot().Moves)
}

func TestChessBoard_PromotionRules(t *testing.T) {
	const fen = "8/4P3/8/8/8/8/k7/4K3 w - - 0 1"

	t.Run("last rank without a piece is pending", func(t *testing.T) {
		board, err := NewChessBoardFromFEN(fen)
		require.NoError(t, err)

		outcome, err := board.ApplyMove(Move{From: "e7", To: "e8"})
		require.NoError(t, err)
		assert.Equal(t, PendingPromotion, outcome)
		assert.Equal(t, fen, board.Snapshot().FEN)
	})

	t.Run("underpromotion commits", func(t *testing.T) {
		board, err := NewChessBoardFromFEN(fen)
		require.NoError(t, err)

		outcome, err := board.ApplyMove(Move{From: "E7", To: "E8", Promotion: "N"})
		require.NoError(t, err)
		assert.Equal(t, Committed, outcome)
		assert.Equal(t, []string{"e7e8n"}, board.Snapshot().Moves)
		assert.Equal(t, Black, board.CurrentTurn())
	})

	t.Run("illegal pawn move is not pending", func(t *testing.T) {
		board, err := NewChessBoardFromFEN(fen)
		require.NoError(t, err)

		_, err = board.ApplyMove(Move{From: "e7", To: "d8"})
		assert.ErrorIs(t, err, ErrIllegalMove)
		assert.Empty(t, board.Snapshot().Moves)
	})
}

func TestMove_Normalize(t *testing.T) {
	got := Move{From: " E2", To: "E4 ", Promotion: " Q"}.Normalize()
	assert.Equal(t, Move{From: "e2", To: "e4", Promotion: "q"}, got)
}

func TestNewChessBoardFromFEN_Invalid(t *testing.T) {
	_, err := NewChessBoardFromFEN("not a fen")
	assert.Error(t, err)
}

func TestSnapshot_IsCopy(t *testing.T) {
	board := NewChessBoard()
	_, err := board.ApplyMove(Move{From: "e2", To: "e4"})
	require.NoError(t, err)

	snap := board.Snapshot()
	snap.Moves[0] = "tampered"
	assert.Equal(t, "e2e4", board.Snapshot().Moves[0])
}

func TestNewChessFactory(t *testing.T) {
	factory := NewChessFactory()
	a, b := factory(), factory()

	_, err := a.ApplyMove(Move{From: "e2", To: "e4"})
	require.NoError(t, err)
	assert.Equal(t, White, b.CurrentTurn(), "boards from one factory must be independent")
}
