package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/wricardo/chessbroker/game/engine"
)

// fakeBoard alternates turns on every committed move
type fakeBoard struct {
	turn     engine.Color
	terminal bool
	pending  bool
	err      error
	moves    []string
	applied  int
}

func (b *fakeBoard) ApplyMove(m engine.Move) (engine.MoveOutcome, error) {
	b.applied++
	if b.err != nil {
		return engine.Committed, b.err
	}
	if b.pending {
		return engine.PendingPromotion, nil
	}
	b.moves = append(b.moves, m.String())
	b.turn = b.turn.Opponent()
	return engine.Committed, nil
}

func (b *fakeBoard) CurrentTurn() engine.Color { return b.turn }
func (b *fakeBoard) IsTerminal() bool          { return b.terminal }
func (b *fakeBoard) Snapshot() engine.Snapshot {
	moves := make([]string, len(b.moves))
	copy(moves, b.moves)
	return engine.Snapshot{FEN: "fake", Moves: moves, Turn: b.turn, Outcome: "*"}
}

func newTestSession(t *testing.T, board engine.Board) (*Session, *Conn, *Conn) {
	t.Helper()
	white, black := NewConn("white", 10), NewConn("black", 10)
	sess, survivor, err := newSession(uuid.New(), white, black, board, 10, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Nil(t, survivor)
	require.NotNil(t, sess)
	t.Cleanup(sess.Close)
	return sess, white, black
}

func TestNewSession_SendsGameStart(t *testing.T) {
	sess, white, black := newTestSession(t, &fakeBoard{})

	assert.Equal(t, []Event{GameStart{GameID: sess.ID(), PlayerColor: engine.White}}, drain(white))
	assert.Equal(t, []Event{GameStart{GameID: sess.ID(), PlayerColor: engine.Black}}, drain(black))

	info := sess.Info()
	assert.Equal(t, "white", info.White)
	assert.Equal(t, "black", info.Black)
}

func TestNewSession_Abort(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("white unreachable returns black", func(t *testing.T) {
		white, black := NewConn("white", 10), NewConn("black", 10)
		white.Close()

		sess, survivor, err := newSession(uuid.New(), white, black, &fakeBoard{}, 10, logger)
		require.NoError(t, err)
		assert.Nil(t, sess)
		assert.Same(t, black, survivor)
		assert.Empty(t, drain(black), "survivor never saw a GameStart")
	})

	t.Run("black unreachable returns white with a notice", func(t *testing.T) {
		white, black := NewConn("white", 10), NewConn("black", 10)
		black.Close()

		sess, survivor, err := newSession(uuid.New(), white, black, &fakeBoard{}, 10, logger)
		require.NoError(t, err)
		assert.Nil(t, sess)
		assert.Same(t, white, survivor)

		events := drain(white)
		require.Len(t, events, 2)
		assert.Equal(t, "GameStart", events[0].Kind())
		assert.Equal(t, OpponentDisconnected{}, events[1])
	})

	t.Run("both unreachable", func(t *testing.T) {
		white, black := NewConn("white", 10), NewConn("black", 10)
		white.Close()
		black.Close()

		sess, survivor, err := newSession(uuid.New(), white, black, &fakeBoard{}, 10, logger)
		assert.ErrorIs(t, err, ErrAllParticipantsDisconnected)
		assert.Nil(t, sess)
		assert.Nil(t, survivor)
	})
}

func TestSession_PlayMove(t *testing.T) {
	t.Run("committed move goes to opponent then spectators", func(t *testing.T) {
		board := &fakeBoard{}
		sess, white, black := newTestSession(t, board)
		viewer, err := sess.Spectate("viewer")
		require.NoError(t, err)
		drain(white)
		drain(black)
		drain(viewer)

		outcome, err := sess.PlayMove("white", engine.Move{From: "e2", To: "e4"})
		require.NoError(t, err)
		assert.Equal(t, engine.Committed, outcome)

		want := OpponentPlayedMove{From: "e2", To: "e4"}
		assert.Equal(t, []Event{want}, drain(black))
		assert.Equal(t, []Event{want}, drain(viewer))
		assert.Empty(t, drain(white), "mover is never notified of its own move")
	})

	t.Run("promotion is relayed", func(t *testing.T) {
		sess, white, black := newTestSession(t, &fakeBoard{turn: engine.Black})
		drain(white)
		drain(black)

		_, err := sess.PlayMove("black", engine.Move{From: "a2", To: "a1", Promotion: "q"})
		require.NoError(t, err)

		events := drain(white)
		require.Len(t, events, 1)
		ev := events[0].(OpponentPlayedMove)
		require.NotNil(t, ev.PromoteTo)
		assert.Equal(t, "q", *ev.PromoteTo)
	})

	t.Run("relayed move matches the recorded move", func(t *testing.T) {
		board := &fakeBoard{}
		sess, white, black := newTestSession(t, board)
		drain(white)
		drain(black)

		_, err := sess.PlayMove("white", engine.Move{From: " E2", To: "E4 "})
		require.NoError(t, err)

		assert.Equal(t, []Event{OpponentPlayedMove{From: "e2", To: "e4"}}, drain(black))
		assert.Equal(t, []string{"e2e4"}, board.Snapshot().Moves)
	})

	t.Run("non participant", func(t *testing.T) {
		board := &fakeBoard{}
		sess, _, _ := newTestSession(t, board)

		_, err := sess.PlayMove("mallory", engine.Move{From: "e2", To: "e4"})
		assert.ErrorIs(t, err, ErrInvalidPlayer)
		assert.Zero(t, board.applied)
		assert.Empty(t, board.Snapshot().Moves)
	})

	t.Run("not your turn leaves the board untouched", func(t *testing.T) {
		board := &fakeBoard{}
		sess, white, _ := newTestSession(t, board)
		drain(white)

		_, err := sess.PlayMove("black", engine.Move{From: "e7", To: "e5"})
		assert.ErrorIs(t, err, ErrNotYourTurn)
		assert.Zero(t, board.applied)
		assert.Empty(t, drain(white))
	})

	t.Run("illegal move is surfaced unchanged", func(t *testing.T) {
		illegal := &engine.IllegalMoveError{Reason: "bishops move diagonally"}
		sess, _, black := newTestSession(t, &fakeBoard{err: illegal})
		drain(black)

		_, err := sess.PlayMove("white", engine.Move{From: "c1", To: "c3"})
		assert.Same(t, illegal, err)
		assert.ErrorIs(t, err, engine.ErrIllegalMove)
		assert.Empty(t, drain(black))
	})

	t.Run("pending promotion is not broadcast", func(t *testing.T) {
		sess, _, black := newTestSession(t, &fakeBoard{pending: true})
		drain(black)

		outcome, err := sess.PlayMove("white", engine.Move{From: "a7", To: "a8"})
		require.NoError(t, err)
		assert.Equal(t, engine.PendingPromotion, outcome)
		assert.Empty(t, drain(black))
	})
}

func TestSession_Join(t *testing.T) {
	board := &fakeBoard{}
	sess, white, black := newTestSession(t, board)
	drain(black)

	_, err := sess.PlayMove("white", engine.Move{From: "e2", To: "e4"})
	require.NoError(t, err)

	rejoined, err := sess.Join("white")
	require.NoError(t, err)
	assert.NotSame(t, white, rejoined)
	assert.True(t, white.Closed(), "replaced connection is discarded")

	events := drain(rejoined)
	require.Len(t, events, 1)
	assert.Equal(t, RejoinedGame{GameID: sess.ID(), PlayerColor: engine.White, Board: board.Snapshot()}, events[0])

	_, err = sess.PlayMove("black", engine.Move{From: "e7", To: "e5"})
	require.NoError(t, err)
	assert.Equal(t, []Event{OpponentPlayedMove{From: "e7", To: "e5"}}, drain(rejoined))

	t.Run("unknown player", func(t *testing.T) {
		_, err := sess.Join("mallory")
		assert.ErrorIs(t, err, ErrInvalidPlayer)
	})
}

func TestSession_CheckStaleness(t *testing.T) {
	t.Run("both alive", func(t *testing.T) {
		sess, white, black := newTestSession(t, &fakeBoard{})
		listen(t, white)
		listen(t, black)

		assert.False(t, sess.CheckStaleness(testProbeTimeout))
		assert.False(t, sess.CheckStaleness(testProbeTimeout))
	})

	t.Run("terminal board", func(t *testing.T) {
		sess, white, black := newTestSession(t, &fakeBoard{terminal: true})
		listen(t, white)
		listen(t, black)

		assert.True(t, sess.CheckStaleness(testProbeTimeout))
		assert.True(t, sess.CheckStaleness(testProbeTimeout))
	})

	t.Run("both unreachable", func(t *testing.T) {
		sess, white, black := newTestSession(t, &fakeBoard{})
		white.Close()
		black.Close()

		assert.True(t, sess.CheckStaleness(testProbeTimeout))
		assert.True(t, sess.CheckStaleness(testProbeTimeout))
	})

	t.Run("one side unreachable notifies once", func(t *testing.T) {
		sess, white, black := newTestSession(t, &fakeBoard{})
		bl := listen(t, black)
		white.Close()

		assert.False(t, sess.CheckStaleness(testProbeTimeout))
		assert.False(t, sess.CheckStaleness(testProbeTimeout))

		events := bl.waitFor(t, 2)
		assert.Equal(t, 1, countKind(events, "OpponentDisconnected"))
	})

	t.Run("silent peer is treated as dead", func(t *testing.T) {
		sess, _, black := newTestSession(t, &fakeBoard{})
		bl := listen(t, black)
		// white has no listener so its probe times out

		assert.False(t, sess.CheckStaleness(testProbeTimeout))
		events := bl.waitFor(t, 2)
		assert.Equal(t, OpponentDisconnected{}, events[len(events)-1])
	})

	t.Run("dead spectators are pruned and never block", func(t *testing.T) {
		sess, white, black := newTestSession(t, &fakeBoard{})
		listen(t, white)
		listen(t, black)

		alive, err := sess.Spectate("alive")
		require.NoError(t, err)
		listen(t, alive)
		dead, err := sess.Spectate("dead")
		require.NoError(t, err)
		dead.Close()

		assert.False(t, sess.CheckStaleness(testProbeTimeout))
		assert.Equal(t, 1, sess.Info().Spectators)
	})

	t.Run("rejoin resets the notice", func(t *testing.T) {
		sess, white, black := newTestSession(t, &fakeBoard{})
		bl := listen(t, black)
		white.Close()

		assert.False(t, sess.CheckStaleness(testProbeTimeout))
		bl.waitFor(t, 2)

		rejoined, err := sess.Join("white")
		require.NoError(t, err)
		listen(t, rejoined)
		assert.False(t, sess.CheckStaleness(testProbeTimeout))

		rejoined.Close()
		assert.False(t, sess.CheckStaleness(testProbeTimeout))
		events := bl.waitFor(t, 3)
		assert.Equal(t, 2, countKind(events, "OpponentDisconnected"))
	})
}

func TestSession_Close(t *testing.T) {
	sess, white, black := newTestSession(t, &fakeBoard{})
	viewer, err := sess.Spectate("viewer")
	require.NoError(t, err)

	sess.Close()
	assert.True(t, white.Closed())
	assert.True(t, black.Closed())
	assert.True(t, viewer.Closed())
}
