package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/chessbroker/game/engine"
	"github.com/wricardo/chessbroker/game/service"
	"github.com/wricardo/chessbroker/game/session"
)

// MockBroker implements service.Broker for testing
type MockBroker struct {
	StartRandomMatchFunc func(playerID string) (*session.Conn, error)
	CreateCustomGameFunc func(playerID string) (uuid.UUID, *session.Conn, error)
	JoinFunc             func(id uuid.UUID, playerID string) (*session.Conn, error)
	SpectateFunc         func(id uuid.UUID, playerID string) (*session.Conn, error)
	PlayMoveFunc         func(id uuid.UUID, playerID string, move engine.Move) (engine.MoveOutcome, error)
	GetFunc              func(id uuid.UUID) (session.Info, error)
	ListFunc             func() []session.Info
	StatsFunc            func() session.Stats
}

func (m *MockBroker) StartRandomMatch(playerID string) (*session.Conn, error) {
	return m.StartRandomMatchFunc(playerID)
}

func (m *MockBroker) CreateCustomGame(playerID string) (uuid.UUID, *session.Conn, error) {
	return m.CreateCustomGameFunc(playerID)
}

func (m *MockBroker) Join(id uuid.UUID, playerID string) (*session.Conn, error) {
	return m.JoinFunc(id, playerID)
}

func (m *MockBroker) Spectate(id uuid.UUID, playerID string) (*session.Conn, error) {
	return m.SpectateFunc(id, playerID)
}

func (m *MockBroker) PlayMove(id uuid.UUID, playerID string, move engine.Move) (engine.MoveOutcome, error) {
	return m.PlayMoveFunc(id, playerID, move)
}

func (m *MockBroker) Get(id uuid.UUID) (session.Info, error) { return m.GetFunc(id) }
func (m *MockBroker) List() []session.Info                   { return m.ListFunc() }
func (m *MockBroker) Stats() session.Stats                   { return m.StatsFunc() }

func TestPlayMove(t *testing.T) {
	ctx := context.Background()
	gameID := uuid.New()

	t.Run("forwards the move", func(t *testing.T) {
		var got engine.Move
		broker := &MockBroker{
			PlayMoveFunc: func(id uuid.UUID, playerID string, move engine.Move) (engine.MoveOutcome, error) {
				assert.Equal(t, gameID, id)
				assert.Equal(t, "alice", playerID)
				got = move
				return engine.PendingPromotion, nil
			},
		}
		svc := service.NewBrokerService(broker)

		result, err := svc.PlayMove(ctx, "alice", service.MoveRequest{GameID: gameID.String(), From: "a7", To: "a8"})
		require.NoError(t, err)
		assert.Equal(t, "pending_promotion", result.Outcome)
		assert.Equal(t, gameID.String(), result.GameID)
		assert.Equal(t, engine.Move{From: "a7", To: "a8"}, got)
	})

	t.Run("malformed game id", func(t *testing.T) {
		svc := service.NewBrokerService(&MockBroker{})
		_, err := svc.PlayMove(ctx, "alice", service.MoveRequest{GameID: "abcd", From: "e2", To: "e4"})
		assert.ErrorIs(t, err, session.ErrInvalidSessionID)
	})

	t.Run("missing squares", func(t *testing.T) {
		svc := service.NewBrokerService(&MockBroker{})
		_, err := svc.PlayMove(ctx, "alice", service.MoveRequest{GameID: gameID.String(), From: "e2"})
		assert.ErrorIs(t, err, engine.ErrIllegalMove)
	})

	t.Run("broker errors pass through", func(t *testing.T) {
		broker := &MockBroker{
			PlayMoveFunc: func(uuid.UUID, string, engine.Move) (engine.MoveOutcome, error) {
				return engine.Committed, session.ErrNotYourTurn
			},
		}
		svc := service.NewBrokerService(broker)
		_, err := svc.PlayMove(ctx, "alice", service.MoveRequest{GameID: gameID.String(), From: "e2", To: "e4"})
		assert.ErrorIs(t, err, session.ErrNotYourTurn)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		svc := service.NewBrokerService(&MockBroker{})
		_, err := svc.PlayMove(cctx, "alice", service.MoveRequest{GameID: gameID.String(), From: "e2", To: "e4"})
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestCreateCustomGame(t *testing.T) {
	id := uuid.New()
	conn := session.NewConn("alice", 1)
	svc := service.NewBrokerService(&MockBroker{
		CreateCustomGameFunc: func(playerID string) (uuid.UUID, *session.Conn, error) {
			return id, conn, nil
		},
	})

	game, err := svc.CreateCustomGame(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, id.String(), game.GameID)
	assert.Same(t, conn, game.Conn)
}

func TestJoinAndSpectate_ParseIDs(t *testing.T) {
	id := uuid.New()
	calls := 0
	broker := &MockBroker{
		JoinFunc: func(got uuid.UUID, playerID string) (*session.Conn, error) {
			calls++
			assert.Equal(t, id, got)
			return session.NewConn(playerID, 1), nil
		},
		SpectateFunc: func(got uuid.UUID, playerID string) (*session.Conn, error) {
			calls++
			assert.Equal(t, id, got)
			return session.NewConn(playerID, 1), nil
		},
	}
	svc := service.NewBrokerService(broker)
	ctx := context.Background()

	_, err := svc.Join(ctx, id.String(), "bob")
	require.NoError(t, err)
	_, err = svc.Spectate(ctx, id.String(), "bob")
	require.NoError(t, err)

	_, err = svc.Join(ctx, "nope", "bob")
	assert.ErrorIs(t, err, session.ErrInvalidSessionID)
	_, err = svc.Spectate(ctx, "", "bob")
	assert.ErrorIs(t, err, session.ErrInvalidSessionID)
	assert.Equal(t, 2, calls)
}

func TestInspection(t *testing.T) {
	info := session.Info{
		ID:    uuid.New(),
		White: "w",
		Black: "b",
		Board: engine.Snapshot{FEN: "fen", Turn: engine.Black, Outcome: "*"},
	}
	svc := service.NewBrokerService(&MockBroker{
		GetFunc:   func(uuid.UUID) (session.Info, error) { return info, nil },
		ListFunc:  func() []session.Info { return []session.Info{info} },
		StatsFunc: func() session.Stats { return session.Stats{Sessions: 1, Waiting: 2, Lobbies: 3} },
	})
	ctx := context.Background()

	got, err := svc.GetSession(ctx, info.ID.String())
	require.NoError(t, err)
	assert.Equal(t, info.ID.String(), got.GameID)
	assert.Equal(t, engine.Black, got.Turn)

	list, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "w", list[0].White)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &service.StatsInfo{ActiveSessions: 1, WaitingPlayers: 2, OpenInvites: 3}, stats)
}

// The real registry satisfies Broker end to end.
func TestWithRegistry(t *testing.T) {
	reg := session.NewRegistry(session.Options{})
	defer reg.Stop()
	svc := service.NewBrokerService(reg)
	ctx := context.Background()

	game, err := svc.CreateCustomGame(ctx, "w")
	require.NoError(t, err)
	_, err = svc.Join(ctx, game.GameID, "b")
	require.NoError(t, err)

	result, err := svc.PlayMove(ctx, "w", service.MoveRequest{GameID: game.GameID, From: "e2", To: "e4"})
	require.NoError(t, err)
	assert.Equal(t, "committed", result.Outcome)

	info, err := svc.GetSession(ctx, game.GameID)
	require.NoError(t, err)
	assert.Equal(t, []string{"e2e4"}, info.Board.Moves)
}
