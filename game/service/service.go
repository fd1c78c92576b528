package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/wricardo/chessbroker/game/engine"
	"github.com/wricardo/chessbroker/game/session"
)

// BrokerService is the operation set exposed to transports
type BrokerService interface {
	// Matchmaking
	StartRandomMatch(ctx context.Context, playerID string) (*session.Conn, error)
	CreateCustomGame(ctx context.Context, playerID string) (*CustomGame, error)
	Join(ctx context.Context, gameID, playerID string) (*session.Conn, error)
	Spectate(ctx context.Context, gameID, playerID string) (*session.Conn, error)

	// Gameplay
	PlayMove(ctx context.Context, playerID string, req MoveRequest) (*MoveResult, error)

	// Inspection
	GetSession(ctx context.Context, gameID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	Stats(ctx context.Context) (*StatsInfo, error)
}

// Broker is the session store the service delegates to
type Broker interface {
	StartRandomMatch(playerID string) (*session.Conn, error)
	CreateCustomGame(playerID string) (uuid.UUID, *session.Conn, error)
	Join(id uuid.UUID, playerID string) (*session.Conn, error)
	Spectate(id uuid.UUID, playerID string) (*session.Conn, error)
	PlayMove(id uuid.UUID, playerID string, move engine.Move) (engine.MoveOutcome, error)
	Get(id uuid.UUID) (session.Info, error)
	List() []session.Info
	Stats() session.Stats
}

var _ Broker = (*session.Registry)(nil)
