package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wricardo/chessbroker/game/engine"
	"github.com/wricardo/chessbroker/game/session"
)

// brokerService implements BrokerService on top of a Broker
type brokerService struct {
	broker Broker
}

// NewBrokerService creates a new service instance
func NewBrokerService(broker Broker) BrokerService {
	return &brokerService{broker: broker}
}

func parseGameID(gameID string) (uuid.UUID, error) {
	id, err := uuid.Parse(gameID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", session.ErrInvalidSessionID, gameID)
	}
	return id, nil
}

func (s *brokerService) StartRandomMatch(ctx context.Context, playerID string) (*session.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.broker.StartRandomMatch(playerID)
}

func (s *brokerService) CreateCustomGame(ctx context.Context, playerID string) (*CustomGame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, conn, err := s.broker.CreateCustomGame(playerID)
	if err != nil {
		return nil, err
	}
	return &CustomGame{GameID: id.String(), Conn: conn}, nil
}

func (s *brokerService) Join(ctx context.Context, gameID, playerID string) (*session.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := parseGameID(gameID)
	if err != nil {
		return nil, err
	}
	return s.broker.Join(id, playerID)
}

func (s *brokerService) Spectate(ctx context.Context, gameID, playerID string) (*session.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := parseGameID(gameID)
	if err != nil {
		return nil, err
	}
	return s.broker.Spectate(id, playerID)
}

// PlayMove validates the request shape and forwards it to the session
func (s *brokerService) PlayMove(ctx context.Context, playerID string, req MoveRequest) (*MoveResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := parseGameID(req.GameID)
	if err != nil {
		return nil, err
	}
	if req.From == "" || req.To == "" {
		return nil, &engine.IllegalMoveError{Reason: "from and to are required"}
	}

	outcome, err := s.broker.PlayMove(id, playerID, engine.Move{
		From:      req.From,
		To:        req.To,
		Promotion: req.PromoteTo,
	})
	if err != nil {
		return nil, err
	}
	return &MoveResult{GameID: id.String(), Outcome: outcome.String()}, nil
}

func (s *brokerService) GetSession(ctx context.Context, gameID string) (*SessionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := parseGameID(gameID)
	if err != nil {
		return nil, err
	}
	info, err := s.broker.Get(id)
	if err != nil {
		return nil, err
	}
	return newSessionInfo(info), nil
}

func (s *brokerService) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	list := s.broker.List()
	result := make([]*SessionInfo, 0, len(list))
	for _, info := range list {
		result = append(result, newSessionInfo(info))
	}
	return result, nil
}

func (s *brokerService) Stats(ctx context.Context) (*StatsInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st := s.broker.Stats()
	return &StatsInfo{
		ActiveSessions: st.Sessions,
		WaitingPlayers: st.Waiting,
		OpenInvites:    st.Lobbies,
	}, nil
}
