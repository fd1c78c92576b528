package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/chessbroker/game/engine"
)

// Session is one live match. All mutation goes through mu.
type Session struct {
	id         uuid.UUID
	createdAt  time.Time
	bufferSize int
	logger     *zap.Logger

	mu         sync.Mutex
	players    [2]*Conn // indexed by engine.Color
	spectators []*Conn
	board      engine.Board
	// notified[c] is set once the other side has been told c disconnected
	notified [2]bool
}

// Info is a read-only view of a session
type Info struct {
	ID         uuid.UUID       `json:"game_id"`
	White      string          `json:"white"`
	Black      string          `json:"black"`
	Spectators int             `json:"spectators"`
	Board      engine.Snapshot `json:"board"`
	Terminal   bool            `json:"terminal"`
	CreatedAt  time.Time       `json:"created_at"`
}

// newSession pairs white and black and announces the game to both.
// If one side cannot be reached the session is not created and the
// reachable connection is returned instead.
func newSession(id uuid.UUID, white, black *Conn, board engine.Board, bufferSize int, logger *zap.Logger) (*Session, *Conn, error) {
	if err := white.Push(GameStart{GameID: id, PlayerColor: engine.White}); err != nil {
		if black.Closed() {
			return nil, nil, ErrAllParticipantsDisconnected
		}
		return nil, black, nil
	}

	if err := black.Push(GameStart{GameID: id, PlayerColor: engine.Black}); err != nil {
		// white already saw GameStart for a game that will not exist
		if err := white.Push(OpponentDisconnected{}); err != nil {
			return nil, nil, ErrAllParticipantsDisconnected
		}
		return nil, white, nil
	}

	return &Session{
		id:         id,
		createdAt:  time.Now(),
		bufferSize: bufferSize,
		logger:     logger.With(zap.Stringer("game_id", id)),
		players:    [2]*Conn{white, black},
		board:      board,
	}, nil, nil
}

// ID returns the session id
func (s *Session) ID() uuid.UUID { return s.id }

// colorOf resolves playerID to a side. Caller holds mu.
func (s *Session) colorOf(playerID string) (engine.Color, bool) {
	for _, c := range []engine.Color{engine.White, engine.Black} {
		if s.players[c].PlayerID() == playerID {
			return c, true
		}
	}
	return engine.White, false
}

// PlayMove applies a move for playerID and relays it to the opponent and
// then every spectator. The mover is never notified of its own move.
func (s *Session) PlayMove(playerID string, move engine.Move) (engine.MoveOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	color, ok := s.colorOf(playerID)
	if !ok {
		return engine.Committed, ErrInvalidPlayer
	}
	if s.board.CurrentTurn() != color {
		return engine.Committed, ErrNotYourTurn
	}

	// relayed events must match what the board records
	move = move.Normalize()
	outcome, err := s.board.ApplyMove(move)
	if err != nil || outcome == engine.PendingPromotion {
		return outcome, err
	}

	ev := moveEvent(move)
	if err := s.players[color.Opponent()].Push(ev); err != nil {
		s.logger.Debug("opponent push failed", zap.Stringer("color", color.Opponent()), zap.Error(err))
	}
	for _, viewer := range s.spectators {
		_ = viewer.Push(ev)
	}
	return outcome, nil
}

// Join reconnects playerID to its side. The returned connection has
// RejoinedGame queued and replaces the previous one, which is closed.
func (s *Session) Join(playerID string) (*Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	color, ok := s.colorOf(playerID)
	if !ok {
		return nil, ErrInvalidPlayer
	}

	conn := NewConn(playerID, s.bufferSize)
	if err := conn.Push(RejoinedGame{GameID: s.id, PlayerColor: color, Board: s.board.Snapshot()}); err != nil {
		return nil, err
	}

	old := s.players[color]
	s.players[color] = conn
	s.notified[color] = false
	old.Close()

	s.logger.Info("player rejoined", zap.String("player_id", playerID), zap.Stringer("color", color))
	return conn, nil
}

// Spectate attaches a read-only stream that receives every committed move
func (s *Session) Spectate(playerID string) (*Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn := NewConn(playerID, s.bufferSize)
	if err := conn.Push(SpectatorJoined{GameID: s.id, Board: s.board.Snapshot()}); err != nil {
		return nil, err
	}
	s.spectators = append(s.spectators, conn)
	return conn, nil
}

// CheckStaleness probes every connection and reports whether the session
// should be evicted: the board is terminal or both sides are unreachable.
// Dead spectators are dropped. When exactly one side is unreachable the
// other side is told once per disconnect episode.
func (s *Session) CheckStaleness(timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	alive := make([]bool, 2+len(s.spectators))
	conns := append([]*Conn{s.players[engine.White], s.players[engine.Black]}, s.spectators...)

	var g errgroup.Group
	for i, c := range conns {
		g.Go(func() error {
			alive[i] = c.Probe(timeout)
			return nil
		})
	}
	_ = g.Wait()

	kept := s.spectators[:0]
	for i, viewer := range s.spectators {
		if alive[2+i] {
			kept = append(kept, viewer)
			continue
		}
		viewer.Close()
	}
	for i := len(kept); i < len(s.spectators); i++ {
		s.spectators[i] = nil
	}
	s.spectators = kept

	if s.board.IsTerminal() {
		return true
	}

	whiteAlive, blackAlive := alive[engine.White], alive[engine.Black]
	switch {
	case !whiteAlive && !blackAlive:
		return true
	case whiteAlive && blackAlive:
		s.notified = [2]bool{}
	default:
		gone := engine.White
		if whiteAlive {
			gone = engine.Black
		}
		if !s.notified[gone] {
			s.notified[gone] = true
			if err := s.players[gone.Opponent()].Push(OpponentDisconnected{}); err != nil {
				s.logger.Debug("disconnect notice failed", zap.Error(err))
			}
			s.logger.Info("player unreachable", zap.Stringer("color", gone))
		}
	}
	return false
}

// Info returns a snapshot of the session
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Info{
		ID:         s.id,
		White:      s.players[engine.White].PlayerID(),
		Black:      s.players[engine.Black].PlayerID(),
		Spectators: len(s.spectators),
		Board:      s.board.Snapshot(),
		Terminal:   s.board.IsTerminal(),
		CreatedAt:  s.createdAt,
	}
}

// Close ends every stream attached to the session
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.players {
		c.Close()
	}
	for _, viewer := range s.spectators {
		viewer.Close()
	}
	s.spectators = nil
}
