package service

import (
	"time"

	"github.com/wricardo/chessbroker/game/engine"
	"github.com/wricardo/chessbroker/game/session"
)

// CustomGame is a freshly created invite and the creator's stream
type CustomGame struct {
	GameID string
	Conn   *session.Conn
}

// MoveRequest is the body of a play-move call
type MoveRequest struct {
	GameID    string `json:"game_id" form:"game_id"`
	From      string `json:"from" form:"from"`
	To        string `json:"to" form:"to"`
	PromoteTo string `json:"promote_to,omitempty" form:"promote_to"`
}

// MoveResult reports how the board handled a move
type MoveResult struct {
	GameID  string `json:"game_id"`
	Outcome string `json:"outcome"` // committed|pending_promotion
}

// SessionInfo describes an active session
type SessionInfo struct {
	GameID     string          `json:"game_id"`
	White      string          `json:"white"`
	Black      string          `json:"black"`
	Spectators int             `json:"spectators"`
	Turn       engine.Color    `json:"turn"`
	Terminal   bool            `json:"terminal"`
	Board      engine.Snapshot `json:"board"`
	CreatedAt  time.Time       `json:"created_at"`
}

// StatsInfo summarizes the broker's collections
type StatsInfo struct {
	ActiveSessions int `json:"active_sessions"`
	WaitingPlayers int `json:"waiting_players"`
	OpenInvites    int `json:"open_invites"`
}

func newSessionInfo(info session.Info) *SessionInfo {
	return &SessionInfo{
		GameID:     info.ID.String(),
		White:      info.White,
		Black:      info.Black,
		Spectators: info.Spectators,
		Turn:       info.Board.Turn,
		Terminal:   info.Terminal,
		Board:      info.Board,
		CreatedAt:  info.CreatedAt,
	}
}
