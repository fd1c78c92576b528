package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wricardo/chessbroker/game/session"
	"github.com/wricardo/chessbroker/transport/sse"
	"github.com/wricardo/chessbroker/transport/websocket"
)

// stream resolves a request into a live event stream
type stream struct {
	open func(r *http.Request, playerID string) (*session.Conn, error)
	// anonymous streams fall back to an empty identity
	anonymous bool
}

// serveSSE serves the stream as server-sent events
func (s *Server) serveSSE(st stream) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, ok := s.openStream(w, r, st)
		if !ok {
			return
		}
		if err := sse.Stream(r.Context(), w, conn, s.logger); err != nil {
			s.logger.Debug("event stream ended", zap.String("path", r.URL.Path), zap.Error(err))
		}
	}
}

// serveWS serves the stream over a WebSocket
func (s *Server) serveWS(st stream) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, ok := s.openStream(w, r, st)
		if !ok {
			return
		}
		if err := websocket.Serve(w, r, conn, s.logger); err != nil {
			s.logger.Debug("websocket ended", zap.String("path", r.URL.Path), zap.Error(err))
		}
	}
}

func (s *Server) openStream(w http.ResponseWriter, r *http.Request, st stream) (*session.Conn, bool) {
	playerID, err := s.identity.PlayerID(r)
	if err != nil && !st.anonymous {
		respondServiceError(w, err)
		return nil, false
	}

	conn, err := st.open(r, playerID)
	if err != nil {
		respondServiceError(w, err)
		return nil, false
	}
	return conn, true
}

func (s *Server) randomGame() stream {
	return stream{open: func(r *http.Request, playerID string) (*session.Conn, error) {
		return s.service.StartRandomMatch(r.Context(), playerID)
	}}
}

func (s *Server) customGame() stream {
	return stream{open: func(r *http.Request, playerID string) (*session.Conn, error) {
		game, err := s.service.CreateCustomGame(r.Context(), playerID)
		if err != nil {
			return nil, err
		}
		return game.Conn, nil
	}}
}

func (s *Server) joinGame() stream {
	return stream{open: func(r *http.Request, playerID string) (*session.Conn, error) {
		return s.service.Join(r.Context(), mux.Vars(r)["id"], playerID)
	}}
}

func (s *Server) spectateGame() stream {
	return stream{anonymous: true, open: func(r *http.Request, playerID string) (*session.Conn, error) {
		return s.service.Spectate(r.Context(), mux.Vars(r)["id"], playerID)
	}}
}
