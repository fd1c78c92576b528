package api

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wricardo/chessbroker/auth"
	"github.com/wricardo/chessbroker/game/service"
	"github.com/wricardo/chessbroker/game/session"
)

// Gameplay Handlers

func (s *Server) handlePlayMove(w http.ResponseWriter, r *http.Request) {
	playerID, err := s.identity.PlayerID(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	req, err := s.decodeMove(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	result, err := s.service.PlayMove(r.Context(), playerID, req)
	if err != nil {
		s.logger.Debug("move rejected",
			zap.String("game_id", req.GameID),
			zap.String("player_id", playerID),
			zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

type badRequestError struct{ err error }

func (e badRequestError) Error() string { return e.err.Error() }
func (e badRequestError) Unwrap() error { return e.err }

// decodeMove accepts JSON or form-encoded bodies
func (s *Server) decodeMove(r *http.Request) (service.MoveRequest, error) {
	var req service.MoveRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseForm(); err != nil {
			return req, badRequestError{fmt.Errorf("invalid form: %w", err)}
		}
		var f moveForm
		if err := s.forms.Decode(&f, r.PostForm); err != nil {
			if isInvalidGameID(err) {
				return req, fmt.Errorf("%w: %v", session.ErrInvalidSessionID, err)
			}
			return req, badRequestError{fmt.Errorf("invalid form: %w", err)}
		}
		req = service.MoveRequest{GameID: f.GameID.String(), From: f.From, To: f.To, PromoteTo: f.PromoteTo}
	default:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, badRequestError{fmt.Errorf("invalid request body: %w", err)}
		}
	}
	return req, nil
}

// Inspection Handlers

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Identity Handlers

func (s *Server) handleGuest(w http.ResponseWriter, r *http.Request) {
	playerID, token, expires, err := s.identity.IssueGuest()
	if err != nil {
		s.logger.Error("failed to issue guest token", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"player_id":  playerID,
		"token":      token,
		"expires_at": expires.UTC(),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	playerID, err := s.identity.PlayerID(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"player_id": playerID})
}
