package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/wricardo/chessbroker/auth"
	"github.com/wricardo/chessbroker/game/engine"
	"github.com/wricardo/chessbroker/game/session"
)

func statusFor(err error) (int, string) {
	var bad badRequestError
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, "BadRequest"
	case errors.Is(err, auth.ErrPlayerNotAuthenticated):
		return http.StatusUnauthorized, "PlayerNotAuthenticated"
	case errors.Is(err, session.ErrInvalidSessionID):
		return http.StatusNotFound, "InvalidSessionId"
	case errors.Is(err, session.ErrInvalidPlayer):
		return http.StatusForbidden, "InvalidPlayer"
	case errors.Is(err, session.ErrNotYourTurn):
		return http.StatusConflict, "NotYourTurn"
	case errors.Is(err, engine.ErrIllegalMove):
		return http.StatusUnprocessableEntity, "IllegalMove"
	case errors.Is(err, session.ErrAllParticipantsDisconnected):
		return http.StatusGone, "AllParticipantsDisconnected"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Unavailable"
	}
	return http.StatusInternalServerError, "Internal"
}
