package api

import (
	"errors"
	"fmt"

	"github.com/go-playground/form/v4"
	"github.com/google/uuid"
)

var errInvalidGameID = errors.New("invalid game id")

func newFormDecoder() *form.Decoder {
	decoder := form.NewDecoder()
	decoder.RegisterCustomTypeFunc(func(s []string) (interface{}, error) {
		if len(s) == 0 || s[0] == "" {
			return uuid.Nil, nil
		}
		id, err := uuid.Parse(s[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidGameID, err)
		}
		return id, nil
	}, uuid.UUID{})

	return decoder
}

// moveForm is the form-encoded play-move body
type moveForm struct {
	GameID    uuid.UUID `form:"game_id"`
	From      string    `form:"from"`
	To        string    `form:"to"`
	PromoteTo string    `form:"promote_to"`
}

// isInvalidGameID reports whether a decode failure came from the game_id field
func isInvalidGameID(err error) bool {
	var decodeErrs form.DecodeErrors
	if errors.As(err, &decodeErrs) {
		for _, e := range decodeErrs {
			if errors.Is(e, errInvalidGameID) {
				return true
			}
		}
	}
	return errors.Is(err, errInvalidGameID)
}
