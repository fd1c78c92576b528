package session

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/wricardo/chessbroker/game/engine"
)

// Event is a message pushed to a player's stream. The set of variants is
// closed; each one encodes with its variant name as the discriminant.
type Event interface {
	Kind() string
}

// WaitingForOpponent is sent when a random-match request is queued
type WaitingForOpponent struct{}

// CustomCreated carries the invite id of a freshly created custom game
type CustomCreated struct {
	GameID uuid.UUID `json:"game_id"`
}

// GameStart tells a player the match exists and which side they play
type GameStart struct {
	GameID      uuid.UUID    `json:"game_id"`
	PlayerColor engine.Color `json:"player_color"`
}

// OpponentPlayedMove relays a committed move to the other participants
type OpponentPlayedMove struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	PromoteTo *string `json:"promote_to"`
}

// RejoinedGame resyncs a reconnecting player with the authoritative board
type RejoinedGame struct {
	GameID      uuid.UUID       `json:"game_id"`
	PlayerColor engine.Color    `json:"player_color"`
	Board       engine.Snapshot `json:"board"`
}

// SpectatorJoined gives a spectator the board at the time it attached
type SpectatorJoined struct {
	GameID uuid.UUID       `json:"game_id"`
	Board  engine.Snapshot `json:"board"`
}

// OpponentDisconnected is sent once per disconnect episode of the other side
type OpponentDisconnected struct{}

func (WaitingForOpponent) Kind() string   { return "WaitingForOpponent" }
func (CustomCreated) Kind() string        { return "CustomCreated" }
func (GameStart) Kind() string            { return "GameStart" }
func (OpponentPlayedMove) Kind() string   { return "OpponentPlayedMove" }
func (RejoinedGame) Kind() string         { return "RejoinedGame" }
func (SpectatorJoined) Kind() string      { return "SpectatorJoined" }
func (OpponentDisconnected) Kind() string { return "OpponentDisconnected" }

func moveEvent(m engine.Move) OpponentPlayedMove {
	ev := OpponentPlayedMove{From: m.From, To: m.To}
	if m.Promotion != "" {
		p := m.Promotion
		ev.PromoteTo = &p
	}
	return ev
}

// MarshalEvent encodes an event as an externally tagged record:
// unit variants become a bare string, the others {"Variant": {...}}.
func MarshalEvent(ev Event) ([]byte, error) {
	switch ev.(type) {
	case WaitingForOpponent, OpponentDisconnected:
		return json.Marshal(ev.Kind())
	case nil:
		return nil, fmt.Errorf("nil event")
	}
	return json.Marshal(map[string]Event{ev.Kind(): ev})
}

// UnmarshalEvent decodes the output of MarshalEvent
func UnmarshalEvent(data []byte) (Event, error) {
	var unit string
	if err := json.Unmarshal(data, &unit); err == nil {
		switch unit {
		case "WaitingForOpponent":
			return WaitingForOpponent{}, nil
		case "OpponentDisconnected":
			return OpponentDisconnected{}, nil
		}
		return nil, fmt.Errorf("unknown event %q", unit)
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if len(tagged) != 1 {
		return nil, fmt.Errorf("event must have exactly one tag, got %d", len(tagged))
	}

	for kind, raw := range tagged {
		var ev Event
		var err error
		switch kind {
		case "CustomCreated":
			var v CustomCreated
			err = json.Unmarshal(raw, &v)
			ev = v
		case "GameStart":
			var v GameStart
			err = json.Unmarshal(raw, &v)
			ev = v
		case "OpponentPlayedMove":
			var v OpponentPlayedMove
			err = json.Unmarshal(raw, &v)
			ev = v
		case "RejoinedGame":
			var v RejoinedGame
			err = json.Unmarshal(raw, &v)
			ev = v
		case "SpectatorJoined":
			var v SpectatorJoined
			err = json.Unmarshal(raw, &v)
			ev = v
		default:
			return nil, fmt.Errorf("unknown event %q", kind)
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return ev, nil
	}
	return nil, fmt.Errorf("empty event")
}
