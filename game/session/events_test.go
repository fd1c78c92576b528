package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/chessbroker/game/engine"
)

func TestMarshalEvent_WireFormat(t *testing.T) {
	id := uuid.MustParse("6f1c2a9e-3b4d-4e5f-8a7b-1c2d3e4f5a6b")
	q := "q"

	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{"unit waiting", WaitingForOpponent{}, `"WaitingForOpponent"`},
		{"unit disconnect", OpponentDisconnected{}, `"OpponentDisconnected"`},
		{"custom created", CustomCreated{GameID: id}, `{"CustomCreated":{"game_id":"6f1c2a9e-3b4d-4e5f-8a7b-1c2d3e4f5a6b"}}`},
		{"game start", GameStart{GameID: id, PlayerColor: engine.Black}, `{"GameStart":{"game_id":"6f1c2a9e-3b4d-4e5f-8a7b-1c2d3e4f5a6b","player_color":"Black"}}`},
		{"move", OpponentPlayedMove{From: "e2", To: "e4"}, `{"OpponentPlayedMove":{"from":"e2","to":"e4","promote_to":null}}`},
		{"promotion", OpponentPlayedMove{From: "a7", To: "a8", PromoteTo: &q}, `{"OpponentPlayedMove":{"from":"a7","to":"a8","promote_to":"q"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalEvent(tt.ev)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))

			back, err := UnmarshalEvent(data)
			require.NoError(t, err)
			assert.Equal(t, tt.ev, back)
		})
	}
}

func TestMarshalEvent_Rejoined(t *testing.T) {
	ev := RejoinedGame{
		GameID:      uuid.New(),
		PlayerColor: engine.White,
		Board:       engine.Snapshot{FEN: "fen", Moves: []string{"e2e4"}, Turn: engine.Black, Outcome: "*"},
	}
	data, err := MarshalEvent(ev)
	require.NoError(t, err)

	back, err := UnmarshalEvent(data)
	require.NoError(t, err)
	assert.Equal(t, ev, back)
}

func TestUnmarshalEvent_Errors(t *testing.T) {
	for _, raw := range []string{
		`"Nope"`,
		`{"Nope":{}}`,
		`{}`,
		`{"GameStart":{},"CustomCreated":{}}`,
		`{"GameStart":{"player_color":"Green"}}`,
		`[1,2]`,
	} {
		_, err := UnmarshalEvent([]byte(raw))
		assert.Error(t, err, raw)
	}

	_, err := MarshalEvent(nil)
	assert.Error(t, err)
}
