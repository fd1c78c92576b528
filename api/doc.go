// Package api exposes the chess session broker over HTTP.
//
// Event streams are opened with GET and stay open for the life of the
// player's connection. Each one is available as server-sent events under
// /api/board and as a WebSocket under /ws/board:
//
//	GET /api/board/new_random_game     pair with a waiting player or wait
//	GET /api/board/new_custom_game     create an invite; first event carries its id
//	GET /api/board/join_game/{id}      join an invite or reconnect to a game
//	GET /api/board/spectate/{id}       watch a game (no identity required)
//
// Moves are submitted separately and relayed to the other participants'
// streams:
//
//	POST /api/board/play_move          {"game_id","from","to","promote_to"} as JSON or form
//
// Inspection and identity:
//
//	GET  /api/sessions                 list active games
//	GET  /api/sessions/{id}            one game with its board
//	GET  /api/stats                    registry counters
//	GET  /api/health                   liveness
//	POST /api/auth/guest               issue a guest identity (cookie and token)
//	GET  /api/auth/me                  current identity
//
// Players are identified by a bearer token or the access_token cookie.
// Broker errors are returned as {"error": ..., "code": ...} with
// 401 PlayerNotAuthenticated, 403 InvalidPlayer, 404 InvalidSessionId,
// 409 NotYourTurn, 410 AllParticipantsDisconnected and 422 IllegalMove.
package api
