// Package session implements the live game-session broker.
//
// The package pairs players into two-party matches, relays moves to the
// right recipients, detects silently dropped streams and evicts abandoned
// games.
//
// Core Types:
//
// Conn is one player's outbound event stream: a bounded queue drained by a
// transport (SSE or WebSocket). Pushes never block; a full queue counts as
// a disconnect. Probe sends a keep-alive the transport must acknowledge
// within a timeout.
//
// Session is a live match with a White and a Black connection, optional
// spectators and a board from the engine package. Every operation on a
// session runs under its own mutex, so moves and reconnections within one
// game are totally ordered while different games never contend.
//
// Registry owns the active sessions, the random-match queue and the custom
// invite lobby, each behind an independent lock. Sweeper drives
// Registry.Sweep on a fixed interval.
//
// Lifecycle:
//
// A session is created when two connections are paired: by random match,
// by joining a custom invite, or by a lobby id. It is removed only by a
// sweep, once its board is terminal or both players fail their liveness
// probe in the same pass. When exactly one side is unreachable the other
// receives a single OpponentDisconnected and the game waits for Join.
//
// Usage:
//
//	reg := session.NewRegistry(session.Options{Logger: logger})
//	reg.Start(ctx)
//	defer reg.Stop()
//
//	conn, err := reg.StartRandomMatch(playerID)
//	if err != nil {
//		return err
//	}
//	for frame := range conn.Frames() {
//		// write frame.Event() to the client, ack probes
//	}
//
// Events:
//
// Events are a closed sum type. MarshalEvent writes unit variants as a bare
// string ("OpponentDisconnected") and the rest as a single-key object
// ({"GameStart": {...}}).
package session
