// Package mcp exposes the chess broker to Model Context Protocol agents.
//
// The Client is a thin proxy: every tool call is translated into a request
// against the REST API, so agents see exactly the rules human players see.
// Event streams are not proxied; an agent inspects games with get_session
// and submits moves with play_move.
//
// MCP Tools:
//   - guest_login: issue a guest identity and remember its token
//   - list_sessions: list active games
//   - get_session: players, FEN and numbered move list of one game
//   - play_move: submit a move as the remembered or given player
//   - broker_stats: counts of games, waiting players and invites
//
// Transport Modes:
//   - Stdio: ServeStdio for local MCP clients
//   - HTTP: Handler, mounted at POST /mcp by the API server
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := client.ServeStdio(); err != nil {
//		log.Fatal(err)
//	}
package mcp
