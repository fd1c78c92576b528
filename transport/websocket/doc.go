// Package websocket streams a player's session events over a WebSocket.
//
// Serve upgrades an HTTP request and runs two pumps, following the usual
// gorilla/websocket layout. The write pump sends each event as one text
// message holding its JSON encoding, and turns broker liveness probes into
// ping frames. The read pump discards client messages and acknowledges
// outstanding probes when a pong arrives, so a probe only succeeds if the
// peer actually answered.
//
// Either pump exiting closes both the socket and the session connection,
// which the broker then observes as a disconnect.
package websocket
