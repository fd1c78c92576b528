// Package sse streams a player's session events over server-sent events.
//
// Each event is written as one "data:" message holding its JSON encoding.
// Liveness probes are written as ": ping" comments, which EventSource
// clients ignore, and are acknowledged after the flush.
package sse
