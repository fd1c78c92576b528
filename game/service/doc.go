// Package service provides the broker operations consumed by transports.
//
// BrokerService accepts string game ids from HTTP paths, form bodies and MCP
// tool arguments, validates them, and delegates to a Broker (normally a
// *session.Registry). It returns JSON-ready DTOs for inspection calls and
// live *session.Conn streams for matchmaking calls.
//
// Usage:
//
//	registry := session.NewRegistry(session.Options{})
//	svc := service.NewBrokerService(registry)
//
//	conn, err := svc.StartRandomMatch(ctx, playerID)
//	result, err := svc.PlayMove(ctx, playerID, service.MoveRequest{
//		GameID: gameID, From: "e2", To: "e4",
//	})
package service
