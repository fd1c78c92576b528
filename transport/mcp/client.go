package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/chessbroker/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer

	mu    sync.RWMutex
	token string
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Chess Broker",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Chess Broker - MCP Interface

This is a thin client that proxies all requests to the REST API server.
Games are played by two players whose event streams are open elsewhere;
these tools inspect games and submit moves on behalf of a player.

AVAILABLE TOOLS:
- guest_login: Obtain a guest identity; later calls act as that player
- list_sessions: List active games
- get_session: Board (FEN, moves, side to play) of one game
- play_move: Submit a move in square coordinates (e.g. e2 -> e4)
- broker_stats: Counts of active games, waiting players and open invites

Moves are only accepted from the player whose turn it is. A pawn reaching
the last rank needs promote_to (q, r, b or n).`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "guest_login",
		Description: "Create a guest identity and use it for subsequent moves",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGuestLogin)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active games",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get the players and board of a game",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": map[string]interface{}{
					"type":        "string",
					"description": "Game ID to retrieve",
				},
			},
			Required: []string{"game_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "play_move",
		Description: "Play a move in a game you are part of",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": map[string]interface{}{
					"type":        "string",
					"description": "Game ID",
				},
				"from": map[string]interface{}{
					"type":        "string",
					"description": "Origin square, e.g. e2",
				},
				"to": map[string]interface{}{
					"type":        "string",
					"description": "Destination square, e.g. e4",
				},
				"promote_to": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"q", "r", "b", "n"},
					"description": "Promotion piece when a pawn reaches the last rank",
				},
				"token": map[string]interface{}{
					"type":        "string",
					"description": "Player token (defaults to the guest_login identity)",
				},
			},
			Required: []string{"game_id", "from", "to"},
		},
	}, c.handlePlayMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "broker_stats",
		Description: "Show broker counters",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleStats)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// SetToken sets the bearer token used for play_move
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Handler serves JSON-RPC messages posted to the MCP endpoint
func (c *Client) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := c.mcpServer.HandleMessage(r.Context(), body)
		if response == nil {
			w.WriteHeader(http.StatusAccepted)
			return
		}

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	})
}

// ServeStdio runs the MCP server over stdin/stdout until the input closes
func (c *Client) ServeStdio() error {
	return server.ServeStdio(c.mcpServer)
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path, token string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			if code := errResp["code"]; code != "" {
				return fmt.Errorf("%s: %s", code, msg)
			}
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func stringArg(request mcp.CallToolRequest, name string) string {
	args, _ := request.Params.Arguments.(map[string]interface{})
	s, _ := args[name].(string)
	return strings.TrimSpace(s)
}

// Tool handlers

func (c *Client) handleGuestLogin(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		PlayerID  string    `json:"player_id"`
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := c.apiCall(ctx, http.MethodPost, "/api/auth/guest", "", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c.SetToken(response.Token)

	result := fmt.Sprintf("Logged in as %s (expires %s)\nToken: %s\n",
		response.PlayerID, response.ExpiresAt.Format(time.RFC3339), response.Token)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, http.MethodGet, "/api/sessions", "", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Games (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		result += fmt.Sprintf("- %s  %s vs %s  (%d moves, %s to play, started %s)\n",
			s.GameID, s.White, s.Black, len(s.Board.Moves), s.Turn, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID := stringArg(request, "game_id")
	if gameID == "" {
		return mcp.NewToolResultError("game_id is required"), nil
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, http.MethodGet, "/api/sessions/"+gameID, "", nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handlePlayMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	move := service.MoveRequest{
		GameID:    stringArg(request, "game_id"),
		From:      stringArg(request, "from"),
		To:        stringArg(request, "to"),
		PromoteTo: stringArg(request, "promote_to"),
	}
	if move.GameID == "" || move.From == "" || move.To == "" {
		return mcp.NewToolResultError("game_id, from and to are required"), nil
	}

	token := stringArg(request, "token")
	if token == "" {
		token = c.currentToken()
	}
	if token == "" {
		return mcp.NewToolResultError("no identity: call guest_login or pass token"), nil
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, http.MethodPost, "/api/board/play_move", token, move, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(move, &result)), nil
}

func (c *Client) handleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stats service.StatsInfo
	if err := c.apiCall(ctx, http.MethodGet, "/api/stats", "", nil, &stats); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active games: %d\nWaiting players: %d\nOpen invites: %d\n",
		stats.ActiveSessions, stats.WaitingPlayers, stats.OpenInvites)
	return mcp.NewToolResultText(result), nil
}

// Formatting helpers

func formatSessionInfo(info *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game %s\n", info.GameID)
	fmt.Fprintf(&b, "White: %s\nBlack: %s\n", info.White, info.Black)
	if info.Spectators > 0 {
		fmt.Fprintf(&b, "Spectators: %d\n", info.Spectators)
	}
	fmt.Fprintf(&b, "FEN: %s\n", info.Board.FEN)
	if info.Terminal {
		fmt.Fprintf(&b, "Result: %s\n", info.Board.Outcome)
	} else {
		fmt.Fprintf(&b, "To play: %s\n", info.Turn)
	}
	if len(info.Board.Moves) > 0 {
		fmt.Fprintf(&b, "Moves: %s\n", formatMoveList(info.Board.Moves))
	}
	return b.String()
}

// formatMoveList numbers moves in pairs: "1. e2e4 e7e5 2. g1f3"
func formatMoveList(moves []string) string {
	parts := make([]string, 0, len(moves)+len(moves)/2+1)
	for i, m := range moves {
		if i%2 == 0 {
			parts = append(parts, fmt.Sprintf("%d.", i/2+1))
		}
		parts = append(parts, m)
	}
	return strings.Join(parts, " ")
}

func formatMoveResult(move service.MoveRequest, result *service.MoveResult) string {
	if result.Outcome == "pending_promotion" {
		return fmt.Sprintf("%s%s reaches the last rank: resend with promote_to (q, r, b or n)\n", move.From, move.To)
	}
	return fmt.Sprintf("Played %s%s%s in game %s\n", move.From, move.To, move.PromoteTo, result.GameID)
}
