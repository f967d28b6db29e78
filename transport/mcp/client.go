package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/tiles-server/game/service"
	"github.com/wricardo/tiles-server/protocol"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
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

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Tiles Server",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Tiles Server - MCP Interface

Read-only view of a running tiles game server. Players connect over TCP,
queue up, and are drawn into games on a square board. Each turn a player
either places a tile from their hand or, on their first turn, chooses a
start point on the board edge. Tokens follow the paths of placed tiles;
a token leaving the board is eliminated. The last token standing wins.

AVAILABLE TOOLS:
- server_status: queue, lobby, turn order and current player
- game_history: durable events of the running game, paginated
- tile_catalogue: the tile set with each tile's pairs and orientations
- list_games: finished games from the archive`),
	)

	c.registerTools()
}

func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_status",
		Description: "Get the connected players, the queue and lobby, and the running game",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleServerStatus)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_history",
		Description: "Get the events of the running game with pagination",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"page": map[string]interface{}{
					"type":        "number",
					"description": "Page number (starts at 1)",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Events per page (default 50)",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Event order",
				},
			},
		},
	}, c.handleGameHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "tile_catalogue",
		Description: "List every tile with its point pairs and number of distinct orientations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleTileCatalogue)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_games",
		Description: "List finished games, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListGames)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

func (c *Client) apiCall(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
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
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func (c *Client) handleServerStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var status service.StatusInfo
	if err := c.apiCall(ctx, "/api/status", &status); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatStatus(&status)), nil
}

func (c *Client) handleGameHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	params := url.Values{}
	if page, ok := args["page"].(float64); ok {
		params.Set("page", fmt.Sprint(int(page)))
	}
	if limit, ok := args["limit"].(float64); ok {
		params.Set("limit", fmt.Sprint(int(limit)))
	}
	if order, ok := args["order"].(string); ok && order != "" {
		params.Set("order", order)
	}

	path := "/api/history"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, path, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleTileCatalogue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var tiles []service.TileInfo
	if err := c.apiCall(ctx, "/api/tiles", &tiles); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatTiles(tiles)), nil
}

func (c *Client) handleListGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Total int                   `json:"total"`
		Games []service.GameSummary `json:"games"`
	}
	if err := c.apiCall(ctx, "/api/games", &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Finished Games (%d):\n\n", response.Total)
	for _, g := range response.Games {
		winner := "none"
		if g.Winner >= 0 {
			winner = fmt.Sprintf("player %d", g.Winner)
		}
		fmt.Fprintf(&b, "- %s (rules: %s, players: %v, winner: %s, events: %d, duration: %s)\n",
			g.ID, g.Rules, g.Players, winner, g.Events, g.Duration)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func formatStatus(status *service.StatusInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Connected players: %d\n", status.Connected)
	if status.Uptime != "" {
		fmt.Fprintf(&b, "Uptime: %s\n", status.Uptime)
	}
	if status.Rules != nil {
		fmt.Fprintf(&b, "Rules: %s (%dx%d board, up to %d players, hand %d)\n",
			status.Rules.Name, status.Rules.BoardWidth, status.Rules.BoardHeight,
			status.Rules.PlayerLimit, status.Rules.HandSize)
	}

	fmt.Fprintf(&b, "\nQueue (%d):", len(status.Queue))
	for _, p := range status.Queue {
		fmt.Fprintf(&b, " %d", p.ID)
	}
	b.WriteString("\n")

	if !status.InGame {
		b.WriteString("No game running\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Game: %s\n", status.GameID)
	fmt.Fprintf(&b, "Turn order: %v\n", status.TurnOrder)
	fmt.Fprintf(&b, "Lobby (%d):", len(status.Lobby))
	for _, p := range status.Lobby {
		fmt.Fprintf(&b, " %d", p.ID)
	}
	b.WriteString("\n")
	if status.Current >= 0 {
		fmt.Fprintf(&b, "Current player: %d\n", status.Current)
	}
	fmt.Fprintf(&b, "Events so far: %d\n", status.HistoryLength)
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game History (Page %d/%d), Total: %d\n\n",
		history.Page, history.TotalPages, history.TotalEvents)

	if len(history.Events) == 0 {
		b.WriteString("(no events)\n")
		return b.String()
	}

	for i, env := range history.Events {
		num := (history.Page-1)*history.PageSize + i + 1
		fmt.Fprintf(&b, "%d. %s\n", num, describeEvent(env))
	}
	return b.String()
}

func describeEvent(env protocol.Envelope) string {
	msg, err := env.Message()
	if err != nil {
		return env.Type
	}
	switch m := msg.(type) {
	case protocol.PlaceTile:
		return fmt.Sprintf("player %d placed tile %d (rotation %d) at (%d,%d)", m.ID, m.TileID, m.Rotation, m.X, m.Y)
	case protocol.MoveToken:
		return fmt.Sprintf("player %d token at (%d,%d) point %d", m.ID, m.X, m.Y, m.Position)
	case protocol.PlayerEliminated:
		return fmt.Sprintf("player %d eliminated", m.ID)
	default:
		return env.Type
	}
}

func formatTiles(tiles []service.TileInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tile Catalogue (%d tiles):\n\n", len(tiles))
	for _, t := range tiles {
		pairs := make([]string, 0, len(t.Pairs))
		for _, p := range t.Pairs {
			pairs = append(pairs, fmt.Sprintf("%d-%d", p[0], p[1]))
		}
		fmt.Fprintf(&b, "%2d: %s (%d orientations)\n", t.ID, strings.Join(pairs, " "), t.Symmetry)
	}
	return b.String()
}
