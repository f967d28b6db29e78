// Package mcp exposes the tiles server status API as Model Context Protocol
// tools.
//
// The Client holds no game state. Each tool call is a GET against the REST
// API in package api and the JSON answer is formatted as text for the agent.
//
// MCP Tools:
//   - server_status: queue, lobby, turn order and current player
//   - game_history: events of the running game with pagination
//   - tile_catalogue: the tile set and its symmetry classes
//   - list_games: finished games from the archive
//
// Transport Modes:
//
// The same server is reachable over stdio through the "mcp" subcommand and
// over streamable HTTP at /mcp on the status listener.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
