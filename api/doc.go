// Package api provides the HTTP status API of the tiles server.
//
// The API is read-only. Players connect over TCP; HTTP serves dashboards,
// scripts and the MCP bridge.
//
// Endpoints:
//
// Live game:
//   - GET /api/status - pools, running game, active rules
//   - GET /api/history - durable events of the running game, paginated
//     (page, limit, order=asc|desc)
//   - GET /api/board - board rebuilt from the history
//
// Archive:
//   - GET /api/games - finished games, newest first
//   - GET /api/games/{id} - one finished game with its event log
//
// Rules:
//   - GET /api/rules - the active rule set
//   - GET /api/configs - available rule presets
//   - GET /api/tiles - the tile catalogue
//
// Other:
//   - GET /ws - spectator WebSocket feed
//   - GET /healthz - liveness probe
//
// Events are encoded as JSON envelopes:
//
//	{"type": "place_tile", "data": {"id": 1, "tile_id": 7, "rotation": 2, "x": 0, "y": 3}}
//
// Errors are returned as JSON with an appropriate status code:
//
//	{"error": "game not found"}
package api
