// Package service runs games and exposes their state to the outer surfaces.
//
// The service package implements:
//   - Lobby formation from the Queue with a countdown
//   - The turn loop: deal, announce, await a move, apply, advance tokens,
//     rotate, eliminate, end
//   - Fallback moves for players who run out of time
//   - Board reconstruction from the broadcast stream
//   - Read-only status, history and archive queries for HTTP and MCP
//
// Core Types:
//
// Director owns the board of the running game and drives the pools through
// the Pools interface, implemented by session.Manager. GameService answers
// status queries for the API and MCP layers. Mirror folds protocol messages
// into a board the way a client would.
//
// Usage:
//
//	pools := session.NewManager()
//	director := service.NewDirector(pools, engine.DefaultRules(),
//		service.WithArchive(archive))
//
//	go director.Run(ctx)
//
// Turn Flow:
//
// The head of the Lobby is the current player. A turn ends when the player
// makes an accepted move, when the turn deadline passes (a fallback move is
// played for them) or when they disconnect. Rejected moves are ignored and
// the same player may try again before the deadline. The game ends when at
// most one player is left in the Lobby; everyone returns to the Queue.
package service
