// Package engine provides the board rules for the tile path game.
//
// The engine package implements the game mechanics including:
//   - The catalogue of 35 path tiles and their rotations
//   - Tile placement rules for first and later turns
//   - Token start positions on the board border
//   - Token movement along connected paths and elimination at the edge
//   - Rule preset validation and loading
//
// Core Types:
//
// The Engine interface defines the contract the game director relies on,
// implemented by Board. Rules carries the tunable parameters of a game
// (board size, player limit, hand size, timings) loaded from JSON presets.
//
// Usage:
//
//	board := engine.NewBoard(5, 5)
//
//	// First turn: place a tile on a border cell
//	ok := board.SetTile(0, 2, 17, 1, playerID)
//
//	// Second turn: choose a start point on the border side of that tile
//	ok = board.SetPlayerStartPosition(playerID, 0, 2, 6)
//
//	// Follow the paths for every live token
//	moves, eliminated := board.AdvanceTokens(liveIDs)
//
// Tile Geometry:
//
// Every tile has eight edge points, two per side, numbered counterclockwise
// starting at the bottom: 0 and 1 on the bottom, 2 and 3 on the right, 4 and 5
// on the top, 6 and 7 on the left. Row 0 is the top row of the board. A tile
// joins its points in four pairs; rotating a tile by one quarter turn maps
// point p to p+2 (mod 8). A token leaving a tile through point p enters the
// neighbouring cell through the facing point (0↔5, 1↔4, 2↔7, 3↔6).
package engine
