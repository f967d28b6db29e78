// Package session tracks connected players and the pools they move through.
//
// The session package implements:
//   - Player id allocation (smallest free id, reused after departure)
//   - The Queue of waiting players and the Lobby of the current game
//   - Join announcements and catch-up replay for late joiners
//   - Disconnect handling with departure and elimination notices
//   - The durable event history of the running game
//   - Archives of finished games (JSON files or SQLite)
//
// Core Types:
//
// Manager owns all pool state behind a single mutex. Player is one
// connection with its inbox, decode buffer and hand. History is the ordered
// log of durable events that a late joiner needs to rebuild the board.
// GameArchive stores finished games as GameRecord values.
//
// Pools:
//
// Every connected player is in exactly one of the Queue or the Lobby. The
// head of the Lobby is the player whose move is awaited; after each move the
// head rotates to the tail. Eliminated players and the survivors of a
// finished game return to the tail of the Queue.
//
// Concurrency:
//
// Every Manager method is atomic. Broadcasts are issued while the lock is
// held, so a late joiner's replay and the live broadcasts that follow it
// never overlap or leave gaps. Sending never blocks: frames are queued on
// each connection and written by the transport.
//
// Usage:
//
//	manager := session.NewManager()
//
//	// Register a connection
//	player, err := manager.Join(conn)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Later, when the connection closes
//	manager.Disconnect(player)
package session
