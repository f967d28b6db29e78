// Package websocket provides the read-only spectator feed.
//
// The Hub observes every broadcast of the session manager and forwards it
// to connected WebSocket clients as JSON:
//
//	{"seq": 42, "type": "place_tile", "data": {"id": 1, "tile_id": 7, ...}}
//
// Seq is the broadcast sequence number. A new spectator first receives the
// catch-up replay of the running game, every message tagged with the
// sequence number the replay covers; after that it receives live events
// with higher numbers only, so nothing is delivered twice.
//
// Architecture:
//
// A single Run loop owns the client set and handles registration,
// unregistration and fan-out. Each client has a write pump, which also
// sends pings, and a read pump that only exists to notice the peer going
// away. Spectators whose buffers fill up are dropped.
//
// Usage:
//
//	hub := websocket.NewHub(manager)
//	manager.AddObserver(hub)
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", hub.ServeWS)
package websocket
