// Package tcp is the game listener.
//
// Serve accepts connections and registers each one as a player. Every
// connection gets a read pump and a write pump. Read pumps forward raw
// chunks, or the error that ended the connection, to a single channel that
// Run consumes; Run hands chunks to the player's inbox and disconnects
// players whose connection ended. Run never looks inside the bytes it
// forwards.
//
// Usage:
//
//	srv := tcp.NewServer(manager)
//	ln, err := net.Listen("tcp", tcp.DefaultAddr)
//
//	go srv.Run(ctx)
//	err = srv.Serve(ctx, ln)
//
// Writes go through a bounded outbox per connection. A peer that lets its
// outbox fill up is closed, which the read pump then reports as a
// disconnect.
package tcp
