// Package protocol defines the messages exchanged between the game server
// and its clients, and their wire encoding.
//
// Messages form a closed set; every concrete type implements Message and is
// dispatched with a type switch:
//
//	switch m := msg.(type) {
//	case protocol.PlaceTile:
//		...
//	case protocol.MoveToken:
//		...
//	}
//
// Wire Format:
//
// Each frame is a varint length followed by a body encoded with the protocol
// buffers wire format (no schema compilation involved). Field 1 carries the
// message kind; the remaining fields are the message's integer and string
// arguments. Decode reports how many bytes a complete frame used, or zero
// when the buffer holds only part of one:
//
//	for {
//		msg, n, err := protocol.Decode(buf)
//		if err != nil || n == 0 {
//			break
//		}
//		buf = buf[n:]
//		handle(msg)
//	}
//
// For HTTP, WebSocket and archive output, messages are wrapped in a JSON
// Envelope naming the kind.
package protocol
