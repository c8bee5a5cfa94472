// Package websocket streams operation progress to browser clients.
//
// A Hub fans every operations.Event out to the connected clients as a JSON
// envelope:
//
//	{"type": "step:completed", "data": {...}, "timestamp": "...", "trace_id": "..."}
//
// Clients are read-only; anything they send is discarded.
package websocket
