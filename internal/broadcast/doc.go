// Package broadcast implements the WebSocket fan-out hub using the actor pattern.
//
// A single goroutine owns the subscriber set and processes typed commands from
// a channel (no mutexes). Every accepted update is fanned out to all connected
// subscribers, including the one that originated it; subscribers apply updates
// idempotently, so self-delivery is harmless. Per-connection write goroutines
// isolate slow clients: a subscriber with a full send buffer is dropped
// without delaying the rest.
package broadcast
