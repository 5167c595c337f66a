// Package server implements the HTTP surface using the Echo framework.
//
// Pull transport: POST /update_state and GET /get_state. Push transport:
// GET /ws upgraded to a WebSocket pub/sub connection. Observability:
// /health/live, /health/ready, /metrics.
package server
