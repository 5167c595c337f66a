// Package store implements the authoritative in-memory room state.
//
// Presence is inferred purely from write recency: a user with no accepted
// update within the inactivity threshold is swept from the room. There is no
// join/leave signalling because publishers are background processes that may
// die without notice.
package store
