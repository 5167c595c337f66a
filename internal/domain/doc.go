// Package domain defines the core domain types and shared errors.
//
// This package contains the state update and user state records exchanged
// between publishers, the store, and the transports. No implementation code -
// just contracts. Prevents circular imports by keeping shared types here.
package domain
