package domain

import "time"

// Platform tags describing where a detection came from. Display-only; the
// store never interprets them.
const (
	PlatformSpotify = "spotify"
	PlatformNetease = "netease"
	PlatformUnknown = "unknown"
)

// StateUpdate is a single "now playing" report from a publisher. An empty
// Song means nothing is currently playing. ArtURL is empty when no cover art
// is available.
type StateUpdate struct {
	User     string `json:"user"`
	Song     string `json:"song"`
	Platform string `json:"platform"`
	ArtURL   string `json:"artUrl,omitempty"`
}

// UserState is the latest accepted state for one user, stamped with the time
// the update was applied. Updates replace the whole record; there are no
// partial updates.
type UserState struct {
	User     string
	Song     string
	Platform string
	ArtURL   string
	LastSeen time.Time
}
