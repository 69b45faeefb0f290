package models

import "time"

// Entity is a monitored platform object: a Twitch channel, a Twitter user,
// a YouTube channel or a subreddit. Entities are keyed by (platform,
// identifier) and live only for the duration of the session.
type Entity struct {
	ID          int64     `json:"id"`
	Platform    Platform  `json:"platform"`
	Identifier  string    `json:"identifier"`
	DisplayName string    `json:"display_name,omitempty"`
	AddedAt     time.Time `json:"added_at"`
}

// Ref is a lightweight reference to an entity, usable as a map key.
type Ref struct {
	Platform Platform
	EntityID int64
}

// Ref returns the entity's reference.
func (e *Entity) Ref() Ref {
	return Ref{Platform: e.Platform, EntityID: e.ID}
}
