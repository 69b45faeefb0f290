// Package models defines the domain types shared by the store, the
// scheduler and the platform collectors.
package models

import "fmt"

// Platform identifies a supported social media platform.
type Platform string

const (
	PlatformTwitch  Platform = "twitch"
	PlatformTwitter Platform = "twitter"
	PlatformYouTube Platform = "youtube"
	PlatformReddit  Platform = "reddit"
)

// Platforms returns every supported platform in a stable order.
func Platforms() []Platform {
	return []Platform{PlatformTwitch, PlatformTwitter, PlatformYouTube, PlatformReddit}
}

// Valid reports whether p is a supported platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformTwitch, PlatformTwitter, PlatformYouTube, PlatformReddit:
		return true
	}
	return false
}

// ParsePlatform converts a user-supplied string into a Platform.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(s)
	if !p.Valid() {
		return "", fmt.Errorf("unsupported platform %q", s)
	}
	return p, nil
}
