// Package credentials holds the session-scoped API credential context.
// Credentials live only in memory for the lifetime of one session and are
// read by the scheduler at execution time, never cached on a job.
package credentials

import (
	"sync"

	"github.com/streamwatch/streamwatch/internal/models"
)

// Bundle is an opaque per-platform credential set. Collectors assert the
// concrete type for their platform.
type Bundle interface {
	Platform() models.Platform
}

// Twitch holds Twitch Helix application credentials.
type Twitch struct {
	ClientID     string
	ClientSecret string
}

func (Twitch) Platform() models.Platform { return models.PlatformTwitch }

// Twitter holds a Twitter API v2 bearer token.
type Twitter struct {
	BearerToken string
}

func (Twitter) Platform() models.Platform { return models.PlatformTwitter }

// YouTube holds a YouTube Data API v3 key.
type YouTube struct {
	APIKey string
}

func (YouTube) Platform() models.Platform { return models.PlatformYouTube }

// Reddit holds Reddit script-app credentials.
type Reddit struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
}

func (Reddit) Platform() models.Platform { return models.PlatformReddit }

// Context is the explicit session credential container. It replaces the
// ambient per-session globals of older designs: constructed at session
// start, passed by reference, cleared at teardown.
type Context struct {
	mu     sync.RWMutex
	byPlat map[models.Platform]Bundle
	openAI string
}

// NewContext returns an empty credential context.
func NewContext() *Context {
	return &Context{byPlat: make(map[models.Platform]Bundle)}
}

// Set stores the bundle for its platform, replacing any previous value.
func (c *Context) Set(b Bundle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byPlat[b.Platform()] = b
}

// Get returns the current bundle for a platform. The second return value
// is false when no credentials have been supplied.
func (c *Context) Get(p models.Platform) (Bundle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.byPlat[p]
	return b, ok
}

// Remove deletes the bundle for a platform.
func (c *Context) Remove(p models.Platform) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byPlat, p)
}

// SetOpenAIKey stores the API key used by the sentiment analyzer.
func (c *Context) SetOpenAIKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openAI = key
}

// OpenAIKey returns the sentiment analyzer key, if set.
func (c *Context) OpenAIKey() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.openAI, c.openAI != ""
}

// Clear wipes every stored credential. Called at session teardown so no
// secret outlives the session.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byPlat = make(map[models.Platform]Bundle)
	c.openAI = ""
}
