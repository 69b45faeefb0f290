package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/streamwatch/streamwatch/internal/collect"
	"github.com/streamwatch/streamwatch/internal/credentials"
	"github.com/streamwatch/streamwatch/internal/models"
)

var (
	redditTokenURL = "https://www.reddit.com/api/v1/access_token"
	redditAPIBase  = "https://oauth.reddit.com"
)

// RedditCollector reads subreddit state and hot posts through the OAuth
// API using script-app credentials.
type RedditCollector struct {
	client *http.Client
	logger *slog.Logger

	mu          sync.Mutex
	token       string
	tokenSecret string
	tokenExpiry time.Time
}

func NewRedditCollector(logger *slog.Logger) *RedditCollector {
	return &RedditCollector{client: newHTTPClient(), logger: logger}
}

func (c *RedditCollector) Platform() models.Platform { return models.PlatformReddit }

type redditAboutResponse struct {
	Data struct {
		DisplayName    string `json:"display_name"`
		Title          string `json:"title"`
		Subscribers    int64  `json:"subscribers"`
		AccountsActive int64  `json:"accounts_active"`
	} `json:"data"`
}

type redditListingResponse struct {
	Data struct {
		Children []struct {
			Data struct {
				ID          string  `json:"id"`
				Title       string  `json:"title"`
				Author      string  `json:"author"`
				Score       int     `json:"score"`
				NumComments int     `json:"num_comments"`
				UpvoteRatio float64 `json:"upvote_ratio"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Verify resolves a subreddit name to its canonical name and title.
func (c *RedditCollector) Verify(ctx context.Context, identifier string, creds credentials.Bundle) (string, string, error) {
	rc, err := redditCreds(creds, identifier)
	if err != nil {
		return "", "", err
	}

	name := normalizeSubreddit(identifier)
	var about redditAboutResponse
	if err := c.get(ctx, rc, name, fmt.Sprintf("%s/r/%s/about", redditAPIBase, url.PathEscape(name)), &about); err != nil {
		return "", "", err
	}
	if about.Data.DisplayName == "" {
		return "", "", collect.NotFound(models.PlatformReddit, name, fmt.Errorf("subreddit not found"))
	}
	return about.Data.DisplayName, about.Data.Title, nil
}

// Fetch reads subscriber counts and the current hot listing, summarizing
// the top post.
func (c *RedditCollector) Fetch(ctx context.Context, target collect.Target, creds credentials.Bundle, _ collect.Options) (*models.Snapshot, error) {
	rc, err := redditCreds(creds, target.Identifier)
	if err != nil {
		return nil, err
	}
	name := normalizeSubreddit(target.Identifier)

	var about redditAboutResponse
	if err := c.get(ctx, rc, name, fmt.Sprintf("%s/r/%s/about", redditAPIBase, url.PathEscape(name)), &about); err != nil {
		return nil, err
	}
	if about.Data.DisplayName == "" {
		return nil, collect.NotFound(models.PlatformReddit, name, fmt.Errorf("subreddit not found"))
	}

	sub := &models.RedditSubreddit{
		Subscribers: about.Data.Subscribers,
		ActiveUsers: about.Data.AccountsActive,
	}

	var listing redditListingResponse
	if err := c.get(ctx, rc, name, fmt.Sprintf("%s/r/%s/hot?limit=25", redditAPIBase, url.PathEscape(name)), &listing); err != nil {
		// The about reading is a usable snapshot even without the listing.
		c.logger.Warn("hot listing failed", "subreddit", name, "error", err)
	} else {
		sub.PostCount = len(listing.Data.Children)
		top := -1
		for i, child := range listing.Data.Children {
			if top < 0 || child.Data.Score > listing.Data.Children[top].Data.Score {
				top = i
			}
		}
		if top >= 0 {
			p := listing.Data.Children[top].Data
			sub.TopPostID = p.ID
			sub.TopPostTitle = p.Title
			sub.TopPostAuthor = p.Author
			sub.TopPostScore = p.Score
			sub.TopPostComments = p.NumComments
			sub.UpvoteRatio = p.UpvoteRatio
		}
	}

	return &models.Snapshot{
		Platform:    models.PlatformReddit,
		CollectedAt: time.Now().UTC(),
		Reddit:      sub,
	}, nil
}

func (c *RedditCollector) appToken(ctx context.Context, rc credentials.Reddit, target string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.tokenSecret == rc.ClientSecret && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, redditTokenURL,
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(rc.ClientID, rc.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", rc.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", collect.Transient(models.PlatformReddit, target, err)
	}
	defer resp.Body.Close()

	body := readBody(resp)
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(models.PlatformReddit, target, resp.StatusCode, body)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", collect.Transient(models.PlatformReddit, target, fmt.Errorf("decode token: %w", err))
	}

	c.token = tok.AccessToken
	c.tokenSecret = rc.ClientSecret
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second).Add(-time.Minute)
	return c.token, nil
}

func (c *RedditCollector) get(ctx context.Context, rc credentials.Reddit, target, rawURL string, out any) error {
	token, err := c.appToken(ctx, rc, target)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", rc.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return collect.Transient(models.PlatformReddit, target, err)
	}
	defer resp.Body.Close()

	body := readBody(resp)
	if resp.StatusCode != http.StatusOK {
		return classifyStatus(models.PlatformReddit, target, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return collect.Transient(models.PlatformReddit, target, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func normalizeSubreddit(raw string) string {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "/")
	raw = strings.TrimPrefix(raw, "r/")
	return raw
}

func redditCreds(creds credentials.Bundle, target string) (credentials.Reddit, error) {
	rc, ok := creds.(credentials.Reddit)
	if !ok || rc.ClientID == "" || rc.ClientSecret == "" {
		return credentials.Reddit{}, collect.AuthFailure(models.PlatformReddit, target,
			fmt.Errorf("reddit credentials missing or incomplete"))
	}
	if rc.UserAgent == "" {
		rc.UserAgent = "streamwatch/1.0"
	}
	return rc, nil
}
