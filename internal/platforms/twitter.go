package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/streamwatch/streamwatch/internal/collect"
	"github.com/streamwatch/streamwatch/internal/credentials"
	"github.com/streamwatch/streamwatch/internal/models"
)

var twitterAPIBase = "https://api.twitter.com/2"

// TwitterCollector reads user profiles and recent tweets from the Twitter
// API v2.
type TwitterCollector struct {
	client *http.Client
	logger *slog.Logger
}

func NewTwitterCollector(logger *slog.Logger) *TwitterCollector {
	return &TwitterCollector{client: newHTTPClient(), logger: logger}
}

func (c *TwitterCollector) Platform() models.Platform { return models.PlatformTwitter }

type twitterUserResponse struct {
	Data struct {
		ID            string `json:"id"`
		Username      string `json:"username"`
		Name          string `json:"name"`
		PublicMetrics struct {
			FollowersCount int `json:"followers_count"`
			TweetCount     int `json:"tweet_count"`
		} `json:"public_metrics"`
	} `json:"data"`
	Errors []struct {
		Title string `json:"title"`
	} `json:"errors"`
}

type twitterTweetsResponse struct {
	Data []struct {
		ID            string    `json:"id"`
		Text          string    `json:"text"`
		CreatedAt     time.Time `json:"created_at"`
		PublicMetrics struct {
			LikeCount    int `json:"like_count"`
			RetweetCount int `json:"retweet_count"`
			ReplyCount   int `json:"reply_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

// Verify resolves a username to its canonical handle and display name.
func (c *TwitterCollector) Verify(ctx context.Context, identifier string, creds credentials.Bundle) (string, string, error) {
	tc, err := bearerOf(creds, identifier)
	if err != nil {
		return "", "", err
	}

	user, err := c.lookupUser(ctx, tc, strings.TrimPrefix(identifier, "@"))
	if err != nil {
		return "", "", err
	}
	return user.Data.Username, user.Data.Name, nil
}

// Fetch reads the user's profile metrics and most recent tweet.
func (c *TwitterCollector) Fetch(ctx context.Context, target collect.Target, creds credentials.Bundle, _ collect.Options) (*models.Snapshot, error) {
	tc, err := bearerOf(creds, target.Identifier)
	if err != nil {
		return nil, err
	}

	user, err := c.lookupUser(ctx, tc, target.Identifier)
	if err != nil {
		return nil, err
	}

	activity := &models.TwitterActivity{
		FollowerCount: user.Data.PublicMetrics.FollowersCount,
		TweetCount:    user.Data.PublicMetrics.TweetCount,
	}

	var tweets twitterTweetsResponse
	tweetsURL := fmt.Sprintf("%s/users/%s/tweets?max_results=5&tweet.fields=public_metrics,created_at",
		twitterAPIBase, url.PathEscape(user.Data.ID))
	if err := c.get(ctx, tc, target.Identifier, tweetsURL, &tweets); err != nil {
		// Profile metrics alone still make a valid snapshot; the tweet
		// detail is additive.
		c.logger.Warn("tweet lookup failed", "user", target.Identifier, "error", err)
	} else if len(tweets.Data) > 0 {
		latest := tweets.Data[0]
		activity.LatestTweetID = latest.ID
		activity.LatestTweetText = latest.Text
		activity.LikeCount = latest.PublicMetrics.LikeCount
		activity.RetweetCount = latest.PublicMetrics.RetweetCount
		activity.ReplyCount = latest.PublicMetrics.ReplyCount
	}

	return &models.Snapshot{
		Platform:    models.PlatformTwitter,
		CollectedAt: time.Now().UTC(),
		Twitter:     activity,
	}, nil
}

func (c *TwitterCollector) lookupUser(ctx context.Context, tc credentials.Twitter, username string) (*twitterUserResponse, error) {
	var user twitterUserResponse
	userURL := fmt.Sprintf("%s/users/by/username/%s?user.fields=public_metrics",
		twitterAPIBase, url.PathEscape(username))
	if err := c.get(ctx, tc, username, userURL, &user); err != nil {
		return nil, err
	}
	if user.Data.ID == "" {
		detail := "user not found"
		if len(user.Errors) > 0 {
			detail = user.Errors[0].Title
		}
		return nil, collect.NotFound(models.PlatformTwitter, username, fmt.Errorf("%s", detail))
	}
	return &user, nil
}

func (c *TwitterCollector) get(ctx context.Context, tc credentials.Twitter, target, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tc.BearerToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return collect.Transient(models.PlatformTwitter, target, err)
	}
	defer resp.Body.Close()

	body := readBody(resp)
	if resp.StatusCode != http.StatusOK {
		return classifyStatus(models.PlatformTwitter, target, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return collect.Transient(models.PlatformTwitter, target, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func bearerOf(creds credentials.Bundle, target string) (credentials.Twitter, error) {
	tc, ok := creds.(credentials.Twitter)
	if !ok || tc.BearerToken == "" {
		return credentials.Twitter{}, collect.AuthFailure(models.PlatformTwitter, target,
			fmt.Errorf("twitter bearer token missing"))
	}
	return tc, nil
}
