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
	twitchTokenURL = "https://id.twitch.tv/oauth2/token"
	twitchAPIBase  = "https://api.twitch.tv/helix"
)

// TwitchCollector reads channel and stream state from the Helix API and
// optionally captures chat over IRC during the collection interval.
type TwitchCollector struct {
	client *http.Client
	logger *slog.Logger

	mu          sync.Mutex
	token       string
	tokenSecret string // client secret the token was issued for
	tokenExpiry time.Time
}

// NewTwitchCollector returns a collector using a default HTTP client.
func NewTwitchCollector(logger *slog.Logger) *TwitchCollector {
	return &TwitchCollector{client: newHTTPClient(), logger: logger}
}

func (c *TwitchCollector) Platform() models.Platform { return models.PlatformTwitch }

type twitchUserResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Login       string `json:"login"`
		DisplayName string `json:"display_name"`
	} `json:"data"`
}

type twitchStreamResponse struct {
	Data []struct {
		Title       string    `json:"title"`
		GameName    string    `json:"game_name"`
		ViewerCount int       `json:"viewer_count"`
		StartedAt   time.Time `json:"started_at"`
	} `json:"data"`
}

// Verify resolves a channel login to its canonical login and display name.
func (c *TwitchCollector) Verify(ctx context.Context, identifier string, creds credentials.Bundle) (string, string, error) {
	tc, err := c.twitchCreds(identifier, creds)
	if err != nil {
		return "", "", err
	}

	login := strings.ToLower(strings.TrimPrefix(identifier, "@"))
	var users twitchUserResponse
	if err := c.get(ctx, tc, login, twitchAPIBase+"/users?login="+url.QueryEscape(login), &users); err != nil {
		return "", "", err
	}
	if len(users.Data) == 0 {
		return "", "", collect.NotFound(models.PlatformTwitch, login, fmt.Errorf("channel not found"))
	}
	return users.Data[0].Login, users.Data[0].DisplayName, nil
}

// Fetch reads the channel's current stream state. When chat capture is
// requested and the channel is live, it joins the channel's IRC room and
// gathers messages for the configured window before returning.
func (c *TwitchCollector) Fetch(ctx context.Context, target collect.Target, creds credentials.Bundle, opts collect.Options) (*models.Snapshot, error) {
	tc, err := c.twitchCreds(target.Identifier, creds)
	if err != nil {
		return nil, err
	}

	var streams twitchStreamResponse
	if err := c.get(ctx, tc, target.Identifier,
		twitchAPIBase+"/streams?user_login="+url.QueryEscape(target.Identifier), &streams); err != nil {
		return nil, err
	}

	stream := &models.TwitchStream{}
	if len(streams.Data) > 0 {
		d := streams.Data[0]
		started := d.StartedAt
		stream.Live = true
		stream.Title = d.Title
		stream.GameName = d.GameName
		stream.ViewerCount = d.ViewerCount
		stream.StartedAt = &started
	}

	snap := &models.Snapshot{
		Platform:    models.PlatformTwitch,
		CollectedAt: time.Now().UTC(),
		Twitch:      stream,
	}

	if opts.CaptureChat && stream.Live {
		msgs, err := captureChat(ctx, target.Identifier, opts.ChatWindow, c.logger)
		if err != nil {
			// Chat is a best-effort sub-collection; a failed capture does
			// not invalidate the stream snapshot.
			c.logger.Warn("chat capture failed", "channel", target.Identifier, "error", err)
		}
		snap.ChatMessages = msgs
		stream.ChatMessageCount = len(msgs)
	}

	return snap, nil
}

func (c *TwitchCollector) twitchCreds(target string, creds credentials.Bundle) (credentials.Twitch, error) {
	tc, ok := creds.(credentials.Twitch)
	if !ok || tc.ClientID == "" || tc.ClientSecret == "" {
		return credentials.Twitch{}, collect.AuthFailure(models.PlatformTwitch, target,
			fmt.Errorf("twitch credentials missing or incomplete"))
	}
	return tc, nil
}

// appToken returns a cached app access token, requesting a fresh one when
// expired or when the credentials changed since it was issued.
func (c *TwitchCollector) appToken(ctx context.Context, tc credentials.Twitch, target string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.tokenSecret == tc.ClientSecret && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{
		"client_id":     {tc.ClientID},
		"client_secret": {tc.ClientSecret},
		"grant_type":    {"client_credentials"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, twitchTokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", collect.Transient(models.PlatformTwitch, target, err)
	}
	defer resp.Body.Close()

	body := readBody(resp)
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(models.PlatformTwitch, target, resp.StatusCode, body)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", collect.Transient(models.PlatformTwitch, target, fmt.Errorf("decode token: %w", err))
	}

	c.token = tok.AccessToken
	c.tokenSecret = tc.ClientSecret
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second).Add(-time.Minute)
	return c.token, nil
}

func (c *TwitchCollector) get(ctx context.Context, tc credentials.Twitch, target, rawURL string, out any) error {
	token, err := c.appToken(ctx, tc, target)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Client-Id", tc.ClientID)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return collect.Transient(models.PlatformTwitch, target, err)
	}
	defer resp.Body.Close()

	body := readBody(resp)
	if resp.StatusCode != http.StatusOK {
		return classifyStatus(models.PlatformTwitch, target, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return collect.Transient(models.PlatformTwitch, target, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
