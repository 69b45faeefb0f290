package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/streamwatch/streamwatch/internal/collect"
	"github.com/streamwatch/streamwatch/internal/credentials"
	"github.com/streamwatch/streamwatch/internal/models"
)

var youtubeAPIBase = "https://www.googleapis.com/youtube/v3"

// YouTubeCollector reads channel statistics and the latest upload from the
// YouTube Data API v3.
type YouTubeCollector struct {
	client *http.Client
	logger *slog.Logger
}

func NewYouTubeCollector(logger *slog.Logger) *YouTubeCollector {
	return &YouTubeCollector{client: newHTTPClient(), logger: logger}
}

func (c *YouTubeCollector) Platform() models.Platform { return models.PlatformYouTube }

type youtubeChannelResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount       string `json:"viewCount"`
			SubscriberCount string `json:"subscriberCount"`
			VideoCount      string `json:"videoCount"`
		} `json:"statistics"`
	} `json:"items"`
}

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

type youtubeVideoResponse struct {
	Items []struct {
		Statistics struct {
			ViewCount string `json:"viewCount"`
			LikeCount string `json:"likeCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// Verify resolves a channel id or handle to its canonical channel id and
// title.
func (c *YouTubeCollector) Verify(ctx context.Context, identifier string, creds credentials.Bundle) (string, string, error) {
	yc, err := apiKeyOf(creds, identifier)
	if err != nil {
		return "", "", err
	}

	ch, err := c.lookupChannel(ctx, yc, identifier)
	if err != nil {
		return "", "", err
	}
	return ch.Items[0].ID, ch.Items[0].Snippet.Title, nil
}

// Fetch reads the channel's current statistics and its most recent video.
func (c *YouTubeCollector) Fetch(ctx context.Context, target collect.Target, creds credentials.Bundle, _ collect.Options) (*models.Snapshot, error) {
	yc, err := apiKeyOf(creds, target.Identifier)
	if err != nil {
		return nil, err
	}

	ch, err := c.lookupChannel(ctx, yc, target.Identifier)
	if err != nil {
		return nil, err
	}
	item := ch.Items[0]

	snapshot := &models.YouTubeChannel{
		SubscriberCount: parseCount(item.Statistics.SubscriberCount),
		TotalViewCount:  parseCount(item.Statistics.ViewCount),
		VideoCount:      parseCount(item.Statistics.VideoCount),
	}

	if err := c.fillLatestVideo(ctx, yc, item.ID, snapshot); err != nil {
		// The channel reading stands on its own when the video lookup
		// fails.
		c.logger.Warn("latest video lookup failed", "channel", target.Identifier, "error", err)
	}

	return &models.Snapshot{
		Platform:    models.PlatformYouTube,
		CollectedAt: time.Now().UTC(),
		YouTube:     snapshot,
	}, nil
}

func (c *YouTubeCollector) lookupChannel(ctx context.Context, yc credentials.YouTube, identifier string) (*youtubeChannelResponse, error) {
	// Raw channel ids start with "UC"; anything else is treated as a handle.
	param := "forHandle=" + url.QueryEscape(strings.TrimPrefix(identifier, "@"))
	if strings.HasPrefix(identifier, "UC") {
		param = "id=" + url.QueryEscape(identifier)
	}

	var ch youtubeChannelResponse
	chURL := fmt.Sprintf("%s/channels?part=snippet,statistics&%s&key=%s", youtubeAPIBase, param, url.QueryEscape(yc.APIKey))
	if err := c.get(ctx, identifier, chURL, &ch); err != nil {
		return nil, err
	}
	if len(ch.Items) == 0 {
		return nil, collect.NotFound(models.PlatformYouTube, identifier, fmt.Errorf("channel not found"))
	}
	return &ch, nil
}

func (c *YouTubeCollector) fillLatestVideo(ctx context.Context, yc credentials.YouTube, channelID string, snapshot *models.YouTubeChannel) error {
	var search youtubeSearchResponse
	searchURL := fmt.Sprintf("%s/search?part=id,snippet&channelId=%s&order=date&maxResults=1&type=video&key=%s",
		youtubeAPIBase, url.QueryEscape(channelID), url.QueryEscape(yc.APIKey))
	if err := c.get(ctx, channelID, searchURL, &search); err != nil {
		return err
	}
	if len(search.Items) == 0 {
		return nil
	}

	videoID := search.Items[0].ID.VideoID
	snapshot.LatestVideoID = videoID
	snapshot.LatestVideoTitle = search.Items[0].Snippet.Title

	var video youtubeVideoResponse
	videoURL := fmt.Sprintf("%s/videos?part=statistics&id=%s&key=%s",
		youtubeAPIBase, url.QueryEscape(videoID), url.QueryEscape(yc.APIKey))
	if err := c.get(ctx, channelID, videoURL, &video); err != nil {
		return err
	}
	if len(video.Items) > 0 {
		snapshot.LatestVideoViews = parseCount(video.Items[0].Statistics.ViewCount)
		snapshot.LatestVideoLikes = parseCount(video.Items[0].Statistics.LikeCount)
	}
	return nil
}

func (c *YouTubeCollector) get(ctx context.Context, target, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return collect.Transient(models.PlatformYouTube, target, err)
	}
	defer resp.Body.Close()

	body := readBody(resp)
	if resp.StatusCode != http.StatusOK {
		return classifyStatus(models.PlatformYouTube, target, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return collect.Transient(models.PlatformYouTube, target, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// parseCount converts the API's string-typed counters; missing or hidden
// counters come back as zero.
func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func apiKeyOf(creds credentials.Bundle, target string) (credentials.YouTube, error) {
	yc, ok := creds.(credentials.YouTube)
	if !ok || yc.APIKey == "" {
		return credentials.YouTube{}, collect.AuthFailure(models.PlatformYouTube, target,
			fmt.Errorf("youtube api key missing"))
	}
	return yc, nil
}
