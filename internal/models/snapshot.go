package models

import (
	"fmt"
	"time"
)

// Snapshot is one collection result for an entity. Exactly one of the
// platform-specific fields is set, matching Platform. Using one schema per
// platform keeps required fields enforced at construction time instead of
// hiding them in an untyped bag.
type Snapshot struct {
	Platform    Platform  `json:"platform"`
	CollectedAt time.Time `json:"collected_at"`

	Twitch  *TwitchStream    `json:"twitch,omitempty"`
	Twitter *TwitterActivity `json:"twitter,omitempty"`
	YouTube *YouTubeChannel  `json:"youtube,omitempty"`
	Reddit  *RedditSubreddit `json:"reddit,omitempty"`

	// ChatMessages were gathered during this interval, if chat capture was
	// enabled. Persisted as sub-records of the snapshot row.
	ChatMessages []ChatMessage `json:"chat_messages,omitempty"`
}

// Validate checks that the snapshot carries exactly the payload its
// platform tag promises.
func (s *Snapshot) Validate() error {
	if !s.Platform.Valid() {
		return fmt.Errorf("snapshot has invalid platform %q", s.Platform)
	}
	if s.CollectedAt.IsZero() {
		return fmt.Errorf("snapshot has no collection timestamp")
	}

	var set int
	if s.Twitch != nil {
		set++
		if s.Platform != PlatformTwitch {
			return fmt.Errorf("twitch payload on %s snapshot", s.Platform)
		}
	}
	if s.Twitter != nil {
		set++
		if s.Platform != PlatformTwitter {
			return fmt.Errorf("twitter payload on %s snapshot", s.Platform)
		}
	}
	if s.YouTube != nil {
		set++
		if s.Platform != PlatformYouTube {
			return fmt.Errorf("youtube payload on %s snapshot", s.Platform)
		}
	}
	if s.Reddit != nil {
		set++
		if s.Platform != PlatformReddit {
			return fmt.Errorf("reddit payload on %s snapshot", s.Platform)
		}
	}
	if set != 1 {
		return fmt.Errorf("snapshot must carry exactly one platform payload, has %d", set)
	}
	if len(s.ChatMessages) > 0 && s.Platform != PlatformTwitch {
		return fmt.Errorf("chat messages are only collected for twitch")
	}
	return nil
}

// TwitchStream is the per-interval state of a Twitch channel.
type TwitchStream struct {
	Live             bool       `json:"live"`
	Title            string     `json:"title,omitempty"`
	GameName         string     `json:"game_name,omitempty"`
	ViewerCount      int        `json:"viewer_count"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	ChatMessageCount int        `json:"chat_message_count"`
}

// TwitterActivity summarizes a Twitter user's recent activity at
// collection time.
type TwitterActivity struct {
	FollowerCount   int    `json:"follower_count"`
	TweetCount      int    `json:"tweet_count"`
	LatestTweetID   string `json:"latest_tweet_id,omitempty"`
	LatestTweetText string `json:"latest_tweet_text,omitempty"`
	LikeCount       int    `json:"like_count"`
	RetweetCount    int    `json:"retweet_count"`
	ReplyCount      int    `json:"reply_count"`
}

// YouTubeChannel is a point-in-time reading of a YouTube channel.
type YouTubeChannel struct {
	SubscriberCount  int64  `json:"subscriber_count"`
	TotalViewCount   int64  `json:"total_view_count"`
	VideoCount       int64  `json:"video_count"`
	LatestVideoID    string `json:"latest_video_id,omitempty"`
	LatestVideoTitle string `json:"latest_video_title,omitempty"`
	LatestVideoViews int64  `json:"latest_video_views"`
	LatestVideoLikes int64  `json:"latest_video_likes"`
}

// RedditSubreddit is a point-in-time reading of a subreddit.
type RedditSubreddit struct {
	Subscribers     int64   `json:"subscribers"`
	ActiveUsers     int64   `json:"active_users"`
	PostCount       int     `json:"post_count"`
	TopPostID       string  `json:"top_post_id,omitempty"`
	TopPostTitle    string  `json:"top_post_title,omitempty"`
	TopPostAuthor   string  `json:"top_post_author,omitempty"`
	TopPostScore    int     `json:"top_post_score"`
	TopPostComments int     `json:"top_post_comments"`
	UpvoteRatio     float64 `json:"upvote_ratio"`
}

// ChatMessage is a single chat line captured during a collection interval.
type ChatMessage struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Record is a persisted snapshot row.
type Record struct {
	ID          int64     `json:"id"`
	EntityID    int64     `json:"entity_id"`
	CollectedAt time.Time `json:"collected_at"`
	Snapshot    Snapshot  `json:"snapshot"`
}
