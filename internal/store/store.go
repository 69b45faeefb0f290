// Package store implements the session-scoped relational store. It keeps
// all monitored entities and their snapshot records in an in-memory SQLite
// database that lives exactly as long as the session. Export is the only
// way data leaves it.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/streamwatch/streamwatch/internal/models"
	_ "modernc.org/sqlite"
)

// Sentinel errors for structural misuse. These indicate a broken caller
// invariant and are never swallowed.
var (
	ErrAlreadyExists = errors.New("entity already exists")
	ErrUnknownEntity = errors.New("unknown entity")
	ErrUnknownRecord = errors.New("unknown record")
)

// DeleteHook is invoked after an entity and its records have been removed,
// so the scheduler can cancel the matching job without the store knowing
// scheduler internals.
type DeleteHook func(ref models.Ref)

// Store is the single-writer session database. All mutating operations are
// serialized behind one mutex: AddEntity's idempotency check and
// AppendRecord's existence check are check-then-act and must not race.
type Store struct {
	mu       sync.Mutex
	db       *sql.DB
	onDelete DeleteHook
}

// Open creates a fresh in-memory database with the full schema.
func Open() (*Store, error) {
	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}

	// Every new connection to :memory: would see an empty database, so the
	// pool is pinned to a single connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping session db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// SetDeleteHook registers the callback fired by DeleteEntity.
func (s *Store) SetDeleteHook(hook DeleteHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDelete = hook
}

// Close tears the database down. All session data is discarded.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS twitch_channels (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  channel_name TEXT UNIQUE NOT NULL,
  display_name TEXT,
  added_at     TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS twitch_stream_records (
  id                 INTEGER PRIMARY KEY AUTOINCREMENT,
  channel_id         INTEGER NOT NULL REFERENCES twitch_channels(id) ON DELETE CASCADE,
  collected_at       TIMESTAMP NOT NULL,
  is_live            INTEGER NOT NULL,
  title              TEXT,
  game_name          TEXT,
  viewer_count       INTEGER NOT NULL,
  started_at         TIMESTAMP,
  chat_message_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_twitch_records_channel ON twitch_stream_records(channel_id, collected_at);
CREATE TABLE IF NOT EXISTS twitch_chat_messages (
  id        INTEGER PRIMARY KEY AUTOINCREMENT,
  record_id INTEGER NOT NULL REFERENCES twitch_stream_records(id) ON DELETE CASCADE,
  author    TEXT NOT NULL,
  message   TEXT NOT NULL,
  sent_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_twitch_chat_record ON twitch_chat_messages(record_id);

CREATE TABLE IF NOT EXISTS twitter_users (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  username     TEXT UNIQUE NOT NULL,
  display_name TEXT,
  added_at     TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS twitter_activity_records (
  id                INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id           INTEGER NOT NULL REFERENCES twitter_users(id) ON DELETE CASCADE,
  collected_at      TIMESTAMP NOT NULL,
  follower_count    INTEGER NOT NULL,
  tweet_count       INTEGER NOT NULL,
  latest_tweet_id   TEXT,
  latest_tweet_text TEXT,
  like_count        INTEGER NOT NULL,
  retweet_count     INTEGER NOT NULL,
  reply_count       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_twitter_records_user ON twitter_activity_records(user_id, collected_at);

CREATE TABLE IF NOT EXISTS youtube_channels (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  channel_id   TEXT UNIQUE NOT NULL,
  display_name TEXT,
  added_at     TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS youtube_channel_records (
  id                 INTEGER PRIMARY KEY AUTOINCREMENT,
  channel_id         INTEGER NOT NULL REFERENCES youtube_channels(id) ON DELETE CASCADE,
  collected_at       TIMESTAMP NOT NULL,
  subscriber_count   INTEGER NOT NULL,
  total_view_count   INTEGER NOT NULL,
  video_count        INTEGER NOT NULL,
  latest_video_id    TEXT,
  latest_video_title TEXT,
  latest_video_views INTEGER NOT NULL,
  latest_video_likes INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_youtube_records_channel ON youtube_channel_records(channel_id, collected_at);

CREATE TABLE IF NOT EXISTS reddit_subreddits (
  id             INTEGER PRIMARY KEY AUTOINCREMENT,
  subreddit_name TEXT UNIQUE NOT NULL,
  display_name   TEXT,
  added_at       TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS reddit_subreddit_records (
  id                INTEGER PRIMARY KEY AUTOINCREMENT,
  subreddit_id      INTEGER NOT NULL REFERENCES reddit_subreddits(id) ON DELETE CASCADE,
  collected_at      TIMESTAMP NOT NULL,
  subscribers       INTEGER NOT NULL,
  active_users      INTEGER NOT NULL,
  post_count        INTEGER NOT NULL,
  top_post_id       TEXT,
  top_post_title    TEXT,
  top_post_author   TEXT,
  top_post_score    INTEGER NOT NULL,
  top_post_comments INTEGER NOT NULL,
  upvote_ratio      REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reddit_records_subreddit ON reddit_subreddit_records(subreddit_id, collected_at);
`

// tableSet describes the pair of tables backing one platform.
type tableSet struct {
	entities      string
	identifierCol string
	records       string
	entityFK      string
	// metricCols are the numeric snapshot columns aggregated by Statistics.
	metricCols []string
}

var tables = map[models.Platform]tableSet{
	models.PlatformTwitch: {
		entities:      "twitch_channels",
		identifierCol: "channel_name",
		records:       "twitch_stream_records",
		entityFK:      "channel_id",
		metricCols:    []string{"viewer_count", "chat_message_count"},
	},
	models.PlatformTwitter: {
		entities:      "twitter_users",
		identifierCol: "username",
		records:       "twitter_activity_records",
		entityFK:      "user_id",
		metricCols:    []string{"follower_count", "like_count", "retweet_count"},
	},
	models.PlatformYouTube: {
		entities:      "youtube_channels",
		identifierCol: "channel_id",
		records:       "youtube_channel_records",
		entityFK:      "channel_id",
		metricCols:    []string{"subscriber_count", "total_view_count", "latest_video_views"},
	},
	models.PlatformReddit: {
		entities:      "reddit_subreddits",
		identifierCol: "subreddit_name",
		records:       "reddit_subreddit_records",
		entityFK:      "subreddit_id",
		metricCols:    []string{"subscribers", "active_users", "top_post_score"},
	},
}

func tablesFor(p models.Platform) (tableSet, error) {
	ts, ok := tables[p]
	if !ok {
		return tableSet{}, fmt.Errorf("unknown platform: %q", p)
	}
	return ts, nil
}
