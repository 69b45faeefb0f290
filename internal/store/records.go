package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/streamwatch/streamwatch/internal/models"
)

// Timestamps are stored as fixed-width RFC 3339 UTC strings so that
// lexicographic order in SQL matches chronological order. RFC3339Nano is
// unsuitable for this: it trims trailing fractional zeros, which makes a
// whole-second timestamp sort after fractional ones in the same second.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AppendRecord persists one snapshot for the referenced entity and returns
// the new record id. Records are append-only; nothing is ever overwritten.
// Returns ErrUnknownEntity when the entity has been deleted, which callers
// racing a deletion treat as a signal to drop the result.
func (s *Store) AppendRecord(ref models.Ref, snap *models.Snapshot) (int64, error) {
	if err := snap.Validate(); err != nil {
		return 0, err
	}
	if snap.Platform != ref.Platform {
		return 0, fmt.Errorf("%s snapshot for %s entity", snap.Platform, ref.Platform)
	}
	ts, err := tablesFor(ref.Platform)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.entityExists(ts, ref.EntityID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrUnknownEntity
	}

	var res sql.Result
	collected := fmtTime(snap.CollectedAt)

	switch ref.Platform {
	case models.PlatformTwitch:
		t := snap.Twitch
		var started any
		if t.StartedAt != nil {
			started = fmtTime(*t.StartedAt)
		}
		res, err = s.db.Exec(`INSERT INTO twitch_stream_records
			(channel_id, collected_at, is_live, title, game_name, viewer_count, started_at, chat_message_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			ref.EntityID, collected, boolToInt(t.Live), t.Title, t.GameName, t.ViewerCount, started, t.ChatMessageCount)
	case models.PlatformTwitter:
		t := snap.Twitter
		res, err = s.db.Exec(`INSERT INTO twitter_activity_records
			(user_id, collected_at, follower_count, tweet_count, latest_tweet_id, latest_tweet_text, like_count, retweet_count, reply_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ref.EntityID, collected, t.FollowerCount, t.TweetCount, t.LatestTweetID, t.LatestTweetText, t.LikeCount, t.RetweetCount, t.ReplyCount)
	case models.PlatformYouTube:
		y := snap.YouTube
		res, err = s.db.Exec(`INSERT INTO youtube_channel_records
			(channel_id, collected_at, subscriber_count, total_view_count, video_count, latest_video_id, latest_video_title, latest_video_views, latest_video_likes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ref.EntityID, collected, y.SubscriberCount, y.TotalViewCount, y.VideoCount, y.LatestVideoID, y.LatestVideoTitle, y.LatestVideoViews, y.LatestVideoLikes)
	case models.PlatformReddit:
		r := snap.Reddit
		res, err = s.db.Exec(`INSERT INTO reddit_subreddit_records
			(subreddit_id, collected_at, subscribers, active_users, post_count, top_post_id, top_post_title, top_post_author, top_post_score, top_post_comments, upvote_ratio)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ref.EntityID, collected, r.Subscribers, r.ActiveUsers, r.PostCount, r.TopPostID, r.TopPostTitle, r.TopPostAuthor, r.TopPostScore, r.TopPostComments, r.UpvoteRatio)
	}
	if err != nil {
		return 0, fmt.Errorf("append %s record: %w", ref.Platform, err)
	}
	return res.LastInsertId()
}

// AppendChatMessages stores chat sub-records under an existing Twitch
// stream record. Empty input is a no-op; an invalid record reference is
// ErrUnknownRecord.
func (s *Store) AppendChatMessages(recordID int64, msgs []models.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var one int
	err := s.db.QueryRow("SELECT 1 FROM twitch_stream_records WHERE id = ?", recordID).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrUnknownRecord
	}
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, m := range msgs {
		if _, err := tx.Exec(
			"INSERT INTO twitch_chat_messages (record_id, author, message, sent_at) VALUES (?, ?, ?, ?)",
			recordID, m.Author, m.Text, fmtTime(m.Timestamp),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("append chat message: %w", err)
		}
	}
	return tx.Commit()
}

// ChatMessages returns the chat sub-records for a stream record, oldest
// first.
func (s *Store) ChatMessages(recordID int64) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		"SELECT author, message, sent_at FROM twitch_chat_messages WHERE record_id = ? ORDER BY sent_at, id",
		recordID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ChatMessage
	for rows.Next() {
		var (
			m    models.ChatMessage
			sent string
		)
		if err := rows.Scan(&m.Author, &m.Text, &sent); err != nil {
			return nil, err
		}
		m.Timestamp = parseTime(sent)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Records returns the entity's snapshot records inside the given time
// range, ascending by collection timestamp.
func (s *Store) Records(ref models.Ref, tr models.TimeRange) ([]models.Record, error) {
	ts, err := tablesFor(ref.Platform)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.entityExists(ts, ref.EntityID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUnknownEntity
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ?", ts.records, ts.entityFK)
	args := []any{ref.EntityID}
	if !tr.From.IsZero() {
		query += " AND collected_at >= ?"
		args = append(args, fmtTime(tr.From))
	}
	if !tr.To.IsZero() {
		query += " AND collected_at <= ?"
		args = append(args, fmtTime(tr.To))
	}
	query += " ORDER BY collected_at, id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		rec, err := scanRecord(ref.Platform, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// LatestRecord returns the most recent record for the entity, or nil when
// none have been collected yet.
func (s *Store) LatestRecord(ref models.Ref) (*models.Record, error) {
	recs, err := s.Records(ref, models.TimeRange{})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[len(recs)-1], nil
}

func scanRecord(platform models.Platform, rows *sql.Rows) (*models.Record, error) {
	rec := models.Record{Snapshot: models.Snapshot{Platform: platform}}
	var collected string

	switch platform {
	case models.PlatformTwitch:
		var (
			t       models.TwitchStream
			live    int
			title   sql.NullString
			game    sql.NullString
			started sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.EntityID, &collected, &live, &title, &game,
			&t.ViewerCount, &started, &t.ChatMessageCount); err != nil {
			return nil, err
		}
		t.Live = live != 0
		t.Title = title.String
		t.GameName = game.String
		if started.Valid {
			st := parseTime(started.String)
			t.StartedAt = &st
		}
		rec.Snapshot.Twitch = &t
	case models.PlatformTwitter:
		var (
			t       models.TwitterActivity
			tweetID sql.NullString
			text    sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.EntityID, &collected, &t.FollowerCount, &t.TweetCount,
			&tweetID, &text, &t.LikeCount, &t.RetweetCount, &t.ReplyCount); err != nil {
			return nil, err
		}
		t.LatestTweetID = tweetID.String
		t.LatestTweetText = text.String
		rec.Snapshot.Twitter = &t
	case models.PlatformYouTube:
		var (
			y       models.YouTubeChannel
			videoID sql.NullString
			title   sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.EntityID, &collected, &y.SubscriberCount, &y.TotalViewCount,
			&y.VideoCount, &videoID, &title, &y.LatestVideoViews, &y.LatestVideoLikes); err != nil {
			return nil, err
		}
		y.LatestVideoID = videoID.String
		y.LatestVideoTitle = title.String
		rec.Snapshot.YouTube = &y
	case models.PlatformReddit:
		var (
			r      models.RedditSubreddit
			postID sql.NullString
			title  sql.NullString
			author sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.EntityID, &collected, &r.Subscribers, &r.ActiveUsers,
			&r.PostCount, &postID, &title, &author, &r.TopPostScore, &r.TopPostComments, &r.UpvoteRatio); err != nil {
			return nil, err
		}
		r.TopPostID = postID.String
		r.TopPostTitle = title.String
		r.TopPostAuthor = author.String
		rec.Snapshot.Reddit = &r
	}

	rec.CollectedAt = parseTime(collected)
	rec.Snapshot.CollectedAt = rec.CollectedAt
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
