package models

import (
	"testing"
	"time"
)

func TestSnapshotValidate(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name    string
		snap    Snapshot
		wantErr bool
	}{
		{
			name: "valid twitch",
			snap: Snapshot{Platform: PlatformTwitch, CollectedAt: now, Twitch: &TwitchStream{Live: true}},
		},
		{
			name: "valid reddit",
			snap: Snapshot{Platform: PlatformReddit, CollectedAt: now, Reddit: &RedditSubreddit{}},
		},
		{
			name:    "no payload",
			snap:    Snapshot{Platform: PlatformTwitch, CollectedAt: now},
			wantErr: true,
		},
		{
			name: "two payloads",
			snap: Snapshot{
				Platform: PlatformTwitch, CollectedAt: now,
				Twitch: &TwitchStream{}, Reddit: &RedditSubreddit{},
			},
			wantErr: true,
		},
		{
			name:    "payload on wrong platform",
			snap:    Snapshot{Platform: PlatformTwitter, CollectedAt: now, Twitch: &TwitchStream{}},
			wantErr: true,
		},
		{
			name:    "invalid platform",
			snap:    Snapshot{Platform: "myspace", CollectedAt: now, Twitch: &TwitchStream{}},
			wantErr: true,
		},
		{
			name:    "missing timestamp",
			snap:    Snapshot{Platform: PlatformTwitch, Twitch: &TwitchStream{}},
			wantErr: true,
		},
		{
			name: "chat on non-twitch",
			snap: Snapshot{
				Platform: PlatformReddit, CollectedAt: now, Reddit: &RedditSubreddit{},
				ChatMessages: []ChatMessage{{Author: "a", Text: "b", Timestamp: now}},
			},
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.snap.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParsePlatform(t *testing.T) {
	for _, p := range Platforms() {
		got, err := ParsePlatform(string(p))
		if err != nil || got != p {
			t.Errorf("ParsePlatform(%q) = %v, %v", p, got, err)
		}
	}
	if _, err := ParsePlatform("myspace"); err == nil {
		t.Error("expected error for unsupported platform")
	}
	if _, err := ParsePlatform(""); err == nil {
		t.Error("expected error for empty platform")
	}
}

func TestTimeRangeContains(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tr := TimeRange{From: base, To: base.Add(time.Hour)}

	if !tr.Contains(base) || !tr.Contains(base.Add(time.Hour)) {
		t.Error("bounds should be inclusive")
	}
	if tr.Contains(base.Add(-time.Second)) || tr.Contains(base.Add(time.Hour+time.Second)) {
		t.Error("instants outside the range reported as contained")
	}

	open := TimeRange{}
	if !open.Contains(base) {
		t.Error("zero range should contain everything")
	}
}
