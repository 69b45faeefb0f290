package platforms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/streamwatch/streamwatch/internal/collect"
	"github.com/streamwatch/streamwatch/internal/credentials"
	"github.com/streamwatch/streamwatch/internal/models"
)

func testTwitterServer(t *testing.T, tweetsBody string) *TwitterCollector {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/users/by/username/spez", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"data":{"id":"42","username":"spez","name":"Steve","public_metrics":{"followers_count":900000,"tweet_count":1234}}}`))
	})
	mux.HandleFunc("/users/by/username/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"title":"Not Found Error"}]}`))
	})
	mux.HandleFunc("/users/42/tweets", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(tweetsBody))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	orig := twitterAPIBase
	twitterAPIBase = srv.URL
	t.Cleanup(func() { twitterAPIBase = orig })

	return NewTwitterCollector(discardLogger())
}

func TestTwitterVerify(t *testing.T) {
	c := testTwitterServer(t, `{"data":[]}`)
	creds := credentials.Twitter{BearerToken: "token"}

	username, name, err := c.Verify(context.Background(), "@spez", creds)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if username != "spez" || name != "Steve" {
		t.Errorf("got (%q, %q)", username, name)
	}

	_, _, err = c.Verify(context.Background(), "nobody", creds)
	if collect.ClassOf(err) != collect.ClassNotFound {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestTwitterFetch(t *testing.T) {
	c := testTwitterServer(t,
		`{"data":[{"id":"t1","text":"hello world","public_metrics":{"like_count":10,"retweet_count":2,"reply_count":1}}]}`)

	snap, err := c.Fetch(context.Background(),
		collect.Target{Platform: models.PlatformTwitter, Identifier: "spez"},
		credentials.Twitter{BearerToken: "token"}, collect.Options{})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if err := snap.Validate(); err != nil {
		t.Fatalf("invalid snapshot: %v", err)
	}

	a := snap.Twitter
	if a.FollowerCount != 900000 || a.TweetCount != 1234 {
		t.Errorf("unexpected profile metrics: %+v", a)
	}
	if a.LatestTweetID != "t1" || a.LatestTweetText != "hello world" {
		t.Errorf("unexpected latest tweet: %+v", a)
	}
	if a.LikeCount != 10 || a.RetweetCount != 2 || a.ReplyCount != 1 {
		t.Errorf("unexpected tweet metrics: %+v", a)
	}
}

// A failed tweet lookup degrades the snapshot instead of failing the run.
func TestTwitterFetch_TweetLookupFailureIsNotFatal(t *testing.T) {
	c := testTwitterServer(t, `{not json`)

	snap, err := c.Fetch(context.Background(),
		collect.Target{Platform: models.PlatformTwitter, Identifier: "spez"},
		credentials.Twitter{BearerToken: "token"}, collect.Options{})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if snap.Twitter.FollowerCount != 900000 {
		t.Errorf("profile metrics lost: %+v", snap.Twitter)
	}
	if snap.Twitter.LatestTweetID != "" {
		t.Errorf("unexpected tweet detail: %+v", snap.Twitter)
	}
}

func TestTwitterFetch_BadToken(t *testing.T) {
	c := testTwitterServer(t, `{"data":[]}`)

	_, err := c.Fetch(context.Background(),
		collect.Target{Platform: models.PlatformTwitter, Identifier: "spez"},
		credentials.Twitter{BearerToken: "wrong"}, collect.Options{})
	if collect.ClassOf(err) != collect.ClassAuthFailure {
		t.Errorf("expected auth failure, got %v", err)
	}
}
