package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/streamwatch/streamwatch/internal/config"
	"github.com/streamwatch/streamwatch/internal/models"
	"github.com/streamwatch/streamwatch/internal/session"
)

func newTestMux(t *testing.T) (*http.ServeMux, *session.Session) {
	t.Helper()

	cfg := config.MonitorConfig{
		TickInterval:       30 * time.Second,
		DefaultJobInterval: 15 * time.Minute,
		ChatWindow:         time.Minute,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sess, err := session.New(cfg, logger)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { sess.Close() })

	mux := http.NewServeMux()
	SetupRoutes(mux, sess, config.AnalysisConfig{Model: "gpt-4o-mini"}, logger)
	return mux, sess
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("unexpected body: %v", resp)
	}
}

func TestListEntities_Empty(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/entities", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 0 {
		t.Errorf("count = %d", resp.Count)
	}
}

func TestWatch_BadRequests(t *testing.T) {
	mux, _ := newTestMux(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", "{", http.StatusBadRequest},
		{"bad platform", `{"platform":"myspace","identifier":"x"}`, http.StatusBadRequest},
		{"missing identifier", `{"platform":"twitch"}`, http.StatusBadRequest},
		{"no credentials", `{"platform":"twitch","identifier":"ninja"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, mux, http.MethodPost, "/api/entities", tc.body)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestEntity_NotFound(t *testing.T) {
	mux, _ := newTestMux(t)

	for _, path := range []string{
		"/api/entities/twitch/99",
		"/api/entities/twitch/99/records",
		"/api/entities/twitch/99/statistics",
	} {
		rec := doJSON(t, mux, http.MethodGet, path, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, rec.Code)
		}
	}

	rec := doJSON(t, mux, http.MethodGet, "/api/entities/myspace/1", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad platform: status = %d, want 400", rec.Code)
	}
}

func TestEntityWithRecords(t *testing.T) {
	mux, sess := newTestMux(t)

	e, err := sess.Store.AddEntity(models.PlatformReddit, "golang", "r/golang")
	if err != nil {
		t.Fatalf("add entity: %v", err)
	}
	snap := &models.Snapshot{
		Platform:    models.PlatformReddit,
		CollectedAt: time.Now().UTC(),
		Reddit:      &models.RedditSubreddit{Subscribers: 250000},
	}
	if _, err := sess.Store.AppendRecord(e.Ref(), snap); err != nil {
		t.Fatalf("append record: %v", err)
	}

	rec := doJSON(t, mux, http.MethodGet, "/api/entities/reddit/1/records", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("records status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("record count = %d", resp.Count)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/entities/reddit/1/statistics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("statistics status = %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodDelete, "/api/entities/reddit/1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, mux, http.MethodGet, "/api/entities/reddit/1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("entity still reachable after delete: %d", rec.Code)
	}
}

func TestRecords_BadTimeRange(t *testing.T) {
	mux, sess := newTestMux(t)
	if _, err := sess.Store.AddEntity(models.PlatformTwitch, "ninja", ""); err != nil {
		t.Fatalf("add entity: %v", err)
	}

	rec := doJSON(t, mux, http.MethodGet, "/api/entities/twitch/1/records?from=yesterday", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCredentialsLifecycle(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/credentials",
		`{"platform":"twitter","bearer_token":"tok"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("set status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/credentials", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status status = %d", rec.Code)
	}
	var status struct {
		Platforms map[string]bool `json:"platforms"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !status.Platforms["twitter"] || status.Platforms["twitch"] {
		t.Errorf("unexpected status: %+v", status.Platforms)
	}
	if strings.Contains(rec.Body.String(), "tok") {
		t.Error("credential value leaked in status response")
	}

	rec = doJSON(t, mux, http.MethodDelete, "/api/credentials/twitter", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/credentials",
		`{"platform":"twitter"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("incomplete credentials accepted: %d", rec.Code)
	}
}

func TestAnalyze_RuleFallback(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/analyze",
		`{"texts":["this stream is awesome","boring trash","hello"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var sum struct {
		Analyzed int `json:"analyzed"`
		Positive int `json:"positive"`
		Negative int `json:"negative"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.Analyzed != 3 || sum.Positive != 1 || sum.Negative != 1 {
		t.Errorf("unexpected summary: %+v", sum)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/analyze", `{"texts":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty batch accepted: %d", rec.Code)
	}
}

func TestJobs_EmptyAndUnknown(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/jobs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/jobs/nope/pause", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("pause unknown job: status = %d", rec.Code)
	}
	rec = doJSON(t, mux, http.MethodDelete, "/api/jobs/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete unknown job: status = %d", rec.Code)
	}
}

func TestStatsAndExport(t *testing.T) {
	mux, sess := newTestMux(t)
	if _, err := sess.Store.AddEntity(models.PlatformTwitch, "ninja", ""); err != nil {
		t.Fatalf("add entity: %v", err)
	}

	rec := doJSON(t, mux, http.MethodGet, "/api/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "twitch_channels") {
		t.Errorf("stats missing table counts: %s", rec.Body.String())
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "INSERT INTO twitch_channels") {
		t.Error("export missing entity row")
	}
}
