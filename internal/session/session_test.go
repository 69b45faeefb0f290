package session

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/streamwatch/streamwatch/internal/collect"
	"github.com/streamwatch/streamwatch/internal/config"
	"github.com/streamwatch/streamwatch/internal/credentials"
	"github.com/streamwatch/streamwatch/internal/models"
)

// verifyOnlyCollector satisfies Verify without touching the network.
type verifyOnlyCollector struct {
	platform models.Platform
}

func (c verifyOnlyCollector) Platform() models.Platform { return c.platform }

func (c verifyOnlyCollector) Fetch(ctx context.Context, target collect.Target, creds credentials.Bundle, opts collect.Options) (*models.Snapshot, error) {
	return nil, collect.Transient(c.platform, target.Identifier, nil)
}

func (c verifyOnlyCollector) Verify(ctx context.Context, identifier string, creds credentials.Bundle) (string, string, error) {
	return identifier, "Display " + identifier, nil
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	cfg := config.MonitorConfig{
		TickInterval:       30 * time.Second,
		DefaultJobInterval: 15 * time.Minute,
		ChatWindow:         time.Minute,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWatch_RequiresCredentials(t *testing.T) {
	s := newTestSession(t)

	_, err := s.Watch(context.Background(), models.PlatformTwitch, "ninja", 0, false)
	if err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestWatch_CreatesEntityAndJob(t *testing.T) {
	s := newTestSession(t)
	s.Credentials.Set(credentials.Twitch{ClientID: "id", ClientSecret: "secret"})
	s.collectors[models.PlatformTwitch] = verifyOnlyCollector{platform: models.PlatformTwitch}

	job, err := s.Watch(context.Background(), models.PlatformTwitch, "ninja", 0, false)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	if job.Interval != 15*time.Minute {
		t.Errorf("expected default interval, got %v", job.Interval)
	}
	if job.Identifier != "ninja" {
		t.Errorf("identifier = %s", job.Identifier)
	}

	entity, err := s.Store.Entity(models.PlatformTwitch, "ninja")
	if err != nil {
		t.Fatalf("entity not stored: %v", err)
	}
	if entity.DisplayName != "Display ninja" {
		t.Errorf("display name = %s", entity.DisplayName)
	}

	// Watching the same identifier again reuses the entity and job.
	again, err := s.Watch(context.Background(), models.PlatformTwitch, "ninja", 5*time.Minute, false)
	if err != nil {
		t.Fatalf("second watch: %v", err)
	}
	if again.ID != job.ID {
		t.Error("second watch created a duplicate job")
	}
	if again.Interval != 5*time.Minute {
		t.Errorf("interval not updated: %v", again.Interval)
	}
}

func TestUnwatch_RemovesEntityAndJob(t *testing.T) {
	s := newTestSession(t)
	s.Credentials.Set(credentials.Twitch{ClientID: "id", ClientSecret: "secret"})
	s.collectors[models.PlatformTwitch] = verifyOnlyCollector{platform: models.PlatformTwitch}

	job, err := s.Watch(context.Background(), models.PlatformTwitch, "ninja", 0, false)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	if err := s.Unwatch(job.Ref()); err != nil {
		t.Fatalf("unwatch: %v", err)
	}
	if _, ok := s.Scheduler.JobForEntity(job.Ref()); ok {
		t.Error("job survived unwatch")
	}
	if _, err := s.Store.EntityByID(job.Ref()); err == nil {
		t.Error("entity survived unwatch")
	}
}

func TestTick_NoJobs(t *testing.T) {
	s := newTestSession(t)
	if got := s.Tick(context.Background(), time.Now()); got != nil {
		t.Errorf("expected no outcomes, got %+v", got)
	}
}

func TestClose_WipesCredentials(t *testing.T) {
	cfg := config.MonitorConfig{DefaultJobInterval: time.Minute}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	s.Credentials.Set(credentials.Twitter{BearerToken: "secret"})
	s.Credentials.SetOpenAIKey("sk-test")

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, ok := s.Credentials.Get(models.PlatformTwitter); ok {
		t.Error("platform credentials survived close")
	}
	if _, ok := s.Credentials.OpenAIKey(); ok {
		t.Error("analyzer key survived close")
	}
}
