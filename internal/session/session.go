// Package session ties the store, scheduler and credential context into
// one explicitly-scoped object. A Session is constructed at session start,
// passed by reference to everything that needs it, and torn down at the
// end: no ambient globals, no data surviving Close.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/streamwatch/streamwatch/internal/collect"
	"github.com/streamwatch/streamwatch/internal/config"
	"github.com/streamwatch/streamwatch/internal/credentials"
	"github.com/streamwatch/streamwatch/internal/metrics"
	"github.com/streamwatch/streamwatch/internal/models"
	"github.com/streamwatch/streamwatch/internal/platforms"
	"github.com/streamwatch/streamwatch/internal/scheduler"
	"github.com/streamwatch/streamwatch/internal/store"
)

// Session owns every session-scoped component.
type Session struct {
	Store       *store.Store
	Scheduler   *scheduler.Scheduler
	Credentials *credentials.Context
	Metrics     *metrics.Collector

	cfg        config.MonitorConfig
	collectors map[models.Platform]collect.Collector
	logger     *slog.Logger
}

// New builds a fresh session: empty store, empty job set, empty credential
// context, with the entity-deletion hook wired so deleting an entity
// always cancels its job.
func New(cfg config.MonitorConfig, logger *slog.Logger) (*Session, error) {
	st, err := store.Open()
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	mc, err := metrics.NewCollector()
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	creds := credentials.NewContext()
	collectors := map[models.Platform]collect.Collector{
		models.PlatformTwitch:  platforms.NewTwitchCollector(logger),
		models.PlatformTwitter: platforms.NewTwitterCollector(logger),
		models.PlatformYouTube: platforms.NewYouTubeCollector(logger),
		models.PlatformReddit:  platforms.NewRedditCollector(logger),
	}

	sched := scheduler.New(st, collectors, creds, mc, logger)
	st.SetDeleteHook(sched.OnEntityDeleted)

	return &Session{
		Store:       st,
		Scheduler:   sched,
		Credentials: creds,
		Metrics:     mc,
		cfg:         cfg,
		collectors:  collectors,
		logger:      logger,
	}, nil
}

// Watch verifies the identifier against the platform's API, adds the
// entity to the store, and starts (or updates) its monitoring job. The
// interval defaults to the configured job interval when zero.
func (s *Session) Watch(ctx context.Context, platform models.Platform, identifier string, interval time.Duration, captureChat bool) (*scheduler.Job, error) {
	collectorCreds, ok := s.Credentials.Get(platform)
	if !ok {
		return nil, fmt.Errorf("no %s credentials configured", platform)
	}

	collector, ok := s.collectors[platform]
	if !ok {
		return nil, fmt.Errorf("no collector for platform %s", platform)
	}

	id, displayName, err := collector.Verify(ctx, identifier, collectorCreds)
	if err != nil {
		return nil, fmt.Errorf("verify %s %q: %w", platform, identifier, err)
	}

	entity, err := s.Store.AddEntity(platform, id, displayName)
	if err != nil && !errors.Is(err, store.ErrAlreadyExists) {
		return nil, err
	}

	if interval <= 0 {
		interval = s.cfg.DefaultJobInterval
	}
	return s.Scheduler.Add(scheduler.AddSpec{
		Entity:      entity,
		Interval:    interval,
		CaptureChat: captureChat,
		ChatWindow:  s.cfg.ChatWindow,
	})
}

// Unwatch deletes the entity and, through the delete hook, its job.
func (s *Session) Unwatch(ref models.Ref) error {
	return s.Store.DeleteEntity(ref)
}

// Tick runs due jobs once. The tick source calls this at whatever cadence
// it manages; due-ness is derived from now, so late ticks are safe.
func (s *Session) Tick(ctx context.Context, now time.Time) []scheduler.Outcome {
	return s.Scheduler.RunDueJobs(ctx, now)
}

// Close tears the session down: jobs are dropped with the scheduler,
// credentials wiped, store discarded. Nothing durable remains.
func (s *Session) Close() error {
	s.Credentials.Clear()
	if err := s.Store.Close(); err != nil {
		return fmt.Errorf("close session store: %w", err)
	}
	s.logger.Info("session closed")
	return nil
}
