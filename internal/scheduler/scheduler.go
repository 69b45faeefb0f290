// Package scheduler owns the monitoring jobs and runs the ones that are
// due whenever the host gives it a tick. Execution is cooperative: nothing
// here assumes timers fire between ticks, only that due-ness is re derived
// from wall-clock time each time RunDueJobs is invoked, however late.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streamwatch/streamwatch/internal/collect"
	"github.com/streamwatch/streamwatch/internal/credentials"
	"github.com/streamwatch/streamwatch/internal/metrics"
	"github.com/streamwatch/streamwatch/internal/models"
	"github.com/streamwatch/streamwatch/internal/store"
)

// ErrUnknownJob is returned for operations on a job id not in the set.
var ErrUnknownJob = errors.New("unknown job")

// Scheduler owns the job set for one session.
type Scheduler struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	byEntity map[models.Ref]string

	// runMu serializes RunDueJobs; an overlapping call no-ops instead of
	// double-running jobs.
	runMu sync.Mutex

	store      *store.Store
	collectors map[models.Platform]collect.Collector
	creds      *credentials.Context
	metrics    *metrics.Collector
	logger     *slog.Logger
}

// New constructs a scheduler over the given store, collectors and
// credential context. The metrics collector may be nil.
func New(
	st *store.Store,
	collectors map[models.Platform]collect.Collector,
	creds *credentials.Context,
	mc *metrics.Collector,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		jobs:       make(map[string]*Job),
		byEntity:   make(map[models.Ref]string),
		store:      st,
		collectors: collectors,
		creds:      creds,
		metrics:    mc,
		logger:     logger,
	}
}

// AddSpec describes a job to create or update.
type AddSpec struct {
	Entity      *models.Entity
	Interval    time.Duration
	Paused      bool
	CaptureChat bool
	ChatWindow  time.Duration
}

// Add creates a monitoring job for the entity, or updates the existing one
// in place: at most one job ever exists per entity, a second Add never
// duplicates it. An update applies the interval, paused state, and chat
// options while keeping the job id and schedule phase.
func (s *Scheduler) Add(spec AddSpec) (*Job, error) {
	if spec.Entity == nil {
		return nil, fmt.Errorf("add job: nil entity")
	}
	if spec.Interval <= 0 {
		return nil, fmt.Errorf("add job: interval must be positive, got %v", spec.Interval)
	}
	if spec.CaptureChat && spec.Entity.Platform != models.PlatformTwitch {
		return nil, fmt.Errorf("add job: chat capture is only supported for twitch")
	}

	ref := spec.Entity.Ref()
	state := StateActive
	if spec.Paused {
		state = StatePaused
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byEntity[ref]; ok {
		j := s.jobs[id]
		j.Interval = spec.Interval
		j.State = state
		j.CaptureChat = spec.CaptureChat
		j.ChatWindow = spec.ChatWindow
		s.publishJobCounts()
		return j.clone(), nil
	}

	j := &Job{
		ID:          uuid.New().String(),
		Platform:    spec.Entity.Platform,
		EntityID:    spec.Entity.ID,
		EntityName:  spec.Entity.DisplayName,
		Identifier:  spec.Entity.Identifier,
		Interval:    spec.Interval,
		State:       state,
		CaptureChat: spec.CaptureChat,
		ChatWindow:  spec.ChatWindow,
	}
	s.jobs[j.ID] = j
	s.byEntity[ref] = j.ID
	s.publishJobCounts()

	s.logger.Info("monitoring job added",
		"job_id", j.ID, "platform", j.Platform, "entity", j.Identifier, "interval", j.Interval)
	return j.clone(), nil
}

// Pause stops the job from becoming due. The last-run timestamp is kept so
// a later resume preserves the schedule phase.
func (s *Scheduler) Pause(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return ErrUnknownJob
	}
	j.State = StatePaused
	s.publishJobCounts()
	return nil
}

// Resume reactivates a paused job without touching its timing: a job that
// never ran becomes due immediately, one with history keeps its original
// next-due.
func (s *Scheduler) Resume(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return ErrUnknownJob
	}
	j.State = StateActive
	s.publishJobCounts()
	return nil
}

// Remove deletes the job from the set. An in-flight run for this job will
// observe the removal before persisting and drop its result.
func (s *Scheduler) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return ErrUnknownJob
	}
	delete(s.jobs, id)
	delete(s.byEntity, j.Ref())
	s.publishJobCounts()

	s.logger.Info("monitoring job removed", "job_id", id, "platform", j.Platform, "entity", j.Identifier)
	return nil
}

// OnEntityDeleted cancels the job monitoring the given entity, if any.
// Wired into the store's delete hook at session setup so entity deletion
// can never leave an orphaned job behind.
func (s *Scheduler) OnEntityDeleted(ref models.Ref) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEntity[ref]
	if !ok {
		return
	}
	delete(s.jobs, id)
	delete(s.byEntity, ref)
	s.publishJobCounts()

	s.logger.Info("monitoring job cancelled with entity",
		"job_id", id, "platform", ref.Platform, "entity_id", ref.EntityID)
}

// Job returns a copy of the job with the given id.
func (s *Scheduler) Job(id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrUnknownJob
	}
	return j.clone(), nil
}

// JobForEntity returns a copy of the job monitoring the entity, if any.
func (s *Scheduler) JobForEntity(ref models.Ref) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEntity[ref]
	if !ok {
		return nil, false
	}
	return s.jobs[id].clone(), true
}

// Jobs returns copies of every job in the set.
func (s *Scheduler) Jobs() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.clone())
	}
	return out
}

// Stats summarizes the job set.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{ByPlatform: make(map[models.Platform]int)}
	for _, j := range s.jobs {
		st.Total++
		st.ByPlatform[j.Platform]++
		st.TotalRuns += j.TotalRuns
		if j.State == StateActive {
			st.Active++
		} else {
			st.Paused++
		}
		if j.LastError != "" {
			st.WithErrors++
		}
	}
	return st
}

// RunDueJobs executes every job due at now and returns one outcome per
// attempted job. The due set is snapshotted atomically with respect to
// pause/resume/remove, so a job cancelled in the same instant does not
// run. A job due several intervals late runs exactly once. If another
// RunDueJobs call is still in progress this one returns nil immediately.
func (s *Scheduler) RunDueJobs(ctx context.Context, now time.Time) []Outcome {
	if !s.runMu.TryLock() {
		s.logger.Debug("tick skipped, previous run still in progress")
		return nil
	}
	defer s.runMu.Unlock()

	s.mu.Lock()
	var due []*Job
	for _, j := range s.jobs {
		if j.Due(now) {
			due = append(due, j.clone())
		}
	}
	s.mu.Unlock()

	if len(due) == 0 {
		return nil
	}

	s.logger.Info("running due jobs", "count", len(due), "now", now)

	outcomes := make([]Outcome, 0, len(due))
	for _, j := range due {
		if err := ctx.Err(); err != nil {
			// Tick aborted; unfinished jobs stay due and simply run on the
			// next invocation.
			break
		}
		outcomes = append(outcomes, s.runJob(ctx, now, j))
	}
	return outcomes
}

// runJob executes one collection attempt for a snapshotted job copy.
func (s *Scheduler) runJob(ctx context.Context, now time.Time, j *Job) Outcome {
	out := Outcome{
		JobID:      j.ID,
		Platform:   j.Platform,
		EntityID:   j.EntityID,
		EntityName: j.EntityName,
	}

	start := time.Now()
	err := s.collectOnce(ctx, now, j, &out)
	if err != nil {
		out.Err = err
		out.Detail = err.Error()
		class := collect.ClassOf(err)
		s.metrics.ObserveRun(string(j.Platform), string(class), time.Since(start))

		retryable := collect.Retryable(err)
		s.finishJob(j.ID, now, err, retryable)
		s.logger.Warn("collection failed",
			"job_id", j.ID, "platform", j.Platform, "entity", j.Identifier,
			"class", class, "retryable", retryable, "error", err)
		return out
	}

	out.Success = true
	s.metrics.ObserveRun(string(j.Platform), "success", time.Since(start))
	s.finishJob(j.ID, now, nil, false)
	s.logger.Info("collection succeeded",
		"job_id", j.ID, "platform", j.Platform, "entity", j.Identifier, "record_id", out.RecordID)
	return out
}

// collectOnce performs the fetch and, if the job still exists afterwards,
// persists the result.
func (s *Scheduler) collectOnce(ctx context.Context, now time.Time, j *Job, out *Outcome) error {
	collector, ok := s.collectors[j.Platform]
	if !ok {
		return fmt.Errorf("no collector registered for platform %s", j.Platform)
	}

	// Credentials are read at execution time, never cached on the job: the
	// user may have changed them since the last tick.
	creds, ok := s.creds.Get(j.Platform)
	if !ok {
		return collect.AuthFailure(j.Platform, j.Identifier, errors.New("no credentials configured"))
	}

	target := collect.Target{
		Platform:    j.Platform,
		Identifier:  j.Identifier,
		DisplayName: j.EntityName,
	}
	opts := collect.Options{CaptureChat: j.CaptureChat, ChatWindow: j.ChatWindow}

	snap, err := collector.Fetch(ctx, target, creds, opts)
	if err != nil {
		return err
	}
	if snap.CollectedAt.IsZero() {
		snap.CollectedAt = now
	}

	// The fetch may have taken a while (chat capture blocks for its whole
	// window). If the job or entity vanished meanwhile, the result is
	// dropped silently: deletion wins the race.
	s.mu.Lock()
	_, alive := s.byEntity[j.Ref()]
	s.mu.Unlock()
	if !alive {
		s.logger.Info("dropping snapshot for deleted entity",
			"platform", j.Platform, "entity", j.Identifier)
		return nil
	}

	recordID, err := s.store.AppendRecord(j.Ref(), snap)
	if errors.Is(err, store.ErrUnknownEntity) {
		// Entity deleted between the liveness check and the write.
		return nil
	}
	if err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	out.RecordID = recordID

	if len(snap.ChatMessages) > 0 {
		if err := s.store.AppendChatMessages(recordID, snap.ChatMessages); err != nil {
			return fmt.Errorf("persist chat messages: %w", err)
		}
	}
	return nil
}

// finishJob writes the run result back onto the live job, if it still
// exists. Retryable failures leave the timing untouched so the job stays
// due; successes and permanent failures advance last-run to now.
func (s *Scheduler) finishJob(id string, now time.Time, runErr error, retryable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return
	}
	if runErr == nil {
		t := now
		j.LastRun = &t
		j.TotalRuns++
		j.LastError = ""
		return
	}
	j.LastError = runErr.Error()
	if !retryable {
		// Permanent failures (gone upstream, bad credentials) advance the
		// schedule: hammering the API every tick helps nobody, and the job
		// stays visible and Active for the user to fix or remove.
		t := now
		j.LastRun = &t
	}
}

// publishJobCounts pushes job-set gauges; caller must hold s.mu.
func (s *Scheduler) publishJobCounts() {
	var active, paused int
	for _, j := range s.jobs {
		if j.State == StateActive {
			active++
		} else {
			paused++
		}
	}
	s.metrics.SetJobCounts(active, paused)
}
