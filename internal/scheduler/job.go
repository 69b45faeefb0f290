package scheduler

import (
	"time"

	"github.com/streamwatch/streamwatch/internal/models"
)

// State is a job's lifecycle state. A removed job has no state: it is
// simply gone from the set.
type State string

const (
	StateActive State = "active"
	StatePaused State = "paused"
)

// Job is the monitoring schedule bound to exactly one entity. At most one
// job exists per entity; a second Add for the same entity updates the
// existing job in place.
type Job struct {
	ID         string          `json:"id"`
	Platform   models.Platform `json:"platform"`
	EntityID   int64           `json:"entity_id"`
	EntityName string          `json:"entity_name"`
	Identifier string          `json:"identifier"`
	Interval   time.Duration   `json:"interval"`
	State      State           `json:"state"`

	// LastRun is nil until the first successful run; a never-run job is
	// immediately due.
	LastRun   *time.Time `json:"last_run,omitempty"`
	TotalRuns int        `json:"total_runs"`
	LastError string     `json:"last_error,omitempty"`

	// CaptureChat enables chat sub-collection during each run, bounded by
	// ChatWindow.
	CaptureChat bool          `json:"capture_chat"`
	ChatWindow  time.Duration `json:"chat_window,omitempty"`
}

// NextDue returns the next time the job is eligible to run. A job that has
// never run is due immediately, reported as the zero time.
func (j *Job) NextDue() time.Time {
	if j.LastRun == nil {
		return time.Time{}
	}
	return j.LastRun.Add(j.Interval)
}

// Due reports whether the job should run at the given instant. Paused jobs
// are never due regardless of timestamps.
func (j *Job) Due(now time.Time) bool {
	if j.State != StateActive {
		return false
	}
	if j.LastRun == nil {
		return true
	}
	return !now.Before(j.NextDue())
}

// Ref returns the reference of the monitored entity.
func (j *Job) Ref() models.Ref {
	return models.Ref{Platform: j.Platform, EntityID: j.EntityID}
}

func (j *Job) clone() *Job {
	c := *j
	if j.LastRun != nil {
		t := *j.LastRun
		c.LastRun = &t
	}
	return &c
}

// Outcome reports what happened to one job during a RunDueJobs pass. The
// caller renders these; the scheduler never swallows a failure silently.
type Outcome struct {
	JobID      string          `json:"job_id"`
	Platform   models.Platform `json:"platform"`
	EntityID   int64           `json:"entity_id"`
	EntityName string          `json:"entity_name"`
	Success    bool            `json:"success"`
	RecordID   int64           `json:"record_id,omitempty"`
	Err        error           `json:"-"`
	Detail     string          `json:"detail,omitempty"`
}

// Stats summarizes the current job set.
type Stats struct {
	Total      int                     `json:"total"`
	Active     int                     `json:"active"`
	Paused     int                     `json:"paused"`
	ByPlatform map[models.Platform]int `json:"by_platform"`
	TotalRuns  int                     `json:"total_runs"`
	WithErrors int                     `json:"with_errors"`
}
