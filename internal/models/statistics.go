package models

import "time"

// MetricSummary holds min/max/avg for a single numeric snapshot field.
type MetricSummary struct {
	Name string  `json:"name"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Avg  float64 `json:"avg"`
}

// Statistics are on-demand aggregates over an entity's records. They are
// recomputed on every call; records are append-only so caching would only
// risk staleness.
type Statistics struct {
	EntityID      int64           `json:"entity_id"`
	Platform      Platform        `json:"platform"`
	RecordCount   int             `json:"record_count"`
	FirstRecordAt *time.Time      `json:"first_record_at,omitempty"`
	LastRecordAt  *time.Time      `json:"last_record_at,omitempty"`
	Metrics       []MetricSummary `json:"metrics,omitempty"`
}

// Metric returns the summary for a named metric, if present.
func (s *Statistics) Metric(name string) (MetricSummary, bool) {
	for _, m := range s.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return MetricSummary{}, false
}

// TimeRange bounds a record query. Zero values leave the corresponding
// side unbounded.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}
