package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.ObserveRun("twitch", "success", time.Second)
	c.SetJobCounts(1, 2)
	if c.Handler() == nil {
		t.Error("nil collector must still return a handler")
	}
}

func TestCollectorExposesMetrics(t *testing.T) {
	c, err := NewCollector()
	if err != nil {
		t.Fatalf("new collector: %v", err)
	}

	c.ObserveRun("twitch", "success", 250*time.Millisecond)
	c.ObserveRun("reddit", "transient", time.Second)
	c.SetJobCounts(3, 1)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`streamwatch_monitor_runs_total{outcome="success",platform="twitch"} 1`,
		`streamwatch_monitor_runs_total{outcome="transient",platform="reddit"} 1`,
		"streamwatch_monitor_jobs_active 3",
		"streamwatch_monitor_jobs_paused 1",
		"streamwatch_monitor_run_duration_seconds_bucket",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
