package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/streamwatch/streamwatch/internal/models"
)

// Statistics computes aggregates over the entity's records on demand.
// Nothing here is cached: records are append-only, so any cache would go
// stale on the very next collection.
func (s *Store) Statistics(ref models.Ref) (*models.Statistics, error) {
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

	cols := []string{"COUNT(*)", "MIN(collected_at)", "MAX(collected_at)"}
	for _, m := range ts.metricCols {
		cols = append(cols,
			fmt.Sprintf("MIN(%s)", m),
			fmt.Sprintf("MAX(%s)", m),
			fmt.Sprintf("AVG(%s)", m),
		)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		strings.Join(cols, ", "), ts.records, ts.entityFK)

	dest := make([]any, 0, len(cols))
	var (
		count       int
		first, last sql.NullString
	)
	dest = append(dest, &count, &first, &last)

	mins := make([]sql.NullFloat64, len(ts.metricCols))
	maxs := make([]sql.NullFloat64, len(ts.metricCols))
	avgs := make([]sql.NullFloat64, len(ts.metricCols))
	for i := range ts.metricCols {
		dest = append(dest, &mins[i], &maxs[i], &avgs[i])
	}

	if err := s.db.QueryRow(query, ref.EntityID).Scan(dest...); err != nil {
		return nil, fmt.Errorf("aggregate %s records: %w", ref.Platform, err)
	}

	stats := &models.Statistics{
		EntityID:    ref.EntityID,
		Platform:    ref.Platform,
		RecordCount: count,
	}
	if first.Valid {
		t := parseTime(first.String)
		stats.FirstRecordAt = &t
	}
	if last.Valid {
		t := parseTime(last.String)
		stats.LastRecordAt = &t
	}
	for i, name := range ts.metricCols {
		if !avgs[i].Valid {
			continue
		}
		stats.Metrics = append(stats.Metrics, models.MetricSummary{
			Name: name,
			Min:  mins[i].Float64,
			Max:  maxs[i].Float64,
			Avg:  avgs[i].Float64,
		})
	}
	return stats, nil
}

// Counts returns per-table row counts across the whole store.
func (s *Store) Counts() (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int)
	for _, p := range models.Platforms() {
		ts := tables[p]
		for _, table := range []string{ts.entities, ts.records} {
			var n int
			if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
				return nil, err
			}
			out[table] = n
		}
	}
	var chat int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM twitch_chat_messages").Scan(&chat); err != nil {
		return nil, err
	}
	out["twitch_chat_messages"] = chat
	return out, nil
}
