// Package api exposes the session over a small JSON HTTP surface:
// entities, jobs, records, statistics, credentials and sentiment
// analysis. Everything here operates on the one session; there is no
// cross-session state to authenticate or isolate.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/streamwatch/streamwatch/internal/analysis"
	"github.com/streamwatch/streamwatch/internal/config"
	"github.com/streamwatch/streamwatch/internal/models"
	"github.com/streamwatch/streamwatch/internal/scheduler"
	"github.com/streamwatch/streamwatch/internal/session"
	"github.com/streamwatch/streamwatch/internal/store"
)

type Handler struct {
	sess      *session.Session
	analysis  config.AnalysisConfig
	logger    *slog.Logger
	startTime time.Time
}

func NewHandler(sess *session.Session, analysisCfg config.AnalysisConfig, logger *slog.Logger) *Handler {
	return &Handler{
		sess:      sess,
		analysis:  analysisCfg,
		logger:    logger,
		startTime: time.Now(),
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}

// EntitiesHandler handles GET and POST /api/entities.
func (h *Handler) EntitiesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listEntities(w, r)
	case http.MethodPost:
		h.watchEntity(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type entityResponse struct {
	Entity models.Entity  `json:"entity"`
	Job    *scheduler.Job `json:"job,omitempty"`
}

func (h *Handler) listEntities(w http.ResponseWriter, r *http.Request) {
	var out []entityResponse
	for _, p := range models.Platforms() {
		entities, err := h.sess.Store.Entities(p)
		if err != nil {
			h.logger.Error("failed to list entities", "platform", p, "error", err)
			h.writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		for _, e := range entities {
			resp := entityResponse{Entity: e}
			if job, ok := h.sess.Scheduler.JobForEntity(e.Ref()); ok {
				resp.Job = job
			}
			out = append(out, resp)
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"entities": out, "count": len(out)})
}

type watchRequest struct {
	Platform        string `json:"platform"`
	Identifier      string `json:"identifier"`
	IntervalMinutes int    `json:"interval_minutes,omitempty"`
	CaptureChat     bool   `json:"capture_chat,omitempty"`
}

func (h *Handler) watchEntity(w http.ResponseWriter, r *http.Request) {
	var req watchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	platform, err := models.ParsePlatform(req.Platform)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Identifier) == "" {
		h.writeError(w, http.StatusBadRequest, "identifier is required")
		return
	}

	interval := time.Duration(req.IntervalMinutes) * time.Minute
	job, err := h.sess.Watch(r.Context(), platform, req.Identifier, interval, req.CaptureChat)
	if err != nil {
		h.logger.Warn("watch failed", "platform", platform, "identifier", req.Identifier, "error", err)
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, job)
}

// EntityHandler handles /api/entities/{platform}/{id} and its
// records/statistics/chat sub-resources.
func (h *Handler) EntityHandler(w http.ResponseWriter, r *http.Request) {
	ref, rest, ok := h.parseEntityPath(w, r)
	if !ok {
		return
	}

	switch {
	case rest == "":
		switch r.Method {
		case http.MethodGet:
			h.getEntity(w, r, ref)
		case http.MethodDelete:
			h.unwatchEntity(w, r, ref)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case rest == "records" && r.Method == http.MethodGet:
		h.getRecords(w, r, ref)
	case rest == "statistics" && r.Method == http.MethodGet:
		h.getStatistics(w, r, ref)
	default:
		http.NotFound(w, r)
	}
}

// parseEntityPath extracts the entity reference from
// /api/entities/{platform}/{id}[/rest...].
func (h *Handler) parseEntityPath(w http.ResponseWriter, r *http.Request) (models.Ref, string, bool) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// api / entities / platform / id [/ sub]
	if len(parts) < 4 {
		h.writeError(w, http.StatusBadRequest, "entity reference required")
		return models.Ref{}, "", false
	}

	platform, err := models.ParsePlatform(parts[2])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return models.Ref{}, "", false
	}
	id, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid entity id")
		return models.Ref{}, "", false
	}

	rest := strings.Join(parts[4:], "/")
	return models.Ref{Platform: platform, EntityID: id}, rest, true
}

func (h *Handler) getEntity(w http.ResponseWriter, r *http.Request, ref models.Ref) {
	entity, err := h.sess.Store.EntityByID(ref)
	if errors.Is(err, store.ErrUnknownEntity) {
		h.writeError(w, http.StatusNotFound, "entity not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load entity", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := entityResponse{Entity: *entity}
	if job, ok := h.sess.Scheduler.JobForEntity(ref); ok {
		resp.Job = job
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) unwatchEntity(w http.ResponseWriter, r *http.Request, ref models.Ref) {
	err := h.sess.Unwatch(ref)
	if errors.Is(err, store.ErrUnknownEntity) {
		h.writeError(w, http.StatusNotFound, "entity not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to delete entity", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getRecords(w http.ResponseWriter, r *http.Request, ref models.Ref) {
	tr, err := parseTimeRange(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.sess.Store.Records(ref, tr)
	if errors.Is(err, store.ErrUnknownEntity) {
		h.writeError(w, http.StatusNotFound, "entity not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load records", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"records": records, "count": len(records)})
}

func (h *Handler) getStatistics(w http.ResponseWriter, r *http.Request, ref models.Ref) {
	stats, err := h.sess.Store.Statistics(ref)
	if errors.Is(err, store.ErrUnknownEntity) {
		h.writeError(w, http.StatusNotFound, "entity not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to compute statistics", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func parseTimeRange(r *http.Request) (models.TimeRange, error) {
	var tr models.TimeRange
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return tr, errors.New("invalid 'from' timestamp, want RFC3339")
		}
		tr.From = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return tr, errors.New("invalid 'to' timestamp, want RFC3339")
		}
		tr.To = t
	}
	return tr, nil
}

// StatsHandler handles GET /api/stats.
func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	counts, err := h.sess.Store.Counts()
	if err != nil {
		h.logger.Error("failed to count rows", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"jobs":           h.sess.Scheduler.Stats(),
		"table_counts":   counts,
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	})
}

// ExportHandler handles GET /api/export, streaming the session database as
// a replayable SQL dump.
func (h *Handler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/sql")
	w.Header().Set("Content-Disposition", "attachment; filename=session_export.sql")
	if err := h.sess.Store.Export(w); err != nil {
		// Headers are already gone; all we can do is log.
		h.logger.Error("export failed", "error", err)
	}
}

type analyzeRequest struct {
	Texts []string `json:"texts"`
}

// AnalyzeHandler handles POST /api/analyze: scores a batch of texts with
// the OpenAI analyzer when a key is configured, the rule analyzer
// otherwise.
func (h *Handler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Texts) == 0 {
		h.writeError(w, http.StatusBadRequest, "texts are required")
		return
	}

	var analyzer analysis.Analyzer = analysis.RuleAnalyzer{}
	if key, ok := h.sess.Credentials.OpenAIKey(); ok {
		analyzer = analysis.NewOpenAIAnalyzer(key, h.analysis, h.logger)
	}

	summary, err := analysis.AnalyzeBatch(r.Context(), analyzer, req.Texts)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// HealthHandler handles GET /healthz.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	})
}
