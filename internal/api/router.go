package api

import (
	"log/slog"
	"net/http"

	"github.com/streamwatch/streamwatch/internal/config"
	"github.com/streamwatch/streamwatch/internal/session"
)

// SetupRoutes configures the HTTP routes over the session.
func SetupRoutes(mux *http.ServeMux, sess *session.Session, analysisCfg config.AnalysisConfig, logger *slog.Logger) {
	h := NewHandler(sess, analysisCfg, logger)

	mux.HandleFunc("/api/entities", h.EntitiesHandler)
	mux.HandleFunc("/api/entities/", h.EntityHandler)
	mux.HandleFunc("/api/jobs", h.JobsHandler)
	mux.HandleFunc("/api/jobs/", h.JobHandler)
	mux.HandleFunc("/api/credentials", h.CredentialsHandler)
	mux.HandleFunc("/api/credentials/", h.CredentialsHandler)
	mux.HandleFunc("/api/stats", h.StatsHandler)
	mux.HandleFunc("/api/analyze", h.AnalyzeHandler)
	mux.HandleFunc("/api/export", h.ExportHandler)

	mux.HandleFunc("/healthz", h.HealthHandler)
	mux.Handle("/metrics", sess.Metrics.Handler())
}
