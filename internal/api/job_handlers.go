package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/streamwatch/streamwatch/internal/scheduler"
)

// JobsHandler handles GET /api/jobs.
func (h *Handler) JobsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobs := h.sess.Scheduler.Jobs()
	h.writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

// JobHandler handles /api/jobs/{id} and its pause/resume sub-actions.
func (h *Handler) JobHandler(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// api / jobs / id [/ action]
	if len(parts) < 3 {
		h.writeError(w, http.StatusBadRequest, "job id required")
		return
	}
	id := parts[2]
	action := strings.Join(parts[3:], "/")

	var err error
	switch {
	case action == "" && r.Method == http.MethodGet:
		var job *scheduler.Job
		job, err = h.sess.Scheduler.Job(id)
		if err == nil {
			h.writeJSON(w, http.StatusOK, job)
			return
		}
	case action == "" && r.Method == http.MethodDelete:
		err = h.sess.Scheduler.Remove(id)
	case action == "pause" && r.Method == http.MethodPost:
		err = h.sess.Scheduler.Pause(id)
	case action == "resume" && r.Method == http.MethodPost:
		err = h.sess.Scheduler.Resume(id)
	default:
		http.NotFound(w, r)
		return
	}

	if errors.Is(err, scheduler.ErrUnknownJob) {
		h.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		h.logger.Error("job operation failed", "job_id", id, "action", action, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	job, err := h.sess.Scheduler.Job(id)
	if err != nil {
		// Removed jobs have nothing left to show.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, job)
}
