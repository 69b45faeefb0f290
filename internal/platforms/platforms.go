// Package platforms provides the concrete per-platform collectors. Each
// one performs a single fetch for a single entity over the platform's
// public API and classifies failures so the scheduler can decide whether
// to retry.
package platforms

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/streamwatch/streamwatch/internal/collect"
	"github.com/streamwatch/streamwatch/internal/models"
)

const httpTimeout = 30 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// classifyStatus maps an HTTP status to a collector error class. Callers
// pass the (already read) body for error detail.
func classifyStatus(platform models.Platform, target string, status int, body []byte) error {
	detail := fmt.Errorf("http %d: %s", status, truncate(body, 200))
	switch {
	case status == http.StatusNotFound:
		return collect.NotFound(platform, target, detail)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return collect.AuthFailure(platform, target, detail)
	case status == http.StatusTooManyRequests:
		return collect.RateLimited(platform, target, detail)
	case status >= 500:
		return collect.Transient(platform, target, detail)
	default:
		return collect.NewError(collect.ClassUnknown, platform, target, detail)
	}
}

// readBody drains and returns a capped response body.
func readBody(resp *http.Response) []byte {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return body
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
