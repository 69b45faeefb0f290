// Package collect defines the contract between the job scheduler and the
// per-platform collectors. A collector performs exactly one fetch for one
// entity; everything stateful (scheduling, persistence) stays outside.
package collect

import (
	"context"
	"time"

	"github.com/streamwatch/streamwatch/internal/credentials"
	"github.com/streamwatch/streamwatch/internal/models"
)

// Target names the entity a fetch is for.
type Target struct {
	Platform    models.Platform
	Identifier  string
	DisplayName string
}

// Options carries per-run collection settings.
type Options struct {
	// CaptureChat enables chat sub-collection for platforms that support
	// it (Twitch). The fetch blocks for up to ChatWindow while gathering
	// messages.
	CaptureChat bool
	ChatWindow  time.Duration
}

// Collector fetches one snapshot for one entity on one platform.
type Collector interface {
	// Platform returns the platform this collector serves.
	Platform() models.Platform

	// Fetch obtains a single snapshot for the target using the supplied
	// credentials. Failures must be classified via this package's Error
	// type; the scheduler's retry policy depends on the class.
	Fetch(ctx context.Context, target Target, creds credentials.Bundle, opts Options) (*models.Snapshot, error)

	// Verify checks that the identifier names a real upstream entity and
	// returns its canonical identifier and display name. Used before an
	// entity is added to the store.
	Verify(ctx context.Context, identifier string, creds credentials.Bundle) (id, displayName string, err error)
}
