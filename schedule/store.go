/*
store.go - Collaborator interfaces consumed by the builder and engine

PURPOSE:
  Defines the seams between the engine and its collaborators: the versioned
  base schedule, the staff/client directories, the override store, the
  daily-state persistence, and the review store. Implementations exist in
  schedule/store (in-memory) and store/sqlite (production).

WHOLE-DOCUMENT CONTRACT:
  StateStore persists the entire DailyState per date. Store() performs an
  optimistic compare-and-swap on DailyState.Version: the caller passes the
  version it loaded, and a mismatch returns ErrConflict with nothing
  written. On success the store bumps state.Version to the persisted value.

SEE ALSO:
  - builder.go: reads base schedule, directories, overrides, reviews
  - engine.go: load-mutate-store cycle against StateStore
  - store/sqlite/sqlite.go: one Store implementing every interface here
*/
package schedule

import (
	"context"
	"time"
)

// =============================================================================
// BASE SCHEDULE - Versioned weekly templates
// =============================================================================

type BaseScheduleStore interface {
	// GetActiveVersion returns the active version of the given type, or
	// (nil, nil) when none exists. A day with no base schedule is valid.
	GetActiveVersion(ctx context.Context, typ ScheduleType) (*ScheduleVersion, error)

	// ListAssignments returns the version's assignments for a weekday name.
	ListAssignments(ctx context.Context, versionID, day string) ([]BaseAssignment, error)
}

// =============================================================================
// DIRECTORIES
// =============================================================================

type StaffDirectory interface {
	ListActiveStaff(ctx context.Context) ([]Staff, error)
}

type ClientDirectory interface {
	ListClients(ctx context.Context) ([]Client, error)
}

// =============================================================================
// OVERRIDES - Read-only from the engine's perspective
// =============================================================================

type OverrideStore interface {
	// ListActive returns overrides with status active for the date.
	ListActive(ctx context.Context, date string) ([]Override, error)
}

// =============================================================================
// DAILY STATE PERSISTENCE
// =============================================================================

type StateStore interface {
	// Load returns the persisted state for a date, or (nil, nil) when absent.
	Load(ctx context.Context, date string) (*DailyState, error)

	// Store persists the whole document. The write succeeds only if the
	// persisted version still equals state.Version (0 for a fresh date);
	// otherwise ErrConflict is returned and nothing is written. On success
	// state.Version is advanced to the newly persisted version.
	Store(ctx context.Context, state *DailyState) error

	// DeleteAll drops persisted daily states. An empty date drops every
	// date. Base schedule and overrides are untouched; this is the
	// cache-invalidation escape hatch.
	DeleteAll(ctx context.Context, date string) error
}

// =============================================================================
// REVIEW STORE - Keyed (date, sessionId), separate from the DailyState
// =============================================================================

// ReviewRecord marks a session reviewed by a supervisor. Kept outside the
// DailyState document so re-deriving a day does not lose review history.
type ReviewRecord struct {
	Date       string    `json:"date"`
	SessionID  string    `json:"session_id"`
	ReviewedBy string    `json:"reviewed_by"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

type ReviewStore interface {
	UpsertReview(ctx context.Context, rec ReviewRecord) error
	DeleteReview(ctx context.Context, date, sessionID string) error
	ListReviews(ctx context.Context, date string) ([]ReviewRecord, error)
}
