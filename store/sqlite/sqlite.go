/*
Package sqlite provides a SQLite-backed implementation of the schedule
collaborator interfaces.

PURPOSE:
  One Store implements every interface the engine consumes: the versioned
  base schedule, the staff/client directories, the override store, the
  daily-state persistence, and the review store. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  schedule.BaseScheduleStore  Versioned weekly templates
  schedule.StaffDirectory     Active staff
  schedule.ClientDirectory    Clients
  schedule.OverrideStore      Date-scoped exceptions
  schedule.StateStore         Whole-document DailyState persistence
  schedule.ReviewStore        Per-session review records

WHOLE-DOCUMENT PERSISTENCE:
  daily_states holds the DailyState as one JSON document per date with an
  integer version column. Store() is a compare-and-swap: the UPDATE is
  guarded by "AND version = ?", and zero rows updated means a concurrent
  writer won - schedule.ErrConflict is returned and nothing is written.

KEY TABLES:
  schedule_versions:  Named weekly templates (one active main at a time)
  base_assignments:   Recurring (day, shift, staff, client) rows
  staff, clients:     Directory records (locations as JSON arrays)
  overrides:          Date-scoped exceptions with active/expired status
  daily_states:       One versioned JSON document per date
  session_reviews:    Review records keyed (date, session_id)

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block,
  single writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/schedule.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - schedule/store.go: Interface definitions
  - schedule/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/careops/schedule-engine/schedule"
)

// Store implements all schedule collaborator interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Versioned weekly templates
	CREATE TABLE IF NOT EXISTS schedule_versions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_versions_type_active
		ON schedule_versions(type, active);

	-- Recurring assignments of a version
	CREATE TABLE IF NOT EXISTS base_assignments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		version_id TEXT NOT NULL,
		day TEXT NOT NULL,
		shift TEXT NOT NULL,
		staff_id TEXT NOT NULL,
		client_id TEXT,
		location TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_version_day
		ON base_assignments(version_id, day);

	-- Directories
	CREATE TABLE IF NOT EXISTS staff (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT,
		locations_json TEXT,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		locations_json TEXT
	);

	-- Date-scoped exceptions to the base schedule
	CREATE TABLE IF NOT EXISTS overrides (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		date TEXT NOT NULL,
		shift TEXT NOT NULL,
		staff_id TEXT,
		client_id TEXT,
		replacement_staff_id TEXT,
		replacement_client_id TEXT,
		reason TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_overrides_date_status
		ON overrides(date, status);

	-- One versioned JSON document per date (unit of persistence)
	CREATE TABLE IF NOT EXISTS daily_states (
		date TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		state_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Review records survive daily_states deletion
	CREATE TABLE IF NOT EXISTS session_reviews (
		date TEXT NOT NULL,
		session_id TEXT NOT NULL,
		reviewed_by TEXT NOT NULL,
		reviewed_at TEXT NOT NULL,
		PRIMARY KEY (date, session_id)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// BASE SCHEDULE (schedule.BaseScheduleStore interface)
// =============================================================================

// SaveVersion inserts or updates a schedule version.
func (s *Store) SaveVersion(ctx context.Context, v schedule.ScheduleVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO schedule_versions (id, name, type, active, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			active = excluded.active
	`
	createdAt := v.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, query,
		v.ID, v.Name, v.Type, boolToInt(v.Active), createdAt.Format(time.RFC3339))
	return err
}

// ActivateVersion makes the version the active one of its type, atomically
// deactivating any other.
func (s *Store) ActivateVersion(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var typ string
	err = tx.QueryRowContext(ctx, "SELECT type FROM schedule_versions WHERE id = ?", id).Scan(&typ)
	if err == sql.ErrNoRows {
		return &schedule.NotFoundError{Entity: "schedule version", Key: id}
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "UPDATE schedule_versions SET active = 0 WHERE type = ?", typ); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE schedule_versions SET active = 1 WHERE id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

// GetActiveVersion returns the active version of the given type, or nil.
func (s *Store) GetActiveVersion(ctx context.Context, typ schedule.ScheduleType) (*schedule.ScheduleVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var v schedule.ScheduleVersion
	var active int
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, type, active, created_at FROM schedule_versions WHERE type = ? AND active = 1",
		typ,
	).Scan(&v.ID, &v.Name, &v.Type, &active, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	v.Active = active != 0
	v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &v, nil
}

// ListVersions returns all schedule versions.
func (s *Store) ListVersions(ctx context.Context) ([]schedule.ScheduleVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, type, active, created_at FROM schedule_versions ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []schedule.ScheduleVersion
	for rows.Next() {
		var v schedule.ScheduleVersion
		var active int
		var createdAt string
		if err := rows.Scan(&v.ID, &v.Name, &v.Type, &active, &createdAt); err != nil {
			return nil, err
		}
		v.Active = active != 0
		v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// AddAssignment appends one recurring assignment to a version.
func (s *Store) AddAssignment(ctx context.Context, a schedule.BaseAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO base_assignments (version_id, day, shift, staff_id, client_id, location)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.VersionID, a.Day, a.Shift, a.StaffID, nullString(a.ClientID), nullString(a.Location))
	return err
}

// ListAssignments returns a version's assignments for a weekday name.
func (s *Store) ListAssignments(ctx context.Context, versionID, day string) ([]schedule.BaseAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT version_id, day, shift, staff_id, client_id, location
		 FROM base_assignments
		 WHERE version_id = ? AND day = ?
		 ORDER BY id ASC`,
		versionID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []schedule.BaseAssignment
	for rows.Next() {
		var a schedule.BaseAssignment
		var clientID, location sql.NullString
		if err := rows.Scan(&a.VersionID, &a.Day, &a.Shift, &a.StaffID, &clientID, &location); err != nil {
			return nil, err
		}
		a.ClientID = clientID.String
		a.Location = location.String
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// =============================================================================
// DIRECTORIES (schedule.StaffDirectory, schedule.ClientDirectory)
// =============================================================================

// SaveStaff inserts or updates a staff directory record.
func (s *Store) SaveStaff(ctx context.Context, rec schedule.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locations, _ := json.Marshal(rec.Locations)
	query := `
		INSERT INTO staff (id, name, role, locations_json, active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			locations_json = excluded.locations_json,
			active = excluded.active
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Name, nullString(rec.Role), string(locations), boolToInt(rec.Active))
	return err
}

// ListActiveStaff returns staff with active = 1.
func (s *Store) ListActiveStaff(ctx context.Context) ([]schedule.Staff, error) {
	return s.queryStaff(ctx,
		"SELECT id, name, role, locations_json, active FROM staff WHERE active = 1 ORDER BY name")
}

// ListStaff returns all staff including inactive (admin view).
func (s *Store) ListStaff(ctx context.Context) ([]schedule.Staff, error) {
	return s.queryStaff(ctx,
		"SELECT id, name, role, locations_json, active FROM staff ORDER BY name")
}

func (s *Store) queryStaff(ctx context.Context, query string) ([]schedule.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var staff []schedule.Staff
	for rows.Next() {
		var rec schedule.Staff
		var role, locations sql.NullString
		var active int
		if err := rows.Scan(&rec.ID, &rec.Name, &role, &locations, &active); err != nil {
			return nil, fmt.Errorf("failed to scan staff: %w", err)
		}
		rec.Role = role.String
		rec.Active = active != 0
		if locations.Valid && locations.String != "" {
			json.Unmarshal([]byte(locations.String), &rec.Locations)
		}
		staff = append(staff, rec)
	}
	return staff, rows.Err()
}

// SaveClient inserts or updates a client directory record.
func (s *Store) SaveClient(ctx context.Context, rec schedule.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locations, _ := json.Marshal(rec.Locations)
	query := `
		INSERT INTO clients (id, name, locations_json)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			locations_json = excluded.locations_json
	`
	_, err := s.db.ExecContext(ctx, query, rec.ID, rec.Name, string(locations))
	return err
}

// ListClients returns all clients.
func (s *Store) ListClients(ctx context.Context) ([]schedule.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, locations_json FROM clients ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []schedule.Client
	for rows.Next() {
		var rec schedule.Client
		var locations sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Name, &locations); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		if locations.Valid && locations.String != "" {
			json.Unmarshal([]byte(locations.String), &rec.Locations)
		}
		clients = append(clients, rec)
	}
	return clients, rows.Err()
}

// =============================================================================
// OVERRIDES (schedule.OverrideStore interface)
// =============================================================================

// SaveOverride inserts or updates an override.
func (s *Store) SaveOverride(ctx context.Context, o schedule.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO overrides
		(id, type, date, shift, staff_id, client_id, replacement_staff_id,
		 replacement_client_id, reason, status, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			reason = excluded.reason
	`
	createdAt := o.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, query,
		o.ID, o.Type, o.Date, o.Shift,
		nullString(o.StaffID), nullString(o.ClientID),
		nullString(o.ReplacementStaffID), nullString(o.ReplacementClient),
		nullString(o.Reason), o.Status, nullString(o.CreatedBy),
		createdAt.Format(time.RFC3339))
	return err
}

// ExpireOverride flips an override's status to expired.
func (s *Store) ExpireOverride(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE overrides SET status = ? WHERE id = ?", schedule.OverrideExpired, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &schedule.NotFoundError{Entity: "override", Key: id}
	}
	return nil
}

// ListActive returns active overrides for a date.
func (s *Store) ListActive(ctx context.Context, date string) ([]schedule.Override, error) {
	return s.listOverrides(ctx,
		`SELECT id, type, date, shift, staff_id, client_id, replacement_staff_id,
		        replacement_client_id, reason, status, created_by, created_at
		 FROM overrides WHERE date = ? AND status = 'active' ORDER BY created_at ASC`,
		date)
}

// ListOverrides returns all overrides for a date regardless of status.
func (s *Store) ListOverrides(ctx context.Context, date string) ([]schedule.Override, error) {
	return s.listOverrides(ctx,
		`SELECT id, type, date, shift, staff_id, client_id, replacement_staff_id,
		        replacement_client_id, reason, status, created_by, created_at
		 FROM overrides WHERE date = ? ORDER BY created_at ASC`,
		date)
}

func (s *Store) listOverrides(ctx context.Context, query string, args ...any) ([]schedule.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overrides []schedule.Override
	for rows.Next() {
		var o schedule.Override
		var staffID, clientID, repStaff, repClient, reason, createdBy sql.NullString
		var createdAt string
		if err := rows.Scan(&o.ID, &o.Type, &o.Date, &o.Shift,
			&staffID, &clientID, &repStaff, &repClient,
			&reason, &o.Status, &createdBy, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		o.StaffID = staffID.String
		o.ClientID = clientID.String
		o.ReplacementStaffID = repStaff.String
		o.ReplacementClient = repClient.String
		o.Reason = reason.String
		o.CreatedBy = createdBy.String
		o.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// =============================================================================
// DAILY STATE (schedule.StateStore interface)
// =============================================================================

// Load returns the persisted state for a date, or nil when absent. Version
// comes from the version column, which is authoritative.
func (s *Store) Load(ctx context.Context, date string) (*schedule.DailyState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var version int64
	var stateJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT version, state_json FROM daily_states WHERE date = ?", date,
	).Scan(&version, &stateJSON)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var state schedule.DailyState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, fmt.Errorf("failed to decode daily state %s: %w", date, err)
	}
	state.Version = version
	return &state, nil
}

// Store persists the whole document under an optimistic version check.
// Zero rows updated means a concurrent writer advanced the version first;
// schedule.ErrConflict is returned and nothing is written.
func (s *Store) Store(ctx context.Context, state *schedule.DailyState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	newVersion := state.Version + 1
	state.Version = newVersion
	raw, err := json.Marshal(state)
	if err != nil {
		state.Version = newVersion - 1
		return fmt.Errorf("failed to encode daily state: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)

	if newVersion == 1 {
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO daily_states (date, version, state_json, updated_at) VALUES (?, ?, ?, ?)",
			state.Date, newVersion, string(raw), now)
		if err != nil {
			state.Version = newVersion - 1
			if isUniqueConstraintError(err) {
				return schedule.ErrConflict
			}
			return fmt.Errorf("failed to insert daily state: %w", err)
		}
		return nil
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE daily_states SET version = ?, state_json = ?, updated_at = ? WHERE date = ? AND version = ?",
		newVersion, string(raw), now, state.Date, newVersion-1)
	if err != nil {
		state.Version = newVersion - 1
		return fmt.Errorf("failed to update daily state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		state.Version = newVersion - 1
		return schedule.ErrConflict
	}
	return nil
}

// DeleteAll drops persisted daily states; an empty date drops every date.
func (s *Store) DeleteAll(ctx context.Context, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if date == "" {
		_, err := s.db.ExecContext(ctx, "DELETE FROM daily_states")
		return err
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM daily_states WHERE date = ?", date)
	return err
}

// =============================================================================
// REVIEWS (schedule.ReviewStore interface)
// =============================================================================

// UpsertReview saves a review record keyed (date, session id).
func (s *Store) UpsertReview(ctx context.Context, rec schedule.ReviewRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO session_reviews (date, session_id, reviewed_by, reviewed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date, session_id) DO UPDATE SET
			reviewed_by = excluded.reviewed_by,
			reviewed_at = excluded.reviewed_at
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.Date, rec.SessionID, rec.ReviewedBy, rec.ReviewedAt.Format(time.RFC3339))
	return err
}

// DeleteReview removes a review record.
func (s *Store) DeleteReview(ctx context.Context, date, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM session_reviews WHERE date = ? AND session_id = ?", date, sessionID)
	return err
}

// ListReviews returns all review records for a date.
func (s *Store) ListReviews(ctx context.Context, date string) ([]schedule.ReviewRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT date, session_id, reviewed_by, reviewed_at FROM session_reviews WHERE date = ?", date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []schedule.ReviewRecord
	for rows.Next() {
		var rec schedule.ReviewRecord
		var reviewedAt string
		if err := rows.Scan(&rec.Date, &rec.SessionID, &rec.ReviewedBy, &reviewedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		rec.ReviewedAt, _ = time.Parse(time.RFC3339, reviewedAt)
		reviews = append(reviews, rec)
	}
	return reviews, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"daily_states", "session_reviews", "overrides",
		"base_assignments", "schedule_versions", "staff", "clients",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	return err != nil && contains(err.Error(), "UNIQUE constraint failed")
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
