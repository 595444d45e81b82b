/*
builder.go - Daily State Builder

PURPOSE:
  Derives the initial working state for a calendar date from the active
  main base-schedule version, the staff/client directories, and the set of
  active overrides for that date. Runs lazily on first access and persists
  its result; subsequent reads return the persisted state unchanged.

ALGORITHM (Build):
  1. Resolve the active main version; none -> empty state, no error
  2. Load the version's assignments for the date's weekday
  3. Load active staff and all clients
  4. Fetch active overrides and attach them (fetch only - applying
     overrides at build time is an unresolved product decision)
  5. Group assignments by (shift, staff) into Sessions; extra assignments
     for the same pair append clients to the same Session
  6. One StaffPosition per staff member with any assignment that shift
  7. One ClientState per client with any assignment that shift
  8. Re-apply review records, then persist best-effort

FAILURE POLICY:
  Nothing here is fatal. A collaborator failure degrades to an empty
  DailyState with Degraded set and a logged cause - read availability is
  prioritized over completeness. A persistence failure is logged and the
  computed state is still returned to the caller.

SEE ALSO:
  - engine.go: calls Materialize before every operation
  - store.go: the collaborator interfaces consumed here
*/
package schedule

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Builder materializes DailyStates from the base schedule.
type Builder struct {
	Base      BaseScheduleStore
	Staff     StaffDirectory
	Clients   ClientDirectory
	Overrides OverrideStore
	States    StateStore
	Reviews   ReviewStore // optional; nil skips review re-application

	// Now is a clock hook for tests; defaults to time.Now.
	Now func() time.Time
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now().UTC()
}

// Materialize returns the persisted state for a date, building and
// persisting it on first access. It must not re-derive an existing state.
func (b *Builder) Materialize(ctx context.Context, date string) (*DailyState, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}

	existing, err := b.States.Load(ctx, date)
	if err != nil {
		log.Printf("Warning: loading daily state for %s: %v", date, err)
	}
	if existing != nil {
		return existing, nil
	}

	state := b.Build(ctx, date)

	// Best-effort persist: a failure here must not fail the read. The next
	// access re-derives.
	if err := b.States.Store(ctx, state); err != nil {
		log.Printf("Warning: persisting daily state for %s: %v", date, err)
	}
	return state, nil
}

// Build derives a fresh DailyState for the date. It never fails: collaborator
// errors degrade to an empty state with Degraded set.
func (b *Builder) Build(ctx context.Context, date string) *DailyState {
	state := &DailyState{
		Date:           date,
		StaffPositions: []StaffPosition{},
		ClientStates:   []ClientState{},
		Sessions:       []Session{},
		AuditLog:       []AuditEntry{},
		BuiltAt:        b.now(),
	}

	weekday, err := ParseDate(date)
	if err != nil {
		log.Printf("Warning: building %s: %v", date, err)
		state.Degraded = true
		return state
	}

	version, err := b.Base.GetActiveVersion(ctx, ScheduleMain)
	if err != nil {
		log.Printf("Warning: building %s: resolving active schedule: %v", date, err)
		state.Degraded = true
		return state
	}
	if version == nil {
		// A day with no base schedule is a valid, empty day.
		b.attachOverrides(ctx, state)
		return state
	}

	assignments, err := b.Base.ListAssignments(ctx, version.ID, weekday)
	if err != nil {
		log.Printf("Warning: building %s: listing assignments: %v", date, err)
		state.Degraded = true
		return state
	}

	staffByID, clientsByID, err := b.loadDirectories(ctx)
	if err != nil {
		log.Printf("Warning: building %s: loading directories: %v", date, err)
		state.Degraded = true
		return state
	}

	b.attachOverrides(ctx, state)

	// Group assignments by (shift, staff): the first assignment for a pair
	// creates the session, later ones append clients to it.
	type groupKey struct {
		Shift   Shift
		StaffID string
	}
	type clientKey struct {
		Shift    Shift
		ClientID string
	}
	sessionIdx := make(map[groupKey]int)
	staffSeen := make(map[groupKey]bool)
	clientSeen := make(map[clientKey]bool)

	for _, a := range assignments {
		key := groupKey{Shift: a.Shift, StaffID: a.StaffID}

		idx, ok := sessionIdx[key]
		if !ok {
			sess := Session{
				ID:        builderSessionID(date, a.Shift, a.StaffID),
				StaffIDs:  []string{a.StaffID},
				ClientIDs: []string{},
				Shift:     a.Shift,
				Location:  a.Location,
				Original: OriginalState{
					StaffIDs:         []string{a.StaffID},
					ClientIDs:        []string{},
					FromBaseSchedule: true,
				},
				LastModified: b.now(),
			}
			state.Sessions = append(state.Sessions, sess)
			idx = len(state.Sessions) - 1
			sessionIdx[key] = idx
		}

		sess := &state.Sessions[idx]
		if a.ClientID != "" && !sess.HasClient(a.ClientID) {
			sess.ClientIDs = append(sess.ClientIDs, a.ClientID)
			sess.Original.ClientIDs = append(sess.Original.ClientIDs, a.ClientID)
		}
		sess.Type = DeriveType(len(sess.StaffIDs), len(sess.ClientIDs))
		if len(sess.ClientIDs) == 0 {
			sess.Status = StatusNeedsClients
		} else {
			sess.Status = StatusActive
		}

		// One StaffPosition per staff with any assignment this shift.
		if !staffSeen[key] {
			staffSeen[key] = true
			state.StaffPositions = append(state.StaffPositions,
				b.staffPosition(a, sess.ID, staffByID))
		}

		// Symmetrically one ClientState per assigned client.
		if a.ClientID != "" {
			ck := clientKey{Shift: a.Shift, ClientID: a.ClientID}
			if !clientSeen[ck] {
				clientSeen[ck] = true
				state.ClientStates = append(state.ClientStates,
					b.clientState(a, sess.ID, clientsByID))
			}
		}
	}

	b.applyReviews(ctx, state)
	return state
}

func (b *Builder) loadDirectories(ctx context.Context) (map[string]Staff, map[string]Client, error) {
	staff, err := b.Staff.ListActiveStaff(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("staff directory: %w", err)
	}
	clients, err := b.Clients.ListClients(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("client directory: %w", err)
	}

	staffByID := make(map[string]Staff, len(staff))
	for _, s := range staff {
		staffByID[s.ID] = s
	}
	clientsByID := make(map[string]Client, len(clients))
	for _, c := range clients {
		clientsByID[c.ID] = c
	}
	return staffByID, clientsByID, nil
}

func (b *Builder) staffPosition(a BaseAssignment, sessionID string, staffByID map[string]Staff) StaffPosition {
	pos := StaffPosition{
		StaffID:          a.StaffID,
		StaffName:        a.StaffID,
		Shift:            a.Shift,
		Location:         a.Location,
		OriginalLocation: a.Location,
	}

	rec, known := staffByID[a.StaffID]
	if known {
		pos.StaffName = rec.Name
		if pos.Location == "" && len(rec.Locations) > 0 {
			pos.Location = rec.Locations[0]
			pos.OriginalLocation = rec.Locations[0]
		}
	}

	// Session lookup always succeeds for grouped base assignments; the
	// fallback covers staff rows that arrive without a session.
	if sessionID == "" {
		if known && rec.Role == RoleTrainee {
			pos.Position = Training()
		} else {
			pos.Position = Available()
		}
		return pos
	}

	pos.Position = Assigned(sessionID)
	return pos
}

func (b *Builder) clientState(a BaseAssignment, sessionID string, clientsByID map[string]Client) ClientState {
	cs := ClientState{
		ClientID:   a.ClientID,
		ClientName: a.ClientID,
		Shift:      a.Shift,
		Position:   Assigned(sessionID),
		Location:   a.Location,
	}
	if rec, ok := clientsByID[a.ClientID]; ok {
		cs.ClientName = rec.Name
		if cs.Location == "" && len(rec.Locations) > 0 {
			cs.Location = rec.Locations[0]
		}
	}
	return cs
}

// attachOverrides fetches the date's active overrides onto the state without
// applying them.
func (b *Builder) attachOverrides(ctx context.Context, state *DailyState) {
	overrides, err := b.Overrides.ListActive(ctx, state.Date)
	if err != nil {
		log.Printf("Warning: building %s: fetching overrides: %v", state.Date, err)
		return
	}
	state.Overrides = overrides
}

// applyReviews re-marks sessions reviewed from the review store, so a
// rebuilt day keeps its review history.
func (b *Builder) applyReviews(ctx context.Context, state *DailyState) {
	if b.Reviews == nil {
		return
	}
	reviews, err := b.Reviews.ListReviews(ctx, state.Date)
	if err != nil {
		log.Printf("Warning: building %s: fetching reviews: %v", state.Date, err)
		return
	}
	for _, rec := range reviews {
		if sess := state.FindSession(rec.SessionID); sess != nil {
			sess.Reviewed = true
			sess.ReviewedBy = rec.ReviewedBy
		}
	}
}

// builderSessionID is deterministic so rebuilding a date yields identical
// ids. Engine-synthesized sessions use a timestamp composite instead.
func builderSessionID(date string, shift Shift, staffID string) string {
	return fmt.Sprintf("%s:%s:%s", date, shift, staffID)
}
