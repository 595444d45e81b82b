/*
engine.go - Assignment Engine state-transition operations

PURPOSE:
  Owns the mutable daily working state and exposes the fixed vocabulary of
  operations that mutate it: assigning and removing staff and clients,
  creating and cancelling sessions, callouts, location changes, and the
  group/multi-staff annotations.

OPERATION CYCLE:
  Every operation takes (date, payload, actor), loads the DailyState
  (building it via the Builder if absent, except where an operation
  requires the state to already exist), validates every precondition
  before touching anything, mutates in memory, appends exactly one
  AuditEntry, and persists the whole document. A stale version surfaces
  ErrConflict; a precondition failure returns a typed error with nothing
  persisted.

INVARIANTS ENFORCED HERE:
  - At most 3 staff and 8 clients per session
  - A session never holds >1 staff and >1 clients at once
    ("multi-staff sessions admit exactly one client")
  - Session type always matches DeriveType of the live membership,
    except for the add-staff-slot / add-to-group annotations, which are
    kept until membership contradicts them
  - Cancelled sessions keep their roster; members are freed to
    available/cancelled

SEE ALSO:
  - builder.go: materializes the state operated on
  - errors.go: the typed errors returned from precondition checks
*/
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Engine applies state-transition operations to DailyStates.
type Engine struct {
	States  StateStore
	Builder *Builder

	// Now is a clock hook for tests; defaults to time.Now.
	Now func() time.Time
}

func NewEngine(states StateStore, builder *Builder) *Engine {
	return &Engine{States: states, Builder: builder}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

// =============================================================================
// READ SIDE
// =============================================================================

// GetState returns the day's state, materializing it on first access. A
// non-empty location filters the returned view; the persisted document is
// always the full day.
func (e *Engine) GetState(ctx context.Context, date, location string) (*DailyState, error) {
	state, err := e.Builder.Materialize(ctx, date)
	if err != nil {
		return nil, err
	}
	if location == "" {
		return state, nil
	}
	return filterByLocation(state, location), nil
}

// ClearCache drops persisted DailyState documents without touching the base
// schedule or overrides. An empty date clears every date.
func (e *Engine) ClearCache(ctx context.Context, date string) error {
	if date != "" {
		if _, err := ParseDate(date); err != nil {
			return err
		}
	}
	if err := e.States.DeleteAll(ctx, date); err != nil {
		return fmt.Errorf("%w: clearing cache: %v", ErrUnavailable, err)
	}
	return nil
}

func filterByLocation(state *DailyState, location string) *DailyState {
	view := *state
	view.StaffPositions = nil
	view.ClientStates = nil
	view.Sessions = nil
	for _, sp := range state.StaffPositions {
		if sp.Location == location {
			view.StaffPositions = append(view.StaffPositions, sp)
		}
	}
	for _, cs := range state.ClientStates {
		if cs.Location == location {
			view.ClientStates = append(view.ClientStates, cs)
		}
	}
	for _, s := range state.Sessions {
		if s.Location == location {
			view.Sessions = append(view.Sessions, s)
		}
	}
	return &view
}

// =============================================================================
// OPERATION CYCLE
// =============================================================================

// mutate runs one operation: materialize (or require) the state, validate
// and apply fn, append one audit entry, persist. fn must validate every
// precondition before its first mutation.
func (e *Engine) mutate(
	ctx context.Context,
	date string,
	action AuditAction,
	actor string,
	requireExisting bool,
	fn func(state *DailyState) (map[string]any, error),
) (*DailyState, error) {
	var state *DailyState
	var err error

	if requireExisting {
		state, err = e.States.Load(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("%w: loading state: %v", ErrUnavailable, err)
		}
		if state == nil {
			return nil, &NotFoundError{Entity: "daily state", Key: date}
		}
	} else {
		state, err = e.Builder.Materialize(ctx, date)
		if err != nil {
			return nil, err
		}
	}

	details, err := fn(state)
	if err != nil {
		return nil, err
	}

	state.AuditLog = append(state.AuditLog, AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: e.now(),
		Action:    action,
		Details:   details,
		ActorID:   actor,
	})

	if err := e.States.Store(ctx, state); err != nil {
		if IsRetryable(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: persisting state: %v", ErrUnavailable, err)
	}
	return state, nil
}

// refresh recomputes a session's type and live status from its membership.
// Staff on callout do not count toward live status, so a session whose only
// staff called out shows needs_staff while keeping its roster. The group and
// multi_staff annotations set by AddToGroup/AddStaffSlot are kept until the
// membership contradicts them.
func refresh(state *DailyState, sess *Session) {
	staffCount := len(sess.StaffIDs)
	clientCount := len(sess.ClientIDs)

	derived := DeriveType(staffCount, clientCount)
	keepAnnotation := derived == TypeIndividual &&
		((sess.Type == TypeMultiStaff && clientCount <= 1) ||
			(sess.Type == TypeGroup && staffCount <= 1))
	if !keepAnnotation {
		sess.Type = derived
	}

	if sess.Status == StatusCancelled {
		return
	}

	live := 0
	for _, id := range sess.StaffIDs {
		pos := state.FindStaffPosition(id, sess.Shift)
		if pos == nil || pos.Position.Kind != PositionCallout {
			live++
		}
	}

	switch {
	case staffCount == 0 || live == 0:
		sess.Status = StatusNeedsStaff
	case clientCount == 0:
		sess.Status = StatusNeedsClients
	default:
		sess.Status = StatusActive
	}
}

// vacateStaff removes the staff member from whichever non-cancelled session
// currently holds them, returning the vacated session id.
func (e *Engine) vacateStaff(state *DailyState, staffID string, shift Shift) string {
	for i := range state.Sessions {
		sess := &state.Sessions[i]
		if sess.Shift != shift || sess.Status == StatusCancelled || !sess.HasStaff(staffID) {
			continue
		}
		sess.StaffIDs = removeID(sess.StaffIDs, staffID)
		sess.LastModified = e.now()
		refresh(state, sess)
		return sess.ID
	}
	return ""
}

func (e *Engine) vacateClient(state *DailyState, clientID string, shift Shift) string {
	for i := range state.Sessions {
		sess := &state.Sessions[i]
		if sess.Shift != shift || sess.Status == StatusCancelled || !sess.HasClient(clientID) {
			continue
		}
		sess.ClientIDs = removeID(sess.ClientIDs, clientID)
		sess.LastModified = e.now()
		refresh(state, sess)
		return sess.ID
	}
	return ""
}

// =============================================================================
// STAFF OPERATIONS
// =============================================================================

// AssignStaff moves a staff member into the target session, or into a fresh
// session when no target is given, vacating any prior session.
func (e *Engine) AssignStaff(ctx context.Context, date, staffID string, shift Shift, targetSessionID, actor string) (*Session, error) {
	var sessionID string
	state, err := e.mutate(ctx, date, AuditAssignStaff, actor, false, func(state *DailyState) (map[string]any, error) {
		pos := state.FindStaffPosition(staffID, shift)
		if pos == nil {
			return nil, &NotFoundError{Entity: "staff position", Key: staffID + "/" + string(shift)}
		}

		if targetSessionID != "" {
			sess := state.FindSession(targetSessionID)
			if sess == nil {
				return nil, &NotFoundError{Entity: "session", Key: targetSessionID}
			}
			if sess.Status == StatusCancelled {
				return nil, &TypeConflictError{SessionID: sess.ID, Message: "session is cancelled"}
			}
			if !sess.HasStaff(staffID) {
				if len(sess.StaffIDs) >= MaxStaffPerSession {
					return nil, &CapacityError{SessionID: sess.ID, Member: "staff", Limit: MaxStaffPerSession}
				}
				if len(sess.StaffIDs) >= 1 && len(sess.ClientIDs) > 1 {
					return nil, &TypeConflictError{SessionID: sess.ID, Message: "group session cannot take a second staff"}
				}
			}

			prior := e.vacateStaff(state, staffID, shift)
			if !sess.HasStaff(staffID) {
				sess.StaffIDs = append(sess.StaffIDs, staffID)
			}
			sess.LastModified = e.now()
			refresh(state, sess)
			pos.Position = Assigned(sess.ID)
			sessionID = sess.ID
			return map[string]any{
				"staff_id": staffID, "shift": shift,
				"session_id": sess.ID, "previous_session_id": prior,
			}, nil
		}

		prior := e.vacateStaff(state, staffID, shift)
		sess := Session{
			ID:        engineSessionID(e.now(), staffID),
			StaffIDs:  []string{staffID},
			ClientIDs: []string{},
			Shift:     shift,
			Location:  pos.Location,
			Original: OriginalState{
				StaffIDs:         []string{staffID},
				ClientIDs:        []string{},
				FromBaseSchedule: false,
			},
			LastModified: e.now(),
		}
		state.Sessions = append(state.Sessions, sess)
		created := &state.Sessions[len(state.Sessions)-1]
		refresh(state, created)
		pos.Position = Assigned(created.ID)
		sessionID = created.ID
		return map[string]any{
			"staff_id": staffID, "shift": shift,
			"session_id": created.ID, "previous_session_id": prior,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return state.FindSession(sessionID), nil
}

// AddStaffToSession adds a staff member to an existing session, vacating any
// prior session.
func (e *Engine) AddStaffToSession(ctx context.Context, date, sessionID, staffID, actor string) (*Session, error) {
	state, err := e.mutate(ctx, date, AuditAddStaffToSession, actor, false, func(state *DailyState) (map[string]any, error) {
		sess := state.FindSession(sessionID)
		if sess == nil {
			return nil, &NotFoundError{Entity: "session", Key: sessionID}
		}
		if !sess.HasStaff(staffID) && len(sess.StaffIDs) >= MaxStaffPerSession {
			return nil, &CapacityError{SessionID: sess.ID, Member: "staff", Limit: MaxStaffPerSession}
		}
		if len(sess.ClientIDs) > 1 && !sess.HasStaff(staffID) && len(sess.StaffIDs) >= 1 {
			return nil, &TypeConflictError{SessionID: sess.ID, Message: "multi-staff sessions admit exactly one client"}
		}
		pos := state.FindStaffPosition(staffID, sess.Shift)
		if pos == nil {
			return nil, &NotFoundError{Entity: "staff position", Key: staffID + "/" + string(sess.Shift)}
		}

		e.vacateStaff(state, staffID, sess.Shift)
		if !sess.HasStaff(staffID) {
			sess.StaffIDs = append(sess.StaffIDs, staffID)
		}
		sess.LastModified = e.now()
		refresh(state, sess)
		pos.Position = Assigned(sess.ID)
		return map[string]any{"session_id": sess.ID, "staff_id": staffID}, nil
	})
	if err != nil {
		return nil, err
	}
	return state.FindSession(sessionID), nil
}

// RemoveStaffFromSession removes a staff member and resets their position to
// available. An empty session drops to needs_staff.
func (e *Engine) RemoveStaffFromSession(ctx context.Context, date, sessionID, staffID, actor string) (*Session, error) {
	state, err := e.mutate(ctx, date, AuditRemoveStaffFromSession, actor, false, func(state *DailyState) (map[string]any, error) {
		sess := state.FindSession(sessionID)
		if sess == nil {
			return nil, &NotFoundError{Entity: "session", Key: sessionID}
		}

		sess.StaffIDs = removeID(sess.StaffIDs, staffID)
		sess.LastModified = e.now()
		refresh(state, sess)
		if pos := state.FindStaffPosition(staffID, sess.Shift); pos != nil {
			pos.Position = Available()
		}
		return map[string]any{"session_id": sess.ID, "staff_id": staffID}, nil
	})
	if err != nil {
		return nil, err
	}
	return state.FindSession(sessionID), nil
}

// MarkCallout marks a staff member called out. The prior session assignment
// is preserved for display; only the session's live status changes.
func (e *Engine) MarkCallout(ctx context.Context, date, staffID string, shift Shift, reason, actor string) (*StaffPosition, error) {
	state, err := e.mutate(ctx, date, AuditMarkCallout, actor, false, func(state *DailyState) (map[string]any, error) {
		pos := state.FindStaffPosition(staffID, shift)
		if pos == nil {
			return nil, &NotFoundError{Entity: "staff position", Key: staffID + "/" + string(shift)}
		}

		sessionID := ""
		if pos.Position.Kind == PositionAssigned || pos.Position.Kind == PositionCallout {
			sessionID = pos.Position.SessionID
		}
		pos.Position = Callout(sessionID, reason)

		if sessionID != "" {
			if sess := state.FindSession(sessionID); sess != nil {
				refresh(state, sess)
				sess.LastModified = e.now()
			}
		}
		return map[string]any{
			"staff_id": staffID, "shift": shift,
			"session_id": sessionID, "reason": reason,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return state.FindStaffPosition(staffID, shift), nil
}

// ChangeStaffLocation updates the location field only; the original location
// is kept for display.
func (e *Engine) ChangeStaffLocation(ctx context.Context, date, staffID string, shift Shift, location, actor string) (*StaffPosition, error) {
	state, err := e.mutate(ctx, date, AuditChangeStaffLocation, actor, false, func(state *DailyState) (map[string]any, error) {
		if location == "" {
			return nil, &InvalidInputError{Field: "location", Message: "required"}
		}
		pos := state.FindStaffPosition(staffID, shift)
		if pos == nil {
			return nil, &NotFoundError{Entity: "staff position", Key: staffID + "/" + string(shift)}
		}
		pos.Location = location
		return map[string]any{"staff_id": staffID, "shift": shift, "location": location}, nil
	})
	if err != nil {
		return nil, err
	}
	return state.FindStaffPosition(staffID, shift), nil
}

// =============================================================================
// CLIENT OPERATIONS
// =============================================================================

// AssignClient moves a client into the target session, vacating any prior
// session. Unlike AssignStaff this never builds the day implicitly: it
// requires the daily state to exist.
func (e *Engine) AssignClient(ctx context.Context, date, clientID string, shift Shift, targetSessionID, actor string) (*Session, error) {
	state, err := e.mutate(ctx, date, AuditAssignClient, actor, true, func(state *DailyState) (map[string]any, error) {
		cs := state.FindClientState(clientID, shift)
		if cs == nil {
			return nil, &NotFoundError{Entity: "client state", Key: clientID + "/" + string(shift)}
		}
		sess := state.FindSession(targetSessionID)
		if sess == nil {
			return nil, &NotFoundError{Entity: "session", Key: targetSessionID}
		}
		if sess.Status == StatusCancelled {
			return nil, &TypeConflictError{SessionID: sess.ID, Message: "session is cancelled"}
		}
		if !sess.HasClient(clientID) {
			if len(sess.ClientIDs) >= MaxClientsPerSession {
				return nil, &CapacityError{SessionID: sess.ID, Member: "clients", Limit: MaxClientsPerSession}
			}
			if len(sess.StaffIDs) > 1 && len(sess.ClientIDs) >= 1 {
				return nil, &TypeConflictError{SessionID: sess.ID, Message: "multi-staff sessions admit exactly one client"}
			}
		}

		prior := e.vacateClient(state, clientID, shift)
		if !sess.HasClient(clientID) {
			sess.ClientIDs = append(sess.ClientIDs, clientID)
		}
		sess.LastModified = e.now()
		refresh(state, sess)
		cs.Position = Assigned(sess.ID)
		return map[string]any{
			"client_id": clientID, "shift": shift,
			"session_id": sess.ID, "previous_session_id": prior,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return state.FindSession(targetSessionID), nil
}

// AddClientToSession adds a client to an existing session.
func (e *Engine) AddClientToSession(ctx context.Context, date, sessionID, clientID, actor string) (*Session, error) {
	state, err := e.mutate(ctx, date, AuditAddClientToSession, actor, false, func(state *DailyState) (map[string]any, error) {
		sess := state.FindSession(sessionID)
		if sess == nil {
			return nil, &NotFoundError{Entity: "session", Key: sessionID}
		}
		if !sess.HasClient(clientID) && len(sess.ClientIDs) >= MaxClientsPerSession {
			return nil, &CapacityError{SessionID: sess.ID, Member: "clients", Limit: MaxClientsPerSession}
		}
		if len(sess.StaffIDs) > 1 && !sess.HasClient(clientID) && len(sess.ClientIDs) >= 1 {
			return nil, &TypeConflictError{SessionID: sess.ID, Message: "multi-staff sessions admit exactly one client"}
		}
		cs := state.FindClientState(clientID, sess.Shift)
		if cs == nil {
			return nil, &NotFoundError{Entity: "client state", Key: clientID + "/" + string(sess.Shift)}
		}

		e.vacateClient(state, clientID, sess.Shift)
		if !sess.HasClient(clientID) {
			sess.ClientIDs = append(sess.ClientIDs, clientID)
		}
		sess.LastModified = e.now()
		refresh(state, sess)
		cs.Position = Assigned(sess.ID)
		return map[string]any{"session_id": sess.ID, "client_id": clientID}, nil
	})
	if err != nil {
		return nil, err
	}
	return state.FindSession(sessionID), nil
}

// RemoveClientFromSession removes a client and resets their state to
// unassigned. A session left with staff but no clients drops to needs_clients.
func (e *Engine) RemoveClientFromSession(ctx context.Context, date, sessionID, clientID, actor string) (*Session, error) {
	state, err := e.mutate(ctx, date, AuditRemoveClientFromSession, actor, false, func(state *DailyState) (map[string]any, error) {
		sess := state.FindSession(sessionID)
		if sess == nil {
			return nil, &NotFoundError{Entity: "session", Key: sessionID}
		}

		sess.ClientIDs = removeID(sess.ClientIDs, clientID)
		sess.LastModified = e.now()
		refresh(state, sess)
		if cs := state.FindClientState(clientID, sess.Shift); cs != nil {
			cs.Position = Unassigned()
		}
		return map[string]any{"session_id": sess.ID, "client_id": clientID}, nil
	})
	if err != nil {
		return nil, err
	}
	return state.FindSession(sessionID), nil
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// CreateSession creates an empty session with status needs_staff.
func (e *Engine) CreateSession(ctx context.Context, date string, shift Shift, location, actor string) (*Session, error) {
	var sessionID string
	state, err := e.mutate(ctx, date, AuditCreateSession, actor, false, func(state *DailyState) (map[string]any, error) {
		if _, err := ParseShift(string(shift)); err != nil {
			return nil, err
		}
		if location == "" {
			return nil, &InvalidInputError{Field: "location", Message: "required"}
		}

		sess := Session{
			// No staff id to compose with, so empty sessions get a uuid.
			ID:        uuid.NewString(),
			StaffIDs:  []string{},
			ClientIDs: []string{},
			Shift:     shift,
			Location:  location,
			Status:    StatusNeedsStaff,
			Type:      TypeIndividual,
			Original: OriginalState{
				StaffIDs:         []string{},
				ClientIDs:        []string{},
				FromBaseSchedule: false,
			},
			LastModified: e.now(),
		}
		state.Sessions = append(state.Sessions, sess)
		sessionID = sess.ID
		return map[string]any{"session_id": sess.ID, "shift": shift, "location": location}, nil
	})
	if err != nil {
		return nil, err
	}
	return state.FindSession(sessionID), nil
}

// CancelSession cancels a session, freeing its staff back to available and
// marking its clients cancelled. The roster itself is kept for audit
// fidelity.
func (e *Engine) CancelSession(ctx context.Context, date, sessionID, actor string) (*Session, error) {
	state, err := e.mutate(ctx, date, AuditCancelSession, actor, false, func(state *DailyState) (map[string]any, error) {
		sess := state.FindSession(sessionID)
		if sess == nil {
			return nil, &NotFoundError{Entity: "session", Key: sessionID}
		}

		sess.Status = StatusCancelled
		sess.LastModified = e.now()
		for _, staffID := range sess.StaffIDs {
			if pos := state.FindStaffPosition(staffID, sess.Shift); pos != nil {
				pos.Position = Available()
			}
		}
		for _, clientID := range sess.ClientIDs {
			if cs := state.FindClientState(clientID, sess.Shift); cs != nil {
				cs.Position = Cancelled()
			}
		}
		return map[string]any{
			"session_id": sess.ID,
			"staff_ids":  append([]string{}, sess.StaffIDs...),
			"client_ids": append([]string{}, sess.ClientIDs...),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return state.FindSession(sessionID), nil
}

// AddStaffSlot marks a session multi_staff ahead of a second staff member
// being added. It is a capacity/type annotation, not a membership change.
func (e *Engine) AddStaffSlot(ctx context.Context, date, sessionID, actor string) (*Session, error) {
	state, err := e.mutate(ctx, date, AuditAddStaffSlot, actor, false, func(state *DailyState) (map[string]any, error) {
		sess := state.FindSession(sessionID)
		if sess == nil {
			return nil, &NotFoundError{Entity: "session", Key: sessionID}
		}
		if len(sess.StaffIDs) >= MaxStaffPerSession {
			return nil, &CapacityError{SessionID: sess.ID, Member: "staff", Limit: MaxStaffPerSession}
		}
		if len(sess.ClientIDs) > 1 {
			return nil, &TypeConflictError{SessionID: sess.ID, Message: "multi-staff sessions admit exactly one client"}
		}

		sess.Type = TypeMultiStaff
		sess.LastModified = e.now()
		return map[string]any{"session_id": sess.ID}, nil
	})
	if err != nil {
		return nil, err
	}
	return state.FindSession(sessionID), nil
}

// AddToGroup marks a session as a group ahead of further clients being added.
func (e *Engine) AddToGroup(ctx context.Context, date, sessionID, actor string) (*Session, error) {
	state, err := e.mutate(ctx, date, AuditAddToGroup, actor, false, func(state *DailyState) (map[string]any, error) {
		sess := state.FindSession(sessionID)
		if sess == nil {
			return nil, &NotFoundError{Entity: "session", Key: sessionID}
		}
		if len(sess.StaffIDs) > 1 {
			return nil, &TypeConflictError{SessionID: sess.ID, Message: "multi-staff sessions cannot become groups"}
		}
		if len(sess.ClientIDs) >= MaxClientsPerSession {
			return nil, &CapacityError{SessionID: sess.ID, Member: "clients", Limit: MaxClientsPerSession}
		}

		sess.Type = TypeGroup
		sess.LastModified = e.now()
		return map[string]any{"session_id": sess.ID}, nil
	})
	if err != nil {
		return nil, err
	}
	return state.FindSession(sessionID), nil
}

// engineSessionID is the (timestamp, staffId) composite used for sessions
// synthesized outside the builder. Ids are opaque to every other component.
func engineSessionID(at time.Time, staffID string) string {
	return fmt.Sprintf("%d:%s", at.UnixNano(), staffID)
}
