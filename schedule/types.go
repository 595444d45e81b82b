/*
Package schedule provides the daily schedule assignment engine.

PURPOSE:
  This package contains the types and algorithms for managing one day of
  working assignments between care staff and clients: materializing a day's
  state from a versioned weekly base schedule, and mutating that state
  through a fixed vocabulary of operations while preserving capacity,
  uniqueness, and session-type invariants.

KEY CONCEPTS IN THIS FILE (types.go):
  - Shift: one of two daily time blocks (AM/PM)
  - Position: tagged variant describing where a staff member or client is
  - StaffPosition/ClientState: one person's placement for one (date, shift)
  - Session: a unit of work pairing up to 3 staff with up to 8 clients
  - DailyState: the full persisted working state for one calendar date
  - AuditEntry: one applied operation, appended to the DailyState

DESIGN PRINCIPLES:
  1. Whole-document state: DailyState is the unit of persistence; every
     mutation rewrites the document under an optimistic version check
  2. Sum types over loose fields: Position is an explicit tagged variant,
     exhaustively matched wherever it is inspected
  3. Centralized derivation: session type comes from one pure function,
     DeriveType, never re-implemented per operation
  4. Auditability: every successful mutation appends exactly one AuditEntry

SEE ALSO:
  - builder.go: derives the initial DailyState from the base schedule
  - engine.go: the state-transition operations
  - errors.go: the error taxonomy shared by builder and engine
*/
package schedule

import "time"

// =============================================================================
// SHIFT - One of two daily time blocks
// =============================================================================

type Shift string

const (
	ShiftAM Shift = "AM"
	ShiftPM Shift = "PM"
)

// ParseShift validates a shift string.
func ParseShift(s string) (Shift, error) {
	switch Shift(s) {
	case ShiftAM, ShiftPM:
		return Shift(s), nil
	}
	return "", &InvalidInputError{Field: "shift", Message: "must be AM or PM"}
}

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// ParseDate validates a calendar date and returns its weekday name.
func ParseDate(date string) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", &InvalidInputError{Field: "date", Message: "must be YYYY-MM-DD"}
	}
	return t.Weekday().String(), nil
}

// =============================================================================
// POSITION - Tagged variant for staff and client placement
// =============================================================================

type PositionKind string

const (
	PositionAvailable  PositionKind = "available"
	PositionTraining   PositionKind = "training"
	PositionAssigned   PositionKind = "assigned"
	PositionCallout    PositionKind = "callout"
	PositionCancelled  PositionKind = "cancelled"
	PositionUnassigned PositionKind = "unassigned"
)

// Position is the placement variant for a staff member or client.
// SessionID is set for assigned, and preserved (possibly empty) for callout.
// Reason is set for callout only.
type Position struct {
	Kind      PositionKind `json:"kind"`
	SessionID string       `json:"session_id,omitempty"`
	Reason    string       `json:"reason,omitempty"`
}

func Available() Position                  { return Position{Kind: PositionAvailable} }
func Training() Position                   { return Position{Kind: PositionTraining} }
func Assigned(sessionID string) Position   { return Position{Kind: PositionAssigned, SessionID: sessionID} }
func Cancelled() Position                  { return Position{Kind: PositionCancelled} }
func Unassigned() Position                 { return Position{Kind: PositionUnassigned} }

// Callout preserves the session the staff member was assigned to, if any.
func Callout(sessionID, reason string) Position {
	return Position{Kind: PositionCallout, SessionID: sessionID, Reason: reason}
}

// =============================================================================
// STAFF POSITION / CLIENT STATE - One person, one (date, shift)
// =============================================================================

// StaffPosition is one staff member's placement for one (date, shift) pair.
// At most one exists per (staff id, shift) per date.
type StaffPosition struct {
	StaffID          string   `json:"staff_id"`
	StaffName        string   `json:"staff_name"`
	Shift            Shift    `json:"shift"`
	Position         Position `json:"position"`
	Location         string   `json:"location,omitempty"`
	OriginalLocation string   `json:"original_location,omitempty"`
}

// ClientState is one client's placement for one (date, shift) pair.
// At most one exists per (client id, shift) per date.
type ClientState struct {
	ClientID   string   `json:"client_id"`
	ClientName string   `json:"client_name"`
	Shift      Shift    `json:"shift"`
	Position   Position `json:"position"`
	Location   string   `json:"location,omitempty"`
}

// =============================================================================
// SESSION - A unit of work in one shift
// =============================================================================

type SessionStatus string

const (
	StatusActive       SessionStatus = "active"
	StatusNeedsStaff   SessionStatus = "needs_staff"
	StatusNeedsClients SessionStatus = "needs_clients"
	StatusCancelled    SessionStatus = "cancelled"
)

type SessionType string

const (
	TypeIndividual SessionType = "individual"
	TypeGroup      SessionType = "group"
	TypeMultiStaff SessionType = "multi_staff"
)

// Capacity limits for a single session.
const (
	MaxStaffPerSession   = 3
	MaxClientsPerSession = 8
)

// DeriveType is the single source of truth for session type.
// multi_staff whenever more than one staff; group whenever more than one
// client with at most one staff; individual otherwise.
func DeriveType(staffCount, clientCount int) SessionType {
	switch {
	case staffCount > 1:
		return TypeMultiStaff
	case clientCount > 1:
		return TypeGroup
	default:
		return TypeIndividual
	}
}

// OriginalState snapshots a session's membership at creation, used to
// detect drift from the base schedule.
type OriginalState struct {
	ClientIDs        []string `json:"client_ids"`
	StaffIDs         []string `json:"staff_ids"`
	FromBaseSchedule bool     `json:"from_base_schedule"`
}

// Session pairs 0-3 staff with 0-8 clients in one shift. Cancelled sessions
// keep their membership for audit fidelity.
type Session struct {
	ID           string        `json:"id"`
	ClientIDs    []string      `json:"client_ids"`
	StaffIDs     []string      `json:"staff_ids"`
	Shift        Shift         `json:"shift"`
	Location     string        `json:"location,omitempty"`
	Status       SessionStatus `json:"status"`
	Type         SessionType   `json:"session_type"`
	Original     OriginalState `json:"original_state"`
	Reviewed     bool          `json:"reviewed"`
	ReviewedBy   string        `json:"reviewed_by,omitempty"`
	LastModified time.Time     `json:"last_modified"`
}

// HasStaff reports whether the staff member is on the session's roster.
func (s *Session) HasStaff(staffID string) bool { return containsID(s.StaffIDs, staffID) }

// HasClient reports whether the client is on the session's roster.
func (s *Session) HasClient(clientID string) bool { return containsID(s.ClientIDs, clientID) }

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// =============================================================================
// AUDIT - Append-only trail of applied operations
// =============================================================================

type AuditAction string

const (
	AuditAssignStaff             AuditAction = "assign_staff"
	AuditAssignClient            AuditAction = "assign_client"
	AuditCreateSession           AuditAction = "create_session"
	AuditAddStaffToSession       AuditAction = "add_staff_to_session"
	AuditRemoveStaffFromSession  AuditAction = "remove_staff_from_session"
	AuditAddClientToSession      AuditAction = "add_client_to_session"
	AuditRemoveClientFromSession AuditAction = "remove_client_from_session"
	AuditCancelSession           AuditAction = "cancel_session"
	AuditMarkCallout             AuditAction = "mark_callout"
	AuditChangeStaffLocation     AuditAction = "change_staff_location"
	AuditAddStaffSlot            AuditAction = "add_staff_slot"
	AuditAddToGroup              AuditAction = "add_to_group"
)

// AuditEntry is immutable once appended to a DailyState.
type AuditEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    AuditAction    `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	ActorID   string         `json:"actor_id"`
}

// =============================================================================
// DAILY STATE - The persisted envelope for one calendar date
// =============================================================================

// DailyState is the unit of persistence and of external exposure. Version is
// a monotonic counter: StateStore.Store compare-and-swaps on it, so a stale
// writer gets ErrConflict instead of silently losing the other write.
type DailyState struct {
	Date           string          `json:"date"`
	Version        int64           `json:"version"`
	StaffPositions []StaffPosition `json:"staff_positions"`
	ClientStates   []ClientState   `json:"client_states"`
	Sessions       []Session       `json:"sessions"`
	AuditLog       []AuditEntry    `json:"audit_log"`

	// Overrides active on this date, attached at build time. The builder
	// fetches but does not apply them; resolution is a presentation-layer
	// concern pending a product decision.
	Overrides []Override `json:"overrides,omitempty"`

	// Degraded marks a state built while a collaborator was unreachable,
	// distinguishing it from a genuinely empty day.
	Degraded bool      `json:"degraded,omitempty"`
	BuiltAt  time.Time `json:"built_at"`
}

// FindSession returns the session with the given id, or nil.
func (d *DailyState) FindSession(id string) *Session {
	for i := range d.Sessions {
		if d.Sessions[i].ID == id {
			return &d.Sessions[i]
		}
	}
	return nil
}

// FindStaffPosition returns the position for (staffID, shift), or nil.
func (d *DailyState) FindStaffPosition(staffID string, shift Shift) *StaffPosition {
	for i := range d.StaffPositions {
		if d.StaffPositions[i].StaffID == staffID && d.StaffPositions[i].Shift == shift {
			return &d.StaffPositions[i]
		}
	}
	return nil
}

// FindClientState returns the state for (clientID, shift), or nil.
func (d *DailyState) FindClientState(clientID string, shift Shift) *ClientState {
	for i := range d.ClientStates {
		if d.ClientStates[i].ClientID == clientID && d.ClientStates[i].Shift == shift {
			return &d.ClientStates[i]
		}
	}
	return nil
}

// =============================================================================
// OVERRIDE - Date-scoped exception to the base schedule
// =============================================================================

type OverrideType string

const (
	OverrideCallout      OverrideType = "callout"
	OverrideCancellation OverrideType = "cancellation"
	OverrideReassignment OverrideType = "reassignment"
)

type OverrideStatus string

const (
	OverrideActive  OverrideStatus = "active"
	OverrideExpired OverrideStatus = "expired"
)

// Override is read by the builder and never mutated by the engine; its
// lifecycle belongs to the override store.
type Override struct {
	ID                 string         `json:"id"`
	Type               OverrideType   `json:"type"`
	Date               string         `json:"date"`
	Shift              Shift          `json:"shift"`
	StaffID            string         `json:"staff_id,omitempty"`
	ClientID           string         `json:"client_id,omitempty"`
	ReplacementStaffID string         `json:"replacement_staff_id,omitempty"`
	ReplacementClient  string         `json:"replacement_client_id,omitempty"`
	Reason             string         `json:"reason,omitempty"`
	Status             OverrideStatus `json:"status"`
	CreatedBy          string         `json:"created_by,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}

// =============================================================================
// DIRECTORY AND BASE-SCHEDULE RECORDS
// =============================================================================

// Staff is a staff directory record. RoleTrainee yields a training position
// when the staff member has no session for a shift.
type Staff struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Role      string   `json:"role,omitempty"`
	Locations []string `json:"locations,omitempty"`
	Active    bool     `json:"active"`
}

const RoleTrainee = "trainee"

// Client is a client directory record.
type Client struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Locations []string `json:"locations,omitempty"`
}

type ScheduleType string

const (
	ScheduleMain         ScheduleType = "main"
	ScheduleHypothetical ScheduleType = "hypothetical"
	SchedulePlanned      ScheduleType = "planned"
)

// ScheduleVersion is one named weekly template. Exactly one version of type
// main is active at a time.
type ScheduleVersion struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Type      ScheduleType `json:"type"`
	Active    bool         `json:"active"`
	CreatedAt time.Time    `json:"created_at"`
}

// BaseAssignment is one recurring (day-of-week, shift, staff, client) row of
// a schedule version. Day is a weekday name ("Monday").
type BaseAssignment struct {
	VersionID string `json:"version_id"`
	Day       string `json:"day"`
	Shift     Shift  `json:"shift"`
	StaffID   string `json:"staff_id"`
	ClientID  string `json:"client_id,omitempty"`
	Location  string `json:"location,omitempty"`
}
