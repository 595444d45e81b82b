/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Responses mostly
  serialize the schedule domain types directly (they carry json tags and
  the daily state is itself a JSON document in storage), so this file is
  dominated by request bodies.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - ErrorResponse: Uniform error envelope

ACTOR:
  Every mutation records who performed it. The actor comes from the
  X-Actor-ID header, with the request body's "actor" field as fallback.

VALIDATION:
  Validation is done in handlers and in the engine, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - schedule/types.go: Domain types serialized in responses
*/
package api

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// SCHEDULE MUTATION REQUESTS
// =============================================================================

// AssignStaffRequest places a staff member into a session for a shift.
// SessionID is optional; empty means create a fresh session.
type AssignStaffRequest struct {
	StaffID   string `json:"staff_id"`
	Shift     string `json:"shift"`
	SessionID string `json:"session_id,omitempty"`
	Actor     string `json:"actor,omitempty"`
}

// CalloutRequest marks a staff member as called out for a shift.
type CalloutRequest struct {
	StaffID string `json:"staff_id"`
	Shift   string `json:"shift"`
	Reason  string `json:"reason,omitempty"`
	Actor   string `json:"actor,omitempty"`
}

// ChangeLocationRequest moves a staff member to a different location.
type ChangeLocationRequest struct {
	StaffID  string `json:"staff_id"`
	Shift    string `json:"shift"`
	Location string `json:"location"`
	Actor    string `json:"actor,omitempty"`
}

// AssignClientRequest places a client into a session for a shift.
type AssignClientRequest struct {
	ClientID  string `json:"client_id"`
	Shift     string `json:"shift"`
	SessionID string `json:"session_id"`
	Actor     string `json:"actor,omitempty"`
}

// CreateSessionRequest creates an empty session.
type CreateSessionRequest struct {
	Shift    string `json:"shift"`
	Location string `json:"location,omitempty"`
	Actor    string `json:"actor,omitempty"`
}

// AddStaffRequest adds a staff member to an existing session.
type AddStaffRequest struct {
	StaffID string `json:"staff_id"`
	Actor   string `json:"actor,omitempty"`
}

// AddClientRequest adds a client to an existing session.
type AddClientRequest struct {
	ClientID string `json:"client_id"`
	Actor    string `json:"actor,omitempty"`
}

// ActorRequest carries only the acting user, for operations whose target
// is fully identified by the URL.
type ActorRequest struct {
	Actor string `json:"actor,omitempty"`
}

// ReviewRequest marks a session as reviewed.
type ReviewRequest struct {
	ReviewedBy string `json:"reviewed_by,omitempty"`
	Actor      string `json:"actor,omitempty"`
}

// =============================================================================
// ADMIN REQUESTS
// =============================================================================

// CreateVersionRequest creates a new base schedule version. ID is optional;
// one is generated when absent. Activate makes it the active version of its
// type immediately.
type CreateVersionRequest struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Activate bool   `json:"activate,omitempty"`
}

// AddAssignmentRequest appends one recurring assignment to a version.
type AddAssignmentRequest struct {
	Day      string `json:"day"`
	Shift    string `json:"shift"`
	StaffID  string `json:"staff_id"`
	ClientID string `json:"client_id,omitempty"`
	Location string `json:"location,omitempty"`
}

// CreateOverrideRequest records a date-scoped exception.
type CreateOverrideRequest struct {
	ID                string `json:"id,omitempty"`
	Type              string `json:"type"`
	Date              string `json:"date"`
	Shift             string `json:"shift"`
	StaffID           string `json:"staff_id,omitempty"`
	ClientID          string `json:"client_id,omitempty"`
	ReplacementStaff  string `json:"replacement_staff_id,omitempty"`
	ReplacementClient string `json:"replacement_client_id,omitempty"`
	Reason            string `json:"reason,omitempty"`
	CreatedBy         string `json:"created_by,omitempty"`
}
