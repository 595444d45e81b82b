/*
handlers.go - HTTP API handlers for the schedule engine

PURPOSE:
  Exposes the daily schedule engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Schedule:
    GET    /api/schedule/{date}                Materialized daily state (?location= filters the view)
    GET    /api/schedule/{date}/audit          Audit log for the date
    DELETE /api/schedule/cache                 Drop persisted states (?date= for one date)

  Mutations:
    POST   /api/schedule/{date}/staff/assign   Assign staff to a session
    POST   /api/schedule/{date}/staff/callout  Mark staff callout
    POST   /api/schedule/{date}/staff/location Change staff location
    POST   /api/schedule/{date}/clients/assign Assign client to a session
    POST   /api/schedule/{date}/sessions       Create empty session
    POST   /api/schedule/{date}/sessions/{id}/staff      Add staff
    DELETE /api/schedule/{date}/sessions/{id}/staff/{sid}   Remove staff
    POST   /api/schedule/{date}/sessions/{id}/clients    Add client
    DELETE /api/schedule/{date}/sessions/{id}/clients/{cid} Remove client
    POST   /api/schedule/{date}/sessions/{id}/cancel     Cancel session
    POST   /api/schedule/{date}/sessions/{id}/staff-slot Open second staff slot
    POST   /api/schedule/{date}/sessions/{id}/group      Convert to group
    POST   /api/schedule/{date}/sessions/{id}/review     Mark reviewed
    DELETE /api/schedule/{date}/sessions/{id}/review     Clear review

  Admin:
    Base schedule versions, staff/client directories, overrides.

ERROR HANDLING:
  Domain errors map to HTTP status by their sentinel:
  - 400: invalid input
  - 404: not found
  - 409: capacity, type conflict, concurrent write conflict
  - 503: persistence unavailable
  - 500: everything else
  The body carries a machine-readable code alongside the message.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - schedule/engine.go: Domain logic behind these handlers
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/careops/schedule-engine/schedule"
	"github.com/careops/schedule-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine  *schedule.Engine
	Reviews *schedule.ReviewService
	Store   *sqlite.Store
}

// NewHandler creates a new handler.
func NewHandler(engine *schedule.Engine, reviews *schedule.ReviewService, store *sqlite.Store) *Handler {
	return &Handler{Engine: engine, Reviews: reviews, Store: store}
}

// actor resolves the acting user: X-Actor-ID header first, request body
// fallback second.
func actor(r *http.Request, bodyActor string) string {
	if id := r.Header.Get("X-Actor-ID"); id != "" {
		return id
	}
	return bodyActor
}

// =============================================================================
// SCHEDULE READS
// =============================================================================

// GetSchedule returns the materialized daily state.
// GET /api/schedule/{date}?location=north
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	location := r.URL.Query().Get("location")

	state, err := h.Engine.GetState(r.Context(), date, location)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// GetAuditLog returns the append-only audit log for a date.
// GET /api/schedule/{date}/audit
func (h *Handler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")

	state, err := h.Engine.GetState(r.Context(), date, "")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":      state.Date,
		"audit_log": state.AuditLog,
	})
}

// ClearCache drops persisted daily states so the next read rebuilds from
// the base schedule. Without ?date= it drops every date.
// DELETE /api/schedule/cache?date=2025-06-02
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")

	if err := h.Engine.ClearCache(r.Context(), date); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "cleared", "date": date})
}

// =============================================================================
// STAFF MUTATIONS
// =============================================================================

// AssignStaff places a staff member into a session.
// POST /api/schedule/{date}/staff/assign
func (h *Handler) AssignStaff(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")

	var req AssignStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	shift, err := schedule.ParseShift(req.Shift)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shift (use AM or PM)", err)
		return
	}

	sess, err := h.Engine.AssignStaff(r.Context(), date, req.StaffID, shift, req.SessionID, actor(r, req.Actor))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// MarkCallout marks a staff member as called out for a shift.
// POST /api/schedule/{date}/staff/callout
func (h *Handler) MarkCallout(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")

	var req CalloutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	shift, err := schedule.ParseShift(req.Shift)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shift (use AM or PM)", err)
		return
	}

	pos, err := h.Engine.MarkCallout(r.Context(), date, req.StaffID, shift, req.Reason, actor(r, req.Actor))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// ChangeStaffLocation moves a staff member to a different location.
// POST /api/schedule/{date}/staff/location
func (h *Handler) ChangeStaffLocation(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")

	var req ChangeLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	shift, err := schedule.ParseShift(req.Shift)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shift (use AM or PM)", err)
		return
	}

	pos, err := h.Engine.ChangeStaffLocation(r.Context(), date, req.StaffID, shift, req.Location, actor(r, req.Actor))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// =============================================================================
// SESSION MUTATIONS
// =============================================================================

// AssignClient places a client into an existing session.
// POST /api/schedule/{date}/clients/assign
func (h *Handler) AssignClient(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")

	var req AssignClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	shift, err := schedule.ParseShift(req.Shift)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shift (use AM or PM)", err)
		return
	}

	sess, err := h.Engine.AssignClient(r.Context(), date, req.ClientID, shift, req.SessionID, actor(r, req.Actor))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// CreateSession creates an empty session awaiting staff.
// POST /api/schedule/{date}/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	shift, err := schedule.ParseShift(req.Shift)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shift (use AM or PM)", err)
		return
	}

	sess, err := h.Engine.CreateSession(r.Context(), date, shift, req.Location, actor(r, req.Actor))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// AddStaffToSession adds a staff member to an existing session.
// POST /api/schedule/{date}/sessions/{sessionID}/staff
func (h *Handler) AddStaffToSession(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	sessionID := chi.URLParam(r, "sessionID")

	var req AddStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	sess, err := h.Engine.AddStaffToSession(r.Context(), date, sessionID, req.StaffID, actor(r, req.Actor))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// RemoveStaffFromSession removes a staff member from a session.
// DELETE /api/schedule/{date}/sessions/{sessionID}/staff/{staffID}
func (h *Handler) RemoveStaffFromSession(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	sessionID := chi.URLParam(r, "sessionID")
	staffID := chi.URLParam(r, "staffID")

	sess, err := h.Engine.RemoveStaffFromSession(r.Context(), date, sessionID, staffID, actor(r, ""))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// AddClientToSession adds a client to an existing session.
// POST /api/schedule/{date}/sessions/{sessionID}/clients
func (h *Handler) AddClientToSession(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	sessionID := chi.URLParam(r, "sessionID")

	var req AddClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	sess, err := h.Engine.AddClientToSession(r.Context(), date, sessionID, req.ClientID, actor(r, req.Actor))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// RemoveClientFromSession removes a client from a session.
// DELETE /api/schedule/{date}/sessions/{sessionID}/clients/{clientID}
func (h *Handler) RemoveClientFromSession(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	sessionID := chi.URLParam(r, "sessionID")
	clientID := chi.URLParam(r, "clientID")

	sess, err := h.Engine.RemoveClientFromSession(r.Context(), date, sessionID, clientID, actor(r, ""))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// CancelSession cancels a session, keeping its roster for display.
// POST /api/schedule/{date}/sessions/{sessionID}/cancel
func (h *Handler) CancelSession(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	sessionID := chi.URLParam(r, "sessionID")

	var req ActorRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	sess, err := h.Engine.CancelSession(r.Context(), date, sessionID, actor(r, req.Actor))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// AddStaffSlot opens a second staff slot, converting the session to
// multi-staff.
// POST /api/schedule/{date}/sessions/{sessionID}/staff-slot
func (h *Handler) AddStaffSlot(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	sessionID := chi.URLParam(r, "sessionID")

	var req ActorRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	sess, err := h.Engine.AddStaffSlot(r.Context(), date, sessionID, actor(r, req.Actor))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// AddToGroup converts a session to a group session.
// POST /api/schedule/{date}/sessions/{sessionID}/group
func (h *Handler) AddToGroup(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	sessionID := chi.URLParam(r, "sessionID")

	var req ActorRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	sess, err := h.Engine.AddToGroup(r.Context(), date, sessionID, actor(r, req.Actor))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// =============================================================================
// REVIEW
// =============================================================================

// ReviewSession marks a session as reviewed by a supervisor.
// POST /api/schedule/{date}/sessions/{sessionID}/review
func (h *Handler) ReviewSession(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	sessionID := chi.URLParam(r, "sessionID")

	var req ReviewRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}
	reviewedBy := req.ReviewedBy
	if reviewedBy == "" {
		reviewedBy = actor(r, req.Actor)
	}

	if err := h.Reviews.Review(r.Context(), date, sessionID, reviewedBy); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "reviewed",
		"session_id":  sessionID,
		"reviewed_by": reviewedBy,
	})
}

// UnreviewSession clears a session's review mark.
// DELETE /api/schedule/{date}/sessions/{sessionID}/review
func (h *Handler) UnreviewSession(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.Reviews.Unreview(r.Context(), date, sessionID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "unreviewed",
		"session_id": sessionID,
	})
}

// =============================================================================
// BASE SCHEDULE ADMIN
// =============================================================================

// ListVersions returns all base schedule versions.
// GET /api/base-schedule/versions
func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.Store.ListVersions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list versions", err)
		return
	}
	if versions == nil {
		versions = []schedule.ScheduleVersion{}
	}
	writeJSON(w, http.StatusOK, versions)
}

// CreateVersion creates a new base schedule version.
// POST /api/base-schedule/versions
func (h *Handler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	var req CreateVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	typ := schedule.ScheduleType(req.Type)
	if typ == "" {
		typ = schedule.ScheduleMain
	}
	switch typ {
	case schedule.ScheduleMain, schedule.ScheduleHypothetical, schedule.SchedulePlanned:
	default:
		writeError(w, http.StatusBadRequest, "Invalid schedule type", nil)
		return
	}

	v := schedule.ScheduleVersion{
		ID:   req.ID,
		Name: req.Name,
		Type: typ,
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}

	if err := h.Store.SaveVersion(r.Context(), v); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create version", err)
		return
	}
	if req.Activate {
		if err := h.Store.ActivateVersion(r.Context(), v.ID); err != nil {
			writeDomainError(w, err)
			return
		}
		v.Active = true
	}
	writeJSON(w, http.StatusCreated, v)
}

// ActivateVersion makes a version the active one of its type.
// POST /api/base-schedule/versions/{id}/activate
func (h *Handler) ActivateVersion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Store.ActivateVersion(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "activated", "id": id})
}

// ListAssignments returns a version's recurring assignments for a weekday.
// GET /api/base-schedule/versions/{id}/assignments?day=Monday
func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	day := r.URL.Query().Get("day")
	if day == "" {
		writeError(w, http.StatusBadRequest, "day query parameter is required", nil)
		return
	}

	assignments, err := h.Store.ListAssignments(r.Context(), id, day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list assignments", err)
		return
	}
	if assignments == nil {
		assignments = []schedule.BaseAssignment{}
	}
	writeJSON(w, http.StatusOK, assignments)
}

// AddAssignment appends a recurring assignment to a version.
// POST /api/base-schedule/versions/{id}/assignments
func (h *Handler) AddAssignment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req AddAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	shift, err := schedule.ParseShift(req.Shift)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shift (use AM or PM)", err)
		return
	}
	if req.Day == "" || req.StaffID == "" {
		writeError(w, http.StatusBadRequest, "day and staff_id are required", nil)
		return
	}

	a := schedule.BaseAssignment{
		VersionID: id,
		Day:       req.Day,
		Shift:     shift,
		StaffID:   req.StaffID,
		ClientID:  req.ClientID,
		Location:  req.Location,
	}
	if err := h.Store.AddAssignment(r.Context(), a); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to add assignment", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// =============================================================================
// DIRECTORY ADMIN
// =============================================================================

// ListStaff returns all staff directory records.
// GET /api/staff
func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.Store.ListStaff(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list staff", err)
		return
	}
	if staff == nil {
		staff = []schedule.Staff{}
	}
	writeJSON(w, http.StatusOK, staff)
}

// SaveStaff inserts or updates a staff record.
// POST /api/staff
func (h *Handler) SaveStaff(w http.ResponseWriter, r *http.Request) {
	var rec schedule.Staff
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if rec.ID == "" || rec.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	if err := h.Store.SaveStaff(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save staff", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// ListClients returns all client directory records.
// GET /api/clients
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Store.ListClients(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list clients", err)
		return
	}
	if clients == nil {
		clients = []schedule.Client{}
	}
	writeJSON(w, http.StatusOK, clients)
}

// SaveClient inserts or updates a client record.
// POST /api/clients
func (h *Handler) SaveClient(w http.ResponseWriter, r *http.Request) {
	var rec schedule.Client
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if rec.ID == "" || rec.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	if err := h.Store.SaveClient(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save client", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// =============================================================================
// OVERRIDE ADMIN
// =============================================================================

// ListOverrides returns all overrides for a date.
// GET /api/overrides?date=2025-06-02
func (h *Handler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date query parameter is required", nil)
		return
	}

	overrides, err := h.Store.ListOverrides(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list overrides", err)
		return
	}
	if overrides == nil {
		overrides = []schedule.Override{}
	}
	writeJSON(w, http.StatusOK, overrides)
}

// CreateOverride records a date-scoped exception to the base schedule.
// POST /api/overrides
func (h *Handler) CreateOverride(w http.ResponseWriter, r *http.Request) {
	var req CreateOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, err := schedule.ParseDate(req.Date); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	shift, err := schedule.ParseShift(req.Shift)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shift (use AM or PM)", err)
		return
	}

	typ := schedule.OverrideType(req.Type)
	switch typ {
	case schedule.OverrideCallout, schedule.OverrideCancellation, schedule.OverrideReassignment:
	default:
		writeError(w, http.StatusBadRequest, "Invalid override type", nil)
		return
	}

	o := schedule.Override{
		ID:                 req.ID,
		Type:               typ,
		Date:               req.Date,
		Shift:              shift,
		StaffID:            req.StaffID,
		ClientID:           req.ClientID,
		ReplacementStaffID: req.ReplacementStaff,
		ReplacementClient:  req.ReplacementClient,
		Reason:             req.Reason,
		Status:             schedule.OverrideActive,
		CreatedBy:          actor(r, req.CreatedBy),
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	if err := h.Store.SaveOverride(r.Context(), o); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create override", err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// ExpireOverride flips an override to expired.
// POST /api/overrides/{id}/expire
func (h *Handler) ExpireOverride(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Store.ExpireOverride(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "expired", "id": id})
}

// =============================================================================
// ADMIN
// =============================================================================

// Reset clears all data (dev only).
// POST /api/reset
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "reset"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain sentinels to HTTP status and a stable code.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal"

	switch {
	case errors.Is(err, schedule.ErrInvalidInput):
		status, code = http.StatusBadRequest, "invalid_input"
	case schedule.IsNotFound(err):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, schedule.ErrCapacityExceeded):
		status, code = http.StatusConflict, "capacity_exceeded"
	case errors.Is(err, schedule.ErrTypeConflict):
		status, code = http.StatusConflict, "type_conflict"
	case schedule.IsRetryable(err):
		status, code = http.StatusConflict, "conflict"
	case schedule.IsUnavailable(err):
		status, code = http.StatusServiceUnavailable, "unavailable"
	}

	writeJSON(w, status, ErrorResponse{
		Error:   err.Error(),
		Code:    code,
		Details: "",
	})
}
