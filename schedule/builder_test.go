package schedule_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/careops/schedule-engine/schedule"
	"github.com/careops/schedule-engine/schedule/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// monday is a known Monday so base assignments with Day "Monday" apply.
const monday = "2025-06-02"

type fixture struct {
	base      *store.MemoryBase
	dir       *store.MemoryDirectory
	overrides *store.MemoryOverrides
	states    *store.MemoryStates
	reviews   *store.MemoryReviews

	builder *schedule.Builder
	engine  *schedule.Engine
	service *schedule.ReviewService
}

func newFixture() *fixture {
	f := &fixture{
		base:      store.NewMemoryBase(),
		dir:       store.NewMemoryDirectory(),
		overrides: store.NewMemoryOverrides(),
		states:    store.NewMemoryStates(),
		reviews:   store.NewMemoryReviews(),
	}
	f.builder = &schedule.Builder{
		Base:      f.base,
		Staff:     f.dir,
		Clients:   f.dir,
		Overrides: f.overrides,
		States:    f.states,
		Reviews:   f.reviews,
	}
	f.engine = schedule.NewEngine(f.states, f.builder)
	f.service = &schedule.ReviewService{
		Reviews: f.reviews,
		States:  f.states,
		Builder: f.builder,
	}
	return f
}

// seedWeek installs an active main version with Monday AM assignments:
// s1 with c1, s2 with c2 and c3 (a group), s3 with no client.
func (f *fixture) seedWeek() {
	f.base.AddVersion(schedule.ScheduleVersion{
		ID: "v1", Name: "Summer", Type: schedule.ScheduleMain, Active: true,
	})
	f.assign("Monday", schedule.ShiftAM, "s1", "c1", "north")
	f.assign("Monday", schedule.ShiftAM, "s2", "c2", "north")
	f.assign("Monday", schedule.ShiftAM, "s2", "c3", "north")
	f.assign("Monday", schedule.ShiftAM, "s3", "", "south")

	for _, s := range []schedule.Staff{
		{ID: "s1", Name: "Ana", Active: true},
		{ID: "s2", Name: "Ben", Active: true},
		{ID: "s3", Name: "Cleo", Active: true},
	} {
		f.dir.AddStaff(s)
	}
	for _, c := range []schedule.Client{
		{ID: "c1", Name: "Kim"},
		{ID: "c2", Name: "Lee"},
		{ID: "c3", Name: "Max"},
	} {
		f.dir.AddClient(c)
	}
}

func (f *fixture) assign(day string, shift schedule.Shift, staffID, clientID, location string) {
	f.base.AddAssignment(schedule.BaseAssignment{
		VersionID: "v1", Day: day, Shift: shift,
		StaffID: staffID, ClientID: clientID, Location: location,
	})
}

func mustState(t *testing.T, f *fixture, date string) *schedule.DailyState {
	t.Helper()
	state, err := f.engine.GetState(context.Background(), date, "")
	if err != nil {
		t.Fatalf("GetState(%s): %v", date, err)
	}
	return state
}

// =============================================================================
// BUILD TESTS
// =============================================================================

func TestBuild_GroupsAssignmentsIntoSessions(t *testing.T) {
	// GIVEN: A base schedule where s2 has two Monday AM clients
	// WHEN: Building the Monday state
	// THEN: One session per (shift, staff) pair; s2's is a group

	f := newFixture()
	f.seedWeek()

	state := f.builder.Build(context.Background(), monday)

	if len(state.Sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(state.Sessions))
	}

	s1 := state.FindSession(monday + ":AM:s1")
	if s1 == nil {
		t.Fatal("missing session for s1")
	}
	if s1.Type != schedule.TypeIndividual || s1.Status != schedule.StatusActive {
		t.Fatalf("s1 session: got type=%s status=%s", s1.Type, s1.Status)
	}

	s2 := state.FindSession(monday + ":AM:s2")
	if s2 == nil {
		t.Fatal("missing session for s2")
	}
	if len(s2.ClientIDs) != 2 || s2.Type != schedule.TypeGroup {
		t.Fatalf("s2 session: got clients=%v type=%s", s2.ClientIDs, s2.Type)
	}
	if !s2.Original.FromBaseSchedule {
		t.Fatal("s2 session should be marked as derived from the base schedule")
	}

	s3 := state.FindSession(monday + ":AM:s3")
	if s3 == nil {
		t.Fatal("missing session for s3")
	}
	if s3.Status != schedule.StatusNeedsClients {
		t.Fatalf("clientless session: got status=%s", s3.Status)
	}
}

func TestBuild_PositionsResolveDirectoryNames(t *testing.T) {
	// GIVEN: The seeded Monday schedule
	// WHEN: Building the state
	// THEN: One position per assigned staff and client, carrying names

	f := newFixture()
	f.seedWeek()

	state := f.builder.Build(context.Background(), monday)

	if len(state.StaffPositions) != 3 {
		t.Fatalf("expected 3 staff positions, got %d", len(state.StaffPositions))
	}
	if len(state.ClientStates) != 3 {
		t.Fatalf("expected 3 client states, got %d", len(state.ClientStates))
	}

	pos := state.FindStaffPosition("s1", schedule.ShiftAM)
	if pos == nil {
		t.Fatal("missing position for s1/AM")
	}
	if pos.StaffName != "Ana" {
		t.Fatalf("expected directory name Ana, got %q", pos.StaffName)
	}
	if pos.Position.Kind != schedule.PositionAssigned {
		t.Fatalf("expected assigned, got %s", pos.Position.Kind)
	}

	cs := state.FindClientState("c2", schedule.ShiftAM)
	if cs == nil {
		t.Fatal("missing client state for c2/AM")
	}
	if cs.Position.SessionID != monday+":AM:s2" {
		t.Fatalf("c2 assigned to %q", cs.Position.SessionID)
	}
}

func TestBuild_NoActiveVersion_YieldsEmptyDay(t *testing.T) {
	// GIVEN: No active main schedule version
	// WHEN: Building a date
	// THEN: A valid empty state, not a degraded one

	f := newFixture()

	state := f.builder.Build(context.Background(), monday)

	if state.Degraded {
		t.Fatal("empty day should not be marked degraded")
	}
	if len(state.Sessions) != 0 || len(state.StaffPositions) != 0 {
		t.Fatalf("expected empty state, got %d sessions %d positions",
			len(state.Sessions), len(state.StaffPositions))
	}
}

func TestBuild_AttachesActiveOverrides(t *testing.T) {
	// GIVEN: An active and an expired override for the date
	// WHEN: Building the state
	// THEN: Only the active override is attached, unapplied

	f := newFixture()
	f.seedWeek()
	f.overrides.Add(schedule.Override{
		ID: "o1", Type: schedule.OverrideCallout, Date: monday,
		Shift: schedule.ShiftAM, StaffID: "s1",
		Status: schedule.OverrideActive,
	})
	f.overrides.Add(schedule.Override{
		ID: "o2", Type: schedule.OverrideCancellation, Date: monday,
		Shift: schedule.ShiftAM, ClientID: "c1",
		Status: schedule.OverrideExpired,
	})

	state := f.builder.Build(context.Background(), monday)

	if len(state.Overrides) != 1 || state.Overrides[0].ID != "o1" {
		t.Fatalf("expected only the active override, got %+v", state.Overrides)
	}
	// The override is informational: the staff position is untouched.
	pos := state.FindStaffPosition("s1", schedule.ShiftAM)
	if pos.Position.Kind != schedule.PositionAssigned {
		t.Fatalf("override must not be applied at build time, got %s", pos.Position.Kind)
	}
}

type failingBase struct{}

func (failingBase) GetActiveVersion(context.Context, schedule.ScheduleType) (*schedule.ScheduleVersion, error) {
	return nil, errors.New("connection refused")
}
func (failingBase) ListAssignments(context.Context, string, string) ([]schedule.BaseAssignment, error) {
	return nil, errors.New("connection refused")
}

func TestBuild_CollaboratorFailure_DegradesInsteadOfFailing(t *testing.T) {
	// GIVEN: A base schedule store that is unreachable
	// WHEN: Building a date
	// THEN: An empty state marked Degraded is returned, no error

	f := newFixture()
	f.builder.Base = failingBase{}

	state := f.builder.Build(context.Background(), monday)

	if !state.Degraded {
		t.Fatal("expected Degraded to be set")
	}
	if len(state.Sessions) != 0 {
		t.Fatalf("degraded state must be empty, got %d sessions", len(state.Sessions))
	}
}

// =============================================================================
// MATERIALIZE TESTS
// =============================================================================

func TestMaterialize_PersistsAndReturnsCached(t *testing.T) {
	// GIVEN: A materialized Monday with one mutation applied
	// WHEN: Materializing the same date again
	// THEN: The persisted state is returned, not a re-derivation

	f := newFixture()
	f.seedWeek()
	ctx := context.Background()

	first, err := f.builder.Materialize(ctx, monday)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if first.Version != 1 {
		t.Fatalf("expected persisted version 1, got %d", first.Version)
	}

	if _, err := f.engine.CancelSession(ctx, monday, monday+":AM:s1", "sup-1"); err != nil {
		t.Fatalf("CancelSession: %v", err)
	}

	second, err := f.builder.Materialize(ctx, monday)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	sess := second.FindSession(monday + ":AM:s1")
	if sess.Status != schedule.StatusCancelled {
		t.Fatal("re-materializing must not discard applied mutations")
	}
}

func TestMaterialize_RebuildAfterClear_YieldsIdenticalSessionIDs(t *testing.T) {
	// GIVEN: A materialized day whose cache is then cleared
	// WHEN: Materializing again
	// THEN: The rebuilt sessions carry the same deterministic ids

	f := newFixture()
	f.seedWeek()
	ctx := context.Background()

	first, err := f.builder.Materialize(ctx, monday)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if err := f.engine.ClearCache(ctx, monday); err != nil {
		t.Fatalf("ClearCache: %v", err)
	}
	second, err := f.builder.Materialize(ctx, monday)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	if len(first.Sessions) != len(second.Sessions) {
		t.Fatalf("rebuild changed session count: %d vs %d",
			len(first.Sessions), len(second.Sessions))
	}
	for _, sess := range first.Sessions {
		if second.FindSession(sess.ID) == nil {
			t.Fatalf("session %s missing after rebuild", sess.ID)
		}
	}
}

func TestMaterialize_InvalidDate(t *testing.T) {
	// GIVEN: A date that is not YYYY-MM-DD
	// WHEN: Materializing
	// THEN: An invalid-input error, nothing persisted

	f := newFixture()

	_, err := f.builder.Materialize(context.Background(), "06/02/2025")
	if !errors.Is(err, schedule.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestBuild_SetsBuiltAtFromClock(t *testing.T) {
	// GIVEN: A fixed clock
	// WHEN: Building
	// THEN: BuiltAt carries the clock's time

	f := newFixture()
	f.seedWeek()
	at := time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)
	f.builder.Now = func() time.Time { return at }

	state := f.builder.Build(context.Background(), monday)

	if !state.BuiltAt.Equal(at) {
		t.Fatalf("BuiltAt = %v, want %v", state.BuiltAt, at)
	}
}
