package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careops/schedule-engine/schedule"
	"github.com/careops/schedule-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// =============================================================================
// SCHEDULE VERSIONS
// =============================================================================

func TestActivateVersion_SwitchesActiveWithinType(t *testing.T) {
	// GIVEN: Two main versions, the first active
	// WHEN: Activating the second
	// THEN: Exactly one main version is active

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveVersion(ctx, schedule.ScheduleVersion{
		ID: "v1", Name: "Spring", Type: schedule.ScheduleMain, Active: true,
	}))
	require.NoError(t, store.SaveVersion(ctx, schedule.ScheduleVersion{
		ID: "v2", Name: "Summer", Type: schedule.ScheduleMain,
	}))

	require.NoError(t, store.ActivateVersion(ctx, "v2"))

	active, err := store.GetActiveVersion(ctx, schedule.ScheduleMain)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "v2", active.ID)

	versions, err := store.ListVersions(ctx)
	require.NoError(t, err)
	activeCount := 0
	for _, v := range versions {
		if v.Active {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount)
}

func TestGetActiveVersion_NoneIsNotAnError(t *testing.T) {
	store := newTestStore(t)

	active, err := store.GetActiveVersion(context.Background(), schedule.ScheduleMain)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestActivateVersion_Missing(t *testing.T) {
	store := newTestStore(t)

	err := store.ActivateVersion(context.Background(), "nope")
	assert.True(t, schedule.IsNotFound(err))
}

func TestListAssignments_FiltersByVersionAndDay(t *testing.T) {
	// GIVEN: Assignments on two days of one version
	// WHEN: Listing Monday
	// THEN: Only Monday rows, in insertion order

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveVersion(ctx, schedule.ScheduleVersion{
		ID: "v1", Name: "Spring", Type: schedule.ScheduleMain, Active: true,
	}))
	rows := []schedule.BaseAssignment{
		{VersionID: "v1", Day: "Monday", Shift: schedule.ShiftAM, StaffID: "s1", ClientID: "c1", Location: "north"},
		{VersionID: "v1", Day: "Monday", Shift: schedule.ShiftPM, StaffID: "s2"},
		{VersionID: "v1", Day: "Tuesday", Shift: schedule.ShiftAM, StaffID: "s1", ClientID: "c2"},
	}
	for _, a := range rows {
		require.NoError(t, store.AddAssignment(ctx, a))
	}

	monday, err := store.ListAssignments(ctx, "v1", "Monday")
	require.NoError(t, err)
	require.Len(t, monday, 2)
	assert.Equal(t, "s1", monday[0].StaffID)
	assert.Equal(t, "c1", monday[0].ClientID)
	assert.Empty(t, monday[1].ClientID)
}

// =============================================================================
// DIRECTORIES
// =============================================================================

func TestStaffDirectory_ActiveFilterAndLocations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveStaff(ctx, schedule.Staff{
		ID: "s1", Name: "Ana", Role: "caregiver",
		Locations: []string{"north", "south"}, Active: true,
	}))
	require.NoError(t, store.SaveStaff(ctx, schedule.Staff{
		ID: "s2", Name: "Ben", Active: false,
	}))

	active, err := store.ListActiveStaff(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Ana", active[0].Name)
	assert.Equal(t, []string{"north", "south"}, active[0].Locations)

	all, err := store.ListStaff(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestClientDirectory_Roundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveClient(ctx, schedule.Client{
		ID: "c1", Name: "Kim", Locations: []string{"north"},
	}))
	// Upsert by id
	require.NoError(t, store.SaveClient(ctx, schedule.Client{
		ID: "c1", Name: "Kimberly", Locations: []string{"north"},
	}))

	clients, err := store.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Kimberly", clients[0].Name)
}

// =============================================================================
// OVERRIDES
// =============================================================================

func TestOverrides_ListActiveExcludesExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveOverride(ctx, schedule.Override{
		ID: "o1", Type: schedule.OverrideCallout, Date: "2025-06-02",
		Shift: schedule.ShiftAM, StaffID: "s1", Reason: "sick",
		Status: schedule.OverrideActive,
	}))
	require.NoError(t, store.SaveOverride(ctx, schedule.Override{
		ID: "o2", Type: schedule.OverrideCancellation, Date: "2025-06-02",
		Shift: schedule.ShiftPM, ClientID: "c1",
		Status: schedule.OverrideActive,
	}))
	require.NoError(t, store.ExpireOverride(ctx, "o2"))

	active, err := store.ListActive(ctx, "2025-06-02")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "o1", active[0].ID)

	all, err := store.ListOverrides(ctx, "2025-06-02")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestExpireOverride_Missing(t *testing.T) {
	store := newTestStore(t)

	err := store.ExpireOverride(context.Background(), "nope")
	assert.True(t, schedule.IsNotFound(err))
}

// =============================================================================
// DAILY STATE - CAS versioning
// =============================================================================

func TestDailyState_RoundtripBumpsVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	state := &schedule.DailyState{
		Date: "2025-06-02",
		Sessions: []schedule.Session{
			{ID: "2025-06-02:AM:s1", StaffIDs: []string{"s1"}, Shift: schedule.ShiftAM},
		},
	}
	require.NoError(t, store.Store(ctx, state))
	assert.Equal(t, int64(1), state.Version)

	loaded, err := store.Load(ctx, "2025-06-02")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, int64(1), loaded.Version)
	require.Len(t, loaded.Sessions, 1)
	assert.Equal(t, "2025-06-02:AM:s1", loaded.Sessions[0].ID)
}

func TestDailyState_StaleWriterGetsConflict(t *testing.T) {
	// GIVEN: Two writers loaded version 1 of the same date
	// WHEN: Both store
	// THEN: The second gets ErrConflict and the version did not advance

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, &schedule.DailyState{Date: "2025-06-02"}))

	a, err := store.Load(ctx, "2025-06-02")
	require.NoError(t, err)
	b, err := store.Load(ctx, "2025-06-02")
	require.NoError(t, err)

	a.Degraded = true
	require.NoError(t, store.Store(ctx, a))

	err = store.Store(ctx, b)
	assert.ErrorIs(t, err, schedule.ErrConflict)
	assert.Equal(t, int64(1), b.Version, "failed store must roll the version back")

	cur, err := store.Load(ctx, "2025-06-02")
	require.NoError(t, err)
	assert.True(t, cur.Degraded, "winning write must be kept")
	assert.Equal(t, int64(2), cur.Version)
}

func TestDailyState_DuplicateInsertIsConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, &schedule.DailyState{Date: "2025-06-02"}))

	err := store.Store(ctx, &schedule.DailyState{Date: "2025-06-02"})
	assert.ErrorIs(t, err, schedule.ErrConflict)
}

func TestDailyState_LoadAbsent(t *testing.T) {
	store := newTestStore(t)

	state, err := store.Load(context.Background(), "2025-06-02")
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestDailyState_DeleteAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, &schedule.DailyState{Date: "2025-06-02"}))
	require.NoError(t, store.Store(ctx, &schedule.DailyState{Date: "2025-06-03"}))

	require.NoError(t, store.DeleteAll(ctx, "2025-06-02"))
	gone, err := store.Load(ctx, "2025-06-02")
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := store.Load(ctx, "2025-06-03")
	require.NoError(t, err)
	assert.NotNil(t, kept)

	require.NoError(t, store.DeleteAll(ctx, ""))
	kept, err = store.Load(ctx, "2025-06-03")
	require.NoError(t, err)
	assert.Nil(t, kept)
}

// =============================================================================
// REVIEWS
// =============================================================================

func TestReviews_UpsertListDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := schedule.ReviewRecord{
		Date: "2025-06-02", SessionID: "2025-06-02:AM:s1", ReviewedBy: "sup-1",
	}
	require.NoError(t, store.UpsertReview(ctx, rec))

	// Upsert replaces the reviewer
	rec.ReviewedBy = "sup-2"
	require.NoError(t, store.UpsertReview(ctx, rec))

	reviews, err := store.ListReviews(ctx, "2025-06-02")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "sup-2", reviews[0].ReviewedBy)

	require.NoError(t, store.DeleteReview(ctx, "2025-06-02", "2025-06-02:AM:s1"))
	reviews, err = store.ListReviews(ctx, "2025-06-02")
	require.NoError(t, err)
	assert.Empty(t, reviews)
}
