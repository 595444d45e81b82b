package store_test

import (
	"context"
	"testing"

	"github.com/careops/schedule-engine/schedule"
	"github.com/careops/schedule-engine/schedule/store"
)

func TestMemoryStates_StaleWriterGetsConflict(t *testing.T) {
	// GIVEN: Two writers loaded the same version of a date
	// WHEN: Both store their mutation
	// THEN: The second gets ErrConflict and the first write is kept

	states := store.NewMemoryStates()
	ctx := context.Background()

	fresh := &schedule.DailyState{Date: "2025-06-02"}
	if err := states.Store(ctx, fresh); err != nil {
		t.Fatalf("initial Store: %v", err)
	}

	a, err := states.Load(ctx, "2025-06-02")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b, err := states.Load(ctx, "2025-06-02")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	a.Degraded = true
	if err := states.Store(ctx, a); err != nil {
		t.Fatalf("first writer: %v", err)
	}

	err = states.Store(ctx, b)
	if err != schedule.ErrConflict {
		t.Fatalf("second writer: got %v, want ErrConflict", err)
	}
	if !schedule.IsRetryable(err) {
		t.Fatal("conflict must be classified retryable")
	}

	cur, _ := states.Load(ctx, "2025-06-02")
	if !cur.Degraded {
		t.Fatal("winning write was lost")
	}
}

func TestMemoryStates_FreshDateRequiresVersionZero(t *testing.T) {
	// GIVEN: No state for a date
	// WHEN: Storing with a non-zero version
	// THEN: ErrConflict

	states := store.NewMemoryStates()

	stale := &schedule.DailyState{Date: "2025-06-02", Version: 3}
	if err := states.Store(context.Background(), stale); err != schedule.ErrConflict {
		t.Fatalf("got %v, want ErrConflict", err)
	}
}

func TestMemoryStates_LoadReturnsIsolatedCopy(t *testing.T) {
	// GIVEN: A stored state
	// WHEN: Mutating a loaded copy without storing it
	// THEN: The stored document is unaffected

	states := store.NewMemoryStates()
	ctx := context.Background()

	if err := states.Store(ctx, &schedule.DailyState{Date: "2025-06-02"}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	loaded, _ := states.Load(ctx, "2025-06-02")
	loaded.Sessions = append(loaded.Sessions, schedule.Session{ID: "rogue"})

	cur, _ := states.Load(ctx, "2025-06-02")
	if len(cur.Sessions) != 0 {
		t.Fatal("mutating a loaded copy leaked into the store")
	}
}

func TestMemoryStates_DeleteAll(t *testing.T) {
	states := store.NewMemoryStates()
	ctx := context.Background()

	for _, date := range []string{"2025-06-02", "2025-06-03"} {
		if err := states.Store(ctx, &schedule.DailyState{Date: date}); err != nil {
			t.Fatalf("Store(%s): %v", date, err)
		}
	}

	if err := states.DeleteAll(ctx, "2025-06-02"); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if s, _ := states.Load(ctx, "2025-06-02"); s != nil {
		t.Fatal("deleted date still present")
	}
	if s, _ := states.Load(ctx, "2025-06-03"); s == nil {
		t.Fatal("other date must be untouched")
	}

	if err := states.DeleteAll(ctx, ""); err != nil {
		t.Fatalf("DeleteAll(all): %v", err)
	}
	if s, _ := states.Load(ctx, "2025-06-03"); s != nil {
		t.Fatal("empty date must clear every date")
	}
}
