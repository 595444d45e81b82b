// Package store provides in-memory implementations of the schedule
// collaborator interfaces, for tests and dev mode.
package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/careops/schedule-engine/schedule"
)

// =============================================================================
// MEMORY BASE SCHEDULE
// =============================================================================

type MemoryBase struct {
	mu          sync.RWMutex
	versions    []schedule.ScheduleVersion
	assignments map[string][]schedule.BaseAssignment // by version id
}

func NewMemoryBase() *MemoryBase {
	return &MemoryBase{assignments: make(map[string][]schedule.BaseAssignment)}
}

// AddVersion registers a version. An active version deactivates any other
// active version of the same type.
func (m *MemoryBase) AddVersion(v schedule.ScheduleVersion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.Active {
		for i := range m.versions {
			if m.versions[i].Type == v.Type {
				m.versions[i].Active = false
			}
		}
	}
	m.versions = append(m.versions, v)
}

func (m *MemoryBase) AddAssignment(a schedule.BaseAssignment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[a.VersionID] = append(m.assignments[a.VersionID], a)
}

func (m *MemoryBase) GetActiveVersion(_ context.Context, typ schedule.ScheduleType) (*schedule.ScheduleVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.versions {
		if v.Type == typ && v.Active {
			out := v
			return &out, nil
		}
	}
	return nil, nil
}

func (m *MemoryBase) ListAssignments(_ context.Context, versionID, day string) ([]schedule.BaseAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []schedule.BaseAssignment
	for _, a := range m.assignments[versionID] {
		if a.Day == day {
			out = append(out, a)
		}
	}
	return out, nil
}

// =============================================================================
// MEMORY DIRECTORY - Staff and clients in one place
// =============================================================================

type MemoryDirectory struct {
	mu      sync.RWMutex
	staff   []schedule.Staff
	clients []schedule.Client
}

func NewMemoryDirectory() *MemoryDirectory { return &MemoryDirectory{} }

func (m *MemoryDirectory) AddStaff(s schedule.Staff) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staff = append(m.staff, s)
}

func (m *MemoryDirectory) AddClient(c schedule.Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients = append(m.clients, c)
}

func (m *MemoryDirectory) ListActiveStaff(_ context.Context) ([]schedule.Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []schedule.Staff
	for _, s := range m.staff {
		if s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemoryDirectory) ListClients(_ context.Context) ([]schedule.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]schedule.Client{}, m.clients...), nil
}

// =============================================================================
// MEMORY OVERRIDES
// =============================================================================

type MemoryOverrides struct {
	mu        sync.RWMutex
	overrides []schedule.Override
}

func NewMemoryOverrides() *MemoryOverrides { return &MemoryOverrides{} }

func (m *MemoryOverrides) Add(o schedule.Override) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides = append(m.overrides, o)
}

func (m *MemoryOverrides) ListActive(_ context.Context, date string) ([]schedule.Override, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []schedule.Override
	for _, o := range m.overrides {
		if o.Date == date && o.Status == schedule.OverrideActive {
			out = append(out, o)
		}
	}
	return out, nil
}

// =============================================================================
// MEMORY STATE STORE - Whole-document CAS on Version
// =============================================================================

type MemoryStates struct {
	mu     sync.Mutex
	states map[string]*schedule.DailyState
}

func NewMemoryStates() *MemoryStates {
	return &MemoryStates{states: make(map[string]*schedule.DailyState)}
}

func (m *MemoryStates) Load(_ context.Context, date string) (*schedule.DailyState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.states[date]
	if !ok {
		return nil, nil
	}
	return deepCopy(cur)
}

// Store compare-and-swaps on Version: the caller's state must carry the
// version it loaded (0 for a fresh date), otherwise ErrConflict.
func (m *MemoryStates) Store(_ context.Context, state *schedule.DailyState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.states[state.Date]
	if !ok {
		if state.Version != 0 {
			return schedule.ErrConflict
		}
	} else if cur.Version != state.Version {
		return schedule.ErrConflict
	}

	state.Version++
	stored, err := deepCopy(state)
	if err != nil {
		state.Version--
		return err
	}
	m.states[state.Date] = stored
	return nil
}

func (m *MemoryStates) DeleteAll(_ context.Context, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if date == "" {
		m.states = make(map[string]*schedule.DailyState)
		return nil
	}
	delete(m.states, date)
	return nil
}

// deepCopy via JSON keeps the stored document isolated from caller mutation,
// matching what the sqlite store does naturally.
func deepCopy(state *schedule.DailyState) (*schedule.DailyState, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	var out schedule.DailyState
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// MEMORY REVIEWS
// =============================================================================

type MemoryReviews struct {
	mu      sync.RWMutex
	reviews map[string]map[string]schedule.ReviewRecord // date -> session id
}

func NewMemoryReviews() *MemoryReviews {
	return &MemoryReviews{reviews: make(map[string]map[string]schedule.ReviewRecord)}
}

func (m *MemoryReviews) UpsertReview(_ context.Context, rec schedule.ReviewRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byDate, ok := m.reviews[rec.Date]
	if !ok {
		byDate = make(map[string]schedule.ReviewRecord)
		m.reviews[rec.Date] = byDate
	}
	byDate[rec.SessionID] = rec
	return nil
}

func (m *MemoryReviews) DeleteReview(_ context.Context, date, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reviews[date], sessionID)
	return nil
}

func (m *MemoryReviews) ListReviews(_ context.Context, date string) ([]schedule.ReviewRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []schedule.ReviewRecord
	for _, rec := range m.reviews[date] {
		out = append(out, rec)
	}
	return out, nil
}
