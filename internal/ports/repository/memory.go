package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"attendance.service/internal/core/model"
)

// MemoryStore is an in-process IntervalStore for local development and tests.
// Per-employee serialization uses a keyed mutex; a caller that fails to take
// the key immediately gets ErrConcurrentModification, matching the retry
// contract of the Postgres store. Writes are staged per transaction and
// applied only when the transaction function succeeds.
type MemoryStore struct {
	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	entries map[string]*model.TimeEntry
	breaks  map[string]*model.BreakInterval
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks:   make(map[string]*sync.Mutex),
		entries: make(map[string]*model.TimeEntry),
		breaks:  make(map[string]*model.BreakInterval),
	}
}

func (s *MemoryStore) employeeLock(tenantID, employeeID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tenantID + "|" + employeeID
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Atomic serializes fn on the employee key. A losing concurrent caller fails
// fast with ErrConcurrentModification instead of queueing behind the winner;
// the service layer retries and then observes the winner's effect.
func (s *MemoryStore) Atomic(ctx context.Context, tenantID, employeeID string, fn func(ctx context.Context, tx Tx) error) error {
	l := s.employeeLock(tenantID, employeeID)
	if !l.TryLock() {
		return ErrConcurrentModification
	}
	defer l.Unlock()

	tx := &memTx{store: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range tx.stagedEntries {
		s.entries[e.ID] = e
	}
	for _, b := range tx.stagedBreaks {
		s.breaks[b.ID] = b
	}
	return nil
}

func (s *MemoryStore) ActiveEntry(ctx context.Context, tenantID, employeeID string) (*model.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeEntryLocked(tenantID, employeeID), nil
}

func (s *MemoryStore) activeEntryLocked(tenantID, employeeID string) *model.TimeEntry {
	for _, e := range s.entries {
		if e.TenantID == tenantID && e.EmployeeID == employeeID && e.Status == model.StatusActive {
			return cloneEntry(e)
		}
	}
	return nil
}

func (s *MemoryStore) GetEntry(ctx context.Context, tenantID, entryID string) (*model.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[entryID]
	if !ok || e.TenantID != tenantID {
		return nil, nil
	}
	return cloneEntry(e), nil
}

func (s *MemoryStore) ListPendingReview(ctx context.Context, tenantID string) ([]*model.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []*model.TimeEntry
	for _, e := range s.entries {
		if e.TenantID == tenantID && e.Status == model.StatusPendingReview {
			entries = append(entries, cloneEntry(e))
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.ClockOutTime == nil || b.ClockOutTime == nil {
			return a.ID < b.ID
		}
		return a.ClockOutTime.Before(*b.ClockOutTime)
	})
	return entries, nil
}

// memTx stages writes until Atomic commits them. Reads go straight to the
// store; the services never read back their own staged writes.
type memTx struct {
	store         *MemoryStore
	stagedEntries []*model.TimeEntry
	stagedBreaks  []*model.BreakInterval
}

func (t *memTx) ActiveEntry(ctx context.Context, tenantID, employeeID string) (*model.TimeEntry, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.store.activeEntryLocked(tenantID, employeeID), nil
}

func (t *memTx) GetEntry(ctx context.Context, tenantID, entryID string) (*model.TimeEntry, error) {
	return t.store.GetEntry(ctx, tenantID, entryID)
}

func (t *memTx) InsertEntry(ctx context.Context, e *model.TimeEntry) error {
	t.stagedEntries = append(t.stagedEntries, cloneEntry(e))
	return nil
}

func (t *memTx) UpdateEntry(ctx context.Context, e *model.TimeEntry) error {
	t.stagedEntries = append(t.stagedEntries, cloneEntry(e))
	return nil
}

func (t *memTx) OpenBreak(ctx context.Context, entryID string) (*model.BreakInterval, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	for _, b := range t.store.breaks {
		if b.TimeEntryID == entryID && b.Open() {
			return cloneBreak(b), nil
		}
	}
	return nil, nil
}

func (t *memTx) ClosedBreaks(ctx context.Context, entryID string) ([]*model.BreakInterval, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	var breaks []*model.BreakInterval
	for _, b := range t.store.breaks {
		if b.TimeEntryID == entryID && !b.Open() {
			breaks = append(breaks, cloneBreak(b))
		}
	}
	sort.Slice(breaks, func(i, j int) bool { return breaks[i].BreakNumber < breaks[j].BreakNumber })
	return breaks, nil
}

func (t *memTx) MaxBreakNumber(ctx context.Context, entryID string) (int, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	max := 0
	for _, b := range t.store.breaks {
		if b.TimeEntryID == entryID && b.BreakNumber > max {
			max = b.BreakNumber
		}
	}
	return max, nil
}

func (t *memTx) InsertBreak(ctx context.Context, b *model.BreakInterval) error {
	t.stagedBreaks = append(t.stagedBreaks, cloneBreak(b))
	return nil
}

func (t *memTx) UpdateBreak(ctx context.Context, b *model.BreakInterval) error {
	t.stagedBreaks = append(t.stagedBreaks, cloneBreak(b))
	return nil
}

func cloneEntry(e *model.TimeEntry) *model.TimeEntry {
	c := *e
	c.ClockOutTime = cloneTime(e.ClockOutTime)
	c.VerifiedAt = cloneTime(e.VerifiedAt)
	c.EvidenceIn = cloneString(e.EvidenceIn)
	c.EvidenceOut = cloneString(e.EvidenceOut)
	c.VerifiedBy = cloneString(e.VerifiedBy)
	return &c
}

func cloneBreak(b *model.BreakInterval) *model.BreakInterval {
	c := *b
	c.BreakEnd = cloneTime(b.BreakEnd)
	c.EvidenceStart = cloneString(b.EvidenceStart)
	c.EvidenceEnd = cloneString(b.EvidenceEnd)
	if b.DurationMinutes != nil {
		d := *b.DurationMinutes
		c.DurationMinutes = &d
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

var _ IntervalStore = (*MemoryStore)(nil)
