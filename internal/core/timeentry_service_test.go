package core

import (
	"context"
	"testing"
	"time"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntryService(clock *fakeClock) (*TimeEntryService, *repository.MemoryStore, *fakeProducer) {
	store := repository.NewMemoryStore()
	producer := &fakeProducer{}
	svc := NewTimeEntryService(store, defaultDirectory(), producer)
	svc.now = clock.Now
	return svc, store, producer
}

func TestClockIn_CreatesActiveEntry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(at(8, 0))
	svc, _, _ := newEntryService(clock)

	entry, err := svc.ClockIn(ctx, "acme", "emp-1", "evidence://photo-1")
	require.NoError(t, err)

	assert.Equal(t, model.StatusActive, entry.Status)
	assert.Equal(t, at(8, 0), entry.ClockInTime)
	assert.Nil(t, entry.ClockOutTime)
	require.NotNil(t, entry.EvidenceIn)
	assert.Equal(t, "evidence://photo-1", *entry.EvidenceIn)
	assert.Equal(t, model.DefaultMinimumFirstBreakMinutes, entry.MinimumFirstBreakMinutes)
	assert.Equal(t, model.DefaultOvertimeThresholdHours, entry.OvertimeThresholdHours)
}

func TestClockIn_FailsWhenAlreadyClockedIn(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(at(8, 0))
	svc, _, _ := newEntryService(clock)

	_, err := svc.ClockIn(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	_, err = svc.ClockIn(ctx, "acme", "emp-1", "")
	assert.ErrorIs(t, err, ErrAlreadyClockedIn)
}

func TestClockIn_IndependentEmployeesDoNotConflict(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(at(8, 0))
	svc, _, _ := newEntryService(clock)

	_, err := svc.ClockIn(ctx, "acme", "emp-1", "")
	require.NoError(t, err)
	_, err = svc.ClockIn(ctx, "acme", "emp-2", "")
	require.NoError(t, err)
	// Same employee id under a different tenant is a different scope.
	_, err = svc.ClockIn(ctx, "globex", "emp-1", "")
	require.NoError(t, err)
}

func TestClockIn_DirectoryOutageFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(at(8, 0))
	store := repository.NewMemoryStore()
	svc := NewTimeEntryService(store, &fakeDirectory{err: assert.AnError}, &fakeProducer{})
	svc.now = clock.Now

	entry, err := svc.ClockIn(ctx, "acme", "emp-1", "")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultMinimumFirstBreakMinutes, entry.MinimumFirstBreakMinutes)
	assert.False(t, entry.RequiresVerification)
}

func TestClockOut_FinalizesHours(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(at(8, 0))
	svc, store, _ := newEntryService(clock)
	breaks := NewBreakService(store, &fakeProducer{})
	breaks.now = clock.Now

	_, err := svc.ClockIn(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	clock.Set(at(12, 0))
	_, err = breaks.StartBreak(ctx, "acme", "emp-1", "")
	require.NoError(t, err)
	clock.Set(at(12, 30))
	_, err = breaks.EndBreak(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	clock.Set(at(17, 0))
	entry, err := svc.ClockOut(ctx, "acme", "emp-1", "evidence://photo-2")
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, entry.Status)
	require.NotNil(t, entry.ClockOutTime)
	assert.Equal(t, at(17, 0), *entry.ClockOutTime)
	assert.Equal(t, 8.5, entry.TotalHours)
	assert.Equal(t, 8.0, entry.RegularHours)
	assert.Equal(t, 0.5, entry.OvertimeHours)
}

func TestClockOut_IsIdempotentForClients(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(at(8, 0))
	svc, store, _ := newEntryService(clock)

	_, err := svc.ClockIn(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	clock.Set(at(17, 0))
	first, err := svc.ClockOut(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	// A replayed clock-out must fail cleanly, never duplicate or re-deduct.
	_, err = svc.ClockOut(ctx, "acme", "emp-1", "")
	assert.ErrorIs(t, err, ErrNotClockedIn)

	stored, err := store.GetEntry(ctx, "acme", first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.TotalHours, stored.TotalHours)
}

func TestClockOut_WithoutClockInFails(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newEntryService(newFakeClock(at(8, 0)))

	_, err := svc.ClockOut(ctx, "acme", "emp-1", "")
	assert.ErrorIs(t, err, ErrNotClockedIn)
}

func TestClockOut_AutoClosesOpenBreak(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(at(8, 0))
	svc, store, _ := newEntryService(clock)
	breaks := NewBreakService(store, &fakeProducer{})
	breaks.now = clock.Now

	_, err := svc.ClockIn(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	// Break #1 closed normally so the 16:50 break is #2 (no minimum).
	clock.Set(at(12, 0))
	_, err = breaks.StartBreak(ctx, "acme", "emp-1", "")
	require.NoError(t, err)
	clock.Set(at(12, 30))
	_, err = breaks.EndBreak(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	clock.Set(at(16, 50))
	second, err := breaks.StartBreak(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	// Employee walks off without ending the break; clock-out closes it.
	clock.Set(at(17, 0))
	entry, err := svc.ClockOut(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	// 9h span minus 30m lunch minus 10m auto-closed break.
	assert.Equal(t, 8.33, entry.TotalHours)

	var autoClosed *model.BreakInterval
	err = store.Atomic(ctx, "acme", "emp-1", func(ctx context.Context, tx repository.Tx) error {
		open, err := tx.OpenBreak(ctx, entry.ID)
		require.NoError(t, err)
		assert.Nil(t, open, "no break may remain open after clock-out")

		closed, err := tx.ClosedBreaks(ctx, entry.ID)
		require.NoError(t, err)
		for _, b := range closed {
			if b.ID == second.ID {
				autoClosed = b
			}
		}
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, autoClosed)
	assert.Equal(t, at(17, 0), *autoClosed.BreakEnd)
	assert.Equal(t, 10, *autoClosed.DurationMinutes)
}

func TestClockOut_FlaggedEntryEntersPendingReview(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(at(8, 0))
	store := repository.NewMemoryStore()
	producer := &fakeProducer{}
	dir := &fakeDirectory{policy: model.Policy{
		MinimumFirstBreakMinutes:   30,
		OvertimeThresholdHours:     8.0,
		RequiresManualVerification: true,
	}}
	svc := NewTimeEntryService(store, dir, producer)
	svc.now = clock.Now

	_, err := svc.ClockIn(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	clock.Set(at(17, 0))
	entry, err := svc.ClockOut(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	assert.Equal(t, model.StatusPendingReview, entry.Status)

	reviews := producer.reviewEvents()
	require.Len(t, reviews, 1)
	assert.Equal(t, entry.ID, reviews[0].TimeEntryID)
	assert.Equal(t, entry.TotalHours, reviews[0].TotalHours)
}

func TestClockOut_SucceedsWhenProducerIsDown(t *testing.T) {
	// Change notification is best-effort; a dead queue must not fail the punch.
	ctx := context.Background()
	clock := newFakeClock(at(8, 0))
	store := repository.NewMemoryStore()
	svc := NewTimeEntryService(store, defaultDirectory(), &fakeProducer{err: assert.AnError})
	svc.now = clock.Now

	_, err := svc.ClockIn(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	clock.Set(at(16, 0))
	entry, err := svc.ClockOut(ctx, "acme", "emp-1", "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, entry.Status)
}

func TestGetActiveEntry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(at(8, 0))
	svc, _, _ := newEntryService(clock)

	entry, err := svc.GetActiveEntry(ctx, "acme", "emp-1")
	require.NoError(t, err)
	assert.Nil(t, entry)

	created, err := svc.ClockIn(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	entry, err = svc.GetActiveEntry(ctx, "acme", "emp-1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, created.ID, entry.ID)
}

func TestClockIn_ValidatesScope(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newEntryService(newFakeClock(time.Now()))

	_, err := svc.ClockIn(ctx, "", "emp-1", "")
	assert.ErrorIs(t, err, ErrInvalidTenantOrEmployee)
	_, err = svc.ClockIn(ctx, "acme", "", "")
	assert.ErrorIs(t, err, ErrInvalidTenantOrEmployee)
}
