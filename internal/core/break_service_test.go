package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBreakFixture(t *testing.T, clock *fakeClock) (*BreakService, *TimeEntryService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	producer := &fakeProducer{}

	entries := NewTimeEntryService(store, defaultDirectory(), producer)
	entries.now = clock.Now

	breaks := NewBreakService(store, producer)
	breaks.now = clock.Now
	return breaks, entries, store
}

func TestStartBreak_RequiresActiveEntry(t *testing.T) {
	ctx := context.Background()
	breaks, _, _ := newBreakFixture(t, newFakeClock(at(8, 0)))

	_, err := breaks.StartBreak(ctx, "acme", "emp-1", "")
	assert.ErrorIs(t, err, ErrNotClockedIn)
}

func TestStartBreak_FirstBreakIsLunch(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(at(8, 0))
	breaks, entries, _ := newBreakFixture(t, clock)

	_, err := entries.ClockIn(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	clock.Set(at(12, 0))
	brk, err := breaks.StartBreak(ctx, "acme", "emp-1", "evidence://lunch")
	require.NoError(t, err)

	assert.Equal(t, 1, brk.BreakNumber)
	assert.Equal(t, model.BreakTypeLunch, brk.BreakType)
	assert.False(t, brk.IsPaid)
	assert.Equal(t, at(12, 0), brk.BreakStart)
	assert.Nil(t, brk.BreakEnd)
}

func TestStartBreak_FailsWhenBreakAlreadyOpen(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(at(8, 0))
	breaks, entries, _ := newBreakFixture(t, clock)

	_, err := entries.ClockIn(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	_, err = breaks.StartBreak(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	_, err = breaks.StartBreak(ctx, "acme", "emp-1", "")
	assert.ErrorIs(t, err, ErrBreakAlreadyOpen)
}

func TestStartBreak_NumbersAreSequential(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(at(8, 0))
	breaks, entries, _ := newBreakFixture(t, clock)

	_, err := entries.ClockIn(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	// Cycle through several breaks; #1 needs the minimum duration, the rest
	// may be closed immediately.
	clock.Set(at(12, 0))
	first, err := breaks.StartBreak(ctx, "acme", "emp-1", "")
	require.NoError(t, err)
	clock.Set(at(12, 30))
	_, err = breaks.EndBreak(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	for i := 2; i <= 4; i++ {
		brk, err := breaks.StartBreak(ctx, "acme", "emp-1", "")
		require.NoError(t, err)
		assert.Equal(t, i, brk.BreakNumber)
		assert.Equal(t, model.BreakTypeRegular, brk.BreakType)

		_, err = breaks.EndBreak(ctx, "acme", "emp-1", "")
		require.NoError(t, err)
	}

	assert.Equal(t, 1, first.BreakNumber)
}

func TestEndBreak_LunchBelowMinimumFails(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(at(8, 0))
	breaks, entries, store := newBreakFixture(t, clock)

	entry, err := entries.ClockIn(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	clock.Set(at(12, 0))
	_, err = breaks.StartBreak(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	clock.Set(at(12, 20))
	_, err = breaks.EndBreak(ctx, "acme", "emp-1", "")

	var tooShort *BreakTooShortError
	require.ErrorAs(t, err, &tooShort)
	assert.Equal(t, int64(600), tooShort.RemainingSeconds())

	// No state change: the break is still open and retryable.
	err = store.Atomic(ctx, "acme", "emp-1", func(ctx context.Context, tx repository.Tx) error {
		open, err := tx.OpenBreak(ctx, entry.ID)
		require.NoError(t, err)
		require.NotNil(t, open)
		assert.Nil(t, open.BreakEnd)
		return nil
	})
	require.NoError(t, err)

	// Ten minutes later the same call succeeds.
	clock.Set(at(12, 30))
	brk, err := breaks.EndBreak(ctx, "acme", "emp-1", "")
	require.NoError(t, err)
	assert.Equal(t, 30, *brk.DurationMinutes)
}

func TestEndBreak_SecondBreakHasNoMinimum(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(at(8, 0))
	breaks, entries, _ := newBreakFixture(t, clock)

	_, err := entries.ClockIn(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	clock.Set(at(12, 0))
	_, err = breaks.StartBreak(ctx, "acme", "emp-1", "")
	require.NoError(t, err)
	clock.Set(at(12, 30))
	_, err = breaks.EndBreak(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	clock.Set(at(15, 0))
	_, err = breaks.StartBreak(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	// Zero-duration close is legal for breaks #2+.
	brk, err := breaks.EndBreak(ctx, "acme", "emp-1", "")
	require.NoError(t, err)
	assert.Equal(t, 0, *brk.DurationMinutes)

	clock.Set(at(15, 10))
	third, err := breaks.StartBreak(ctx, "acme", "emp-1", "")
	require.NoError(t, err)
	clock.Set(at(15, 15))
	brk, err = breaks.EndBreak(ctx, "acme", "emp-1", "")
	require.NoError(t, err)
	assert.Equal(t, third.ID, brk.ID)
	assert.Equal(t, 5, *brk.DurationMinutes)
}

func TestEndBreak_WithoutOpenBreakFails(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(at(8, 0))
	breaks, entries, _ := newBreakFixture(t, clock)

	_, err := breaks.EndBreak(ctx, "acme", "emp-1", "")
	assert.ErrorIs(t, err, ErrNoOpenBreak)

	_, err = entries.ClockIn(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	_, err = breaks.EndBreak(ctx, "acme", "emp-1", "")
	assert.ErrorIs(t, err, ErrNoOpenBreak)
}

func TestEndBreak_RecomputesRunningTotals(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(at(8, 0))
	breaks, entries, store := newBreakFixture(t, clock)

	entry, err := entries.ClockIn(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	clock.Set(at(12, 0))
	_, err = breaks.StartBreak(ctx, "acme", "emp-1", "")
	require.NoError(t, err)
	clock.Set(at(12, 30))
	_, err = breaks.EndBreak(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	// The entry is still active; its running total reflects the closed break.
	stored, err := store.GetEntry(ctx, "acme", entry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, stored.Status)
	assert.Equal(t, 4.0, stored.TotalHours)
}

func TestStartBreak_ConcurrentCallsCreateExactlyOneBreak(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(at(12, 0))
	breaks, entries, store := newBreakFixture(t, clock)

	entry, err := entries.ClockIn(ctx, "acme", "emp-1", "")
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = breaks.StartBreak(ctx, "acme", "emp-1", "")
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		// Losers resolve to the winner's effect after the internal retry, or
		// surface the retryable conflict if contention persisted past it.
		expected := errors.Is(err, ErrBreakAlreadyOpen) || errors.Is(err, repository.ErrConcurrentModification)
		assert.True(t, expected, "unexpected error: %v", err)
	}
	assert.Equal(t, 1, winners, "exactly one StartBreak may win the race")

	err = store.Atomic(ctx, "acme", "emp-1", func(ctx context.Context, tx repository.Tx) error {
		open, err := tx.OpenBreak(ctx, entry.ID)
		require.NoError(t, err)
		require.NotNil(t, open)
		assert.Equal(t, 1, open.BreakNumber)

		max, err := tx.MaxBreakNumber(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, max, "the losing calls must not have created breaks")
		return nil
	})
	require.NoError(t, err)
}
