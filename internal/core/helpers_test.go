package core

import (
	"context"
	"sync"
	"time"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/messaging"
)

// -------- test fakes --------

type fakeProducer struct {
	mu      sync.Mutex
	changes []messaging.ChangeEvent
	reviews []messaging.ReviewEvent
	err     error
}

func (f *fakeProducer) PublishChange(ctx context.Context, event messaging.ChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.changes = append(f.changes, event)
	return nil
}

func (f *fakeProducer) PublishReview(ctx context.Context, event messaging.ReviewEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.reviews = append(f.reviews, event)
	return nil
}

func (f *fakeProducer) reviewEvents() []messaging.ReviewEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]messaging.ReviewEvent(nil), f.reviews...)
}

type fakeDirectory struct {
	policy model.Policy
	err    error
}

func (f *fakeDirectory) Resolve(ctx context.Context, tenantID, employeeID string) (model.Policy, error) {
	if f.err != nil {
		return model.Policy{}, f.err
	}
	return f.policy, nil
}

func defaultDirectory() *fakeDirectory {
	return &fakeDirectory{policy: model.DefaultPolicy()}
}

// fakeClock is a controllable time source for the services' now func.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

var testDay = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2025, 6, 2, hour, minute, 0, 0, time.UTC)
}
