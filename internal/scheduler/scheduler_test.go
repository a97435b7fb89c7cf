package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"followe/internal/core"
	"followe/internal/log"
	"followe/internal/store"
	"followe/internal/store/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type fakeTimer struct {
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := t.stopped
	t.stopped = true
	return !was
}

// fakeTimers records armed callbacks so tests can fire them by hand.
type fakeTimers struct {
	mu      sync.Mutex
	delays  []time.Duration
	fns     []func()
	timers  []*fakeTimer
	failOn  int // 1-based call index that errors, 0 = never
	calls   int
}

func (f *fakeTimers) factory(d time.Duration, fn func()) (Timer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failOn != 0 && f.calls == f.failOn {
		return nil, errors.New("arm failed")
	}
	t := &fakeTimer{}
	f.delays = append(f.delays, d)
	f.fns = append(f.fns, fn)
	f.timers = append(f.timers, t)
	return t, nil
}

func testLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

type firedList struct {
	mu    sync.Mutex
	items []core.Item
}

func (f *firedList) fire(_ context.Context, item core.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, item)
}

func (f *firedList) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

func seedItem(t *testing.T, s *memory.Store, item core.Item) core.Item {
	t.Helper()
	got, err := s.Create(context.Background(), item)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return got
}

func newTestScheduler(t *testing.T, now time.Time) (*Scheduler, *memory.Store, *fakeTimers, *firedList) {
	t.Helper()
	mem := memory.New()
	if err := mem.Set(context.Background(), store.PermissionGranted); err != nil {
		t.Fatalf("grant: %v", err)
	}
	timers := &fakeTimers{}
	fired := &firedList{}
	s := New(mem, mem, &fakeClock{now: now}, fired.fire, testLogger())
	s.newTimer = timers.factory
	return s, mem, timers, fired
}

func threeSlotItem() core.Item {
	return core.Item{
		Title:       "Rent",
		Amount:      core.Money{Cents: 85000},
		Category:    core.Rent,
		AnchorDate:  core.NewDate(2025, 6, 10),
		PrimaryTime: "09:00",
		ExtraTimes:  []string{"13:00", "21:00"},
		Rule:        core.Once,
		Priority:    core.High,
		IsActive:    true,
	}
}

func TestRescheduleArmsWithinHorizon(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	s, mem, timers, _ := newTestScheduler(t, now)
	seedItem(t, mem, threeSlotItem())

	if err := s.RescheduleAll(context.Background()); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if got := s.ArmedCount(); got != 3 {
		t.Fatalf("armed: got %d want 3", got)
	}
	want := []time.Duration{time.Hour, 5 * time.Hour, 13 * time.Hour}
	for i, d := range want {
		if timers.delays[i] != d {
			t.Fatalf("delay %d: got %v want %v", i, timers.delays[i], d)
		}
	}
}

func TestRescheduleSkipsPastInstants(t *testing.T) {
	now := time.Date(2025, 6, 10, 21, 30, 0, 0, time.UTC)
	s, mem, _, _ := newTestScheduler(t, now)
	seedItem(t, mem, threeSlotItem())

	if err := s.RescheduleAll(context.Background()); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if got := s.ArmedCount(); got != 0 {
		t.Fatalf("armed: got %d want 0", got)
	}
}

func TestRescheduleSkipsBeyondHorizon(t *testing.T) {
	now := time.Date(2025, 6, 8, 8, 0, 0, 0, time.UTC)
	s, mem, _, _ := newTestScheduler(t, now)
	// occurrence two days out
	seedItem(t, mem, threeSlotItem())

	if err := s.RescheduleAll(context.Background()); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if got := s.ArmedCount(); got != 0 {
		t.Fatalf("armed: got %d want 0", got)
	}
}

func TestReschedulePermissionGate(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	for _, perm := range []store.PermissionState{store.PermissionNotAsked, store.PermissionDenied} {
		s, mem, _, _ := newTestScheduler(t, now)
		seedItem(t, mem, threeSlotItem())
		if err := mem.Set(context.Background(), perm); err != nil {
			t.Fatalf("set: %v", err)
		}

		if err := s.RescheduleAll(context.Background()); err != nil {
			t.Fatalf("reschedule: %v", err)
		}
		if got := s.ArmedCount(); got != 0 {
			t.Fatalf("perm %s: armed %d want 0", perm, got)
		}
	}
}

func TestRescheduleIdempotent(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	s, mem, timers, _ := newTestScheduler(t, now)
	seedItem(t, mem, threeSlotItem())

	ctx := context.Background()
	if err := s.RescheduleAll(ctx); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := s.RescheduleAll(ctx); err != nil {
		t.Fatalf("second: %v", err)
	}
	if got := s.ArmedCount(); got != 3 {
		t.Fatalf("armed: got %d want 3", got)
	}
	// the first pass's timers must all be stopped
	for i := 0; i < 3; i++ {
		if !timers.timers[i].stopped {
			t.Fatalf("timer %d from first pass still live", i)
		}
	}
}

func TestRescheduleSkipsInactive(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	s, mem, _, _ := newTestScheduler(t, now)
	it := threeSlotItem()
	it.IsActive = false
	seedItem(t, mem, it)

	if err := s.RescheduleAll(context.Background()); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if got := s.ArmedCount(); got != 0 {
		t.Fatalf("armed: got %d want 0", got)
	}
}

func TestArmFailureIsolated(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	s, mem, timers, _ := newTestScheduler(t, now)
	timers.failOn = 2
	seedItem(t, mem, threeSlotItem())

	if err := s.RescheduleAll(context.Background()); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if got := s.ArmedCount(); got != 2 {
		t.Fatalf("armed: got %d want 2", got)
	}
}

func TestFireDeliversAndRemoves(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	s, mem, timers, fired := newTestScheduler(t, now)
	it := seedItem(t, mem, threeSlotItem())

	if err := s.RescheduleAll(context.Background()); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	timers.fns[0]() // primary slot fires

	if fired.count() != 1 {
		t.Fatalf("fired: got %d", fired.count())
	}
	if fired.items[0].ID != it.ID {
		t.Fatalf("fired wrong item %q", fired.items[0].ID)
	}
	if got := s.ArmedCount(); got != 2 {
		t.Fatalf("armed after fire: got %d want 2", got)
	}
	if _, ok := s.ArmedAt(Key{ItemID: it.ID, Slot: 0}); ok {
		t.Fatal("fired key still armed")
	}
}

func TestStaleCallbackDoesNotFire(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	s, mem, timers, fired := newTestScheduler(t, now)
	seedItem(t, mem, threeSlotItem())

	if err := s.RescheduleAll(context.Background()); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	s.CancelAll()
	// callbacks from the canceled pass run anyway, as a timer that
	// already expired would
	for _, fn := range timers.fns {
		fn()
	}
	if fired.count() != 0 {
		t.Fatalf("fired: got %d want 0", fired.count())
	}
}

func TestStaleCallbackAcrossReschedule(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	s, mem, timers, fired := newTestScheduler(t, now)
	it := seedItem(t, mem, threeSlotItem())

	ctx := context.Background()
	if err := s.RescheduleAll(ctx); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := s.RescheduleAll(ctx); err != nil {
		t.Fatalf("second: %v", err)
	}
	// a first-pass callback racing the second pass must not fire
	timers.fns[0]()
	if fired.count() != 0 {
		t.Fatalf("fired: got %d want 0", fired.count())
	}
	// the second pass's own timers still work
	timers.fns[3]()
	if fired.count() != 1 {
		t.Fatalf("fired: got %d want 1", fired.count())
	}
	if got := s.ArmedCount(); got != 2 {
		t.Fatalf("armed: got %d", got)
	}
	_ = it
}

func TestRecurringItemArmsNextOccurrence(t *testing.T) {
	// monthly anchored in the past: next occurrence is today
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	s, mem, timers, _ := newTestScheduler(t, now)
	it := threeSlotItem()
	it.AnchorDate = core.NewDate(2025, 1, 10)
	it.Rule = core.Monthly
	it.ExtraTimes = nil
	seedItem(t, mem, it)

	if err := s.RescheduleAll(context.Background()); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if got := s.ArmedCount(); got != 1 {
		t.Fatalf("armed: got %d want 1", got)
	}
	if timers.delays[0] != time.Hour {
		t.Fatalf("delay: got %v", timers.delays[0])
	}
}
