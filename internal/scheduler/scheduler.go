// Package scheduler arms in-process one-shot timers for upcoming
// reminders. Only instants within the next 24 hours are armed; a
// periodic reschedule pass rolls the window forward.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"followe/internal/core"
	"followe/internal/log"
	"followe/internal/services"
	"followe/internal/store"
)

// Horizon is how far ahead timers are armed. Instants beyond it are
// picked up by a later reschedule pass.
const Horizon = 24 * time.Hour

// Key identifies one armed alert: the item and the reminder slot
// (0 = primary time, 1.. = extra times in stored order).
type Key struct {
	ItemID string
	Slot   int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d", k.ItemID, k.Slot)
}

// FireFunc delivers the alert for a due item.
type FireFunc func(ctx context.Context, item core.Item)

// Timer is the stoppable handle behind an armed alert.
type Timer interface {
	Stop() bool
}

// TimerFactory arms a callback after a delay. The default factory
// wraps time.AfterFunc; tests substitute a deterministic one.
type TimerFactory func(d time.Duration, f func()) (Timer, error)

func afterFunc(d time.Duration, f func()) (Timer, error) {
	return time.AfterFunc(d, f), nil
}

type armedAlert struct {
	item   core.Item
	timer  Timer
	fireAt time.Time
	gen    uint64
}

// Scheduler keeps at most one armed alert per key. RescheduleAll is
// the only way timers are created and is safe to call at any time; it
// rebuilds the armed set from scratch, so repeated calls with the same
// inputs converge to the same timers.
type Scheduler struct {
	items  store.ItemStore
	perms  store.PermissionSource
	clock  store.Clock
	fire   FireFunc
	logger *log.Logger

	newTimer TimerFactory

	mu    sync.Mutex
	armed map[Key]*armedAlert
	gen   uint64
}

func New(items store.ItemStore, perms store.PermissionSource, clock store.Clock, fire FireFunc, logger *log.Logger) *Scheduler {
	return &Scheduler{
		items:    items,
		perms:    perms,
		clock:    clock,
		fire:     fire,
		logger:   logger.WithComponent(log.ComponentScheduler),
		newTimer: afterFunc,
		armed:    map[Key]*armedAlert{},
	}
}

// RescheduleAll drops every armed alert and re-arms from the current
// store state. When notification permission is not granted the armed
// set stays empty. Failures on a single instant are logged and never
// block the rest of the pass.
func (s *Scheduler) RescheduleAll(ctx context.Context) error {
	s.CancelAll()

	perm, err := s.perms.Current(ctx)
	if err != nil {
		return fmt.Errorf("read permission: %w", err)
	}
	if perm != store.PermissionGranted {
		s.logger.InfoContext(ctx, "notifications not granted, nothing armed",
			log.FieldOperation, log.OpReschedule,
			"permission", string(perm),
		)
		return nil
	}

	active := true
	items, err := s.items.GetAll(ctx, store.ListFilter{Active: &active})
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}

	now := s.clock.Now()
	var armed, skipped int
	for _, item := range items {
		occ := core.NextOccurrence(item.AnchorDate, item.Rule, now)
		for slot, instant := range services.ResolveInstants(item, occ) {
			delay := instant.Sub(now)
			if delay <= 0 || delay > Horizon {
				skipped++
				continue
			}
			key := Key{ItemID: item.ID, Slot: slot}
			if err := s.arm(key, item, instant, delay); err != nil {
				s.logger.ErrorContext(ctx, "failed to arm alert",
					log.FieldOperation, log.OpReschedule,
					log.FieldAlertKey, key.String(),
					log.FieldItemID, item.ID,
					log.FieldError, err.Error(),
				)
				continue
			}
			armed++
		}
	}

	s.logger.InfoContext(ctx, "reschedule complete",
		log.FieldOperation, log.OpReschedule,
		log.FieldArmed, armed,
		log.FieldSkipped, skipped,
	)
	return nil
}

func (s *Scheduler) arm(key Key, item core.Item, fireAt time.Time, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.armed[key]; ok {
		prev.timer.Stop()
		delete(s.armed, key)
	}

	gen := s.gen
	timer, err := s.newTimer(delay, func() { s.fired(key, gen) })
	if err != nil {
		return err
	}
	s.armed[key] = &armedAlert{item: item, timer: timer, fireAt: fireAt, gen: gen}
	return nil
}

// fired runs in the timer goroutine. An alert canceled after its timer
// callback was already scheduled detects the stale generation here and
// does not fire.
func (s *Scheduler) fired(key Key, gen uint64) {
	s.mu.Lock()
	a, ok := s.armed[key]
	if !ok || a.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.armed, key)
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.InfoContext(ctx, "alert due",
		log.FieldOperation, log.OpFire,
		log.FieldAlertKey, key.String(),
		log.FieldItemID, a.item.ID,
		log.FieldItemTitle, a.item.Title,
	)
	s.fire(ctx, a.item)
}

// CancelAll stops every armed timer and empties the armed set.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, a := range s.armed {
		a.timer.Stop()
		delete(s.armed, key)
	}
	s.gen++
}

// ArmedCount reports how many alerts are currently armed.
func (s *Scheduler) ArmedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.armed)
}

// ArmedAt returns the fire instant for a key, if armed.
func (s *Scheduler) ArmedAt(key Key) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.armed[key]
	if !ok {
		return time.Time{}, false
	}
	return a.fireAt, true
}
