package store

import (
	"context"
	"errors"
	"time"

	"followe/internal/core"
)

// Notification permission as granted by the user. Scheduling is a
// no-op unless the state is granted.
type PermissionState string

const (
	PermissionNotAsked PermissionState = "not_asked"
	PermissionGranted  PermissionState = "granted"
	PermissionDenied   PermissionState = "denied"
)

func (p PermissionState) Valid() bool {
	switch p {
	case PermissionNotAsked, PermissionGranted, PermissionDenied:
		return true
	}
	return false
}

// ListFilter narrows GetAll results.
type ListFilter struct {
	// Active filters by activation state when non-nil.
	Active *bool
	// Category filters by category when non-empty.
	Category core.Category
}

var (
	ErrNotFound          = errors.New("item not found")
	ErrInvalidPermission = errors.New("invalid permission state")
)

// Ports for outbound adapters.
type (
	// ItemStore persists reminder items. GetAll returns items in
	// created_at descending order.
	ItemStore interface {
		GetAll(ctx context.Context, f ListFilter) ([]core.Item, error)
		Get(ctx context.Context, id string) (core.Item, error)
		Create(ctx context.Context, item core.Item) (core.Item, error)
		Update(ctx context.Context, item core.Item) (core.Item, error)
		Delete(ctx context.Context, id string) error
		SetActive(ctx context.Context, id string, active bool) (core.Item, error)
	}

	// PermissionSource reads and records the notification permission.
	PermissionSource interface {
		Current(ctx context.Context) (PermissionState, error)
		Set(ctx context.Context, state PermissionState) error
	}

	// Clock abstracts time for deterministic scheduling tests.
	Clock interface {
		Now() time.Time
	}
)

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
