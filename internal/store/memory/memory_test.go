package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"followe/internal/core"
	"followe/internal/store"
)

func newItem(title string, cat core.Category, active bool) core.Item {
	return core.Item{
		Title:       title,
		Amount:      core.Money{Cents: 1000},
		Category:    cat,
		AnchorDate:  core.NewDate(2025, 1, 1),
		PrimaryTime: "09:00",
		Rule:        core.Monthly,
		Priority:    core.Medium,
		IsActive:    active,
	}
}

func TestCreateAssignsIDAndTimestamps(t *testing.T) {
	s := New()
	got, err := s.Create(context.Background(), newItem("Netflix", core.Subscription, true))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.ID == "" {
		t.Fatal("expected generated id")
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps")
	}
}

func TestCreateRejectsInvalid(t *testing.T) {
	s := New()
	bad := newItem("", core.Bill, true)
	if _, err := s.Create(context.Background(), bad); !errors.Is(err, core.ErrEmptyTitle) {
		t.Fatalf("got %v", err)
	}
}

func TestGetAllOrderAndFilter(t *testing.T) {
	s := New()
	ctx := context.Background()
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { ts = ts.Add(time.Minute); return ts }

	a, _ := s.Create(ctx, newItem("Rent", core.Rent, true))
	b, _ := s.Create(ctx, newItem("Netflix", core.Subscription, false))
	c, _ := s.Create(ctx, newItem("Power", core.Bill, true))

	all, err := s.GetAll(ctx, store.ListFilter{})
	if err != nil {
		t.Fatalf("getall: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d items", len(all))
	}
	// newest first
	if all[0].ID != c.ID || all[1].ID != b.ID || all[2].ID != a.ID {
		t.Fatalf("wrong order: %s %s %s", all[0].Title, all[1].Title, all[2].Title)
	}

	active := true
	got, _ := s.GetAll(ctx, store.ListFilter{Active: &active})
	if len(got) != 2 {
		t.Fatalf("active filter: got %d", len(got))
	}

	got, _ = s.GetAll(ctx, store.ListFilter{Category: core.Subscription})
	if len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("category filter: got %d", len(got))
	}
}

func TestUpdatePreservesCreatedAt(t *testing.T) {
	s := New()
	ctx := context.Background()
	it, _ := s.Create(ctx, newItem("Rent", core.Rent, true))

	it.Title = "Rent (new flat)"
	got, err := s.Update(ctx, it)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !got.CreatedAt.Equal(it.CreatedAt) {
		t.Fatal("created_at changed")
	}
	if got.Title != "Rent (new flat)" {
		t.Fatalf("got %q", got.Title)
	}

	missing := newItem("ghost", core.Bill, true)
	missing.ID = "nope"
	if _, err := s.Update(ctx, missing); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestDeleteAndSetActive(t *testing.T) {
	s := New()
	ctx := context.Background()
	it, _ := s.Create(ctx, newItem("Gym", core.Subscription, true))

	got, err := s.SetActive(ctx, it.ID, false)
	if err != nil {
		t.Fatalf("setactive: %v", err)
	}
	if got.IsActive {
		t.Fatal("still active")
	}

	if err := s.Delete(ctx, it.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, it.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
	if _, err := s.SetActive(ctx, it.ID, true); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestPermission(t *testing.T) {
	s := New()
	ctx := context.Background()

	got, err := s.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if got != store.PermissionNotAsked {
		t.Fatalf("got %q", got)
	}

	if err := s.Set(ctx, store.PermissionGranted); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, _ = s.Current(ctx)
	if got != store.PermissionGranted {
		t.Fatalf("got %q", got)
	}

	if err := s.Set(ctx, "maybe"); !errors.Is(err, store.ErrInvalidPermission) {
		t.Fatalf("got %v", err)
	}
}
