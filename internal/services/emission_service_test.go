package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/core"
)

func TestSubmitEmissionCreatesThenUpdates(t *testing.T) {
	store := newFakeStore()
	user := store.addUser(core.User{Email: "alice@example.com", Role: core.RoleUser})
	pub := &fakePublisher{}
	svc := NewEmissionService(store, pub)
	ctx := context.Background()

	date := core.NewDate(2025, 6, 10)

	res, err := svc.SubmitEmission(ctx, user.ID, "car", core.Amount{Milligrams: 10000}, date)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if !res.Created {
		t.Fatalf("expected first submit to create")
	}

	res2, err := svc.SubmitEmission(ctx, user.ID, "car", core.Amount{Milligrams: 30000}, date)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if res2.Created {
		t.Fatalf("expected second submit to update")
	}
	if res2.EmissionID != res.EmissionID {
		t.Fatalf("expected same row, got %d and %d", res.EmissionID, res2.EmissionID)
	}

	rows, _ := store.ListEmissionsSince(ctx, user.ID, date)
	if len(rows) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(rows))
	}
	if rows[0].Amount.Milligrams != 30000 {
		t.Fatalf("expected last amount to win, got %d", rows[0].Amount.Milligrams)
	}
	if rows[0].Source != core.SourceManual {
		t.Fatalf("expected manual source, got %s", rows[0].Source)
	}

	if len(pub.published) != 2 {
		t.Fatalf("expected 2 events, got %d", len(pub.published))
	}
}

func TestSubmitEmissionDefaultsToToday(t *testing.T) {
	store := newFakeStore()
	user := store.addUser(core.User{Email: "bob@example.com"})
	svc := NewEmissionService(store, nil)

	if _, err := svc.SubmitEmission(context.Background(), user.ID, "bus", core.Amount{Milligrams: 500}, core.Date{}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	rows, _ := store.ListEmissionsSince(context.Background(), user.ID, core.Today())
	if len(rows) != 1 || rows[0].Date.ISO() != core.Today().ISO() {
		t.Fatalf("expected one row dated today, got %+v", rows)
	}
}

func TestSubmitEmissionValidation(t *testing.T) {
	store := newFakeStore()
	user := store.addUser(core.User{Email: "carol@example.com"})
	svc := NewEmissionService(store, nil)
	ctx := context.Background()

	_, err := svc.SubmitEmission(ctx, 9999, "car", core.Amount{Milligrams: 1}, core.Date{})
	if !errors.Is(err, core.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	_, err = svc.SubmitEmission(ctx, user.ID, "   ", core.Amount{Milligrams: 1}, core.Date{})
	if !errors.Is(err, core.ErrEmptyActivity) {
		t.Fatalf("expected ErrEmptyActivity, got %v", err)
	}

	_, err = svc.SubmitEmission(ctx, user.ID, "car", core.Amount{Milligrams: -1}, core.Date{})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	if len(store.emissions) != 0 {
		t.Fatalf("failed submissions must not write, got %d rows", len(store.emissions))
	}
}

func TestSubmitEmissionSurvivesPublishFailure(t *testing.T) {
	store := newFakeStore()
	user := store.addUser(core.User{Email: "dan@example.com"})
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewEmissionService(store, pub)

	if _, err := svc.SubmitEmission(context.Background(), user.ID, "car", core.Amount{Milligrams: 1}, core.Date{}); err != nil {
		t.Fatalf("publish failure must not fail the submit: %v", err)
	}
	if len(store.emissions) != 1 {
		t.Fatalf("expected durable write, got %d rows", len(store.emissions))
	}
}

func TestRecordForUserBypassesNaturalKey(t *testing.T) {
	store := newFakeStore()
	user := store.addUser(core.User{Email: "eve@example.com"})
	svc := NewEmissionService(store, nil)
	ctx := context.Background()

	id1, err := svc.RecordForUser(ctx, user.ID, "sensor", core.Amount{Milligrams: 100})
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	id2, err := svc.RecordForUser(ctx, user.ID, "sensor", core.Amount{Milligrams: 200})
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected two distinct rows")
	}
	if len(store.emissions) != 2 {
		t.Fatalf("expected duplicate natural keys allowed, got %d rows", len(store.emissions))
	}
	for _, e := range store.emissions {
		if e.Source != core.SourceMockIoT {
			t.Fatalf("expected mock_iot source, got %s", e.Source)
		}
	}
}

func TestRecordForUserValidatesUser(t *testing.T) {
	svc := NewEmissionService(newFakeStore(), nil)
	if _, err := svc.RecordForUser(context.Background(), 42, "sensor", core.Amount{Milligrams: 1}); !errors.Is(err, core.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdateCarbonLimit(t *testing.T) {
	store := newFakeStore()
	user := store.addUser(core.User{Email: "frank@example.com"})
	svc := NewEmissionService(store, nil)
	ctx := context.Background()

	if err := svc.UpdateCarbonLimit(ctx, user.ID, &core.Amount{Milligrams: 500000}); err != nil {
		t.Fatalf("set limit: %v", err)
	}
	u, _ := store.GetUser(ctx, user.ID)
	if u.CarbonLimit == nil || u.CarbonLimit.Milligrams != 500000 {
		t.Fatalf("limit not stored: %v", u.CarbonLimit)
	}

	if err := svc.UpdateCarbonLimit(ctx, user.ID, &core.Amount{Milligrams: -1}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	if err := svc.UpdateCarbonLimit(ctx, user.ID, nil); err != nil {
		t.Fatalf("clear limit: %v", err)
	}
	u, _ = store.GetUser(ctx, user.ID)
	if u.CarbonLimit != nil {
		t.Fatalf("limit not cleared: %v", u.CarbonLimit)
	}
}
