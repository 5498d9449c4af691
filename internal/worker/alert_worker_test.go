package worker

import (
	"context"
	"testing"

	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/amqp"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/core"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/services"
)

type fakeSummaryStore struct {
	users     map[int64]core.User
	emissions []core.Emission
}

func (f *fakeSummaryStore) GetUser(_ context.Context, id int64) (core.User, error) {
	u, ok := f.users[id]
	if !ok {
		return core.User{}, core.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeSummaryStore) ListEmissionsSince(_ context.Context, userID int64, from core.Date) ([]core.Emission, error) {
	var out []core.Emission
	for _, e := range f.emissions {
		if e.UserID == userID && !e.Date.Before(from.Time) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeSummaryStore) CountUsers(context.Context) (int64, error) {
	return int64(len(f.users)), nil
}

func (f *fakeSummaryStore) CountEmissions(context.Context) (int64, error) {
	return int64(len(f.emissions)), nil
}

func (f *fakeSummaryStore) CountEmissionsBySource(_ context.Context, source core.Source) (int64, error) {
	var n int64
	for _, e := range f.emissions {
		if e.Source == source {
			n++
		}
	}
	return n, nil
}

func (f *fakeSummaryStore) ListUserIDs(context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	return ids, nil
}

func limitOf(mg int64) *core.Amount {
	return &core.Amount{Milligrams: mg}
}

func TestHandleEmissionEventOverLimit(t *testing.T) {
	store := &fakeSummaryStore{
		users: map[int64]core.User{
			1: {ID: 1, Email: "a@example.com", Role: core.RoleUser, CarbonLimit: limitOf(50_000_000)},
		},
		emissions: []core.Emission{
			{ID: 1, UserID: 1, Date: core.NewDate(2026, 3, 5), ActivityType: "car", Amount: core.Amount{Milligrams: 40_000_000}},
			{ID: 2, UserID: 1, Date: core.NewDate(2026, 3, 9), ActivityType: "flight", Amount: core.Amount{Milligrams: 30_000_000}},
		},
	}
	w := NewAlertWorker(services.NewSummaryService(store), store)

	msg := amqp.NewEmissionRecordedMessage(2, 1, "2026-03-09", "manual")
	if err := w.HandleEmissionEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleEmissionEvent: %v", err)
	}
}

func TestHandleEmissionEventUsesEventMonth(t *testing.T) {
	// Emissions live in March; the event is for a March record. A sweep
	// anchored on the event date must see them even if "now" is later.
	store := &fakeSummaryStore{
		users: map[int64]core.User{
			1: {ID: 1, Email: "a@example.com", Role: core.RoleUser, CarbonLimit: limitOf(10_000_000)},
		},
		emissions: []core.Emission{
			{ID: 1, UserID: 1, Date: core.NewDate(2026, 3, 5), ActivityType: "car", Amount: core.Amount{Milligrams: 40_000_000}},
		},
	}
	w := NewAlertWorker(services.NewSummaryService(store), store)

	msg := amqp.NewEmissionRecordedMessage(1, 1, "2026-03-05", "manual")
	if err := w.HandleEmissionEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleEmissionEvent: %v", err)
	}
}

func TestHandleEmissionEventBadDateDropped(t *testing.T) {
	store := &fakeSummaryStore{users: map[int64]core.User{}}
	w := NewAlertWorker(services.NewSummaryService(store), store)

	msg := amqp.NewEmissionRecordedMessage(1, 1, "not-a-date", "manual")
	if err := w.HandleEmissionEvent(context.Background(), msg); err != nil {
		t.Fatalf("malformed date should be dropped, not retried: %v", err)
	}
}

func TestHandleEmissionEventUnknownUser(t *testing.T) {
	store := &fakeSummaryStore{users: map[int64]core.User{}}
	w := NewAlertWorker(services.NewSummaryService(store), store)

	msg := amqp.NewEmissionRecordedMessage(1, 99, "2026-03-05", "manual")
	if err := w.HandleEmissionEvent(context.Background(), msg); err == nil {
		t.Fatal("expected error for unknown user")
	}
}

func TestSweepAll(t *testing.T) {
	store := &fakeSummaryStore{
		users: map[int64]core.User{
			1: {ID: 1, Email: "a@example.com", Role: core.RoleUser, CarbonLimit: limitOf(1_000_000)},
			2: {ID: 2, Email: "b@example.com", Role: core.RoleUser},
		},
		emissions: []core.Emission{
			{ID: 1, UserID: 1, Date: core.Today(), ActivityType: "car", Amount: core.Amount{Milligrams: 5_000_000}},
		},
	}
	w := NewAlertWorker(services.NewSummaryService(store), store)

	if err := w.SweepAll(context.Background()); err != nil {
		t.Fatalf("SweepAll: %v", err)
	}
}
