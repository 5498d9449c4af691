package services

import (
	"context"

	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/amqp"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/core"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/storage"
)

// fakeStore is an in-memory record store covering every service port.
// Its upsert mirrors the SQLite repository's merge-on-conflict; its
// import transaction snapshots state and restores it on error.
type fakeStore struct {
	users     map[int64]core.User
	emissions []core.Emission
	nextID    int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[int64]core.User)}
}

func (f *fakeStore) addUser(u core.User) core.User {
	f.nextID++
	u.ID = f.nextID
	f.users[u.ID] = u
	return u
}

func (f *fakeStore) GetUser(_ context.Context, id int64) (core.User, error) {
	u, ok := f.users[id]
	if !ok {
		return core.User{}, core.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeStore) FindUserByEmail(_ context.Context, email string) (core.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, core.ErrUserNotFound
}

func (f *fakeStore) UpsertEmission(_ context.Context, e core.Emission) (bool, int64, error) {
	for i := range f.emissions {
		ex := &f.emissions[i]
		if ex.UserID == e.UserID && ex.Date.ISO() == e.Date.ISO() && ex.ActivityType == e.ActivityType {
			ex.Amount = e.Amount
			return false, ex.ID, nil
		}
	}
	f.nextID++
	e.ID = f.nextID
	f.emissions = append(f.emissions, e)
	return true, e.ID, nil
}

func (f *fakeStore) InsertEmission(_ context.Context, e core.Emission) (int64, error) {
	f.nextID++
	e.ID = f.nextID
	f.emissions = append(f.emissions, e)
	return e.ID, nil
}

func (f *fakeStore) UpdateCarbonLimit(_ context.Context, userID int64, limit *core.Amount) error {
	u, ok := f.users[userID]
	if !ok {
		return core.ErrUserNotFound
	}
	u.CarbonLimit = limit
	f.users[userID] = u
	return nil
}

func (f *fakeStore) ListEmissionsSince(_ context.Context, userID int64, from core.Date) ([]core.Emission, error) {
	var out []core.Emission
	for _, e := range f.emissions {
		if e.UserID == userID && e.Date.ISO() >= from.ISO() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) CountUsers(context.Context) (int64, error) {
	return int64(len(f.users)), nil
}

func (f *fakeStore) CountEmissions(context.Context) (int64, error) {
	return int64(len(f.emissions)), nil
}

func (f *fakeStore) CountEmissionsBySource(_ context.Context, source core.Source) (int64, error) {
	var n int64
	for _, e := range f.emissions {
		if e.Source == source {
			n++
		}
	}
	return n, nil
}

type fakeScope struct {
	store *fakeStore
}

func (s fakeScope) FindUserByEmail(ctx context.Context, email string) (core.User, error) {
	return s.store.FindUserByEmail(ctx, email)
}

func (s fakeScope) InsertEmission(ctx context.Context, e core.Emission) (int64, error) {
	return s.store.InsertEmission(ctx, e)
}

func (f *fakeStore) WithinImportTx(_ context.Context, fn func(storage.ImportScope) error) error {
	saved := make([]core.Emission, len(f.emissions))
	copy(saved, f.emissions)
	savedID := f.nextID
	if err := fn(fakeScope{store: f}); err != nil {
		f.emissions = saved
		f.nextID = savedID
		return err
	}
	return nil
}

// fakePublisher captures published events.
type fakePublisher struct {
	published []*amqp.EmissionRecordedMessage
	err       error
}

func (p *fakePublisher) PublishEmissionRecorded(_ context.Context, msg *amqp.EmissionRecordedMessage) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}
